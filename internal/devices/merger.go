package devices

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// MergeResult summarizes one catalog merge.
type MergeResult struct {
	Added     int `json:"added"`
	Updated   int `json:"updated"`
	Removed   int `json:"removed"`
	Unchanged int `json:"unchanged"`
	Dropped   int `json:"dropped"`
}

// Changed reports whether the merge altered the catalog.
func (r MergeResult) Changed() bool {
	return r.Added > 0 || r.Updated > 0 || r.Removed > 0
}

// DefaultDeviceMerger merges a normalized batch into an ordered record set.
type DefaultDeviceMerger struct{}

// NewDefaultDeviceMerger creates a new default device merger.
func NewDefaultDeviceMerger() *DefaultDeviceMerger {
	return &DefaultDeviceMerger{}
}

// Merge makes records hold exactly the ids of batch. Records whose id is gone
// are removed, surviving ids keep their position and take the new attributes,
// new ids are appended in batch order. Within one batch the first occurrence of
// an id fixes its position and the last one wins.
func (m *DefaultDeviceMerger) Merge(records *orderedmap.OrderedMap[string, *Device], batch []*Device) MergeResult {
	var res MergeResult

	incoming := m.dedupe(batch)

	stale := make([]string, 0)

	for pair := records.Oldest(); pair != nil; pair = pair.Next() {
		if _, ok := incoming.Get(pair.Key); !ok {
			stale = append(stale, pair.Key)
		}
	}

	for _, id := range stale {
		records.Delete(id)
		res.Removed++
	}

	for pair := incoming.Oldest(); pair != nil; pair = pair.Next() {
		prev, exists := records.Get(pair.Key)

		switch {
		case !exists:
			records.Set(pair.Key, pair.Value)
			res.Added++
		case prev.Equal(pair.Value):
			// keep the existing snapshot so unchanged records stay identical
			res.Unchanged++
		default:
			records.Set(pair.Key, pair.Value)
			res.Updated++
		}
	}

	return res
}

func (m *DefaultDeviceMerger) dedupe(batch []*Device) *orderedmap.OrderedMap[string, *Device] {
	incoming := orderedmap.New[string, *Device]()

	for _, d := range batch {
		incoming.Set(d.DeviceID, d)
	}

	return incoming
}
