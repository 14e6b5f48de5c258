package devices

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Catalog is the insertion-ordered set of known devices keyed by device id.
// It is not safe for concurrent use; the Manager serializes access.
type Catalog struct {
	records *orderedmap.OrderedMap[string, *Device]
	merger  DeviceMerger
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		records: orderedmap.New[string, *Device](),
		merger:  NewDefaultDeviceMerger(),
	}
}

// Set normalizes batch and merges it into the catalog. Descriptors without an
// identifier are dropped and counted in the result.
func (c *Catalog) Set(batch []RawDevice) MergeResult {
	normalized, dropped := NormalizeAll(batch)

	res := c.Merge(normalized)
	res.Dropped = dropped

	return res
}

// Merge merges already normalized records.
func (c *Catalog) Merge(devices []*Device) MergeResult {
	return c.merger.Merge(c.records, devices)
}

// Get returns the record with the given id.
func (c *Catalog) Get(id string) (*Device, bool) {
	return c.records.Get(id)
}

// Len returns the number of records.
func (c *Catalog) Len() int {
	return c.records.Len()
}

// Devices returns the records in catalog order.
func (c *Catalog) Devices() []*Device {
	out := make([]*Device, 0, c.records.Len())

	for pair := c.records.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Value)
	}

	return out
}

// IDs returns the record ids in catalog order.
func (c *Catalog) IDs() []string {
	out := make([]string, 0, c.records.Len())

	for pair := c.records.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Key)
	}

	return out
}
