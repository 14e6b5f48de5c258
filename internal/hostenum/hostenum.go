// Package hostenum provides the host device-enumeration backends and the
// topology watcher consumed by the device manager.
package hostenum

// Enumerator priorities. A SourceManager asks higher priorities first.
const (
	PriorityFile     = 100
	PriorityCallback = 90
	PriorityV4L2     = 60
	PriorityMalgo    = 50
	PriorityNone     = 0
)
