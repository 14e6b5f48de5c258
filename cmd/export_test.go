package cmd

var (
	BuildEnumerator = buildEnumerator
	BuildWatcher    = buildWatcher
	IsDeviceNode    = isDeviceNode
	WriteTable      = writeDevicesTable
)
