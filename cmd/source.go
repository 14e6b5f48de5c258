package cmd

import (
	"path/filepath"
	"strings"

	"github.com/bavix/avwatch/internal/config"
	"github.com/bavix/avwatch/internal/devices"
	"github.com/bavix/avwatch/internal/hostenum"
)

// buildEnumerator selects the device backend named by the source config.
func buildEnumerator(cfg *config.SourceConfig) (devices.Enumerator, error) {
	switch cfg.Type {
	case config.SourceFile:
		return hostenum.NewFile(cfg.Path)
	case config.SourceNone:
		return hostenum.None{}, nil
	default:
		return devices.NewSourceManager(
			hostenum.NewV4L2(cfg.V4L2Root),
			hostenum.NewMalgo(),
		), nil
	}
}

// buildWatcher returns nil when watching is off.
func buildWatcher(cfg *config.SourceConfig) (*hostenum.Watcher, error) {
	if !cfg.Watch {
		return nil, nil //nolint:nilnil // no watcher configured
	}

	switch cfg.Type {
	case config.SourceFile:
		// editors replace the file, so watch its directory
		target := filepath.Clean(cfg.Path)

		return hostenum.NewWatcher([]string{filepath.Dir(target)}, func(name string) bool {
			return filepath.Clean(name) == target
		})
	case config.SourceHost:
		return hostenum.NewWatcher(cfg.WatchPaths, isDeviceNode)
	default:
		return nil, nil //nolint:nilnil // nothing to watch
	}
}

// isDeviceNode accepts camera nodes (/dev/videoN) and ALSA PCM and control
// nodes (/dev/snd/pcmC0D0p, /dev/snd/controlC0).
func isDeviceNode(name string) bool {
	base := filepath.Base(name)

	for _, prefix := range []string{"video", "pcmC", "controlC"} {
		if strings.HasPrefix(base, prefix) {
			return true
		}
	}

	return false
}
