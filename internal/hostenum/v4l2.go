package hostenum

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/bavix/avwatch/internal/devices"
)

// DefaultV4L2Root is where Linux exposes video4linux nodes.
const DefaultV4L2Root = "/sys/class/video4linux"

// V4L2 lists Linux cameras from sysfs. Only the primary node (index 0) of
// each physical camera is reported; metadata nodes are skipped.
type V4L2 struct {
	root string
}

// NewV4L2 creates a sysfs camera enumerator. An empty root selects
// DefaultV4L2Root.
func NewV4L2(root string) *V4L2 {
	if root == "" {
		root = DefaultV4L2Root
	}

	return &V4L2{root: root}
}

// Name returns the enumerator name.
func (v *V4L2) Name() string { return "v4l2" }

// Priority returns the enumerator priority.
func (v *V4L2) Priority() int { return PriorityV4L2 }

// IsAvailable reports whether the sysfs class directory exists.
func (v *V4L2) IsAvailable(context.Context) bool {
	info, err := os.Stat(v.root)

	return err == nil && info.IsDir()
}

// Enumerate reads every video node under the root.
func (v *V4L2) Enumerate(ctx context.Context) ([]devices.RawDevice, error) {
	entries, err := os.ReadDir(v.root)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", v.root, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "video") {
			names = append(names, e.Name())
		}
	}

	sort.Strings(names)

	logger := zerolog.Ctx(ctx)
	out := make([]devices.RawDevice, 0, len(names))

	for _, node := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		dir := filepath.Join(v.root, node)

		if index, err := readAttr(dir, "index"); err == nil && index != "0" {
			continue
		}

		label, err := readAttr(dir, "name")
		if err != nil {
			logger.Debug().Err(err).Str("node", node).Msg("skipping video node without name")

			continue
		}

		out = append(out, devices.RawDevice{
			DeviceID: "v4l2:" + node,
			GroupID:  parentDevice(dir),
			Label:    label,
			Kind:     string(devices.KindVideoInput),
		})
	}

	return out, nil
}

func readAttr(dir, name string) (string, error) {
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(string(data)), nil
}

// parentDevice names the physical device a node belongs to, so nodes of one
// camera share a group id.
func parentDevice(dir string) string {
	target, err := filepath.EvalSymlinks(filepath.Join(dir, "device"))
	if err != nil {
		return ""
	}

	return filepath.Base(target)
}
