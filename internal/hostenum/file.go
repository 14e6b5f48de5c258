package hostenum

import (
	"context"
	"fmt"
	"os"

	"github.com/goccy/go-yaml"

	"github.com/bavix/avwatch/internal/devices"
	customerrors "github.com/bavix/avwatch/internal/errors"
)

// File reads the device list from a YAML or JSON file. The file holds either
// a list of descriptors or a document with a "devices" list:
//
//	devices:
//	  - deviceId: cam-1
//	    kind: videoinput
//	    label: Front Camera
type File struct {
	path string
}

type fileDocument struct {
	Devices []devices.RawDevice `yaml:"devices"`
}

// NewFile creates a file enumerator.
func NewFile(path string) (*File, error) {
	if path == "" {
		return nil, customerrors.ErrSourcePathRequired
	}

	return &File{path: path}, nil
}

// Path returns the file path.
func (f *File) Path() string { return f.path }

// Name returns the enumerator name.
func (f *File) Name() string { return "file" }

// Priority returns the enumerator priority.
func (f *File) Priority() int { return PriorityFile }

// IsAvailable reports whether the file exists.
func (f *File) IsAvailable(context.Context) bool {
	info, err := os.Stat(f.path)

	return err == nil && !info.IsDir()
}

// Enumerate reads and parses the file.
func (f *File) Enumerate(ctx context.Context) ([]devices.RawDevice, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("read device file: %w", err)
	}

	return ParseDeviceList(data)
}

// ParseDeviceList parses a YAML or JSON device list.
func ParseDeviceList(data []byte) ([]devices.RawDevice, error) {
	var list []devices.RawDevice
	if err := yaml.Unmarshal(data, &list); err == nil {
		return list, nil
	}

	var doc fileDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", customerrors.ErrMalformedDeviceSource, err)
	}

	return doc.Devices, nil
}
