//nolint:gochecknoglobals // version info set via ldflags
package version

import "runtime"

// These variables are intended to be set via -ldflags at build time.
// Example:
//
//	-X github.com/bavix/avwatch/internal/version.Version=v1.2.3 \
//	-X github.com/bavix/avwatch/internal/version.BuildTime=2026-01-24T12:00:00Z
var (
	Version   = "dev"
	BuildTime = ""
)

// Info describes the running build.
type Info struct {
	Version   string `json:"version"`
	BuildTime string `json:"build_time,omitempty"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

func GetVersion() string { return Version }

func GetBuildTime() string { return BuildTime }

// Get returns the build information.
func Get() Info {
	return Info{
		Version:   Version,
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}
