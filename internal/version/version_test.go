package version_test

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bavix/avwatch/internal/version"
)

func TestGetVersion(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "dev", version.GetVersion())
	assert.Empty(t, version.GetBuildTime())
}

func TestGet(t *testing.T) {
	t.Parallel()

	info := version.Get()

	assert.Equal(t, version.Version, info.Version)
	assert.Equal(t, runtime.Version(), info.GoVersion)
	assert.Equal(t, runtime.GOOS+"/"+runtime.GOARCH, info.Platform)
}
