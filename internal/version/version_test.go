package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetVersion(t *testing.T) {
	oldV, oldT, oldC := Version, BuildTime, GitCommit
	defer func() { Version, BuildTime, GitCommit = oldV, oldT, oldC }()

	Version, BuildTime, GitCommit = "1.2.3", "", ""
	assert.Equal(t, "v1.2.3", GetVersion())
	assert.Equal(t, "v1.2.3", GetShortVersion())

	BuildTime, GitCommit = "2026-01-02", "abc"
	assert.Equal(t, "v1.2.3 (built 2026-01-02) commit abc", GetVersion())

	GitCommit = "0123456789abcdef"
	assert.Contains(t, GetVersion(), "commit 01234567")
}
