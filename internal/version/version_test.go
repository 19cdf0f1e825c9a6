package version

import (
	"runtime/debug"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInfo_String(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		info Info
		want string
	}{
		{"all fields", Info{Version: "v1.2.3", Commit: "abc1234", Date: "2026-01-15"}, "v1.2.3 (commit: abc1234, built: 2026-01-15)"},
		{"empty", Info{}, "dev (commit: unknown, built: unknown)"},
		{"missing commit", Info{Version: "v2.0.0", Date: "2026-03-25"}, "v2.0.0 (commit: unknown, built: 2026-03-25)"},
		{"blank version", Info{Version: "  ", Commit: "def5678"}, "dev (commit: def5678, built: unknown)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.info.String())
		})
	}
}

func TestInfo_IsDev(t *testing.T) {
	t.Parallel()
	assert.True(t, Info{}.IsDev())
	assert.True(t, Info{Version: "dev"}.IsDev())
	assert.True(t, Info{Version: "(devel)"}.IsDev())
	assert.False(t, Info{Version: "v0.1.0"}.IsDev())
}

func TestResolveFrom(t *testing.T) {
	t.Parallel()
	bi := &debug.BuildInfo{
		Main: debug.Module{Version: "v0.4.0"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "0123456789abcdef"},
			{Key: "vcs.time", Value: "2026-10-01T00:00:00Z"},
		},
	}

	got := resolveFrom(Info{}, bi)
	assert.Equal(t, Info{Version: "v0.4.0", Commit: "0123456", Date: "2026-10-01T00:00:00Z"}, got)

	stamped := Info{Version: "v1.0.0", Commit: "feedbee", Date: "2026-10-19"}
	assert.Equal(t, stamped, resolveFrom(stamped, bi), "ldflags values win")

	devel := &debug.BuildInfo{Main: debug.Module{Version: "(devel)"}}
	assert.True(t, resolveFrom(Info{}, devel).IsDev())
}

func TestResolve_DoesNotPanic(t *testing.T) {
	t.Parallel()
	assert.NotPanics(t, func() { _ = Resolve(Info{Version: "v9.9.9"}) })
	assert.Equal(t, "v9.9.9", Resolve(Info{Version: "v9.9.9"}).Version)
}
