// Package version reports build information for walletlink binaries.
package version

import (
	"fmt"
	"runtime/debug"
	"strings"
)

const (
	devVersion = "dev"
	unknown    = "unknown"
)

// Info identifies a build. Fields are stamped with -ldflags at release time.
type Info struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
}

// String renders "v1.2.3 (commit: abc1234, built: 2026-01-01)".
func (i Info) String() string {
	return fmt.Sprintf("%s (commit: %s, built: %s)",
		orDefault(i.Version, devVersion), orDefault(i.Commit, unknown), orDefault(i.Date, unknown))
}

// IsDev reports whether the build carries no release version.
func (i Info) IsDev() bool {
	v := strings.TrimSpace(i.Version)
	return v == "" || v == devVersion || v == "(devel)"
}

// Resolve fills empty fields from the module build information embedded by
// the Go toolchain, so `go install` builds still report something useful.
func Resolve(i Info) Info {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return i
	}
	return resolveFrom(i, bi)
}

func resolveFrom(i Info, bi *debug.BuildInfo) Info {
	if i.IsDev() && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		i.Version = bi.Main.Version
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if i.Commit == "" {
				i.Commit = shortCommit(s.Value)
			}
		case "vcs.time":
			if i.Date == "" {
				i.Date = s.Value
			}
		}
	}
	return i
}

func shortCommit(rev string) string {
	if len(rev) > 7 {
		return rev[:7]
	}
	return rev
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
