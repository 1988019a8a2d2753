// Package version reports the build version of the binaries.
//
// The values are set at build time:
//
//	go build -ldflags "-X github.com/cardpass/pass-issuer/internal/version.version=v1.2.0 \
//	  -X github.com/cardpass/pass-issuer/internal/version.buildDate=2026-01-01T00:00:00Z"
//
// When they are not set, the module version and VCS details recorded by the go toolchain are used.
package version

import (
	"runtime/debug"
)

var (
	version   = ""
	buildDate = ""
	gitCommit = ""
)

// Info describes the running build.
type Info struct {
	Version   string
	BuildDate string
	GitCommit string
}

// Get returns the build information.
func Get() Info {
	info := Info{
		Version:   version,
		BuildDate: buildDate,
		GitCommit: gitCommit,
	}

	if bi, ok := debug.ReadBuildInfo(); ok {
		if info.Version == "" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
			info.Version = bi.Main.Version
		}
		for _, setting := range bi.Settings {
			switch setting.Key {
			case "vcs.revision":
				if info.GitCommit == "" {
					info.GitCommit = setting.Value
				}
			case "vcs.time":
				if info.BuildDate == "" {
					info.BuildDate = setting.Value
				}
			}
		}
	}

	if info.Version == "" {
		info.Version = "dev"
	}
	if info.BuildDate == "" {
		info.BuildDate = "unknown"
	}
	if info.GitCommit == "" {
		info.GitCommit = "unknown"
	}
	if len(info.GitCommit) > 12 {
		info.GitCommit = info.GitCommit[:12]
	}
	return info
}
