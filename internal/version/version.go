// Package version reports what NetCollect build is running. Version,
// GitCommit and BuildDate are set with -ldflags; a plain `go build` falls
// back to the VCS stamp the toolchain embeds.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Build describes the running binary.
type Build struct {
	Version   string `json:"version"`
	Commit    string `json:"git_commit"`
	Date      string `json:"build_date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// Current returns the running build. Values not set with -ldflags are taken
// from the embedded VCS settings when present.
func Current() Build {
	b := Build{
		Version:   Version,
		Commit:    GitCommit,
		Date:      BuildDate,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		b = withVCS(b, info.Settings)
	}
	return b
}

func withVCS(b Build, settings []debug.BuildSetting) Build {
	for _, s := range settings {
		switch s.Key {
		case "vcs.revision":
			if b.Commit == "unknown" && s.Value != "" {
				b.Commit = s.Value
				if len(b.Commit) > 12 {
					b.Commit = b.Commit[:12]
				}
			}
		case "vcs.time":
			if b.Date == "unknown" && s.Value != "" {
				b.Date = s.Value
			}
		}
	}
	return b
}

func (b Build) String() string {
	return fmt.Sprintf("NetCollect %s (commit: %s, built: %s, go: %s, %s)",
		b.Version, b.Commit, b.Date, b.GoVersion, b.Platform)
}

// Short returns the release version, "dev" for local builds.
func Short() string {
	return Version
}

// Collector exports netcollect_build_info, a constant 1 labelled with the
// running build.
func Collector() prometheus.Collector {
	b := Current()
	g := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "netcollect",
		Name:      "build_info",
		Help:      "NetCollect build metadata.",
		ConstLabels: prometheus.Labels{
			"version":    b.Version,
			"commit":     b.Commit,
			"go_version": b.GoVersion,
		},
	})
	g.Set(1)
	return g
}
