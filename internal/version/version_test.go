package version

import (
	"runtime"
	"runtime/debug"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCurrent(t *testing.T) {
	b := Current()
	if b.Version != "dev" {
		t.Errorf("Version = %q, want dev", b.Version)
	}
	if b.GoVersion != runtime.Version() {
		t.Errorf("GoVersion = %q, want %q", b.GoVersion, runtime.Version())
	}
	if b.Platform != runtime.GOOS+"/"+runtime.GOARCH {
		t.Errorf("Platform = %q", b.Platform)
	}
	if s := b.String(); !strings.HasPrefix(s, "NetCollect dev ") {
		t.Errorf("String() = %q", s)
	}
}

func TestWithVCS(t *testing.T) {
	settings := []debug.BuildSetting{
		{Key: "vcs.revision", Value: "0123456789abcdef0123"},
		{Key: "vcs.time", Value: "2025-03-01T10:00:00Z"},
	}

	tests := []struct {
		name       string
		in         Build
		wantCommit string
		wantDate   string
	}{
		{"fills unknown fields", Build{Commit: "unknown", Date: "unknown"}, "0123456789ab", "2025-03-01T10:00:00Z"},
		{"ldflags win", Build{Commit: "abc1234", Date: "2025-01-01"}, "abc1234", "2025-01-01"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := withVCS(tt.in, settings)
			if got.Commit != tt.wantCommit || got.Date != tt.wantDate {
				t.Errorf("withVCS = %q, %q; want %q, %q", got.Commit, got.Date, tt.wantCommit, tt.wantDate)
			}
		})
	}
}

func TestCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	if err := reg.Register(Collector()); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if n := testutil.CollectAndCount(Collector(), "netcollect_build_info"); n != 1 {
		t.Errorf("build_info series = %d, want 1", n)
	}
	if v := testutil.ToFloat64(Collector()); v != 1 {
		t.Errorf("build_info = %v, want 1", v)
	}
}
