package version

import (
	"runtime/debug"
	"strings"
	"testing"
	"time"
)

func saveAndRestore() func() {
	origVersion, origCommit, origBranch, origBuildTime, origGoVersion :=
		Version, GitCommit, GitBranch, BuildTime, GoVersion
	return func() {
		Version = origVersion
		GitCommit = origCommit
		GitBranch = origBranch
		BuildTime = origBuildTime
		GoVersion = origGoVersion
	}
}

func TestGetDefaults(t *testing.T) {
	defer saveAndRestore()()
	Version, GitCommit, GitBranch, BuildTime, GoVersion = "dev", "", "", "", ""

	info := Get()
	if info.Version != "dev" {
		t.Errorf("expected version 'dev', got %q", info.Version)
	}
	if info.IsRelease {
		t.Error("dev should not be a release")
	}
	if info.BuildDate.IsZero() {
		t.Error("BuildDate should not be zero")
	}
	if info.Uptime() < 0 {
		t.Errorf("expected non-negative uptime, got %v", info.Uptime())
	}
}

func TestGetWithLinkedValues(t *testing.T) {
	defer saveAndRestore()()
	Version = "1.0.0"
	BuildTime = "2024-01-15T10:30:00Z"
	GitCommit = "abc1234"
	GitBranch = "main"
	GoVersion = "go1.22.0"

	info := Get()
	if !info.IsRelease {
		t.Error("1.0.0 should be a release")
	}
	if info.GitCommit != "abc1234" || info.GoVersion != "go1.22.0" {
		t.Errorf("expected linked values, got %+v", info)
	}
	if info.BuildDate.Year() != 2024 {
		t.Errorf("expected build year 2024, got %d", info.BuildDate.Year())
	}
}

func TestGetDirtyVersion(t *testing.T) {
	defer saveAndRestore()()
	Version = "1.0.0-dirty"
	if Get().IsRelease {
		t.Error("dirty version should not be a release")
	}
}

func TestFromBuildInfo(t *testing.T) {
	defer saveAndRestore()()
	GitCommit, BuildTime, GoVersion = "", "", ""

	info := &Info{}
	fromBuildInfo(info, &debug.BuildInfo{
		GoVersion: "go1.23.1",
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "0123456789abcdef"},
			{Key: "vcs.modified", Value: "true"},
			{Key: "vcs.time", Value: "2025-03-01T08:00:00Z"},
		},
	})
	if info.GitCommit != "0123456" {
		t.Errorf("expected truncated commit, got %q", info.GitCommit)
	}
	if !info.IsDirty || info.GoVersion != "go1.23.1" {
		t.Errorf("unexpected info %+v", info)
	}
	if info.BuildDate.Month() != time.March {
		t.Errorf("expected vcs time, got %v", info.BuildDate)
	}
}

func TestShort(t *testing.T) {
	tests := []struct {
		info Info
		want string
	}{
		{Info{Version: "dev"}, "dev"},
		{Info{Version: "1.0.0", GitCommit: "abc1234"}, "1.0.0-abc1234"},
		{Info{Version: "1.0.0", GitCommit: "abc1234", IsDirty: true}, "1.0.0-abc1234-dirty"},
	}
	for _, tc := range tests {
		if got := tc.info.Short(); got != tc.want {
			t.Errorf("expected %q, got %q", tc.want, got)
		}
	}
}

func TestString(t *testing.T) {
	built := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

	main := Info{Version: "1.0.0", GitCommit: "abc1234", GitBranch: "main", BuildDate: built, GoVersion: "go1.22"}
	s := main.String()
	if !strings.HasPrefix(s, "1.0.0-abc1234 (built") {
		t.Errorf("unexpected %q", s)
	}
	if strings.Contains(s, "main") {
		t.Errorf("main branch should not appear, got %q", s)
	}

	feature := Info{Version: "1.0.0", GitCommit: "abc1234", GitBranch: "feature/skip", BuildDate: built}
	if !strings.Contains(feature.String(), "feature/skip") {
		t.Errorf("expected feature branch, got %q", feature.String())
	}
}
