package buildinfo

import (
	"strings"
	"testing"
)

func TestShort(t *testing.T) {
	tests := []struct {
		info Info
		want string
	}{
		{Info{Version: "v1.2.0", Commit: "0123456789abcdef"}, "v1.2.0 (01234567)"},
		{Info{Version: "dev", Commit: "none"}, "dev (none)"},
	}
	for _, tt := range tests {
		if got := tt.info.Short(); got != tt.want {
			t.Errorf("Short() = %q, want %q", got, tt.want)
		}
	}
}

func TestStampsTakePrecedence(t *testing.T) {
	defer func(v, c, d string) { Version, Commit, Date = v, c, d }(Version, Commit, Date)
	Version, Commit, Date = "v0.9.0", "abc", "2026-01-02T03:04:05Z"

	got := Get()
	if got.Version != "v0.9.0" || got.Commit != "abc" || got.Date != "2026-01-02T03:04:05Z" {
		t.Errorf("Get() = %+v", got)
	}
	if !strings.Contains(Template(), "v0.9.0") {
		t.Errorf("Template() = %q", Template())
	}
}
