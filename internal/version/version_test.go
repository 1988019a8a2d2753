package version

import "testing"

func TestGetDefaults(t *testing.T) {
	v := Get()
	if v.Version == "" || v.BuildDate == "" || v.GitCommit == "" {
		t.Errorf("expected every field to be set, got %+v", v)
	}
	if len(v.GitCommit) > 12 {
		t.Errorf("expected a short commit, got %q", v.GitCommit)
	}
}

func TestGetLinkerValues(t *testing.T) {
	oldVersion, oldDate, oldCommit := version, buildDate, gitCommit
	t.Cleanup(func() { version, buildDate, gitCommit = oldVersion, oldDate, oldCommit })

	version, buildDate, gitCommit = "v1.2.3", "2026-01-01T00:00:00Z", "0123456789abcdef"

	v := Get()
	if v.Version != "v1.2.3" || v.BuildDate != "2026-01-01T00:00:00Z" || v.GitCommit != "0123456789ab" {
		t.Errorf("unexpected version info %+v", v)
	}
}
