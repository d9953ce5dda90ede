package version

import "testing"

func TestString(t *testing.T) {
	Version, Commit, BuildTime = "1.2.0", "0123456789abcdef", "2026-10-01"
	t.Cleanup(func() { Version, Commit, BuildTime = "dev", "unknown", "unknown" })

	want := "1.2.0 (commit: 0123456, built: 2026-10-01)"
	if got := String(); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}
