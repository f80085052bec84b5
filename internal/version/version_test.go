package version

import (
	"strings"
	"testing"
)

func TestLineIncludesOptionalFields(t *testing.T) {
	origCommit, origDate := GitCommit, BuildDate
	defer func() { GitCommit, BuildDate = origCommit, origDate }()

	GitCommit, BuildDate = "", ""
	if got := Line(); !strings.HasPrefix(got, "emberc ") || strings.Contains(got, "(") {
		t.Fatalf("bare line malformed: %q", got)
	}

	GitCommit, BuildDate = "abc123", "2026-08-29"
	got := Line()
	if !strings.Contains(got, "(abc123)") || !strings.Contains(got, "built 2026-08-29") {
		t.Fatalf("optional fields missing: %q", got)
	}
}
