package observ

import (
	"errors"
	"strings"
	"testing"
)

func TestTimerTrackAndMerge(t *testing.T) {
	unit := NewTimer()
	if err := unit.Track("typecheck", func() error { return nil }); err != nil {
		t.Fatalf("track: %v", err)
	}
	wantErr := errors.New("boom")
	if err := unit.Track("memflow", func() error { return wantErr }); !errors.Is(err, wantErr) {
		t.Fatalf("track must pass the phase error through, got %v", err)
	}

	run := NewTimer()
	run.Merge("unit_a", unit)
	rep := run.Report()
	if len(rep.Phases) != 2 {
		t.Fatalf("expected 2 merged phases, got %d", len(rep.Phases))
	}
	if rep.Phases[0].Name != "unit_a/typecheck" {
		t.Fatalf("merge must prefix phase names, got %q", rep.Phases[0].Name)
	}
	if rep.Phases[1].Note != "failed" {
		t.Fatalf("failed phase must carry its note, got %q", rep.Phases[1].Note)
	}
	if !strings.Contains(run.Summary(), "total") {
		t.Fatal("summary must include the total line")
	}
}
