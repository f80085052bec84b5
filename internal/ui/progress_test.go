package ui

import (
	"strings"
	"testing"
)

func TestApplyEventUpdatesStatusAndProgress(t *testing.T) {
	events := make(chan Event)
	m := NewProgressModel("analyse", []string{"a.embast", "b.embast"}, events).(*progressModel)

	m.applyEvent(Event{Unit: "a.embast", Phase: "analyse", Status: StatusWorking})
	if m.items[0].status != "analysing" {
		t.Fatalf("status not applied: %q", m.items[0].status)
	}

	m.applyEvent(Event{Unit: "a.embast", Status: StatusDone})
	if m.items[0].status != "done" {
		t.Fatalf("done not applied: %q", m.items[0].status)
	}

	// unknown units are ignored
	m.applyEvent(Event{Unit: "ghost.embast", Status: StatusError})
	if m.items[1].status != "queued" {
		t.Fatalf("unrelated unit touched: %q", m.items[1].status)
	}
}

func TestViewListsEveryUnit(t *testing.T) {
	events := make(chan Event)
	m := NewProgressModel("analyse", []string{"first.embast", "second.embast"}, events).(*progressModel)

	view := m.View()
	for _, unit := range []string{"first.embast", "second.embast"} {
		if !strings.Contains(view, unit) {
			t.Fatalf("unit %q missing from view:\n%s", unit, view)
		}
	}
}

func TestTruncateRespectsDisplayWidth(t *testing.T) {
	if got := truncate("short", 20); got != "short" {
		t.Fatalf("short value changed: %q", got)
	}
	got := truncate("a-very-long-bundle-name.embast", 12)
	if !strings.HasSuffix(got, "...") || len(got) > 12 {
		t.Fatalf("bad truncation: %q", got)
	}
}
