package main

import (
	"context"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	"ember/internal/driver"
	"ember/internal/ui"
)

type analyseOutcome struct {
	results []*driver.UnitResult
	err     error
}

// runAnalyseWithUI drives AnalyseDir under a progress TUI. Phase events
// map onto unit statuses; the unit flips to done when its final phase
// ends.
func runAnalyseWithUI(ctx context.Context, dir string, paths []string, opts driver.Options) ([]*driver.UnitResult, error) {
	units := make([]string, len(paths))
	for i, p := range paths {
		units[i] = filepath.Base(p)
	}

	finalPhase := "analyse"
	if opts.Codegen {
		finalPhase = "codegen"
	}

	events := make(chan ui.Event, 256)
	opts.Observer = func(ev driver.PhaseEvent) {
		out := ui.Event{Unit: ev.Unit, Phase: ev.Name, Status: ui.StatusWorking}
		if ev.Status == driver.PhaseEnd && ev.Name == finalPhase {
			out.Status = ui.StatusDone
		}
		events <- out
	}

	outcomeCh := make(chan analyseOutcome, 1)
	go func() {
		results, err := driver.AnalyseDir(ctx, dir, opts)
		outcomeCh <- analyseOutcome{results: results, err: err}
		close(events)
	}()

	model := ui.NewProgressModel("analysing "+dir, units, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stdout))
	_, uiErr := program.Run()
	outcome := <-outcomeCh
	if uiErr != nil {
		return outcome.results, uiErr
	}
	return outcome.results, outcome.err
}
