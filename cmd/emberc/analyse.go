package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"ember/internal/diag"
	"ember/internal/diagfmt"
	"ember/internal/driver"
	"ember/internal/project"
)

var analyseCmd = &cobra.Command{
	Use:   "analyse [flags] [bundle.embast|directory]",
	Short: "Analyse compiled AST bundles",
	Long: `Analyse runs type checking, error-handling verification and memory-flow
analysis over one bundle or every bundle under a directory. Without an
argument the bundle directory from ember.toml is used.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAnalyse,
}

func init() {
	analyseCmd.Flags().String("format", "pretty", "output format (pretty|json)")
	analyseCmd.Flags().Int("jobs", 0, "max parallel units (0=auto)")
	analyseCmd.Flags().Bool("with-notes", false, "include diagnostic notes in output")
	analyseCmd.Flags().Int("source-context", 0, "extra source lines above each diagnostic")
	analyseCmd.Flags().Bool("codegen", true, "lower error-free units to instruction form")
	analyseCmd.Flags().Bool("disk-cache", false, "cache per-bundle results on disk")
	analyseCmd.Flags().String("ui", "auto", "progress UI for directories (auto|on|off)")
}

type analyseFlags struct {
	format    string
	jobs      int
	withNotes bool
	context   int
	codegen   bool
	diskCache bool
	ui        uiMode
	color     bool
	quiet     bool
	timings   bool
	maxDiags  int
}

func readAnalyseFlags(cmd *cobra.Command) (analyseFlags, error) {
	var f analyseFlags
	var err error

	if f.format, err = cmd.Flags().GetString("format"); err != nil {
		return f, err
	}
	f.format = strings.ToLower(f.format)
	if f.format != "pretty" && f.format != "json" {
		return f, fmt.Errorf("unsupported format %q (must be pretty or json)", f.format)
	}
	if f.jobs, err = cmd.Flags().GetInt("jobs"); err != nil {
		return f, err
	}
	if f.withNotes, err = cmd.Flags().GetBool("with-notes"); err != nil {
		return f, err
	}
	if f.context, err = cmd.Flags().GetInt("source-context"); err != nil {
		return f, err
	}
	if f.codegen, err = cmd.Flags().GetBool("codegen"); err != nil {
		return f, err
	}
	if f.diskCache, err = cmd.Flags().GetBool("disk-cache"); err != nil {
		return f, err
	}
	uiValue, err := cmd.Flags().GetString("ui")
	if err != nil {
		return f, err
	}
	if f.ui, err = readUIMode(uiValue); err != nil {
		return f, err
	}

	colorValue, err := cmd.Root().PersistentFlags().GetString("color")
	if err != nil {
		return f, err
	}
	if f.color, err = readColorMode(colorValue); err != nil {
		return f, err
	}
	if f.quiet, err = cmd.Root().PersistentFlags().GetBool("quiet"); err != nil {
		return f, err
	}
	if f.timings, err = cmd.Root().PersistentFlags().GetBool("timings"); err != nil {
		return f, err
	}
	if f.maxDiags, err = cmd.Root().PersistentFlags().GetInt("max-diagnostics"); err != nil {
		return f, err
	}
	return f, nil
}

func runAnalyse(cmd *cobra.Command, args []string) error {
	flags, err := readAnalyseFlags(cmd)
	if err != nil {
		return err
	}

	manifest, haveManifest, err := project.Load(".")
	if err != nil {
		return err
	}

	target := ""
	if len(args) == 1 {
		target = args[0]
	} else if haveManifest {
		target = manifest.BundleDir()
	} else {
		return fmt.Errorf("no bundle path given and no %s found", project.ManifestName)
	}

	opts := driver.Options{
		MaxDiagnostics: flags.maxDiags,
		Jobs:           flags.jobs,
		Codegen:        flags.codegen,
	}
	if opts.MaxDiagnostics <= 0 && haveManifest {
		opts.MaxDiagnostics = manifest.Config.Analysis.MaxDiagnostics
	}
	if haveManifest {
		if rulesPath := manifest.RulesPath(); rulesPath != "" {
			rules, err := project.LoadRules(rulesPath)
			if err != nil {
				return err
			}
			opts.Rules = rules
		}
	}
	if flags.diskCache {
		cache, err := driver.OpenDiskCache("emberc")
		if err != nil {
			return err
		}
		opts.Cache = cache
	}

	results, err := analyseTarget(cmd.Context(), target, flags, opts)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch flags.format {
	case "json":
		if err := writeJSONReport(out, results, flags); err != nil {
			return err
		}
	default:
		if err := writePrettyReport(out, results, flags); err != nil {
			return err
		}
	}

	if flags.timings && !flags.quiet {
		fmt.Fprint(out, driver.MergeTimings(results).Summary())
	}

	errorCount := 0
	for _, r := range results {
		for _, d := range r.Bag.Items() {
			if d.Severity >= diag.SevError {
				errorCount++
			}
		}
	}
	if errorCount > 0 {
		cmd.SilenceUsage = true
		return fmt.Errorf("%d error(s) reported", errorCount)
	}
	return nil
}

func analyseTarget(ctx context.Context, target string, flags analyseFlags, opts driver.Options) ([]*driver.UnitResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	info, err := os.Stat(target)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		res, err := driver.AnalyseBundle(ctx, target, opts)
		if err != nil {
			return nil, err
		}
		return []*driver.UnitResult{res}, nil
	}

	if flags.format == "pretty" && !flags.quiet && shouldUseTUI(flags.ui) {
		paths, err := driver.ListBundles(target)
		if err != nil {
			return nil, err
		}
		if len(paths) > 0 {
			return runAnalyseWithUI(ctx, target, paths, opts)
		}
	}
	return driver.AnalyseDir(ctx, target, opts)
}

func writePrettyReport(out io.Writer, results []*driver.UnitResult, flags analyseFlags) error {
	prettyOpts := diagfmt.PrettyOpts{
		Color:     flags.color,
		Context:   int8(flags.context),
		ShowNotes: flags.withNotes,
	}
	for _, r := range results {
		if r == nil || r.Bag.Len() == 0 {
			continue
		}
		if !flags.quiet {
			fmt.Fprintf(out, "%s:\n", filepath.Base(r.Path))
		}
		if err := diagfmt.Pretty(out, r.Bag, r.Files, prettyOpts); err != nil {
			return err
		}
	}
	return nil
}

func writeJSONReport(out io.Writer, results []*driver.UnitResult, flags analyseFlags) error {
	// Spans are per-unit, so each unit renders against its own file set
	// before the lists merge.
	var combined diagfmt.DiagnosticsOutput
	jsonOpts := diagfmt.JSONOpts{
		IncludePositions: true,
		IncludeNotes:     flags.withNotes,
	}
	for _, r := range results {
		if r == nil {
			continue
		}
		part := diagfmt.BuildOutput(r.Bag, r.Files, jsonOpts)
		combined.Diagnostics = append(combined.Diagnostics, part.Diagnostics...)
		combined.Count += part.Count
	}
	if combined.Diagnostics == nil {
		combined.Diagnostics = []diagfmt.DiagnosticJSON{}
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(combined)
}
