package project

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"ember/internal/diag"
	"ember/internal/source"
)

// Rules carries per-code severity overrides loaded from rules.yaml.
// Errors can be softened to warnings for staged adoption, warnings
// hardened to errors, and individual codes suppressed outright.
type Rules struct {
	overrides map[diag.Code]diag.Severity
	suppress  map[diag.Code]bool
}

type rulesFile struct {
	Severity map[string]string `yaml:"severity"`
	Suppress []string          `yaml:"suppress"`
}

// LoadRules reads and parses a rules.yaml file.
func LoadRules(path string) (*Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseRules(data)
}

// ParseRules parses rules.yaml content.
func ParseRules(data []byte) (*Rules, error) {
	var f rulesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("rules: failed to parse YAML: %w", err)
	}
	r := &Rules{
		overrides: make(map[diag.Code]diag.Severity, len(f.Severity)),
		suppress:  make(map[diag.Code]bool, len(f.Suppress)),
	}
	for codeStr, sevStr := range f.Severity {
		code, err := parseCode(codeStr)
		if err != nil {
			return nil, err
		}
		sev, err := parseSeverity(sevStr)
		if err != nil {
			return nil, fmt.Errorf("rules: %s: %w", codeStr, err)
		}
		r.overrides[code] = sev
	}
	for _, codeStr := range f.Suppress {
		code, err := parseCode(codeStr)
		if err != nil {
			return nil, err
		}
		r.suppress[code] = true
	}
	return r, nil
}

func parseCode(s string) (diag.Code, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(s), "EMB")
	n, err := strconv.ParseUint(trimmed, 10, 16)
	if err != nil {
		return 0, fmt.Errorf("rules: invalid diagnostic code %q", s)
	}
	return diag.Code(n), nil
}

func parseSeverity(s string) (diag.Severity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "info":
		return diag.SevInfo, nil
	case "warn", "warning":
		return diag.SevWarning, nil
	case "error":
		return diag.SevError, nil
	}
	return 0, fmt.Errorf("unknown severity %q", s)
}

// Apply wraps a reporter so overrides take effect before diagnostics
// reach it.
func (r *Rules) Apply(next diag.Reporter) diag.Reporter {
	if r == nil || (len(r.overrides) == 0 && len(r.suppress) == 0) {
		return next
	}
	return ruleReporter{rules: r, next: next}
}

type ruleReporter struct {
	rules *Rules
	next  diag.Reporter
}

func (r ruleReporter) Report(code diag.Code, sev diag.Severity, primary source.Span, msg string, notes []diag.Note) {
	if r.rules.suppress[code] {
		return
	}
	if override, ok := r.rules.overrides[code]; ok {
		sev = override
	}
	r.next.Report(code, sev, primary, msg, notes)
}
