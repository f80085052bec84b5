package version

import "github.com/fatih/color"

// Version information for the emberc CLI.
// These variables can be overridden at build time via -ldflags.

var (
	versionMajorColor = color.New(color.FgYellow, color.Bold)
	versionMinorColor = color.New(color.FgGreen, color.Bold)
	versionPatchColor = color.New(color.FgBlue, color.Bold)

	// Version is the semantic version of the CLI.
	Version = versionMajorColor.Sprint("0") + "." + versionMinorColor.Sprint("1") + "." + versionPatchColor.Sprint("0") + "-dev"

	// GitCommit is an optional git commit hash.
	GitCommit = ""

	// BuildDate is an optional build date in ISO-8601.
	BuildDate = ""
)

// Line assembles the full version string for `emberc version`.
func Line() string {
	out := "emberc " + Version
	if GitCommit != "" {
		out += " (" + GitCommit + ")"
	}
	if BuildDate != "" {
		out += " built " + BuildDate
	}
	return out
}
