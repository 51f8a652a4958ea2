// Package version carries the build identity stamped into the CLI and the
// MCP server handshake.
package version

// Version is the semantic version of this build. Commit and Date are
// overridden at release time via -ldflags.
const Version = "0.1.0"

var (
	Commit = "unknown"
	Date   = "development"
)

// Full renders "codesift <version> (<commit>, <date>)" for --version output.
func Full() string {
	return "codesift " + Version + " (" + Commit + ", " + Date + ")"
}
