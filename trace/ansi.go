package trace

import "regexp"

// ansiPattern matches CSI escape sequences (colors, cursor movement) that
// model SDKs and downstream tools may embed in diagnostic text.
var ansiPattern = regexp.MustCompile(`\x1B\[[0-?]*[ -/]*[@-~]`)

// StripANSI removes ANSI escape sequences from s. Stripping an already
// stripped string returns it unchanged.
func StripANSI(s string) string {
	return ansiPattern.ReplaceAllString(s, "")
}
