package chat

import (
	"fmt"
	"strings"

	"personahub/store"
)

// historyWindow is how many prior messages accompany a new turn.
const historyWindow = 10

// fileRefLine is rendered once per attached file so the model knows the id
// to pass to process_file.
const fileRefLine = "[File ID: %d - Use process_file tool to analyze this file]"

// renderContext builds the single textual context string the team receives.
// The team has no structured view of prior turns; everything it knows about
// the conversation is in this rendering.
//
// Shape: a "Previous conversation:" block of "{Role}: {content}" lines in
// chronological order (recent arrives newest first, as the store returns
// it), then the current message, then an "Attached Files:" block with one
// reference line per file.
func renderContext(recent []store.Message, current string, fileIDs []uint) string {
	var b strings.Builder

	var lines []string
	for i := len(recent) - 1; i >= 0; i-- {
		m := recent[i]
		switch m.Role {
		case "user":
			lines = append(lines, "User: "+m.Content)
		case "assistant":
			lines = append(lines, "Assistant: "+m.Content)
		}
	}

	if len(lines) > 0 {
		b.WriteString("Previous conversation:\n")
		b.WriteString(strings.Join(lines, "\n"))
		b.WriteString("\n\nCurrent message: ")
		b.WriteString(current)
	} else {
		b.WriteString(current)
	}

	if len(fileIDs) > 0 {
		b.WriteString("\n\nAttached Files:")
		for _, id := range fileIDs {
			b.WriteByte('\n')
			fmt.Fprintf(&b, fileRefLine, id)
		}
	}

	return b.String()
}
