package testhelpers

import (
	"fmt"
	"strings"
)

// RecordingSink captures display calls as lines. Headers are recorded as
// "[<border>] text", update messages as "[update] text", newlines as "".
type RecordingSink struct {
	Lines []string
}

// Print implements display.Sink.
func (r *RecordingSink) Print(text string) {
	r.Lines = append(r.Lines, text)
}

// PrintHeader implements display.Sink.
func (r *RecordingSink) PrintHeader(text string, border rune) {
	r.Lines = append(r.Lines, fmt.Sprintf("[%c] %s", border, text))
}

// Newline implements display.Sink.
func (r *RecordingSink) Newline() {
	r.Lines = append(r.Lines, "")
}

// PrintUpdateMsg implements display.UpdateNotifier.
func (r *RecordingSink) PrintUpdateMsg(text string) {
	r.Lines = append(r.Lines, "[update] "+text)
}

// String joins the captured lines with newlines.
func (r *RecordingSink) String() string {
	return strings.Join(r.Lines, "\n")
}

// Contains reports whether any captured line contains substr.
func (r *RecordingSink) Contains(substr string) bool {
	for _, l := range r.Lines {
		if strings.Contains(l, substr) {
			return true
		}
	}
	return false
}
