// Package display defines the output sink segments render into, plus the
// text helpers every renderer shares.
package display

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/mattn/go-runewidth"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Sink receives rendered lines.
type Sink interface {
	Print(text string)
	PrintHeader(text string, border rune)
	Newline()
}

// UpdateNotifier is implemented by sinks that can show a transient
// "refreshing" message before a slow fetch.
type UpdateNotifier interface {
	PrintUpdateMsg(text string)
}

// NotifyUpdate prints text through s when it supports update messages.
func NotifyUpdate(s Sink, text string) {
	if n, ok := s.(UpdateNotifier); ok {
		n.PrintUpdateMsg(text)
	}
}

// Format is the per-segment presentation config.
type Format struct {
	// ForecastPeriods is the maximum number of forecast periods shown.
	ForecastPeriods int
}

// DefaultForecastPeriods applies when a segment has no forecast_periods setting.
const DefaultForecastPeriods = 5

// PeriodsToShow clamps the configured count to [0, available].
func (f Format) PeriodsToShow(available int) int {
	n := f.ForecastPeriods
	if n < 0 {
		n = 0
	}
	if n > available {
		n = available
	}
	return n
}

// Terminal writes lines to an io.Writer, centering headers within Width columns.
type Terminal struct {
	mu    sync.Mutex
	w     io.Writer
	width int
}

// NewTerminal creates a Terminal. Widths below 20 are raised to 20.
func NewTerminal(w io.Writer, width int) *Terminal {
	if width < 20 {
		width = 20
	}
	return &Terminal{w: w, width: width}
}

// Print writes one line, truncated to the terminal width.
func (t *Terminal) Print(text string) {
	t.writeLine(runewidth.Truncate(text, t.width, ""))
}

// PrintHeader writes text centered in a line of border runes.
func (t *Terminal) PrintHeader(text string, border rune) {
	t.writeLine(Header(text, border, t.width))
}

// Newline writes an empty line.
func (t *Terminal) Newline() {
	t.writeLine("")
}

// PrintUpdateMsg writes an update notice in brackets.
func (t *Terminal) PrintUpdateMsg(text string) {
	t.writeLine(fmt.Sprintf("[ %s ]", text))
}

func (t *Terminal) writeLine(s string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, _ = io.WriteString(t.w, s+"\n")
}

// Header centers " text " in a line of width columns filled with border.
// Text wider than the line is returned padded with single spaces only.
func Header(text string, border rune, width int) string {
	label := " " + text + " "
	lw := runewidth.StringWidth(label)
	bw := runewidth.RuneWidth(border)
	if bw < 1 {
		bw = 1
	}
	if lw >= width {
		return label
	}
	left := (width - lw) / 2 / bw
	right := (width - lw - left*bw) / bw
	return strings.Repeat(string(border), left) + label + strings.Repeat(string(border), right)
}

var cleaner = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// CleanChars strips diacritics, turns non-breaking and other unicode spaces
// into plain spaces, collapses runs of whitespace and trims the result.
func CleanChars(s string) string {
	out, _, err := transform.String(cleaner, s)
	if err != nil {
		out = s
	}
	out = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return ' '
		}
		switch r {
		case '‘', '’':
			return '\''
		case '“', '”':
			return '"'
		case '–', '—':
			return '-'
		}
		return r
	}, out)
	return strings.Join(strings.Fields(out), " ")
}

// FormatTimeText renders a time as "3:04 PM".
func FormatTimeText(t time.Time) string {
	return t.Format("3:04 PM")
}
