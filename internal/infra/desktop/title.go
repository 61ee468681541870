// Package desktop provides the local presentation surfaces of the monitor:
// the terminal title, OS notifications and the notification chime.
package desktop

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"
)

// TerminalTitle is a title surface backed by the xterm OSC 0 escape sequence.
// It remembers the last title so readers never have to query the terminal.
type TerminalTitle struct {
	mu      sync.Mutex
	w       io.Writer
	title   string
	enabled bool
}

// NewTerminalTitle creates a title surface writing to w, or to stderr when w
// is nil. Escape sequences are only emitted when stderr is a terminal; an
// explicit writer is always written to.
func NewTerminalTitle(w io.Writer, initial string) *TerminalTitle {
	enabled := true
	if w == nil {
		w = os.Stderr
		enabled = term.IsTerminal(int(os.Stderr.Fd()))
	}
	return &TerminalTitle{w: w, title: initial, enabled: enabled}
}

// Title returns the last title set.
func (t *TerminalTitle) Title() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.title
}

// SetTitle records title and writes it to the terminal.
func (t *TerminalTitle) SetTitle(title string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.title = title
	if !t.enabled {
		return
	}
	// Write errors are ignored: a closed terminal must not break polling.
	_, _ = fmt.Fprintf(t.w, "\x1b]0;%s\x07", sanitizeTitle(title))
}

// sanitizeTitle drops control characters that would terminate the sequence early.
func sanitizeTitle(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, s)
}
