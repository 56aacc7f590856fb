package observability

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"
)

const (
	colorReset    = "\033[0m"
	colorNeonCyan = "\033[96m"
)

// termMu synchronizes all terminal output so prompts and log lines never
// interleave mid-line.
var termMu sync.Mutex

func termWidth() int {
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return 80
	}
	return w
}

// IsTerminal reports whether stdout is attached to a terminal.
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// ------------------------------------------------------------
// TermWriter – a mutex-guarded io.Writer for log output.
// ------------------------------------------------------------

type termWriter struct{}

func (tw termWriter) Write(p []byte) (n int, err error) {
	termMu.Lock()
	defer termMu.Unlock()
	return os.Stderr.Write(p)
}

// NewTermWriter returns an io.Writer suitable for log.SetOutput().
func NewTermWriter() *termWriter {
	return &termWriter{}
}

// LockTerminal holds the terminal lock while fn writes.
func LockTerminal(fn func()) {
	termMu.Lock()
	defer termMu.Unlock()
	fn()
}

// ------------------------------------------------------------
// Banner
// ------------------------------------------------------------

const banner = `
   _____ ______ ____ ______
  / ___// ____//  _// ____/
  \__ \/ __/   / / / /_
 ___/ / /___ _/ / / __/
/____/_____//___//_/

  >> NATURAL-LANGUAGE BROWSER ACTUATOR <<
`

// PrintBanner writes the centred banner. Colour is only used on a terminal.
func PrintBanner(w io.Writer) {
	width := termWidth()
	color := IsTerminal()

	LockTerminal(func() {
		for _, l := range strings.Split(banner, "\n") {
			padding := (width - len(l)) / 2
			if padding < 0 {
				padding = 0
			}
			if color {
				fmt.Fprintf(w, "%s%s%s\n", strings.Repeat(" ", padding), colorNeonCyan+l, colorReset)
			} else {
				fmt.Fprintf(w, "%s%s\n", strings.Repeat(" ", padding), l)
			}
		}
	})
}
