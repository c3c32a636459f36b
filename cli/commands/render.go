package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// partialRenderer redraws the latest partial object on a single terminal
// line. On other writers it prints nothing; the final value is written by
// the caller.
type partialRenderer struct {
	w     io.Writer
	live  bool
	width int
	drawn bool
}

func newPartialRenderer(w io.Writer, live bool) *partialRenderer {
	r := &partialRenderer{w: w, live: live, width: 80}
	if f, ok := w.(*os.File); ok && live {
		if cols, _, err := term.GetSize(int(f.Fd())); err == nil && cols > 0 {
			r.width = cols
		}
	}
	return r
}

func (r *partialRenderer) render(v any) error {
	if !r.live {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	line := string(b)
	if limit := r.width - 1; limit > 3 && len(line) > limit {
		line = "..." + line[len(line)-(limit-3):]
	}
	// Carriage return and erase to end of line.
	_, err = fmt.Fprintf(r.w, "\r\x1b[K%s", line)
	r.drawn = true
	return err
}

func (r *partialRenderer) finish() {
	if r.drawn {
		fmt.Fprint(r.w, "\r\x1b[K")
	}
}
