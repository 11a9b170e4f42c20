// Package spinner draws a single-line terminal spinner.
package spinner

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-runewidth"
)

var frames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Interval between frames.
const Interval = 80 * time.Millisecond

// Start displays an animated spinner with the given message on w.
// Call the returned function to stop the spinner and clear the line.
func Start(w io.Writer, message string) (stop func()) {
	return Follow(w, func() string { return message })
}

// Follow is Start with a message that is re-read on every frame, so the
// line can track live progress.
func Follow(w io.Writer, message func() string) (stop func()) {
	done := make(chan struct{})
	cleared := make(chan struct{})
	var stopOnce sync.Once
	go func() {
		i := 0
		widest := 0
		for {
			select {
			case <-done:
				fmt.Fprintf(w, "\r%s\r", strings.Repeat(" ", widest+2)) //nolint:errcheck
				close(cleared)
				return
			case <-time.After(Interval):
				msg := message()
				width := runewidth.StringWidth(msg)
				pad := ""
				if width < widest {
					// overwrite the tail of a longer previous message
					pad = strings.Repeat(" ", widest-width)
				} else {
					widest = width
				}
				fmt.Fprintf(w, "\r%s %s%s", frames[i%len(frames)], msg, pad) //nolint:errcheck
				i++
			}
		}
	}()
	return func() {
		stopOnce.Do(func() {
			close(done)
		})
		<-cleared
	}
}
