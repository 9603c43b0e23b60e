// Package progress provides a terminal activity indicator scoped to a
// single blocking call: Start returns a stop function the caller releases
// on every exit path, so no global animation state can leak.
package progress

import (
	"fmt"
	"io"
	"sync"
	"time"
)

var frames = []rune("⠋⠙⠚⠞⠖⠦⠴⠲⠳⠓")

const frameInterval = 80 * time.Millisecond

// Spinner animates on the given writer while a blocking call is in
// flight. A nil *Spinner is valid and does nothing, so call sites never
// need to branch on whether the indicator is enabled.
type Spinner struct {
	w io.Writer
}

func New(w io.Writer) *Spinner {
	return &Spinner{w: w}
}

// Start begins the animation and returns the function that stops it and
// clears the line. The indicator is owned by the calling goroutine: one
// Start/stop pair must be in flight at a time, which the pull-based
// fetch loop guarantees. The stop function is idempotent.
func (s *Spinner) Start() (stop func()) {
	if s == nil {
		return func() {}
	}

	done := make(chan struct{})
	finished := make(chan struct{})

	go func() {
		defer close(finished)
		ticker := time.NewTicker(frameInterval)
		defer ticker.Stop()
		i := 0
		for {
			select {
			case <-done:
				fmt.Fprint(s.w, "\r \r")
				return
			case <-ticker.C:
				fmt.Fprintf(s.w, "\r%c ", frames[i%len(frames)])
				i++
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(done)
			<-finished
		})
	}
}
