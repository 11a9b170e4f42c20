package spinner

import (
	"bytes"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// syncBuffer guards a bytes.Buffer shared with the spinner goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestStart_WritesAndClears(t *testing.T) {
	var out syncBuffer
	stop := Start(&out, "grading")
	time.Sleep(3 * Interval)
	stop()

	s := out.String()
	assert.Contains(t, s, "grading")
	assert.True(t, strings.HasSuffix(s, "\r"), "line is cleared on stop")

	// stopping twice is safe
	stop()
}

func TestFollow_ReadsMessageEachFrame(t *testing.T) {
	var out syncBuffer
	var n atomic.Int32
	stop := Follow(&out, func() string {
		if n.Add(1) == 1 {
			return "student 1 of 2: Alice"
		}
		return "student 2 of 2: Bo"
	})
	time.Sleep(4 * Interval)
	stop()

	s := out.String()
	assert.Contains(t, s, "student 1 of 2: Alice")
	assert.Contains(t, s, "student 2 of 2: Bo   ")
}
