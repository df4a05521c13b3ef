// ABOUTME: Coalescer debounces transcript writes so streaming cadence never hits storage 1:1
// ABOUTME: Keeps only the latest full transcript per chat between flushes
package transcript

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/infinitecontext/infinitectx/internal/models"
)

// WriteFunc persists one full transcript.
type WriteFunc func(models.Transcript) error

// Coalescer queues whole-transcript writes and flushes them after a
// quiet interval. Rapid successive saves of the same chat collapse to
// one storage write carrying the latest state.
type Coalescer struct {
	mu       sync.Mutex
	interval time.Duration
	write    WriteFunc
	pending  map[string]models.Transcript
	timer    *time.Timer
	closed   bool
}

// NewCoalescer builds a coalescer around a write function. A zero
// interval disables debouncing; every queue becomes a direct write.
func NewCoalescer(interval time.Duration, write WriteFunc) *Coalescer {
	return &Coalescer{
		interval: interval,
		write:    write,
		pending:  make(map[string]models.Transcript),
	}
}

// Queue records the latest transcript state for its chat and arms the
// flush timer. Later states for the same chat replace earlier ones.
func (c *Coalescer) Queue(t models.Transcript) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return fmt.Errorf("coalescer is closed")
	}

	if c.interval <= 0 {
		c.mu.Unlock()
		return c.write(t)
	}

	c.pending[t.ChatID] = t
	if c.timer == nil {
		c.timer = time.AfterFunc(c.interval, func() { _ = c.Flush() })
	} else {
		c.timer.Reset(c.interval)
	}
	c.mu.Unlock()
	return nil
}

// Flush writes every pending transcript immediately.
func (c *Coalescer) Flush() error {
	c.mu.Lock()
	batch := c.pending
	c.pending = make(map[string]models.Transcript)
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.mu.Unlock()

	var errs []string
	for _, t := range batch {
		if err := c.write(t); err != nil {
			errs = append(errs, fmt.Sprintf("chat %s: %v", t.ChatID, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("flushing transcripts: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Peek returns the queued, not-yet-flushed state for a chat. Readers
// must check here before storage or they see stale state for the whole
// debounce interval.
func (c *Coalescer) Peek(chatID string) (models.Transcript, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.pending[chatID]
	return t, ok
}

// Pending returns how many chats have unflushed writes.
func (c *Coalescer) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Close flushes outstanding writes and rejects further queues.
func (c *Coalescer) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()
	return c.Flush()
}
