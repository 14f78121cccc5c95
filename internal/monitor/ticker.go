package monitor

import (
	"context"
	"io"
	"sync"
	"time"
)

// Ticker is a TickSource backed by time.Ticker.
type Ticker struct {
	interval time.Duration
	ticker   *time.Ticker
	once     sync.Once
}

// NewTicker creates a ticker source. The underlying timer starts on the first Next.
func NewTicker(interval time.Duration) *Ticker {
	return &Ticker{interval: interval}
}

// Next implements TickSource.
func (t *Ticker) Next(ctx context.Context) (time.Time, error) {
	t.once.Do(func() {
		t.ticker = time.NewTicker(t.interval)
	})

	select {
	case <-ctx.Done():
		return time.Time{}, ctx.Err()
	case ts := <-t.ticker.C:
		return ts, nil
	}
}

// Stop releases the timer.
func (t *Ticker) Stop() {
	t.once.Do(func() {})

	if t.ticker != nil {
		t.ticker.Stop()
	}
}

// SimulatedClock is a TickSource that advances by a fixed step without waiting.
type SimulatedClock struct {
	mu    sync.Mutex
	now   time.Time
	step  time.Duration
	left  int
	first bool
}

// NewSimulatedClock returns ticks start, start+step, ... and io.EOF after count ticks.
// A negative count never runs out.
func NewSimulatedClock(start time.Time, step time.Duration, count int) *SimulatedClock {
	return &SimulatedClock{
		now:   start,
		step:  step,
		left:  count,
		first: true,
	}
}

// Next implements TickSource.
func (c *SimulatedClock) Next(ctx context.Context) (time.Time, error) {
	if err := ctx.Err(); err != nil {
		return time.Time{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.left == 0 {
		return time.Time{}, io.EOF
	}

	if c.left > 0 {
		c.left--
	}

	if c.first {
		c.first = false
	} else {
		c.now = c.now.Add(c.step)
	}

	return c.now, nil
}
