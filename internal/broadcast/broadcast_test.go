package broadcast

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/posture-alarm/internal/domain/posture"
)

// TestHub_FanOut delivers independent copies to every subscriber.
func TestHub_FanOut(t *testing.T) {
	t.Parallel()

	h := New(0)
	a, b := h.Subscribe(), h.Subscribe()
	require.Equal(t, 2, h.Len())

	alert := &posture.Alert{ID: "x", Timestamp: time.Unix(10, 0)}
	h.Publish(alert)

	gotA, gotB := <-a.C(), <-b.C()
	require.Equal(t, alert, gotA)
	require.Equal(t, alert, gotB)
	require.NotSame(t, gotA, gotB)
	require.NotSame(t, alert, gotA)
}

// TestHub_SlowSubscriberDrops never blocks the publisher.
func TestHub_SlowSubscriberDrops(t *testing.T) {
	t.Parallel()

	h := New(1)
	sub := h.Subscribe()

	h.Publish(&posture.Alert{ID: "1"})
	h.Publish(&posture.Alert{ID: "2"})
	h.Publish(&posture.Alert{ID: "3"})

	require.Equal(t, uint64(2), sub.Dropped())
	require.Equal(t, "1", (<-sub.C()).ID)
}

// TestHub_UnsubscribeAndClose closes channels exactly once.
func TestHub_UnsubscribeAndClose(t *testing.T) {
	t.Parallel()

	h := New(1)
	a, b := h.Subscribe(), h.Subscribe()

	a.Unsubscribe()
	a.Unsubscribe()
	require.Equal(t, 1, h.Len())

	_, ok := <-a.C()
	require.False(t, ok)

	h.Close()
	b.Unsubscribe()

	_, ok = <-b.C()
	require.False(t, ok)

	late := h.Subscribe()
	_, ok = <-late.C()
	require.False(t, ok)

	h.Publish(&posture.Alert{ID: "ignored"})
	require.Zero(t, h.Len())
}
