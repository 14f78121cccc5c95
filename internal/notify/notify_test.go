package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/posture-alarm/internal/domain/posture"
)

var errTestExec = errors.New("executable not found")

// call is a captured command invocation.
type call struct {
	name string
	args []string
}

// TestDefaultCommand covers supported and unsupported platforms.
func TestDefaultCommand(t *testing.T) {
	t.Parallel()

	for _, goos := range []string{"linux", "darwin", "windows"} {
		cmd, err := DefaultCommand(goos)
		require.NoError(t, err, goos)
		require.NotEmpty(t, cmd, goos)
	}

	_, err := DefaultCommand("plan9")
	require.ErrorIs(t, err, ErrUnsupportedOS)
}

// TestNotify_SubstitutesPlaceholders verifies title, message and streak substitution.
func TestNotify_SubstitutesPlaceholders(t *testing.T) {
	t.Parallel()

	var got call

	n, err := New(
		[]string{"notify-send", PlaceholderTitle, PlaceholderMessage},
		"Posture",
		"Bad for {streak}",
		func(_ context.Context, name string, args ...string) error {
			got = call{name: name, args: args}

			return nil
		},
	)
	require.NoError(t, err)

	start := time.Unix(0, 0)
	alert := &posture.Alert{ID: "a", StreakStart: start, Timestamp: start.Add(20 * time.Second)}

	require.NoError(t, n.Notify(context.Background(), alert))
	require.Equal(t, "notify-send", got.name)
	require.Equal(t, []string{"Posture", "Bad for 20s"}, got.args)
}

// TestSink_LogsFailures never panics on runner errors.
func TestSink_LogsFailures(t *testing.T) {
	t.Parallel()

	calls := 0

	n, err := New([]string{"missing-binary"}, "t", "m", func(context.Context, string, ...string) error {
		calls++

		return errTestExec
	})
	require.NoError(t, err)

	require.ErrorIs(t, n.Notify(context.Background(), new(posture.Alert)), errTestExec)

	n.Sink(context.Background(), new(posture.Alert))
	require.Equal(t, 2, calls)
}
