// Package notify shows desktop notifications by running OS commands.
package notify

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/oshokin/posture-alarm/internal/domain/posture"
	"github.com/oshokin/posture-alarm/internal/logger"
)

// Placeholders substituted in command arguments.
const (
	PlaceholderTitle   = "{title}"
	PlaceholderMessage = "{message}"
)

// ErrUnsupportedOS indicates no default command exists for the current OS.
var ErrUnsupportedOS = errors.New("unsupported operating system")

// Runner starts a command. It is exec.CommandContext(...).Start by default.
type Runner func(ctx context.Context, name string, args ...string) error

// Notifier runs a notification command for every alert.
type Notifier struct {
	command []string
	title   string
	message string
	run     Runner
}

// DefaultCommand returns the built-in notification command for goos:
// - Linux:   `notify-send {title} {message}`
// - macOS:   `osascript -e 'display notification ...'`
// - Windows: `msg * {title}: {message}`
func DefaultCommand(goos string) ([]string, error) {
	switch strings.ToLower(goos) {
	case "linux", "freebsd", "openbsd":
		return []string{"notify-send", "--app-name=posture-alarm", PlaceholderTitle, PlaceholderMessage}, nil
	case "darwin":
		script := fmt.Sprintf("display notification %q with title %q", PlaceholderMessage, PlaceholderTitle)

		return []string{"osascript", "-e", script}, nil
	case "windows":
		return []string{"msg.exe", "*", PlaceholderTitle + ": " + PlaceholderMessage}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedOS, goos)
	}
}

// New creates a notifier. An empty command selects the OS default.
// A nil runner starts the command without waiting for it.
func New(command []string, title, message string, run Runner) (*Notifier, error) {
	if len(command) == 0 {
		var err error

		command, err = DefaultCommand(runtime.GOOS)
		if err != nil {
			return nil, err
		}
	}

	if run == nil {
		run = start
	}

	return &Notifier{
		command: command,
		title:   title,
		message: message,
		run:     run,
	}, nil
}

// Notify runs the notification command for the alert.
func (n *Notifier) Notify(ctx context.Context, alert *posture.Alert) error {
	message := strings.ReplaceAll(n.message, "{streak}", alert.StreakDuration().Round(time.Second).String())
	replacer := strings.NewReplacer(PlaceholderTitle, n.title, PlaceholderMessage, message)

	args := make([]string, 0, len(n.command)-1)
	for _, arg := range n.command[1:] {
		args = append(args, replacer.Replace(arg))
	}

	if err := n.run(ctx, n.command[0], args...); err != nil {
		return fmt.Errorf("run %s: %w", n.command[0], err)
	}

	return nil
}

// Sink adapts Notify for the sampling loop; failures are logged.
func (n *Notifier) Sink(ctx context.Context, alert *posture.Alert) {
	if err := n.Notify(ctx, alert); err != nil {
		logger.WarnKV(ctx, "Failed to show notification", "alert_id", alert.ID, "error", err)
	}
}

// start launches the command asynchronously; the OS takes over the rest.
// The command is not bound to ctx so it outlives the tick that fired it.
func start(_ context.Context, name string, args ...string) error {
	cmd := exec.Command(name, args...) //nolint:gosec,noctx // Command comes from trusted configuration.
	if err := cmd.Start(); err != nil {
		return err
	}

	go func() {
		_ = cmd.Wait()
	}()

	return nil
}
