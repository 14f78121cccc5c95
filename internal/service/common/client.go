//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	api "github.com/oshokin/posture-alarm/internal/api/grpc/posture"
	"github.com/oshokin/posture-alarm/internal/config"
	"github.com/oshokin/posture-alarm/internal/domain/posture"
	"github.com/oshokin/posture-alarm/internal/wire"
)

// Client wraps a connection to the PostureMonitor gRPC service.
type Client struct {
	// conn is the underlying gRPC connection to the monitor.
	conn grpc.ClientConnInterface
	// closer releases conn.
	closer io.Closer

	// callTimeout is the default timeout for unary calls.
	callTimeout time.Duration
}

// Option configures client behaviour.
type Option func(*Client)

// WithCallTimeout sets a default timeout for unary calls.
func WithCallTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.callTimeout = timeout
		}
	}
}

// AlertHandler is called for every streamed alert; an error stops the stream.
type AlertHandler func(alert *posture.Alert) error

// errAddressRequired is returned when a required address value is missing.
var errAddressRequired = errors.New("address must be provided")

// Dial creates a client for the monitor at address.
// Note: this uses insecure transport credentials; the monitor is expected
// to listen on loopback.
func Dial(_ context.Context, address string, opts ...Option) (*Client, error) {
	if address == "" {
		return nil, errAddressRequired
	}

	conn, err := grpc.NewClient(address, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("dial posture monitor: %w", err)
	}

	return NewClient(conn, conn, opts...), nil
}

// NewClient wraps an existing connection. closer may be nil.
func NewClient(conn grpc.ClientConnInterface, closer io.Closer, opts ...Option) *Client {
	client := &Client{
		conn:        conn,
		closer:      closer,
		callTimeout: config.DefaultTimeout,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// Close releases the underlying gRPC connection.
func (c *Client) Close() error {
	if c == nil || c.closer == nil {
		return nil
	}

	return c.closer.Close()
}

// GetStatus retrieves the monitor session counters.
func (c *Client) GetStatus(ctx context.Context) (*wire.Status, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	out := new(structpb.Struct)
	if err := c.conn.Invoke(callCtx, api.GetStatusMethod, new(emptypb.Empty), out); err != nil {
		return nil, fmt.Errorf("get status: %w", err)
	}

	status, err := wire.StatusFromStruct(out)
	if err != nil {
		return nil, fmt.Errorf("decode status: %w", err)
	}

	return status, nil
}

// WatchAlerts streams alerts to handler until ctx is cancelled, the monitor
// closes the stream (nil error) or handler fails.
func (c *Client) WatchAlerts(ctx context.Context, handler AlertHandler) error {
	stream, err := c.conn.NewStream(ctx, &api.ServiceDesc.Streams[0], api.WatchAlertsMethod)
	if err != nil {
		return fmt.Errorf("open alert stream: %w", err)
	}

	if err = stream.SendMsg(new(emptypb.Empty)); err != nil {
		return fmt.Errorf("send watch request: %w", err)
	}

	if err = stream.CloseSend(); err != nil {
		return fmt.Errorf("close watch request: %w", err)
	}

	for {
		var (
			msg   = new(structpb.Struct)
			alert *posture.Alert
		)

		if err = stream.RecvMsg(msg); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}

			return fmt.Errorf("receive alert: %w", err)
		}

		alert, err = wire.AlertFromStruct(msg)
		if err != nil {
			return fmt.Errorf("decode alert: %w", err)
		}

		if err = handler(alert); err != nil {
			return err
		}
	}
}

// callContext returns a context with the client's call timeout if configured,
// otherwise a cancellable child context without a deadline.
func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, c.callTimeout)
}
