package posture

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oshokin/posture-alarm/internal/broadcast"
	"github.com/oshokin/posture-alarm/internal/logger"
	"github.com/oshokin/posture-alarm/internal/monitor"
	"github.com/oshokin/posture-alarm/internal/wire"
)

// Service abstracts what the transport layer reads from the monitor.
type Service interface {
	Snapshot() monitor.Snapshot
}

// Server implements the PostureMonitor gRPC API.
type Server struct {
	// service provides the session counters.
	service Service
	// hub delivers fired alerts to watchers.
	hub *broadcast.Hub
}

// NewServer wires the session and alert hub into a gRPC handler.
func NewServer(service Service, hub *broadcast.Hub) *Server {
	return &Server{
		service: service,
		hub:     hub,
	}
}

// GetStatus returns the current session counters.
func (s *Server) GetStatus(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	snap := s.service.Snapshot()

	msg, err := wire.StatusToStruct(&snap, s.hub.Len())
	if err != nil {
		return nil, status.Error(codes.Internal, "unable to encode status")
	}

	return msg, nil
}

// WatchAlerts streams alerts until the client goes away or the monitor stops.
func (s *Server) WatchAlerts(_ *emptypb.Empty, stream grpc.ServerStream) error {
	ctx := logger.WithName(stream.Context(), "watch-alerts")

	sub := s.hub.Subscribe()
	defer sub.Unsubscribe()

	logger.Debug(ctx, "Alert watcher connected")

	for {
		select {
		case <-ctx.Done():
			logger.DebugKV(ctx, "Alert watcher disconnected", "dropped", sub.Dropped())
			return nil
		case alert, ok := <-sub.C():
			if !ok {
				return nil
			}

			msg, err := wire.AlertToStruct(alert)
			if err != nil {
				return status.Error(codes.Internal, "unable to encode alert")
			}

			if err = stream.SendMsg(msg); err != nil {
				return err
			}
		}
	}
}
