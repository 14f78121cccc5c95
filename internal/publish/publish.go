// Package publish defines the contract shared by remote alert publishers
// and the JSON payload they send.
package publish

import (
	"context"
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oshokin/posture-alarm/internal/domain/posture"
	"github.com/oshokin/posture-alarm/internal/logger"
	"github.com/oshokin/posture-alarm/internal/service/common"
	"github.com/oshokin/posture-alarm/internal/wire"
)

// Publisher delivers alerts to a remote system.
type Publisher interface {
	// Name identifies the publisher in logs.
	Name() string
	// Publish sends one alert.
	Publish(ctx context.Context, alert *posture.Alert) error
	// Close releases connections.
	Close() error
}

// Fields returns the alert fields tagged with the host, if known.
func Fields(alert *posture.Alert, host *common.Host) map[string]any {
	fields := wire.AlertMap(alert)

	if host != nil {
		fields["hostname"] = host.Hostname
		fields["username"] = host.Username
	}

	return fields
}

// Payload renders the alert as a JSON object.
func Payload(alert *posture.Alert, host *common.Host) ([]byte, error) {
	msg, err := structpb.NewStruct(Fields(alert, host))
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}

	data, err := protojson.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	return data, nil
}

// Sink adapts a publisher for the sampling loop; failures are logged and
// never interrupt the loop.
func Sink(p Publisher) func(ctx context.Context, alert *posture.Alert) {
	return func(ctx context.Context, alert *posture.Alert) {
		if err := p.Publish(ctx, alert); err != nil {
			logger.WarnKV(ctx, "Failed to publish alert", "publisher", p.Name(), "alert_id", alert.ID, "error", err)

			return
		}

		logger.DebugKV(ctx, "Alert published", "publisher", p.Name(), "alert_id", alert.ID)
	}
}
