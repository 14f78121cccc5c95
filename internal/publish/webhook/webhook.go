// Package webhook posts alerts as JSON to an HTTP endpoint.
package webhook

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/oshokin/posture-alarm/internal/config"
	"github.com/oshokin/posture-alarm/internal/domain/posture"
	"github.com/oshokin/posture-alarm/internal/publish"
	"github.com/oshokin/posture-alarm/internal/service/common"
)

// errUnexpectedStatus is returned for non-2xx responses.
var errUnexpectedStatus = errors.New("unexpected webhook response")

// Publisher posts alerts.
type Publisher struct {
	client *resty.Client
	url    string
	host   *common.Host
}

// New creates a publisher for cfg.
func New(cfg *config.Webhook, timeout time.Duration, host *common.Host) *Publisher {
	client := resty.New().
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeaders(cfg.Headers)

	return &Publisher{
		client: client,
		url:    cfg.URL,
		host:   host,
	}
}

// Name implements publish.Publisher.
func (p *Publisher) Name() string {
	return "webhook"
}

// Publish implements publish.Publisher.
func (p *Publisher) Publish(ctx context.Context, alert *posture.Alert) error {
	data, err := publish.Payload(alert, p.host)
	if err != nil {
		return err
	}

	resp, err := p.client.R().
		SetContext(ctx).
		SetHeader("X-Alert-ID", alert.ID).
		SetBody(data).
		Post(p.url)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}

	if resp.IsError() {
		return fmt.Errorf("%w: %s", errUnexpectedStatus, resp.Status())
	}

	return nil
}

// Close implements publish.Publisher.
func (p *Publisher) Close() error {
	return nil
}
