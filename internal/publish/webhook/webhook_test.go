package webhook

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/posture-alarm/internal/config"
	"github.com/oshokin/posture-alarm/internal/domain/posture"
)

// TestPublisher_Publish posts the alert with configured headers.
func TestPublisher_Publish(t *testing.T) {
	t.Parallel()

	type request struct {
		token   string
		alertID string
		body    map[string]any
	}

	received := make(chan request, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)

		var body map[string]any
		_ = json.Unmarshal(data, &body)

		received <- request{
			token:   r.Header.Get("Authorization"),
			alertID: r.Header.Get("X-Alert-ID"),
			body:    body,
		}

		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	p := New(&config.Webhook{
		URL:     srv.URL,
		Headers: map[string]string{"Authorization": "Bearer secret"},
	}, time.Second, nil)
	require.Equal(t, "webhook", p.Name())

	require.NoError(t, p.Publish(context.Background(), &posture.Alert{ID: "a-1", Strategy: "neck-nose"}))

	got := <-received
	require.Equal(t, "Bearer secret", got.token)
	require.Equal(t, "a-1", got.alertID)
	require.Equal(t, "neck-nose", got.body["strategy"])
	require.NoError(t, p.Close())
}

// TestPublisher_ErrorStatus surfaces non-2xx responses.
func TestPublisher_ErrorStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	p := New(&config.Webhook{URL: srv.URL}, time.Second, nil)
	require.ErrorIs(t, p.Publish(context.Background(), &posture.Alert{ID: "x"}), errUnexpectedStatus)
}
