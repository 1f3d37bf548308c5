package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/vitalog-lab/vitalog/internal/core/record"
)

// Notifier announces that a user registered a new body measurement. The
// announcement is best-effort: callers log failures and carry on, the write
// path never depends on the collaborator being up.
type Notifier interface {
	MeasurementRegistered(ctx context.Context, snap record.Snapshot) error
}

// event is the wire payload sent to the notification endpoint.
type event struct {
	UserID          int64  `json:"user_id"`
	RecordID        int64  `json:"record_id"`
	MeasurementDate string `json:"measurement_date"`
	Weight          string `json:"weight"`
	MuscleMass      string `json:"muscle_mass"`
	BodyFat         string `json:"body_fat"`
	Height          string `json:"height"`
}

// HTTPNotifier posts measurement events to a remote endpoint.
type HTTPNotifier struct {
	endpoint string
	client   *http.Client
}

// NewHTTPNotifier creates a notifier posting to endpoint with the given
// request timeout.
func NewHTTPNotifier(endpoint string, timeout time.Duration) *HTTPNotifier {
	return &HTTPNotifier{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

func (n *HTTPNotifier) MeasurementRegistered(ctx context.Context, snap record.Snapshot) error {
	payload, err := json.Marshal(event{
		UserID:          snap.UserID,
		RecordID:        snap.RecordID,
		MeasurementDate: snap.Date.Format("2006-01-02"),
		Weight:          snap.Weight.String(),
		MuscleMass:      snap.MuscleMass.String(),
		BodyFat:         snap.BodyFat.String(),
		Height:          snap.Height.String(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("notification request failed: %w", err)
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("notification endpoint returned status %d", resp.StatusCode)
	}

	slog.Debug("[Notify] Measurement event delivered",
		"user_id", snap.UserID,
		"record_id", snap.RecordID)
	return nil
}

// NoopNotifier drops all events. Used when no endpoint is configured.
type NoopNotifier struct{}

func (NoopNotifier) MeasurementRegistered(context.Context, record.Snapshot) error {
	return nil
}
