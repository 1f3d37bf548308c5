package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vitalog-lab/vitalog/internal/observability"
)

// ErrExtractTimeout is returned when the extraction backend does not answer
// within the configured deadline. Handlers map it to a request-timeout status
// so clients can retry or fall back to manual entry.
var ErrExtractTimeout = errors.New("measurement extraction timed out")

// Extraction holds the metric values recognized on a body composition sheet.
// Fields the backend could not read come back as null, never zero, so the
// client can prompt for exactly the missing values.
type Extraction struct {
	MeasurementDate string              `json:"measurement_date,omitempty"`
	Weight          decimal.NullDecimal `json:"weight"`
	MuscleMass      decimal.NullDecimal `json:"muscle_mass"`
	BodyFat         decimal.NullDecimal `json:"body_fat"`
	Height          decimal.NullDecimal `json:"height"`
}

// Gateway is the extraction backend boundary.
type Gateway interface {
	Extract(ctx context.Context, filename string, image []byte) (*Extraction, error)
}

// HTTPGateway posts sheet images to a remote extraction endpoint as
// multipart/form-data and decodes the recognized metrics.
type HTTPGateway struct {
	endpoint string
	client   *http.Client
}

// NewHTTPGateway creates a gateway for the given endpoint. The client carries
// no timeout of its own; the service layer owns the deadline.
func NewHTTPGateway(endpoint string) *HTTPGateway {
	return &HTTPGateway{
		endpoint: endpoint,
		client:   &http.Client{},
	}
}

func (g *HTTPGateway) Extract(ctx context.Context, filename string, image []byte) (*Extraction, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("image", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to build multipart form: %w", err)
	}
	if _, err := part.Write(image); err != nil {
		return nil, fmt.Errorf("failed to write image part: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize multipart form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, &body)
	if err != nil {
		return nil, fmt.Errorf("failed to build extraction request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("extraction request failed: %w", err)
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("extraction endpoint returned status %d", resp.StatusCode)
	}

	var out Extraction
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode extraction response: %w", err)
	}
	return &out, nil
}

// Service runs extractions against a gateway under a hard deadline.
type Service struct {
	gateway  Gateway
	deadline time.Duration
}

// NewService creates an extraction service. A non-positive deadline falls
// back to 30 seconds.
func NewService(gateway Gateway, deadline time.Duration) *Service {
	if deadline <= 0 {
		deadline = 30 * time.Second
	}
	return &Service{gateway: gateway, deadline: deadline}
}

// Extract recognizes metrics from a sheet image. The gateway call is bounded
// by the service deadline; a slow backend yields ErrExtractTimeout while the
// abandoned call winds down in the background via context cancellation.
func (s *Service) Extract(ctx context.Context, filename string, image []byte) (*Extraction, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.deadline)
	defer cancel()

	type result struct {
		extraction *Extraction
		err        error
	}
	resultCh := make(chan result, 1)

	go func() {
		extraction, err := s.gateway.Extract(callCtx, filename, image)
		resultCh <- result{extraction, err}
	}()

	select {
	case r := <-resultCh:
		if r.err != nil {
			if errors.Is(r.err, context.DeadlineExceeded) {
				observability.RecordExtractTimeout()
				return nil, ErrExtractTimeout
			}
			return nil, r.err
		}
		return r.extraction, nil
	case <-callCtx.Done():
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			observability.RecordExtractTimeout()
			slog.Warn("[OCR] Extraction deadline exceeded",
				"deadline", s.deadline,
				"filename", filename)
			return nil, ErrExtractTimeout
		}
		return nil, callCtx.Err()
	}
}
