package ocr

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// fakeGateway answers after an optional delay.
type fakeGateway struct {
	delay      time.Duration
	extraction *Extraction
	err        error
}

func (f *fakeGateway) Extract(ctx context.Context, _ string, _ []byte) (*Extraction, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.extraction, f.err
}

func TestService_Extract(t *testing.T) {
	want := &Extraction{
		MeasurementDate: "2026-03-10",
		Weight:          decimal.NewNullDecimal(decimal.NewFromFloat(72.4)),
	}
	svc := NewService(&fakeGateway{extraction: want}, time.Second)

	got, err := svc.Extract(context.Background(), "sheet.jpg", []byte("img"))
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestService_ExtractTimesOut(t *testing.T) {
	svc := NewService(&fakeGateway{delay: time.Second}, 20*time.Millisecond)

	start := time.Now()
	_, err := svc.Extract(context.Background(), "sheet.jpg", []byte("img"))
	require.ErrorIs(t, err, ErrExtractTimeout)
	require.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestService_ExtractCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	svc := NewService(&fakeGateway{delay: time.Second}, time.Second)
	_, err := svc.Extract(ctx, "sheet.jpg", []byte("img"))
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrExtractTimeout)
}

func TestHTTPGateway_Extract(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		file, header, err := r.FormFile("image")
		require.NoError(t, err)
		defer file.Close()
		require.Equal(t, "sheet.jpg", header.Filename)

		json.NewEncoder(w).Encode(Extraction{
			MeasurementDate: "2026-03-10",
			Weight:          decimal.NewNullDecimal(decimal.NewFromFloat(72.4)),
			BodyFat:         decimal.NewNullDecimal(decimal.NewFromFloat(18.2)),
		})
	}))
	defer srv.Close()

	g := NewHTTPGateway(srv.URL)
	got, err := g.Extract(context.Background(), "sheet.jpg", []byte("img"))
	require.NoError(t, err)
	require.Equal(t, "2026-03-10", got.MeasurementDate)
	require.True(t, got.Weight.Valid)
	require.False(t, got.MuscleMass.Valid)
}

func TestHTTPGateway_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	g := NewHTTPGateway(srv.URL)
	_, err := g.Extract(context.Background(), "sheet.jpg", []byte("img"))
	require.Error(t, err)
	require.ErrorContains(t, err, "status 500")
}
