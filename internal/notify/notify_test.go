package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/vitalog-lab/vitalog/internal/core/record"
)

func sampleSnapshot() record.Snapshot {
	return record.Snapshot{
		UserID:     7,
		Date:       time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
		RecordID:   101,
		Weight:     decimal.NewFromFloat(72.4),
		MuscleMass: decimal.NewFromFloat(33.1),
		BodyFat:    decimal.NewFromFloat(18.2),
		Height:     decimal.NewFromFloat(178),
	}
}

func TestHTTPNotifier_PostsEvent(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	n := NewHTTPNotifier(srv.URL, time.Second)
	err := n.MeasurementRegistered(context.Background(), sampleSnapshot())
	require.NoError(t, err)
	require.Equal(t, float64(7), got["user_id"])
	require.Equal(t, "2026-03-10", got["measurement_date"])
	require.Equal(t, "72.4", got["weight"])
}

func TestHTTPNotifier_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	n := NewHTTPNotifier(srv.URL, time.Second)
	err := n.MeasurementRegistered(context.Background(), sampleSnapshot())
	require.Error(t, err)
	require.ErrorContains(t, err, "status 502")
}

func TestNoopNotifier(t *testing.T) {
	require.NoError(t, NoopNotifier{}.MeasurementRegistered(context.Background(), sampleSnapshot()))
}
