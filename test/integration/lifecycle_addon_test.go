//go:build integration

package integration

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	v1 "github.com/vitalog-lab/vitalog/internal/api/v1"
)

func TestExerciseAPI_E2ELifecycle(t *testing.T) {
	h := startHarness(t)
	defer h.close(t)

	require.NoError(t, resetDatabase(t, h.db))

	occurredAt := time.Now().UTC().Truncate(time.Second)
	var created v1.ExerciseResponse
	var importRef string

	t.Run("catalog is seeded", func(t *testing.T) {
		status, body := getJSON(t, h.client, h.baseURL+"/v1/exercises/types")
		require.Equal(t, http.StatusOK, status, string(body))

		var types []v1.ExerciseTypeResponse
		require.NoError(t, json.Unmarshal(body, &types))
		require.NotEmpty(t, types)
	})

	t.Run("record session with derived calories", func(t *testing.T) {
		status, body := postJSON(t, h.client, h.baseURL+"/v1/exercises", v1.ExerciseCreateRequest{
			TypeID:          1,
			OccurredAt:      occurredAt,
			DurationMinutes: 30,
		})
		require.Equal(t, http.StatusCreated, status, string(body))
		require.NoError(t, json.Unmarshal(body, &created))
		require.NotZero(t, created.ID)
		require.Positive(t, created.Calories)
	})

	t.Run("today's stats include the session", func(t *testing.T) {
		status, body := getJSON(t, h.client, h.baseURL+"/v1/exercises/stats/today")
		require.Equal(t, http.StatusOK, status, string(body))

		var resp v1.ExerciseStatsResponse
		require.NoError(t, json.Unmarshal(body, &resp))
		require.Len(t, resp.Buckets, 1)
		require.Equal(t, 1, resp.Buckets[0].Sessions)
		require.Equal(t, int64(created.Calories), resp.Buckets[0].Calories)
	})

	t.Run("bulk import dedups on re-send", func(t *testing.T) {
		importRef = uuid.NewString()
		batch := v1.ExerciseImportRequest{
			Sessions: []v1.ExerciseCreateRequest{
				{TypeID: 1, OccurredAt: occurredAt.AddDate(0, 0, -3), DurationMinutes: 20, ExternalRef: importRef},
			},
		}

		status, body := postJSON(t, h.client, h.baseURL+"/v1/exercises/import", batch)
		require.Equal(t, http.StatusOK, status, string(body))
		var first v1.ExerciseImportResponse
		require.NoError(t, json.Unmarshal(body, &first))
		require.Len(t, first.Imported, 1)
		require.Equal(t, 0, first.Dropped)

		status, body = postJSON(t, h.client, h.baseURL+"/v1/exercises/import", batch)
		require.Equal(t, http.StatusOK, status, string(body))
		var second v1.ExerciseImportResponse
		require.NoError(t, json.Unmarshal(body, &second))
		require.Empty(t, second.Imported)
		require.Equal(t, 1, second.Dropped)
	})

	t.Run("correction updates the session in place", func(t *testing.T) {
		status, body := doRequest(t, h.client, http.MethodPatch,
			fmt.Sprintf("%s/v1/exercises/%d", h.baseURL, created.ID),
			v1.ExerciseUpdateRequest{OccurredAt: occurredAt, DurationMinutes: 45})
		require.Equal(t, http.StatusOK, status, string(body))

		var updated v1.ExerciseResponse
		require.NoError(t, json.Unmarshal(body, &updated))
		require.Equal(t, created.ID, updated.ID)
		require.Equal(t, int32(45), updated.DurationMinutes)
		require.Greater(t, updated.Calories, created.Calories)
	})

	t.Run("favorites round trip", func(t *testing.T) {
		status, body := postJSON(t, h.client, h.baseURL+"/v1/exercises/favorites/1", nil)
		require.Equal(t, http.StatusNoContent, status, string(body))

		status, body = getJSON(t, h.client, h.baseURL+"/v1/exercises/favorites")
		require.Equal(t, http.StatusOK, status, string(body))
		var favs []v1.ExerciseTypeResponse
		require.NoError(t, json.Unmarshal(body, &favs))
		require.Len(t, favs, 1)

		status, body = doRequest(t, h.client, http.MethodDelete, h.baseURL+"/v1/exercises/favorites/1", nil)
		require.Equal(t, http.StatusNoContent, status, string(body))
	})

	t.Run("delete hides the session from stats", func(t *testing.T) {
		status, body := doRequest(t, h.client, http.MethodDelete,
			fmt.Sprintf("%s/v1/exercises/%d", h.baseURL, created.ID), nil)
		require.Equal(t, http.StatusNoContent, status, string(body))

		status, body = getJSON(t, h.client, h.baseURL+"/v1/exercises/stats/today")
		require.Equal(t, http.StatusOK, status, string(body))
		var resp v1.ExerciseStatsResponse
		require.NoError(t, json.Unmarshal(body, &resp))
		require.Equal(t, 0, resp.Buckets[0].Sessions)
	})
}
