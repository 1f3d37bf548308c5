package v1

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ExerciseCreateRequest is the payload for recording one exercise session.
// Calories may be omitted; the service derives them from the exercise type's
// per-minute cost. ExternalRef is the idempotency key stamped by external
// integrations (must be a UUID when present).
type ExerciseCreateRequest struct {
	TypeID          int64     `json:"type_id"`
	OccurredAt      time.Time `json:"occurred_at"`
	DurationMinutes int32     `json:"duration_minutes"`
	Calories        *int32    `json:"calories,omitempty"`
	ExternalRef     string    `json:"external_ref,omitempty"`
}

// Validate checks the envelope. A zero OccurredAt defaults to now upstream.
func (r *ExerciseCreateRequest) Validate() error {
	if r.TypeID <= 0 {
		return fmt.Errorf("type_id is required")
	}
	if r.DurationMinutes <= 0 {
		return fmt.Errorf("duration_minutes must be positive, got %d", r.DurationMinutes)
	}
	if r.Calories != nil && *r.Calories <= 0 {
		return fmt.Errorf("calories must be positive, got %d", *r.Calories)
	}
	if r.ExternalRef != "" {
		if _, err := uuid.Parse(r.ExternalRef); err != nil {
			return fmt.Errorf("invalid external_ref %q: %w", r.ExternalRef, err)
		}
	}
	return nil
}

// ExerciseUpdateRequest corrects a session in place. The exercise type is
// fixed at creation and cannot be changed by an update.
type ExerciseUpdateRequest struct {
	OccurredAt      time.Time `json:"occurred_at"`
	DurationMinutes int32     `json:"duration_minutes"`
	Calories        *int32    `json:"calories,omitempty"`
}

func (r *ExerciseUpdateRequest) Validate() error {
	if r.OccurredAt.IsZero() {
		return fmt.Errorf("occurred_at is required")
	}
	if r.DurationMinutes <= 0 {
		return fmt.Errorf("duration_minutes must be positive, got %d", r.DurationMinutes)
	}
	if r.Calories != nil && *r.Calories <= 0 {
		return fmt.Errorf("calories must be positive, got %d", *r.Calories)
	}
	return nil
}

// ExerciseImportRequest is a bulk submission from an external integration.
// Entries whose external_ref was already imported within the lookback window
// are silently dropped, by design: imports are re-sent with overlap.
type ExerciseImportRequest struct {
	Sessions []ExerciseCreateRequest `json:"sessions"`
}

// ExerciseResponse is one session joined with its reference data.
type ExerciseResponse struct {
	ID              int64     `json:"id"`
	UserID          int64     `json:"user_id"`
	TypeID          int64     `json:"type_id"`
	TypeName        string    `json:"type_name,omitempty"`
	CategoryID      int64     `json:"category_id,omitempty"`
	CategoryName    string    `json:"category_name,omitempty"`
	OccurredAt      time.Time `json:"occurred_at"`
	DurationMinutes int32     `json:"duration_minutes"`
	Calories        int32     `json:"calories"`
	ExternalRef     string    `json:"external_ref,omitempty"`
}

// ExerciseImportResponse reports how much of a bulk submission survived the
// dedup guard. Dropped duplicates are counted, never itemized as errors.
type ExerciseImportResponse struct {
	Imported []ExerciseResponse `json:"imported"`
	Dropped  int                `json:"dropped"`
}

// StatsBucketResponse is one bucket of an exercise stats window.
// CaloriesByCategory entries always sum to Calories.
type StatsBucketResponse struct {
	StartDate          string          `json:"start_date"`
	EndDate            string          `json:"end_date"`
	Sessions           int             `json:"sessions"`
	DurationMinutes    int64           `json:"duration_minutes"`
	Calories           int64           `json:"calories"`
	CaloriesByCategory map[int64]int64 `json:"calories_by_category"`
}

// ExerciseStatsResponse is an ordered (oldest-first) bucketed stats window.
type ExerciseStatsResponse struct {
	UserID      int64                 `json:"user_id"`
	EndDate     string                `json:"end_date"`
	Granularity string                `json:"granularity"`
	Buckets     []StatsBucketResponse `json:"buckets"`
}

// ExerciseTypeResponse is one catalog entry, flagged with the caller's
// favorite membership.
type ExerciseTypeResponse struct {
	ID                int64  `json:"id"`
	CategoryID        int64  `json:"category_id"`
	Name              string `json:"name"`
	CaloriesPerMinute int32  `json:"calories_per_minute"`
	Favorite          bool   `json:"favorite"`
}

// ExerciseCategoryResponse is one category of the reference catalog.
type ExerciseCategoryResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}
