package exercise

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	v1 "github.com/vitalog-lab/vitalog/internal/api/v1"
	"github.com/vitalog-lab/vitalog/internal/core/calendar"
	"github.com/vitalog-lab/vitalog/internal/core/record"
	"github.com/vitalog-lab/vitalog/internal/core/stats"
	"github.com/vitalog-lab/vitalog/internal/core/storage"
	"github.com/vitalog-lab/vitalog/internal/core/window"
	"github.com/vitalog-lab/vitalog/internal/observability"
	"github.com/vitalog-lab/vitalog/internal/reference"
)

// dedupWindowDays is how far back the bulk-import guard looks for previously
// imported external references. Integrations re-send recent history with
// overlap, so only a bounded window needs checking.
const dedupWindowDays = 40

// latestTypesLimit caps the recently-used types listing.
const latestTypesLimit = 10

var (
	// ErrInvalidRequest marks request validation errors that map to HTTP 400.
	ErrInvalidRequest = errors.New("invalid exercise request")

	// ErrUnknownType is returned when a request names an exercise type the
	// reference catalog does not know.
	ErrUnknownType = errors.New("unknown exercise type")
)

// Service owns the exercise session write and read paths: CRUD, bulk import
// with external-reference dedup, windowed stats, and the reference catalog
// surfaces (types, categories, favorites).
type Service struct {
	store     storage.ExerciseStore
	catalog   *reference.Provider
	favorites storage.FavoriteStore
	nowFn     func() time.Time
}

// NewService creates an exercise service.
func NewService(store storage.ExerciseStore, catalog *reference.Provider, favorites storage.FavoriteStore) *Service {
	return &Service{
		store:     store,
		catalog:   catalog,
		favorites: favorites,
		nowFn:     func() time.Time { return time.Now().UTC() },
	}
}

// Create records one exercise session. Omitted calories are derived from the
// type's per-minute cost.
func (s *Service) Create(ctx context.Context, userID int64, req v1.ExerciseCreateRequest) (*v1.ExerciseResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, invalidf("%s", err)
	}

	cat, err := s.catalog.Catalog(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load reference catalog: %w", err)
	}

	e, err := s.buildSession(userID, req, cat)
	if err != nil {
		return nil, err
	}
	if err := s.store.Insert(ctx, e); err != nil {
		return nil, fmt.Errorf("failed to insert exercise: %w", err)
	}

	slog.Info("Exercise recorded",
		"user_id", userID,
		"record_id", e.ID,
		"type_id", e.TypeID,
		"duration_minutes", e.DurationMinutes)

	return sessionResponse(*e, cat), nil
}

// Update corrects a session in place. Identity and exercise type are fixed;
// occurred-at, duration and calories may change. Omitted calories are
// re-derived from the type cost against the new duration.
func (s *Service) Update(ctx context.Context, userID, id int64, req v1.ExerciseUpdateRequest) (*v1.ExerciseResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, invalidf("%s", err)
	}

	cat, err := s.catalog.Catalog(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load reference catalog: %w", err)
	}

	e, err := s.store.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if !e.Active {
		return nil, storage.ErrTombstoned
	}

	e.OccurredAt = req.OccurredAt.UTC()
	e.DurationMinutes = req.DurationMinutes
	if req.Calories != nil {
		e.Calories = *req.Calories
	} else {
		e.Calories = deriveCalories(e.TypeID, e.DurationMinutes, cat)
	}

	if err := s.store.Update(ctx, e); err != nil {
		return nil, err
	}

	slog.Info("Exercise corrected", "user_id", userID, "record_id", id)
	return sessionResponse(*e, cat), nil
}

// Delete tombstones one session.
func (s *Service) Delete(ctx context.Context, userID, id int64) error {
	if err := s.store.Tombstone(ctx, userID, id); err != nil {
		return err
	}
	slog.Info("Exercise deleted", "user_id", userID, "record_id", id)
	return nil
}

// Get returns one active session joined with its reference data.
func (s *Service) Get(ctx context.Context, userID, id int64) (*v1.ExerciseResponse, error) {
	e, err := s.store.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if !e.Active {
		return nil, storage.ErrNotFound
	}

	cat, err := s.catalog.Catalog(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load reference catalog: %w", err)
	}
	return sessionResponse(*e, cat), nil
}

// List returns all of the user's active sessions, newest first.
func (s *Service) List(ctx context.Context, userID int64) ([]v1.ExerciseResponse, error) {
	var (
		sessions []record.Exercise
		cat      *reference.Catalog
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		sessions, err = s.store.ListByUser(gCtx, userID)
		if err != nil {
			return fmt.Errorf("failed to list exercises: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		cat, err = s.catalog.Catalog(gCtx)
		if err != nil {
			return fmt.Errorf("failed to load reference catalog: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]v1.ExerciseResponse, 0, len(sessions))
	for _, e := range sessions {
		out = append(out, *sessionResponse(e, cat))
	}
	return out, nil
}

// Import records a bulk submission from an external integration. Every entry
// must carry an external reference; entries whose reference was already
// imported within the lookback window, or repeats within the batch itself,
// are dropped silently and only counted.
func (s *Service) Import(ctx context.Context, userID int64, req v1.ExerciseImportRequest) (*v1.ExerciseImportResponse, error) {
	if len(req.Sessions) == 0 {
		return nil, invalidf("sessions must not be empty")
	}

	refs := make([]string, 0, len(req.Sessions))
	for i, entry := range req.Sessions {
		if err := entry.Validate(); err != nil {
			return nil, invalidf("sessions[%d]: %s", i, err)
		}
		if entry.ExternalRef == "" {
			return nil, invalidf("sessions[%d]: external_ref is required for imports", i)
		}
		refs = append(refs, entry.ExternalRef)
	}

	cat, err := s.catalog.Catalog(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load reference catalog: %w", err)
	}

	since := calendar.Day(s.nowFn()).AddDate(0, 0, -dedupWindowDays)
	existing, err := s.store.ExistingExternalRefs(ctx, userID, refs, since)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing external refs: %w", err)
	}

	resp := &v1.ExerciseImportResponse{Imported: []v1.ExerciseResponse{}}
	seen := make(map[string]struct{}, len(refs))
	for _, entry := range req.Sessions {
		if _, dup := existing[entry.ExternalRef]; dup {
			resp.Dropped++
			continue
		}
		if _, dup := seen[entry.ExternalRef]; dup {
			resp.Dropped++
			continue
		}
		seen[entry.ExternalRef] = struct{}{}

		e, err := s.buildSession(userID, entry, cat)
		if err != nil {
			return nil, err
		}
		if err := s.store.Insert(ctx, e); err != nil {
			return nil, fmt.Errorf("failed to insert imported exercise: %w", err)
		}
		resp.Imported = append(resp.Imported, *sessionResponse(*e, cat))
	}

	observability.RecordImportOutcome(len(resp.Imported), resp.Dropped)
	slog.Info("Exercise import finished",
		"user_id", userID,
		"submitted", len(req.Sessions),
		"imported", len(resp.Imported),
		"dropped", resp.Dropped)
	return resp, nil
}

// Today reduces today's sessions into a single degenerate bucket.
func (s *Service) Today(ctx context.Context, userID int64) (*v1.ExerciseStatsResponse, error) {
	today := calendar.Day(s.nowFn())
	buckets := []calendar.Bucket{{Start: today, End: today}}
	return s.reduceWindow(ctx, userID, today, "today", buckets)
}

// Window reduces the stats window ending on endDate into bucketed sums.
func (s *Service) Window(ctx context.Context, userID int64, endDate time.Time, g calendar.Granularity) (*v1.ExerciseStatsResponse, error) {
	buckets := calendar.Partition(endDate, g, window.DefaultBucketCount)
	return s.reduceWindow(ctx, userID, endDate, string(g), buckets)
}

// reduceWindow fetches the sessions covering the buckets' span in one range
// query, concurrently with the reference catalog, and reduces them.
func (s *Service) reduceWindow(ctx context.Context, userID int64, endDate time.Time, granularity string, buckets []calendar.Bucket) (*v1.ExerciseStatsResponse, error) {
	from := buckets[0].Start
	until := buckets[len(buckets)-1].End.AddDate(0, 0, 1)

	var (
		sessions []record.Exercise
		cat      *reference.Catalog
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		sessions, err = s.store.RangeQuery(gCtx, userID, from, until)
		if err != nil {
			return fmt.Errorf("failed to load window sessions: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		cat, err = s.catalog.Catalog(gCtx)
		if err != nil {
			return fmt.Errorf("failed to load reference catalog: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	reduced := stats.Reduce(sessions, buckets, cat.CategoryByType())

	resp := &v1.ExerciseStatsResponse{
		UserID:      userID,
		EndDate:     calendar.Day(endDate).Format(v1.DateFormat),
		Granularity: granularity,
		Buckets:     make([]v1.StatsBucketResponse, 0, len(reduced)),
	}
	for _, t := range reduced {
		resp.Buckets = append(resp.Buckets, v1.StatsBucketResponse{
			StartDate:          t.Start.Format(v1.DateFormat),
			EndDate:            t.End.Format(v1.DateFormat),
			Sessions:           t.Sessions,
			DurationMinutes:    t.DurationMinutes,
			Calories:           t.Calories,
			CaloriesByCategory: t.CaloriesByCategory,
		})
	}
	return resp, nil
}

// Types lists the full catalog flagged with the caller's favorites. The
// catalog and the favorite set load concurrently.
func (s *Service) Types(ctx context.Context, userID int64) ([]v1.ExerciseTypeResponse, error) {
	cat, favs, err := s.catalogAndFavorites(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := make([]v1.ExerciseTypeResponse, 0, len(cat.Types))
	for _, t := range cat.Types {
		out = append(out, typeResponse(t, favs))
	}
	return out, nil
}

// TypeDetail returns one catalog entry with the caller's favorite flag.
func (s *Service) TypeDetail(ctx context.Context, userID, typeID int64) (*v1.ExerciseTypeResponse, error) {
	cat, favs, err := s.catalogAndFavorites(ctx, userID)
	if err != nil {
		return nil, err
	}

	t, ok := cat.TypeByID(typeID)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownType, typeID)
	}
	resp := typeResponse(t, favs)
	return &resp, nil
}

// LatestTypes returns the types of the user's most recent sessions, newest
// first, deduplicated by type.
func (s *Service) LatestTypes(ctx context.Context, userID int64) ([]v1.ExerciseTypeResponse, error) {
	var (
		sessions []record.Exercise
		cat      *reference.Catalog
		favIDs   []int64
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		sessions, err = s.store.ListByUser(gCtx, userID)
		if err != nil {
			return fmt.Errorf("failed to list exercises: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		cat, err = s.catalog.Catalog(gCtx)
		if err != nil {
			return fmt.Errorf("failed to load reference catalog: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		favIDs, err = s.favorites.ListTypeIDs(gCtx, userID)
		if err != nil {
			return fmt.Errorf("failed to load favorites: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	favs := favoriteSet(favIDs)
	seen := make(map[int64]struct{})
	out := make([]v1.ExerciseTypeResponse, 0, latestTypesLimit)
	for _, e := range sessions {
		if _, dup := seen[e.TypeID]; dup {
			continue
		}
		seen[e.TypeID] = struct{}{}
		t, ok := cat.TypeByID(e.TypeID)
		if !ok {
			continue
		}
		out = append(out, typeResponse(t, favs))
		if len(out) == latestTypesLimit {
			break
		}
	}
	return out, nil
}

// Categories lists the reference categories.
func (s *Service) Categories(ctx context.Context) ([]v1.ExerciseCategoryResponse, error) {
	cat, err := s.catalog.Catalog(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load reference catalog: %w", err)
	}

	out := make([]v1.ExerciseCategoryResponse, 0, len(cat.Categories))
	for _, c := range cat.Categories {
		out = append(out, v1.ExerciseCategoryResponse{ID: c.ID, Name: c.Name})
	}
	return out, nil
}

// Favorites lists the user's starred types.
func (s *Service) Favorites(ctx context.Context, userID int64) ([]v1.ExerciseTypeResponse, error) {
	cat, favs, err := s.catalogAndFavorites(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := make([]v1.ExerciseTypeResponse, 0, len(favs))
	for _, t := range cat.Types {
		if _, ok := favs[t.ID]; ok {
			out = append(out, typeResponse(t, favs))
		}
	}
	return out, nil
}

// AddFavorite stars a type. Starring twice is a no-op.
func (s *Service) AddFavorite(ctx context.Context, userID, typeID int64) error {
	cat, err := s.catalog.Catalog(ctx)
	if err != nil {
		return fmt.Errorf("failed to load reference catalog: %w", err)
	}
	if _, ok := cat.TypeByID(typeID); !ok {
		return fmt.Errorf("%w: %d", ErrUnknownType, typeID)
	}
	return s.favorites.Add(ctx, userID, typeID)
}

// RemoveFavorite unstars a type.
func (s *Service) RemoveFavorite(ctx context.Context, userID, typeID int64) error {
	return s.favorites.Remove(ctx, userID, typeID)
}

func (s *Service) catalogAndFavorites(ctx context.Context, userID int64) (*reference.Catalog, map[int64]struct{}, error) {
	var (
		cat    *reference.Catalog
		favIDs []int64
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		cat, err = s.catalog.Catalog(gCtx)
		if err != nil {
			return fmt.Errorf("failed to load reference catalog: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		favIDs, err = s.favorites.ListTypeIDs(gCtx, userID)
		if err != nil {
			return fmt.Errorf("failed to load favorites: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return cat, favoriteSet(favIDs), nil
}

// buildSession translates a create request into a record, deriving omitted
// calories from the type's per-minute cost.
func (s *Service) buildSession(userID int64, req v1.ExerciseCreateRequest, cat *reference.Catalog) (*record.Exercise, error) {
	if _, ok := cat.TypeByID(req.TypeID); !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownType, req.TypeID)
	}

	occurredAt := req.OccurredAt.UTC()
	if req.OccurredAt.IsZero() {
		occurredAt = s.nowFn()
	}

	e := &record.Exercise{
		UserID:          userID,
		TypeID:          req.TypeID,
		OccurredAt:      occurredAt,
		DurationMinutes: req.DurationMinutes,
		ExternalRef:     req.ExternalRef,
	}
	if req.Calories != nil {
		e.Calories = *req.Calories
	} else {
		e.Calories = deriveCalories(req.TypeID, req.DurationMinutes, cat)
	}
	return e, nil
}

func deriveCalories(typeID int64, durationMinutes int32, cat *reference.Catalog) int32 {
	t, ok := cat.TypeByID(typeID)
	if !ok {
		return 0
	}
	return t.CaloriesPerMinute * durationMinutes
}

func sessionResponse(e record.Exercise, cat *reference.Catalog) *v1.ExerciseResponse {
	resp := &v1.ExerciseResponse{
		ID:              e.ID,
		UserID:          e.UserID,
		TypeID:          e.TypeID,
		OccurredAt:      e.OccurredAt,
		DurationMinutes: e.DurationMinutes,
		Calories:        e.Calories,
		ExternalRef:     e.ExternalRef,
	}
	if t, ok := cat.TypeByID(e.TypeID); ok {
		resp.TypeName = t.Name
		resp.CategoryID = t.CategoryID
		if c, ok := cat.CategoryByID(t.CategoryID); ok {
			resp.CategoryName = c.Name
		}
	}
	return resp
}

func typeResponse(t record.ExerciseType, favs map[int64]struct{}) v1.ExerciseTypeResponse {
	_, fav := favs[t.ID]
	return v1.ExerciseTypeResponse{
		ID:                t.ID,
		CategoryID:        t.CategoryID,
		Name:              t.Name,
		CaloriesPerMinute: t.CaloriesPerMinute,
		Favorite:          fav,
	}
}

func favoriteSet(ids []int64) map[int64]struct{} {
	out := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out
}

func invalidf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}
