package postgres

// SQL for the versioned record stores. Range/point/prior queries return ALL
// active versions in range — resolution to one value per day is the snapshot
// resolver's job, never the database's.

const (
	queryAppendMeasurement = `
		INSERT INTO body_records (
			user_id, measurement_date, created_at,
			weight, muscle_mass, body_fat, height
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	queryGetMeasurement = `
		SELECT
			id, user_id, measurement_date, created_at,
			weight, muscle_mass, body_fat, height, is_deleted, deleted_at
		FROM body_records
		WHERE user_id = $1 AND id = $2
	`

	queryMeasurementDeleted = `
		SELECT is_deleted FROM body_records
		WHERE user_id = $1 AND id = $2
	`

	queryTombstoneMeasurement = `
		UPDATE body_records
		SET is_deleted = TRUE, deleted_at = $3
		WHERE user_id = $1 AND id = $2 AND is_deleted = FALSE
	`

	queryMeasurementRange = `
		SELECT
			id, user_id, measurement_date, created_at,
			weight, muscle_mass, body_fat, height, is_deleted, deleted_at
		FROM body_records
		WHERE user_id = $1
		  AND is_deleted = FALSE
		  AND measurement_date BETWEEN $2 AND $3
		ORDER BY measurement_date ASC, created_at ASC, id ASC
	`

	// queryMeasurementPrior feeds carry-forward resolution; ordering is the
	// resolution key (date desc, created_at desc, id desc) so the first row
	// is the answer.
	queryMeasurementPrior = `
		SELECT
			id, user_id, measurement_date, created_at,
			weight, muscle_mass, body_fat, height, is_deleted, deleted_at
		FROM body_records
		WHERE user_id = $1
		  AND is_deleted = FALSE
		  AND measurement_date <= $2
		ORDER BY measurement_date DESC, created_at DESC, id DESC
		LIMIT $3
	`

	queryInsertExercise = `
		INSERT INTO exercise_records (
			user_id, type_id, occurred_at, duration_minutes, calories,
			external_ref, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $7)
		RETURNING id
	`

	queryGetExercise = `
		SELECT
			id, user_id, type_id, occurred_at, duration_minutes, calories,
			COALESCE(external_ref, ''), created_at, updated_at, is_deleted, deleted_at
		FROM exercise_records
		WHERE user_id = $1 AND id = $2
	`

	queryUpdateExercise = `
		UPDATE exercise_records
		SET occurred_at = $3, duration_minutes = $4, calories = $5, updated_at = $6
		WHERE user_id = $1 AND id = $2 AND is_deleted = FALSE
	`

	queryExerciseDeleted = `
		SELECT is_deleted FROM exercise_records
		WHERE user_id = $1 AND id = $2
	`

	queryTombstoneExercise = `
		UPDATE exercise_records
		SET is_deleted = TRUE, deleted_at = $3, updated_at = $3
		WHERE user_id = $1 AND id = $2 AND is_deleted = FALSE
	`

	queryExerciseRange = `
		SELECT
			id, user_id, type_id, occurred_at, duration_minutes, calories,
			COALESCE(external_ref, ''), created_at, updated_at, is_deleted, deleted_at
		FROM exercise_records
		WHERE user_id = $1
		  AND is_deleted = FALSE
		  AND occurred_at >= $2
		  AND occurred_at < $3
		ORDER BY occurred_at ASC, id ASC
	`

	queryExerciseByUser = `
		SELECT
			id, user_id, type_id, occurred_at, duration_minutes, calories,
			COALESCE(external_ref, ''), created_at, updated_at, is_deleted, deleted_at
		FROM exercise_records
		WHERE user_id = $1 AND is_deleted = FALSE
		ORDER BY occurred_at DESC, id DESC
	`

	// queryExistingExternalRefs backs the bulk-import dedup guard: which of
	// the submitted reference keys were already imported (and are still
	// active) within the lookback window.
	queryExistingExternalRefs = `
		SELECT DISTINCT external_ref
		FROM exercise_records
		WHERE user_id = $1
		  AND is_deleted = FALSE
		  AND external_ref = ANY($2)
		  AND created_at >= $3
	`

	queryListExerciseTypes = `
		SELECT id, category_id, name, calories_per_minute
		FROM exercise_types
		ORDER BY id ASC
	`

	queryListExerciseCategories = `
		SELECT id, name
		FROM exercise_categories
		ORDER BY id ASC
	`

	queryListFavoriteTypeIDs = `
		SELECT type_id FROM favorite_exercises
		WHERE user_id = $1
		ORDER BY type_id ASC
	`

	queryAddFavorite = `
		INSERT INTO favorite_exercises (user_id, type_id, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, type_id) DO NOTHING
	`

	queryRemoveFavorite = `
		DELETE FROM favorite_exercises
		WHERE user_id = $1 AND type_id = $2
	`
)
