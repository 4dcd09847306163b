package postgres

// SQL queries for raw readings and condensed deltas.

const (
	// querySelectPointsInRange returns the readings of one source with
	// inclusive endpoints. Served by the (source_id, timestamp) unique index.
	querySelectPointsInRange = `
		SELECT timestamp, value
		FROM raw_data
		WHERE source_id = $1
		  AND timestamp >= $2
		  AND timestamp <= $3
		ORDER BY timestamp ASC
	`

	querySelectPointBefore = `
		SELECT timestamp, value
		FROM raw_data
		WHERE source_id = $1
		  AND timestamp < $2
		ORDER BY timestamp DESC
		LIMIT 1
	`

	querySelectPointAfter = `
		SELECT timestamp, value
		FROM raw_data
		WHERE source_id = $1
		  AND timestamp > $2
		ORDER BY timestamp ASC
		LIMIT 1
	`

	// queryInsertPoint affects no rows for a duplicate (source_id, timestamp).
	queryInsertPoint = `
		INSERT INTO raw_data (source_id, timestamp, value)
		VALUES ($1, $2, $3)
		ON CONFLICT (source_id, timestamp) DO NOTHING
	`

	queryDeletePoint = `
		DELETE FROM raw_data
		WHERE source_id = $1
		  AND timestamp = $2
	`

	querySelectFiveMinuteRows = `
		SELECT timestamp, value
		FROM five_minute_delta
		WHERE source_id = $1
		  AND timestamp >= $2
		  AND timestamp < $3
		ORDER BY timestamp ASC
	`

	querySelectHourRows = `
		SELECT timestamp, value
		FROM hour_delta
		WHERE source_id = $1
		  AND timestamp >= $2
		  AND timestamp < $3
		ORDER BY timestamp ASC
	`

	// Concurrent fills of the same range compute equal values; last writer wins.
	queryUpsertFiveMinuteRow = `
		INSERT INTO five_minute_delta (source_id, timestamp, value)
		VALUES ($1, $2, $3)
		ON CONFLICT (source_id, timestamp)
		DO UPDATE SET value = EXCLUDED.value
	`

	queryUpsertHourRow = `
		INSERT INTO hour_delta (source_id, timestamp, value)
		VALUES ($1, $2, $3)
		ON CONFLICT (source_id, timestamp)
		DO UPDATE SET value = EXCLUDED.value
	`

	queryDeleteFiveMinuteRows = `
		DELETE FROM five_minute_delta
		WHERE source_id = $1
		  AND timestamp >= $2
		  AND timestamp <= $3
	`

	queryDeleteHourRows = `
		DELETE FROM hour_delta
		WHERE source_id = $1
		  AND timestamp >= $2
		  AND timestamp <= $3
	`

	queryHasCacheRows = `
		SELECT
			EXISTS (SELECT 1 FROM five_minute_delta WHERE source_id = $1)
			OR EXISTS (SELECT 1 FROM hour_delta WHERE source_id = $1)
	`
)
