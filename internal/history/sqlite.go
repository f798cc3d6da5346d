package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// timestampLayout is fixed-width so recorded_at sorts lexically in time order.
const timestampLayout = "2006-01-02T15:04:05.000000000Z"

// SQLiteRepository implements Repository on the light_state_history table.
type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteRepository creates a repository over an open, migrated database.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db, now: time.Now}
}

// Record inserts one history row.
func (r *SQLiteRepository) Record(ctx context.Context, lightID string, state State, at time.Time) error {
	if lightID == "" {
		return ErrLightIDRequired
	}

	var brightness sql.NullInt64
	if state.Brightness != nil {
		brightness = sql.NullInt64{Int64: int64(*state.Brightness), Valid: true}
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO light_state_history (light_id, power, brightness, color, effect, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		lightID,
		boolToInt(state.On),
		brightness,
		nullString(state.Color),
		nullString(state.Effect),
		at.UTC().Format(timestampLayout),
	)
	if err != nil {
		return fmt.Errorf("inserting light state history: %w", err)
	}
	return nil
}

// List returns recent entries for a light, newest first.
func (r *SQLiteRepository) List(ctx context.Context, lightID string, limit int) ([]Entry, error) {
	if lightID == "" {
		return nil, ErrLightIDRequired
	}
	limit = clampLimit(limit)

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, light_id, power, brightness, color, effect, recorded_at
		 FROM light_state_history
		 WHERE light_id = ?
		 ORDER BY recorded_at DESC, id DESC
		 LIMIT ?`,
		lightID,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying light state history: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0, limit)
	for rows.Next() {
		var (
			e          Entry
			power      int64
			brightness sql.NullInt64
			color      sql.NullString
			effect     sql.NullString
			recordedAt string
		)
		if err := rows.Scan(&e.ID, &e.LightID, &power, &brightness, &color, &effect, &recordedAt); err != nil {
			return nil, fmt.Errorf("scanning light state history: %w", err)
		}

		e.State.On = power != 0
		if brightness.Valid {
			b := uint8(brightness.Int64) //nolint:gosec // CHECK constraint keeps it in 0..255
			e.State.Brightness = &b
		}
		if color.Valid {
			e.State.Color = &color.String
		}
		if effect.Valid {
			e.State.Effect = &effect.String
		}

		e.RecordedAt, err = parseTimestamp(recordedAt)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating light state history: %w", err)
	}

	return entries, nil
}

// Prune deletes entries recorded before now-olderThan.
func (r *SQLiteRepository) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, ErrInvalidRetention
	}

	cutoff := r.now().UTC().Add(-olderThan).Format(timestampLayout)
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM light_state_history WHERE recorded_at < ?",
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("deleting light state history: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking rows affected: %w", err)
	}
	return n, nil
}

func parseTimestamp(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("recorded_at is empty")
	}
	t, err := time.Parse(timestampLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing recorded_at: %w", err)
	}
	return t, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
