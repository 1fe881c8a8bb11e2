package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/ratewatch/ratewatch/internal/models"
)

// PgxIface is the subset of pgxpool.Pool the repository uses. It lets
// tests substitute pgxmock.
type PgxIface interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// RateRepository persists merged daily yield snapshots. The table is a
// fallback source when both upstream providers are unreachable.
type RateRepository struct {
	db PgxIface
}

func NewRateRepository(db PgxIface) *RateRepository {
	return &RateRepository{db: db}
}

const upsertObservationQuery = `
	INSERT INTO rate_observations (observed_on, us_rate, kr_rate, spread)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (observed_on)
	DO UPDATE SET us_rate = EXCLUDED.us_rate, kr_rate = EXCLUDED.kr_rate,
	              spread = EXCLUDED.spread, updated_at = NOW()`

// UpsertObservations writes the snapshot rows, replacing any existing
// row for the same date.
func (r *RateRepository) UpsertObservations(ctx context.Context, rates []models.CombinedRate) error {
	for _, rate := range rates {
		_, err := r.db.Exec(ctx, upsertObservationQuery,
			rate.Date, rate.USRate, rate.KRRate, rate.Spread)
		if err != nil {
			return fmt.Errorf("failed to upsert observation for %s: %w",
				rate.Date.Format(models.DateLayout), err)
		}
	}
	return nil
}

// RecentObservations returns snapshot rows on or after since, ascending
// by date.
func (r *RateRepository) RecentObservations(ctx context.Context, since time.Time) ([]models.CombinedRate, error) {
	rows, err := r.db.Query(ctx, `
		SELECT observed_on, us_rate, kr_rate, spread
		FROM rate_observations
		WHERE observed_on >= $1
		ORDER BY observed_on ASC`, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query observations: %w", err)
	}
	defer rows.Close()

	var rates []models.CombinedRate
	for rows.Next() {
		var rate models.CombinedRate
		if err := rows.Scan(&rate.Date, &rate.USRate, &rate.KRRate, &rate.Spread); err != nil {
			return nil, fmt.Errorf("failed to scan observation: %w", err)
		}
		rates = append(rates, rate)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read observations: %w", err)
	}

	return rates, nil
}
