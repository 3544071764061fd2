package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/samirrijal/campusride/internal/core/domain"
)

// StopRepo implements ports.StopRepository with pgx and PostGIS.
type StopRepo struct {
	q Querier
}

// NewStopRepo creates a new StopRepo.
func NewStopRepo(q Querier) *StopRepo {
	return &StopRepo{q: q}
}

const stopColumns = `id, name, ST_Y(location::geometry) AS lat, ST_X(location::geometry) AS lon`

// List returns every stop ordered by name.
func (r *StopRepo) List(ctx context.Context) ([]domain.Stop, error) {
	rows, err := r.q.Query(ctx, `SELECT `+stopColumns+` FROM stops ORDER BY name`)
	if err != nil {
		return nil, mapErr(err, "list stops")
	}
	return scanStops(rows, false)
}

// GetByID returns a stop by id.
func (r *StopRepo) GetByID(ctx context.Context, id string) (*domain.Stop, error) {
	var s domain.Stop
	err := r.q.QueryRow(ctx, `SELECT `+stopColumns+` FROM stops WHERE id = $1`, id).
		Scan(&s.ID, &s.Name, &s.Location.Lat, &s.Location.Lon)
	if err != nil {
		return nil, mapErr(err, "get stop "+id)
	}
	return &s, nil
}

// FindNearby returns stops within radiusMeters of (lat, lon), nearest first,
// with Distance filled in.
func (r *StopRepo) FindNearby(ctx context.Context, lat, lon, radiusMeters float64, limit int) ([]domain.Stop, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+stopColumns+`,
		       ST_Distance(location, ST_SetSRID(ST_MakePoint($2, $1), 4326)::geography) AS distance
		FROM stops
		WHERE ST_DWithin(location, ST_SetSRID(ST_MakePoint($2, $1), 4326)::geography, $3)
		ORDER BY distance
		LIMIT $4
	`, lat, lon, radiusMeters, limit)
	if err != nil {
		return nil, mapErr(err, "find nearby stops")
	}
	return scanStops(rows, true)
}

// Search matches stop names case-insensitively, prefix matches first.
func (r *StopRepo) Search(ctx context.Context, query string, limit int) ([]domain.Stop, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+stopColumns+`
		FROM stops
		WHERE name ILIKE '%' || $1 || '%'
		ORDER BY (name ILIKE $1 || '%') DESC, name
		LIMIT $2
	`, query, limit)
	if err != nil {
		return nil, mapErr(err, "search stops")
	}
	return scanStops(rows, false)
}

// UpsertStops inserts or updates stops in one transaction.
func (r *StopRepo) UpsertStops(ctx context.Context, stops []domain.Stop) error {
	return inTx(ctx, r.q, func(tx pgx.Tx) error {
		for _, s := range stops {
			if _, err := tx.Exec(ctx, `
				INSERT INTO stops (id, name, location)
				VALUES ($1, $2, ST_SetSRID(ST_MakePoint($3, $4), 4326)::geography)
				ON CONFLICT (id) DO UPDATE
				SET name = EXCLUDED.name, location = EXCLUDED.location
			`, s.ID, s.Name, s.Location.Lon, s.Location.Lat); err != nil {
				return mapErr(err, "upsert stop "+s.ID)
			}
		}
		return nil
	})
}

func scanStops(rows pgx.Rows, withDistance bool) ([]domain.Stop, error) {
	defer rows.Close()

	stops := []domain.Stop{}
	for rows.Next() {
		var s domain.Stop
		dest := []any{&s.ID, &s.Name, &s.Location.Lat, &s.Location.Lon}
		var d float64
		if withDistance {
			dest = append(dest, &d)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		if withDistance {
			s.Distance = &d
		}
		stops = append(stops, s)
	}
	return stops, rows.Err()
}
