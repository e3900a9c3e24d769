package postgresql

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/punch"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/pkg/database"
)

type punchRepository struct {
	db *database.DB
}

func NewPunchRepository(db *database.DB) punch.Repository {
	return &punchRepository{db: db}
}

// Append implements punch.Repository.
func (r *punchRepository) Append(ctx context.Context, p punch.Punch) (punch.Punch, error) {
	q := GetQuerier(ctx, r.db)

	if p.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return punch.Punch{}, fmt.Errorf("failed to generate punch id: %w", err)
		}
		p.ID = id.String()
	}

	query := `
		INSERT INTO punches (
			id, employee_id, type, punched_at, source, device_id,
			latitude, longitude, geo_valid, selfie_ref, selfie_valid
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at
	`

	err := q.QueryRow(ctx, query,
		p.ID,
		p.EmployeeID,
		string(p.Type),
		p.PunchedAt.UTC(),
		string(p.Source),
		p.DeviceID,
		p.Latitude,
		p.Longitude,
		p.GeoValid,
		p.SelfieRef,
		p.SelfieValid,
	).Scan(&p.CreatedAt)
	if err != nil {
		return punch.Punch{}, fmt.Errorf("failed to append punch: %w", err)
	}

	return p, nil
}

// ListByWindow implements punch.Repository.
func (r *punchRepository) ListByWindow(ctx context.Context, employeeID string, from, to time.Time) ([]punch.Punch, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, employee_id, type, punched_at, source, device_id,
			   latitude, longitude, geo_valid, selfie_ref, selfie_valid, created_at
		FROM punches
		WHERE employee_id = $1
		  AND punched_at >= $2
		  AND punched_at < $3
		ORDER BY punched_at, created_at
	`

	rows, err := q.Query(ctx, query, employeeID, from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to list punches: %w", err)
	}
	defer rows.Close()

	var punches []punch.Punch
	for rows.Next() {
		var (
			p      punch.Punch
			typ    string
			source string
		)
		err := rows.Scan(
			&p.ID, &p.EmployeeID, &typ, &p.PunchedAt, &source, &p.DeviceID,
			&p.Latitude, &p.Longitude, &p.GeoValid, &p.SelfieRef, &p.SelfieValid, &p.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan punch: %w", err)
		}
		p.Type = punch.Type(typ)
		p.Source = punch.Source(source)
		p.PunchedAt = p.PunchedAt.UTC()
		punches = append(punches, p)
	}

	return punches, rows.Err()
}
