package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/farmgate/farmgate/internal/farm"
)

// FarmRepository implements farm.Repository
type FarmRepository struct {
	db *DB
}

// NewFarmRepository creates a new farm repository
func NewFarmRepository(db *DB) *FarmRepository {
	return &FarmRepository{db: db}
}

// GetByID retrieves a farm by ID
func (r *FarmRepository) GetByID(ctx context.Context, id string) (*farm.Farm, error) {
	var f farm.Farm
	err := r.db.pool.QueryRow(ctx, `
		SELECT id, name, owner_id, created_at, updated_at
		FROM farms
		WHERE id = $1
	`, id).Scan(&f.ID, &f.Name, &f.OwnerID, &f.CreatedAt, &f.UpdatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, farm.ErrFarmNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get farm: %w", err)
	}

	return &f, nil
}

// ListByOwner retrieves all farms owned by a user
func (r *FarmRepository) ListByOwner(ctx context.Context, ownerID string) ([]*farm.Farm, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT id, name, owner_id, created_at, updated_at
		FROM farms
		WHERE owner_id = $1
		ORDER BY created_at
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list farms: %w", err)
	}
	defer rows.Close()

	var farms []*farm.Farm
	for rows.Next() {
		var f farm.Farm
		if err := rows.Scan(&f.ID, &f.Name, &f.OwnerID, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan farm: %w", err)
		}
		farms = append(farms, &f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read farms: %w", err)
	}

	return farms, nil
}
