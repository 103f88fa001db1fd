package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"spam_filter/core/port/out"
)

// querier is the subset of pgxpool.Pool used by WeightAdapter.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// WeightAdapter implements out.WeightBlobStore on the single-row nn_structure table.
type WeightAdapter struct {
	pool querier
}

var _ out.WeightBlobStore = (*WeightAdapter)(nil)

// NewWeightAdapter creates a new WeightAdapter. Pass a *pgxpool.Pool.
func NewWeightAdapter(pool querier) *WeightAdapter {
	return &WeightAdapter{pool: pool}
}

// Get returns the stored blob. A missing row matches both
// out.ErrWeightsNotFound and ErrNotFound.
func (a *WeightAdapter) Get(ctx context.Context) ([]byte, error) {
	var blob []byte
	err := a.pool.QueryRow(ctx, `SELECT weights FROM nn_structure LIMIT 1`).Scan(&blob)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %w", out.ErrWeightsNotFound, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get weights: %w", err)
	}
	return blob, nil
}

// CreateIfAbsent inserts the blob. The single-row index turns a concurrent
// second insert into a unique violation, which is reported as created=false.
func (a *WeightAdapter) CreateIfAbsent(ctx context.Context, blob []byte) (bool, error) {
	err := a.insert(ctx, blob)
	if errors.Is(err, ErrDuplicate) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// insert reports a second row as ErrDuplicate.
func (a *WeightAdapter) insert(ctx context.Context, blob []byte) error {
	_, err := a.pool.Exec(ctx, `INSERT INTO nn_structure (weights) VALUES ($1)`, blob)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: nn_structure row", ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("failed to create weights: %w", err)
	}
	return nil
}

// Replace overwrites the stored blob, creating the row when missing.
func (a *WeightAdapter) Replace(ctx context.Context, blob []byte) error {
	updated, err := a.update(ctx, blob)
	if err != nil || updated {
		return err
	}
	created, err := a.CreateIfAbsent(ctx, blob)
	if err != nil || created {
		return err
	}
	// lost the insert race; the row exists now
	if _, err := a.update(ctx, blob); err != nil {
		return err
	}
	return nil
}

func (a *WeightAdapter) update(ctx context.Context, blob []byte) (bool, error) {
	tag, err := a.pool.Exec(ctx, `UPDATE nn_structure SET weights = $1, updated_at = NOW()`, blob)
	if err != nil {
		return false, fmt.Errorf("failed to update weights: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
