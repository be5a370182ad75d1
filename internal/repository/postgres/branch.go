package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/vidaplena/clinic-api/internal/model"
	"github.com/vidaplena/clinic-api/pkg/apperror"
)

type branchRepository struct {
	BaseRepository
}

func NewBranchRepository(db *sqlx.DB) *branchRepository {
	return &branchRepository{BaseRepository: NewBaseRepository(db)}
}

const branchColumns = `id, name, address, phone, email, is_active, created_at, updated_at`

func (r *branchRepository) Get(ctx context.Context, id uuid.UUID) (*model.Branch, error) {
	var branch model.Branch
	err := r.db.GetContext(ctx, &branch, `SELECT `+branchColumns+` FROM branches WHERE id = $1`, id)
	if err != nil {
		if isNoRows(err) {
			return nil, apperror.NotFound("branch %s not found", id)
		}
		return nil, fmt.Errorf("failed to get branch: %w", err)
	}
	return &branch, nil
}

func (r *branchRepository) List(ctx context.Context) ([]*model.Branch, error) {
	var branches []*model.Branch
	err := r.db.SelectContext(ctx, &branches, `SELECT `+branchColumns+` FROM branches ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list branches: %w", err)
	}
	return branches, nil
}
