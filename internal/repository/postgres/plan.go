package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/vidaplena/clinic-api/internal/model"
	"github.com/vidaplena/clinic-api/pkg/apperror"
)

type planRepository struct {
	BaseRepository
}

func NewPlanRepository(db *sqlx.DB) *planRepository {
	return &planRepository{BaseRepository: NewBaseRepository(db)}
}

const planColumns = `
	id, name, description, total_sessions, total_price, validity_days,
	is_active, created_at, updated_at`

func (r *planRepository) Create(ctx context.Context, plan *model.TherapyPlan) error {
	query := `
		INSERT INTO therapy_plans (
			id, name, description, total_sessions, total_price, validity_days,
			is_active, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	plan.ID = uuid.New()
	plan.CreatedAt = time.Now()
	plan.UpdatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		plan.ID,
		plan.Name,
		plan.Description,
		plan.TotalSessions,
		plan.TotalPrice,
		plan.ValidityDays,
		plan.IsActive,
		plan.CreatedAt,
		plan.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create therapy plan: %w", err)
	}
	return nil
}

func (r *planRepository) Get(ctx context.Context, id uuid.UUID) (*model.TherapyPlan, error) {
	query := `SELECT ` + planColumns + ` FROM therapy_plans WHERE id = $1`

	var plan model.TherapyPlan
	err := r.db.GetContext(ctx, &plan, query, id)
	if err != nil {
		if isNoRows(err) {
			return nil, apperror.NotFound("therapy plan %s not found", id)
		}
		return nil, fmt.Errorf("failed to get therapy plan: %w", err)
	}
	return &plan, nil
}

func (r *planRepository) Update(ctx context.Context, plan *model.TherapyPlan) error {
	query := `
		UPDATE therapy_plans
		SET name = $1, description = $2, total_sessions = $3, total_price = $4,
		    validity_days = $5, is_active = $6, updated_at = $7
		WHERE id = $8
	`
	plan.UpdatedAt = time.Now()

	result, err := r.db.ExecContext(ctx, query,
		plan.Name,
		plan.Description,
		plan.TotalSessions,
		plan.TotalPrice,
		plan.ValidityDays,
		plan.IsActive,
		plan.UpdatedAt,
		plan.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update therapy plan: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperror.NotFound("therapy plan %s not found", plan.ID)
	}

	return nil
}

func (r *planRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM therapy_plans WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete therapy plan: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperror.NotFound("therapy plan %s not found", id)
	}

	return nil
}

func (r *planRepository) List(ctx context.Context, branchID *uuid.UUID) ([]*model.TherapyPlan, error) {
	query := `SELECT ` + planColumns + ` FROM therapy_plans`
	args := []interface{}{}

	if branchID != nil {
		query = `
			SELECT p.id, p.name, p.description, p.total_sessions, p.total_price,
			       p.validity_days, p.is_active, p.created_at, p.updated_at
			FROM therapy_plans p
			JOIN therapy_plan_branches pb ON pb.therapy_plan_id = p.id
			WHERE pb.branch_id = $1
		`
		args = append(args, *branchID)
	}

	query += " ORDER BY created_at DESC"

	var plans []*model.TherapyPlan
	err := r.db.SelectContext(ctx, &plans, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list therapy plans: %w", err)
	}
	return plans, nil
}

func (r *planRepository) AssociateBranches(ctx context.Context, planID uuid.UUID, branchIDs []uuid.UUID) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		for _, branchID := range branchIDs {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO therapy_plan_branches (id, therapy_plan_id, branch_id, created_at)
				VALUES ($1, $2, $3, $4)
				ON CONFLICT (therapy_plan_id, branch_id) DO NOTHING
			`, uuid.New(), planID, branchID, time.Now())
			if err != nil {
				return fmt.Errorf("failed to associate branch %s: %w", branchID, err)
			}
		}
		return nil
	})
}
