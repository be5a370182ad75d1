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

type therapistRepository struct {
	BaseRepository
}

func NewTherapistRepository(db *sqlx.DB) *therapistRepository {
	return &therapistRepository{BaseRepository: NewBaseRepository(db)}
}

const therapistColumns = `id, name, email, phone, specialty, created_at, updated_at`

func (r *therapistRepository) Create(ctx context.Context, therapist *model.Therapist) error {
	query := `
		INSERT INTO therapists (id, name, email, phone, specialty, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	therapist.ID = uuid.New()
	therapist.CreatedAt = time.Now()
	therapist.UpdatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		therapist.ID,
		therapist.Name,
		therapist.Email,
		therapist.Phone,
		therapist.Specialty,
		therapist.CreatedAt,
		therapist.UpdatedAt,
	)
	if err != nil {
		if isConstraintViolation(err) {
			return apperror.Conflict("therapist email %s already registered", therapist.Email)
		}
		return fmt.Errorf("failed to create therapist: %w", err)
	}
	return nil
}

func (r *therapistRepository) Get(ctx context.Context, id uuid.UUID) (*model.Therapist, error) {
	query := `SELECT ` + therapistColumns + ` FROM therapists WHERE id = $1`

	var therapist model.Therapist
	err := r.db.GetContext(ctx, &therapist, query, id)
	if err != nil {
		if isNoRows(err) {
			return nil, apperror.NotFound("therapist %s not found", id)
		}
		return nil, fmt.Errorf("failed to get therapist: %w", err)
	}
	return &therapist, nil
}

func (r *therapistRepository) Update(ctx context.Context, therapist *model.Therapist) error {
	query := `
		UPDATE therapists
		SET name = $1, email = $2, phone = $3, specialty = $4, updated_at = $5
		WHERE id = $6
	`
	therapist.UpdatedAt = time.Now()

	result, err := r.db.ExecContext(ctx, query,
		therapist.Name,
		therapist.Email,
		therapist.Phone,
		therapist.Specialty,
		therapist.UpdatedAt,
		therapist.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update therapist: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperror.NotFound("therapist %s not found", therapist.ID)
	}

	return nil
}

func (r *therapistRepository) List(ctx context.Context, branchID *uuid.UUID) ([]*model.Therapist, error) {
	query := `SELECT ` + therapistColumns + ` FROM therapists`
	args := []interface{}{}

	if branchID != nil {
		query = `
			SELECT t.id, t.name, t.email, t.phone, t.specialty, t.created_at, t.updated_at
			FROM therapists t
			JOIN therapist_branches tb ON tb.therapist_id = t.id
			WHERE tb.branch_id = $1 AND tb.is_active = TRUE
		`
		args = append(args, *branchID)
	}

	query += " ORDER BY name ASC"

	var therapists []*model.Therapist
	err := r.db.SelectContext(ctx, &therapists, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list therapists: %w", err)
	}
	return therapists, nil
}

func (r *therapistRepository) ListByService(ctx context.Context, serviceID uuid.UUID, branchID *uuid.UUID) ([]*model.Therapist, error) {
	query := `
		SELECT t.id, t.name, t.email, t.phone, t.specialty, t.created_at, t.updated_at
		FROM therapists t
		JOIN therapist_services ts ON ts.therapist_id = t.id
		WHERE ts.service_id = $1
	`
	args := []interface{}{serviceID}

	if branchID != nil {
		query += `
			AND EXISTS (
				SELECT 1 FROM therapist_branches tb
				WHERE tb.therapist_id = t.id AND tb.branch_id = $2 AND tb.is_active = TRUE
			)
		`
		args = append(args, *branchID)
	}

	query += " ORDER BY t.name ASC"

	var therapists []*model.Therapist
	err := r.db.SelectContext(ctx, &therapists, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list therapists by service: %w", err)
	}
	return therapists, nil
}

func (r *therapistRepository) AddBranch(ctx context.Context, therapistID, branchID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO therapist_branches (therapist_id, branch_id, is_active)
		VALUES ($1, $2, TRUE)
		ON CONFLICT (therapist_id, branch_id) DO UPDATE SET is_active = TRUE
	`, therapistID, branchID)
	if err != nil {
		return fmt.Errorf("failed to add branch to therapist: %w", err)
	}
	return nil
}

func (r *therapistRepository) DeactivateBranch(ctx context.Context, therapistID, branchID uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE therapist_branches
		SET is_active = FALSE
		WHERE therapist_id = $1 AND branch_id = $2
	`, therapistID, branchID)
	if err != nil {
		return fmt.Errorf("failed to deactivate therapist branch: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperror.NotFound("therapist %s is not associated with branch %s", therapistID, branchID)
	}

	return nil
}

func (r *therapistRepository) ListBranches(ctx context.Context, therapistID uuid.UUID) ([]*model.TherapistBranch, error) {
	var branches []*model.TherapistBranch
	err := r.db.SelectContext(ctx, &branches, `
		SELECT therapist_id, branch_id, is_active
		FROM therapist_branches
		WHERE therapist_id = $1 AND is_active = TRUE
	`, therapistID)
	if err != nil {
		return nil, fmt.Errorf("failed to list therapist branches: %w", err)
	}
	return branches, nil
}

func (r *therapistRepository) FirstActiveBranch(ctx context.Context, therapistID uuid.UUID) (*uuid.UUID, error) {
	var branchID uuid.UUID
	err := r.db.GetContext(ctx, &branchID, `
		SELECT branch_id FROM therapist_branches
		WHERE therapist_id = $1 AND is_active = TRUE
		ORDER BY branch_id ASC
		LIMIT 1
	`, therapistID)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get therapist branch: %w", err)
	}
	return &branchID, nil
}

func (r *therapistRepository) HasBranch(ctx context.Context, therapistID, branchID uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `
		SELECT EXISTS (
			SELECT 1 FROM therapist_branches
			WHERE therapist_id = $1 AND branch_id = $2 AND is_active = TRUE
		)
	`, therapistID, branchID)
	if err != nil {
		return false, fmt.Errorf("failed to check therapist branch: %w", err)
	}
	return exists, nil
}

func (r *therapistRepository) AddService(ctx context.Context, therapistID, serviceID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO therapist_services (therapist_id, service_id)
		VALUES ($1, $2)
		ON CONFLICT (therapist_id, service_id) DO NOTHING
	`, therapistID, serviceID)
	if err != nil {
		return fmt.Errorf("failed to add service to therapist: %w", err)
	}
	return nil
}

func (r *therapistRepository) RemoveService(ctx context.Context, therapistID, serviceID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM therapist_services
		WHERE therapist_id = $1 AND service_id = $2
	`, therapistID, serviceID)
	if err != nil {
		return fmt.Errorf("failed to remove service from therapist: %w", err)
	}
	return nil
}
