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

type scheduleRepository struct {
	BaseRepository
}

func NewScheduleRepository(db *sqlx.DB) *scheduleRepository {
	return &scheduleRepository{BaseRepository: NewBaseRepository(db)}
}

const scheduleColumns = `
	id, therapist_id, branch_id, day_of_week, start_time, end_time,
	created_at, updated_at`

func (r *scheduleRepository) Create(ctx context.Context, schedule *model.Schedule) error {
	query := `
		INSERT INTO schedules (
			id, therapist_id, branch_id, day_of_week, start_time, end_time,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	schedule.ID = uuid.New()
	schedule.CreatedAt = time.Now()
	schedule.UpdatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		schedule.ID,
		schedule.TherapistID,
		schedule.BranchID,
		schedule.DayOfWeek,
		schedule.StartTime,
		schedule.EndTime,
		schedule.CreatedAt,
		schedule.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create schedule: %w", err)
	}
	return nil
}

func (r *scheduleRepository) Get(ctx context.Context, id uuid.UUID) (*model.Schedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM schedules WHERE id = $1`

	var schedule model.Schedule
	err := r.db.GetContext(ctx, &schedule, query, id)
	if err != nil {
		if isNoRows(err) {
			return nil, apperror.NotFound("schedule %s not found", id)
		}
		return nil, fmt.Errorf("failed to get schedule: %w", err)
	}
	return &schedule, nil
}

func (r *scheduleRepository) Update(ctx context.Context, schedule *model.Schedule) error {
	query := `
		UPDATE schedules
		SET day_of_week = $1, start_time = $2, end_time = $3, updated_at = $4
		WHERE id = $5
	`
	schedule.UpdatedAt = time.Now()

	result, err := r.db.ExecContext(ctx, query,
		schedule.DayOfWeek,
		schedule.StartTime,
		schedule.EndTime,
		schedule.UpdatedAt,
		schedule.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update schedule: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperror.NotFound("schedule %s not found", schedule.ID)
	}

	return nil
}

func (r *scheduleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM schedules WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete schedule: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperror.NotFound("schedule %s not found", id)
	}

	return nil
}

func (r *scheduleRepository) ListForTherapist(ctx context.Context, therapistID uuid.UUID, branchID *uuid.UUID) ([]*model.Schedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM schedules WHERE therapist_id = $1`
	args := []interface{}{therapistID}

	if branchID != nil {
		query += " AND branch_id = $2"
		args = append(args, *branchID)
	}

	query += " ORDER BY day_of_week ASC, start_time ASC"

	var schedules []*model.Schedule
	err := r.db.SelectContext(ctx, &schedules, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list schedules: %w", err)
	}
	return schedules, nil
}

func (r *scheduleRepository) ListForTherapistDay(ctx context.Context, therapistID uuid.UUID, dayOfWeek int, branchID *uuid.UUID) ([]*model.Schedule, error) {
	query := `
		SELECT ` + scheduleColumns + `
		FROM schedules
		WHERE therapist_id = $1
		AND day_of_week = $2
	`
	args := []interface{}{therapistID, dayOfWeek}

	if branchID != nil {
		query += " AND branch_id = $3"
		args = append(args, *branchID)
	}

	query += " ORDER BY start_time ASC"

	var schedules []*model.Schedule
	err := r.db.SelectContext(ctx, &schedules, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list schedules: %w", err)
	}
	return schedules, nil
}

func (r *scheduleRepository) FindDuplicate(ctx context.Context, schedule *model.Schedule, excludeID *uuid.UUID) (*model.Schedule, error) {
	query := `
		SELECT ` + scheduleColumns + `
		FROM schedules
		WHERE therapist_id = $1
		AND branch_id = $2
		AND day_of_week = $3
		AND start_time = $4
		AND end_time = $5
	`
	args := []interface{}{
		schedule.TherapistID,
		schedule.BranchID,
		schedule.DayOfWeek,
		schedule.StartTime,
		schedule.EndTime,
	}

	if excludeID != nil {
		query += " AND id != $6"
		args = append(args, *excludeID)
	}

	var found model.Schedule
	err := r.db.GetContext(ctx, &found, query, args...)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find duplicate schedule: %w", err)
	}
	return &found, nil
}
