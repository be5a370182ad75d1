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

type subscriptionRepository struct {
	BaseRepository
}

func NewSubscriptionRepository(db *sqlx.DB) *subscriptionRepository {
	return &subscriptionRepository{BaseRepository: NewBaseRepository(db)}
}

const subscriptionColumns = `
	id, plan_id, client_id, branch_id, token, token_expires_at,
	accepted_at, valid_until, status, remaining_sessions,
	cancellation_reason, created_at, updated_at`

func (r *subscriptionRepository) Create(ctx context.Context, subscription *model.Subscription) error {
	query := `
		INSERT INTO subscriptions (
			id, plan_id, client_id, branch_id, token, token_expires_at,
			accepted_at, valid_until, status, remaining_sessions,
			cancellation_reason, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	subscription.ID = uuid.New()
	subscription.CreatedAt = time.Now()
	subscription.UpdatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		subscription.ID,
		subscription.PlanID,
		subscription.ClientID,
		subscription.BranchID,
		subscription.Token,
		subscription.TokenExpiresAt,
		subscription.AcceptedAt,
		subscription.ValidUntil,
		subscription.Status,
		subscription.RemainingSessions,
		subscription.CancellationReason,
		subscription.CreatedAt,
		subscription.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create subscription: %w", err)
	}
	return nil
}

func (r *subscriptionRepository) Get(ctx context.Context, id uuid.UUID) (*model.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE id = $1`

	var subscription model.Subscription
	err := r.db.GetContext(ctx, &subscription, query, id)
	if err != nil {
		if isNoRows(err) {
			return nil, apperror.NotFound("subscription %s not found", id)
		}
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}
	return &subscription, nil
}

func (r *subscriptionRepository) GetByToken(ctx context.Context, token string) (*model.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE token = $1`

	var subscription model.Subscription
	err := r.db.GetContext(ctx, &subscription, query, token)
	if err != nil {
		if isNoRows(err) {
			return nil, apperror.NotFound("subscription token is invalid")
		}
		return nil, fmt.Errorf("failed to get subscription by token: %w", err)
	}
	return &subscription, nil
}

func (r *subscriptionRepository) Update(ctx context.Context, subscription *model.Subscription) error {
	query := `
		UPDATE subscriptions
		SET status = $1, remaining_sessions = $2, accepted_at = $3,
		    valid_until = $4, cancellation_reason = $5, updated_at = $6
		WHERE id = $7
	`
	subscription.UpdatedAt = time.Now()

	result, err := r.db.ExecContext(ctx, query,
		subscription.Status,
		subscription.RemainingSessions,
		subscription.AcceptedAt,
		subscription.ValidUntil,
		subscription.CancellationReason,
		subscription.UpdatedAt,
		subscription.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update subscription: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperror.NotFound("subscription %s not found", subscription.ID)
	}

	return nil
}

func (r *subscriptionRepository) List(ctx context.Context, filters *model.SubscriptionFilters) ([]*model.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE 1=1`
	args := []interface{}{}
	argCount := 1

	if filters != nil {
		if filters.ClientID != nil {
			query += fmt.Sprintf(" AND client_id = $%d", argCount)
			args = append(args, *filters.ClientID)
			argCount++
		}
		if filters.BranchID != nil {
			query += fmt.Sprintf(" AND branch_id = $%d", argCount)
			args = append(args, *filters.BranchID)
			argCount++
		}
		if filters.Status != nil {
			query += fmt.Sprintf(" AND status = $%d", argCount)
			args = append(args, *filters.Status)
			argCount++
		}
	}

	query += " ORDER BY created_at DESC"

	var subscriptions []*model.Subscription
	err := r.db.SelectContext(ctx, &subscriptions, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	return subscriptions, nil
}

func (r *subscriptionRepository) FindOldestActiveForClient(ctx context.Context, clientID uuid.UUID) (*model.Subscription, error) {
	query := `
		SELECT ` + subscriptionColumns + `
		FROM subscriptions
		WHERE client_id = $1
		AND status = 'ACTIVE'
		AND remaining_sessions > 0
		ORDER BY created_at ASC
		LIMIT 1
	`
	var subscription model.Subscription
	err := r.db.GetContext(ctx, &subscription, query, clientID)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find active subscription: %w", err)
	}
	return &subscription, nil
}

func (r *subscriptionRepository) CountActiveForPlan(ctx context.Context, planID uuid.UUID) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM subscriptions
		WHERE plan_id = $1 AND status = 'ACTIVE'
	`, planID)
	if err != nil {
		return 0, fmt.Errorf("failed to count active subscriptions: %w", err)
	}
	return count, nil
}

func (r *subscriptionRepository) Accept(ctx context.Context, subscription *model.Subscription, txn *model.FinancialTransaction) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		subscription.UpdatedAt = time.Now()

		_, err := tx.ExecContext(ctx, `
			UPDATE subscriptions
			SET status = $1, accepted_at = $2, valid_until = $3, updated_at = $4
			WHERE id = $5
		`,
			subscription.Status,
			subscription.AcceptedAt,
			subscription.ValidUntil,
			subscription.UpdatedAt,
			subscription.ID,
		)
		if err != nil {
			return fmt.Errorf("failed to accept subscription: %w", err)
		}

		return insertTransactionTx(ctx, tx, txn)
	})
}

func (r *subscriptionRepository) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE subscriptions
		SET status = 'EXPIRED', updated_at = $1
		WHERE status = 'ACTIVE' AND valid_until IS NOT NULL AND valid_until < $1
	`, now)
	if err != nil {
		return 0, fmt.Errorf("failed to expire subscriptions: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows, nil
}
