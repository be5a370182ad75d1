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

// ledgerRepository owns the multi-row mutations of the session-consumption
// ledger. Every Apply* method runs inside one transaction: a session is
// never decremented without its consumption row and financial transaction,
// and a refund never half-applies.
type ledgerRepository struct {
	BaseRepository
}

func NewLedgerRepository(db *sqlx.DB) *ledgerRepository {
	return &ledgerRepository{BaseRepository: NewBaseRepository(db)}
}

const consumptionColumns = `
	id, subscription_id, appointment_id, branch_id, consumed_at,
	was_refunded, refund_reason, created_at, updated_at`

func (r *ledgerRepository) GetConsumption(ctx context.Context, id uuid.UUID) (*model.SubscriptionConsumption, error) {
	query := `SELECT ` + consumptionColumns + ` FROM subscription_consumptions WHERE id = $1`

	var consumption model.SubscriptionConsumption
	err := r.db.GetContext(ctx, &consumption, query, id)
	if err != nil {
		if isNoRows(err) {
			return nil, apperror.NotFound("consumption %s not found", id)
		}
		return nil, fmt.Errorf("failed to get consumption: %w", err)
	}
	return &consumption, nil
}

func (r *ledgerRepository) GetConsumptionByAppointment(ctx context.Context, appointmentID uuid.UUID) (*model.SubscriptionConsumption, error) {
	query := `SELECT ` + consumptionColumns + ` FROM subscription_consumptions WHERE appointment_id = $1`

	var consumption model.SubscriptionConsumption
	err := r.db.GetContext(ctx, &consumption, query, appointmentID)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get consumption by appointment: %w", err)
	}
	return &consumption, nil
}

func (r *ledgerRepository) ApplyConsumption(ctx context.Context, consumption *model.SubscriptionConsumption, subscription *model.Subscription, txn *model.FinancialTransaction) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		consumption.ID = uuid.New()
		consumption.CreatedAt = time.Now()
		consumption.UpdatedAt = time.Now()

		_, err := tx.ExecContext(ctx, `
			INSERT INTO subscription_consumptions (
				id, subscription_id, appointment_id, branch_id, consumed_at,
				was_refunded, refund_reason, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`,
			consumption.ID,
			consumption.SubscriptionID,
			consumption.AppointmentID,
			consumption.BranchID,
			consumption.ConsumedAt,
			consumption.WasRefunded,
			consumption.RefundReason,
			consumption.CreatedAt,
			consumption.UpdatedAt,
		)
		if err != nil {
			if isConstraintViolation(err) {
				// unique appointment_id: the 1:1 link already exists
				return apperror.Conflict("appointment already has a session consumption")
			}
			return fmt.Errorf("failed to create consumption: %w", err)
		}

		if err := updateSubscriptionTx(ctx, tx, subscription); err != nil {
			return err
		}

		return insertTransactionTx(ctx, tx, txn)
	})
}

func (r *ledgerRepository) ApplyRefund(ctx context.Context, consumption *model.SubscriptionConsumption, subscription *model.Subscription, appointment *model.Appointment, txn *model.FinancialTransaction) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		consumption.UpdatedAt = time.Now()

		result, err := tx.ExecContext(ctx, `
			UPDATE subscription_consumptions
			SET was_refunded = TRUE, refund_reason = $1, updated_at = $2
			WHERE id = $3 AND was_refunded = FALSE
		`,
			consumption.RefundReason,
			consumption.UpdatedAt,
			consumption.ID,
		)
		if err != nil {
			return fmt.Errorf("failed to mark consumption refunded: %w", err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rows == 0 {
			// lost a race with another refund of the same consumption
			return apperror.AlreadyRefunded("consumption %s was already refunded", consumption.ID)
		}

		if subscription != nil {
			if err := updateSubscriptionTx(ctx, tx, subscription); err != nil {
				return err
			}
		}

		if appointment != nil {
			appointment.UpdatedAt = time.Now()
			_, err := tx.ExecContext(ctx, `
				UPDATE appointments
				SET status = $1, updated_at = $2
				WHERE id = $3
			`,
				appointment.Status,
				appointment.UpdatedAt,
				appointment.ID,
			)
			if err != nil {
				return fmt.Errorf("failed to update appointment status: %w", err)
			}
		}

		if txn != nil {
			return insertTransactionTx(ctx, tx, txn)
		}
		return nil
	})
}

func (r *ledgerRepository) ApplyNoShowFee(ctx context.Context, appointment *model.Appointment, txn *model.FinancialTransaction) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		appointment.UpdatedAt = time.Now()

		_, err := tx.ExecContext(ctx, `
			UPDATE appointments
			SET status = $1, no_show_fee = $2, updated_at = $3
			WHERE id = $4
		`,
			appointment.Status,
			appointment.NoShowFee,
			appointment.UpdatedAt,
			appointment.ID,
		)
		if err != nil {
			return fmt.Errorf("failed to update appointment status: %w", err)
		}

		return insertTransactionTx(ctx, tx, txn)
	})
}

func updateSubscriptionTx(ctx context.Context, tx *sqlx.Tx, subscription *model.Subscription) error {
	subscription.UpdatedAt = time.Now()

	_, err := tx.ExecContext(ctx, `
		UPDATE subscriptions
		SET remaining_sessions = $1, status = $2, updated_at = $3
		WHERE id = $4
	`,
		subscription.RemainingSessions,
		subscription.Status,
		subscription.UpdatedAt,
		subscription.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update subscription: %w", err)
	}
	return nil
}

func insertTransactionTx(ctx context.Context, tx *sqlx.Tx, txn *model.FinancialTransaction) error {
	txn.ID = uuid.New()
	txn.CreatedAt = time.Now()
	txn.UpdatedAt = time.Now()

	_, err := tx.ExecContext(ctx, `
		INSERT INTO financial_transactions (
			id, type, amount, description, category, date,
			client_id, branch_id, reference, reference_type,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`,
		txn.ID,
		txn.Type,
		txn.Amount,
		txn.Description,
		txn.Category,
		txn.Date,
		txn.ClientID,
		txn.BranchID,
		txn.Reference,
		txn.ReferenceType,
		txn.CreatedAt,
		txn.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create financial transaction: %w", err)
	}
	return nil
}
