package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/vidaplena/clinic-api/internal/model"
)

type transactionRepository struct {
	BaseRepository
}

func NewTransactionRepository(db *sqlx.DB) *transactionRepository {
	return &transactionRepository{BaseRepository: NewBaseRepository(db)}
}

func (r *transactionRepository) Create(ctx context.Context, txn *model.FinancialTransaction) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		return insertTransactionTx(ctx, tx, txn)
	})
}

func (r *transactionRepository) List(ctx context.Context, filters *model.TransactionFilters) ([]*model.FinancialTransaction, error) {
	query := `
		SELECT id, type, amount, description, category, date,
		       client_id, branch_id, reference, reference_type,
		       created_at, updated_at
		FROM financial_transactions
		WHERE 1=1
	`
	args := []interface{}{}
	argCount := 1

	if filters != nil {
		if filters.Type != nil {
			query += fmt.Sprintf(" AND type = $%d", argCount)
			args = append(args, *filters.Type)
			argCount++
		}
		if filters.Category != nil {
			query += fmt.Sprintf(" AND category = $%d", argCount)
			args = append(args, *filters.Category)
			argCount++
		}
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
		if filters.StartDate != nil {
			query += fmt.Sprintf(" AND date >= $%d", argCount)
			args = append(args, *filters.StartDate)
			argCount++
		}
		if filters.EndDate != nil {
			query += fmt.Sprintf(" AND date <= $%d", argCount)
			args = append(args, *filters.EndDate)
			argCount++
		}
	}

	query += " ORDER BY date DESC"

	var txns []*model.FinancialTransaction
	err := r.db.SelectContext(ctx, &txns, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return txns, nil
}
