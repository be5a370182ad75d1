// Package finance exposes the transaction ledger and period summaries.
package finance

import (
	"context"

	"github.com/vidaplena/clinic-api/internal/model"
	"github.com/vidaplena/clinic-api/internal/repository"
)

type Service struct {
	transactionRepo repository.TransactionRepository
}

func NewService(transactionRepo repository.TransactionRepository) *Service {
	return &Service{transactionRepo: transactionRepo}
}

func (s *Service) List(ctx context.Context, filters *model.TransactionFilters) ([]*model.FinancialTransaction, error) {
	return s.transactionRepo.List(ctx, filters)
}

// Summary aggregates the transactions matching the filters.
type Summary struct {
	TotalRevenue float64 `json:"total_revenue"`
	TotalExpense float64 `json:"total_expense"`
	Net          float64 `json:"net"`
	Count        int     `json:"count"`
}

func (s *Service) Summarize(ctx context.Context, filters *model.TransactionFilters) (*Summary, error) {
	txns, err := s.transactionRepo.List(ctx, filters)
	if err != nil {
		return nil, err
	}

	summary := &Summary{Count: len(txns)}
	for _, txn := range txns {
		switch txn.Type {
		case model.TransactionTypeRevenue:
			summary.TotalRevenue += txn.Amount
		case model.TransactionTypeExpense:
			summary.TotalExpense += txn.Amount
		}
	}
	summary.Net = summary.TotalRevenue - summary.TotalExpense
	return summary, nil
}
