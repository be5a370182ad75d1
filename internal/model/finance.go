package model

import (
	"time"

	"github.com/google/uuid"
)

type TransactionType string

const (
	TransactionTypeRevenue TransactionType = "REVENUE"
	TransactionTypeExpense TransactionType = "EXPENSE"
)

// Transaction categories written by the booking core.
const (
	CategorySessionConsumption = "SESSION_CONSUMPTION"
	CategorySessionRefund      = "SESSION_REFUND"
	CategoryNoShowFee          = "NO_SHOW_FEE"
	CategoryPlanSale           = "PLAN_SALE"
)

// FinancialTransaction is the money side of the ledger. Reference points at
// the row that caused the transaction (consumption, appointment,
// subscription), disambiguated by ReferenceType.
type FinancialTransaction struct {
	Base
	Type          TransactionType `db:"type" json:"type"`
	Amount        float64         `db:"amount" json:"amount"`
	Description   string          `db:"description" json:"description"`
	Category      string          `db:"category" json:"category"`
	Date          time.Time       `db:"date" json:"date"`
	ClientID      *uuid.UUID      `db:"client_id" json:"client_id,omitempty"`
	BranchID      *uuid.UUID      `db:"branch_id" json:"branch_id,omitempty"`
	Reference     *uuid.UUID      `db:"reference" json:"reference,omitempty"`
	ReferenceType *string         `db:"reference_type" json:"reference_type,omitempty"`
}

type TransactionFilters struct {
	Type      *TransactionType
	Category  *string
	ClientID  *uuid.UUID
	BranchID  *uuid.UUID
	StartDate *time.Time
	EndDate   *time.Time
}
