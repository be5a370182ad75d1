package model

import (
	"time"

	"github.com/google/uuid"
)

type SubscriptionStatus string

const (
	SubscriptionStatusPending   SubscriptionStatus = "PENDING"
	SubscriptionStatusActive    SubscriptionStatus = "ACTIVE"
	SubscriptionStatusCompleted SubscriptionStatus = "COMPLETED"
	SubscriptionStatusExpired   SubscriptionStatus = "EXPIRED"
	SubscriptionStatusCanceled  SubscriptionStatus = "CANCELED"
)

// TherapyPlan is reference data: a purchasable bundle of sessions.
type TherapyPlan struct {
	Base
	Name          string  `db:"name" json:"name"`
	Description   *string `db:"description" json:"description,omitempty"`
	TotalSessions int     `db:"total_sessions" json:"total_sessions"`
	TotalPrice    float64 `db:"total_price" json:"total_price"`
	ValidityDays  int     `db:"validity_days" json:"validity_days"`
	IsActive      bool    `db:"is_active" json:"is_active"`
}

// SessionPrice is the implied per-session price. Division is exact
// floating point; the store keeps amounts as NUMERIC.
func (p *TherapyPlan) SessionPrice() float64 {
	return p.TotalPrice / float64(p.TotalSessions)
}

// Subscription is a client's purchased plan instance. RemainingSessions only
// decreases through a consumption and only increases through a refund.
type Subscription struct {
	Base
	PlanID             uuid.UUID          `db:"plan_id" json:"plan_id"`
	ClientID           uuid.UUID          `db:"client_id" json:"client_id"`
	BranchID           *uuid.UUID         `db:"branch_id" json:"branch_id,omitempty"`
	Token              string             `db:"token" json:"-"`
	TokenExpiresAt     time.Time          `db:"token_expires_at" json:"token_expires_at"`
	AcceptedAt         *time.Time         `db:"accepted_at" json:"accepted_at,omitempty"`
	ValidUntil         *time.Time         `db:"valid_until" json:"valid_until,omitempty"`
	Status             SubscriptionStatus `db:"status" json:"status"`
	RemainingSessions  int                `db:"remaining_sessions" json:"remaining_sessions"`
	CancellationReason *string            `db:"cancellation_reason" json:"cancellation_reason,omitempty"`
}

// SubscriptionConsumption debits one session unit from a subscription,
// linked 1:1 to an appointment via the unique appointment_id column.
type SubscriptionConsumption struct {
	Base
	SubscriptionID uuid.UUID  `db:"subscription_id" json:"subscription_id"`
	AppointmentID  uuid.UUID  `db:"appointment_id" json:"appointment_id"`
	BranchID       *uuid.UUID `db:"branch_id" json:"branch_id,omitempty"`
	ConsumedAt     time.Time  `db:"consumed_at" json:"consumed_at"`
	WasRefunded    bool       `db:"was_refunded" json:"was_refunded"`
	RefundReason   *string    `db:"refund_reason" json:"refund_reason,omitempty"`
}

type CreateTherapyPlanRequest struct {
	Name          string   `json:"name" binding:"required"`
	Description   *string  `json:"description,omitempty"`
	TotalSessions int      `json:"total_sessions" binding:"required,min=1"`
	TotalPrice    float64  `json:"total_price" binding:"required,gt=0"`
	ValidityDays  int      `json:"validity_days" binding:"required,min=1"`
	IsActive      *bool    `json:"is_active,omitempty"`
	BranchIDs     []string `json:"branch_ids,omitempty"`
}

type UpdateTherapyPlanRequest struct {
	Name          *string  `json:"name,omitempty"`
	Description   *string  `json:"description,omitempty"`
	TotalSessions *int     `json:"total_sessions,omitempty"`
	TotalPrice    *float64 `json:"total_price,omitempty"`
	ValidityDays  *int     `json:"validity_days,omitempty"`
	IsActive      *bool    `json:"is_active,omitempty"`
}

type CreateSubscriptionRequest struct {
	PlanID   uuid.UUID  `json:"plan_id" binding:"required"`
	ClientID uuid.UUID  `json:"client_id" binding:"required"`
	BranchID *uuid.UUID `json:"branch_id,omitempty"`
}

type SubscriptionFilters struct {
	ClientID *uuid.UUID
	BranchID *uuid.UUID
	Status   *SubscriptionStatus
}
