package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/vidaplena/clinic-api/internal/model"
)

// All repository interfaces in one file
type (
	// AppointmentRepository persists bookings. Create and Update surface
	// overlap-constraint violations as apperror.Conflict.
	AppointmentRepository interface {
		Create(ctx context.Context, appointment *model.Appointment) error
		Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
		Update(ctx context.Context, appointment *model.Appointment) error
		Delete(ctx context.Context, id uuid.UUID) error
		List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error)
		// ListActiveForTherapistDate returns non-canceled appointments for a
		// therapist on a calendar day, optionally narrowed to a branch.
		ListActiveForTherapistDate(ctx context.Context, therapistID uuid.UUID, date time.Time, branchID *uuid.UUID) ([]*model.Appointment, error)
		// ListActiveForTherapistRange is the month-level variant.
		ListActiveForTherapistRange(ctx context.Context, therapistID uuid.UUID, from, to time.Time, branchID *uuid.UUID) ([]*model.Appointment, error)
		ListActiveForClientDate(ctx context.Context, clientID uuid.UUID, date time.Time) ([]*model.Appointment, error)
	}

	ScheduleRepository interface {
		Create(ctx context.Context, schedule *model.Schedule) error
		Get(ctx context.Context, id uuid.UUID) (*model.Schedule, error)
		Update(ctx context.Context, schedule *model.Schedule) error
		Delete(ctx context.Context, id uuid.UUID) error
		ListForTherapist(ctx context.Context, therapistID uuid.UUID, branchID *uuid.UUID) ([]*model.Schedule, error)
		ListForTherapistDay(ctx context.Context, therapistID uuid.UUID, dayOfWeek int, branchID *uuid.UUID) ([]*model.Schedule, error)
		// FindDuplicate looks for a window identical to the given one,
		// excluding excludeID when editing.
		FindDuplicate(ctx context.Context, schedule *model.Schedule, excludeID *uuid.UUID) (*model.Schedule, error)
	}

	// LedgerRepository is the atomic boundary of the session-consumption
	// ledger: the Apply* methods run all their writes in one transaction.
	LedgerRepository interface {
		GetConsumption(ctx context.Context, id uuid.UUID) (*model.SubscriptionConsumption, error)
		GetConsumptionByAppointment(ctx context.Context, appointmentID uuid.UUID) (*model.SubscriptionConsumption, error)
		// ApplyConsumption inserts the consumption row, persists the updated
		// subscription counters/status and records the revenue transaction.
		// A duplicate appointment link surfaces as apperror.Conflict.
		ApplyConsumption(ctx context.Context, consumption *model.SubscriptionConsumption, subscription *model.Subscription, txn *model.FinancialTransaction) error
		// ApplyRefund marks the consumption refunded, persists the updated
		// subscription (nil to skip), cancels the appointment and records the
		// expense transaction (nil to skip).
		ApplyRefund(ctx context.Context, consumption *model.SubscriptionConsumption, subscription *model.Subscription, appointment *model.Appointment, txn *model.FinancialTransaction) error
		// ApplyNoShowFee persists the appointment's NO_SHOW status with its
		// fee and records the fee revenue; the appointment never flips
		// without its transaction.
		ApplyNoShowFee(ctx context.Context, appointment *model.Appointment, txn *model.FinancialTransaction) error
	}

	SubscriptionRepository interface {
		Create(ctx context.Context, subscription *model.Subscription) error
		Get(ctx context.Context, id uuid.UUID) (*model.Subscription, error)
		GetByToken(ctx context.Context, token string) (*model.Subscription, error)
		Update(ctx context.Context, subscription *model.Subscription) error
		List(ctx context.Context, filters *model.SubscriptionFilters) ([]*model.Subscription, error)
		// FindOldestActiveForClient returns the oldest ACTIVE subscription
		// with sessions left, or nil when the client has none.
		FindOldestActiveForClient(ctx context.Context, clientID uuid.UUID) (*model.Subscription, error)
		CountActiveForPlan(ctx context.Context, planID uuid.UUID) (int, error)
		// Accept persists the activated subscription and the plan-sale
		// transaction atomically.
		Accept(ctx context.Context, subscription *model.Subscription, txn *model.FinancialTransaction) error
		// ExpireOverdue flips ACTIVE subscriptions past their validity to
		// EXPIRED and reports how many were updated.
		ExpireOverdue(ctx context.Context, now time.Time) (int64, error)
	}

	PlanRepository interface {
		Create(ctx context.Context, plan *model.TherapyPlan) error
		Get(ctx context.Context, id uuid.UUID) (*model.TherapyPlan, error)
		Update(ctx context.Context, plan *model.TherapyPlan) error
		Delete(ctx context.Context, id uuid.UUID) error
		List(ctx context.Context, branchID *uuid.UUID) ([]*model.TherapyPlan, error)
		AssociateBranches(ctx context.Context, planID uuid.UUID, branchIDs []uuid.UUID) error
	}

	TherapistRepository interface {
		Create(ctx context.Context, therapist *model.Therapist) error
		Get(ctx context.Context, id uuid.UUID) (*model.Therapist, error)
		Update(ctx context.Context, therapist *model.Therapist) error
		List(ctx context.Context, branchID *uuid.UUID) ([]*model.Therapist, error)
		ListByService(ctx context.Context, serviceID uuid.UUID, branchID *uuid.UUID) ([]*model.Therapist, error)
		AddBranch(ctx context.Context, therapistID, branchID uuid.UUID) error
		DeactivateBranch(ctx context.Context, therapistID, branchID uuid.UUID) error
		ListBranches(ctx context.Context, therapistID uuid.UUID) ([]*model.TherapistBranch, error)
		// FirstActiveBranch returns nil when the therapist has no active
		// branch association.
		FirstActiveBranch(ctx context.Context, therapistID uuid.UUID) (*uuid.UUID, error)
		HasBranch(ctx context.Context, therapistID, branchID uuid.UUID) (bool, error)
		AddService(ctx context.Context, therapistID, serviceID uuid.UUID) error
		RemoveService(ctx context.Context, therapistID, serviceID uuid.UUID) error
	}

	ClientRepository interface {
		Create(ctx context.Context, client *model.Client) error
		Get(ctx context.Context, id uuid.UUID) (*model.Client, error)
		GetByEmail(ctx context.Context, email string) (*model.Client, error)
		GetByPhone(ctx context.Context, phone string) (*model.Client, error)
	}

	BranchRepository interface {
		Get(ctx context.Context, id uuid.UUID) (*model.Branch, error)
		List(ctx context.Context) ([]*model.Branch, error)
	}

	ServiceRepository interface {
		Get(ctx context.Context, id uuid.UUID) (*model.Service, error)
		List(ctx context.Context, branchID *uuid.UUID) ([]*model.Service, error)
	}

	TransactionRepository interface {
		Create(ctx context.Context, txn *model.FinancialTransaction) error
		List(ctx context.Context, filters *model.TransactionFilters) ([]*model.FinancialTransaction, error)
	}
)
