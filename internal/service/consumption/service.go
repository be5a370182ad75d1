// Package consumption manages the session ledger: debiting sessions from
// subscriptions against appointments and crediting them back on refund.
package consumption

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/vidaplena/clinic-api/internal/model"
	"github.com/vidaplena/clinic-api/internal/repository"
	"github.com/vidaplena/clinic-api/pkg/apperror"
)

type Service struct {
	ledgerRepo       repository.LedgerRepository
	subscriptionRepo repository.SubscriptionRepository
	planRepo         repository.PlanRepository
	appointmentRepo  repository.AppointmentRepository
}

func NewService(
	ledgerRepo repository.LedgerRepository,
	subscriptionRepo repository.SubscriptionRepository,
	planRepo repository.PlanRepository,
	appointmentRepo repository.AppointmentRepository,
) *Service {
	return &Service{
		ledgerRepo:       ledgerRepo,
		subscriptionRepo: subscriptionRepo,
		planRepo:         planRepo,
		appointmentRepo:  appointmentRepo,
	}
}

// Consume debits one session from the subscription for the given appointment.
// The consumption row, the updated counters and the revenue entry are written
// in one transaction; a second consumption for the same appointment fails
// with a conflict.
func (s *Service) Consume(ctx context.Context, subscriptionID, appointmentID uuid.UUID, branchID *uuid.UUID) (*model.SubscriptionConsumption, error) {
	appointment, err := s.appointmentRepo.Get(ctx, appointmentID)
	if err != nil {
		return nil, err
	}

	sub, err := s.subscriptionRepo.Get(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}
	if sub.ClientID != appointment.ClientID {
		return nil, apperror.Validation("subscription %s belongs to a different client than appointment %s", sub.ID, appointment.ID)
	}
	if sub.Status != model.SubscriptionStatusActive {
		return nil, apperror.InvalidState("subscription %s is %s, not ACTIVE", sub.ID, sub.Status)
	}
	if sub.RemainingSessions <= 0 {
		return nil, apperror.InsufficientSessions("subscription %s has no sessions left", sub.ID)
	}

	plan, err := s.planRepo.Get(ctx, sub.PlanID)
	if err != nil {
		return nil, err
	}

	if branchID == nil {
		branchID = sub.BranchID
	}

	consumption := &model.SubscriptionConsumption{
		SubscriptionID: sub.ID,
		AppointmentID:  appointmentID,
		BranchID:       branchID,
		ConsumedAt:     time.Now(),
	}

	sub.RemainingSessions--
	if sub.RemainingSessions == 0 {
		sub.Status = model.SubscriptionStatusCompleted
	}

	txn := &model.FinancialTransaction{
		Type:          model.TransactionTypeRevenue,
		Amount:        plan.SessionPrice(),
		Description:   "Session consumed from plan " + plan.Name,
		Category:      model.CategorySessionConsumption,
		Date:          time.Now(),
		ClientID:      &sub.ClientID,
		BranchID:      branchID,
		ReferenceType: refType("subscription_consumption"),
	}

	if err := s.ledgerRepo.ApplyConsumption(ctx, consumption, sub, txn); err != nil {
		return nil, err
	}
	return consumption, nil
}

// ConsumeForAppointment debits a session for the appointment using the
// client's oldest active subscription. It is idempotent per appointment and
// returns nil without error when the client has no usable subscription;
// callers treat a missing subscription as advisory, not fatal.
func (s *Service) ConsumeForAppointment(ctx context.Context, appointment *model.Appointment) (*model.SubscriptionConsumption, error) {
	existing, err := s.ledgerRepo.GetConsumptionByAppointment(ctx, appointment.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	sub, err := s.subscriptionRepo.FindOldestActiveForClient(ctx, appointment.ClientID)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, nil
	}

	return s.Consume(ctx, sub.ID, appointment.ID, appointment.BranchID)
}

// Refund credits the consumed session back. The subscription regains one
// session (capped at the plan total), a COMPLETED subscription reactivates,
// the linked appointment is canceled and an expense entry offsets the
// original revenue. Refunding twice fails with ALREADY_REFUNDED.
func (s *Service) Refund(ctx context.Context, consumptionID uuid.UUID, reason string) error {
	consumption, err := s.ledgerRepo.GetConsumption(ctx, consumptionID)
	if err != nil {
		return err
	}
	if consumption.WasRefunded {
		return apperror.AlreadyRefunded("consumption %s was already refunded", consumption.ID)
	}

	sub, err := s.subscriptionRepo.Get(ctx, consumption.SubscriptionID)
	if err != nil {
		return err
	}
	plan, err := s.planRepo.Get(ctx, sub.PlanID)
	if err != nil {
		return err
	}

	// Only a live subscription gets the session back; an EXPIRED or CANCELED
	// one keeps its counters as they were.
	switch sub.Status {
	case model.SubscriptionStatusActive:
		if sub.RemainingSessions < plan.TotalSessions {
			sub.RemainingSessions++
		}
	case model.SubscriptionStatusCompleted:
		if sub.RemainingSessions < plan.TotalSessions {
			sub.RemainingSessions++
		}
		sub.Status = model.SubscriptionStatusActive
	}

	var appointment *model.Appointment
	apt, err := s.appointmentRepo.Get(ctx, consumption.AppointmentID)
	if err != nil {
		if !apperror.Is(err, apperror.CodeNotFound) {
			return err
		}
	} else if !apt.Status.IsTerminal() {
		apt.Status = model.AppointmentStatusCanceled
		appointment = apt
	}

	txn := &model.FinancialTransaction{
		Type:          model.TransactionTypeExpense,
		Amount:        plan.SessionPrice(),
		Description:   "Session refunded to plan " + plan.Name,
		Category:      model.CategorySessionRefund,
		Date:          time.Now(),
		ClientID:      &sub.ClientID,
		BranchID:      consumption.BranchID,
		Reference:     &consumption.ID,
		ReferenceType: refType("subscription_consumption"),
	}

	consumption.WasRefunded = true
	consumption.RefundReason = &reason

	return s.ledgerRepo.ApplyRefund(ctx, consumption, sub, appointment, txn)
}

// ConsumptionForAppointment returns the consumption linked to the
// appointment, or nil when none exists.
func (s *Service) ConsumptionForAppointment(ctx context.Context, appointmentID uuid.UUID) (*model.SubscriptionConsumption, error) {
	return s.ledgerRepo.GetConsumptionByAppointment(ctx, appointmentID)
}

// RefundForAppointment refunds the consumption linked to the appointment, if
// any. Reports whether a refund happened.
func (s *Service) RefundForAppointment(ctx context.Context, appointmentID uuid.UUID, reason string) (bool, error) {
	consumption, err := s.ledgerRepo.GetConsumptionByAppointment(ctx, appointmentID)
	if err != nil {
		return false, err
	}
	if consumption == nil || consumption.WasRefunded {
		return false, nil
	}
	if err := s.Refund(ctx, consumption.ID, reason); err != nil {
		return false, err
	}
	return true, nil
}

func refType(s string) *string { return &s }
