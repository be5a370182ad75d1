// Package appointment implements the booking lifecycle: create, confirm,
// cancel under the refund policy, and reschedule.
package appointment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vidaplena/clinic-api/internal/email"
	"github.com/vidaplena/clinic-api/internal/model"
	"github.com/vidaplena/clinic-api/internal/repository"
	"github.com/vidaplena/clinic-api/internal/service/availability"
	"github.com/vidaplena/clinic-api/internal/service/consumption"
	"github.com/vidaplena/clinic-api/pkg/apperror"
	"github.com/vidaplena/clinic-api/pkg/timeutil"
)

// Policy holds the cancellation and no-show knobs, resolved from config.
type Policy struct {
	// RefundCutoffHours: cancellations at least this far ahead refund the
	// consumed session.
	RefundCutoffHours int
	// DefaultNoShowFee applies when the appointment carries no override.
	DefaultNoShowFee float64
	// Location is the clinic's fixed reference offset, used only to measure
	// hours until the appointment.
	Location *time.Location
}

type Service struct {
	appointmentRepo repository.AppointmentRepository
	clientRepo      repository.ClientRepository
	therapistRepo   repository.TherapistRepository
	ledgerRepo      repository.LedgerRepository
	availabilitySvc *availability.Service
	consumptionSvc  *consumption.Service
	sender          email.Sender
	policy          Policy
	logger          zerolog.Logger
	now             func() time.Time
}

func NewService(
	appointmentRepo repository.AppointmentRepository,
	clientRepo repository.ClientRepository,
	therapistRepo repository.TherapistRepository,
	ledgerRepo repository.LedgerRepository,
	availabilitySvc *availability.Service,
	consumptionSvc *consumption.Service,
	sender email.Sender,
	policy Policy,
	logger zerolog.Logger,
) *Service {
	if policy.Location == nil {
		policy.Location = time.UTC
	}
	return &Service{
		appointmentRepo: appointmentRepo,
		clientRepo:      clientRepo,
		therapistRepo:   therapistRepo,
		ledgerRepo:      ledgerRepo,
		availabilitySvc: availabilitySvc,
		consumptionSvc:  consumptionSvc,
		sender:          sender,
		policy:          policy,
		logger:          logger,
		now:             time.Now,
	}
}

// BookingResult pairs the booked appointment with the outcome of the
// best-effort session consumption.
type BookingResult struct {
	Appointment     *model.Appointment `json:"appointment"`
	SessionConsumed bool               `json:"session_consumed"`
	Message         string             `json:"message,omitempty"`
}

func validateInterval(startTime, endTime string) (timeutil.Clock, timeutil.Clock, error) {
	start, err := timeutil.ParseClock(startTime)
	if err != nil {
		return 0, 0, apperror.Validation("%v", err)
	}
	end, err := timeutil.ParseClock(endTime)
	if err != nil {
		return 0, 0, apperror.Validation("%v", err)
	}
	if !start.Before(end) {
		return 0, 0, apperror.Validation("start time %s must be before end time %s", startTime, endTime)
	}
	return start, end, nil
}

// Create books a new PENDING appointment. The slot is validated against the
// therapist's schedule and existing bookings; the database overlap constraint
// closes the remaining race. Session consumption is attempted best-effort and
// never fails the booking.
func (s *Service) Create(ctx context.Context, req *model.CreateAppointmentRequest) (*BookingResult, error) {
	date, err := timeutil.ParseDate(req.Date)
	if err != nil {
		return nil, apperror.Validation("%v", err)
	}
	if _, _, err := validateInterval(req.StartTime, req.EndTime); err != nil {
		return nil, err
	}

	if _, err := s.clientRepo.Get(ctx, req.ClientID); err != nil {
		return nil, err
	}
	if _, err := s.therapistRepo.Get(ctx, req.TherapistID); err != nil {
		return nil, err
	}

	branchID := req.BranchID
	if branchID == nil {
		branchID, err = s.therapistRepo.FirstActiveBranch(ctx, req.TherapistID)
		if err != nil {
			return nil, err
		}
	}

	if err := s.availabilitySvc.CheckBookable(ctx, req.TherapistID, date, req.StartTime, req.EndTime, branchID, nil); err != nil {
		return nil, err
	}
	if err := s.checkClientFree(ctx, req.ClientID, date, req.StartTime, req.EndTime, nil); err != nil {
		return nil, err
	}

	appointment := &model.Appointment{
		ClientID:    req.ClientID,
		TherapistID: req.TherapistID,
		ServiceID:   req.ServiceID,
		BranchID:    branchID,
		Date:        date,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		Status:      model.AppointmentStatusPending,
	}
	if err := s.appointmentRepo.Create(ctx, appointment); err != nil {
		return nil, err
	}

	result := &BookingResult{Appointment: appointment}
	s.consumeBestEffort(ctx, appointment, req.SubscriptionID, result)
	return result, nil
}

// checkClientFree fails with Conflict when the client already has a
// non-canceled appointment overlapping the interval, with any therapist.
// excludeID skips the appointment being rescheduled.
func (s *Service) checkClientFree(ctx context.Context, clientID uuid.UUID, date time.Time, startTime, endTime string, excludeID *uuid.UUID) error {
	start, end, err := validateInterval(startTime, endTime)
	if err != nil {
		return err
	}

	appointments, err := s.appointmentRepo.ListActiveForClientDate(ctx, clientID, date)
	if err != nil {
		return err
	}
	for _, apt := range appointments {
		if excludeID != nil && apt.ID == *excludeID {
			continue
		}
		aptStart, err := timeutil.ParseClock(apt.StartTime)
		if err != nil {
			return fmt.Errorf("appointment %s has malformed start time: %w", apt.ID, err)
		}
		aptEnd, err := timeutil.ParseClock(apt.EndTime)
		if err != nil {
			return fmt.Errorf("appointment %s has malformed end time: %w", apt.ID, err)
		}
		if timeutil.Overlaps(start, end, aptStart, aptEnd) {
			return apperror.Conflict("client already has an appointment overlapping %s-%s on %s",
				startTime, endTime, timeutil.FormatDate(date))
		}
	}
	return nil
}

// consumeBestEffort tries to debit a session and records the outcome on the
// result. Consumption failures are reported as a message, never as an error.
func (s *Service) consumeBestEffort(ctx context.Context, appointment *model.Appointment, subscriptionID *uuid.UUID, result *BookingResult) {
	var (
		cons *model.SubscriptionConsumption
		err  error
	)
	if subscriptionID != nil {
		cons, err = s.consumptionSvc.Consume(ctx, *subscriptionID, appointment.ID, appointment.BranchID)
	} else {
		cons, err = s.consumptionSvc.ConsumeForAppointment(ctx, appointment)
	}
	switch {
	case err != nil:
		s.logger.Warn().Err(err).
			Str("appointment_id", appointment.ID.String()).
			Msg("session consumption failed")
		result.Message = fmt.Sprintf("appointment booked, but no session was consumed: %v", err)
	case cons == nil:
		result.Message = "appointment booked without an active subscription; no session was consumed"
	default:
		result.SessionConsumed = true
	}
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	return s.appointmentRepo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	return s.appointmentRepo.List(ctx, filters)
}

// Confirm moves a PENDING appointment to CONFIRMED and retries the session
// consumption if none is linked yet. Confirming a CONFIRMED appointment is a
// no-op; terminal appointments cannot be confirmed.
func (s *Service) Confirm(ctx context.Context, id uuid.UUID) (*BookingResult, error) {
	appointment, err := s.appointmentRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	result := &BookingResult{Appointment: appointment}
	switch appointment.Status {
	case model.AppointmentStatusConfirmed:
		return result, nil
	case model.AppointmentStatusPending:
	default:
		return nil, apperror.InvalidState("cannot confirm appointment in status %s", appointment.Status)
	}

	appointment.Status = model.AppointmentStatusConfirmed
	if err := s.appointmentRepo.Update(ctx, appointment); err != nil {
		return nil, err
	}

	s.consumeBestEffort(ctx, appointment, nil, result)
	s.notifyConfirmation(ctx, appointment)
	return result, nil
}

// notifyConfirmation emails the client about the confirmed booking. Delivery
// failures are logged, never surfaced.
func (s *Service) notifyConfirmation(ctx context.Context, appointment *model.Appointment) {
	if s.sender == nil {
		return
	}
	client, err := s.clientRepo.Get(ctx, appointment.ClientID)
	if err != nil || client.Email == "" {
		return
	}
	therapist, err := s.therapistRepo.Get(ctx, appointment.TherapistID)
	if err != nil {
		return
	}
	if err := s.sender.SendAppointmentConfirmation(
		client.Email, client.Name, therapist.Name,
		timeutil.FormatDate(appointment.Date), appointment.StartTime,
	); err != nil {
		s.logger.Warn().Err(err).
			Str("appointment_id", appointment.ID.String()).
			Msg("failed to send confirmation email")
	}
}

// CancelOutcome describes how the cancellation policy resolved.
type CancelOutcome struct {
	Appointment     *model.Appointment `json:"appointment"`
	SessionRefunded bool               `json:"session_refunded"`
	FeeCharged      float64            `json:"fee_charged,omitempty"`
}

// hoursUntil measures the time from now to the appointment start, in the
// clinic's reference offset.
func (s *Service) hoursUntil(appointment *model.Appointment) (float64, error) {
	start, err := timeutil.ParseClock(appointment.StartTime)
	if err != nil {
		return 0, fmt.Errorf("appointment %s has malformed start time: %w", appointment.ID, err)
	}
	at := timeutil.At(appointment.Date, start, s.policy.Location)
	return at.Sub(s.now()).Hours(), nil
}

// Cancel applies the cancellation policy. Without a linked session
// consumption, cancellation just sets CANCELED. With one:
//   - at or past the refund cutoff, the consumed session is refunded and the
//     appointment is canceled;
//   - inside the cutoff with applyNoShowFee, the appointment becomes NO_SHOW,
//     the fee is charged and the session stays spent;
//   - inside the cutoff without the fee, the appointment is canceled and the
//     session stays spent.
//
// Canceling an already CANCELED appointment is a no-op.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, reason string, applyNoShowFee bool) (*CancelOutcome, error) {
	appointment, err := s.appointmentRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	switch appointment.Status {
	case model.AppointmentStatusCanceled:
		return &CancelOutcome{Appointment: appointment}, nil
	case model.AppointmentStatusCompleted, model.AppointmentStatusNoShow:
		return nil, apperror.InvalidState("cannot cancel appointment in status %s", appointment.Status)
	}

	consumption, err := s.consumptionSvc.ConsumptionForAppointment(ctx, appointment.ID)
	if err != nil {
		return nil, err
	}
	if consumption == nil || consumption.WasRefunded {
		appointment.Status = model.AppointmentStatusCanceled
		if err := s.appointmentRepo.Update(ctx, appointment); err != nil {
			return nil, err
		}
		return &CancelOutcome{Appointment: appointment}, nil
	}

	hours, err := s.hoursUntil(appointment)
	if err != nil {
		return nil, err
	}

	if hours >= float64(s.policy.RefundCutoffHours) {
		return s.cancelWithRefund(ctx, appointment, reason)
	}
	return s.cancelLate(ctx, appointment, reason, applyNoShowFee)
}

func (s *Service) cancelWithRefund(ctx context.Context, appointment *model.Appointment, reason string) (*CancelOutcome, error) {
	refunded, err := s.consumptionSvc.RefundForAppointment(ctx, appointment.ID, reason)
	if err != nil {
		return nil, err
	}
	if refunded {
		// The refund transaction already flipped the appointment to CANCELED.
		appointment.Status = model.AppointmentStatusCanceled
		return &CancelOutcome{Appointment: appointment, SessionRefunded: true}, nil
	}

	appointment.Status = model.AppointmentStatusCanceled
	if err := s.appointmentRepo.Update(ctx, appointment); err != nil {
		return nil, err
	}
	return &CancelOutcome{Appointment: appointment}, nil
}

// cancelLate handles cancellations inside the refund cutoff: the consumed
// session stays spent either way.
func (s *Service) cancelLate(ctx context.Context, appointment *model.Appointment, reason string, applyNoShowFee bool) (*CancelOutcome, error) {
	fee := s.policy.DefaultNoShowFee
	if appointment.NoShowFee != nil {
		fee = *appointment.NoShowFee
	}

	if !applyNoShowFee || fee <= 0 {
		appointment.Status = model.AppointmentStatusCanceled
		if err := s.appointmentRepo.Update(ctx, appointment); err != nil {
			return nil, err
		}
		return &CancelOutcome{Appointment: appointment}, nil
	}

	appointment.Status = model.AppointmentStatusNoShow
	appointment.NoShowFee = &fee

	txn := &model.FinancialTransaction{
		Type:          model.TransactionTypeRevenue,
		Amount:        fee,
		Description:   "Late cancellation fee: " + reason,
		Category:      model.CategoryNoShowFee,
		Date:          s.now(),
		ClientID:      &appointment.ClientID,
		BranchID:      appointment.BranchID,
		Reference:     &appointment.ID,
		ReferenceType: refType("appointment"),
	}
	// The status flip and the fee entry commit together.
	if err := s.ledgerRepo.ApplyNoShowFee(ctx, appointment, txn); err != nil {
		return nil, err
	}

	return &CancelOutcome{Appointment: appointment, FeeCharged: fee}, nil
}

// Reschedule moves a non-terminal appointment to a new slot and resets it to
// PENDING. The target slot must be free; the appointment's own booking does
// not count as a conflict. An existing consumption link is left untouched.
func (s *Service) Reschedule(ctx context.Context, id uuid.UUID, req *model.RescheduleAppointmentRequest) (*model.Appointment, error) {
	appointment, err := s.appointmentRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if appointment.Status.IsTerminal() {
		return nil, apperror.InvalidState("cannot reschedule appointment in status %s", appointment.Status)
	}

	date, err := timeutil.ParseDate(req.Date)
	if err != nil {
		return nil, apperror.Validation("%v", err)
	}
	if _, _, err := validateInterval(req.StartTime, req.EndTime); err != nil {
		return nil, err
	}

	if err := s.availabilitySvc.CheckBookable(ctx, appointment.TherapistID, date, req.StartTime, req.EndTime, appointment.BranchID, &appointment.ID); err != nil {
		return nil, err
	}
	if err := s.checkClientFree(ctx, appointment.ClientID, date, req.StartTime, req.EndTime, &appointment.ID); err != nil {
		return nil, err
	}

	appointment.Date = date
	appointment.StartTime = req.StartTime
	appointment.EndTime = req.EndTime
	appointment.Status = model.AppointmentStatusPending
	if err := s.appointmentRepo.Update(ctx, appointment); err != nil {
		return nil, err
	}
	return appointment, nil
}

// Complete marks a CONFIRMED or PENDING appointment as attended.
func (s *Service) Complete(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	appointment, err := s.appointmentRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if appointment.Status.IsTerminal() {
		return nil, apperror.InvalidState("cannot complete appointment in status %s", appointment.Status)
	}
	appointment.Status = model.AppointmentStatusCompleted
	if err := s.appointmentRepo.Update(ctx, appointment); err != nil {
		return nil, err
	}
	return appointment, nil
}

func refType(s string) *string { return &s }
