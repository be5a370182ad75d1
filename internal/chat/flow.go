// Package chat drives the conversational booking flow behind the messaging
// webhook. Each inbound message advances a per-phone session through service,
// therapist, date and slot selection until an appointment is booked.
package chat

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/vidaplena/clinic-api/internal/model"
	"github.com/vidaplena/clinic-api/internal/repository"
	"github.com/vidaplena/clinic-api/internal/service/appointment"
	"github.com/vidaplena/clinic-api/internal/service/availability"
	"github.com/vidaplena/clinic-api/pkg/apperror"
	"github.com/vidaplena/clinic-api/pkg/timeutil"
)

const maxListedOptions = 9

type Flow struct {
	store           SessionStore
	clientRepo      repository.ClientRepository
	serviceRepo     repository.ServiceRepository
	therapistRepo   repository.TherapistRepository
	availabilitySvc *availability.Service
	appointmentSvc  *appointment.Service
	logger          zerolog.Logger
	now             func() time.Time
}

func NewFlow(
	store SessionStore,
	clientRepo repository.ClientRepository,
	serviceRepo repository.ServiceRepository,
	therapistRepo repository.TherapistRepository,
	availabilitySvc *availability.Service,
	appointmentSvc *appointment.Service,
	logger zerolog.Logger,
) *Flow {
	return &Flow{
		store:           store,
		clientRepo:      clientRepo,
		serviceRepo:     serviceRepo,
		therapistRepo:   therapistRepo,
		availabilitySvc: availabilitySvc,
		appointmentSvc:  appointmentSvc,
		logger:          logger,
		now:             time.Now,
	}
}

// HandleMessage advances the conversation for the phone and returns the reply
// to send back. "cancelar" resets the conversation at any step.
func (f *Flow) HandleMessage(ctx context.Context, phone, text string) (string, error) {
	text = strings.TrimSpace(text)

	if strings.EqualFold(text, "cancelar") {
		if err := f.store.Delete(ctx, phone); err != nil {
			return "", err
		}
		return "Booking canceled. Send any message to start again.", nil
	}

	session, err := f.store.Get(ctx, phone)
	if err != nil {
		return "", err
	}
	if session == nil {
		return f.start(ctx, phone)
	}

	switch session.Step {
	case StepChooseService:
		return f.chooseService(ctx, session, text)
	case StepChooseTherapist:
		return f.chooseTherapist(ctx, session, text)
	case StepChooseDate:
		return f.chooseDate(ctx, session, text)
	case StepChooseSlot:
		return f.chooseSlot(ctx, session, text)
	case StepConfirm:
		return f.confirm(ctx, session, text)
	default:
		if err := f.store.Delete(ctx, phone); err != nil {
			return "", err
		}
		return f.start(ctx, phone)
	}
}

func (f *Flow) start(ctx context.Context, phone string) (string, error) {
	client, err := f.clientRepo.GetByPhone(ctx, phone)
	if err != nil {
		if apperror.Is(err, apperror.CodeNotFound) {
			return "We could not find a registration for this phone number. Please sign up at the clinic before booking.", nil
		}
		return "", err
	}

	services, err := f.serviceRepo.List(ctx, nil)
	if err != nil {
		return "", err
	}
	if len(services) == 0 {
		return "No services are available for booking right now.", nil
	}
	if len(services) > maxListedOptions {
		services = services[:maxListedOptions]
	}

	session := &Session{
		Phone:    phone,
		ClientID: client.ID,
		Step:     StepChooseService,
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s! Which service would you like to book?\n", client.Name)
	for i, svc := range services {
		session.ServiceIDs = append(session.ServiceIDs, svc.ID)
		fmt.Fprintf(&b, "%d. %s\n", i+1, svc.Name)
	}
	b.WriteString("Reply with the number of your choice.")

	if err := f.store.Save(ctx, session); err != nil {
		return "", err
	}
	return b.String(), nil
}

// pickOption parses a 1-based menu reply.
func pickOption(text string, n int) (int, bool) {
	idx, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || idx < 1 || idx > n {
		return 0, false
	}
	return idx - 1, true
}

func (f *Flow) chooseService(ctx context.Context, session *Session, text string) (string, error) {
	idx, ok := pickOption(text, len(session.ServiceIDs))
	if !ok {
		return fmt.Sprintf("Please reply with a number between 1 and %d.", len(session.ServiceIDs)), nil
	}
	serviceID := session.ServiceIDs[idx]

	therapists, err := f.therapistRepo.ListByService(ctx, serviceID, nil)
	if err != nil {
		return "", err
	}
	if len(therapists) == 0 {
		return "No therapist offers that service at the moment. Reply with another number.", nil
	}
	if len(therapists) > maxListedOptions {
		therapists = therapists[:maxListedOptions]
	}

	session.ServiceID = &serviceID
	session.ServiceIDs = nil
	session.TherapistIDs = nil
	session.Step = StepChooseTherapist

	var b strings.Builder
	b.WriteString("Who would you like to see?\n")
	for i, t := range therapists {
		session.TherapistIDs = append(session.TherapistIDs, t.ID)
		fmt.Fprintf(&b, "%d. %s (%s)\n", i+1, t.Name, t.Specialty)
	}
	b.WriteString("Reply with the number of your choice.")

	if err := f.store.Save(ctx, session); err != nil {
		return "", err
	}
	return b.String(), nil
}

func (f *Flow) chooseTherapist(ctx context.Context, session *Session, text string) (string, error) {
	idx, ok := pickOption(text, len(session.TherapistIDs))
	if !ok {
		return fmt.Sprintf("Please reply with a number between 1 and %d.", len(session.TherapistIDs)), nil
	}
	therapistID := session.TherapistIDs[idx]

	branchID, err := f.therapistRepo.FirstActiveBranch(ctx, therapistID)
	if err != nil {
		return "", err
	}

	session.TherapistID = &therapistID
	session.BranchID = branchID
	session.TherapistIDs = nil
	session.Step = StepChooseDate

	if err := f.store.Save(ctx, session); err != nil {
		return "", err
	}
	return "Which day works for you? Reply with a date like 2026-09-15.", nil
}

func (f *Flow) chooseDate(ctx context.Context, session *Session, text string) (string, error) {
	day, err := timeutil.ParseDate(text)
	if err != nil {
		return "That does not look like a date. Reply with a date like 2026-09-15.", nil
	}
	today := f.now()
	todayDate := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	if day.Before(todayDate) {
		return "That date is in the past. Please choose a future date.", nil
	}

	slots, err := f.availabilitySvc.GetAvailableSlots(ctx, *session.TherapistID, text, session.ServiceID, session.BranchID)
	if err != nil {
		return "", err
	}
	if len(slots) == 0 {
		return "No free slots on that day. Try another date.", nil
	}
	if len(slots) > maxListedOptions {
		slots = slots[:maxListedOptions]
	}

	session.Date = text
	session.Slots = slots
	session.Step = StepChooseSlot

	var b strings.Builder
	fmt.Fprintf(&b, "Available times on %s:\n", text)
	for i, slot := range slots {
		fmt.Fprintf(&b, "%d. %s\n", i+1, slot)
	}
	b.WriteString("Reply with the number of your choice.")

	if err := f.store.Save(ctx, session); err != nil {
		return "", err
	}
	return b.String(), nil
}

func (f *Flow) chooseSlot(ctx context.Context, session *Session, text string) (string, error) {
	idx, ok := pickOption(text, len(session.Slots))
	if !ok {
		return fmt.Sprintf("Please reply with a number between 1 and %d.", len(session.Slots)), nil
	}

	start, err := timeutil.ParseClock(session.Slots[idx])
	if err != nil {
		return "", err
	}
	duration := model.DefaultServiceDuration
	if session.ServiceID != nil {
		svc, err := f.serviceRepo.Get(ctx, *session.ServiceID)
		if err == nil && svc.AverageDuration > 0 {
			duration = svc.AverageDuration
		}
	}

	session.StartTime = start.String()
	session.EndTime = start.Add(duration).String()
	session.Slots = nil
	session.Step = StepConfirm

	if err := f.store.Save(ctx, session); err != nil {
		return "", err
	}
	return fmt.Sprintf("Book %s from %s to %s? Reply YES to confirm or CANCELAR to abort.",
		session.Date, session.StartTime, session.EndTime), nil
}

func (f *Flow) confirm(ctx context.Context, session *Session, text string) (string, error) {
	if !strings.EqualFold(text, "yes") && !strings.EqualFold(text, "sim") {
		return "Reply YES to confirm or CANCELAR to abort.", nil
	}

	result, err := f.appointmentSvc.Create(ctx, &model.CreateAppointmentRequest{
		ClientID:    session.ClientID,
		TherapistID: *session.TherapistID,
		ServiceID:   session.ServiceID,
		BranchID:    session.BranchID,
		Date:        session.Date,
		StartTime:   session.StartTime,
		EndTime:     session.EndTime,
	})
	if err != nil {
		if apperror.Is(err, apperror.CodeNotAvailable) || apperror.Is(err, apperror.CodeConflict) {
			// Someone took the slot between listing and confirming.
			session.Step = StepChooseDate
			session.StartTime = ""
			session.EndTime = ""
			if saveErr := f.store.Save(ctx, session); saveErr != nil {
				return "", saveErr
			}
			return "Sorry, that time was just taken. Which other day works for you?", nil
		}
		return "", err
	}

	if err := f.store.Delete(ctx, session.Phone); err != nil {
		f.logger.Warn().Err(err).Str("phone", session.Phone).Msg("failed to clear chat session")
	}

	reply := fmt.Sprintf("All set! Your appointment is booked for %s at %s.",
		session.Date, session.StartTime)
	if result.Message != "" {
		reply += " " + result.Message
	}
	return reply, nil
}
