package chat

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidaplena/clinic-api/internal/model"
	"github.com/vidaplena/clinic-api/internal/service/appointment"
	"github.com/vidaplena/clinic-api/internal/service/availability"
	"github.com/vidaplena/clinic-api/internal/service/consumption"
	"github.com/vidaplena/clinic-api/pkg/apperror"
)

type memStore struct {
	sessions map[string]*Session
}

func newMemStore() *memStore {
	return &memStore{sessions: map[string]*Session{}}
}

func (m *memStore) Get(ctx context.Context, phone string) (*Session, error) {
	return m.sessions[phone], nil
}
func (m *memStore) Save(ctx context.Context, session *Session) error {
	m.sessions[session.Phone] = session
	return nil
}
func (m *memStore) Delete(ctx context.Context, phone string) error {
	delete(m.sessions, phone)
	return nil
}

type stubClientRepo struct {
	byPhone map[string]*model.Client
}

func (s *stubClientRepo) Create(ctx context.Context, c *model.Client) error { return nil }
func (s *stubClientRepo) Get(ctx context.Context, id uuid.UUID) (*model.Client, error) {
	for _, c := range s.byPhone {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, apperror.NotFound("client %s not found", id)
}
func (s *stubClientRepo) GetByEmail(ctx context.Context, email string) (*model.Client, error) {
	return nil, apperror.NotFound("not found")
}
func (s *stubClientRepo) GetByPhone(ctx context.Context, phone string) (*model.Client, error) {
	c, ok := s.byPhone[phone]
	if !ok {
		return nil, apperror.NotFound("no client with phone %s", phone)
	}
	return c, nil
}

type stubServiceRepo struct {
	services []*model.Service
}

func (s *stubServiceRepo) Get(ctx context.Context, id uuid.UUID) (*model.Service, error) {
	for _, svc := range s.services {
		if svc.ID == id {
			return svc, nil
		}
	}
	return nil, apperror.NotFound("service %s not found", id)
}
func (s *stubServiceRepo) List(ctx context.Context, branchID *uuid.UUID) ([]*model.Service, error) {
	return s.services, nil
}

type stubTherapistRepo struct {
	therapists []*model.Therapist
}

func (s *stubTherapistRepo) Create(ctx context.Context, t *model.Therapist) error { return nil }
func (s *stubTherapistRepo) Get(ctx context.Context, id uuid.UUID) (*model.Therapist, error) {
	for _, t := range s.therapists {
		if t.ID == id {
			return t, nil
		}
	}
	return nil, apperror.NotFound("therapist %s not found", id)
}
func (s *stubTherapistRepo) Update(ctx context.Context, t *model.Therapist) error { return nil }
func (s *stubTherapistRepo) List(ctx context.Context, branchID *uuid.UUID) ([]*model.Therapist, error) {
	return s.therapists, nil
}
func (s *stubTherapistRepo) ListByService(ctx context.Context, serviceID uuid.UUID, branchID *uuid.UUID) ([]*model.Therapist, error) {
	return s.therapists, nil
}
func (s *stubTherapistRepo) AddBranch(ctx context.Context, therapistID, branchID uuid.UUID) error {
	return nil
}
func (s *stubTherapistRepo) DeactivateBranch(ctx context.Context, therapistID, branchID uuid.UUID) error {
	return nil
}
func (s *stubTherapistRepo) ListBranches(ctx context.Context, therapistID uuid.UUID) ([]*model.TherapistBranch, error) {
	return nil, nil
}
func (s *stubTherapistRepo) FirstActiveBranch(ctx context.Context, therapistID uuid.UUID) (*uuid.UUID, error) {
	return nil, nil
}
func (s *stubTherapistRepo) HasBranch(ctx context.Context, therapistID, branchID uuid.UUID) (bool, error) {
	return true, nil
}
func (s *stubTherapistRepo) AddService(ctx context.Context, therapistID, serviceID uuid.UUID) error {
	return nil
}
func (s *stubTherapistRepo) RemoveService(ctx context.Context, therapistID, serviceID uuid.UUID) error {
	return nil
}

type stubScheduleRepo struct {
	byDay map[int][]*model.Schedule
}

func (s *stubScheduleRepo) Create(ctx context.Context, schedule *model.Schedule) error { return nil }
func (s *stubScheduleRepo) Get(ctx context.Context, id uuid.UUID) (*model.Schedule, error) {
	return nil, apperror.NotFound("schedule %s not found", id)
}
func (s *stubScheduleRepo) Update(ctx context.Context, schedule *model.Schedule) error { return nil }
func (s *stubScheduleRepo) Delete(ctx context.Context, id uuid.UUID) error             { return nil }
func (s *stubScheduleRepo) ListForTherapist(ctx context.Context, therapistID uuid.UUID, branchID *uuid.UUID) ([]*model.Schedule, error) {
	var all []*model.Schedule
	for _, schedules := range s.byDay {
		all = append(all, schedules...)
	}
	return all, nil
}
func (s *stubScheduleRepo) ListForTherapistDay(ctx context.Context, therapistID uuid.UUID, dayOfWeek int, branchID *uuid.UUID) ([]*model.Schedule, error) {
	return s.byDay[dayOfWeek], nil
}
func (s *stubScheduleRepo) FindDuplicate(ctx context.Context, schedule *model.Schedule, excludeID *uuid.UUID) (*model.Schedule, error) {
	return nil, nil
}

type memAppointmentRepo struct {
	appointments map[uuid.UUID]*model.Appointment
}

func newMemAppointmentRepo() *memAppointmentRepo {
	return &memAppointmentRepo{appointments: map[uuid.UUID]*model.Appointment{}}
}

func (m *memAppointmentRepo) Create(ctx context.Context, a *model.Appointment) error {
	a.ID = uuid.New()
	stored := *a
	m.appointments[a.ID] = &stored
	return nil
}
func (m *memAppointmentRepo) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	a, ok := m.appointments[id]
	if !ok {
		return nil, apperror.NotFound("appointment %s not found", id)
	}
	copied := *a
	return &copied, nil
}
func (m *memAppointmentRepo) Update(ctx context.Context, a *model.Appointment) error {
	stored := *a
	m.appointments[a.ID] = &stored
	return nil
}
func (m *memAppointmentRepo) Delete(ctx context.Context, id uuid.UUID) error {
	delete(m.appointments, id)
	return nil
}
func (m *memAppointmentRepo) List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	return nil, nil
}
func (m *memAppointmentRepo) ListActiveForTherapistDate(ctx context.Context, therapistID uuid.UUID, date time.Time, branchID *uuid.UUID) ([]*model.Appointment, error) {
	var out []*model.Appointment
	for _, a := range m.appointments {
		if a.TherapistID == therapistID && a.Date.Equal(date) && a.Status != model.AppointmentStatusCanceled {
			copied := *a
			out = append(out, &copied)
		}
	}
	return out, nil
}
func (m *memAppointmentRepo) ListActiveForTherapistRange(ctx context.Context, therapistID uuid.UUID, from, to time.Time, branchID *uuid.UUID) ([]*model.Appointment, error) {
	return nil, nil
}
func (m *memAppointmentRepo) ListActiveForClientDate(ctx context.Context, clientID uuid.UUID, date time.Time) ([]*model.Appointment, error) {
	var out []*model.Appointment
	for _, a := range m.appointments {
		if a.ClientID == clientID && a.Date.Equal(date) && a.Status != model.AppointmentStatusCanceled {
			copied := *a
			out = append(out, &copied)
		}
	}
	return out, nil
}

type noLedgerRepo struct{}

func (noLedgerRepo) GetConsumption(ctx context.Context, id uuid.UUID) (*model.SubscriptionConsumption, error) {
	return nil, apperror.NotFound("consumption %s not found", id)
}
func (noLedgerRepo) GetConsumptionByAppointment(ctx context.Context, appointmentID uuid.UUID) (*model.SubscriptionConsumption, error) {
	return nil, nil
}
func (noLedgerRepo) ApplyConsumption(ctx context.Context, c *model.SubscriptionConsumption, s *model.Subscription, txn *model.FinancialTransaction) error {
	return nil
}
func (noLedgerRepo) ApplyRefund(ctx context.Context, c *model.SubscriptionConsumption, s *model.Subscription, a *model.Appointment, txn *model.FinancialTransaction) error {
	return nil
}
func (noLedgerRepo) ApplyNoShowFee(ctx context.Context, a *model.Appointment, txn *model.FinancialTransaction) error {
	return nil
}

type noSubscriptionRepo struct{}

func (noSubscriptionRepo) Create(ctx context.Context, s *model.Subscription) error { return nil }
func (noSubscriptionRepo) Get(ctx context.Context, id uuid.UUID) (*model.Subscription, error) {
	return nil, apperror.NotFound("subscription %s not found", id)
}
func (noSubscriptionRepo) GetByToken(ctx context.Context, token string) (*model.Subscription, error) {
	return nil, apperror.NotFound("not found")
}
func (noSubscriptionRepo) Update(ctx context.Context, s *model.Subscription) error { return nil }
func (noSubscriptionRepo) List(ctx context.Context, filters *model.SubscriptionFilters) ([]*model.Subscription, error) {
	return nil, nil
}
func (noSubscriptionRepo) FindOldestActiveForClient(ctx context.Context, clientID uuid.UUID) (*model.Subscription, error) {
	return nil, nil
}
func (noSubscriptionRepo) CountActiveForPlan(ctx context.Context, planID uuid.UUID) (int, error) {
	return 0, nil
}
func (noSubscriptionRepo) Accept(ctx context.Context, s *model.Subscription, txn *model.FinancialTransaction) error {
	return nil
}
func (noSubscriptionRepo) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	return 0, nil
}

type noPlanRepo struct{}

func (noPlanRepo) Create(ctx context.Context, p *model.TherapyPlan) error { return nil }
func (noPlanRepo) Get(ctx context.Context, id uuid.UUID) (*model.TherapyPlan, error) {
	return nil, apperror.NotFound("plan %s not found", id)
}
func (noPlanRepo) Update(ctx context.Context, p *model.TherapyPlan) error { return nil }
func (noPlanRepo) Delete(ctx context.Context, id uuid.UUID) error         { return nil }
func (noPlanRepo) List(ctx context.Context, branchID *uuid.UUID) ([]*model.TherapyPlan, error) {
	return nil, nil
}
func (noPlanRepo) AssociateBranches(ctx context.Context, planID uuid.UUID, branchIDs []uuid.UUID) error {
	return nil
}

type flowFixture struct {
	flow         *Flow
	store        *memStore
	appointments *memAppointmentRepo
	client       *model.Client
	therapist    *model.Therapist
}

// 2026-08-24 is a Monday.
const monday = "2026-08-24"

func newFlowFixture(t *testing.T) *flowFixture {
	t.Helper()

	client := &model.Client{
		Base:  model.Base{ID: uuid.New()},
		Name:  "Ana",
		Phone: "+5511999990000",
	}
	therapist := &model.Therapist{
		Base:      model.Base{ID: uuid.New()},
		Name:      "Dr. Souza",
		Specialty: "Physiotherapy",
	}
	service := &model.Service{
		Base:            model.Base{ID: uuid.New()},
		Name:            "Physiotherapy Session",
		AverageDuration: 60,
	}

	clients := &stubClientRepo{byPhone: map[string]*model.Client{client.Phone: client}}
	services := &stubServiceRepo{services: []*model.Service{service}}
	therapists := &stubTherapistRepo{therapists: []*model.Therapist{therapist}}
	schedules := &stubScheduleRepo{byDay: map[int][]*model.Schedule{
		1: {{Base: model.Base{ID: uuid.New()}, DayOfWeek: 1, StartTime: "09:00", EndTime: "17:00"}},
	}}
	appointments := newMemAppointmentRepo()

	availabilitySvc := availability.NewService(schedules, appointments, services)
	consumptionSvc := consumption.NewService(noLedgerRepo{}, noSubscriptionRepo{}, noPlanRepo{}, appointments)
	appointmentSvc := appointment.NewService(
		appointments, clients, therapists, noLedgerRepo{},
		availabilitySvc, consumptionSvc, nil,
		appointment.Policy{RefundCutoffHours: 24, DefaultNoShowFee: 50},
		zerolog.Nop(),
	)

	store := newMemStore()
	flow := NewFlow(store, clients, services, therapists, availabilitySvc, appointmentSvc, zerolog.Nop())
	flow.now = func() time.Time { return time.Date(2026, time.August, 20, 10, 0, 0, 0, time.UTC) }

	return &flowFixture{
		flow:         flow,
		store:        store,
		appointments: appointments,
		client:       client,
		therapist:    therapist,
	}
}

func (f *flowFixture) send(t *testing.T, text string) string {
	t.Helper()
	reply, err := f.flow.HandleMessage(context.Background(), f.client.Phone, text)
	require.NoError(t, err)
	return reply
}

func TestFlowBooksAppointmentEndToEnd(t *testing.T) {
	f := newFlowFixture(t)

	reply := f.send(t, "hi")
	assert.Contains(t, reply, "Hi Ana!")
	assert.Contains(t, reply, "1. Physiotherapy Session")

	reply = f.send(t, "1")
	assert.Contains(t, reply, "Dr. Souza")

	reply = f.send(t, "1")
	assert.Contains(t, reply, "Which day works for you?")

	reply = f.send(t, monday)
	assert.Contains(t, reply, "1. 09:00")

	reply = f.send(t, "1")
	assert.Contains(t, reply, "Book "+monday+" from 09:00 to 10:00?")

	reply = f.send(t, "yes")
	assert.Contains(t, reply, "booked for "+monday+" at 09:00")
	assert.Contains(t, reply, "no session was consumed")

	// The conversation is over; the session is gone.
	assert.Empty(t, f.store.sessions)
	require.Len(t, f.appointments.appointments, 1)
	for _, a := range f.appointments.appointments {
		assert.Equal(t, f.client.ID, a.ClientID)
		assert.Equal(t, f.therapist.ID, a.TherapistID)
		assert.Equal(t, "09:00", a.StartTime)
		assert.Equal(t, "10:00", a.EndTime)
		assert.Equal(t, model.AppointmentStatusPending, a.Status)
	}
}

func TestFlowCancelarResetsAtAnyStep(t *testing.T) {
	f := newFlowFixture(t)

	f.send(t, "hi")
	f.send(t, "1")
	require.NotEmpty(t, f.store.sessions)

	reply := f.send(t, "CANCELAR")
	assert.Contains(t, reply, "Booking canceled")
	assert.Empty(t, f.store.sessions)
}

func TestFlowUnknownPhone(t *testing.T) {
	f := newFlowFixture(t)

	reply, err := f.flow.HandleMessage(context.Background(), "+5511000000000", "hi")
	require.NoError(t, err)
	assert.Contains(t, reply, "could not find a registration")
	assert.Empty(t, f.store.sessions)
}

func TestFlowRejectsInvalidMenuChoice(t *testing.T) {
	f := newFlowFixture(t)

	f.send(t, "hi")
	reply := f.send(t, "7")
	assert.Contains(t, reply, "between 1 and 1")

	// The step did not advance.
	session := f.store.sessions[f.client.Phone]
	require.NotNil(t, session)
	assert.Equal(t, StepChooseService, session.Step)
}

func TestFlowRejectsPastDate(t *testing.T) {
	f := newFlowFixture(t)

	f.send(t, "hi")
	f.send(t, "1")
	f.send(t, "1")

	reply := f.send(t, "2026-08-17")
	assert.Contains(t, reply, "in the past")
	assert.Equal(t, StepChooseDate, f.store.sessions[f.client.Phone].Step)
}

func TestFlowSlotTakenFallsBackToDate(t *testing.T) {
	f := newFlowFixture(t)

	f.send(t, "hi")
	f.send(t, "1")
	f.send(t, "1")
	f.send(t, monday)
	f.send(t, "1")

	// Another client grabs the slot between listing and confirming.
	date, _ := time.Parse("2006-01-02", monday)
	require.NoError(t, f.appointments.Create(context.Background(), &model.Appointment{
		ClientID:    uuid.New(),
		TherapistID: f.therapist.ID,
		Date:        date,
		StartTime:   "09:00",
		EndTime:     "10:00",
		Status:      model.AppointmentStatusConfirmed,
	}))

	reply := f.send(t, "yes")
	assert.Contains(t, reply, "that time was just taken")

	session := f.store.sessions[f.client.Phone]
	require.NotNil(t, session)
	assert.Equal(t, StepChooseDate, session.Step)
}

func TestFlowConfirmRequiresYes(t *testing.T) {
	f := newFlowFixture(t)

	f.send(t, "hi")
	f.send(t, "1")
	f.send(t, "1")
	f.send(t, monday)
	f.send(t, "1")

	reply := f.send(t, "maybe")
	assert.True(t, strings.Contains(reply, "Reply YES to confirm"))
	assert.Equal(t, StepConfirm, f.store.sessions[f.client.Phone].Step)
}
