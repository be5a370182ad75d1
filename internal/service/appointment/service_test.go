package appointment

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidaplena/clinic-api/internal/model"
	"github.com/vidaplena/clinic-api/internal/service/availability"
	"github.com/vidaplena/clinic-api/internal/service/consumption"
	"github.com/vidaplena/clinic-api/pkg/apperror"
)

// memAppointmentRepo is an in-memory store good enough for exercising the
// booking lifecycle.
type memAppointmentRepo struct {
	stored map[uuid.UUID]*model.Appointment
}

func newMemAppointmentRepo() *memAppointmentRepo {
	return &memAppointmentRepo{stored: map[uuid.UUID]*model.Appointment{}}
}

func (m *memAppointmentRepo) Create(ctx context.Context, a *model.Appointment) error {
	a.ID = uuid.New()
	copied := *a
	m.stored[a.ID] = &copied
	return nil
}

func (m *memAppointmentRepo) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	a, ok := m.stored[id]
	if !ok {
		return nil, apperror.NotFound("appointment %s not found", id)
	}
	copied := *a
	return &copied, nil
}

func (m *memAppointmentRepo) Update(ctx context.Context, a *model.Appointment) error {
	if _, ok := m.stored[a.ID]; !ok {
		return apperror.NotFound("appointment %s not found", a.ID)
	}
	copied := *a
	m.stored[a.ID] = &copied
	return nil
}

func (m *memAppointmentRepo) Delete(ctx context.Context, id uuid.UUID) error {
	delete(m.stored, id)
	return nil
}

func (m *memAppointmentRepo) List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	var out []*model.Appointment
	for _, a := range m.stored {
		out = append(out, a)
	}
	return out, nil
}

func (m *memAppointmentRepo) ListActiveForTherapistDate(ctx context.Context, therapistID uuid.UUID, date time.Time, branchID *uuid.UUID) ([]*model.Appointment, error) {
	var out []*model.Appointment
	for _, a := range m.stored {
		if a.TherapistID == therapistID && a.Date.Equal(date) && a.Status != model.AppointmentStatusCanceled {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memAppointmentRepo) ListActiveForTherapistRange(ctx context.Context, therapistID uuid.UUID, from, to time.Time, branchID *uuid.UUID) ([]*model.Appointment, error) {
	return nil, nil
}

func (m *memAppointmentRepo) ListActiveForClientDate(ctx context.Context, clientID uuid.UUID, date time.Time) ([]*model.Appointment, error) {
	var out []*model.Appointment
	for _, a := range m.stored {
		if a.ClientID == clientID && a.Date.Equal(date) && a.Status != model.AppointmentStatusCanceled {
			out = append(out, a)
		}
	}
	return out, nil
}

type stubScheduleRepo struct {
	byDay map[int][]*model.Schedule
}

func (s *stubScheduleRepo) Create(ctx context.Context, schedule *model.Schedule) error { return nil }
func (s *stubScheduleRepo) Get(ctx context.Context, id uuid.UUID) (*model.Schedule, error) {
	return nil, nil
}
func (s *stubScheduleRepo) Update(ctx context.Context, schedule *model.Schedule) error { return nil }
func (s *stubScheduleRepo) Delete(ctx context.Context, id uuid.UUID) error             { return nil }
func (s *stubScheduleRepo) ListForTherapist(ctx context.Context, therapistID uuid.UUID, branchID *uuid.UUID) ([]*model.Schedule, error) {
	return nil, nil
}
func (s *stubScheduleRepo) ListForTherapistDay(ctx context.Context, therapistID uuid.UUID, dayOfWeek int, branchID *uuid.UUID) ([]*model.Schedule, error) {
	return s.byDay[dayOfWeek], nil
}
func (s *stubScheduleRepo) FindDuplicate(ctx context.Context, schedule *model.Schedule, excludeID *uuid.UUID) (*model.Schedule, error) {
	return nil, nil
}

type stubServiceRepo struct{}

func (stubServiceRepo) Get(ctx context.Context, id uuid.UUID) (*model.Service, error) {
	return nil, apperror.NotFound("service %s not found", id)
}
func (stubServiceRepo) List(ctx context.Context, branchID *uuid.UUID) ([]*model.Service, error) {
	return nil, nil
}

type stubClientRepo struct {
	clients map[uuid.UUID]*model.Client
}

func (s *stubClientRepo) Create(ctx context.Context, c *model.Client) error { return nil }
func (s *stubClientRepo) Get(ctx context.Context, id uuid.UUID) (*model.Client, error) {
	c, ok := s.clients[id]
	if !ok {
		return nil, apperror.NotFound("client %s not found", id)
	}
	return c, nil
}
func (s *stubClientRepo) GetByEmail(ctx context.Context, email string) (*model.Client, error) {
	return nil, apperror.NotFound("client with email %s not found", email)
}
func (s *stubClientRepo) GetByPhone(ctx context.Context, phone string) (*model.Client, error) {
	return nil, apperror.NotFound("client with phone %s not found", phone)
}

type stubTherapistRepo struct {
	therapists map[uuid.UUID]*model.Therapist
}

func (s *stubTherapistRepo) Create(ctx context.Context, th *model.Therapist) error { return nil }
func (s *stubTherapistRepo) Get(ctx context.Context, id uuid.UUID) (*model.Therapist, error) {
	th, ok := s.therapists[id]
	if !ok {
		return nil, apperror.NotFound("therapist %s not found", id)
	}
	return th, nil
}
func (s *stubTherapistRepo) Update(ctx context.Context, th *model.Therapist) error { return nil }
func (s *stubTherapistRepo) List(ctx context.Context, branchID *uuid.UUID) ([]*model.Therapist, error) {
	return nil, nil
}
func (s *stubTherapistRepo) ListByService(ctx context.Context, serviceID uuid.UUID, branchID *uuid.UUID) ([]*model.Therapist, error) {
	return nil, nil
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

type recordingSender struct {
	confirmations []string
	fail          bool
}

func (r *recordingSender) SendSubscriptionInvite(to, clientName, planName, acceptURL string) error {
	return nil
}
func (r *recordingSender) SendAppointmentConfirmation(to, clientName, therapistName, date, startTime string) error {
	if r.fail {
		return assert.AnError
	}
	r.confirmations = append(r.confirmations, to)
	return nil
}

// fakeLedgerRepo backs both the consumption service and the no-show fee path.

type fakeLedgerRepo struct {
	apts          *memAppointmentRepo
	consumptions  map[uuid.UUID]*model.SubscriptionConsumption
	byAppointment map[uuid.UUID]*model.SubscriptionConsumption
	refundedSub   *model.Subscription
	refundedApt   *model.Appointment
	noShowTxns    []*model.FinancialTransaction
	failNoShowFee bool
}

func newFakeLedgerRepo(apts *memAppointmentRepo) *fakeLedgerRepo {
	return &fakeLedgerRepo{
		apts:          apts,
		consumptions:  map[uuid.UUID]*model.SubscriptionConsumption{},
		byAppointment: map[uuid.UUID]*model.SubscriptionConsumption{},
	}
}

func (f *fakeLedgerRepo) GetConsumption(ctx context.Context, id uuid.UUID) (*model.SubscriptionConsumption, error) {
	c, ok := f.consumptions[id]
	if !ok {
		return nil, apperror.NotFound("consumption %s not found", id)
	}
	return c, nil
}
func (f *fakeLedgerRepo) GetConsumptionByAppointment(ctx context.Context, appointmentID uuid.UUID) (*model.SubscriptionConsumption, error) {
	return f.byAppointment[appointmentID], nil
}
func (f *fakeLedgerRepo) ApplyConsumption(ctx context.Context, c *model.SubscriptionConsumption, s *model.Subscription, txn *model.FinancialTransaction) error {
	if _, exists := f.byAppointment[c.AppointmentID]; exists {
		return apperror.Conflict("appointment already has a session consumption")
	}
	c.ID = uuid.New()
	f.consumptions[c.ID] = c
	f.byAppointment[c.AppointmentID] = c
	return nil
}
func (f *fakeLedgerRepo) ApplyRefund(ctx context.Context, c *model.SubscriptionConsumption, s *model.Subscription, a *model.Appointment, txn *model.FinancialTransaction) error {
	f.consumptions[c.ID] = c
	f.refundedSub = s
	f.refundedApt = a
	return nil
}
func (f *fakeLedgerRepo) ApplyNoShowFee(ctx context.Context, a *model.Appointment, txn *model.FinancialTransaction) error {
	if f.failNoShowFee {
		return assert.AnError
	}
	copied := *a
	f.apts.stored[a.ID] = &copied
	f.noShowTxns = append(f.noShowTxns, txn)
	return nil
}

type fakeSubscriptionRepo struct {
	subs   map[uuid.UUID]*model.Subscription
	oldest *model.Subscription
}

func (f *fakeSubscriptionRepo) Create(ctx context.Context, s *model.Subscription) error { return nil }
func (f *fakeSubscriptionRepo) Get(ctx context.Context, id uuid.UUID) (*model.Subscription, error) {
	s, ok := f.subs[id]
	if !ok {
		return nil, apperror.NotFound("subscription %s not found", id)
	}
	return s, nil
}
func (f *fakeSubscriptionRepo) GetByToken(ctx context.Context, token string) (*model.Subscription, error) {
	return nil, apperror.NotFound("subscription token is invalid")
}
func (f *fakeSubscriptionRepo) Update(ctx context.Context, s *model.Subscription) error { return nil }
func (f *fakeSubscriptionRepo) List(ctx context.Context, filters *model.SubscriptionFilters) ([]*model.Subscription, error) {
	return nil, nil
}
func (f *fakeSubscriptionRepo) FindOldestActiveForClient(ctx context.Context, clientID uuid.UUID) (*model.Subscription, error) {
	return f.oldest, nil
}
func (f *fakeSubscriptionRepo) CountActiveForPlan(ctx context.Context, planID uuid.UUID) (int, error) {
	return 0, nil
}
func (f *fakeSubscriptionRepo) Accept(ctx context.Context, s *model.Subscription, txn *model.FinancialTransaction) error {
	return nil
}
func (f *fakeSubscriptionRepo) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	return 0, nil
}

type fakePlanRepo struct {
	plans map[uuid.UUID]*model.TherapyPlan
}

func (f *fakePlanRepo) Create(ctx context.Context, p *model.TherapyPlan) error { return nil }
func (f *fakePlanRepo) Get(ctx context.Context, id uuid.UUID) (*model.TherapyPlan, error) {
	p, ok := f.plans[id]
	if !ok {
		return nil, apperror.NotFound("plan %s not found", id)
	}
	return p, nil
}
func (f *fakePlanRepo) Update(ctx context.Context, p *model.TherapyPlan) error { return nil }
func (f *fakePlanRepo) Delete(ctx context.Context, id uuid.UUID) error         { return nil }
func (f *fakePlanRepo) List(ctx context.Context, branchID *uuid.UUID) ([]*model.TherapyPlan, error) {
	return nil, nil
}
func (f *fakePlanRepo) AssociateBranches(ctx context.Context, planID uuid.UUID, branchIDs []uuid.UUID) error {
	return nil
}

type bookingFixture struct {
	svc          *Service
	appointments *memAppointmentRepo
	subs         *fakeSubscriptionRepo
	ledger       *fakeLedgerRepo
	therapists   *stubTherapistRepo
	sender       *recordingSender
	client       *model.Client
	therapist    *model.Therapist
	plan         *model.TherapyPlan
}

// 2026-08-24 is a Monday; the therapist works 09:00-17:00 that day.
const monday = "2026-08-24"

func newBookingFixture(t *testing.T) *bookingFixture {
	t.Helper()

	client := &model.Client{Base: model.Base{ID: uuid.New()}, Name: "Ana", Email: "ana@example.com"}
	therapist := &model.Therapist{Base: model.Base{ID: uuid.New()}, Name: "Dr. Souza"}
	plan := &model.TherapyPlan{
		Base:          model.Base{ID: uuid.New()},
		Name:          "Monthly 10",
		TotalSessions: 10,
		TotalPrice:    1000,
		ValidityDays:  90,
		IsActive:      true,
	}

	appointments := newMemAppointmentRepo()
	schedules := &stubScheduleRepo{byDay: map[int][]*model.Schedule{
		1: {{Base: model.Base{ID: uuid.New()}, DayOfWeek: 1, StartTime: "09:00", EndTime: "17:00"}},
	}}
	ledger := newFakeLedgerRepo(appointments)
	subs := &fakeSubscriptionRepo{subs: map[uuid.UUID]*model.Subscription{}}
	plans := &fakePlanRepo{plans: map[uuid.UUID]*model.TherapyPlan{plan.ID: plan}}
	sender := &recordingSender{}

	availabilitySvc := availability.NewService(schedules, appointments, stubServiceRepo{})
	consumptionSvc := consumption.NewService(ledger, subs, plans, appointments)

	therapists := &stubTherapistRepo{therapists: map[uuid.UUID]*model.Therapist{therapist.ID: therapist}}
	svc := NewService(
		appointments,
		&stubClientRepo{clients: map[uuid.UUID]*model.Client{client.ID: client}},
		therapists,
		ledger,
		availabilitySvc,
		consumptionSvc,
		sender,
		Policy{RefundCutoffHours: 24, DefaultNoShowFee: 50, Location: time.UTC},
		zerolog.Nop(),
	)

	return &bookingFixture{
		svc:          svc,
		appointments: appointments,
		subs:         subs,
		ledger:       ledger,
		therapists:   therapists,
		sender:       sender,
		client:       client,
		therapist:    therapist,
		plan:         plan,
	}
}

func (f *bookingFixture) activeSubscription(remaining int) *model.Subscription {
	sub := &model.Subscription{
		Base:              model.Base{ID: uuid.New()},
		PlanID:            f.plan.ID,
		ClientID:          f.client.ID,
		Status:            model.SubscriptionStatusActive,
		RemainingSessions: remaining,
	}
	f.subs.subs[sub.ID] = sub
	f.subs.oldest = sub
	return sub
}

func createReq(f *bookingFixture, start, end string) *model.CreateAppointmentRequest {
	return &model.CreateAppointmentRequest{
		ClientID:    f.client.ID,
		TherapistID: f.therapist.ID,
		Date:        monday,
		StartTime:   start,
		EndTime:     end,
	}
}

func TestCreateBooksAndConsumesSession(t *testing.T) {
	f := newBookingFixture(t)
	sub := f.activeSubscription(5)

	result, err := f.svc.Create(context.Background(), createReq(f, "10:00", "11:00"))
	require.NoError(t, err)

	assert.Equal(t, model.AppointmentStatusPending, result.Appointment.Status)
	assert.True(t, result.SessionConsumed)
	assert.Empty(t, result.Message)
	assert.Equal(t, 4, sub.RemainingSessions)
}

func TestCreateWithoutSubscriptionStillBooks(t *testing.T) {
	f := newBookingFixture(t)

	result, err := f.svc.Create(context.Background(), createReq(f, "10:00", "11:00"))
	require.NoError(t, err)

	assert.False(t, result.SessionConsumed)
	assert.NotEmpty(t, result.Message)
}

func TestCreateRejectsOverlappingSlot(t *testing.T) {
	f := newBookingFixture(t)

	_, err := f.svc.Create(context.Background(), createReq(f, "10:00", "11:00"))
	require.NoError(t, err)

	_, err = f.svc.Create(context.Background(), createReq(f, "10:30", "11:30"))
	assert.True(t, apperror.Is(err, apperror.CodeConflict))
}

func TestCreateRejectsClientDoubleBookingAcrossTherapists(t *testing.T) {
	f := newBookingFixture(t)

	_, err := f.svc.Create(context.Background(), createReq(f, "10:00", "11:00"))
	require.NoError(t, err)

	// Same client, different therapist, overlapping time.
	other := &model.Therapist{Base: model.Base{ID: uuid.New()}, Name: "Dr. Lima"}
	f.therapists.therapists[other.ID] = other

	req := createReq(f, "10:30", "11:30")
	req.TherapistID = other.ID
	_, err = f.svc.Create(context.Background(), req)
	assert.True(t, apperror.Is(err, apperror.CodeConflict))
}

func TestCreateAllowsBackToBackSlots(t *testing.T) {
	f := newBookingFixture(t)

	_, err := f.svc.Create(context.Background(), createReq(f, "10:00", "11:00"))
	require.NoError(t, err)

	_, err = f.svc.Create(context.Background(), createReq(f, "11:00", "12:00"))
	assert.NoError(t, err)
}

func TestCreateRejectsSlotOutsideSchedule(t *testing.T) {
	f := newBookingFixture(t)

	_, err := f.svc.Create(context.Background(), createReq(f, "18:00", "19:00"))
	assert.True(t, apperror.Is(err, apperror.CodeNotAvailable))
}

func TestCreateRejectsInvertedInterval(t *testing.T) {
	f := newBookingFixture(t)

	_, err := f.svc.Create(context.Background(), createReq(f, "11:00", "10:00"))
	assert.True(t, apperror.Is(err, apperror.CodeValidation))
}

func TestConfirmIsIdempotent(t *testing.T) {
	f := newBookingFixture(t)

	result, err := f.svc.Create(context.Background(), createReq(f, "10:00", "11:00"))
	require.NoError(t, err)
	id := result.Appointment.ID

	confirmed, err := f.svc.Confirm(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusConfirmed, confirmed.Appointment.Status)

	again, err := f.svc.Confirm(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusConfirmed, again.Appointment.Status)
}

func TestConfirmEmailsTheClient(t *testing.T) {
	f := newBookingFixture(t)

	result, err := f.svc.Create(context.Background(), createReq(f, "10:00", "11:00"))
	require.NoError(t, err)

	_, err = f.svc.Confirm(context.Background(), result.Appointment.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"ana@example.com"}, f.sender.confirmations)

	// Re-confirming is a no-op and sends nothing.
	_, err = f.svc.Confirm(context.Background(), result.Appointment.ID)
	require.NoError(t, err)
	assert.Len(t, f.sender.confirmations, 1)
}

func TestConfirmEmailFailureIsNotFatal(t *testing.T) {
	f := newBookingFixture(t)
	f.sender.fail = true

	result, err := f.svc.Create(context.Background(), createReq(f, "10:00", "11:00"))
	require.NoError(t, err)

	confirmed, err := f.svc.Confirm(context.Background(), result.Appointment.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusConfirmed, confirmed.Appointment.Status)
}

func TestConfirmTerminalFails(t *testing.T) {
	f := newBookingFixture(t)

	result, err := f.svc.Create(context.Background(), createReq(f, "10:00", "11:00"))
	require.NoError(t, err)

	completed, err := f.svc.Complete(context.Background(), result.Appointment.ID)
	require.NoError(t, err)
	require.Equal(t, model.AppointmentStatusCompleted, completed.Status)

	_, err = f.svc.Confirm(context.Background(), result.Appointment.ID)
	assert.True(t, apperror.Is(err, apperror.CodeInvalidState))
}

func TestCancelEarlyRefundsSession(t *testing.T) {
	f := newBookingFixture(t)
	sub := f.activeSubscription(5)

	result, err := f.svc.Create(context.Background(), createReq(f, "10:00", "11:00"))
	require.NoError(t, err)
	require.Equal(t, 4, sub.RemainingSessions)

	// Two days before the appointment.
	f.svc.now = func() time.Time {
		return time.Date(2026, time.August, 22, 10, 0, 0, 0, time.UTC)
	}

	outcome, err := f.svc.Cancel(context.Background(), result.Appointment.ID, "trip", false)
	require.NoError(t, err)

	assert.True(t, outcome.SessionRefunded)
	assert.Zero(t, outcome.FeeCharged)
	assert.Equal(t, model.AppointmentStatusCanceled, outcome.Appointment.Status)
	assert.Equal(t, 5, f.ledger.refundedSub.RemainingSessions)
}

func TestCancelLateChargesFeeAndKeepsSession(t *testing.T) {
	f := newBookingFixture(t)
	sub := f.activeSubscription(5)

	result, err := f.svc.Create(context.Background(), createReq(f, "10:00", "11:00"))
	require.NoError(t, err)
	require.Equal(t, 4, sub.RemainingSessions)

	// One hour before the appointment.
	f.svc.now = func() time.Time {
		return time.Date(2026, time.August, 24, 9, 0, 0, 0, time.UTC)
	}

	outcome, err := f.svc.Cancel(context.Background(), result.Appointment.ID, "overslept", true)
	require.NoError(t, err)

	assert.False(t, outcome.SessionRefunded)
	assert.Equal(t, 50.0, outcome.FeeCharged)
	assert.Equal(t, model.AppointmentStatusNoShow, outcome.Appointment.Status)
	require.NotNil(t, outcome.Appointment.NoShowFee)
	assert.Equal(t, 50.0, *outcome.Appointment.NoShowFee)
	// Session stays spent.
	assert.Equal(t, 4, sub.RemainingSessions)

	require.Len(t, f.ledger.noShowTxns, 1)
	txn := f.ledger.noShowTxns[0]
	assert.Equal(t, model.TransactionTypeRevenue, txn.Type)
	assert.Equal(t, 50.0, txn.Amount)
	assert.Equal(t, model.CategoryNoShowFee, txn.Category)
}

func TestCancelLateFeeWriteFailureSurfaces(t *testing.T) {
	f := newBookingFixture(t)
	f.activeSubscription(5)

	result, err := f.svc.Create(context.Background(), createReq(f, "10:00", "11:00"))
	require.NoError(t, err)

	f.svc.now = func() time.Time {
		return time.Date(2026, time.August, 24, 9, 0, 0, 0, time.UTC)
	}
	f.ledger.failNoShowFee = true

	_, err = f.svc.Cancel(context.Background(), result.Appointment.ID, "overslept", true)
	require.Error(t, err)

	// The failed fee write must not leave a half-applied NO_SHOW behind.
	stored, err := f.appointments.Get(context.Background(), result.Appointment.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusPending, stored.Status)
}

func TestCancelLateWithoutFeeCancelsQuietly(t *testing.T) {
	f := newBookingFixture(t)
	sub := f.activeSubscription(5)

	result, err := f.svc.Create(context.Background(), createReq(f, "10:00", "11:00"))
	require.NoError(t, err)
	require.Equal(t, 4, sub.RemainingSessions)

	f.svc.now = func() time.Time {
		return time.Date(2026, time.August, 24, 9, 0, 0, 0, time.UTC)
	}

	outcome, err := f.svc.Cancel(context.Background(), result.Appointment.ID, "overslept", false)
	require.NoError(t, err)

	assert.Equal(t, model.AppointmentStatusCanceled, outcome.Appointment.Status)
	assert.Zero(t, outcome.FeeCharged)
	// Session stays spent, and no fee transaction is recorded.
	assert.Equal(t, 4, sub.RemainingSessions)
	assert.Empty(t, f.ledger.noShowTxns)
}

func TestCancelWithoutConsumptionJustCancels(t *testing.T) {
	f := newBookingFixture(t)

	result, err := f.svc.Create(context.Background(), createReq(f, "10:00", "11:00"))
	require.NoError(t, err)

	// One hour before start and the fee requested, but nothing was debited.
	f.svc.now = func() time.Time {
		return time.Date(2026, time.August, 24, 9, 0, 0, 0, time.UTC)
	}

	outcome, err := f.svc.Cancel(context.Background(), result.Appointment.ID, "overslept", true)
	require.NoError(t, err)

	assert.Equal(t, model.AppointmentStatusCanceled, outcome.Appointment.Status)
	assert.Zero(t, outcome.FeeCharged)
	assert.Empty(t, f.ledger.noShowTxns)
}

func TestCancelIsIdempotent(t *testing.T) {
	f := newBookingFixture(t)

	result, err := f.svc.Create(context.Background(), createReq(f, "10:00", "11:00"))
	require.NoError(t, err)

	f.svc.now = func() time.Time {
		return time.Date(2026, time.August, 22, 10, 0, 0, 0, time.UTC)
	}

	_, err = f.svc.Cancel(context.Background(), result.Appointment.ID, "trip", false)
	require.NoError(t, err)

	again, err := f.svc.Cancel(context.Background(), result.Appointment.ID, "trip", false)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusCanceled, again.Appointment.Status)
}

func TestCancelCompletedFails(t *testing.T) {
	f := newBookingFixture(t)

	result, err := f.svc.Create(context.Background(), createReq(f, "10:00", "11:00"))
	require.NoError(t, err)

	_, err = f.svc.Complete(context.Background(), result.Appointment.ID)
	require.NoError(t, err)

	_, err = f.svc.Cancel(context.Background(), result.Appointment.ID, "too late", false)
	assert.True(t, apperror.Is(err, apperror.CodeInvalidState))
}

func TestRescheduleMovesToFreeSlotAndResetsStatus(t *testing.T) {
	f := newBookingFixture(t)

	result, err := f.svc.Create(context.Background(), createReq(f, "10:00", "11:00"))
	require.NoError(t, err)
	_, err = f.svc.Confirm(context.Background(), result.Appointment.ID)
	require.NoError(t, err)

	moved, err := f.svc.Reschedule(context.Background(), result.Appointment.ID, &model.RescheduleAppointmentRequest{
		Date:      monday,
		StartTime: "14:00",
		EndTime:   "15:00",
	})
	require.NoError(t, err)
	assert.Equal(t, "14:00", moved.StartTime)
	assert.Equal(t, "15:00", moved.EndTime)
	assert.Equal(t, model.AppointmentStatusPending, moved.Status)
}

func TestRescheduleOwnSlotDoesNotConflict(t *testing.T) {
	f := newBookingFixture(t)

	result, err := f.svc.Create(context.Background(), createReq(f, "10:00", "11:00"))
	require.NoError(t, err)

	// Shifting within the original interval must not collide with itself.
	moved, err := f.svc.Reschedule(context.Background(), result.Appointment.ID, &model.RescheduleAppointmentRequest{
		Date:      monday,
		StartTime: "10:30",
		EndTime:   "11:30",
	})
	require.NoError(t, err)
	assert.Equal(t, "10:30", moved.StartTime)
}

func TestRescheduleToTakenSlotFails(t *testing.T) {
	f := newBookingFixture(t)

	first, err := f.svc.Create(context.Background(), createReq(f, "10:00", "11:00"))
	require.NoError(t, err)
	_, err = f.svc.Create(context.Background(), createReq(f, "14:00", "15:00"))
	require.NoError(t, err)

	_, err = f.svc.Reschedule(context.Background(), first.Appointment.ID, &model.RescheduleAppointmentRequest{
		Date:      monday,
		StartTime: "14:30",
		EndTime:   "15:30",
	})
	assert.True(t, apperror.Is(err, apperror.CodeConflict))
}

func TestRescheduleTerminalFails(t *testing.T) {
	f := newBookingFixture(t)

	result, err := f.svc.Create(context.Background(), createReq(f, "10:00", "11:00"))
	require.NoError(t, err)
	_, err = f.svc.Complete(context.Background(), result.Appointment.ID)
	require.NoError(t, err)

	_, err = f.svc.Reschedule(context.Background(), result.Appointment.ID, &model.RescheduleAppointmentRequest{
		Date:      monday,
		StartTime: "14:00",
		EndTime:   "15:00",
	})
	assert.True(t, apperror.Is(err, apperror.CodeInvalidState))
}
