package plan

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidaplena/clinic-api/internal/model"
	"github.com/vidaplena/clinic-api/pkg/apperror"
)

type memPlanRepo struct {
	plans    map[uuid.UUID]*model.TherapyPlan
	branches map[uuid.UUID][]uuid.UUID
}

func newMemPlanRepo() *memPlanRepo {
	return &memPlanRepo{
		plans:    map[uuid.UUID]*model.TherapyPlan{},
		branches: map[uuid.UUID][]uuid.UUID{},
	}
}

func (m *memPlanRepo) Create(ctx context.Context, p *model.TherapyPlan) error {
	p.ID = uuid.New()
	m.plans[p.ID] = p
	return nil
}
func (m *memPlanRepo) Get(ctx context.Context, id uuid.UUID) (*model.TherapyPlan, error) {
	p, ok := m.plans[id]
	if !ok {
		return nil, apperror.NotFound("plan %s not found", id)
	}
	return p, nil
}
func (m *memPlanRepo) Update(ctx context.Context, p *model.TherapyPlan) error {
	m.plans[p.ID] = p
	return nil
}
func (m *memPlanRepo) Delete(ctx context.Context, id uuid.UUID) error {
	delete(m.plans, id)
	return nil
}
func (m *memPlanRepo) List(ctx context.Context, branchID *uuid.UUID) ([]*model.TherapyPlan, error) {
	var out []*model.TherapyPlan
	for _, p := range m.plans {
		out = append(out, p)
	}
	return out, nil
}
func (m *memPlanRepo) AssociateBranches(ctx context.Context, planID uuid.UUID, branchIDs []uuid.UUID) error {
	m.branches[planID] = branchIDs
	return nil
}

type memSubscriptionRepo struct {
	subs        map[uuid.UUID]*model.Subscription
	byToken     map[string]*model.Subscription
	activeCount int
	acceptedTxn *model.FinancialTransaction
}

func newMemSubscriptionRepo() *memSubscriptionRepo {
	return &memSubscriptionRepo{
		subs:    map[uuid.UUID]*model.Subscription{},
		byToken: map[string]*model.Subscription{},
	}
}

func (m *memSubscriptionRepo) Create(ctx context.Context, s *model.Subscription) error {
	s.ID = uuid.New()
	m.subs[s.ID] = s
	m.byToken[s.Token] = s
	return nil
}
func (m *memSubscriptionRepo) Get(ctx context.Context, id uuid.UUID) (*model.Subscription, error) {
	s, ok := m.subs[id]
	if !ok {
		return nil, apperror.NotFound("subscription %s not found", id)
	}
	return s, nil
}
func (m *memSubscriptionRepo) GetByToken(ctx context.Context, token string) (*model.Subscription, error) {
	s, ok := m.byToken[token]
	if !ok {
		return nil, apperror.NotFound("subscription token is invalid")
	}
	return s, nil
}
func (m *memSubscriptionRepo) Update(ctx context.Context, s *model.Subscription) error {
	m.subs[s.ID] = s
	return nil
}
func (m *memSubscriptionRepo) List(ctx context.Context, filters *model.SubscriptionFilters) ([]*model.Subscription, error) {
	return nil, nil
}
func (m *memSubscriptionRepo) FindOldestActiveForClient(ctx context.Context, clientID uuid.UUID) (*model.Subscription, error) {
	return nil, nil
}
func (m *memSubscriptionRepo) CountActiveForPlan(ctx context.Context, planID uuid.UUID) (int, error) {
	return m.activeCount, nil
}
func (m *memSubscriptionRepo) Accept(ctx context.Context, s *model.Subscription, txn *model.FinancialTransaction) error {
	m.subs[s.ID] = s
	m.acceptedTxn = txn
	return nil
}
func (m *memSubscriptionRepo) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	return 0, nil
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
	return nil, apperror.NotFound("not found")
}
func (s *stubClientRepo) GetByPhone(ctx context.Context, phone string) (*model.Client, error) {
	return nil, apperror.NotFound("not found")
}

type recordingSender struct {
	invites []string
	fail    bool
}

func (r *recordingSender) SendSubscriptionInvite(to, clientName, planName, acceptURL string) error {
	if r.fail {
		return assert.AnError
	}
	r.invites = append(r.invites, acceptURL)
	return nil
}
func (r *recordingSender) SendAppointmentConfirmation(to, clientName, therapistName, date, startTime string) error {
	return nil
}

type planFixture struct {
	svc    *Service
	plans  *memPlanRepo
	subs   *memSubscriptionRepo
	sender *recordingSender
	client *model.Client
	plan   *model.TherapyPlan
}

func newPlanFixture(t *testing.T) *planFixture {
	t.Helper()

	plans := newMemPlanRepo()
	subs := newMemSubscriptionRepo()
	sender := &recordingSender{}
	client := &model.Client{Base: model.Base{ID: uuid.New()}, Name: "Ana", Email: "ana@example.com"}
	clients := &stubClientRepo{clients: map[uuid.UUID]*model.Client{client.ID: client}}

	svc := NewService(plans, subs, clients, sender, "http://localhost/api/v1", 7, zerolog.Nop())

	plan := &model.TherapyPlan{
		Name:          "Quarterly 12",
		TotalSessions: 12,
		TotalPrice:    1440,
		ValidityDays:  90,
		IsActive:      true,
	}
	require.NoError(t, plans.Create(context.Background(), plan))

	return &planFixture{svc: svc, plans: plans, subs: subs, sender: sender, client: client, plan: plan}
}

func TestCreateSubscriptionSendsInvite(t *testing.T) {
	f := newPlanFixture(t)

	sub, err := f.svc.CreateSubscription(context.Background(), &model.CreateSubscriptionRequest{
		PlanID:   f.plan.ID,
		ClientID: f.client.ID,
	})
	require.NoError(t, err)

	assert.Equal(t, model.SubscriptionStatusPending, sub.Status)
	assert.Equal(t, 12, sub.RemainingSessions)
	assert.NotEmpty(t, sub.Token)
	assert.True(t, sub.TokenExpiresAt.After(time.Now().Add(6*24*time.Hour)))

	require.Len(t, f.sender.invites, 1)
	assert.Contains(t, f.sender.invites[0], sub.Token)
}

func TestCreateSubscriptionSurvivesEmailFailure(t *testing.T) {
	f := newPlanFixture(t)
	f.sender.fail = true

	sub, err := f.svc.CreateSubscription(context.Background(), &model.CreateSubscriptionRequest{
		PlanID:   f.plan.ID,
		ClientID: f.client.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, model.SubscriptionStatusPending, sub.Status)
}

func TestCreateSubscriptionRejectsInactivePlan(t *testing.T) {
	f := newPlanFixture(t)
	f.plan.IsActive = false

	_, err := f.svc.CreateSubscription(context.Background(), &model.CreateSubscriptionRequest{
		PlanID:   f.plan.ID,
		ClientID: f.client.ID,
	})
	assert.True(t, apperror.Is(err, apperror.CodeInvalidState))
}

func TestAcceptByTokenActivates(t *testing.T) {
	f := newPlanFixture(t)

	sub, err := f.svc.CreateSubscription(context.Background(), &model.CreateSubscriptionRequest{
		PlanID:   f.plan.ID,
		ClientID: f.client.ID,
	})
	require.NoError(t, err)

	accepted, err := f.svc.AcceptByToken(context.Background(), sub.Token)
	require.NoError(t, err)

	assert.Equal(t, model.SubscriptionStatusActive, accepted.Status)
	require.NotNil(t, accepted.AcceptedAt)
	require.NotNil(t, accepted.ValidUntil)
	assert.WithinDuration(t, accepted.AcceptedAt.Add(90*24*time.Hour), *accepted.ValidUntil, time.Second)

	require.NotNil(t, f.subs.acceptedTxn)
	assert.Equal(t, model.TransactionTypeRevenue, f.subs.acceptedTxn.Type)
	assert.Equal(t, 1440.0, f.subs.acceptedTxn.Amount)
	assert.Equal(t, model.CategoryPlanSale, f.subs.acceptedTxn.Category)
}

func TestAcceptByTokenIsIdempotent(t *testing.T) {
	f := newPlanFixture(t)

	sub, err := f.svc.CreateSubscription(context.Background(), &model.CreateSubscriptionRequest{
		PlanID:   f.plan.ID,
		ClientID: f.client.ID,
	})
	require.NoError(t, err)

	_, err = f.svc.AcceptByToken(context.Background(), sub.Token)
	require.NoError(t, err)

	again, err := f.svc.AcceptByToken(context.Background(), sub.Token)
	require.NoError(t, err)
	assert.Equal(t, model.SubscriptionStatusActive, again.Status)
}

func TestAcceptByTokenExpired(t *testing.T) {
	f := newPlanFixture(t)

	sub, err := f.svc.CreateSubscription(context.Background(), &model.CreateSubscriptionRequest{
		PlanID:   f.plan.ID,
		ClientID: f.client.ID,
	})
	require.NoError(t, err)

	f.svc.now = func() time.Time { return time.Now().Add(8 * 24 * time.Hour) }

	_, err = f.svc.AcceptByToken(context.Background(), sub.Token)
	assert.True(t, apperror.Is(err, apperror.CodeInvalidState))
}

func TestAcceptByTokenUnknown(t *testing.T) {
	f := newPlanFixture(t)

	_, err := f.svc.AcceptByToken(context.Background(), "nope")
	assert.True(t, apperror.Is(err, apperror.CodeNotFound))
}

func TestCancelSubscription(t *testing.T) {
	f := newPlanFixture(t)

	sub, err := f.svc.CreateSubscription(context.Background(), &model.CreateSubscriptionRequest{
		PlanID:   f.plan.ID,
		ClientID: f.client.ID,
	})
	require.NoError(t, err)

	canceled, err := f.svc.CancelSubscription(context.Background(), sub.ID, "moving away")
	require.NoError(t, err)
	assert.Equal(t, model.SubscriptionStatusCanceled, canceled.Status)
	require.NotNil(t, canceled.CancellationReason)
	assert.Equal(t, "moving away", *canceled.CancellationReason)

	_, err = f.svc.CancelSubscription(context.Background(), sub.ID, "again")
	assert.True(t, apperror.Is(err, apperror.CodeInvalidState))
}

func TestDeletePlanWithActiveSubscriptions(t *testing.T) {
	f := newPlanFixture(t)
	f.subs.activeCount = 2

	err := f.svc.DeletePlan(context.Background(), f.plan.ID)
	assert.True(t, apperror.Is(err, apperror.CodeConflict))
}

func TestUpdatePlanValidation(t *testing.T) {
	f := newPlanFixture(t)

	zero := 0
	_, err := f.svc.UpdatePlan(context.Background(), f.plan.ID, &model.UpdateTherapyPlanRequest{TotalSessions: &zero})
	assert.True(t, apperror.Is(err, apperror.CodeValidation))

	sessions := 20
	updated, err := f.svc.UpdatePlan(context.Background(), f.plan.ID, &model.UpdateTherapyPlanRequest{TotalSessions: &sessions})
	require.NoError(t, err)
	assert.Equal(t, 20, updated.TotalSessions)
}
