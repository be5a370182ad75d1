// Package plan manages therapy plans and their subscriptions, including the
// email acceptance flow.
package plan

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vidaplena/clinic-api/internal/email"
	"github.com/vidaplena/clinic-api/internal/model"
	"github.com/vidaplena/clinic-api/internal/repository"
	"github.com/vidaplena/clinic-api/pkg/apperror"
)

type Service struct {
	planRepo         repository.PlanRepository
	subscriptionRepo repository.SubscriptionRepository
	clientRepo       repository.ClientRepository
	sender           email.Sender
	acceptBaseURL    string
	tokenValidity    time.Duration
	logger           zerolog.Logger
	now              func() time.Time
}

func NewService(
	planRepo repository.PlanRepository,
	subscriptionRepo repository.SubscriptionRepository,
	clientRepo repository.ClientRepository,
	sender email.Sender,
	acceptBaseURL string,
	tokenValidityDays int,
	logger zerolog.Logger,
) *Service {
	return &Service{
		planRepo:         planRepo,
		subscriptionRepo: subscriptionRepo,
		clientRepo:       clientRepo,
		sender:           sender,
		acceptBaseURL:    acceptBaseURL,
		tokenValidity:    time.Duration(tokenValidityDays) * 24 * time.Hour,
		logger:           logger,
		now:              time.Now,
	}
}

func (s *Service) CreatePlan(ctx context.Context, req *model.CreateTherapyPlanRequest) (*model.TherapyPlan, error) {
	plan := &model.TherapyPlan{
		Name:          req.Name,
		Description:   req.Description,
		TotalSessions: req.TotalSessions,
		TotalPrice:    req.TotalPrice,
		ValidityDays:  req.ValidityDays,
		IsActive:      true,
	}
	if req.IsActive != nil {
		plan.IsActive = *req.IsActive
	}
	if err := s.planRepo.Create(ctx, plan); err != nil {
		return nil, err
	}

	if len(req.BranchIDs) > 0 {
		branchIDs := make([]uuid.UUID, 0, len(req.BranchIDs))
		for _, raw := range req.BranchIDs {
			id, err := uuid.Parse(raw)
			if err != nil {
				return nil, apperror.Validation("invalid branch id %q", raw)
			}
			branchIDs = append(branchIDs, id)
		}
		if err := s.planRepo.AssociateBranches(ctx, plan.ID, branchIDs); err != nil {
			return nil, err
		}
	}
	return plan, nil
}

func (s *Service) GetPlan(ctx context.Context, id uuid.UUID) (*model.TherapyPlan, error) {
	return s.planRepo.Get(ctx, id)
}

func (s *Service) ListPlans(ctx context.Context, branchID *uuid.UUID) ([]*model.TherapyPlan, error) {
	return s.planRepo.List(ctx, branchID)
}

func (s *Service) UpdatePlan(ctx context.Context, id uuid.UUID, req *model.UpdateTherapyPlanRequest) (*model.TherapyPlan, error) {
	plan, err := s.planRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		plan.Name = *req.Name
	}
	if req.Description != nil {
		plan.Description = req.Description
	}
	if req.TotalSessions != nil {
		if *req.TotalSessions < 1 {
			return nil, apperror.Validation("total_sessions must be at least 1")
		}
		plan.TotalSessions = *req.TotalSessions
	}
	if req.TotalPrice != nil {
		if *req.TotalPrice <= 0 {
			return nil, apperror.Validation("total_price must be positive")
		}
		plan.TotalPrice = *req.TotalPrice
	}
	if req.ValidityDays != nil {
		if *req.ValidityDays < 1 {
			return nil, apperror.Validation("validity_days must be at least 1")
		}
		plan.ValidityDays = *req.ValidityDays
	}
	if req.IsActive != nil {
		plan.IsActive = *req.IsActive
	}
	if err := s.planRepo.Update(ctx, plan); err != nil {
		return nil, err
	}
	return plan, nil
}

// DeletePlan removes a plan that has no active subscriptions.
func (s *Service) DeletePlan(ctx context.Context, id uuid.UUID) error {
	count, err := s.subscriptionRepo.CountActiveForPlan(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return apperror.Conflict("plan has %d active subscriptions", count)
	}
	return s.planRepo.Delete(ctx, id)
}

func newToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// CreateSubscription creates a PENDING subscription and emails the client an
// acceptance link. The email is best-effort; a delivery failure does not roll
// back the subscription.
func (s *Service) CreateSubscription(ctx context.Context, req *model.CreateSubscriptionRequest) (*model.Subscription, error) {
	plan, err := s.planRepo.Get(ctx, req.PlanID)
	if err != nil {
		return nil, err
	}
	if !plan.IsActive {
		return nil, apperror.InvalidState("plan %s is inactive", plan.ID)
	}

	client, err := s.clientRepo.Get(ctx, req.ClientID)
	if err != nil {
		return nil, err
	}

	token, err := newToken()
	if err != nil {
		return nil, err
	}

	subscription := &model.Subscription{
		PlanID:            plan.ID,
		ClientID:          client.ID,
		BranchID:          req.BranchID,
		Token:             token,
		TokenExpiresAt:    s.now().Add(s.tokenValidity),
		Status:            model.SubscriptionStatusPending,
		RemainingSessions: plan.TotalSessions,
	}
	if err := s.subscriptionRepo.Create(ctx, subscription); err != nil {
		return nil, err
	}

	acceptURL := fmt.Sprintf("%s/subscriptions/accept?token=%s", s.acceptBaseURL, token)
	if err := s.sender.SendSubscriptionInvite(client.Email, client.Name, plan.Name, acceptURL); err != nil {
		s.logger.Warn().Err(err).
			Str("subscription_id", subscription.ID.String()).
			Msg("failed to send subscription invite")
	}

	return subscription, nil
}

// AcceptByToken activates a PENDING subscription from its acceptance token,
// sets the validity window from the plan and records the plan sale. Accepting
// an already ACTIVE subscription again is a no-op.
func (s *Service) AcceptByToken(ctx context.Context, token string) (*model.Subscription, error) {
	subscription, err := s.subscriptionRepo.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}

	switch subscription.Status {
	case model.SubscriptionStatusActive:
		return subscription, nil
	case model.SubscriptionStatusPending:
	default:
		return nil, apperror.InvalidState("subscription is %s and can no longer be accepted", subscription.Status)
	}

	now := s.now()
	if now.After(subscription.TokenExpiresAt) {
		return nil, apperror.InvalidState("subscription token expired on %s", subscription.TokenExpiresAt.Format(time.RFC3339))
	}

	plan, err := s.planRepo.Get(ctx, subscription.PlanID)
	if err != nil {
		return nil, err
	}

	acceptedAt := now
	validUntil := now.Add(time.Duration(plan.ValidityDays) * 24 * time.Hour)
	subscription.Status = model.SubscriptionStatusActive
	subscription.AcceptedAt = &acceptedAt
	subscription.ValidUntil = &validUntil

	refType := "subscription"
	txn := &model.FinancialTransaction{
		Type:          model.TransactionTypeRevenue,
		Amount:        plan.TotalPrice,
		Description:   "Plan sale: " + plan.Name,
		Category:      model.CategoryPlanSale,
		Date:          now,
		ClientID:      &subscription.ClientID,
		BranchID:      subscription.BranchID,
		Reference:     &subscription.ID,
		ReferenceType: &refType,
	}

	if err := s.subscriptionRepo.Accept(ctx, subscription, txn); err != nil {
		return nil, err
	}
	return subscription, nil
}

func (s *Service) GetSubscription(ctx context.Context, id uuid.UUID) (*model.Subscription, error) {
	return s.subscriptionRepo.Get(ctx, id)
}

func (s *Service) ListSubscriptions(ctx context.Context, filters *model.SubscriptionFilters) ([]*model.Subscription, error) {
	return s.subscriptionRepo.List(ctx, filters)
}

// CancelSubscription terminates a PENDING or ACTIVE subscription.
func (s *Service) CancelSubscription(ctx context.Context, id uuid.UUID, reason string) (*model.Subscription, error) {
	subscription, err := s.subscriptionRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	switch subscription.Status {
	case model.SubscriptionStatusPending, model.SubscriptionStatusActive:
	default:
		return nil, apperror.InvalidState("subscription is already %s", subscription.Status)
	}

	subscription.Status = model.SubscriptionStatusCanceled
	subscription.CancellationReason = &reason
	if err := s.subscriptionRepo.Update(ctx, subscription); err != nil {
		return nil, err
	}
	return subscription, nil
}

// ExpireOverdue flips ACTIVE subscriptions past their validity to EXPIRED.
// Called periodically by the worker.
func (s *Service) ExpireOverdue(ctx context.Context) (int64, error) {
	return s.subscriptionRepo.ExpireOverdue(ctx, s.now())
}
