package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Step identifies where a conversation is in the booking flow.
type Step string

const (
	StepStart           Step = "START"
	StepChooseService   Step = "CHOOSE_SERVICE"
	StepChooseTherapist Step = "CHOOSE_THERAPIST"
	StepChooseDate      Step = "CHOOSE_DATE"
	StepChooseSlot      Step = "CHOOSE_SLOT"
	StepConfirm         Step = "CONFIRM"
)

// Session is the per-phone conversation state. It lives in Redis under a TTL
// so abandoned conversations expire on their own.
type Session struct {
	Phone        string      `json:"phone"`
	ClientID     uuid.UUID   `json:"client_id"`
	Step         Step        `json:"step"`
	ServiceID    *uuid.UUID  `json:"service_id,omitempty"`
	TherapistID  *uuid.UUID  `json:"therapist_id,omitempty"`
	BranchID     *uuid.UUID  `json:"branch_id,omitempty"`
	Date         string      `json:"date,omitempty"`
	StartTime    string      `json:"start_time,omitempty"`
	EndTime      string      `json:"end_time,omitempty"`
	ServiceIDs   []uuid.UUID `json:"service_ids,omitempty"`
	TherapistIDs []uuid.UUID `json:"therapist_ids,omitempty"`
	Slots        []string    `json:"slots,omitempty"`
}

// SessionStore persists conversation state between webhook calls.
type SessionStore interface {
	// Get returns nil when no session exists for the phone.
	Get(ctx context.Context, phone string) (*Session, error)
	Save(ctx context.Context, session *Session) error
	Delete(ctx context.Context, phone string) error
}

type redisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) SessionStore {
	return &redisStore{client: client, ttl: ttl}
}

func sessionKey(phone string) string {
	return "chat:session:" + phone
}

func (s *redisStore) Get(ctx context.Context, phone string) (*Session, error) {
	raw, err := s.client.Get(ctx, sessionKey(phone)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load chat session: %w", err)
	}

	var session Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, fmt.Errorf("failed to decode chat session: %w", err)
	}
	return &session, nil
}

func (s *redisStore) Save(ctx context.Context, session *Session) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to encode chat session: %w", err)
	}
	if err := s.client.Set(ctx, sessionKey(session.Phone), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save chat session: %w", err)
	}
	return nil
}

func (s *redisStore) Delete(ctx context.Context, phone string) error {
	if err := s.client.Del(ctx, sessionKey(phone)).Err(); err != nil {
		return fmt.Errorf("failed to delete chat session: %w", err)
	}
	return nil
}
