package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/vidaplena/clinic-api/internal/model"
	"github.com/vidaplena/clinic-api/pkg/apperror"
)

type clientRepository struct {
	BaseRepository
}

func NewClientRepository(db *sqlx.DB) *clientRepository {
	return &clientRepository{BaseRepository: NewBaseRepository(db)}
}

const clientColumns = `id, name, email, phone, password_hash, role, created_at, updated_at`

func (r *clientRepository) Create(ctx context.Context, client *model.Client) error {
	query := `
		INSERT INTO clients (id, name, email, phone, password_hash, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	client.ID = uuid.New()
	client.CreatedAt = time.Now()
	client.UpdatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		client.ID,
		client.Name,
		client.Email,
		client.Phone,
		client.PasswordHash,
		client.Role,
		client.CreatedAt,
		client.UpdatedAt,
	)
	if err != nil {
		if isConstraintViolation(err) {
			return apperror.Conflict("email %s already registered", client.Email)
		}
		return fmt.Errorf("failed to create client: %w", err)
	}
	return nil
}

func (r *clientRepository) Get(ctx context.Context, id uuid.UUID) (*model.Client, error) {
	var client model.Client
	err := r.db.GetContext(ctx, &client, `SELECT `+clientColumns+` FROM clients WHERE id = $1`, id)
	if err != nil {
		if isNoRows(err) {
			return nil, apperror.NotFound("client %s not found", id)
		}
		return nil, fmt.Errorf("failed to get client: %w", err)
	}
	return &client, nil
}

func (r *clientRepository) GetByEmail(ctx context.Context, email string) (*model.Client, error) {
	var client model.Client
	err := r.db.GetContext(ctx, &client, `SELECT `+clientColumns+` FROM clients WHERE email = $1`, email)
	if err != nil {
		if isNoRows(err) {
			return nil, apperror.NotFound("client with email %s not found", email)
		}
		return nil, fmt.Errorf("failed to get client by email: %w", err)
	}
	return &client, nil
}

func (r *clientRepository) GetByPhone(ctx context.Context, phone string) (*model.Client, error) {
	var client model.Client
	err := r.db.GetContext(ctx, &client, `SELECT `+clientColumns+` FROM clients WHERE phone = $1`, phone)
	if err != nil {
		if isNoRows(err) {
			return nil, apperror.NotFound("client with phone %s not found", phone)
		}
		return nil, fmt.Errorf("failed to get client by phone: %w", err)
	}
	return &client, nil
}
