// Package auth handles client registration and login.
package auth

import (
	"context"

	"golang.org/x/crypto/bcrypt"

	"github.com/vidaplena/clinic-api/internal/model"
	"github.com/vidaplena/clinic-api/internal/repository"
	"github.com/vidaplena/clinic-api/pkg/apperror"
	pkgauth "github.com/vidaplena/clinic-api/pkg/auth"
)

const RoleClient = "client"

type Service struct {
	clientRepo repository.ClientRepository
	jwtSvc     pkgauth.JWTService
}

func NewService(clientRepo repository.ClientRepository, jwtSvc pkgauth.JWTService) *Service {
	return &Service{clientRepo: clientRepo, jwtSvc: jwtSvc}
}

func (s *Service) Register(ctx context.Context, req *model.RegisterClientRequest) (*model.Client, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperror.Internal(err)
	}

	client := &model.Client{
		Name:         req.Name,
		Email:        req.Email,
		Phone:        req.Phone,
		PasswordHash: string(hash),
		Role:         RoleClient,
	}
	if err := s.clientRepo.Create(ctx, client); err != nil {
		return nil, err
	}
	return client, nil
}

// Login verifies the credentials and issues an access token. A wrong email
// and a wrong password produce the same error.
func (s *Service) Login(ctx context.Context, req *model.LoginRequest) (*model.LoginResponse, error) {
	client, err := s.clientRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		if apperror.Is(err, apperror.CodeNotFound) {
			return nil, apperror.Validation("invalid email or password")
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(client.PasswordHash), []byte(req.Password)); err != nil {
		return nil, apperror.Validation("invalid email or password")
	}

	token, err := s.jwtSvc.GenerateAccessToken(client.ID, client.Email, client.Role)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return &model.LoginResponse{Token: token, Client: client}, nil
}
