package services

import (
	"context"
	"errors"

	"eshop/internal/domain"
	"eshop/internal/repos"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// ErrBadCreds is kept as an alias so callers need not import domain.
var ErrBadCreds = domain.ErrBadCreds

type AuthService struct {
	Users *repos.UserRepo
}

type Registration struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
}

// Register creates a USER account and binds it to the visitor's session.
func (s *AuthService) Register(ctx context.Context, sid string, r Registration) (*domain.User, error) {
	if _, err := s.Users.ByEmail(ctx, r.Email); err == nil {
		return nil, domain.ErrEmailTaken
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(r.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	u, err := domain.NewUser(uuid.NewString(), r.FirstName, r.LastName, r.Email, string(hash), domain.RoleUser)
	if err != nil {
		return nil, err
	}
	if err := s.Users.Create(ctx, u); err != nil {
		return nil, err
	}
	if err := s.Users.BindSession(ctx, sid, u.ID); err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *AuthService) Login(ctx context.Context, sid, email, password string) (*domain.User, error) {
	u, err := s.Users.ByEmail(ctx, email)
	if err != nil {
		return nil, ErrBadCreds
	}
	if bcrypt.CompareHashAndPassword([]byte(u.Hash), []byte(password)) != nil {
		return nil, ErrBadCreds
	}
	if err := s.Users.BindSession(ctx, sid, u.ID); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *AuthService) Logout(ctx context.Context, sid string) error {
	return s.Users.UnbindSession(ctx, sid)
}

func (s *AuthService) CurrentUser(ctx context.Context, sid string) (*domain.User, error) {
	return s.Users.SessionUser(ctx, sid)
}
