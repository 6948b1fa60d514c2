package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/KingSnorlax2/dopravni-system-vondrasek-sub002/internal/apperr"
	"github.com/KingSnorlax2/dopravni-system-vondrasek-sub002/internal/authz"
	"github.com/KingSnorlax2/dopravni-system-vondrasek-sub002/internal/logging"
	"github.com/KingSnorlax2/dopravni-system-vondrasek-sub002/internal/model"
	"github.com/KingSnorlax2/dopravni-system-vondrasek-sub002/internal/repository"
	"github.com/KingSnorlax2/dopravni-system-vondrasek-sub002/internal/session"

	"golang.org/x/crypto/bcrypt"
)

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// AuthResult is a freshly issued session and its signed token.
type AuthResult struct {
	Token   string
	Session *session.Session
}

type MeResponse struct {
	ID          string       `json:"id"`
	Email       string       `json:"email"`
	DisplayName string       `json:"display_name"`
	Claims      authz.Claims `json:"claims"`
	ExpiresAt   time.Time    `json:"expires_at"`
}

// AuthService issues sessions. Claims are resolved once per issue and then
// travel inside the token until it expires or is refreshed.
type AuthService interface {
	Login(ctx context.Context, req LoginRequest) (*AuthResult, error)
	Refresh(ctx context.Context, current *session.Session) (*AuthResult, error)
	Me(current *session.Session) MeResponse
}

type authService struct {
	users    repository.UserRepository
	resolver *authz.Resolver
	sessions *session.Manager
}

func NewAuthService(users repository.UserRepository, resolver *authz.Resolver, sessions *session.Manager) AuthService {
	return &authService{users: users, resolver: resolver, sessions: sessions}
}

var errInvalidCredentials = fmt.Errorf("invalid email or password: %w", apperr.ErrAuthentication)

func (s *authService) Login(ctx context.Context, req LoginRequest) (*AuthResult, error) {
	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if !errors.Is(err, apperr.ErrNotFound) {
			logging.Error("login lookup failed", "error", err)
		}
		return nil, errInvalidCredentials
	}
	if !user.IsActive {
		return nil, errInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, errInvalidCredentials
	}

	return s.issue(ctx, user)
}

// Refresh re-resolves claims for the session's user from the current
// registry state. The old token stays valid until its own expiry.
func (s *authService) Refresh(ctx context.Context, current *session.Session) (*AuthResult, error) {
	user, err := s.users.GetByID(ctx, current.ID)
	if err != nil {
		if !errors.Is(err, apperr.ErrNotFound) {
			logging.Error("refresh lookup failed", "user_id", current.ID, "error", err)
		}
		return nil, fmt.Errorf("session user unavailable: %w", apperr.ErrAuthentication)
	}
	if !user.IsActive {
		return nil, fmt.Errorf("session user is disabled: %w", apperr.ErrAuthentication)
	}
	return s.issue(ctx, user)
}

func (s *authService) Me(current *session.Session) MeResponse {
	return MeResponse{
		ID:          current.ID.String(),
		Email:       current.Email,
		DisplayName: current.DisplayName,
		Claims:      current.Claims,
		ExpiresAt:   current.ExpiresAt,
	}
}

// issue resolves claims and signs them. Any store failure during resolution
// fails the whole issue.
func (s *authService) issue(ctx context.Context, user *model.User) (*AuthResult, error) {
	names, err := s.users.ListRoleNames(ctx, user.ID)
	if err != nil {
		logging.Error("load roles for session failed", "user_id", user.ID, "error", err)
		return nil, fmt.Errorf("load roles: %w", apperr.ErrAuthentication)
	}

	claims, err := s.resolver.Resolve(ctx, authz.Identity{UserID: user.ID, Roles: names})
	if err != nil {
		logging.Error("resolve claims failed", "user_id", user.ID, "error", err)
		return nil, fmt.Errorf("resolve claims: %w", apperr.ErrAuthentication)
	}

	token, sess, err := s.sessions.Issue(session.Identity{
		ID:          user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
	}, claims)
	if err != nil {
		return nil, fmt.Errorf("issue session: %w", err)
	}

	logging.Info("session issued", "user_id", user.ID, "role", claims.Role(), "landing", claims.DefaultLandingPage())
	return &AuthResult{Token: token, Session: sess}, nil
}
