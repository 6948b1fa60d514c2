// Package session issues and verifies the signed, stateless session token
// that carries an identity and its claims snapshot.
package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/KingSnorlax2/dopravni-system-vondrasek-sub002/internal/apperr"
	"github.com/KingSnorlax2/dopravni-system-vondrasek-sub002/internal/authz"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Identity is the who of a session.
type Identity struct {
	ID          uuid.UUID
	Email       string
	DisplayName string
}

// Session is a verified token. Its claims are the snapshot taken at issue
// time and may be older than the current role state.
type Session struct {
	Identity
	Claims    authz.Claims
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// tokenClaims is the token payload. Both embedded structs flatten into the
// JSON object.
type tokenClaims struct {
	IdentityID  string `json:"identityId"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	authz.Snapshot
	jwt.RegisteredClaims
}

// Manager signs and parses session tokens with HS256.
type Manager struct {
	secret []byte
	issuer string
	expiry time.Duration
	now    func() time.Time
}

func NewManager(secret []byte, issuer string, expiry time.Duration) (*Manager, error) {
	if len(secret) == 0 {
		return nil, errors.New("session signing key is empty")
	}
	if expiry <= 0 {
		return nil, fmt.Errorf("session expiry must be positive, got %s", expiry)
	}
	return &Manager{secret: secret, issuer: issuer, expiry: expiry, now: time.Now}, nil
}

// Issue signs a token for id carrying claims.
func (m *Manager) Issue(id Identity, claims authz.Claims) (string, *Session, error) {
	now := m.now().Truncate(time.Second)
	exp := now.Add(m.expiry)

	payload := tokenClaims{
		IdentityID:  id.ID.String(),
		Email:       id.Email,
		DisplayName: id.DisplayName,
		Snapshot:    claims.Snapshot(),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   id.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, payload).SignedString(m.secret)
	if err != nil {
		return "", nil, fmt.Errorf("signing session token: %w", err)
	}

	return signed, &Session{Identity: id, Claims: claims, IssuedAt: now, ExpiresAt: exp}, nil
}

// Parse verifies a token and restores its session. Every failure matches
// apperr.ErrAuthentication.
func (m *Manager) Parse(token string) (*Session, error) {
	var payload tokenClaims
	parsed, err := jwt.ParseWithClaims(token, &payload, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return m.secret, nil
	},
		jwt.WithIssuer(m.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil || !parsed.Valid {
		return nil, fmt.Errorf("%w: invalid session token: %v", apperr.ErrAuthentication, err)
	}

	id, err := uuid.Parse(payload.IdentityID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid identity in session token", apperr.ErrAuthentication)
	}

	s := &Session{
		Identity: Identity{
			ID:          id,
			Email:       payload.Email,
			DisplayName: payload.DisplayName,
		},
		Claims:    authz.FromSnapshot(payload.Snapshot),
		ExpiresAt: payload.ExpiresAt.Time,
	}
	if payload.IssuedAt != nil {
		s.IssuedAt = payload.IssuedAt.Time
	}
	return s, nil
}
