// Package auth resolves refresh-token cookies into an explicit session
// value. Handlers receive the caller's identity as data threaded through the
// request context instead of re-reading ambient request state.
package auth

import (
	"context"
	"database/sql"
	"errors"

	"github.com/evenio/event-ticketing/internal/repository"
	"github.com/evenio/event-ticketing/internal/utils"
)

// Session identifies an authenticated caller for the lifetime of one request.
type Session struct {
	UserID uint64
	Email  string
	Role   string
}

// ErrInvalidToken is returned when a presented refresh token is unknown,
// expired or revoked, or when its user no longer exists or is inactive.
var ErrInvalidToken = errors.New("invalid token")

// Verifier checks raw refresh tokens against the token store and loads the
// owning user. It is the only component that turns a cookie into a role.
type Verifier struct {
	Users  *repository.UserRepo
	Tokens *repository.TokenRepo
}

func NewVerifier(users *repository.UserRepo, tokens *repository.TokenRepo) *Verifier {
	return &Verifier{Users: users, Tokens: tokens}
}

// VerifySession validates a raw refresh token and resolves the session it
// belongs to. Every failure collapses to ErrInvalidToken so callers cannot
// distinguish unknown tokens from revoked ones.
func (v *Verifier) VerifySession(ctx context.Context, raw string) (Session, error) {
	userID, err := v.Tokens.ValidateRefresh(ctx, utils.HashRefreshRaw(raw))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Session{}, ErrInvalidToken
		}
		return Session{}, err
	}
	u, err := v.Users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Session{}, ErrInvalidToken
		}
		return Session{}, err
	}
	if !u.IsActive {
		return Session{}, ErrInvalidToken
	}
	return Session{UserID: u.ID, Email: u.Email, Role: u.Role}, nil
}
