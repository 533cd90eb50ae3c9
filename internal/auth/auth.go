// Package auth performs login and token refresh against the API. It uses
// a client without the refresh-retry middleware: a 401 from the auth
// endpoints is an answer, not a trigger.
package auth

import (
	"context"

	"github.com/cartaomais/appcore/internal/api"
	"github.com/cartaomais/appcore/internal/apperrors"
	"github.com/cartaomais/appcore/internal/logging"
	"github.com/cartaomais/appcore/internal/profile"
	"github.com/cartaomais/appcore/internal/session"
	"github.com/cartaomais/appcore/pkg/brdoc"
)

// LoginResult carries everything the login endpoint returns.
type LoginResult struct {
	Session session.Session
	Profile profile.UserProfile
}

// Service talks to the authentication endpoints.
type Service struct {
	client *api.Client
	log    *logging.Logger
}

// NewService creates the auth service. The client must not carry a
// Refresher.
func NewService(client *api.Client, log *logging.Logger) *Service {
	if log == nil {
		log = logging.NewDefault("auth")
	}
	return &Service{client: client, log: log}
}

type loginResponse struct {
	AccessToken       string              `json:"access_token"`
	TokenType         string              `json:"token_type"`
	ExpiresIn         int                 `json:"expires_in"`
	MenuPermissions   []string            `json:"menu_permissions"`
	ActionPermissions []string            `json:"action_permissions"`
	User              profile.UserProfile `json:"user"`
}

// Login authenticates with CPF and password. The document is unmasked and
// length-checked locally; check-digit verification is left to the server,
// which is the authority on which documents exist.
func (s *Service) Login(ctx context.Context, cpf, password string) (LoginResult, error) {
	doc := brdoc.UnmaskDigits(cpf)
	if len(doc) != brdoc.CPFLength {
		return LoginResult{}, apperrors.Validation("cpf", "invalid CPF")
	}
	if password == "" {
		return LoginResult{}, apperrors.Validation("password", "password is required")
	}

	var resp loginResponse
	body := map[string]string{"document": doc, "password": password}
	if err := s.client.PostJSON(ctx, "/auth/login", body, &resp); err != nil {
		return LoginResult{}, err
	}

	s.log.WithField("user_id", resp.User.ID).Info("login succeeded")
	return LoginResult{
		Session: session.Session{
			AccessToken:       resp.AccessToken,
			TokenType:         resp.TokenType,
			ExpiresIn:         resp.ExpiresIn,
			MenuPermissions:   resp.MenuPermissions,
			ActionPermissions: resp.ActionPermissions,
		},
		Profile: resp.User,
	}, nil
}

// RefreshFunc returns the closure the session store calls to renew a
// token. A 401 or 403 from the refresh endpoint means the session is
// unrecoverable and maps to CodeCannotRefreshToken, which tells the
// store to discard the session.
func (s *Service) RefreshFunc() session.RefreshFunc {
	return func(ctx context.Context, current session.Session) (session.Session, error) {
		var resp loginResponse
		body := map[string]string{"access_token": current.AccessToken}
		if err := s.client.PostJSON(ctx, "/auth/refresh", body, &resp); err != nil {
			if apperrors.IsCode(err, apperrors.CodeUnauthorized) {
				return session.Session{}, apperrors.CannotRefreshToken(err)
			}
			return session.Session{}, err
		}

		next := current
		next.AccessToken = resp.AccessToken
		if resp.TokenType != "" {
			next.TokenType = resp.TokenType
		}
		if resp.ExpiresIn != 0 {
			next.ExpiresIn = resp.ExpiresIn
		}
		if resp.MenuPermissions != nil {
			next.MenuPermissions = resp.MenuPermissions
		}
		if resp.ActionPermissions != nil {
			next.ActionPermissions = resp.ActionPermissions
		}
		return next, nil
	}
}

// Logout invalidates the session server-side. Local state cleanup is the
// caller's job; a server error here must not keep the user logged in.
func (s *Service) Logout(ctx context.Context, accessToken string) {
	body := map[string]string{"access_token": accessToken}
	if err := s.client.PostJSON(ctx, "/auth/logout", body, nil); err != nil {
		s.log.WithError(err).Warn("server-side logout failed, clearing local state anyway")
	}
}
