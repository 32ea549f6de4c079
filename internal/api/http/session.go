package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/hackmathlogic/hackmath/internal/auth"
	authmw "github.com/hackmathlogic/hackmath/internal/auth/middleware"
	"github.com/hackmathlogic/hackmath/internal/metrics"
	"github.com/hackmathlogic/hackmath/internal/rbac"
)

type sessionOut struct {
	AccessToken string       `json:"access_token"`
	User        auth.Account `json:"user"`
}

// Sessions issues and revokes tokens for local accounts.
type Sessions struct {
	Accounts           *auth.Accounts
	Auth               *authmw.AuthService
	Revoker            authmw.Revoker
	EnableRegistration bool
	SecureCookies      bool
}

// POST /auth/register {username, password}
func (s Sessions) RegisterHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.EnableRegistration {
			respondJSON(w, http.StatusForbidden, map[string]string{"error": "registration disabled"})
			return
		}
		var req credentialsReq
		if err := decodeAndValidate(r, &req); err != nil {
			metrics.RegistrationAttempts.WithLabelValues("failure").Inc()
			writeError(w, r, err)
			return
		}
		acc, err := s.Accounts.Register(r.Context(), req.Username, req.Password)
		if errors.Is(err, auth.ErrUsernameTaken) {
			metrics.RegistrationAttempts.WithLabelValues("failure").Inc()
			writeError(w, r, fieldError("username", "is already taken", req.echo()))
			return
		}
		if err != nil {
			metrics.RegistrationAttempts.WithLabelValues("failure").Inc()
			writeError(w, r, err)
			return
		}
		metrics.RegistrationAttempts.WithLabelValues("success").Inc()
		s.startSession(w, r, acc, http.StatusCreated)
	}
}

// POST /auth/login {username, password}
func (s Sessions) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginReq
		if err := decodeAndValidate(r, &req); err != nil {
			metrics.LoginAttempts.WithLabelValues("failure").Inc()
			writeError(w, r, err)
			return
		}
		acc, err := s.Accounts.Login(r.Context(), req.Username, req.Password)
		if errors.Is(err, auth.ErrInvalidCredentials) {
			metrics.LoginAttempts.WithLabelValues("failure").Inc()
			respondJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
			return
		}
		if err != nil {
			metrics.LoginAttempts.WithLabelValues("failure").Inc()
			writeError(w, r, err)
			return
		}
		metrics.LoginAttempts.WithLabelValues("success").Inc()
		s.startSession(w, r, acc, http.StatusOK)
	}
}

// POST /auth/logout revokes the presented token until it expires.
func (s Sessions) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims := authmw.ClaimsFromContext(r.Context())
		if claims == nil {
			rbac.Deny(w, rbac.DenyUnauthenticated)
			return
		}
		until := time.Now().Add(s.Auth.TTL())
		if claims.ExpiresAt != nil {
			until = claims.ExpiresAt.Time
		}
		if err := s.Revoker.Revoke(r.Context(), claims.ID, until); err != nil {
			writeError(w, r, err)
			return
		}
		metrics.LogoutAttempts.Inc()
		http.SetCookie(w, &http.Cookie{
			Name:     authmw.SessionCookie,
			Value:    "",
			Path:     "/",
			HttpOnly: true,
			Secure:   s.SecureCookies,
			SameSite: http.SameSiteLaxMode,
			MaxAge:   -1,
		})
		w.WriteHeader(http.StatusNoContent)
	}
}

// POST /users/change-password {old_password, new_password}
func (s Sessions) ChangePasswordHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req changePasswordReq
		if err := decodeAndValidate(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		p := rbac.PrincipalFromContext(r.Context())
		err := s.Accounts.ChangePassword(r.Context(), p.UserID, req.OldPassword, req.NewPassword)
		if errors.Is(err, auth.ErrInvalidCredentials) {
			writeError(w, r, fieldError("old_password", "is incorrect", req.echo()))
			return
		}
		if err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s Sessions) startSession(w http.ResponseWriter, r *http.Request, acc auth.Account, status int) {
	tok, err := s.Auth.IssueJWT(acc.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     authmw.SessionCookie,
		Value:    tok,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.SecureCookies,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(s.Auth.TTL()),
	})
	respondJSON(w, status, sessionOut{AccessToken: tok, User: acc})
}
