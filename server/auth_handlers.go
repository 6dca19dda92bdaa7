package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/jrsteele09/go-tenant-server/accounts"
	apperrors "github.com/jrsteele09/go-tenant-server/internal/errors"
)

const trialPeriod = 14 * 24 * time.Hour

type registerRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	CompanyID string `json:"company_id,omitempty"`
	GroupID   string `json:"group_id,omitempty"`
	Plan      string `json:"plan,omitempty"`
	Demo      bool   `json:"demo,omitempty"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Demo      bool      `json:"demo,omitempty"`
}

func (s *Server) registerHandler(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" {
		writeJSONError(w, http.StatusBadRequest, "email is required")
		return
	}
	if err := accounts.ValidatePasswordStrength(req.Password); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := s.deps.Accounts.GetByEmail(r.Context(), req.Email); err == nil {
		writeJSONError(w, http.StatusConflict, "email already registered")
		return
	}

	passwordHash, err := accounts.HashPassword(req.Password)
	if err != nil {
		s.log.Error().Err(err).Msg("password hash failed")
		writeJSONError(w, http.StatusInternalServerError, "internal error")
		return
	}

	now := s.nowTime()
	account := &accounts.Account{
		ID:           uuid.New().String(),
		Email:        req.Email,
		PasswordHash: passwordHash,
		CompanyID:    req.CompanyID,
		GroupID:      req.GroupID,
		Demo:         req.Demo,
		Plan:         req.Plan,
		Role:         accounts.RoleAdmin,
		TrialEndsAt:  now.Add(trialPeriod),
		CreatedAt:    now,
	}

	// Identity is durable-first: a registration that cannot be persisted is
	// rejected, unlike record writes which degrade to local-only.
	if err := s.deps.Accounts.Upsert(r.Context(), account); err != nil {
		s.log.Error().Err(err).Str("email", req.Email).Msg("account persist failed")
		writeJSONError(w, http.StatusServiceUnavailable, "registration unavailable")
		return
	}

	writeJSON(w, http.StatusCreated, account)
}

func (s *Server) loginHandler(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	account, err := s.deps.Accounts.GetByEmail(r.Context(), req.Email)
	if err != nil {
		if !apperrors.Is(err, apperrors.ErrAccountNotFound) {
			s.log.Warn().Err(err).Msg("account lookup failed")
		}
		// Unknown email and wrong password are indistinguishable.
		writeJSONError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	if !accounts.CheckPasswordHash(req.Password, account.PasswordHash) {
		writeJSONError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	session, err := s.deps.Sessions.Create(r.Context(), account)
	if err != nil {
		s.log.Error().Err(err).Msg("session create failed")
		writeJSONError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if err := s.deps.Accounts.SetLastLogin(r.Context(), account.ID, s.nowTime().UTC().UnixMilli()); err != nil {
		s.log.Warn().Err(err).Str("account_id", account.ID).Msg("last-login update failed")
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    session.Token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, loginResponse{
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
		Demo:      session.Demo,
	})
}

func (s *Server) logoutHandler(w http.ResponseWriter, r *http.Request) {
	token := requestToken(r)
	if token != "" {
		s.deps.Sessions.Logout(r.Context(), token)
	}
	http.SetCookie(w, &http.Cookie{Name: sessionCookieName, Value: "", Path: "/", MaxAge: -1})
	w.WriteHeader(http.StatusNoContent)
}
