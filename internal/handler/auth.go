package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/sakif/healthchat/internal/apperror"
	"github.com/sakif/healthchat/internal/auth"
	"github.com/sakif/healthchat/internal/model"
	"github.com/sakif/healthchat/internal/service"
)

// Accounts is what AuthHandler needs from the auth service.
type Accounts interface {
	SignupAndLogin(ctx context.Context, in service.SignupInput) (*service.AuthResult, error)
	Login(ctx context.Context, username, password string) (*service.AuthResult, error)
	Logout(ctx context.Context, token string) error
	GetUserByID(ctx context.Context, id string) (*model.PublicUser, error)
}

// AuthHandler serves the account and session endpoints.
//
//   - HandleSignup → POST /api/auth/signup
//   - HandleLogin  → POST /api/auth/login
//   - HandleLogout → POST /api/auth/logout
//   - HandleMe     → GET  /api/auth/me (behind auth.RequireAuth)
//
// Tokens are returned in the body for API clients and also set as an
// HttpOnly cookie for browsers; auth.TokenFromRequest accepts either.
type AuthHandler struct {
	accounts Accounts
	logger   *slog.Logger
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(accounts Accounts, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{accounts: accounts, logger: logger}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthResponse is returned by signup and login.
type AuthResponse struct {
	Token     string            `json:"token"`
	User      *model.PublicUser `json:"user"`
	ExpiresAt time.Time         `json:"expires_at"`
	Message   string            `json:"message"`
}

// HandleSignup creates an account and logs it in.
//
// HTTP: POST /api/auth/signup  {username, email?, password, full_name?}
// 201 on success; 400 / 409 / 503 otherwise.
func (h *AuthHandler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	var in service.SignupInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}

	res, err := h.accounts.SignupAndLogin(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}

	setTokenCookie(w, res.Token, res.ExpiresAt)
	writeJSON(w, http.StatusCreated, AuthResponse{
		Token:     res.Token,
		User:      res.User,
		ExpiresAt: res.ExpiresAt,
		Message:   "account created",
	})
}

// HandleLogin checks credentials and opens a session.
//
// HTTP: POST /api/auth/login  {username, password}
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var in loginRequest
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}

	res, err := h.accounts.Login(r.Context(), in.Username, in.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	setTokenCookie(w, res.Token, res.ExpiresAt)
	writeJSON(w, http.StatusOK, AuthResponse{
		Token:     res.Token,
		User:      res.User,
		ExpiresAt: res.ExpiresAt,
		Message:   "login successful",
	})
}

// HandleLogout ends the caller's session.
//
// HTTP: POST /api/auth/logout
// Logging out without a token, or with one that is unknown or already gone,
// still answers 200. Only a storage failure is reported.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.accounts.Logout(r.Context(), auth.TokenFromRequest(r)); err != nil {
		writeError(w, err)
		return
	}

	clearTokenCookie(w)
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// HandleMe returns the logged-in user's public profile.
//
// HTTP: GET /api/auth/me
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized())
		return
	}

	user, err := h.accounts.GetUserByID(r.Context(), userID)
	if err != nil {
		// A live session whose user is gone is treated as a missing user.
		h.logger.Warn("session user lookup failed",
			slog.String("userID", userID),
			slog.String("error", err.Error()),
		)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

func setTokenCookie(w http.ResponseWriter, token string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.TokenCookie,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearTokenCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.TokenCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
