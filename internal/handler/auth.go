package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/rs/xid"

	"github.com/sakif/book-catalog/internal/apperror"
	"github.com/sakif/book-catalog/internal/auth"
	"github.com/sakif/book-catalog/internal/model"
	"github.com/sakif/book-catalog/internal/response"
	"github.com/sakif/book-catalog/internal/service"
)

// AuthService is what the auth routes need from service.AuthService.
type AuthService interface {
	Register(ctx context.Context, name, email, password string) (*model.User, error)
	Authenticate(ctx context.Context, email, password string) (*service.Session, error)
	ResetPassword(ctx context.Context, email, newPassword string) error
	LoginWithGitHub(ctx context.Context, ghUser *auth.GitHubUser) (*service.Session, error)
}

// GitHubAuthenticator is the OAuth half of GitHub sign-in.
// *auth.GitHubProvider implements it.
type GitHubAuthenticator interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*auth.GitHubUser, error)
}

const stateCookie = "oauth_state"

// AuthHandler serves signup, login, password change and the optional
// GitHub sign-in flow.
//
// HANDLER RESPONSIBILITIES:
//   - HandleSignup          → create an account
//   - HandleLogin           → check credentials, return a bearer token
//   - HandleChangePassword  → set a new password (revokes older tokens)
//   - HandleGitHubLogin     → redirect the browser to GitHub's authorization page
//   - HandleGitHubCallback  → receive the code, find or create the user, return a token
type AuthHandler struct {
	auth     AuthService
	github   GitHubAuthenticator // nil when GitHub sign-in is not configured
	validate Validator
	logger   *slog.Logger
}

// NewAuthHandler creates an AuthHandler. github may be nil.
func NewAuthHandler(svc AuthService, github GitHubAuthenticator, v Validator, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		auth:     svc,
		github:   github,
		validate: v,
		logger:   logger,
	}
}

// HandleSignup registers a new user.
//
// HTTP: POST /signup
// REQUEST BODY: {"name": "Ada", "email": "ada@example.com", "password": "..."}
func (h *AuthHandler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := decodeAndValidate(w, r, h.validate, &req); err != nil {
		response.Error(w, err)
		return
	}

	user, err := h.auth.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		response.Error(w, err)
		return
	}

	response.Created(w, "USER CREATE SUCCESSFULLY", map[string]string{
		"name":  user.Name,
		"email": user.Email,
	})
}

// HandleLogin checks the credentials and returns a signed token.
//
// HTTP: POST /login
// RESPONSE DATA: {"token": "eyJ...", "expiresAt": "2025-01-01T12:00:00Z"}
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeAndValidate(w, r, h.validate, &req); err != nil {
		response.Error(w, err)
		return
	}

	session, err := h.auth.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		response.Error(w, err)
		return
	}

	response.OK(w, "SUCCESSFULLY LOGIN", session)
}

// HandleChangePassword sets a new password for the account.
//
// HTTP: PUT /changePassword
// REQUEST BODY: {"email": "ada@example.com", "newPassword": "..."}
func (h *AuthHandler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if err := decodeAndValidate(w, r, h.validate, &req); err != nil {
		response.Error(w, err)
		return
	}

	if err := h.auth.ResetPassword(r.Context(), req.Email, req.NewPassword); err != nil {
		response.Error(w, err)
		return
	}

	response.OK(w, "UPDATE PASSWORD SUCCESSFULLY", nil)
}

// HandleGitHubLogin redirects the user to GitHub's authorization page.
//
// HTTP: GET /auth/github/login
//
// CSRF PROTECTION VIA STATE:
// We generate a random state string and store it in a short-lived cookie.
// When GitHub calls back, HandleGitHubCallback verifies the state matches.
// This proves the callback was initiated by this server, not a CSRF attacker.
func (h *AuthHandler) HandleGitHubLogin(w http.ResponseWriter, r *http.Request) {
	state := xid.New().String()

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/auth/github",
		MaxAge:   600, // 10 minutes
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.github.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleGitHubCallback completes the OAuth login flow and answers with the
// same token payload as /login.
//
// HTTP: GET /auth/github/callback?code=xxx&state=yyy
//
// FLOW:
//  1. Validate the state parameter (CSRF check)
//  2. Exchange the code for a GitHub user profile
//  3. Find or create the catalog user with that email
//  4. Issue a token
func (h *AuthHandler) HandleGitHubCallback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	// --- Step 1: Validate CSRF state ---
	cookie, err := r.Cookie(stateCookie)
	if err != nil || cookie.Value == "" || query.Get("state") != cookie.Value {
		h.logger.Warn("github callback: state mismatch")
		response.Error(w, apperror.ValidationFailed("state", "invalid OAuth state"))
		return
	}

	// The state cookie is single-use.
	http.SetCookie(w, &http.Cookie{
		Name:   stateCookie,
		Value:  "",
		Path:   "/auth/github",
		MaxAge: -1,
	})

	// GitHub sends ?error=access_denied when the user declines.
	if errParam := query.Get("error"); errParam != "" {
		h.logger.Info("github callback: authorization denied", slog.String("error", errParam))
		response.Error(w, apperror.Unauthorized("GitHub authorization was denied"))
		return
	}

	code := query.Get("code")
	if code == "" {
		response.Error(w, apperror.ValidationFailed("code", "missing OAuth code"))
		return
	}

	// --- Step 2: Exchange code for GitHub user profile ---
	ghUser, err := h.github.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("github callback: exchange failed", slog.String("error", err.Error()))
		response.Error(w, apperror.Unauthorized("GitHub authentication failed"))
		return
	}

	// --- Steps 3 and 4 ---
	session, err := h.auth.LoginWithGitHub(r.Context(), ghUser)
	if err != nil {
		response.Error(w, err)
		return
	}

	response.OK(w, "SUCCESSFULLY LOGIN", session)
}
