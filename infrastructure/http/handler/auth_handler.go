package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/jobtrack/jobtrack/application/port/inbound"
	"github.com/jobtrack/jobtrack/domain/apperror"
	"github.com/jobtrack/jobtrack/infrastructure/http/middleware"
	"github.com/jobtrack/jobtrack/infrastructure/http/response"
	"github.com/jobtrack/jobtrack/infrastructure/http/validator"
)

// RefreshTokenCookieName is the cookie carrying the refresh token. Access
// tokens travel in the Authorization header and the response body; the
// refresh token only ever moves out-of-band through this cookie.
const RefreshTokenCookieName = "refresh"

type AuthHandler struct {
	authUseCase       inbound.AuthUseCase
	emailVerification inbound.EmailVerificationUseCase
	refreshTTL        time.Duration
}

func NewAuthHandler(
	authUseCase inbound.AuthUseCase,
	emailVerification inbound.EmailVerificationUseCase,
	refreshTTL time.Duration,
) *AuthHandler {
	return &AuthHandler{
		authUseCase:       authUseCase,
		emailVerification: emailVerification,
		refreshTTL:        refreshTTL,
	}
}

// Register mounts the auth routes. Protected routes go through the
// session gate's RequireAuth guard.
func (h *AuthHandler) Register(router *mux.Router, gate *middleware.SessionAuthenticator) {
	auth := router.PathPrefix("/api/auth").Subrouter()

	auth.HandleFunc("/signup", h.SignUp).Methods(http.MethodPost)
	auth.HandleFunc("/signin", h.SignIn).Methods(http.MethodPost)
	auth.HandleFunc("/signout", h.SignOut).Methods(http.MethodPost)
	auth.HandleFunc("/reissue", h.Reissue).Methods(http.MethodPost)
	auth.HandleFunc("/email/verify-request", h.SendVerificationCode).Methods(http.MethodPost)
	auth.HandleFunc("/email/verify-check", h.CheckVerificationCode).Methods(http.MethodPost)
	auth.HandleFunc("/check-email", h.CheckEmailDuplicate).Methods(http.MethodGet)
	auth.HandleFunc("/reset-request", h.RequestPasswordReset).Methods(http.MethodPost)
	auth.HandleFunc("/reset-password", h.ResetPassword).Methods(http.MethodPost)

	auth.HandleFunc("/check-password", gate.RequireAuth(h.CheckPassword)).Methods(http.MethodPost)
	auth.HandleFunc("/password", gate.RequireAuth(h.UpdatePassword)).Methods(http.MethodPut)
	auth.HandleFunc("/account", gate.RequireAuth(h.DeleteAccount)).Methods(http.MethodDelete)
}

type passwordRequest struct {
	Password string `json:"password"`
}

func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req inbound.SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	if !validator.ValidateEmail(req.Email) {
		response.UnprocessableEntity(w, "invalid email format")
		return
	}
	if !validator.ValidatePassword(req.Password) {
		response.UnprocessableEntity(w, "password must be at least 8 characters")
		return
	}

	pair, err := h.authUseCase.SignUp(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}

	h.setRefreshCookie(w, pair.RefreshToken)
	response.OK(w, pair.AccessToken)
}

func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req inbound.SigninRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	if !validator.ValidateEmail(req.Email) {
		response.UnprocessableEntity(w, "invalid email format")
		return
	}
	if !validator.ValidateRequired(req.Password) {
		response.UnprocessableEntity(w, "password is required")
		return
	}

	pair, err := h.authUseCase.SignIn(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}

	h.setRefreshCookie(w, pair.RefreshToken)
	response.OK(w, pair.AccessToken)
}

func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	refreshToken, ok := refreshTokenFromCookie(r)
	if !ok {
		response.BadRequest(w, "refresh token cookie is missing")
		return
	}

	if err := h.authUseCase.SignOut(r.Context(), refreshToken); err != nil {
		writeError(w, err)
		return
	}

	h.clearRefreshCookie(w)
	response.OK(w, nil)
}

func (h *AuthHandler) Reissue(w http.ResponseWriter, r *http.Request) {
	refreshToken, ok := refreshTokenFromCookie(r)
	if !ok {
		response.BadRequest(w, "refresh token cookie is missing")
		return
	}

	pair, err := h.authUseCase.Reissue(r.Context(), refreshToken)
	if err != nil {
		writeError(w, err)
		return
	}

	// Rotation: the new refresh token replaces the cookie as well.
	h.setRefreshCookie(w, pair.RefreshToken)
	response.OK(w, pair.AccessToken)
}

func (h *AuthHandler) SendVerificationCode(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if !validator.ValidateEmail(email) {
		response.UnprocessableEntity(w, "invalid email format")
		return
	}

	if err := h.emailVerification.SendVerificationCode(r.Context(), email); err != nil {
		writeError(w, err)
		return
	}

	response.OK(w, nil)
}

func (h *AuthHandler) CheckVerificationCode(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	code := r.URL.Query().Get("code")
	if !validator.ValidateEmail(email) || !validator.ValidateRequired(code) {
		response.UnprocessableEntity(w, "email and code are required")
		return
	}

	if err := h.emailVerification.VerifyCode(r.Context(), email, code); err != nil {
		writeError(w, err)
		return
	}

	response.OK(w, nil)
}

func (h *AuthHandler) CheckEmailDuplicate(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if !validator.ValidateEmail(email) {
		response.UnprocessableEntity(w, "invalid email format")
		return
	}

	if err := h.authUseCase.CheckEmailDuplicate(r.Context(), email); err != nil {
		writeError(w, err)
		return
	}

	response.OK(w, nil)
}

func (h *AuthHandler) CheckPassword(w http.ResponseWriter, r *http.Request) {
	principal, _ := middleware.PrincipalFrom(r.Context())

	var req passwordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	if err := h.authUseCase.CheckPassword(r.Context(), principal, req.Password); err != nil {
		writeError(w, err)
		return
	}

	response.OK(w, nil)
}

func (h *AuthHandler) UpdatePassword(w http.ResponseWriter, r *http.Request) {
	principal, _ := middleware.PrincipalFrom(r.Context())

	var req passwordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if !validator.ValidatePassword(req.Password) {
		response.UnprocessableEntity(w, "password must be at least 8 characters")
		return
	}

	if err := h.authUseCase.UpdatePassword(r.Context(), principal, req.Password); err != nil {
		writeError(w, err)
		return
	}

	// Password change revokes the refresh record server-side.
	h.clearRefreshCookie(w)
	response.OK(w, nil)
}

func (h *AuthHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	principal, _ := middleware.PrincipalFrom(r.Context())

	if err := h.authUseCase.DeleteAccount(r.Context(), principal); err != nil {
		writeError(w, err)
		return
	}

	h.clearRefreshCookie(w)
	response.OK(w, nil)
}

func (h *AuthHandler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if !validator.ValidateEmail(email) {
		response.UnprocessableEntity(w, "invalid email format")
		return
	}

	if err := h.authUseCase.RequestPasswordReset(r.Context(), email); err != nil {
		writeError(w, err)
		return
	}

	response.OK(w, nil)
}

// ResetPassword completes a reset either with the mailed single-use token
// or with an email that passed the verification-code flow.
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req passwordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if !validator.ValidatePassword(req.Password) {
		response.UnprocessableEntity(w, "password must be at least 8 characters")
		return
	}

	if resetToken := r.URL.Query().Get("token"); resetToken != "" {
		if err := h.authUseCase.ResetPasswordWithToken(r.Context(), resetToken, req.Password); err != nil {
			writeError(w, err)
			return
		}
		response.OK(w, nil)
		return
	}

	email := r.URL.Query().Get("email")
	if !validator.ValidateEmail(email) {
		response.UnprocessableEntity(w, "token or email is required")
		return
	}

	if err := h.authUseCase.ResetPasswordWithEmail(r.Context(), email, req.Password); err != nil {
		writeError(w, err)
		return
	}

	response.OK(w, nil)
}

func (h *AuthHandler) setRefreshCookie(w http.ResponseWriter, refreshToken string) {
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshTokenCookieName,
		Value:    refreshToken,
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
		MaxAge:   int(h.refreshTTL.Seconds()),
	})
}

func (h *AuthHandler) clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshTokenCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
		MaxAge:   -1,
	})
}

func refreshTokenFromCookie(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(RefreshTokenCookieName)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	return cookie.Value, true
}

// writeError maps tagged application errors to transport responses.
// Unclassified errors become a generic 500; their detail stays on the
// server side.
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		response.InternalServerError(w, "internal server error")
		return
	}

	status := apperror.HTTPStatus(appErr)
	if status == http.StatusInternalServerError {
		response.InternalServerError(w, "internal server error")
		return
	}

	response.Error(w, status, appErr.Message)
}
