package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	authd "github.com/naviriti/authd"
	"github.com/naviriti/authd/middleware"
)

const maxRequestBody = 1 << 20

// Handler serves the /auth route group.
type Handler struct {
	engine *authd.Engine
	logger *slog.Logger
}

func NewHandler(engine *authd.Engine, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		engine: engine,
		logger: logger,
	}
}

// Routes mounts the full auth surface. Account routes sit behind the
// token guard; everything else is anonymous.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/register-otp", h.registerOTP)
	r.Post("/register-no-otp", h.registerNoOTP)
	r.Post("/verify-otp", h.verifyOTP)
	r.Post("/login", h.login)
	r.Post("/request-password-reset", h.requestPasswordReset)
	r.Post("/reset-password", h.resetPassword)
	r.Post("/logout", h.logout)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Guard(h.engine))
		r.Get("/me", h.me)
		r.Put("/me", h.updateMe)
		r.Delete("/me", h.deleteMe)
	})

	return r
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type verifyOTPRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type resetRequest struct {
	Email string `json:"email"`
}

type resetConfirmRequest struct {
	Email       string `json:"email"`
	OTP         string `json:"otp"`
	NewPassword string `json:"newPassword"`
}

type updateProfileRequest struct {
	Name     *string `json:"name"`
	Password *string `json:"password"`
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func identityPayload(identity *authd.Identity) envelope {
	return envelope{
		"id":         identity.ID,
		"email":      identity.Email,
		"name":       identity.Name,
		"isVerified": identity.Verified,
		"createdAt":  identity.CreatedAt.Format(time.RFC3339),
		"updatedAt":  identity.UpdatedAt.Format(time.RFC3339),
	}
}

func (h *Handler) registerOTP(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decode(w, r, &req) {
		return
	}

	result, err := h.engine.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	extra := envelope{"userId": result.UserID}
	if result.MailPreview != "" {
		extra["mailPreview"] = result.MailPreview
	}
	writeSuccess(w, http.StatusCreated, "registration successful, verification code sent", extra)
}

func (h *Handler) registerNoOTP(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decode(w, r, &req) {
		return
	}

	result, err := h.engine.RegisterPreverified(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, "registration successful", envelope{
		"userId": result.UserID,
	})
}

func (h *Handler) verifyOTP(w http.ResponseWriter, r *http.Request) {
	var req verifyOTPRequest
	if !decode(w, r, &req) {
		return
	}

	identity, err := h.engine.VerifyOTP(r.Context(), req.Email, req.OTP)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, "email verified", envelope{
		"userId": identity.ID,
	})
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decode(w, r, &req) {
		return
	}

	result, err := h.engine.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, "login successful", envelope{
		"token":     result.Token,
		"expiresIn": int64(result.TTL.Seconds()),
	})
}

func (h *Handler) requestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if !decode(w, r, &req) {
		return
	}

	preview, err := h.engine.RequestPasswordReset(r.Context(), req.Email)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	extra := envelope{}
	if preview != "" {
		extra["mailPreview"] = preview
	}
	writeSuccess(w, http.StatusOK, "password reset code sent", extra)
}

func (h *Handler) resetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetConfirmRequest
	if !decode(w, r, &req) {
		return
	}

	if err := h.engine.ResetPassword(r.Context(), req.Email, req.OTP, req.NewPassword); err != nil {
		writeEngineError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, "password reset successful", nil)
}

// logout accepts the token from any supported transport location, same
// as the guard, but does not require it to verify: revoking a token the
// server would anyway reject is harmless. A request with no token at all
// is a 400, not a 401; there is nothing to authenticate.
func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	token, _ := middleware.Extract(r, middleware.DefaultExtractors)
	if token == "" {
		writeError(w, http.StatusBadRequest, authd.ErrTokenMissing.Error())
		return
	}

	if err := h.engine.Logout(r.Context(), token); err != nil {
		writeEngineError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, "logged out", nil)
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	writeSuccess(w, http.StatusOK, "ok", envelope{
		"user": identityPayload(identity),
	})
}

func (h *Handler) updateMe(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req updateProfileRequest
	if !decode(w, r, &req) {
		return
	}

	updated, err := h.engine.UpdateProfile(r.Context(), identity.ID, req.Name, req.Password)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, "profile updated", envelope{
		"user": identityPayload(updated),
	})
}

func (h *Handler) deleteMe(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	token, _, _ := middleware.TokenFromContext(r.Context())

	if err := h.engine.DeleteAccount(r.Context(), identity.ID, token); err != nil {
		writeEngineError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, "account deleted", nil)
}
