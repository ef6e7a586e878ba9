package user

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/taskhive/task-api/internal/auth"
	"github.com/taskhive/task-api/internal/httputil"
	"github.com/taskhive/task-api/internal/logging"
)

// RateLimiter throttles unauthenticated requests per client IP and purpose
type RateLimiter interface {
	Allow(ctx context.Context, ip, purpose string) (bool, error)
	Reset(ctx context.Context, ip, purpose string) error
}

// Handler contains HTTP handlers for account endpoints
type Handler struct {
	service     *Service
	sessions    *auth.Service
	rateLimiter RateLimiter
	logger      *logging.Logger
}

func NewHandler(service *Service, sessions *auth.Service, rateLimiter RateLimiter, logger *logging.Logger) *Handler {
	return &Handler{
		service:     service,
		sessions:    sessions,
		rateLimiter: rateLimiter,
		logger:      logger,
	}
}

// SignupRequest represents the signup request body
type SignupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Age      *int   `json:"age,omitempty"`
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UserResponse represents a user in API responses
type UserResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Age       *int      `json:"age,omitempty"`
	HasAvatar bool      `json:"has_avatar"`
	CreatedAt string    `json:"created_at"`
	UpdatedAt string    `json:"updated_at"`
}

// AuthResponse represents the signup and login response
type AuthResponse struct {
	User  UserResponse `json:"user"`
	Token string       `json:"token"`
}

// newUserResponse strips sensitive fields at the serialization boundary
func newUserResponse(u *User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Age:       u.Age,
		HasAvatar: u.HasAvatar(),
		CreatedAt: u.CreatedAt.UTC().Format("2006-01-02T15:04:05.000Z"),
		UpdatedAt: u.UpdatedAt.UTC().Format("2006-01-02T15:04:05.000Z"),
	}
}

// Signup handles account creation
// @Summary      Sign up a new user
// @Description  Create a new account and receive a bearer token
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        request body SignupRequest true "Account details"
// @Success      201 {object} AuthResponse
// @Failure      400 {object} httputil.ErrorResponse "Validation error or duplicate email"
// @Failure      429 {object} httputil.ErrorResponse "Too many requests"
// @Router       /users [post]
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	if !h.allowRequest(w, r, "signup") {
		return
	}

	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid signup request body", "error", err.Error())
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	newUser, err := h.service.Register(r.Context(), req.Name, req.Email, req.Password, req.Age)
	if err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			logger.Warn("signup failed: email already exists")
			httputil.RespondErrorWithCode(w, "email already exists", httputil.CodeEmailAlreadyExists, http.StatusBadRequest)
			return
		}
		if isValidationError(err) {
			logger.Warn("signup failed: validation error", "error", err.Error())
			httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeValidationFailed, http.StatusBadRequest)
			return
		}
		logger.Error("signup failed: internal error", "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to create user", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	token, err := h.sessions.Issue(r.Context(), newUser.ID)
	if err != nil {
		logger.Error("signup failed: token issue error", "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to create user", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	logger.Info("user signed up", "user_id", newUser.ID)

	httputil.RespondJSON(w, AuthResponse{
		User:  newUserResponse(newUser),
		Token: token,
	}, http.StatusCreated)
}

// Login handles user login
// @Summary      Login
// @Description  Authenticate with email and password and receive a bearer token
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        request body LoginRequest true "Credentials"
// @Success      200 {object} AuthResponse
// @Failure      400 {object} httputil.ErrorResponse "Invalid credentials"
// @Failure      429 {object} httputil.ErrorResponse "Too many requests"
// @Router       /users/login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	if !h.allowRequest(w, r, "login") {
		return
	}

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid login request body", "error", err.Error())
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	existing, err := h.service.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			logger.Warn("login failed: invalid credentials")
			httputil.RespondErrorWithCode(w, "unable to login", httputil.CodeInvalidCredentials, http.StatusBadRequest)
			return
		}
		logger.Error("login failed: internal error", "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to login", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	token, err := h.sessions.Issue(r.Context(), existing.ID)
	if err != nil {
		logger.Error("login failed: token issue error", "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to login", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	// A successful login clears the failed-attempt window for this client
	if h.rateLimiter != nil {
		if err := h.rateLimiter.Reset(r.Context(), clientIP(r), "login"); err != nil {
			logger.Warn("failed to reset rate limit counter", "error", err.Error())
		}
	}

	logger.Info("user logged in", "user_id", existing.ID)

	httputil.RespondJSON(w, AuthResponse{
		User:  newUserResponse(existing),
		Token: token,
	}, http.StatusOK)
}

// Logout revokes the presented token only
// @Summary      Logout
// @Description  Revoke the bearer token used for this request; other sessions stay valid
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} map[string]string
// @Failure      401 {object} httputil.ErrorResponse "Unauthorized"
// @Router       /users/logout [post]
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	token, ok := auth.GetTokenFromContext(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	if err := h.sessions.Logout(r.Context(), token); err != nil {
		logger.Error("logout failed", "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to logout", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	logger.Info("user logged out")

	httputil.RespondJSON(w, map[string]string{"message": "logged out"}, http.StatusOK)
}

// LogoutAll revokes every session of the caller
// @Summary      Logout everywhere
// @Description  Revoke all bearer tokens issued to the caller
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} map[string]string
// @Failure      401 {object} httputil.ErrorResponse "Unauthorized"
// @Router       /users/logoutAll [post]
func (h *Handler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	if err := h.sessions.LogoutAll(r.Context(), userID); err != nil {
		logger.Error("logout all failed", "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to logout", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	logger.Info("user logged out everywhere", "user_id", userID)

	httputil.RespondJSON(w, map[string]string{"message": "logged out everywhere"}, http.StatusOK)
}

// Me returns the caller's profile
// @Summary      Get profile
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} UserResponse
// @Failure      401 {object} httputil.ErrorResponse "Unauthorized"
// @Router       /users/me [get]
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	existing, err := h.service.GetByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httputil.RespondErrorWithCode(w, "user not found", httputil.CodeNotFound, http.StatusNotFound)
			return
		}
		logger.Error("failed to load profile", "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to load profile", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	httputil.RespondJSON(w, newUserResponse(existing), http.StatusOK)
}

// UpdateMe applies a whitelisted profile patch
// @Summary      Update profile
// @Description  Patch name, email, password or age; any other key fails the whole patch
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body map[string]any true "Fields to update"
// @Success      200 {object} UserResponse
// @Failure      400 {object} httputil.ErrorResponse "Invalid update"
// @Failure      401 {object} httputil.ErrorResponse "Unauthorized"
// @Router       /users/me [patch]
func (h *Handler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	var patch map[string]any
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		logger.Warn("invalid update request body", "error", err.Error())
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	updated, err := h.service.UpdateProfile(r.Context(), userID, patch)
	if err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			logger.Warn("profile update failed: email already exists")
			httputil.RespondErrorWithCode(w, "email already exists", httputil.CodeEmailAlreadyExists, http.StatusBadRequest)
			return
		}
		if errors.Is(err, ErrInvalidUpdate) || isValidationError(err) {
			logger.Warn("profile update failed: validation error", "error", err.Error())
			httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeValidationFailed, http.StatusBadRequest)
			return
		}
		if errors.Is(err, ErrNotFound) {
			httputil.RespondErrorWithCode(w, "user not found", httputil.CodeNotFound, http.StatusNotFound)
			return
		}
		logger.Error("profile update failed: internal error", "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to update profile", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	httputil.RespondJSON(w, newUserResponse(updated), http.StatusOK)
}

// DeleteMe removes the caller's account, its tasks and all its sessions
// @Summary      Delete account
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} UserResponse
// @Failure      401 {object} httputil.ErrorResponse "Unauthorized"
// @Router       /users/me [delete]
func (h *Handler) DeleteMe(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	existing, err := h.service.GetByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httputil.RespondErrorWithCode(w, "user not found", httputil.CodeNotFound, http.StatusNotFound)
			return
		}
		logger.Error("account deletion failed", "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to delete account", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	if err := h.service.Delete(r.Context(), userID); err != nil {
		if errors.Is(err, ErrNotFound) {
			httputil.RespondErrorWithCode(w, "user not found", httputil.CodeNotFound, http.StatusNotFound)
			return
		}
		logger.Error("account deletion failed", "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to delete account", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	// The Postgres store cascades sessions with the row; the Redis store
	// needs the explicit revocation. A failure here leaves only tokens
	// that the guard's user-existence check already rejects.
	if err := h.sessions.LogoutAll(r.Context(), userID); err != nil {
		logger.Warn("failed to revoke sessions after account deletion", "error", err.Error())
	}

	logger.Info("account deleted", "user_id", userID)

	httputil.RespondJSON(w, newUserResponse(existing), http.StatusOK)
}

// UploadAvatar replaces the caller's profile image
// @Summary      Upload avatar
// @Description  Multipart upload, field name "avatar"; jpeg and png only
// @Tags         users
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        avatar formData file true "Profile image"
// @Success      200 {object} map[string]string
// @Failure      400 {object} httputil.ErrorResponse "Unsupported type or too large"
// @Failure      401 {object} httputil.ErrorResponse "Unauthorized"
// @Router       /users/me/avatar [post]
func (h *Handler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	maxBytes := h.service.maxAvatarBytes
	// Allow some slack for the multipart framing around the payload
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+64*1024)

	file, _, err := r.FormFile("avatar")
	if err != nil {
		logger.Warn("avatar upload failed: bad form", "error", err.Error())
		httputil.RespondErrorWithCode(w, "avatar file is required", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
	if err != nil {
		logger.Warn("avatar upload failed: read error", "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to read avatar", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	if err := h.service.SetAvatar(r.Context(), userID, data); err != nil {
		if errors.Is(err, ErrAvatarTooLarge) {
			httputil.RespondErrorWithCode(w, err.Error(), httputil.CodePayloadTooLarge, http.StatusBadRequest)
			return
		}
		if errors.Is(err, ErrUnsupportedAvatar) {
			httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeUnsupportedMedia, http.StatusBadRequest)
			return
		}
		logger.Error("avatar upload failed: internal error", "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to store avatar", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	logger.Info("avatar updated", "user_id", userID, "size", len(data))

	httputil.RespondJSON(w, map[string]string{"message": "avatar updated"}, http.StatusOK)
}

// ServeAvatar serves a user's profile image publicly
// @Summary      Get avatar
// @Tags         users
// @Produce      image/jpeg
// @Param        id path string true "User id"
// @Success      200 {file} binary
// @Failure      404 {object} httputil.ErrorResponse "No such user or avatar"
// @Router       /users/{id}/avatar [get]
func (h *Handler) ServeAvatar(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.RespondErrorWithCode(w, "not found", httputil.CodeNotFound, http.StatusNotFound)
		return
	}

	data, err := h.service.Avatar(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrAvatarNotFound) {
			httputil.RespondErrorWithCode(w, "not found", httputil.CodeNotFound, http.StatusNotFound)
			return
		}
		logging.GetLoggerFromContext(r.Context()).Error("failed to load avatar", "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to load avatar", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", http.DetectContentType(data))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// allowRequest applies the fixed-window rate limit for unauthenticated
// endpoints. Limiter faults are logged but never block the request.
func (h *Handler) allowRequest(w http.ResponseWriter, r *http.Request, purpose string) bool {
	if h.rateLimiter == nil {
		return true
	}

	logger := logging.GetLoggerFromContext(r.Context())
	ip := clientIP(r)

	allowed, err := h.rateLimiter.Allow(r.Context(), ip, purpose)
	if err != nil {
		logger.Error("failed to check rate limit", "error", err.Error())
		return true
	}
	if !allowed {
		logger.Warn("rate limit exceeded", "ip", ip, "purpose", purpose)
		httputil.RespondErrorWithCode(w, "too many requests, please try again later", httputil.CodeTooManyRequests, http.StatusTooManyRequests)
		return false
	}

	return true
}

// clientIP extracts the client IP address from the request
func clientIP(r *http.Request) string {
	xff := r.Header.Get("X-Forwarded-For")
	if xff != "" {
		ips := strings.Split(xff, ",")
		if len(ips) > 0 {
			return strings.TrimSpace(ips[0])
		}
	}

	xri := r.Header.Get("X-Real-IP")
	if xri != "" {
		return strings.TrimSpace(xri)
	}

	ip := r.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}
	return ip
}

// isValidationError reports whether err is one of the field validation sentinels
func isValidationError(err error) bool {
	for _, sentinel := range []error{
		ErrNameRequired,
		ErrEmailRequired,
		ErrInvalidEmailFormat,
		ErrPasswordRequired,
		ErrPasswordTooShort,
		ErrPasswordTooWeak,
		ErrNegativeAge,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}
