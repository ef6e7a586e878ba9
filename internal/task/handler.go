package task

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/taskhive/task-api/internal/auth"
	"github.com/taskhive/task-api/internal/httputil"
	"github.com/taskhive/task-api/internal/logging"
)

// Handler contains HTTP handlers for task endpoints
type Handler struct {
	service *Service
	logger  *logging.Logger
}

func NewHandler(service *Service, logger *logging.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// CreateRequest represents the task creation body. There is no owner
// field: ownership always comes from the authenticated caller.
type CreateRequest struct {
	Description string `json:"description"`
	Completed   bool   `json:"completed"`
}

// Create makes a new task for the caller
// @Summary      Create task
// @Tags         tasks
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body CreateRequest true "Task"
// @Success      201 {object} Task
// @Failure      400 {object} httputil.ErrorResponse "Validation error"
// @Failure      401 {object} httputil.ErrorResponse "Unauthorized"
// @Router       /tasks [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	ownerID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid task create body", "error", err.Error())
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	created, err := h.service.Create(r.Context(), ownerID, req.Description, req.Completed)
	if err != nil {
		if errors.Is(err, ErrDescriptionRequired) {
			logger.Warn("task create failed: validation error", "error", err.Error())
			httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeValidationFailed, http.StatusBadRequest)
			return
		}
		logger.Error("task create failed: internal error", "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to create task", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	httputil.RespondJSON(w, created, http.StatusCreated)
}

// List returns the caller's tasks
// @Summary      List tasks
// @Description  Optional query params: completed=true|false, limit, skip, sortBy=field:asc|desc
// @Tags         tasks
// @Produce      json
// @Security     BearerAuth
// @Success      200 {array} Task
// @Failure      400 {object} httputil.ErrorResponse "Bad query parameter"
// @Failure      401 {object} httputil.ErrorResponse "Unauthorized"
// @Router       /tasks [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	ownerID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	opts, err := parseListOptions(r)
	if err != nil {
		logger.Warn("invalid task list query", "error", err.Error())
		httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeValidationFailed, http.StatusBadRequest)
		return
	}

	tasks, err := h.service.List(r.Context(), ownerID, opts)
	if err != nil {
		logger.Error("task list failed: internal error", "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to list tasks", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	httputil.RespondJSON(w, tasks, http.StatusOK)
}

// Get returns one of the caller's tasks by id
// @Summary      Get task
// @Tags         tasks
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Task id"
// @Success      200 {object} Task
// @Failure      401 {object} httputil.ErrorResponse "Unauthorized"
// @Failure      404 {object} httputil.ErrorResponse "Absent or not owned"
// @Router       /tasks/{id} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	ownerID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	id, ok := taskID(w, r)
	if !ok {
		return
	}

	found, err := h.service.Get(r.Context(), id, ownerID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httputil.RespondErrorWithCode(w, "task not found", httputil.CodeNotFound, http.StatusNotFound)
			return
		}
		logger.Error("task get failed: internal error", "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to get task", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	httputil.RespondJSON(w, found, http.StatusOK)
}

// Update patches one of the caller's tasks
// @Summary      Update task
// @Description  Patch description and/or completed; any other key fails the whole patch
// @Tags         tasks
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Task id"
// @Param        request body map[string]any true "Fields to update"
// @Success      200 {object} Task
// @Failure      400 {object} httputil.ErrorResponse "Invalid update"
// @Failure      401 {object} httputil.ErrorResponse "Unauthorized"
// @Failure      404 {object} httputil.ErrorResponse "Absent or not owned"
// @Router       /tasks/{id} [patch]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	ownerID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	id, ok := taskID(w, r)
	if !ok {
		return
	}

	var patch map[string]any
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		logger.Warn("invalid task update body", "error", err.Error())
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	updated, err := h.service.Update(r.Context(), id, ownerID, patch)
	if err != nil {
		if errors.Is(err, ErrInvalidUpdate) || errors.Is(err, ErrDescriptionRequired) {
			logger.Warn("task update failed: validation error", "error", err.Error())
			httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeValidationFailed, http.StatusBadRequest)
			return
		}
		if errors.Is(err, ErrNotFound) {
			httputil.RespondErrorWithCode(w, "task not found", httputil.CodeNotFound, http.StatusNotFound)
			return
		}
		logger.Error("task update failed: internal error", "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to update task", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	httputil.RespondJSON(w, updated, http.StatusOK)
}

// Delete removes one of the caller's tasks
// @Summary      Delete task
// @Tags         tasks
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Task id"
// @Success      200 {object} map[string]string
// @Failure      401 {object} httputil.ErrorResponse "Unauthorized"
// @Failure      404 {object} httputil.ErrorResponse "Absent or not owned"
// @Router       /tasks/{id} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	ownerID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	id, ok := taskID(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), id, ownerID); err != nil {
		if errors.Is(err, ErrNotFound) {
			httputil.RespondErrorWithCode(w, "task not found", httputil.CodeNotFound, http.StatusNotFound)
			return
		}
		logger.Error("task delete failed: internal error", "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to delete task", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	httputil.RespondJSON(w, map[string]string{"message": "task deleted"}, http.StatusOK)
}

// taskID parses the id path parameter. A malformed id cannot match any
// task, so it reports 404 like any other miss.
func taskID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.RespondErrorWithCode(w, "task not found", httputil.CodeNotFound, http.StatusNotFound)
		return uuid.Nil, false
	}
	return id, true
}

func parseListOptions(r *http.Request) (ListOptions, error) {
	var opts ListOptions
	query := r.URL.Query()

	if raw := query.Get("completed"); raw != "" {
		completed, err := strconv.ParseBool(raw)
		if err != nil {
			return opts, errors.New("completed must be true or false")
		}
		opts.Completed = &completed
	}

	if raw := query.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return opts, errors.New("limit must be a non-negative number")
		}
		opts.Limit = limit
	}

	if raw := query.Get("skip"); raw != "" {
		skip, err := strconv.Atoi(raw)
		if err != nil || skip < 0 {
			return opts, errors.New("skip must be a non-negative number")
		}
		opts.Skip = skip
	}

	column, desc, err := ParseSort(query.Get("sortBy"))
	if err != nil {
		return opts, err
	}
	opts.SortBy = column
	opts.SortDesc = desc

	return opts, nil
}
