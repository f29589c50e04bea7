package taxonomy

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/jsvoboda/recipe-api/internal/auth"
	"github.com/jsvoboda/recipe-api/internal/httputil"
	"github.com/jsvoboda/recipe-api/internal/logging"
)

// TaxonomyService is the surface the handler consumes.
type TaxonomyService interface {
	List(ctx context.Context, ownerID uuid.UUID, kind Kind, assignedOnly bool) ([]Item, error)
	Update(ctx context.Context, ownerID uuid.UUID, kind Kind, id int64, name string) (Item, error)
	Delete(ctx context.Context, ownerID uuid.UUID, kind Kind, id int64) error
}

// Handler serves the /tags and /ingredients resources. One handler instance
// per kind; the routes and behavior are identical.
type Handler struct {
	service TaxonomyService
	kind    Kind
}

func NewHandler(service TaxonomyService, kind Kind) *Handler {
	return &Handler{service: service, kind: kind}
}

// UpdateRequest represents the rename request body
type UpdateRequest struct {
	Name string `json:"name"`
}

// List returns the requester's tags or ingredients
// @Summary      List tags or ingredients
// @Description  List entities owned by the requester, name-descending. assigned_only=1 keeps only entities attached to at least one recipe.
// @Tags         taxonomy
// @Produce      json
// @Security     BearerAuth
// @Param        assigned_only query int false "Filter by items assigned to recipes" Enums(0, 1)
// @Success      200 {array} Item
// @Failure      400 {object} httputil.ErrorResponse "Invalid query parameter"
// @Failure      401 {object} httputil.ErrorResponse "Unauthorized"
// @Router       /tags [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	ownerID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	assignedOnly, err := httputil.ParseBoolFlag(r.URL.Query().Get("assigned_only"))
	if err != nil {
		httputil.RespondErrorWithCode(w, "invalid assigned_only parameter", httputil.CodeInvalidQueryParam, http.StatusBadRequest)
		return
	}

	items, err := h.service.List(r.Context(), ownerID, h.kind, assignedOnly)
	if err != nil {
		logger.Error("failed to list", "kind", string(h.kind), "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to list", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	if items == nil {
		items = []Item{}
	}
	httputil.RespondJSON(w, items, http.StatusOK)
}

// Update renames an owned tag or ingredient
// @Summary      Rename a tag or ingredient
// @Tags         taxonomy
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Entity ID"
// @Param        request body UpdateRequest true "New name"
// @Success      200 {object} Item
// @Failure      400 {object} httputil.ErrorResponse "Invalid request"
// @Failure      401 {object} httputil.ErrorResponse "Unauthorized"
// @Failure      404 {object} httputil.ErrorResponse "Not found"
// @Router       /tags/{id} [patch]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	ownerID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httputil.RespondErrorWithCode(w, "not found", httputil.CodeNotFound, http.StatusNotFound)
		return
	}

	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	item, err := h.service.Update(r.Context(), ownerID, h.kind, id, req.Name)
	if err != nil {
		if errors.Is(err, ErrNameRequired) {
			httputil.RespondErrorWithCode(w, "name is required", httputil.CodeValidationFailed, http.StatusBadRequest)
			return
		}
		if errors.Is(err, ErrNotFound) {
			httputil.RespondErrorWithCode(w, "not found", httputil.CodeNotFound, http.StatusNotFound)
			return
		}
		logger.Error("failed to update", "kind", string(h.kind), "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to update", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	httputil.RespondJSON(w, item, http.StatusOK)
}

// Delete removes an owned tag or ingredient
// @Summary      Delete a tag or ingredient
// @Tags         taxonomy
// @Security     BearerAuth
// @Param        id path int true "Entity ID"
// @Success      204 "No Content"
// @Failure      401 {object} httputil.ErrorResponse "Unauthorized"
// @Failure      404 {object} httputil.ErrorResponse "Not found"
// @Router       /tags/{id} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	ownerID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httputil.RespondErrorWithCode(w, "not found", httputil.CodeNotFound, http.StatusNotFound)
		return
	}

	if err := h.service.Delete(r.Context(), ownerID, h.kind, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			httputil.RespondErrorWithCode(w, "not found", httputil.CodeNotFound, http.StatusNotFound)
			return
		}
		logger.Error("failed to delete", "kind", string(h.kind), "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to delete", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
