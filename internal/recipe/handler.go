package recipe

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/jsvoboda/recipe-api/internal/auth"
	"github.com/jsvoboda/recipe-api/internal/httputil"
	"github.com/jsvoboda/recipe-api/internal/logging"
	"github.com/jsvoboda/recipe-api/internal/taxonomy"
)

const maxImageSize = 10 << 20 // 10 MB

// RecipeService is the surface the handler consumes.
type RecipeService interface {
	Create(ctx context.Context, ownerID uuid.UUID, input CreateInput) (*Recipe, error)
	Get(ctx context.Context, ownerID uuid.UUID, id int64) (*Recipe, error)
	List(ctx context.Context, ownerID uuid.UUID, tagIDs, ingredientIDs []int64) ([]Recipe, error)
	Update(ctx context.Context, ownerID uuid.UUID, id int64, input UpdateInput) (*Recipe, error)
	Delete(ctx context.Context, ownerID uuid.UUID, id int64) error
	AttachImage(ctx context.Context, ownerID uuid.UUID, id int64, data []byte, contentType, ext string) (*Recipe, error)
}

// URLPresigner turns stored image keys into time-limited download URLs.
type URLPresigner interface {
	PresignedURL(ctx context.Context, key string) (string, error)
}

// Handler serves the /recipes resource
type Handler struct {
	service RecipeService
	presign URLPresigner
}

func NewHandler(service RecipeService, presign URLPresigner) *Handler {
	return &Handler{service: service, presign: presign}
}

// Request represents a recipe create/update body. Pointers distinguish
// absent fields: for updates an absent relation list leaves the set
// untouched while an empty one clears it.
type Request struct {
	Title       *string                `json:"title"`
	Description *string                `json:"description"`
	TimeMinutes *int                   `json:"time_minutes"`
	Price       *float64               `json:"price"`
	Link        *string                `json:"link"`
	Tags        *[]taxonomy.Descriptor `json:"tags"`
	Ingredients *[]taxonomy.Descriptor `json:"ingredients"`
}

// ListResponse is the reduced recipe shape used by the list endpoint.
type ListResponse struct {
	ID          int64           `json:"id"`
	Title       string          `json:"title"`
	TimeMinutes int             `json:"time_minutes"`
	Price       float64         `json:"price"`
	Link        string          `json:"link"`
	Tags        []taxonomy.Item `json:"tags"`
	Ingredients []taxonomy.Item `json:"ingredients"`
}

// DetailResponse adds description and image to the list shape.
type DetailResponse struct {
	ListResponse
	Description string  `json:"description"`
	Image       *string `json:"image"`
}

func toListResponse(rec *Recipe) ListResponse {
	tags := rec.Tags
	if tags == nil {
		tags = []taxonomy.Item{}
	}
	ingredients := rec.Ingredients
	if ingredients == nil {
		ingredients = []taxonomy.Item{}
	}
	return ListResponse{
		ID:          rec.ID,
		Title:       rec.Title,
		TimeMinutes: rec.TimeMinutes,
		Price:       rec.Price,
		Link:        rec.Link,
		Tags:        tags,
		Ingredients: ingredients,
	}
}

func (h *Handler) toDetailResponse(ctx context.Context, rec *Recipe) DetailResponse {
	resp := DetailResponse{
		ListResponse: toListResponse(rec),
		Description:  rec.Description,
	}
	if rec.ImageKey != nil {
		if url, err := h.presign.PresignedURL(ctx, *rec.ImageKey); err == nil {
			resp.Image = &url
		} else {
			logging.GetLoggerFromContext(ctx).Warn("failed to presign image url", "error", err.Error())
		}
	}
	return resp
}

// List returns the requester's recipes
// @Summary      List recipes
// @Description  List recipes owned by the requester, newest first. tags and ingredients are comma-separated ID lists; both filters AND together.
// @Tags         recipes
// @Produce      json
// @Security     BearerAuth
// @Param        tags query string false "Comma-separated list of tag ids to filter"
// @Param        ingredients query string false "Comma-separated list of ingredient ids to filter"
// @Success      200 {array} ListResponse
// @Failure      400 {object} httputil.ErrorResponse "Invalid query parameter"
// @Failure      401 {object} httputil.ErrorResponse "Unauthorized"
// @Router       /recipes [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	ownerID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	tagIDs, err := httputil.ParseIDList(r.URL.Query().Get("tags"))
	if err != nil {
		httputil.RespondErrorWithCode(w, "invalid tags parameter", httputil.CodeInvalidQueryParam, http.StatusBadRequest)
		return
	}
	ingredientIDs, err := httputil.ParseIDList(r.URL.Query().Get("ingredients"))
	if err != nil {
		httputil.RespondErrorWithCode(w, "invalid ingredients parameter", httputil.CodeInvalidQueryParam, http.StatusBadRequest)
		return
	}

	recipes, err := h.service.List(r.Context(), ownerID, tagIDs, ingredientIDs)
	if err != nil {
		logger.Error("failed to list recipes", "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to list recipes", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	resp := make([]ListResponse, len(recipes))
	for i := range recipes {
		resp[i] = toListResponse(&recipes[i])
	}
	httputil.RespondJSON(w, resp, http.StatusOK)
}

// Create creates a recipe
// @Summary      Create a recipe
// @Description  Create a recipe owned by the requester. Tag and ingredient descriptors are reconciled: existing (owner, name) entities are reused, missing ones created.
// @Tags         recipes
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body Request true "Recipe fields"
// @Success      201 {object} DetailResponse
// @Failure      400 {object} httputil.ErrorResponse "Validation error"
// @Failure      401 {object} httputil.ErrorResponse "Unauthorized"
// @Router       /recipes [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	ownerID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	if req.Title == nil || req.TimeMinutes == nil || req.Price == nil {
		httputil.RespondErrorWithCode(w, "title, time_minutes and price are required", httputil.CodeValidationFailed, http.StatusBadRequest)
		return
	}

	input := CreateInput{
		Title:       *req.Title,
		TimeMinutes: *req.TimeMinutes,
		Price:       *req.Price,
	}
	if req.Description != nil {
		input.Description = *req.Description
	}
	if req.Link != nil {
		input.Link = *req.Link
	}
	if req.Tags != nil {
		input.Tags = *req.Tags
	}
	if req.Ingredients != nil {
		input.Ingredients = *req.Ingredients
	}

	created, err := h.service.Create(r.Context(), ownerID, input)
	if err != nil {
		h.respondServiceError(w, logger, err, "failed to create recipe")
		return
	}

	logger.Info("recipe created", "recipe_id", created.ID)

	httputil.RespondJSON(w, h.toDetailResponse(r.Context(), created), http.StatusCreated)
}

// Get returns a single owned recipe
// @Summary      Get a recipe
// @Tags         recipes
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Recipe ID"
// @Success      200 {object} DetailResponse
// @Failure      401 {object} httputil.ErrorResponse "Unauthorized"
// @Failure      404 {object} httputil.ErrorResponse "Not found"
// @Router       /recipes/{id} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	ownerID, id, ok := h.requesterAndID(w, r)
	if !ok {
		return
	}

	rec, err := h.service.Get(r.Context(), ownerID, id)
	if err != nil {
		h.respondServiceError(w, logger, err, "failed to get recipe")
		return
	}

	httputil.RespondJSON(w, h.toDetailResponse(r.Context(), rec), http.StatusOK)
}

// Put fully updates a recipe
// @Summary      Update a recipe
// @Description  Full update: title, time_minutes and price are required. Absent tag/ingredient lists leave the relation sets untouched; present lists (including empty) replace them.
// @Tags         recipes
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Recipe ID"
// @Param        request body Request true "Recipe fields"
// @Success      200 {object} DetailResponse
// @Failure      400 {object} httputil.ErrorResponse "Validation error"
// @Failure      401 {object} httputil.ErrorResponse "Unauthorized"
// @Failure      404 {object} httputil.ErrorResponse "Not found"
// @Router       /recipes/{id} [put]
func (h *Handler) Put(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, true)
}

// Patch partially updates a recipe
// @Summary      Partially update a recipe
// @Tags         recipes
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Recipe ID"
// @Param        request body Request true "Changed fields"
// @Success      200 {object} DetailResponse
// @Failure      400 {object} httputil.ErrorResponse "Validation error"
// @Failure      401 {object} httputil.ErrorResponse "Unauthorized"
// @Failure      404 {object} httputil.ErrorResponse "Not found"
// @Router       /recipes/{id} [patch]
func (h *Handler) Patch(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, false)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request, full bool) {
	logger := logging.GetLoggerFromContext(r.Context())

	ownerID, id, ok := h.requesterAndID(w, r)
	if !ok {
		return
	}

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	if full && (req.Title == nil || req.TimeMinutes == nil || req.Price == nil) {
		httputil.RespondErrorWithCode(w, "title, time_minutes and price are required", httputil.CodeValidationFailed, http.StatusBadRequest)
		return
	}

	// Any owner field in the payload is simply not part of the schema here:
	// ownership is immutable after creation.
	updated, err := h.service.Update(r.Context(), ownerID, id, UpdateInput{
		Title:       req.Title,
		Description: req.Description,
		TimeMinutes: req.TimeMinutes,
		Price:       req.Price,
		Link:        req.Link,
		Tags:        req.Tags,
		Ingredients: req.Ingredients,
	})
	if err != nil {
		h.respondServiceError(w, logger, err, "failed to update recipe")
		return
	}

	logger.Info("recipe updated", "recipe_id", id)

	httputil.RespondJSON(w, h.toDetailResponse(r.Context(), updated), http.StatusOK)
}

// Delete removes an owned recipe
// @Summary      Delete a recipe
// @Tags         recipes
// @Security     BearerAuth
// @Param        id path int true "Recipe ID"
// @Success      204 "No Content"
// @Failure      401 {object} httputil.ErrorResponse "Unauthorized"
// @Failure      404 {object} httputil.ErrorResponse "Not found"
// @Router       /recipes/{id} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	ownerID, id, ok := h.requesterAndID(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), ownerID, id); err != nil {
		h.respondServiceError(w, logger, err, "failed to delete recipe")
		return
	}

	logger.Info("recipe deleted", "recipe_id", id)

	w.WriteHeader(http.StatusNoContent)
}

// UploadImage attaches an image to an owned recipe
// @Summary      Upload a recipe image
// @Description  Multipart upload under the "image" field. JPEG, PNG, GIF and WebP are accepted; a previous image is replaced.
// @Tags         recipes
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Recipe ID"
// @Param        image formData file true "Image file"
// @Success      200 {object} DetailResponse
// @Failure      400 {object} httputil.ErrorResponse "Missing or unsupported image"
// @Failure      401 {object} httputil.ErrorResponse "Unauthorized"
// @Failure      404 {object} httputil.ErrorResponse "Not found"
// @Failure      413 {object} httputil.ErrorResponse "Image too large"
// @Router       /recipes/{id}/upload-image [post]
func (h *Handler) UploadImage(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	ownerID, id, ok := h.requesterAndID(w, r)
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(maxImageSize); err != nil {
		httputil.RespondErrorWithCode(w, "image file is required", httputil.CodeImageRequired, http.StatusBadRequest)
		return
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		httputil.RespondErrorWithCode(w, "image file is required", httputil.CodeImageRequired, http.StatusBadRequest)
		return
	}
	defer file.Close()

	// Read one byte past the limit so oversized files are rejected instead
	// of being truncated to a corrupt image.
	data, err := io.ReadAll(io.LimitReader(file, maxImageSize+1))
	if err != nil {
		logger.Error("failed to read image upload", "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to read image", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}
	if len(data) > maxImageSize {
		httputil.RespondErrorWithCode(w, "image exceeds the maximum allowed size", httputil.CodeImageTooLarge, http.StatusRequestEntityTooLarge)
		return
	}

	contentType := http.DetectContentType(data)
	ext, ok := imageExtensions[contentType]
	if !ok {
		httputil.RespondErrorWithCode(w, "unsupported image type", httputil.CodeUnsupportedImageType, http.StatusBadRequest)
		return
	}

	rec, err := h.service.AttachImage(r.Context(), ownerID, id, data, contentType, ext)
	if err != nil {
		h.respondServiceError(w, logger, err, "failed to upload image")
		return
	}

	logger.Info("recipe image uploaded", "recipe_id", id)

	httputil.RespondJSON(w, h.toDetailResponse(r.Context(), rec), http.StatusOK)
}

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// requesterAndID resolves the authenticated user and the {id} URL segment.
// Non-numeric IDs read as not found, like any other missing resource.
func (h *Handler) requesterAndID(w http.ResponseWriter, r *http.Request) (uuid.UUID, int64, bool) {
	ownerID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return uuid.Nil, 0, false
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httputil.RespondErrorWithCode(w, "not found", httputil.CodeNotFound, http.StatusNotFound)
		return uuid.Nil, 0, false
	}

	return ownerID, id, true
}

func (h *Handler) respondServiceError(w http.ResponseWriter, logger *logging.Logger, err error, internalMsg string) {
	switch {
	case errors.Is(err, ErrNotFound):
		httputil.RespondErrorWithCode(w, "not found", httputil.CodeNotFound, http.StatusNotFound)
	case errors.Is(err, ErrTitleRequired),
		errors.Is(err, ErrInvalidPrice),
		errors.Is(err, ErrInvalidTimeMinutes):
		httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeValidationFailed, http.StatusBadRequest)
	default:
		logger.Error(internalMsg, "error", err.Error())
		httputil.RespondErrorWithCode(w, internalMsg, httputil.CodeInternalError, http.StatusInternalServerError)
	}
}
