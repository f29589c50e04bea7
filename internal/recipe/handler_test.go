package recipe

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/jsvoboda/recipe-api/internal/auth"
	"github.com/jsvoboda/recipe-api/internal/taxonomy"
)

type fakeService struct {
	createReturn *Recipe
	createErr    error
	getReturn    *Recipe
	getErr       error
	listReturn   []Recipe
	listErr      error
	updateReturn *Recipe
	updateErr    error
	deleteErr    error
	attachReturn *Recipe
	attachErr    error

	gotCreate        CreateInput
	gotUpdate        UpdateInput
	gotTagIDs        []int64
	gotIngredientIDs []int64
	gotContentType   string
	gotExt           string
}

func (f *fakeService) Create(ctx context.Context, ownerID uuid.UUID, input CreateInput) (*Recipe, error) {
	f.gotCreate = input
	return f.createReturn, f.createErr
}

func (f *fakeService) Get(ctx context.Context, ownerID uuid.UUID, id int64) (*Recipe, error) {
	return f.getReturn, f.getErr
}

func (f *fakeService) List(ctx context.Context, ownerID uuid.UUID, tagIDs, ingredientIDs []int64) ([]Recipe, error) {
	f.gotTagIDs, f.gotIngredientIDs = tagIDs, ingredientIDs
	return f.listReturn, f.listErr
}

func (f *fakeService) Update(ctx context.Context, ownerID uuid.UUID, id int64, input UpdateInput) (*Recipe, error) {
	f.gotUpdate = input
	return f.updateReturn, f.updateErr
}

func (f *fakeService) Delete(ctx context.Context, ownerID uuid.UUID, id int64) error {
	return f.deleteErr
}

func (f *fakeService) AttachImage(ctx context.Context, ownerID uuid.UUID, id int64, data []byte, contentType, ext string) (*Recipe, error) {
	f.gotContentType, f.gotExt = contentType, ext
	return f.attachReturn, f.attachErr
}

type fakePresigner struct {
	url string
	err error
}

func (f *fakePresigner) PresignedURL(ctx context.Context, key string) (string, error) {
	return f.url, f.err
}

func authedRequest(t *testing.T, method, target string, body []byte, params map[string]string) *http.Request {
	t.Helper()

	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	ctx := context.WithValue(req.Context(), auth.UserIDContextKey, uuid.New())

	routeCtx := chi.NewRouteContext()
	for k, v := range params {
		routeCtx.URLParams.Add(k, v)
	}
	ctx = context.WithValue(ctx, chi.RouteCtxKey, routeCtx)

	return req.WithContext(ctx)
}

func TestList_FilterParsing(t *testing.T) {
	service := &fakeService{}
	h := NewHandler(service, &fakePresigner{})

	rec := httptest.NewRecorder()
	h.List(rec, authedRequest(t, "GET", "/recipes?tags=1,3&ingredients=2", nil, nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; want %d", rec.Code, http.StatusOK)
	}
	if len(service.gotTagIDs) != 2 || service.gotTagIDs[0] != 1 || service.gotTagIDs[1] != 3 {
		t.Errorf("tag filter = %v; want [1 3]", service.gotTagIDs)
	}
	if len(service.gotIngredientIDs) != 1 || service.gotIngredientIDs[0] != 2 {
		t.Errorf("ingredient filter = %v; want [2]", service.gotIngredientIDs)
	}
}

func TestList_InvalidFilter(t *testing.T) {
	h := NewHandler(&fakeService{}, &fakePresigner{})

	rec := httptest.NewRecorder()
	h.List(rec, authedRequest(t, "GET", "/recipes?tags=1,abc", nil, nil))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d; want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestList_OmitsDetailFields(t *testing.T) {
	key := "recipes/pic.jpg"
	service := &fakeService{listReturn: []Recipe{{
		ID: 1, Title: "Soup", Description: "secret notes", ImageKey: &key,
	}}}
	h := NewHandler(service, &fakePresigner{url: "http://minio/pic"})

	rec := httptest.NewRecorder()
	h.List(rec, authedRequest(t, "GET", "/recipes", nil, nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; want %d", rec.Code, http.StatusOK)
	}

	var decoded []map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&decoded); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(decoded) != 1 {
		t.Fatalf("got %d items; want 1", len(decoded))
	}
	if _, ok := decoded[0]["description"]; ok {
		t.Error("list responses must not carry description")
	}
	if _, ok := decoded[0]["image"]; ok {
		t.Error("list responses must not carry image")
	}
	if decoded[0]["tags"] == nil {
		t.Error("tags must serialize as [] rather than null")
	}
}

func TestGet_IncludesImageURL(t *testing.T) {
	key := "recipes/pic.jpg"
	service := &fakeService{getReturn: &Recipe{
		ID: 1, Title: "Soup", Description: "notes", ImageKey: &key,
		Tags: []taxonomy.Item{{ID: 1, Name: "Starter"}},
	}}
	h := NewHandler(service, &fakePresigner{url: "http://minio/pic?sig=abc"})

	rec := httptest.NewRecorder()
	h.Get(rec, authedRequest(t, "GET", "/recipes/1", nil, map[string]string{"id": "1"}))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; want %d", rec.Code, http.StatusOK)
	}

	var resp DetailResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Description != "notes" {
		t.Errorf("description = %q; want %q", resp.Description, "notes")
	}
	if resp.Image == nil || *resp.Image != "http://minio/pic?sig=abc" {
		t.Errorf("image = %v; want presigned URL", resp.Image)
	}
}

func TestGet_NotFound(t *testing.T) {
	service := &fakeService{getErr: ErrNotFound}
	h := NewHandler(service, &fakePresigner{})

	rec := httptest.NewRecorder()
	h.Get(rec, authedRequest(t, "GET", "/recipes/9", nil, map[string]string{"id": "9"}))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d; want %d", rec.Code, http.StatusNotFound)
	}
}

func TestCreate_RequiredFields(t *testing.T) {
	h := NewHandler(&fakeService{}, &fakePresigner{})

	bodies := []string{
		`{"time_minutes":5,"price":1}`,
		`{"title":"x","price":1}`,
		`{"title":"x","time_minutes":5}`,
	}
	for _, body := range bodies {
		rec := httptest.NewRecorder()
		h.Create(rec, authedRequest(t, "POST", "/recipes", []byte(body), nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %s: status = %d; want %d", body, rec.Code, http.StatusBadRequest)
		}
	}
}

func TestCreateHandler_Success(t *testing.T) {
	service := &fakeService{createReturn: &Recipe{ID: 5, Title: "Pie"}}
	h := NewHandler(service, &fakePresigner{})

	body := `{"title":"Pie","time_minutes":90,"price":9.99,"tags":[{"name":"Dessert"}]}`
	rec := httptest.NewRecorder()
	h.Create(rec, authedRequest(t, "POST", "/recipes", []byte(body), nil))

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d; want %d", rec.Code, http.StatusCreated)
	}
	if service.gotCreate.Title != "Pie" || len(service.gotCreate.Tags) != 1 {
		t.Errorf("service received %+v", service.gotCreate)
	}
}

func TestPut_RequiresScalars(t *testing.T) {
	h := NewHandler(&fakeService{}, &fakePresigner{})

	rec := httptest.NewRecorder()
	h.Put(rec, authedRequest(t, "PUT", "/recipes/1", []byte(`{"title":"only title"}`), map[string]string{"id": "1"}))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d; want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestPatch_DistinguishesAbsentFromEmpty(t *testing.T) {
	service := &fakeService{updateReturn: &Recipe{ID: 1}}
	h := NewHandler(service, &fakePresigner{})

	// No tags key: the relation pointer stays nil.
	rec := httptest.NewRecorder()
	h.Patch(rec, authedRequest(t, "PATCH", "/recipes/1", []byte(`{"title":"x"}`), map[string]string{"id": "1"}))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; want %d", rec.Code, http.StatusOK)
	}
	if service.gotUpdate.Tags != nil {
		t.Error("absent tags key must map to a nil list pointer")
	}

	// Empty tags list: the pointer is set and the list is empty.
	rec = httptest.NewRecorder()
	h.Patch(rec, authedRequest(t, "PATCH", "/recipes/1", []byte(`{"tags":[]}`), map[string]string{"id": "1"}))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; want %d", rec.Code, http.StatusOK)
	}
	if service.gotUpdate.Tags == nil || len(*service.gotUpdate.Tags) != 0 {
		t.Errorf("empty tags list must map to a non-nil empty list, got %v", service.gotUpdate.Tags)
	}
}

func TestDelete_Handler(t *testing.T) {
	h := NewHandler(&fakeService{}, &fakePresigner{})

	rec := httptest.NewRecorder()
	h.Delete(rec, authedRequest(t, "DELETE", "/recipes/1", nil, map[string]string{"id": "1"}))

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d; want %d", rec.Code, http.StatusNoContent)
	}
}

func TestDelete_BadID(t *testing.T) {
	h := NewHandler(&fakeService{}, &fakePresigner{})

	rec := httptest.NewRecorder()
	h.Delete(rec, authedRequest(t, "DELETE", "/recipes/abc", nil, map[string]string{"id": "abc"}))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d; want %d", rec.Code, http.StatusNotFound)
	}
}

func multipartImage(t *testing.T, field string, content []byte) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile(field, "upload.bin")
	if err != nil {
		t.Fatalf("failed to create form file: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("failed to write form file: %v", err)
	}
	writer.Close()
	return &buf, writer.FormDataContentType()
}

func pngBytes(t *testing.T) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode png: %v", err)
	}
	return buf.Bytes()
}

func TestUploadImage_Success(t *testing.T) {
	service := &fakeService{attachReturn: &Recipe{ID: 1}}
	h := NewHandler(service, &fakePresigner{})

	body, contentType := multipartImage(t, "image", pngBytes(t))
	req := authedRequest(t, "POST", "/recipes/1/upload-image", body.Bytes(), map[string]string{"id": "1"})
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	h.UploadImage(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	if service.gotContentType != "image/png" || service.gotExt != ".png" {
		t.Errorf("detected %q/%q; want image/png/.png", service.gotContentType, service.gotExt)
	}
}

func TestUploadImage_TooLarge(t *testing.T) {
	service := &fakeService{attachReturn: &Recipe{ID: 1}}
	h := NewHandler(service, &fakePresigner{})

	// A valid PNG header followed by padding past the size limit. The upload
	// must be rejected whole, not truncated and stored.
	oversized := append(pngBytes(t), bytes.Repeat([]byte{0}, maxImageSize)...)
	body, contentType := multipartImage(t, "image", oversized)
	req := authedRequest(t, "POST", "/recipes/1/upload-image", body.Bytes(), map[string]string{"id": "1"})
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	h.UploadImage(rec, req)

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d; want %d", rec.Code, http.StatusRequestEntityTooLarge)
	}
	if service.gotExt != "" {
		t.Errorf("oversized upload reached the service with ext %q", service.gotExt)
	}
}

func TestUploadImage_UnsupportedType(t *testing.T) {
	h := NewHandler(&fakeService{}, &fakePresigner{})

	body, contentType := multipartImage(t, "image", []byte("plain text, not an image"))
	req := authedRequest(t, "POST", "/recipes/1/upload-image", body.Bytes(), map[string]string{"id": "1"})
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	h.UploadImage(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d; want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestUploadImage_MissingField(t *testing.T) {
	h := NewHandler(&fakeService{}, &fakePresigner{})

	body, contentType := multipartImage(t, "not_image", pngBytes(t))
	req := authedRequest(t, "POST", "/recipes/1/upload-image", body.Bytes(), map[string]string{"id": "1"})
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	h.UploadImage(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d; want %d", rec.Code, http.StatusBadRequest)
	}
}
