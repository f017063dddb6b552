package handlers_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"atelier/internal/app"
	"atelier/internal/config"
	"atelier/pkg/media"

	"github.com/google/uuid"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	adminEmail    = "admin@example.com"
	adminPassword = "password123"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01")

type testServer struct {
	t     *testing.T
	app   *app.Application
	store *media.MemoryStore
	token string
}

// setupApp builds the full application on a private in-memory SQLite
// database and an in-memory media store.
func setupApp(t *testing.T) *testServer {
	t.Helper()
	v := viper.New()
	config.SetDefaults(v)
	v.Set("JWT_SECRET", "test_jwt_secret")
	v.Set("DATABASE_DSN", fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New().String()))
	v.Set("ADMIN_EMAIL", adminEmail)
	v.Set("ADMIN_PASSWORD", adminPassword)
	v.Set("CONTACT_RATE_PER_MINUTE", 3)
	cfg, err := config.FromViper(v)
	require.NoError(t, err)

	store := media.NewMemoryStore("https://cdn.test/media", cfg.MaxUploadBytes)
	application, err := app.New(cfg, app.WithStore(store))
	require.NoError(t, err)
	t.Cleanup(func() { _ = application.Close() })

	return &testServer{t: t, app: application, store: store}
}

func (s *testServer) do(req *http.Request, auth bool) (*http.Response, map[string]any) {
	s.t.Helper()
	if auth {
		req.Header.Set("Authorization", "Bearer "+s.login())
	}
	resp, err := s.app.Fiber.Test(req, -1)
	require.NoError(s.t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(s.t, err)
	var body map[string]any
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(s.t, json.Unmarshal(raw, &body))
	}
	return resp, body
}

func (s *testServer) doList(path string, auth bool) (int, []map[string]any) {
	s.t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if auth {
		req.Header.Set("Authorization", "Bearer "+s.login())
	}
	resp, err := s.app.Fiber.Test(req, -1)
	require.NoError(s.t, err)
	defer resp.Body.Close()

	var list []map[string]any
	if resp.StatusCode == http.StatusOK {
		require.NoError(s.t, json.NewDecoder(resp.Body).Decode(&list))
	}
	return resp.StatusCode, list
}

func (s *testServer) login() string {
	s.t.Helper()
	if s.token != "" {
		return s.token
	}
	resp, body := s.do(jsonRequest(http.MethodPost, "/api/auth/login", map[string]any{
		"email":    adminEmail,
		"password": adminPassword,
	}), false)
	require.Equal(s.t, http.StatusOK, resp.StatusCode)
	s.token = body["token"].(string)
	return s.token
}

func jsonRequest(method, path string, payload any) *http.Request {
	raw, _ := json.Marshal(payload)
	req := httptest.NewRequest(method, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	return req
}

type upload struct {
	field, name string
}

func multipartRequest(t *testing.T, method, path string, fields map[string]string, files ...upload) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, f.field, f.name))
		h.Set("Content-Type", "image/png")
		part, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(pngBytes)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestAuthLoginAndMe(t *testing.T) {
	s := setupApp(t)

	resp, body := s.do(jsonRequest(http.MethodPost, "/api/auth/login", map[string]any{
		"email": adminEmail, "password": "wrong-password",
	}), false)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "invalid credentials", body["message"])

	resp, body = s.do(jsonRequest(http.MethodPost, "/api/auth/login", map[string]any{"email": "not-an-email"}), false)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body, "errors")

	claims, err := s.app.Auth.ValidateToken(s.login())
	require.NoError(t, err)
	assert.Equal(t, adminEmail, claims.Email)

	resp, body = s.do(httptest.NewRequest(http.MethodGet, "/api/auth/me", nil), true)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, adminEmail, body["email"])

	resp, _ = s.do(httptest.NewRequest(http.MethodGet, "/api/auth/me", nil), false)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestProductLifecycle(t *testing.T) {
	s := setupApp(t)

	// Writes without a token are rejected
	resp, _ := s.do(multipartRequest(t, http.MethodPost, "/api/products",
		map[string]string{"title": "Silk Saree", "price": "2999"}, upload{"mainImage", "saree.png"}), false)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, product := s.do(multipartRequest(t, http.MethodPost, "/api/products",
		map[string]string{"title": "Silk Saree", "price": "2999"}, upload{"mainImage", "saree.png"}), true)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	id := product["id"].(string)
	assert.NotEmpty(t, id)
	assert.Equal(t, "Silk Saree", product["title"])
	assert.Equal(t, 2999.0, product["price"])
	mainImage := product["mainImage"].(string)
	assert.True(t, strings.HasPrefix(mainImage, "https://cdn.test/media/products/"))
	assert.Equal(t, []any{}, product["additionalImages"])

	status, list := s.doList("/api/products", false)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, list, 1)
	assert.Equal(t, id, list[0]["id"])

	resp, got := s.do(httptest.NewRequest(http.MethodGet, "/api/products/"+id, nil), false)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Silk Saree", got["title"])

	// Partial JSON update keeps the image
	resp, updated := s.do(jsonRequest(http.MethodPut, "/api/products/"+id, map[string]any{
		"price":     2499,
		"mainImage": "https://elsewhere/fake.png",
	}), true)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 2499.0, updated["price"])
	assert.Equal(t, "Silk Saree", updated["title"])
	assert.Equal(t, mainImage, updated["mainImage"])

	// Replacing the image discards the old blob
	resp, updated = s.do(multipartRequest(t, http.MethodPut, "/api/products/"+id, nil, upload{"mainImage", "new.png"}), true)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEqual(t, mainImage, updated["mainImage"])
	assert.False(t, s.store.Has(mainImage))

	resp, body := s.do(httptest.NewRequest(http.MethodDelete, "/api/products/"+id, nil), true)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Product deleted successfully", body["message"])
	assert.Equal(t, 0, s.store.Len())

	for i := 0; i < 2; i++ {
		resp, body = s.do(httptest.NewRequest(http.MethodDelete, "/api/products/"+id, nil), true)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Contains(t, body["message"], "not found")
	}
}

func TestProductGalleryURLsInJSONIgnored(t *testing.T) {
	s := setupApp(t)

	resp, product := s.do(multipartRequest(t, http.MethodPost, "/api/products",
		map[string]string{"title": "Kurti"},
		upload{"mainImage", "front.png"}, upload{"additionalImages", "g1.png"}, upload{"additionalImages", "g2.png"}), true)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	id := product["id"].(string)
	gallery := product["additionalImages"].([]any)
	require.Len(t, gallery, 2)

	resp, updated := s.do(jsonRequest(http.MethodPut, "/api/products/"+id, map[string]any{
		"additionalImages": []string{"https://elsewhere/x.png"},
	}), true)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, gallery, updated["additionalImages"])

	_, got := s.do(httptest.NewRequest(http.MethodGet, "/api/products/"+id, nil), false)
	assert.Equal(t, gallery, got["additionalImages"])
	for _, url := range gallery {
		assert.True(t, s.store.Has(url.(string)))
	}
}

func TestProductCreateWithoutImage(t *testing.T) {
	s := setupApp(t)

	resp, body := s.do(jsonRequest(http.MethodPost, "/api/products", map[string]any{
		"title": "Kurta", "price": 10, "mainImage": "https://elsewhere/x.png",
	}), true)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body["errors"], "mainImage")

	_, list := s.doList("/api/products", false)
	assert.Empty(t, list)
}

func TestProductUploadFailure(t *testing.T) {
	s := setupApp(t)
	s.store.FailOn = func(_ int, f media.File) error {
		if f.Name == "second.png" {
			return errors.New("connection reset by peer")
		}
		return nil
	}

	resp, body := s.do(multipartRequest(t, http.MethodPost, "/api/products",
		map[string]string{"title": "Anarkali", "price": "1500"},
		upload{"mainImage", "main.png"},
		upload{"additionalImages", "first.png"},
		upload{"additionalImages", "second.png"},
		upload{"additionalImages", "third.png"},
	), true)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "Could not upload image", body["message"])
	assert.NotContains(t, body, "error", "details are hidden outside debug mode")

	_, list := s.doList("/api/products", false)
	assert.Empty(t, list)
	assert.Equal(t, 0, s.store.Len())
}

func TestUpdateAndDeleteUnknownIDs(t *testing.T) {
	s := setupApp(t)

	resp, _ := s.do(jsonRequest(http.MethodPut, "/api/team/does-not-exist", map[string]any{"name": "X"}), true)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	_, list := s.doList("/api/team", false)
	assert.Empty(t, list)

	resp, body := s.do(httptest.NewRequest(http.MethodDelete, "/api/portfolio/images/never-created", nil), true)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, body["message"], "not found")
}

func TestPortfolioVideoJSON(t *testing.T) {
	s := setupApp(t)

	resp, body := s.do(jsonRequest(http.MethodPost, "/api/portfolio/videos", map[string]any{
		"title": "Runway", "embedUrl": "not a url",
	}), true)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Validation failed", body["message"])

	resp, video := s.do(jsonRequest(http.MethodPost, "/api/portfolio/videos", map[string]any{
		"title": "Runway", "embedUrl": "https://www.youtube.com/embed/abc123",
	}), true)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.NotEmpty(t, video["id"])
	assert.NotEmpty(t, video["createdAt"])
}

func TestSingletons(t *testing.T) {
	s := setupApp(t)

	resp, about := s.do(httptest.NewRequest(http.MethodGet, "/api/about", nil), false)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "", about["founderImage"])
	assert.Equal(t, []any{}, about["successStories"])

	resp, info := s.do(jsonRequest(http.MethodPut, "/api/contact/info", map[string]any{
		"phone1": "+1-555-0100", "email1": "a@b.com",
	}), true)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "+1-555-0100", info["phone1"])

	resp, info = s.do(httptest.NewRequest(http.MethodGet, "/api/contact/info", nil), false)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "+1-555-0100", info["phone1"])
	assert.Equal(t, "a@b.com", info["email1"])

	resp, _ = s.do(jsonRequest(http.MethodPut, "/api/contact/info", map[string]any{"email1": "broken"}), true)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAboutStories(t *testing.T) {
	s := setupApp(t)

	resp, _ := s.do(multipartRequest(t, http.MethodPost, "/api/about/stories",
		map[string]string{"heading": "No image"}), true)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, story := s.do(multipartRequest(t, http.MethodPost, "/api/about/stories",
		map[string]string{"heading": "Graduate to designer", "paragraph": "Meera now runs her own label."},
		upload{"image", "meera.png"}), true)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	storyID := story["id"].(string)

	resp, story = s.do(jsonRequest(http.MethodPut, "/api/about/stories/"+storyID, map[string]any{
		"heading": "From graduate to designer",
	}), true)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Meera now runs her own label.", story["paragraph"])

	_, about := s.do(httptest.NewRequest(http.MethodGet, "/api/about", nil), false)
	stories := about["successStories"].([]any)
	require.Len(t, stories, 1)
	assert.Equal(t, "From graduate to designer", stories[0].(map[string]any)["heading"])

	// Stories only change through their own endpoints
	resp, _ = s.do(jsonRequest(http.MethodPut, "/api/about", map[string]any{
		"successStories": []map[string]any{{"id": "x", "image": "https://elsewhere/y.png", "heading": "Other"}},
	}), true)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_, about = s.do(httptest.NewRequest(http.MethodGet, "/api/about", nil), false)
	stories = about["successStories"].([]any)
	require.Len(t, stories, 1)
	assert.Equal(t, storyID, stories[0].(map[string]any)["id"])
	assert.True(t, s.store.Has(stories[0].(map[string]any)["image"].(string)))

	resp, _ = s.do(httptest.NewRequest(http.MethodDelete, "/api/about/stories/"+storyID, nil), false)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp, _ = s.do(httptest.NewRequest(http.MethodDelete, "/api/about/stories/"+storyID, nil), true)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 0, s.store.Len())
}

func TestContactInbox(t *testing.T) {
	s := setupApp(t)

	resp, msg := s.do(jsonRequest(http.MethodPost, "/api/contact/message", map[string]any{
		"name": "Asha", "email": "asha@example.com", "message": "Are evening batches available?", "isRead": true,
	}), false)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, false, msg["isRead"])
	id := msg["id"].(string)

	status, _ := s.doList("/api/contact/messages", false)
	assert.Equal(t, http.StatusUnauthorized, status)
	resp, _ = s.do(httptest.NewRequest(http.MethodGet, "/api/contact/messages/"+id, nil), false)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	status, list := s.doList("/api/contact/messages", true)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, list, 1)

	resp, msg = s.do(jsonRequest(http.MethodPut, "/api/contact/messages/"+id, map[string]any{
		"isRead": true, "message": "rewritten", "email": "other@example.com",
	}), true)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, msg["isRead"])
	assert.Equal(t, "Asha", msg["name"])
	assert.Equal(t, "asha@example.com", msg["email"])
	assert.Equal(t, "Are evening batches available?", msg["message"])

	resp, msg = s.do(httptest.NewRequest(http.MethodGet, "/api/contact/messages/"+id, nil), true)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Are evening batches available?", msg["message"])
	assert.Equal(t, true, msg["isRead"])

	resp, _ = s.do(httptest.NewRequest(http.MethodDelete, "/api/contact/messages/"+id, nil), true)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestContactMessageRateLimit(t *testing.T) {
	s := setupApp(t)
	payload := map[string]any{"name": "Bot", "email": "bot@example.com", "message": "spam"}

	for i := 0; i < 3; i++ {
		resp, _ := s.do(jsonRequest(http.MethodPost, "/api/contact/message", payload), false)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}
	resp, _ := s.do(jsonRequest(http.MethodPost, "/api/contact/message", payload), false)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}
