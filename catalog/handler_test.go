package catalog

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestRouter(t *testing.T) (*gin.Engine, *Service) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	svc := newTestService(t)
	router := gin.New()
	RegisterRoutes(router, svc, nil, zap.NewNop())
	return router, svc
}

func doJSON(t *testing.T, router *gin.Engine, req *http.Request) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), "body: %s", rec.Body.String())
	return rec, body
}

func uploadRequest(t *testing.T, fields map[string]string, filename string, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for key, value := range fields {
		require.NoError(t, writer.WriteField(key, value))
	}
	if filename != "" {
		part, err := writer.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestHealthEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	rec, body := doJSON(t, router, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "2.0.0", body["version"])
}

func TestListCategoriesEndpoint(t *testing.T) {
	router, svc := newTestRouter(t)
	mustCategory(t, svc, "hats", 10)
	mustCategory(t, svc, "glasses", 168)

	rec, body := doJSON(t, router, httptest.NewRequest(http.MethodGet, "/api/categories", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "success", body["status"])
	data, ok := body["data"].([]any)
	require.True(t, ok)
	assert.Len(t, data, 2)
}

func TestUploadThenListModels(t *testing.T) {
	router, svc := newTestRouter(t)
	mustCategory(t, svc, "hats", 10)

	req := uploadRequest(t, map[string]string{
		"name":          "Top Hat",
		"category_name": "hats",
	}, "tophat.glb", []byte("binary-model"))

	rec, body := doJSON(t, router, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "success", body["status"])
	data, ok := body["data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Top Hat", data["name"])
	assert.NotEmpty(t, data["id"])

	rec, body = doJSON(t, router, httptest.NewRequest(http.MethodGet, "/api/models", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	grouped, ok := body["data"].(map[string]any)
	require.True(t, ok)
	hats, ok := grouped["hats"].([]any)
	require.True(t, ok)
	require.Len(t, hats, 1)

	model, ok := hats[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Top Hat", model["name"])
	assert.EqualValues(t, 10, model["anchor_index"])
	position, ok := model["position"].([]any)
	require.True(t, ok)
	assert.EqualValues(t, -1.0, position[2])
}

func TestUploadUnknownCategoryIsBadRequest(t *testing.T) {
	router, _ := newTestRouter(t)

	req := uploadRequest(t, map[string]string{
		"name":          "Nowhere",
		"category_name": "capes",
	}, "cape.glb", []byte("binary"))

	rec, body := doJSON(t, router, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "error", body["status"])
}

func TestUploadMissingFileIsBadRequest(t *testing.T) {
	router, svc := newTestRouter(t)
	mustCategory(t, svc, "hats", 10)

	req := uploadRequest(t, map[string]string{
		"name":          "No File",
		"category_name": "hats",
	}, "", nil)

	rec, _ := doJSON(t, router, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUploadBadExtensionIsBadRequest(t *testing.T) {
	router, svc := newTestRouter(t)
	mustCategory(t, svc, "hats", 10)

	req := uploadRequest(t, map[string]string{
		"name":          "Text",
		"category_name": "hats",
	}, "model.txt", []byte("nope"))

	rec, _ := doJSON(t, router, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListModelsFilters(t *testing.T) {
	router, svc := newTestRouter(t)
	hats := mustCategory(t, svc, "hats", 10)
	glasses := mustCategory(t, svc, "glasses", 168)
	ctx := httptest.NewRequest(http.MethodGet, "/", nil).Context()

	hat, err := svc.CreateAsset(ctx, CreateAssetInput{Name: "Hat", CategoryID: hats.ID, Transform: DefaultTransform()})
	require.NoError(t, err)
	_, err = svc.CreateAsset(ctx, CreateAssetInput{Name: "Specs", CategoryID: glasses.ID, Transform: DefaultTransform()})
	require.NoError(t, err)
	_, err = svc.ToggleAsset(ctx, hat.ID)
	require.NoError(t, err)

	// active_only defaults to true, so the toggled-off hat disappears.
	_, body := doJSON(t, router, httptest.NewRequest(http.MethodGet, "/api/models", nil))
	grouped := body["data"].(map[string]any)
	assert.NotContains(t, grouped, "hats")
	assert.Contains(t, grouped, "glasses")

	_, body = doJSON(t, router, httptest.NewRequest(http.MethodGet, "/api/models?active_only=false&category=hats", nil))
	grouped = body["data"].(map[string]any)
	require.Contains(t, grouped, "hats")
	assert.NotContains(t, grouped, "glasses")
}

func TestListModelsActiveOnlyLiterals(t *testing.T) {
	router, svc := newTestRouter(t)
	hats := mustCategory(t, svc, "hats", 10)
	ctx := httptest.NewRequest(http.MethodGet, "/", nil).Context()

	hat, err := svc.CreateAsset(ctx, CreateAssetInput{Name: "Hat", CategoryID: hats.ID, Transform: DefaultTransform()})
	require.NoError(t, err)
	_, err = svc.ToggleAsset(ctx, hat.ID)
	require.NoError(t, err)

	// "0" and "no" mean false, so the inactive hat shows up.
	for _, literal := range []string{"0", "no", "false", "off"} {
		_, body := doJSON(t, router, httptest.NewRequest(http.MethodGet, "/api/models?active_only="+literal, nil))
		grouped := body["data"].(map[string]any)
		assert.Contains(t, grouped, "hats", "active_only=%s", literal)
	}

	// True literals filter the inactive hat out; unrecognized input falls back
	// to the default of true.
	for _, literal := range []string{"1", "yes", "true", "bogus"} {
		_, body := doJSON(t, router, httptest.NewRequest(http.MethodGet, "/api/models?active_only="+literal, nil))
		grouped := body["data"].(map[string]any)
		assert.NotContains(t, grouped, "hats", "active_only=%s", literal)
	}
}

func TestDeleteModelEndpoint(t *testing.T) {
	router, svc := newTestRouter(t)
	hats := mustCategory(t, svc, "hats", 10)
	ctx := httptest.NewRequest(http.MethodGet, "/", nil).Context()

	asset, err := svc.CreateAsset(ctx, CreateAssetInput{Name: "Doomed", CategoryID: hats.ID, Transform: DefaultTransform()})
	require.NoError(t, err)

	rec, body := doJSON(t, router, httptest.NewRequest(http.MethodDelete, "/api/models/"+asset.UUID, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "success", body["status"])

	rec, _ = doJSON(t, router, httptest.NewRequest(http.MethodDelete, "/api/models/"+asset.UUID, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
