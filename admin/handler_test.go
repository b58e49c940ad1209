package admin

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"tryon_back/catalog"
)

type consoleFixture struct {
	router *gin.Engine
	svc    *catalog.Service
	db     *gorm.DB
}

func newConsole(t *testing.T) *consoleFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	base := t.TempDir()
	db, err := gorm.Open(sqlite.Open(filepath.Join(base, "console_test.db")), &gorm.Config{
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)
	require.NoError(t, catalog.Migrate(db))

	storage, err := catalog.NewAssetStorage(filepath.Join(base, "models"), filepath.Join(base, "static"), 1<<20)
	require.NoError(t, err)

	svc := catalog.NewService(db, storage, nil, zap.NewNop())

	router := gin.New()
	router.LoadHTMLGlob("../templates/admin/*.html")
	RegisterRoutes(router, svc, zap.NewNop())

	return &consoleFixture{router: router, svc: svc, db: db}
}

func (f *consoleFixture) mustCategory(t *testing.T, name string, anchor int) *catalog.AccessoryCategory {
	t.Helper()
	category := catalog.AccessoryCategory{Name: name, AnchorIndex: anchor}
	require.NoError(t, f.db.Create(&category).Error)
	return &category
}

func (f *consoleFixture) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func (f *consoleFixture) postForm(t *testing.T, path string, values url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

// postMultipart submits a model form, optionally attaching a model file.
func (f *consoleFixture) postMultipart(t *testing.T, path string, fields map[string]string, modelFilename string, modelContent []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for key, value := range fields {
		require.NoError(t, writer.WriteField(key, value))
	}
	if modelFilename != "" {
		part, err := writer.CreateFormFile("model_file", modelFilename)
		require.NoError(t, err)
		_, err = part.Write(modelContent)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestDashboardRenders(t *testing.T) {
	f := newConsole(t)
	rec := f.get(t, "/admin")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Admin Dashboard")
}

func TestCategoryListAndEdit(t *testing.T) {
	f := newConsole(t)
	category := f.mustCategory(t, "hats", 10)

	rec := f.get(t, "/admin/categories")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "hats")

	id := strconv.FormatUint(category.ID, 10)
	rec = f.postForm(t, "/admin/categories/"+id+"/edit", url.Values{
		"name":         {"  HATS "},
		"description":  {"headwear"},
		"anchor_index": {"12"},
	})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/admin/categories", rec.Header().Get("Location"))

	updated, err := f.svc.GetCategory(context.Background(), category.ID)
	require.NoError(t, err)
	assert.Equal(t, "hats", updated.Name)
	assert.Equal(t, 12, updated.AnchorIndex)
	require.NotNil(t, updated.Description)
	assert.Equal(t, "headwear", *updated.Description)
}

func TestCategoryEditRerendersOnBadAnchor(t *testing.T) {
	f := newConsole(t)
	category := f.mustCategory(t, "hats", 10)

	id := strconv.FormatUint(category.ID, 10)
	rec := f.postForm(t, "/admin/categories/"+id+"/edit", url.Values{
		"name":         {"hats"},
		"anchor_index": {"front"},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid anchor index")

	unchanged, err := f.svc.GetCategory(context.Background(), category.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, unchanged.AnchorIndex)
}

func TestCategoryEditUnknownIDIs404(t *testing.T) {
	f := newConsole(t)
	rec := f.get(t, "/admin/categories/9999/edit")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateModelThroughForm(t *testing.T) {
	f := newConsole(t)
	category := f.mustCategory(t, "hats", 10)

	rec := f.postMultipart(t, "/admin/models/create", map[string]string{
		"name":        "Fedora",
		"category_id": strconv.FormatUint(category.ID, 10),
		"position_z":  "-0.5",
		"scale_x":     "0.3",
		"is_active":   "true",
	}, "fedora.glb", []byte("binary"))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/admin/models", rec.Header().Get("Location"))

	assets, err := f.svc.ListAssets(context.Background())
	require.NoError(t, err)
	require.Len(t, assets, 1)
	assert.Equal(t, "Fedora", assets[0].Name)
	assert.Equal(t, -0.5, assets[0].PositionZ)
	assert.Equal(t, 0.3, assets[0].ScaleX)
	assert.True(t, assets[0].IsActive)
	require.NotNil(t, assets[0].AnchorIndex)
	assert.Equal(t, 10, *assets[0].AnchorIndex)
}

func TestCreateModelRerendersOnBadAnchor(t *testing.T) {
	f := newConsole(t)
	category := f.mustCategory(t, "hats", 10)

	rec := f.postMultipart(t, "/admin/models/create", map[string]string{
		"name":         "Bad",
		"category_id":  strconv.FormatUint(category.ID, 10),
		"anchor_index": "front",
	}, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid anchor index")

	assets, err := f.svc.ListAssets(context.Background())
	require.NoError(t, err)
	assert.Empty(t, assets)
}

func TestEditModelUncheckedActiveDeactivates(t *testing.T) {
	f := newConsole(t)
	category := f.mustCategory(t, "hats", 10)

	asset, err := f.svc.CreateAsset(context.Background(), catalog.CreateAssetInput{
		Name:       "Beret",
		CategoryID: category.ID,
		Transform:  catalog.DefaultTransform(),
	})
	require.NoError(t, err)
	require.True(t, asset.IsActive)

	id := strconv.FormatUint(asset.ID, 10)
	rec := f.postMultipart(t, "/admin/models/"+id+"/edit", map[string]string{
		"name":        "Beret",
		"category_id": strconv.FormatUint(category.ID, 10),
	}, "", nil)
	require.Equal(t, http.StatusSeeOther, rec.Code)

	reloaded, err := f.svc.GetAsset(context.Background(), asset.ID)
	require.NoError(t, err)
	assert.False(t, reloaded.IsActive)
}

func TestDeleteModelRedirects(t *testing.T) {
	f := newConsole(t)
	category := f.mustCategory(t, "hats", 10)

	asset, err := f.svc.CreateAsset(context.Background(), catalog.CreateAssetInput{
		Name:       "Doomed",
		CategoryID: category.ID,
		Transform:  catalog.DefaultTransform(),
	})
	require.NoError(t, err)

	id := strconv.FormatUint(asset.ID, 10)
	rec := f.postForm(t, "/admin/models/"+id+"/delete", url.Values{})
	require.Equal(t, http.StatusSeeOther, rec.Code)

	_, err = f.svc.GetAsset(context.Background(), asset.ID)
	require.Error(t, err)

	rec = f.postForm(t, "/admin/models/"+id+"/delete", url.Values{})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestToggleModelJSON(t *testing.T) {
	f := newConsole(t)
	category := f.mustCategory(t, "hats", 10)

	asset, err := f.svc.CreateAsset(context.Background(), catalog.CreateAssetInput{
		Name:       "Switch",
		CategoryID: category.ID,
		Transform:  catalog.DefaultTransform(),
	})
	require.NoError(t, err)

	id := strconv.FormatUint(asset.ID, 10)
	rec := f.postForm(t, "/admin/models/"+id+"/toggle", url.Values{})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success": true, "is_active": false}`, rec.Body.String())

	rec = f.postForm(t, "/admin/models/9999/toggle", url.Values{})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestModelListShowsCategory(t *testing.T) {
	f := newConsole(t)
	category := f.mustCategory(t, "glasses", 168)

	_, err := f.svc.CreateAsset(context.Background(), catalog.CreateAssetInput{
		Name:       "Specs",
		CategoryID: category.ID,
		Transform:  catalog.DefaultTransform(),
	})
	require.NoError(t, err)

	rec := f.get(t, "/admin/models")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Specs")
	assert.Contains(t, rec.Body.String(), "glasses")
}
