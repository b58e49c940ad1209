package catalog

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "catalog_test.db")
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)
	require.NoError(t, Migrate(db))
	return db
}

func newTestStorage(t *testing.T) *AssetStorage {
	t.Helper()
	base := t.TempDir()
	storage, err := NewAssetStorage(filepath.Join(base, "models"), filepath.Join(base, "static"), 1<<20)
	require.NoError(t, err)
	return storage
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	return NewService(newTestDB(t), newTestStorage(t), nil, zap.NewNop())
}

// mustCategory inserts a category directly, the way the seeder does.
func mustCategory(t *testing.T, svc *Service, name string, anchor int) *AccessoryCategory {
	t.Helper()
	category := AccessoryCategory{Name: name, AnchorIndex: anchor}
	require.NoError(t, svc.db.Create(&category).Error)
	return &category
}

// formFile builds a real multipart.FileHeader by round-tripping a form body.
func formFile(t *testing.T, filename string, content []byte) *multipart.FileHeader {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	_, header, err := req.FormFile("file")
	require.NoError(t, err)
	return header
}
