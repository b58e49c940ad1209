package catalog

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	defaultMaxUploadMB = 50
	thumbnailSubdir    = "thumbnails"
)

// StoredFile describes a model file after it has been written to disk.
type StoredFile struct {
	Filename         string
	OriginalFilename string
	FileType         string
	Size             int64
}

// AssetStorage keeps model files and thumbnails on the local disk. Model files
// live directly under the upload dir as <uuid><ext>; thumbnails live under
// <static>/thumbnails as thumb_<uuid><ext> and are referenced by their path
// relative to the static dir.
type AssetStorage struct {
	uploadDir string
	staticDir string
	maxBytes  int64
}

// NewAssetStorageFromEnv builds an AssetStorage from UPLOAD_DIR, STATIC_DIR and
// MAX_UPLOAD_MB, creating the directories when missing.
func NewAssetStorageFromEnv() (*AssetStorage, error) {
	uploadDir := strings.TrimSpace(os.Getenv("UPLOAD_DIR"))
	if uploadDir == "" {
		uploadDir = "./models"
	}
	staticDir := strings.TrimSpace(os.Getenv("STATIC_DIR"))
	if staticDir == "" {
		staticDir = "./static"
	}

	maxMB := int64(defaultMaxUploadMB)
	if raw := strings.TrimSpace(os.Getenv("MAX_UPLOAD_MB")); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed <= 0 {
			return nil, fmt.Errorf("catalog: invalid MAX_UPLOAD_MB %q", raw)
		}
		maxMB = parsed
	}

	return NewAssetStorage(uploadDir, staticDir, maxMB*1024*1024)
}

// NewAssetStorage ensures both directories exist and returns the storage.
func NewAssetStorage(uploadDir, staticDir string, maxBytes int64) (*AssetStorage, error) {
	absUpload, err := filepath.Abs(uploadDir)
	if err != nil {
		return nil, fmt.Errorf("catalog: resolve upload dir: %w", err)
	}
	absStatic, err := filepath.Abs(staticDir)
	if err != nil {
		return nil, fmt.Errorf("catalog: resolve static dir: %w", err)
	}
	for _, dir := range []string{absUpload, absStatic, filepath.Join(absStatic, thumbnailSubdir)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("catalog: ensure dir %s: %w", dir, err)
		}
	}
	if maxBytes <= 0 {
		maxBytes = defaultMaxUploadMB * 1024 * 1024
	}
	return &AssetStorage{uploadDir: absUpload, staticDir: absStatic, maxBytes: maxBytes}, nil
}

func (s *AssetStorage) UploadDir() string {
	if s == nil {
		return ""
	}
	return s.uploadDir
}

func (s *AssetStorage) StaticDir() string {
	if s == nil {
		return ""
	}
	return s.staticDir
}

// ModelFileExt validates the extension of an uploaded model file and returns it
// lowercased. Only .glb and .gltf are accepted.
func ModelFileExt(filename string) (string, error) {
	ext := strings.ToLower(strings.TrimSpace(filepath.Ext(filename)))
	switch ext {
	case ".glb", ".gltf":
		return ext, nil
	default:
		return "", validationErrorf("model file must be .glb or .gltf")
	}
}

// ThumbnailExt reports the lowercased extension of a thumbnail upload and
// whether it is one of the accepted image types. Unlike model files, a rejected
// thumbnail is skipped by callers rather than failing the operation.
func ThumbnailExt(filename string) (string, bool) {
	ext := strings.ToLower(strings.TrimSpace(filepath.Ext(filename)))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".webp":
		return ext, true
	default:
		return "", false
	}
}

// SaveModelFile writes the uploaded model file as <uuid><ext> under the upload
// dir, overwriting any previous content at that name.
func (s *AssetStorage) SaveModelFile(fileHeader *multipart.FileHeader, assetUUID string) (StoredFile, error) {
	if s == nil {
		return StoredFile{}, errors.New("catalog: asset storage not configured")
	}
	if fileHeader == nil {
		return StoredFile{}, errors.New("catalog: model file not provided")
	}

	ext, err := ModelFileExt(fileHeader.Filename)
	if err != nil {
		return StoredFile{}, err
	}

	data, err := s.readAll(fileHeader)
	if err != nil {
		return StoredFile{}, err
	}

	name := assetUUID + ext
	target := filepath.Join(s.uploadDir, name)
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return StoredFile{}, storageError("catalog: write model file", err)
	}

	return StoredFile{
		Filename:         name,
		OriginalFilename: fileHeader.Filename,
		FileType:         ext,
		Size:             int64(len(data)),
	}, nil
}

// SaveThumbnail writes the uploaded image as thumbnails/thumb_<uuid><ext> and
// returns that relative path. A file with an unaccepted extension is skipped:
// the returned path is empty and err is nil.
func (s *AssetStorage) SaveThumbnail(fileHeader *multipart.FileHeader, assetUUID string) (string, error) {
	if s == nil {
		return "", errors.New("catalog: asset storage not configured")
	}
	if fileHeader == nil {
		return "", nil
	}

	ext, ok := ThumbnailExt(fileHeader.Filename)
	if !ok {
		return "", nil
	}

	data, err := s.readAll(fileHeader)
	if err != nil {
		return "", err
	}

	name := fmt.Sprintf("thumb_%s%s", assetUUID, ext)
	target := filepath.Join(s.staticDir, thumbnailSubdir, name)
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return "", storageError("catalog: write thumbnail", err)
	}

	return path.Join(thumbnailSubdir, name), nil
}

// RemoveModelFile deletes a stored model file. A missing file is not an error.
func (s *AssetStorage) RemoveModelFile(name string) error {
	return s.removeWithin(s.uploadDir, name)
}

// RemoveThumbnail deletes a thumbnail by its path relative to the static dir.
// A missing file is not an error.
func (s *AssetStorage) RemoveThumbnail(relPath string) error {
	return s.removeWithin(s.staticDir, relPath)
}

func (s *AssetStorage) removeWithin(base, name string) error {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return nil
	}
	target := filepath.Join(base, filepath.FromSlash(trimmed))
	if !strings.HasPrefix(target, base+string(os.PathSeparator)) {
		return fmt.Errorf("catalog: invalid stored file name %q", name)
	}
	if err := os.Remove(target); err != nil && !errors.Is(err, os.ErrNotExist) {
		return storageError("catalog: remove file", err)
	}
	return nil
}

// readAll buffers the whole upload in memory, enforcing the size limit.
func (s *AssetStorage) readAll(fileHeader *multipart.FileHeader) ([]byte, error) {
	if fileHeader.Size > 0 && fileHeader.Size > s.maxBytes {
		return nil, validationErrorf("file size exceeds %d bytes", s.maxBytes)
	}

	src, err := fileHeader.Open()
	if err != nil {
		return nil, storageError("catalog: open upload", err)
	}
	defer src.Close()

	var buffer bytes.Buffer
	written, err := io.Copy(&buffer, io.LimitReader(src, s.maxBytes+1))
	if err != nil {
		return nil, storageError("catalog: read upload", err)
	}
	if written > s.maxBytes {
		return nil, validationErrorf("file size exceeds %d bytes", s.maxBytes)
	}
	return buffer.Bytes(), nil
}
