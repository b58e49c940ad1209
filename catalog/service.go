package catalog

import (
	"context"
	"errors"
	"mime/multipart"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Service owns the asset lifecycle: every mutation that touches an accessory
// row also keeps its model file and thumbnail in step. Handlers never write
// files or rows directly.
type Service struct {
	db      *gorm.DB
	storage *AssetStorage
	cache   *ModelCache
	log     *zap.Logger
}

// NewService wires the service with its store, file storage and optional cache.
func NewService(db *gorm.DB, storage *AssetStorage, cache *ModelCache, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{db: db, storage: storage, cache: cache, log: log}
}

func (s *Service) Storage() *AssetStorage {
	return s.storage
}

// ---- categories ----

func (s *Service) ListCategories(ctx context.Context) ([]AccessoryCategory, error) {
	var categories []AccessoryCategory
	if err := s.db.WithContext(ctx).Order("id").Find(&categories).Error; err != nil {
		return nil, storageError("catalog: list categories", err)
	}
	return categories, nil
}

func (s *Service) GetCategory(ctx context.Context, id uint64) (*AccessoryCategory, error) {
	var category AccessoryCategory
	if err := s.db.WithContext(ctx).First(&category, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundError("category", strconv.FormatUint(id, 10))
		}
		return nil, storageError("catalog: load category", err)
	}
	return &category, nil
}

func (s *Service) GetCategoryByName(ctx context.Context, name string) (*AccessoryCategory, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	var category AccessoryCategory
	if err := s.db.WithContext(ctx).First(&category, "name = ?", normalized).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundError("category", name)
		}
		return nil, storageError("catalog: load category", err)
	}
	return &category, nil
}

// UpdateCategoryInput carries a full category edit. Name is normalized to
// lowercase and trimmed before persisting.
type UpdateCategoryInput struct {
	Name        string
	Description *string
	AnchorIndex int
}

func (s *Service) UpdateCategory(ctx context.Context, id uint64, in UpdateCategoryInput) (*AccessoryCategory, error) {
	category, err := s.GetCategory(ctx, id)
	if err != nil {
		return nil, err
	}

	name := strings.ToLower(strings.TrimSpace(in.Name))
	if name == "" {
		return nil, validationErrorf("category name is required")
	}
	if len(name) > 50 {
		return nil, validationErrorf("category name exceeds 50 characters")
	}
	if in.Description != nil && len(*in.Description) > 200 {
		return nil, validationErrorf("category description exceeds 200 characters")
	}

	var clash int64
	if err := s.db.WithContext(ctx).Model(&AccessoryCategory{}).
		Where("name = ? AND id <> ?", name, id).
		Count(&clash).Error; err != nil {
		return nil, storageError("catalog: check category name", err)
	}
	if clash > 0 {
		return nil, validationErrorf("category name %q is already in use", name)
	}

	category.Name = name
	category.Description = normalizeOptional(in.Description)
	category.AnchorIndex = in.AnchorIndex

	if err := s.db.WithContext(ctx).Save(category).Error; err != nil {
		return nil, storageError("catalog: update category", err)
	}

	s.cache.InvalidateModels(ctx)
	return category, nil
}

// ---- asset store ----

func (s *Service) ListAssets(ctx context.Context) ([]AccessoryModel, error) {
	var assets []AccessoryModel
	if err := s.db.WithContext(ctx).Order("id").Find(&assets).Error; err != nil {
		return nil, storageError("catalog: list assets", err)
	}
	return assets, nil
}

// AssetListing is an asset row joined with its category.
type AssetListing struct {
	AccessoryModel      `gorm:"embedded"`
	CategoryName        string `gorm:"column:category_name"`
	CategoryAnchorIndex int    `gorm:"column:category_anchor_index"`
}

// EffectiveAnchor is the asset override when present, else the category default.
func (l AssetListing) EffectiveAnchor() int {
	if l.AnchorIndex != nil {
		return *l.AnchorIndex
	}
	return l.CategoryAnchorIndex
}

// ListAssetsJoined lists assets with their categories. A non-empty category
// name and activeOnly both narrow the result; the predicates are AND-ed.
func (s *Service) ListAssetsJoined(ctx context.Context, categoryName string, activeOnly bool) ([]AssetListing, error) {
	query := s.db.WithContext(ctx).Model(&AccessoryModel{}).
		Select("accessory_models.*, accessory_categories.name AS category_name, accessory_categories.anchor_index AS category_anchor_index").
		Joins("JOIN accessory_categories ON accessory_categories.id = accessory_models.category_id")

	if trimmed := strings.ToLower(strings.TrimSpace(categoryName)); trimmed != "" {
		query = query.Where("accessory_categories.name = ?", trimmed)
	}
	if activeOnly {
		query = query.Where("accessory_models.is_active = ?", true)
	}

	var listings []AssetListing
	if err := query.Order("accessory_models.id").Scan(&listings).Error; err != nil {
		return nil, storageError("catalog: list assets", err)
	}
	return listings, nil
}

func (s *Service) GetAsset(ctx context.Context, id uint64) (*AccessoryModel, error) {
	var asset AccessoryModel
	if err := s.db.WithContext(ctx).First(&asset, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundError("asset", strconv.FormatUint(id, 10))
		}
		return nil, storageError("catalog: load asset", err)
	}
	return &asset, nil
}

func (s *Service) GetAssetByUUID(ctx context.Context, assetUUID string) (*AccessoryModel, error) {
	var asset AccessoryModel
	if err := s.db.WithContext(ctx).First(&asset, "uuid = ?", strings.TrimSpace(assetUUID)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundError("asset", assetUUID)
		}
		return nil, storageError("catalog: load asset", err)
	}
	return &asset, nil
}

// ---- lifecycle operations ----

// Transform is the nine-float placement of an asset.
type Transform struct {
	PositionX, PositionY, PositionZ float64
	RotationX, RotationY, RotationZ float64
	ScaleX, ScaleY, ScaleZ          float64
}

// DefaultTransform matches the admin form defaults.
func DefaultTransform() Transform {
	return Transform{ScaleX: 1, ScaleY: 1, ScaleZ: 1}
}

// CreateAssetInput carries an admin-side asset creation. Both files are
// optional; AnchorOverride is the raw form string ("" means inherit from the
// category).
type CreateAssetInput struct {
	Name           string
	Description    *string
	CategoryID     uint64
	Transform      Transform
	AnchorOverride string
	IsActive       *bool
	ModelFile      *multipart.FileHeader
	ThumbnailFile  *multipart.FileHeader
}

// CreateAsset validates everything before touching disk or store, then writes
// files first and the row last, rolling the files back when the insert fails.
func (s *Service) CreateAsset(ctx context.Context, in CreateAssetInput) (*AccessoryModel, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, validationErrorf("name is required")
	}
	if len(name) > 100 {
		return nil, validationErrorf("name exceeds 100 characters")
	}
	if in.Description != nil && len(*in.Description) > 500 {
		return nil, validationErrorf("description exceeds 500 characters")
	}

	anchor, err := s.resolveAnchor(ctx, in.AnchorOverride, in.CategoryID)
	if err != nil {
		return nil, err
	}

	if in.ModelFile != nil {
		if _, err := ModelFileExt(in.ModelFile.Filename); err != nil {
			return nil, err
		}
	}

	asset := AccessoryModel{
		UUID:        uuid.NewString(),
		Name:        name,
		Description: normalizeOptional(in.Description),
		CategoryID:  in.CategoryID,
		PositionX:   in.Transform.PositionX,
		PositionY:   in.Transform.PositionY,
		PositionZ:   in.Transform.PositionZ,
		RotationX:   in.Transform.RotationX,
		RotationY:   in.Transform.RotationY,
		RotationZ:   in.Transform.RotationZ,
		ScaleX:      in.Transform.ScaleX,
		ScaleY:      in.Transform.ScaleY,
		ScaleZ:      in.Transform.ScaleZ,
		AnchorIndex: anchor,
		IsActive:    true,
	}
	if in.IsActive != nil {
		asset.IsActive = *in.IsActive
	}

	if in.ModelFile != nil {
		stored, err := s.storage.SaveModelFile(in.ModelFile, asset.UUID)
		if err != nil {
			return nil, err
		}
		asset.Filename = stored.Filename
		asset.OriginalFilename = stored.OriginalFilename
		asset.FileSize = stored.Size
		asset.FileType = stored.FileType
	}

	if in.ThumbnailFile != nil {
		relPath, err := s.storage.SaveThumbnail(in.ThumbnailFile, asset.UUID)
		if err != nil {
			s.discardFiles(asset.Filename, "")
			return nil, err
		}
		if relPath == "" {
			s.log.Debug("thumbnail skipped: unsupported extension",
				zap.String("filename", in.ThumbnailFile.Filename))
		} else {
			asset.ThumbnailPath = &relPath
		}
	}

	if err := s.db.WithContext(ctx).Create(&asset).Error; err != nil {
		s.discardFiles(asset.Filename, derefOrEmpty(asset.ThumbnailPath))
		return nil, storageError("catalog: create asset", err)
	}

	s.cache.InvalidateModels(ctx)
	s.log.Info("asset created", zap.String("uuid", asset.UUID), zap.String("name", asset.Name))
	return &asset, nil
}

// UpdateAssetInput carries a full admin-side asset edit. Field updates apply
// unconditionally; files replace the stored ones when present.
type UpdateAssetInput struct {
	Name           string
	Description    *string
	CategoryID     uint64
	Transform      Transform
	AnchorOverride string
	IsActive       bool
	ModelFile      *multipart.FileHeader
	ThumbnailFile  *multipart.FileHeader
}

// UpdateAsset validates before any mutation. File replacement writes the new
// file, commits the row, then removes the superseded file, so a crash in
// between leaves an extra file rather than a row pointing at nothing.
func (s *Service) UpdateAsset(ctx context.Context, id uint64, in UpdateAssetInput) (*AccessoryModel, error) {
	asset, err := s.GetAsset(ctx, id)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, validationErrorf("name is required")
	}
	if len(name) > 100 {
		return nil, validationErrorf("name exceeds 100 characters")
	}
	if in.Description != nil && len(*in.Description) > 500 {
		return nil, validationErrorf("description exceeds 500 characters")
	}

	anchor, err := s.resolveAnchor(ctx, in.AnchorOverride, in.CategoryID)
	if err != nil {
		return nil, err
	}

	if in.ModelFile != nil {
		if _, err := ModelFileExt(in.ModelFile.Filename); err != nil {
			return nil, err
		}
	}

	oldFilename := asset.Filename
	oldThumbnail := derefOrEmpty(asset.ThumbnailPath)

	asset.Name = name
	asset.Description = normalizeOptional(in.Description)
	asset.CategoryID = in.CategoryID
	asset.PositionX = in.Transform.PositionX
	asset.PositionY = in.Transform.PositionY
	asset.PositionZ = in.Transform.PositionZ
	asset.RotationX = in.Transform.RotationX
	asset.RotationY = in.Transform.RotationY
	asset.RotationZ = in.Transform.RotationZ
	asset.ScaleX = in.Transform.ScaleX
	asset.ScaleY = in.Transform.ScaleY
	asset.ScaleZ = in.Transform.ScaleZ
	asset.AnchorIndex = anchor
	asset.IsActive = in.IsActive
	now := time.Now().UTC()
	asset.UpdatedAt = &now

	var newFilename, newThumbnail string
	if in.ModelFile != nil {
		stored, err := s.storage.SaveModelFile(in.ModelFile, asset.UUID)
		if err != nil {
			return nil, err
		}
		newFilename = stored.Filename
		asset.Filename = stored.Filename
		asset.OriginalFilename = stored.OriginalFilename
		asset.FileSize = stored.Size
		asset.FileType = stored.FileType
	}

	if in.ThumbnailFile != nil {
		relPath, err := s.storage.SaveThumbnail(in.ThumbnailFile, asset.UUID)
		if err != nil {
			if newFilename != "" && newFilename != oldFilename {
				s.discardFiles(newFilename, "")
			}
			return nil, err
		}
		if relPath == "" {
			s.log.Debug("thumbnail skipped: unsupported extension",
				zap.String("filename", in.ThumbnailFile.Filename))
		} else {
			newThumbnail = relPath
			asset.ThumbnailPath = &relPath
		}
	}

	if err := s.db.WithContext(ctx).Save(asset).Error; err != nil {
		if newFilename != "" && newFilename != oldFilename {
			s.discardFiles(newFilename, "")
		}
		if newThumbnail != "" && newThumbnail != oldThumbnail {
			s.discardFiles("", newThumbnail)
		}
		return nil, storageError("catalog: update asset", err)
	}

	// Superseded files go last so a failure here cannot lose the new ones.
	if newFilename != "" && oldFilename != "" && oldFilename != newFilename {
		if err := s.storage.RemoveModelFile(oldFilename); err != nil {
			s.log.Warn("failed to remove superseded model file",
				zap.String("filename", oldFilename), zap.Error(err))
		}
	}
	if newThumbnail != "" && oldThumbnail != "" && oldThumbnail != newThumbnail {
		if err := s.storage.RemoveThumbnail(oldThumbnail); err != nil {
			s.log.Warn("failed to remove superseded thumbnail",
				zap.String("path", oldThumbnail), zap.Error(err))
		}
	}

	s.cache.InvalidateModels(ctx)
	return asset, nil
}

// UploadAssetInput carries the public API upload: the model file is mandatory
// and the category is referenced by name.
type UploadAssetInput struct {
	Name         string
	Description  *string
	CategoryName string
	File         *multipart.FileHeader
}

// UploadAsset is the public upload path. The placement is pinned camera
// relative and the anchor snapshots the category default at creation time.
func (s *Service) UploadAsset(ctx context.Context, in UploadAssetInput) (*AccessoryModel, error) {
	if in.File == nil {
		return nil, validationErrorf("model file is required")
	}
	if _, err := ModelFileExt(in.File.Filename); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, validationErrorf("name is required")
	}

	category, err := s.GetCategoryByName(ctx, in.CategoryName)
	if err != nil {
		return nil, err
	}

	assetUUID := uuid.NewString()
	stored, err := s.storage.SaveModelFile(in.File, assetUUID)
	if err != nil {
		return nil, err
	}

	anchor := category.AnchorIndex
	asset := AccessoryModel{
		UUID:             assetUUID,
		Name:             name,
		Description:      normalizeOptional(in.Description),
		Filename:         stored.Filename,
		OriginalFilename: stored.OriginalFilename,
		FileSize:         stored.Size,
		FileType:         stored.FileType,
		CategoryID:       category.ID,
		PositionZ:        -1.0,
		ScaleX:           0.2,
		ScaleY:           0.2,
		ScaleZ:           0.2,
		AnchorIndex:      &anchor,
		IsActive:         true,
	}

	if err := s.db.WithContext(ctx).Create(&asset).Error; err != nil {
		s.discardFiles(asset.Filename, "")
		return nil, storageError("catalog: create asset", err)
	}

	s.cache.InvalidateModels(ctx)
	s.log.Info("asset uploaded", zap.String("uuid", asset.UUID), zap.String("name", asset.Name))
	return &asset, nil
}

// DeleteAsset removes the row and both files as one unit of work. Missing
// files are fine; any other removal failure is surfaced so the orphan is not
// silently lost.
func (s *Service) DeleteAsset(ctx context.Context, id uint64) error {
	asset, err := s.GetAsset(ctx, id)
	if err != nil {
		return err
	}
	return s.deleteAsset(ctx, asset)
}

func (s *Service) DeleteAssetByUUID(ctx context.Context, assetUUID string) error {
	asset, err := s.GetAssetByUUID(ctx, assetUUID)
	if err != nil {
		return err
	}
	return s.deleteAsset(ctx, asset)
}

func (s *Service) deleteAsset(ctx context.Context, asset *AccessoryModel) error {
	if err := s.db.WithContext(ctx).Delete(&AccessoryModel{}, asset.ID).Error; err != nil {
		return storageError("catalog: delete asset", err)
	}

	var removeErr error
	if asset.Filename != "" {
		if err := s.storage.RemoveModelFile(asset.Filename); err != nil {
			removeErr = err
		}
	}
	if asset.ThumbnailPath != nil {
		if err := s.storage.RemoveThumbnail(*asset.ThumbnailPath); err != nil && removeErr == nil {
			removeErr = err
		}
	}

	s.cache.InvalidateModels(ctx)

	if removeErr != nil {
		return storageError("catalog: asset deleted but failed to remove files", removeErr)
	}
	s.log.Info("asset deleted", zap.String("uuid", asset.UUID), zap.String("name", asset.Name))
	return nil
}

// ToggleAsset flips the active flag and bumps updated_at. No file interaction.
func (s *Service) ToggleAsset(ctx context.Context, id uint64) (*AccessoryModel, error) {
	asset, err := s.GetAsset(ctx, id)
	if err != nil {
		return nil, err
	}

	asset.IsActive = !asset.IsActive
	now := time.Now().UTC()
	asset.UpdatedAt = &now

	if err := s.db.WithContext(ctx).Model(&AccessoryModel{}).
		Where("id = ?", asset.ID).
		Updates(map[string]interface{}{"is_active": asset.IsActive, "updated_at": asset.UpdatedAt}).Error; err != nil {
		return nil, storageError("catalog: toggle asset", err)
	}

	s.cache.InvalidateModels(ctx)
	return asset, nil
}

// resolveAnchor applies the override rule: a non-empty override must parse as
// an integer; an empty one falls back to the category default at this moment.
func (s *Service) resolveAnchor(ctx context.Context, override string, categoryID uint64) (*int, error) {
	trimmed := strings.TrimSpace(override)
	if trimmed != "" {
		value, err := strconv.Atoi(trimmed)
		if err != nil {
			return nil, validationErrorf("invalid anchor index: %s", override)
		}
		return &value, nil
	}

	category, err := s.GetCategory(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	anchor := category.AnchorIndex
	return &anchor, nil
}

// discardFiles is best-effort rollback of files written before a failed commit.
func (s *Service) discardFiles(filename, thumbnailPath string) {
	if filename != "" {
		if err := s.storage.RemoveModelFile(filename); err != nil {
			s.log.Warn("rollback: failed to remove model file", zap.String("filename", filename), zap.Error(err))
		}
	}
	if thumbnailPath != "" {
		if err := s.storage.RemoveThumbnail(thumbnailPath); err != nil {
			s.log.Warn("rollback: failed to remove thumbnail", zap.String("path", thumbnailPath), zap.Error(err))
		}
	}
}

func normalizeOptional(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func derefOrEmpty(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
