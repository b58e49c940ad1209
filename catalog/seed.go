package catalog

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const seedVersion = 1

// Migrate creates or updates the catalog schema.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&AccessoryCategory{}, &AccessoryModel{}, &catalogSeed{}); err != nil {
		return fmt.Errorf("catalog: migrate tables: %w", err)
	}
	return nil
}

type defaultAsset struct {
	uuid        string
	name        string
	description string
	filename    string
	thumbnail   string
	category    string
	position    [3]float64
	rotation    [3]float64
	scale       [3]float64
	anchor      int
}

var defaultCategories = []AccessoryCategory{
	{Name: "hats", Description: strPtr("Head accessories like hats, caps, and headwear"), AnchorIndex: 10},
	{Name: "glasses", Description: strPtr("Eye accessories like glasses, sunglasses, and eyewear"), AnchorIndex: 168},
}

var defaultAssets = []defaultAsset{
	{
		uuid:        "hat1-default",
		name:        "Wizard Hat",
		description: "A magical wizard hat perfect for spellcasting",
		filename:    "hat.glb",
		thumbnail:   "hat.png",
		category:    "hats",
		position:    [3]float64{0, -0.2, -0.7},
		rotation:    [3]float64{0, -90, 0},
		scale:       [3]float64{0.27, 0.27, 0.27},
		anchor:      10,
	},
	{
		uuid:        "hat2-default",
		name:        "Cowboy Hat",
		description: "Western style cowboy hat with authentic design",
		filename:    "cowboy_hat_free.glb",
		thumbnail:   "cowboy_hat_free.png",
		category:    "hats",
		position:    [3]float64{0, 0, -0.75},
		rotation:    [3]float64{0, 0, 0},
		scale:       [3]float64{0.07, 0.07, 0.07},
		anchor:      10,
	},
	{
		uuid:        "glasses1-default",
		name:        "Eyewear Specs",
		description: "Professional eyewear with modern frame design",
		filename:    "eyewear_specs.glb",
		thumbnail:   "eyewear_specs.png",
		category:    "glasses",
		position:    [3]float64{-0.52, -0.25, -1.25},
		rotation:    [3]float64{0, 90, 0},
		scale:       [3]float64{0.35, 0.35, 0.35},
		anchor:      168,
	},
	{
		uuid:        "glasses2-default",
		name:        "Wooden Sunglasses",
		description: "Eco-friendly wooden sunglasses with UV protection",
		filename:    "wooden_sunglasses.glb",
		thumbnail:   "wooden_sunglasses.png",
		category:    "glasses",
		position:    [3]float64{0, -0.05, 0},
		rotation:    [3]float64{5, 0, 0},
		scale:       [3]float64{0.23, 0.23, 0.23},
		anchor:      168,
	},
}

// Seed populates the default catalog exactly once, keyed on a marker row so a
// partially failed first boot reruns as one unit. The bundled default files
// are copied best-effort from the seed data dir; a missing source file is
// logged and skipped, never fatal.
func Seed(db *gorm.DB, storage *AssetStorage, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}

	var marker catalogSeed
	err := db.First(&marker, "version = ?", seedVersion).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("catalog: check seed marker: %w", err)
	}

	log.Info("seeding default catalog")
	copyDefaultFiles(storage, log)

	return db.Transaction(func(tx *gorm.DB) error {
		categoryIDs := make(map[string]uint64, len(defaultCategories))
		for _, category := range defaultCategories {
			record := category
			if err := tx.Create(&record).Error; err != nil {
				return fmt.Errorf("catalog: seed category %s: %w", category.Name, err)
			}
			categoryIDs[record.Name] = record.ID
		}

		for _, def := range defaultAssets {
			categoryID, ok := categoryIDs[def.category]
			if !ok {
				return fmt.Errorf("catalog: seed asset %s references unknown category %s", def.uuid, def.category)
			}
			thumbnail := "thumbnails/" + def.thumbnail
			anchor := def.anchor
			asset := AccessoryModel{
				UUID:             def.uuid,
				Name:             def.name,
				Description:      strPtr(def.description),
				Filename:         def.filename,
				OriginalFilename: def.filename,
				FileSize:         fileSize(filepath.Join(storage.UploadDir(), def.filename)),
				FileType:         ".glb",
				ThumbnailPath:    &thumbnail,
				CategoryID:       categoryID,
				PositionX:        def.position[0],
				PositionY:        def.position[1],
				PositionZ:        def.position[2],
				RotationX:        def.rotation[0],
				RotationY:        def.rotation[1],
				RotationZ:        def.rotation[2],
				ScaleX:           def.scale[0],
				ScaleY:           def.scale[1],
				ScaleZ:           def.scale[2],
				AnchorIndex:      &anchor,
				IsActive:         true,
			}
			if err := tx.Create(&asset).Error; err != nil {
				return fmt.Errorf("catalog: seed asset %s: %w", def.uuid, err)
			}
		}

		if err := tx.Create(&catalogSeed{Version: seedVersion, AppliedAt: time.Now().UTC()}).Error; err != nil {
			return fmt.Errorf("catalog: write seed marker: %w", err)
		}
		return nil
	})
}

// copyDefaultFiles copies the bundled model files and thumbnails into the
// serving directories.
func copyDefaultFiles(storage *AssetStorage, log *zap.Logger) {
	dataDir := strings.TrimSpace(os.Getenv("SEED_DATA_DIR"))
	if dataDir == "" {
		dataDir = "./data/models"
	}
	if _, err := os.Stat(dataDir); err != nil {
		log.Warn("seed data dir not found, skipping default file copy", zap.String("dir", dataDir))
		return
	}

	for _, def := range defaultAssets {
		src := filepath.Join(dataDir, def.filename)
		dst := filepath.Join(storage.UploadDir(), def.filename)
		if err := copyFile(src, dst); err != nil {
			log.Warn("failed to copy default model file", zap.String("file", def.filename), zap.Error(err))
		}

		src = filepath.Join(dataDir, def.thumbnail)
		dst = filepath.Join(storage.StaticDir(), thumbnailSubdir, def.thumbnail)
		if err := copyFile(src, dst); err != nil {
			log.Warn("failed to copy default thumbnail", zap.String("file", def.thumbnail), zap.Error(err))
		}
	}
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}

func fileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}

func strPtr(value string) *string {
	return &value
}
