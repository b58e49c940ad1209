package catalog

import "time"

// AccessoryCategory groups accessories that share a default AR anchor point.
type AccessoryCategory struct {
	ID          uint64    `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:50;uniqueIndex;not null" json:"name"`
	Description *string   `gorm:"size:200" json:"description,omitempty"`
	AnchorIndex int       `gorm:"not null" json:"anchor_index"`
	CreatedAt   time.Time `json:"created_at"`
}

func (AccessoryCategory) TableName() string {
	return "accessory_categories"
}

// AccessoryModel is a wearable 3D model record. Its model file and thumbnail on
// disk are owned together with the row; only the Service mutates either side.
//
// The transform and active flag carry no gorm default tags: gorm skips
// zero-valued fields that have a default on insert, which would turn an explicit
// scale of 0 or is_active=false back into the default. Defaults are applied in
// code (DefaultTransform, the create inputs) so supplied values persist as-is.
type AccessoryModel struct {
	ID               uint64     `gorm:"primaryKey" json:"id"`
	UUID             string     `gorm:"size:64;uniqueIndex;not null" json:"uuid"`
	Name             string     `gorm:"size:100;not null;index" json:"name"`
	Description      *string    `gorm:"size:500" json:"description,omitempty"`
	Filename         string     `gorm:"size:255" json:"filename"`
	OriginalFilename string     `gorm:"size:255" json:"original_filename"`
	FileSize         int64      `json:"file_size"`
	FileType         string     `gorm:"size:10" json:"file_type"`
	ThumbnailPath    *string    `gorm:"size:255" json:"thumbnail_path,omitempty"`
	CategoryID       uint64     `gorm:"not null;index" json:"category_id"`
	PositionX        float64    `gorm:"not null" json:"position_x"`
	PositionY        float64    `gorm:"not null" json:"position_y"`
	PositionZ        float64    `gorm:"not null" json:"position_z"`
	RotationX        float64    `gorm:"not null" json:"rotation_x"`
	RotationY        float64    `gorm:"not null" json:"rotation_y"`
	RotationZ        float64    `gorm:"not null" json:"rotation_z"`
	ScaleX           float64    `gorm:"not null" json:"scale_x"`
	ScaleY           float64    `gorm:"not null" json:"scale_y"`
	ScaleZ           float64    `gorm:"not null" json:"scale_z"`
	AnchorIndex      *int       `json:"anchor_index,omitempty"`
	IsActive         bool       `gorm:"not null" json:"is_active"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        *time.Time `gorm:"autoUpdateTime:false" json:"updated_at,omitempty"`
}

func (AccessoryModel) TableName() string {
	return "accessory_models"
}

// catalogSeed marks that default catalog data for a given version was written.
// Seeding checks this row instead of counting tables, so a partially failed
// first boot reruns as one unit.
type catalogSeed struct {
	ID        uint64    `gorm:"primaryKey"`
	Version   int       `gorm:"uniqueIndex;not null"`
	AppliedAt time.Time `gorm:"not null"`
}

func (catalogSeed) TableName() string {
	return "catalog_seed"
}
