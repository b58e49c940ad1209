package catalog

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const apiVersion = "2.0.0"

// Module exposes the public JSON API consumed by the AR viewer.
type Module struct {
	svc   *Service
	cache *ModelCache
	log   *zap.Logger
}

type modelDTO struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description *string    `json:"description"`
	Filename    string     `json:"filename"`
	Thumbnail   *string    `json:"thumbnail"`
	Position    [3]float64 `json:"position"`
	Rotation    [3]float64 `json:"rotation"`
	Scale       [3]float64 `json:"scale"`
	AnchorIndex int        `json:"anchor_index"`
	CreatedAt   time.Time  `json:"created_at"`
}

// RegisterRoutes mounts the public API under /api.
func RegisterRoutes(router *gin.Engine, svc *Service, cache *ModelCache, log *zap.Logger) *Module {
	if log == nil {
		log = zap.NewNop()
	}
	module := &Module{svc: svc, cache: cache, log: log}

	api := router.Group("/api")
	api.GET("/health", module.handleHealth)
	api.GET("/categories", module.handleListCategories)
	api.GET("/models", module.handleListModels)
	api.POST("/upload", module.handleUpload)
	api.DELETE("/models/:uuid", module.handleDeleteModel)

	return module
}

func (m *Module) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   apiVersion,
		"database":  "connected",
	})
}

func (m *Module) handleListCategories(c *gin.Context) {
	categories, err := m.svc.ListCategories(c.Request.Context())
	if err != nil {
		m.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": categories})
}

func (m *Module) handleListModels(c *gin.Context) {
	category := strings.TrimSpace(c.Query("category"))
	activeOnly := parseBoolQuery(c.Query("active_only"), true)

	ctx := c.Request.Context()
	if payload, ok := m.cache.GetModels(ctx, category, activeOnly); ok {
		c.Data(http.StatusOK, "application/json; charset=utf-8", payload)
		return
	}

	listings, err := m.svc.ListAssetsJoined(ctx, category, activeOnly)
	if err != nil {
		m.fail(c, err)
		return
	}

	grouped := make(map[string][]modelDTO)
	for _, listing := range listings {
		grouped[listing.CategoryName] = append(grouped[listing.CategoryName], toModelDTO(listing))
	}

	body := gin.H{"status": "success", "data": grouped}
	if payload, err := json.Marshal(body); err == nil {
		m.cache.StoreModels(ctx, category, activeOnly, payload)
	}
	c.JSON(http.StatusOK, body)
}

func (m *Module) handleUpload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "file is required"})
		return
	}

	in := UploadAssetInput{
		Name:         c.PostForm("name"),
		CategoryName: c.PostForm("category_name"),
		File:         file,
	}
	if description := strings.TrimSpace(c.PostForm("description")); description != "" {
		in.Description = &description
	}

	asset, err := m.svc.UploadAsset(c.Request.Context(), in)
	if err != nil {
		// An unknown category is a caller mistake on this endpoint, not a 404.
		var notFound *NotFoundError
		if errors.As(err, &notFound) {
			c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
			return
		}
		m.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "Model uploaded successfully",
		"data": gin.H{
			"id":       asset.UUID,
			"name":     asset.Name,
			"filename": asset.Filename,
		},
	})
}

func (m *Module) handleDeleteModel(c *gin.Context) {
	if err := m.svc.DeleteAssetByUUID(c.Request.Context(), c.Param("uuid")); err != nil {
		m.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Model deleted successfully"})
}

// fail maps the error taxonomy onto HTTP statuses.
func (m *Module) fail(c *gin.Context, err error) {
	var validation *ValidationError
	var notFound *NotFoundError
	switch {
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
	case errors.As(err, &notFound):
		c.JSON(http.StatusNotFound, gin.H{"status": "error", "message": err.Error()})
	default:
		m.log.Error("api request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "internal error"})
	}
}

// parseBoolQuery accepts the usual query literals ("1"/"0", "yes"/"no",
// "on"/"off" and anything strconv takes); unrecognized input keeps the default.
func parseBoolQuery(raw string, fallback bool) bool {
	trimmed := strings.ToLower(strings.TrimSpace(raw))
	switch trimmed {
	case "":
		return fallback
	case "yes", "on":
		return true
	case "no", "off":
		return false
	}
	parsed, err := strconv.ParseBool(trimmed)
	if err != nil {
		return fallback
	}
	return parsed
}

func toModelDTO(listing AssetListing) modelDTO {
	dto := modelDTO{
		ID:          listing.UUID,
		Name:        listing.Name,
		Description: listing.Description,
		Filename:    listing.Filename,
		Position:    [3]float64{listing.PositionX, listing.PositionY, listing.PositionZ},
		Rotation:    [3]float64{listing.RotationX, listing.RotationY, listing.RotationZ},
		Scale:       [3]float64{listing.ScaleX, listing.ScaleY, listing.ScaleZ},
		AnchorIndex: listing.EffectiveAnchor(),
		CreatedAt:   listing.CreatedAt,
	}
	if listing.ThumbnailPath != nil {
		thumb := "/static/" + strings.TrimPrefix(*listing.ThumbnailPath, "/")
		dto.Thumbnail = &thumb
	}
	return dto
}
