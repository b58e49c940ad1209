package admin

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"tryon_back/catalog"
)

// modelForm is the parsed create/edit model form. ActivePresent distinguishes
// an unchecked checkbox from a form that never rendered one.
type modelForm struct {
	Name           string
	Description    *string
	CategoryID     uint64
	Transform      catalog.Transform
	AnchorOverride string
	Active         bool
	ActivePresent  bool
	ModelFile      *multipart.FileHeader
	ThumbnailFile  *multipart.FileHeader
}

func parseModelForm(c *gin.Context) (modelForm, error) {
	form := modelForm{Transform: catalog.DefaultTransform()}

	form.Name = strings.TrimSpace(c.PostForm("name"))
	if description := strings.TrimSpace(c.PostForm("description")); description != "" {
		form.Description = &description
	}

	rawCategory := strings.TrimSpace(c.PostForm("category_id"))
	categoryID, err := strconv.ParseUint(rawCategory, 10, 64)
	if err != nil || categoryID == 0 {
		return form, fmt.Errorf("a category must be selected")
	}
	form.CategoryID = categoryID

	fields := []struct {
		name   string
		target *float64
	}{
		{"position_x", &form.Transform.PositionX},
		{"position_y", &form.Transform.PositionY},
		{"position_z", &form.Transform.PositionZ},
		{"rotation_x", &form.Transform.RotationX},
		{"rotation_y", &form.Transform.RotationY},
		{"rotation_z", &form.Transform.RotationZ},
		{"scale_x", &form.Transform.ScaleX},
		{"scale_y", &form.Transform.ScaleY},
		{"scale_z", &form.Transform.ScaleZ},
	}
	for _, field := range fields {
		raw := strings.TrimSpace(c.PostForm(field.name))
		if raw == "" {
			continue
		}
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return form, fmt.Errorf("invalid value for %s: %s", field.name, raw)
		}
		*field.target = value
	}

	form.AnchorOverride = c.PostForm("anchor_index")
	if raw, ok := c.GetPostForm("is_active"); ok {
		form.ActivePresent = true
		form.Active = raw != "" && raw != "false" && raw != "0"
	}

	form.ModelFile, err = optionalFormFile(c, "model_file")
	if err != nil {
		return form, err
	}
	form.ThumbnailFile, err = optionalFormFile(c, "thumbnail_file")
	if err != nil {
		return form, err
	}

	return form, nil
}

func optionalFormFile(c *gin.Context, field string) (*multipart.FileHeader, error) {
	file, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil
		}
		return nil, fmt.Errorf("invalid %s upload", field)
	}
	if file == nil || strings.TrimSpace(file.Filename) == "" {
		return nil, nil
	}
	return file, nil
}

func parseCategoryForm(c *gin.Context) (catalog.UpdateCategoryInput, error) {
	in := catalog.UpdateCategoryInput{Name: c.PostForm("name")}
	if description := strings.TrimSpace(c.PostForm("description")); description != "" {
		in.Description = &description
	}

	raw := strings.TrimSpace(c.PostForm("anchor_index"))
	anchor, err := strconv.Atoi(raw)
	if err != nil {
		return in, fmt.Errorf("invalid anchor index: %s", raw)
	}
	in.AnchorIndex = anchor
	return in, nil
}

func parseIDParam(c *gin.Context) (uint64, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid id")
	}
	return id, nil
}
