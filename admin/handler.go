// Package admin serves the server-rendered content management console. Every
// mutation goes through the catalog service; the handlers only translate forms
// and render templates.
package admin

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tryon_back/catalog"
)

type Module struct {
	svc *Service
	log *zap.Logger
}

// Service is the slice of the catalog the console needs.
type Service = catalog.Service

// RegisterRoutes mounts the console under /admin. Templates must already be
// loaded on the engine.
func RegisterRoutes(router *gin.Engine, svc *Service, log *zap.Logger) *Module {
	if log == nil {
		log = zap.NewNop()
	}
	module := &Module{svc: svc, log: log}

	group := router.Group("/admin")
	group.GET("", module.handleDashboard)
	group.GET("/categories", module.handleListCategories)
	group.GET("/categories/:id/edit", module.handleEditCategoryForm)
	group.POST("/categories/:id/edit", module.handleEditCategory)
	group.GET("/models", module.handleListModels)
	group.GET("/models/create", module.handleCreateModelForm)
	group.POST("/models/create", module.handleCreateModel)
	group.GET("/models/:id/edit", module.handleEditModelForm)
	group.POST("/models/:id/edit", module.handleEditModel)
	group.POST("/models/:id/delete", module.handleDeleteModel)
	group.POST("/models/:id/toggle", module.handleToggleModel)

	return module
}

func (m *Module) handleDashboard(c *gin.Context) {
	c.HTML(http.StatusOK, "dashboard.html", gin.H{"Title": "Admin Dashboard"})
}

func (m *Module) handleListCategories(c *gin.Context) {
	categories, err := m.svc.ListCategories(c.Request.Context())
	if err != nil {
		m.renderError(c, err)
		return
	}
	c.HTML(http.StatusOK, "categories.html", gin.H{
		"Title":      "Categories",
		"Categories": categories,
	})
}

func (m *Module) handleEditCategoryForm(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		c.String(http.StatusBadRequest, err.Error())
		return
	}
	category, err := m.svc.GetCategory(c.Request.Context(), id)
	if err != nil {
		m.renderError(c, err)
		return
	}
	c.HTML(http.StatusOK, "category_edit.html", gin.H{
		"Title":    "Edit Category",
		"Category": category,
	})
}

func (m *Module) handleEditCategory(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		c.String(http.StatusBadRequest, err.Error())
		return
	}

	ctx := c.Request.Context()
	category, err := m.svc.GetCategory(ctx, id)
	if err != nil {
		m.renderError(c, err)
		return
	}

	in, err := parseCategoryForm(c)
	if err == nil {
		_, err = m.svc.UpdateCategory(ctx, id, in)
	}
	if err != nil {
		c.HTML(http.StatusOK, "category_edit.html", gin.H{
			"Title":    "Edit Category",
			"Category": category,
			"Error":    err.Error(),
		})
		return
	}

	c.Redirect(http.StatusSeeOther, "/admin/categories")
}

func (m *Module) handleListModels(c *gin.Context) {
	models, err := m.svc.ListAssetsJoined(c.Request.Context(), "", false)
	if err != nil {
		m.renderError(c, err)
		return
	}
	c.HTML(http.StatusOK, "models.html", gin.H{
		"Title":  "3D Models",
		"Models": models,
	})
}

func (m *Module) handleCreateModelForm(c *gin.Context) {
	categories, err := m.svc.ListCategories(c.Request.Context())
	if err != nil {
		m.renderError(c, err)
		return
	}
	c.HTML(http.StatusOK, "model_form.html", gin.H{
		"Title":      "Create 3D Model",
		"Action":     "create",
		"Categories": categories,
	})
}

func (m *Module) handleCreateModel(c *gin.Context) {
	ctx := c.Request.Context()

	form, err := parseModelForm(c)
	if err == nil {
		in := catalog.CreateAssetInput{
			Name:           form.Name,
			Description:    form.Description,
			CategoryID:     form.CategoryID,
			Transform:      form.Transform,
			AnchorOverride: form.AnchorOverride,
			ModelFile:      form.ModelFile,
			ThumbnailFile:  form.ThumbnailFile,
		}
		if form.ActivePresent {
			in.IsActive = &form.Active
		}
		_, err = m.svc.CreateAsset(ctx, in)
	}
	if err != nil {
		categories, listErr := m.svc.ListCategories(ctx)
		if listErr != nil {
			m.renderError(c, listErr)
			return
		}
		c.HTML(http.StatusOK, "model_form.html", gin.H{
			"Title":      "Create 3D Model",
			"Action":     "create",
			"Categories": categories,
			"Error":      err.Error(),
		})
		return
	}

	c.Redirect(http.StatusSeeOther, "/admin/models")
}

func (m *Module) handleEditModelForm(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		c.String(http.StatusBadRequest, err.Error())
		return
	}

	ctx := c.Request.Context()
	model, err := m.svc.GetAsset(ctx, id)
	if err != nil {
		m.renderError(c, err)
		return
	}
	categories, err := m.svc.ListCategories(ctx)
	if err != nil {
		m.renderError(c, err)
		return
	}
	c.HTML(http.StatusOK, "model_form.html", gin.H{
		"Title":      "Edit " + model.Name,
		"Action":     "edit",
		"Model":      model,
		"Categories": categories,
	})
}

func (m *Module) handleEditModel(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		c.String(http.StatusBadRequest, err.Error())
		return
	}

	ctx := c.Request.Context()
	model, err := m.svc.GetAsset(ctx, id)
	if err != nil {
		m.renderError(c, err)
		return
	}

	form, err := parseModelForm(c)
	if err == nil {
		_, err = m.svc.UpdateAsset(ctx, id, catalog.UpdateAssetInput{
			Name:           form.Name,
			Description:    form.Description,
			CategoryID:     form.CategoryID,
			Transform:      form.Transform,
			AnchorOverride: form.AnchorOverride,
			IsActive:       form.Active,
			ModelFile:      form.ModelFile,
			ThumbnailFile:  form.ThumbnailFile,
		})
	}
	if err != nil {
		categories, listErr := m.svc.ListCategories(ctx)
		if listErr != nil {
			m.renderError(c, listErr)
			return
		}
		c.HTML(http.StatusOK, "model_form.html", gin.H{
			"Title":      "Edit " + model.Name,
			"Action":     "edit",
			"Model":      model,
			"Categories": categories,
			"Error":      err.Error(),
		})
		return
	}

	c.Redirect(http.StatusSeeOther, "/admin/models")
}

func (m *Module) handleDeleteModel(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		c.String(http.StatusBadRequest, err.Error())
		return
	}
	if err := m.svc.DeleteAsset(c.Request.Context(), id); err != nil {
		m.renderError(c, err)
		return
	}
	c.Redirect(http.StatusSeeOther, "/admin/models")
}

func (m *Module) handleToggleModel(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}
	asset, err := m.svc.ToggleAsset(c.Request.Context(), id)
	if err != nil {
		var notFound *catalog.NotFoundError
		if errors.As(err, &notFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": err.Error()})
			return
		}
		m.log.Error("toggle failed", zap.Uint64("id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "toggle failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "is_active": asset.IsActive})
}

func (m *Module) renderError(c *gin.Context, err error) {
	var notFound *catalog.NotFoundError
	if errors.As(err, &notFound) {
		c.String(http.StatusNotFound, err.Error())
		return
	}
	m.log.Error("admin request failed", zap.String("path", c.FullPath()), zap.Error(err))
	c.String(http.StatusInternalServerError, "internal error")
}
