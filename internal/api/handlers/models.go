package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/jstittsworth/bet-analytics/internal/registry"
	"github.com/jstittsworth/bet-analytics/pkg/utils"
)

// ModelHandler exposes the model registry
type ModelHandler struct {
	registry *registry.Registry
}

func NewModelHandler(reg *registry.Registry) *ModelHandler {
	return &ModelHandler{registry: reg}
}

func (h *ModelHandler) ListModels(c *gin.Context) {
	models, err := h.registry.ListModels()
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SendSuccessWithMeta(c, models, &utils.Meta{Total: len(models)})
}

// GetModel returns metadata with the serving version inlined
func (h *ModelHandler) GetModel(c *gin.Context) {
	name := c.Param("name")
	meta, err := h.registry.GetModel(name)
	if err != nil {
		respondError(c, err)
		return
	}
	body := gin.H{"model": meta}
	if active, err := h.registry.ActiveVersion(name); err == nil {
		body["active"] = active
	}
	utils.SendSuccess(c, body)
}

func (h *ModelHandler) ListVersions(c *gin.Context) {
	versions, err := h.registry.ListVersions(c.Param("name"))
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SendSuccessWithMeta(c, versions, &utils.Meta{Total: len(versions)})
}

type registerModelRequest struct {
	Name        string   `json:"name" binding:"required"`
	Description string   `json:"description"`
	Framework   string   `json:"framework"`
	Tags        []string `json:"tags"`
}

func (h *ModelHandler) RegisterModel(c *gin.Context) {
	var req registerModelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, "Invalid request body", err.Error())
		return
	}
	meta, err := h.registry.RegisterModel(req.Name, req.Description, req.Framework, req.Tags)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SendCreated(c, meta)
}

func (h *ModelHandler) SaveVersion(c *gin.Context) {
	var in registry.VersionInput
	if err := c.ShouldBindJSON(&in); err != nil {
		utils.SendValidationError(c, "Invalid request body", err.Error())
		return
	}
	version, err := h.registry.SaveVersion(c.Param("name"), in)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SendCreated(c, version)
}

func (h *ModelHandler) ActivateVersion(c *gin.Context) {
	meta, err := h.registry.Activate(c.Param("name"), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SendSuccess(c, meta)
}

func (h *ModelHandler) DeleteVersion(c *gin.Context) {
	if err := h.registry.DeleteVersion(c.Param("name"), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	utils.SendSuccess(c, gin.H{"deleted": c.Param("id")})
}
