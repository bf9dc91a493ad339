package handlers

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/jstittsworth/bet-analytics/internal/features"
	"github.com/jstittsworth/bet-analytics/pkg/utils"
)

const maxSeriesLength = 10000

type FeatureHandler struct {
	service *features.FeatureEngineeringService
}

func NewFeatureHandler(service *features.FeatureEngineeringService) *FeatureHandler {
	return &FeatureHandler{service: service}
}

type featureRequest struct {
	Series    []float64               `json:"series" binding:"required"`
	Options   features.ExtractOptions `json:"options"`
	Transform string                  `json:"transform"` // "", "minmax", "standardize", "log1p", "lag", "clip"
	features.TransformParams
}

type featureResponse struct {
	*features.FeatureSet
	Transformed []float64 `json:"transformed,omitempty"`
}

// Extract computes the feature set for a numeric series
func (h *FeatureHandler) Extract(c *gin.Context) {
	var req featureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, "Invalid request body", err.Error())
		return
	}
	if len(req.Series) > maxSeriesLength {
		utils.SendValidationError(c, "Series too long", fmt.Sprintf("at most %d points", maxSeriesLength))
		return
	}

	fs, err := h.service.Extract(req.Series, req.Options)
	if err != nil {
		respondError(c, err)
		return
	}
	resp := featureResponse{FeatureSet: fs}

	resp.Transformed, err = h.service.Transformer().Apply(req.Transform, req.Series, req.TransformParams)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SendSuccess(c, resp)
}
