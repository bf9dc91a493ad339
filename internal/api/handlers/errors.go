package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jstittsworth/bet-analytics/internal/betting"
	"github.com/jstittsworth/bet-analytics/internal/features"
	"github.com/jstittsworth/bet-analytics/internal/registry"
	"github.com/jstittsworth/bet-analytics/internal/services"
	"github.com/jstittsworth/bet-analytics/internal/strategy"
	"github.com/jstittsworth/bet-analytics/pkg/utils"
)

// respondError maps domain errors onto API responses
func respondError(c *gin.Context, err error) {
	_ = c.Error(err)

	switch {
	case errors.Is(err, strategy.ErrProfileNotFound),
		errors.Is(err, registry.ErrModelNotFound),
		errors.Is(err, registry.ErrVersionNotFound):
		utils.SendNotFound(c, err.Error())
	case errors.Is(err, registry.ErrModelExists),
		errors.Is(err, services.ErrSyncInProgress):
		utils.SendConflict(c, err.Error())
	case errors.Is(err, registry.ErrInvalidName),
		errors.Is(err, strategy.ErrInvalidLegCount),
		errors.Is(err, strategy.ErrInvalidOdds),
		errors.Is(err, strategy.ErrInvalidProbability),
		errors.Is(err, features.ErrEmptySeries),
		errors.Is(err, features.ErrInsufficientData),
		errors.Is(err, features.ErrNonFiniteValue),
		errors.Is(err, features.ErrInvalidWindow),
		errors.Is(err, features.ErrInvalidParameter):
		utils.SendValidationError(c, "Invalid request", err.Error())
	case errors.Is(err, betting.ErrNoData):
		utils.SendUnavailable(c, err.Error())
	case errors.Is(err, services.ErrAllSourcesFailed),
		errors.Is(err, services.ErrNoAdapters):
		utils.SendError(c, http.StatusBadGateway, utils.NewAppError(utils.ErrCodeUnavailable, err.Error()))
	case errors.Is(err, services.ErrPersistenceDisabled):
		utils.SendUnavailable(c, err.Error())
	default:
		utils.SendInternalError(c, err.Error())
	}
}
