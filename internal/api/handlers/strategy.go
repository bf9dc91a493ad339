package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jstittsworth/bet-analytics/internal/services"
	"github.com/jstittsworth/bet-analytics/internal/strategy"
	"github.com/jstittsworth/bet-analytics/pkg/utils"
)

const (
	defaultArbitrageStake = 100.0
	defaultHistoryLimit   = 50
)

// StrategyHandler serves analysis, recommendations and sizing tools
type StrategyHandler struct {
	recs           *services.RecommendationService
	defaultProfile string
	bankroll       float64
}

func NewStrategyHandler(recs *services.RecommendationService, defaultProfile string, bankroll float64) *StrategyHandler {
	if defaultProfile == "" {
		defaultProfile = "moderate"
	}
	return &StrategyHandler{recs: recs, defaultProfile: defaultProfile, bankroll: bankroll}
}

func (h *StrategyHandler) profile(c *gin.Context) string {
	if p := c.Query("profile"); p != "" {
		return p
	}
	return h.defaultProfile
}

// GetAnalysis returns predictions for the current snapshot
func (h *StrategyHandler) GetAnalysis(c *gin.Context) {
	analysis, err := h.recs.Analysis(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SendSuccessWithMeta(c, analysis, &utils.Meta{
		Total:       len(analysis.Predictions),
		SnapshotID:  analysis.SnapshotID,
		GeneratedAt: analysis.GeneratedAt,
	})
}

// GetOpportunities returns every scored opportunity before selection
func (h *StrategyHandler) GetOpportunities(c *gin.Context) {
	opps, err := h.recs.Opportunities(c.Request.Context(), h.profile(c))
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SendSuccessWithMeta(c, opps, &utils.Meta{Total: len(opps)})
}

// GetRecommendations returns the latest bet slip for a profile
func (h *StrategyHandler) GetRecommendations(c *gin.Context) {
	rec, err := h.recs.Latest(c.Request.Context(), h.profile(c))
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SendSuccessWithMeta(c, rec, &utils.Meta{
		Total:       len(rec.Bets),
		SnapshotID:  rec.SnapshotID,
		GeneratedAt: rec.GeneratedAt,
	})
}

type recommendRequest struct {
	Profile string `json:"profile"`
}

// CreateRecommendations regenerates the bet slip for a profile from the current snapshot
func (h *StrategyHandler) CreateRecommendations(c *gin.Context) {
	var req recommendRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.SendValidationError(c, "Invalid request body", err.Error())
			return
		}
	}
	if req.Profile == "" {
		req.Profile = h.profile(c)
	}

	rec, err := h.recs.Recommend(c.Request.Context(), req.Profile, uuid.New())
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SendCreated(c, rec)
}

// GetRecommendationHistory returns persisted bets, newest first
func (h *StrategyHandler) GetRecommendationHistory(c *gin.Context) {
	limit, err := intQuery(c, "limit", defaultHistoryLimit)
	if err != nil {
		utils.SendValidationError(c, "Invalid limit", err.Error())
		return
	}
	rows, err := h.recs.History(c.Query("profile"), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SendSuccessWithMeta(c, rows, &utils.Meta{Total: len(rows), Limit: limit})
}

// GetArbitrage scans current odds for cross-book arbitrage
func (h *StrategyHandler) GetArbitrage(c *gin.Context) {
	stake := defaultArbitrageStake
	if raw := c.Query("stake"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v <= 0 {
			utils.SendValidationError(c, "Invalid stake", "stake must be a positive number")
			return
		}
		stake = v
	}
	arbs, err := h.recs.Arbitrage(stake)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SendSuccessWithMeta(c, arbs, &utils.Meta{Total: len(arbs)})
}

// GetParlays builds parlays from a profile's opportunities
func (h *StrategyHandler) GetParlays(c *gin.Context) {
	legs, err := intQuery(c, "legs", 2)
	if err != nil {
		utils.SendValidationError(c, "Invalid legs", err.Error())
		return
	}
	limit, err := intQuery(c, "max", 10)
	if err != nil {
		utils.SendValidationError(c, "Invalid max", err.Error())
		return
	}
	parlays, err := h.recs.Parlays(c.Request.Context(), h.profile(c), legs, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SendSuccessWithMeta(c, parlays, &utils.Meta{Total: len(parlays)})
}

// GetProfiles lists risk profiles
func (h *StrategyHandler) GetProfiles(c *gin.Context) {
	profiles := h.recs.Profiles().List()
	utils.SendSuccessWithMeta(c, profiles, &utils.Meta{Total: len(profiles)})
}

// UpsertProfile creates or updates a risk profile. Omitted fields keep the
// existing values, or moderate's for a new profile.
func (h *StrategyHandler) UpsertProfile(c *gin.Context) {
	name := c.Param("name")
	manager := h.recs.Profiles()

	base, err := manager.Get(name)
	if err != nil {
		base, err = manager.Get("moderate")
		if err != nil {
			respondError(c, err)
			return
		}
		base.Description = ""
	}
	if err := c.ShouldBindJSON(&base); err != nil {
		utils.SendValidationError(c, "Invalid profile", err.Error())
		return
	}
	base.Name = name
	if err := manager.Upsert(base); err != nil {
		utils.SendValidationError(c, "Invalid profile", err.Error())
		return
	}
	utils.SendSuccess(c, base)
}

type kellyRequest struct {
	Probability float64  `json:"probability" binding:"required"`
	Price       int      `json:"price" binding:"required"`
	Profile     string   `json:"profile"`
	Fraction    *float64 `json:"fraction"`
	MaxStakePct *float64 `json:"max_stake_pct"`
	Bankroll    *float64 `json:"bankroll"`
}

// CalculateKelly sizes a single bet. Fraction and cap default to the profile's.
func (h *StrategyHandler) CalculateKelly(c *gin.Context) {
	var req kellyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, "Invalid request body", err.Error())
		return
	}
	if req.Profile == "" {
		req.Profile = h.defaultProfile
	}
	profile, err := h.recs.Profiles().Get(req.Profile)
	if err != nil {
		respondError(c, err)
		return
	}

	fraction, maxPct, bankroll := profile.KellyFraction, profile.MaxStakePct, h.bankroll
	if req.Fraction != nil {
		fraction = *req.Fraction
	}
	if req.MaxStakePct != nil {
		maxPct = *req.MaxStakePct
	}
	if req.Bankroll != nil {
		bankroll = *req.Bankroll
	}

	result, err := strategy.Kelly(req.Probability, req.Price, fraction, maxPct, bankroll)
	if err != nil {
		utils.SendValidationError(c, "Invalid sizing parameters", err.Error())
		return
	}
	utils.SendSuccess(c, result)
}

func intQuery(c *gin.Context, key string, def int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}
