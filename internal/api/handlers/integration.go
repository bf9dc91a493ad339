package handlers

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jstittsworth/bet-analytics/internal/betting"
	"github.com/jstittsworth/bet-analytics/internal/services"
	"github.com/jstittsworth/bet-analytics/internal/strategy"
	"github.com/jstittsworth/bet-analytics/pkg/utils"
)

// IntegrationHandler exposes the merged snapshot, source health and sync jobs
type IntegrationHandler struct {
	hub  *services.DataIntegrationHub
	sync *services.DataSyncService
	recs *services.RecommendationService
}

func NewIntegrationHandler(hub *services.DataIntegrationHub, sync *services.DataSyncService, recs *services.RecommendationService) *IntegrationHandler {
	return &IntegrationHandler{hub: hub, sync: sync, recs: recs}
}

func (h *IntegrationHandler) snapshot(c *gin.Context) (*betting.IntegratedData, bool) {
	data := h.hub.Snapshot()
	if data == nil {
		respondError(c, fmt.Errorf("%w: no snapshot yet", betting.ErrNoData))
		return nil, false
	}
	return data, true
}

// GetSnapshot returns the full merged snapshot, optionally filtered by sport
func (h *IntegrationHandler) GetSnapshot(c *gin.Context) {
	data, ok := h.snapshot(c)
	if !ok {
		return
	}

	if raw := c.Query("sport"); raw != "" {
		sport, valid := betting.ParseSport(raw)
		if !valid {
			utils.SendValidationError(c, "Invalid sport", raw)
			return
		}
		data = filterSport(data, sport)
	}
	utils.SendSuccessWithMeta(c, data, &utils.Meta{
		Total:       len(data.Projections),
		SnapshotID:  data.ID,
		GeneratedAt: data.Timestamp,
	})
}

func filterSport(data *betting.IntegratedData, sport betting.Sport) *betting.IntegratedData {
	for id, projections := range data.Projections {
		kept := projections[:0]
		for _, p := range projections {
			if p.Sport == sport {
				kept = append(kept, p)
			}
		}
		if len(kept) == 0 {
			delete(data.Projections, id)
		} else {
			data.Projections[id] = kept
		}
	}
	for id, lines := range data.Odds {
		if len(lines) == 0 || lines[0].Sport != sport {
			delete(data.Odds, id)
		}
	}
	return data
}

// GetSnapshotSummary returns counts and sources for the current snapshot
func (h *IntegrationHandler) GetSnapshotSummary(c *gin.Context) {
	data, ok := h.snapshot(c)
	if !ok {
		return
	}
	utils.SendSuccess(c, services.SnapshotSummary{
		ID:            data.ID,
		Timestamp:     data.Timestamp,
		Counts:        data.Counts(),
		Sources:       data.Sources,
		FailedSources: data.FailedSources,
	})
}

// GetSources returns per-source reliability and latency
func (h *IntegrationHandler) GetSources(c *gin.Context) {
	sources := h.hub.SourceMetrics()
	utils.SendSuccessWithMeta(c, sources, &utils.Meta{Total: len(sources)})
}

// TriggerSync runs a sync immediately; ?force=true bypasses adapter caches
func (h *IntegrationHandler) TriggerSync(c *gin.Context) {
	if raw := c.Query("force"); raw != "" {
		force, err := strconv.ParseBool(raw)
		if err != nil {
			utils.SendValidationError(c, "Invalid force flag", raw)
			return
		}
		if force {
			h.hub.InvalidateCaches()
		}
	}

	result, err := h.sync.TriggerSync(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	summary := result.Summary
	summary.DurationMs = result.Duration.Milliseconds()
	utils.SendSuccess(c, summary)
}

// GetJobs lists scheduled jobs and the last sync outcome
func (h *IntegrationHandler) GetJobs(c *gin.Context) {
	utils.SendSuccess(c, gin.H{
		"status": h.sync.GetStatus(),
		"jobs":   h.sync.Jobs(),
	})
}

// PlayerView is everything known about one player
type PlayerView struct {
	PlayerID    string                  `json:"player_id"`
	Projections []betting.Projection    `json:"projections"`
	Sentiment   *betting.SentimentScore `json:"sentiment,omitempty"`
	Injury      *betting.InjuryReport   `json:"injury,omitempty"`
	Trend       *betting.Trend          `json:"trend,omitempty"`
	History     []services.HistoryPoint `json:"history"`
	Predictions []strategy.Prediction   `json:"predictions,omitempty"`
}

// GetPlayer returns projections, injury, sentiment, trend and history for a player
func (h *IntegrationHandler) GetPlayer(c *gin.Context) {
	data, ok := h.snapshot(c)
	if !ok {
		return
	}

	id := betting.PlayerKey(c.Param("id"))
	view := PlayerView{
		PlayerID:    id,
		Projections: data.Projections[id],
		History:     h.hub.History(id),
	}
	if s, ok := data.Sentiment[id]; ok {
		view.Sentiment = &s
	}
	if inj, ok := data.Injuries[id]; ok {
		view.Injury = &inj
	}
	if t, ok := data.Trends[id]; ok {
		view.Trend = &t
	}
	if len(view.Projections) == 0 && view.Sentiment == nil && view.Injury == nil {
		utils.SendNotFound(c, "Player not found in current snapshot")
		return
	}

	if h.recs != nil {
		if analysis, err := h.recs.Analysis(c.Request.Context()); err == nil {
			view.Predictions = analysis.ForPlayer(id)
		}
	}
	utils.SendSuccess(c, view)
}
