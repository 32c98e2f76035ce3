package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"neovidya/internal/models"
	"neovidya/internal/service"
)

// ProgressHandler handles the progress ledger and stats endpoints
type ProgressHandler struct {
	progressService *service.ProgressService
	statsService    *service.StatsService
	logger          *zap.Logger
}

// NewProgressHandler creates a new progress handler
func NewProgressHandler(progressService *service.ProgressService, statsService *service.StatsService, logger *zap.Logger) *ProgressHandler {
	return &ProgressHandler{
		progressService: progressService,
		statsService:    statsService,
		logger:          logger,
	}
}

type recordProgressRequest struct {
	Completed bool `json:"completed"`
	Score     *int `json:"score" validate:"omitempty,gte=0"`
}

// ListProgress returns the caller's progress grouped by subject, chapter and item
func (h *ProgressHandler) ListProgress(w http.ResponseWriter, r *http.Request) {
	tree, err := h.progressService.ListProgress(r.Context(), ActorFromContext(r.Context()))
	if err != nil {
		respondWithError(h.logger, w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"progress": tree})
}

// RecordProgress stores the state of one item
func (h *ProgressHandler) RecordProgress(w http.ResponseWriter, r *http.Request) {
	chapter, err := service.ParseIndex("chapter", r.PathValue("chapter"))
	if err != nil {
		respondWithError(h.logger, w, r, err)
		return
	}
	item, err := service.ParseIndex("item", r.PathValue("item"))
	if err != nil {
		respondWithError(h.logger, w, r, err)
		return
	}

	var req recordProgressRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(h.logger, w, r, err)
		return
	}
	if err := validateRequest(req, ""); err != nil {
		respondWithError(h.logger, w, r, err)
		return
	}

	entry, err := h.progressService.RecordProgress(r.Context(), ActorFromContext(r.Context()), service.ProgressUpdate{
		Subject:      r.PathValue("subject"),
		ChapterIndex: chapter,
		ItemIndex:    item,
		Completed:    req.Completed,
		Score:        req.Score,
	})
	if err != nil {
		respondWithError(h.logger, w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": MsgProgressSaved,
		"progress": models.ItemProgress{
			Completed:   entry.Completed,
			Score:       entry.Score,
			CompletedAt: entry.CompletedAt,
		},
	})
}

// GetStats returns the caller's xp, streak and completed item count
func (h *ProgressHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.statsService.GetStats(r.Context(), ActorFromContext(r.Context()))
	if err != nil {
		respondWithError(h.logger, w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

// UpdateStats sets the supplied counters
func (h *ProgressHandler) UpdateStats(w http.ResponseWriter, r *http.Request) {
	var req models.StatsUpdate
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(h.logger, w, r, err)
		return
	}
	if err := validateRequest(req, ""); err != nil {
		respondWithError(h.logger, w, r, err)
		return
	}

	if err := h.statsService.UpdateStats(r.Context(), ActorFromContext(r.Context()), req); err != nil {
		respondWithError(h.logger, w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, messageResponse{Message: MsgStatsUpdated})
}
