package rest

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lowfell/questworld/server/config"
	"github.com/lowfell/questworld/server/game/clock"
	"github.com/lowfell/questworld/server/game/run"
	"github.com/lowfell/questworld/server/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RunHandler serves quest-run status. Polling an overdue run resolves it on
// the spot instead of waiting for the next sweep; the resolver's claim
// protocol makes the poll and the sweep safe to race.
type RunHandler struct {
	db       *gorm.DB
	cfg      config.GameConfig
	resolver *run.Resolver
	logger   *zap.Logger
}

// NewRunHandler creates a RunHandler.
func NewRunHandler(db *gorm.DB, cfg config.GameConfig, resolver *run.Resolver, logger *zap.Logger) *RunHandler {
	return &RunHandler{db: db, cfg: cfg, resolver: resolver, logger: logger}
}

// Get handles GET /api/runs/:id.
func (h *RunHandler) Get(c *gin.Context) {
	id := c.Param("id")
	var r model.QuestRun
	if err := h.db.Preload("Participants").First(&r, "id = ?", id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found", "code": "not_found"})
		return
	}

	cooldown := clock.ScaleDuration(h.cfg.QuestCooldown, h.cfg.TimeScale)
	due := r.StartedAt.Add(cooldown)
	if !r.Resolved() && !time.Now().Before(due) {
		resolved, err := h.resolver.Resolve(c.Request.Context(), id)
		if err != nil {
			h.logger.Error("on-demand resolution failed", zap.String("run_id", id), zap.Error(err))
		} else {
			r = *resolved
		}
	}

	status := "pending"
	if r.Resolved() {
		status = "resolved"
	}
	c.JSON(http.StatusOK, gin.H{
		"run":         r,
		"status":      status,
		"resolves_at": due,
	})
}
