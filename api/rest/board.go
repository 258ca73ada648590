package rest

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lowfell/questworld/server/cache"
	"github.com/lowfell/questworld/server/config"
	"github.com/lowfell/questworld/server/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// BoardHandler serves the per-location quest board through the read cache.
type BoardHandler struct {
	db     *gorm.DB
	cache  cache.Cache
	cfg    config.CacheConfig
	logger *zap.Logger
}

// NewBoardHandler creates a BoardHandler.
func NewBoardHandler(db *gorm.DB, c cache.Cache, cfg config.CacheConfig, logger *zap.Logger) *BoardHandler {
	return &BoardHandler{db: db, cache: c, cfg: cfg, logger: logger}
}

type boardQuest struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	PartySize       int     `json:"party_size"`
	ChallengeRating float64 `json:"challenge_rating"`
	DestinationID   string  `json:"destination_id"`
}

type boardView struct {
	LocationID string       `json:"location_id"`
	Quests     []boardQuest `json:"quests"`
}

// List handles GET /api/locations/:id/quests. The board is read-heavy and
// tolerates TTL staleness, so a cache miss rebuilds it from the database and
// any cache failure silently falls through to a fresh read.
func (h *BoardHandler) List(c *gin.Context) {
	locationID := c.Param("id")
	key := "board:" + locationID

	if raw, err := h.cache.Get(c.Request.Context(), key); err == nil {
		var view boardView
		if err := json.Unmarshal([]byte(raw), &view); err == nil {
			c.JSON(http.StatusOK, view)
			return
		}
	}

	var loc model.Location
	if err := h.db.First(&loc, "id = ?", locationID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "location not found", "code": "not_found"})
		return
	}

	var quests []model.Quest
	err := h.db.
		Where("location_id = ? AND status = ?", locationID, model.QuestStatusActive).
		Order("id").Find(&quests).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error", "code": "internal"})
		return
	}

	view := boardView{LocationID: locationID, Quests: make([]boardQuest, 0, len(quests))}
	for _, q := range quests {
		view.Quests = append(view.Quests, boardQuest{
			ID:              q.ID,
			Name:            q.Name,
			PartySize:       q.PartySize,
			ChallengeRating: q.ChallengeRating,
			DestinationID:   q.DestinationID,
		})
	}

	if raw, err := json.Marshal(view); err == nil {
		if err := h.cache.Set(c.Request.Context(), key, string(raw), h.cfg.BoardTTL); err != nil {
			h.logger.Warn("board cache write failed", zap.Error(err))
		}
	}
	c.JSON(http.StatusOK, view)
}
