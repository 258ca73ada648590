package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lowfell/questworld/server/audit"
	"github.com/lowfell/questworld/server/game/formula"
	"github.com/lowfell/questworld/server/game/quest"
	"github.com/lowfell/questworld/server/middleware"
	"github.com/lowfell/questworld/server/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AgentHandler serves agent state and quest-taking.
type AgentHandler struct {
	db     *gorm.DB
	quests *quest.Service
	events *audit.Service
	logger *zap.Logger
}

// NewAgentHandler creates an AgentHandler.
func NewAgentHandler(db *gorm.DB, quests *quest.Service, events *audit.Service, logger *zap.Logger) *AgentHandler {
	return &AgentHandler{db: db, quests: quests, events: events, logger: logger}
}

// Get handles GET /api/agents/:id.
func (h *AgentHandler) Get(c *gin.Context) {
	var agent model.Agent
	if err := h.db.First(&agent, "id = ?", c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "agent not found", "code": "not_found"})
		return
	}
	info := formula.LevelFromTotalXP(agent.XP)
	c.JSON(http.StatusOK, gin.H{
		"agent":      agent,
		"xp_into":    info.XPInto,
		"xp_to_next": info.XPToNext,
	})
}

type takeQuestRequest struct {
	QuestID string   `json:"quest_id" binding:"required"`
	Skills  []string `json:"skills"   binding:"required"`
	Action  string   `json:"action"   binding:"required"`
}

// Take handles POST /api/agents/:id/take. Solo quests return the started
// run; party quests return either the queue the agent joined or, when the
// join filled the party, the run that just departed.
func (h *AgentHandler) Take(c *gin.Context) {
	var req takeQuestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "bad_request"})
		return
	}

	agentID := c.Param("id")
	res, err := h.quests.Take(c.Request.Context(), agentID, req.QuestID, req.Skills, req.Action)
	if err != nil {
		h.events.Record(audit.Entry{
			TraceID: middleware.GetTraceID(c),
			Type:    "take_rejected",
			AgentID: agentID,
			QuestID: req.QuestID,
			Error:   err.Error(),
			IP:      c.ClientIP(),
		})
		writeError(c, err)
		return
	}

	entry := audit.Entry{
		TraceID: middleware.GetTraceID(c),
		Type:    "quest_taken",
		AgentID: agentID,
		QuestID: req.QuestID,
		Detail:  gin.H{"action": req.Action, "skills": req.Skills},
		IP:      c.ClientIP(),
	}
	if res.Run != nil {
		entry.RunID = res.Run.ID
		h.events.Record(entry)
		c.JSON(http.StatusOK, gin.H{"status": "departed", "run": res.Run})
		return
	}
	entry.Type = "party_queued"
	h.events.Record(entry)
	c.JSON(http.StatusOK, gin.H{"status": "queued", "queue": res.Queue})
}
