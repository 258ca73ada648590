package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lowfell/questworld/server/audit"
	"github.com/lowfell/questworld/server/middleware"
	"github.com/lowfell/questworld/server/scheduler"
	"go.uber.org/zap"
)

// AdminKeyHeader carries the shared admin key.
const AdminKeyHeader = "X-Admin-Key"

// AdminAuth guards admin routes with a shared key. An empty configured key
// disables the routes entirely.
func AdminAuth(adminKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if adminKey == "" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin endpoints disabled", "code": "forbidden"})
			return
		}
		if c.GetHeader(AdminKeyHeader) != adminKey {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid admin key", "code": "unauthorized"})
			return
		}
		c.Next()
	}
}

// AdminHandler exposes operational controls.
type AdminHandler struct {
	sweeper *scheduler.Sweeper
	sched   *scheduler.Scheduler
	events  *audit.Service
	logger  *zap.Logger
}

// NewAdminHandler creates an AdminHandler.
func NewAdminHandler(sweeper *scheduler.Sweeper, sched *scheduler.Scheduler, events *audit.Service, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{sweeper: sweeper, sched: sched, events: events, logger: logger}
}

// Sweep handles POST /api/admin/sweep: run the world sweep immediately
// instead of waiting for the next tick.
func (h *AdminHandler) Sweep(c *gin.Context) {
	h.logger.Info("manual sweep triggered", zap.String("client_ip", c.ClientIP()))
	h.events.Record(audit.Entry{
		TraceID: middleware.GetTraceID(c),
		Type:    "manual_sweep",
		IP:      c.ClientIP(),
	})
	h.sweeper.Sweep(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"status": "swept"})
}

// ListSchedulerTasks handles GET /api/admin/scheduler.
func (h *AdminHandler) ListSchedulerTasks(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"tasks": h.sched.ListTickers()})
}
