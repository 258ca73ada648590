package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/gin-gonic/gin"
	apirest "github.com/lowfell/questworld/server/api/rest"
	"github.com/lowfell/questworld/server/audit"
	"github.com/lowfell/questworld/server/cache"
	"github.com/lowfell/questworld/server/config"
	dbadapter "github.com/lowfell/questworld/server/db"
	"github.com/lowfell/questworld/server/game/generate"
	"github.com/lowfell/questworld/server/game/partyqueue"
	"github.com/lowfell/questworld/server/game/quest"
	"github.com/lowfell/questworld/server/game/run"
	mw "github.com/lowfell/questworld/server/middleware"
	"github.com/lowfell/questworld/server/model"
	"github.com/lowfell/questworld/server/scheduler"
	"github.com/lowfell/questworld/server/webhook"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

func main() {
	cfgPath := "config/config.yaml"
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// ---- Logger ----
	var logger *zap.Logger
	var logErr error
	if cfg.Server.Debug {
		logger, logErr = zap.NewDevelopment()
	} else {
		logger, logErr = zap.NewProduction()
	}
	if logErr != nil {
		log.Fatalf("logger: %v", logErr)
	}
	defer logger.Sync()

	if cfg.Server.AdminKey == "" {
		logger.Warn("server.admin_key is not set; admin endpoints are disabled")
	}
	if cfg.Game.TimeScale != 1.0 {
		logger.Warn("time scale is not 1; world time is compressed",
			zap.Float64("time_scale", cfg.Game.TimeScale))
	}

	// ---- Database ----
	db, err := dbadapter.Open(cfg.Database)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	if err := model.AutoMigrate(db); err != nil {
		log.Fatalf("db migrate: %v", err)
	}
	logger.Info("DB initialized")

	// ---- Cache ----
	c, err := cache.New(cfg.Cache)
	if err != nil {
		log.Fatalf("cache: %v", err)
	}
	logger.Info("Cache initialized")

	// ---- Audit ----
	events := audit.New(db, logger)
	defer events.Stop(context.Background())

	// ---- Game Services ----
	notifier := webhook.NewNotifier(cfg.Webhook.Timeout, logger)
	queues := partyqueue.NewService(db, logger)
	quests := quest.NewService(db, cfg.Game, queues, notifier, logger)
	resolver := run.NewResolver(db, cfg.Game, notifier, logger)
	generator := generate.NewService(db, cfg.Game, queues, logger)

	// ---- Scheduler ----
	sched := scheduler.New(logger)
	defer sched.Stop()
	sweeper := scheduler.NewSweeper(db, cfg.Game, resolver, queues, quests, generator, notifier, logger)
	sweeper.Register(sched)

	// Seed the quest pool on startup so the board is never empty.
	sweeper.Sweep(context.Background())

	// ---- Gin HTTP Server ----
	if !cfg.Server.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(mw.TraceID(), mw.Logger(logger), mw.Recovery(logger))
	r.Use(mw.RateLimit(rate.Limit(cfg.Security.RateLimitRPS), cfg.Security.RateLimitBurst))

	r.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(200, gin.H{"status": "ok"})
	})

	boardH := apirest.NewBoardHandler(db, c, cfg.Cache, logger)
	agentH := apirest.NewAgentHandler(db, quests, events, logger)
	runH := apirest.NewRunHandler(db, cfg.Game, resolver, logger)
	adminH := apirest.NewAdminHandler(sweeper, sched, events, logger)

	api := r.Group("/api")
	{
		api.GET("/locations/:id/quests", boardH.List)

		agentsG := api.Group("/agents")
		agentsG.GET("/:id", agentH.Get)
		agentsG.POST("/:id/take", agentH.Take)

		api.GET("/runs/:id", runH.Get)

		adminG := api.Group("/admin")
		adminG.Use(apirest.AdminAuth(cfg.Server.AdminKey))
		adminG.POST("/sweep", adminH.Sweep)
		adminG.GET("/scheduler", adminH.ListSchedulerTasks)
	}

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	logger.Info("Server listening", zap.String("addr", addr))
	if err := r.Run(addr); err != nil {
		log.Fatalf("server: %v", err)
	}
}
