package scheduler

import (
	"context"
	"time"

	"github.com/lowfell/questworld/server/config"
	"github.com/lowfell/questworld/server/game/clock"
	"github.com/lowfell/questworld/server/game/generate"
	"github.com/lowfell/questworld/server/game/partyqueue"
	"github.com/lowfell/questworld/server/game/quest"
	"github.com/lowfell/questworld/server/game/run"
	"github.com/lowfell/questworld/server/model"
	"github.com/lowfell/questworld/server/webhook"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SweepTaskName is the ticker name the world sweep registers under.
const SweepTaskName = "world-sweep"

// Notifier delivers best-effort webhook events.
type Notifier interface {
	Notify(ctx context.Context, url string, payload interface{})
}

// Sweeper advances the world: it resolves overdue runs, expires stale party
// queues and regenerates the quest pool. Every pass is idempotent and
// isolates per-item failures, so overlapping or repeated sweeps are safe.
type Sweeper struct {
	db        *gorm.DB
	cfg       config.GameConfig
	resolver  *run.Resolver
	queues    *partyqueue.Service
	quests    *quest.Service
	generator *generate.Service
	notifier  Notifier
	logger    *zap.Logger
	nowFunc   func() time.Time
}

// NewSweeper creates a Sweeper.
func NewSweeper(db *gorm.DB, cfg config.GameConfig, resolver *run.Resolver, queues *partyqueue.Service, quests *quest.Service, generator *generate.Service, notifier Notifier, logger *zap.Logger) *Sweeper {
	return &Sweeper{
		db:        db,
		cfg:       cfg,
		resolver:  resolver,
		queues:    queues,
		quests:    quests,
		generator: generator,
		notifier:  notifier,
		logger:    logger,
		nowFunc:   time.Now,
	}
}

// SetNowFunc overrides the clock, for tests.
func (s *Sweeper) SetNowFunc(f func() time.Time) { s.nowFunc = f }

// Register schedules the sweep on its configured interval.
func (s *Sweeper) Register(sched *Scheduler) {
	sched.AddTicker(SweepTaskName, s.cfg.SweepInterval, s.Sweep)
}

// Sweep runs the three passes once.
func (s *Sweeper) Sweep(ctx context.Context) {
	now := s.nowFunc()
	s.resolveDueRuns(ctx, now)
	s.expireQueues(ctx, now)
	if err := s.generator.Regenerate(ctx, now); err != nil {
		s.logger.Error("quest pool regeneration failed", zap.Error(err))
	}
}

// resolveDueRuns finishes every pending run whose cooldown has elapsed.
func (s *Sweeper) resolveDueRuns(ctx context.Context, now time.Time) {
	cutoff := now.Add(-clock.ScaleDuration(s.cfg.QuestCooldown, s.cfg.TimeScale))
	var due []model.QuestRun
	err := s.db.WithContext(ctx).
		Where("resolved_at IS NULL AND started_at <= ?", cutoff).
		Find(&due).Error
	if err != nil {
		s.logger.Error("due run query failed", zap.Error(err))
		return
	}
	for _, r := range due {
		if _, err := s.resolver.Resolve(ctx, r.ID); err != nil {
			s.logger.Error("sweep resolution failed",
				zap.String("run_id", r.ID), zap.Error(err))
		}
	}
}

// expireQueues ticks every waiting queue past its deadline. A queue that
// filled up before anyone ticked it still forms; everything else times out,
// its members are unlocked and told to pick a new action.
func (s *Sweeper) expireQueues(ctx context.Context, now time.Time) {
	expired, err := s.queues.ExpiredWaiting(ctx, now)
	if err != nil {
		s.logger.Error("expired queue query failed", zap.Error(err))
		return
	}
	for i := range expired {
		s.expireQueue(ctx, &expired[i], now)
	}
}

func (s *Sweeper) expireQueue(ctx context.Context, q *model.PartyQueue, now time.Time) {
	var qst model.Quest
	if err := s.db.WithContext(ctx).First(&qst, "id = ?", q.QuestID).Error; err != nil {
		s.logger.Error("quest lookup for expired queue failed",
			zap.String("quest_id", q.QuestID), zap.Error(err))
		return
	}
	members, err := q.ParticipantList()
	if err != nil {
		s.logger.Error("queue participants decode failed",
			zap.String("quest_id", q.QuestID), zap.Error(err))
		return
	}

	_, event, err := s.queues.TickQueue(ctx, &qst, now)
	if err != nil {
		s.logger.Error("queue tick failed",
			zap.String("quest_id", q.QuestID), zap.Error(err))
		return
	}
	if event == nil {
		return
	}

	switch event.Type {
	case partyqueue.EventFormed:
		if _, err := s.quests.LaunchParty(ctx, &qst, members, now); err != nil {
			s.logger.Error("launch of formed party failed",
				zap.String("quest_id", qst.ID), zap.Error(err))
		}
	case partyqueue.EventTimedOut:
		s.timeOutParty(ctx, &qst, members, event.AgentIDs, now)
	}
}

// timeOutParty releases every queued agent and clears the queue so the quest
// can be attempted again.
func (s *Sweeper) timeOutParty(ctx context.Context, qst *model.Quest, members []model.QueueParticipant, agentIDs []string, now time.Time) {
	if len(agentIDs) > 0 {
		err := s.db.WithContext(ctx).Model(&model.Agent{}).
			Where("id IN ?", agentIDs).
			Update("cooldown_until", nil).Error
		if err != nil {
			s.logger.Error("cooldown release after timeout failed",
				zap.String("quest_id", qst.ID), zap.Error(err))
		}
	}

	for _, m := range members {
		var agent model.Agent
		if err := s.db.WithContext(ctx).First(&agent, "id = ?", m.AgentID).Error; err != nil {
			continue
		}
		if agent.WebhookURL == "" {
			continue
		}
		payload := webhook.PartyTimeout{
			Type:        webhook.TypePartyTimeout,
			Agent:       agent.Name,
			QuestName:   qst.Name,
			WaitedHours: now.Sub(m.JoinedAt).Hours(),
			Refunded:    true,
			Message:     webhook.PartyTimeoutMessage,
		}
		go s.notifier.Notify(context.WithoutCancel(ctx), agent.WebhookURL, payload)
	}

	if err := s.queues.ResetQueue(ctx, qst.ID); err != nil {
		s.logger.Warn("queue reset after timeout failed",
			zap.String("quest_id", qst.ID), zap.Error(err))
	}

	s.logger.Info("party formation timed out",
		zap.String("quest_id", qst.ID),
		zap.Int("members", len(members)))
}
