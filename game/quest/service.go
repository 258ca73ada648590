package quest

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lowfell/questworld/server/config"
	"github.com/lowfell/questworld/server/game/clock"
	"github.com/lowfell/questworld/server/game/engineerr"
	"github.com/lowfell/questworld/server/game/partyqueue"
	"github.com/lowfell/questworld/server/game/rng"
	"github.com/lowfell/questworld/server/model"
	"github.com/lowfell/questworld/server/webhook"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Notifier delivers best-effort webhook events.
type Notifier interface {
	Notify(ctx context.Context, url string, payload interface{})
}

// Service handles quest taking: validation, party formation, and creating
// the pending run that the resolver later applies.
type Service struct {
	db       *gorm.DB
	cfg      config.GameConfig
	queues   *partyqueue.Service
	notifier Notifier
	logger   *zap.Logger
	nowFunc  func() time.Time
}

// NewService creates a quest Service.
func NewService(db *gorm.DB, cfg config.GameConfig, queues *partyqueue.Service, notifier Notifier, logger *zap.Logger) *Service {
	return &Service{
		db:       db,
		cfg:      cfg,
		queues:   queues,
		notifier: notifier,
		logger:   logger,
		nowFunc:  time.Now,
	}
}

// SetNowFunc overrides the clock, for tests.
func (s *Service) SetNowFunc(f func() time.Time) { s.nowFunc = f }

// TakeResult reports what happened to a take request: a started run (solo
// or a party that just formed), or the queue the agent is now waiting in.
type TakeResult struct {
	Run   *model.QuestRun
	Queue *model.PartyQueue
}

// Take validates and executes a quest-taking request. Solo quests start a
// run immediately; party quests go through the formation queue, starting the
// run as part of the join that fills the party.
func (s *Service) Take(ctx context.Context, agentID, questID string, skills []string, action string) (*TakeResult, error) {
	if err := partyqueue.ValidateSkills(skills); err != nil {
		return nil, err
	}
	if strings.TrimSpace(action) == "" {
		return nil, engineerr.Validation(engineerr.CodeEmptyAction, "action text is required")
	}
	now := s.nowFunc()

	var agent model.Agent
	if err := s.db.WithContext(ctx).First(&agent, "id = ?", agentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, engineerr.Validation(engineerr.CodeNotFound, "agent %s not found", agentID)
		}
		return nil, err
	}
	if agent.CooldownUntil != nil && now.Before(*agent.CooldownUntil) {
		return nil, engineerr.Validation(engineerr.CodeAgentOnCooldown,
			"agent %s is busy until %s", agentID, agent.CooldownUntil.Format(time.RFC3339))
	}

	var quest model.Quest
	if err := s.db.WithContext(ctx).First(&quest, "id = ?", questID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, engineerr.Validation(engineerr.CodeNotFound, "quest %s not found", questID)
		}
		return nil, err
	}
	if quest.Status != model.QuestStatusActive {
		return nil, engineerr.Validation(engineerr.CodeQuestNotActive, "quest %s is %s", questID, quest.Status)
	}
	if agent.LocationID != quest.LocationID {
		return nil, engineerr.Validation(engineerr.CodeWrongLocation,
			"quest %s is offered at %s, agent is at %s", questID, quest.LocationID, agent.LocationID)
	}

	if quest.PartySize <= 1 {
		run, err := s.StartRun(ctx, &quest, []model.QueueParticipant{{
			AgentID:  agentID,
			JoinedAt: now,
			Skills:   skills,
			Action:   action,
		}}, now)
		if err != nil {
			return nil, err
		}
		return &TakeResult{Run: run}, nil
	}

	timeout := clock.ScaleDuration(s.cfg.PartyTimeout, s.cfg.TimeScale)
	queue, event, err := s.queues.Join(ctx, &quest, timeout, model.QueueParticipant{
		AgentID:  agentID,
		JoinedAt: now,
		Skills:   skills,
		Action:   action,
	})
	if err != nil {
		return nil, err
	}

	// Queued agents are locked until the queue resolves one way or the other.
	if err := s.db.WithContext(ctx).Model(&model.Agent{}).Where("id = ?", agentID).
		Update("cooldown_until", queue.ExpiresAt).Error; err != nil {
		return nil, err
	}

	if event == nil {
		return &TakeResult{Queue: queue}, nil
	}

	members, err := queue.ParticipantList()
	if err != nil {
		return nil, err
	}
	run, err := s.LaunchParty(ctx, &quest, members, now)
	if err != nil {
		return nil, err
	}
	return &TakeResult{Run: run, Queue: queue}, nil
}

// LaunchParty starts the run for a formed party, clears the formation queue
// and notifies every member. Also used by the sweep when it finds a full
// queue past its deadline.
func (s *Service) LaunchParty(ctx context.Context, quest *model.Quest, members []model.QueueParticipant, startedAt time.Time) (*model.QuestRun, error) {
	run, err := s.StartRun(ctx, quest, members, startedAt)
	if err != nil {
		return nil, err
	}
	if err := s.queues.ResetQueue(ctx, quest.ID); err != nil {
		s.logger.Warn("queue reset after formation failed",
			zap.String("quest_id", quest.ID), zap.Error(err))
	}
	s.notifyPartyFormed(ctx, quest, members, run.StartedAt)
	return run, nil
}

// StartRun computes and persists a pending run for the given participants.
// The outcome is fixed at start time from the run's namespaced seed; the
// resolver applies it after the cooldown elapses.
func (s *Service) StartRun(ctx context.Context, quest *model.Quest, members []model.QueueParticipant, startedAt time.Time) (*model.QuestRun, error) {
	inputs := make([]ParticipantInput, len(members))
	for i, m := range members {
		var agent model.Agent
		if err := s.db.WithContext(ctx).First(&agent, "id = ?", m.AgentID).Error; err != nil {
			return nil, engineerr.Fatal(engineerr.CodeMissingReference,
				"participant %s vanished before run start: %v", m.AgentID, err)
		}
		base, err := agent.SkillValues()
		if err != nil {
			return nil, err
		}
		bonuses, err := s.equipmentBonuses(ctx, &agent)
		if err != nil {
			return nil, err
		}
		inputs[i] = ParticipantInput{
			AgentID:    m.AgentID,
			Skills:     m.Skills,
			Action:     m.Action,
			BaseSkills: base,
			Bonuses:    bonuses,
			Gold:       agent.Gold,
		}
	}

	seed := rng.RunSeed(members[0].AgentID, quest.ID, startedAt)
	res, err := Resolve(quest, inputs, seed, s.cfg.GoldLossRate)
	if err != nil {
		return nil, err
	}

	run := &model.QuestRun{
		ID:             uuid.NewString(),
		QuestID:        quest.ID,
		Outcome:        res.Outcome,
		EffectiveSkill: res.EffectiveSkill,
		RandomFactor:   res.RandomFactor,
		SuccessLevel:   res.SuccessLevel,
		StartedAt:      startedAt,
	}
	cooldownUntil := startedAt.Add(clock.ScaleDuration(s.cfg.QuestCooldown, s.cfg.TimeScale))

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(run).Error; err != nil {
			return err
		}
		for i, share := range res.Shares {
			p := &model.QuestRunParticipant{
				RunID:          run.ID,
				AgentID:        share.AgentID,
				Action:         inputs[i].Action,
				EffectiveSkill: share.EffectiveSkill,
				XPGained:       share.XPGained,
				GoldGained:     share.GoldGained,
				GoldLost:       share.GoldLost,
			}
			if err := p.SetChosenSkills(inputs[i].Skills); err != nil {
				return err
			}
			if err := tx.Create(p).Error; err != nil {
				return err
			}
			if err := tx.Model(&model.Agent{}).Where("id = ?", share.AgentID).
				Update("cooldown_until", cooldownUntil).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("quest run started",
		zap.String("run_id", run.ID),
		zap.String("quest_id", quest.ID),
		zap.String("outcome", run.Outcome),
		zap.Int("party_size", len(members)))
	return run, nil
}

func (s *Service) equipmentBonuses(ctx context.Context, agent *model.Agent) (map[string]int, error) {
	ids, err := agent.EquippedItemIDs()
	if err != nil {
		return nil, err
	}
	total := make(map[string]int)
	if len(ids) == 0 {
		return total, nil
	}
	var items []model.Item
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&items).Error; err != nil {
		return nil, err
	}
	for i := range items {
		bonuses, err := items[i].Bonuses()
		if err != nil {
			return nil, err
		}
		for skill, v := range bonuses {
			total[skill] += v
		}
	}
	return total, nil
}

func (s *Service) notifyPartyFormed(ctx context.Context, quest *model.Quest, members []model.QueueParticipant, departure time.Time) {
	names := make([]string, 0, len(members))
	webhooks := make(map[string]string, len(members))
	for _, m := range members {
		var agent model.Agent
		if err := s.db.WithContext(ctx).First(&agent, "id = ?", m.AgentID).Error; err != nil {
			continue
		}
		names = append(names, agent.Name)
		if agent.WebhookURL != "" {
			webhooks[agent.Name] = agent.WebhookURL
		}
	}
	for name, url := range webhooks {
		payload := webhook.PartyFormed{
			Type:          webhook.TypePartyFormed,
			Agent:         name,
			QuestName:     quest.Name,
			PartyMembers:  names,
			DepartureTime: departure,
		}
		go s.notifier.Notify(context.WithoutCancel(ctx), url, payload)
	}
}
