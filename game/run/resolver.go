// Package run applies resolved quest outcomes to participants exactly once.
//
// Multiple triggers can observe the same overdue run at the same time: an
// operator polling their agent, another participant polling theirs, and the
// scheduled sweep. The resolver therefore claims a run with a conditional
// update that stamps the resolution timestamp only while it is still unset;
// losers of that race re-read and return the winner's result instead of
// re-applying effects.
package run

import (
	"context"
	"errors"
	"time"

	"github.com/lowfell/questworld/server/config"
	"github.com/lowfell/questworld/server/game/effects"
	"github.com/lowfell/questworld/server/game/engineerr"
	"github.com/lowfell/questworld/server/game/formula"
	"github.com/lowfell/questworld/server/game/loot"
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

// Resolver performs the exactly-once resolution protocol.
type Resolver struct {
	db       *gorm.DB
	cfg      config.GameConfig
	notifier Notifier
	logger   *zap.Logger
	nowFunc  func() time.Time
}

// NewResolver creates a Resolver.
func NewResolver(db *gorm.DB, cfg config.GameConfig, notifier Notifier, logger *zap.Logger) *Resolver {
	return &Resolver{db: db, cfg: cfg, notifier: notifier, logger: logger, nowFunc: time.Now}
}

// SetNowFunc overrides the clock, for tests.
func (r *Resolver) SetNowFunc(f func() time.Time) { r.nowFunc = f }

// Resolve finishes a run if it is still pending. Safe for any number of
// concurrent callers: exactly one applies effects, everyone gets the same
// resolved run back.
func (r *Resolver) Resolve(ctx context.Context, runID string) (*model.QuestRun, error) {
	run, err := r.load(ctx, runID)
	if err != nil {
		return nil, err
	}
	if run.Resolved() {
		// Duplicate caller; nothing left to do.
		return run, nil
	}

	now := r.nowFunc()
	res := r.db.WithContext(ctx).Model(&model.QuestRun{}).
		Where("id = ? AND resolved_at IS NULL", runID).
		Update("resolved_at", now)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		// Another caller won the claim; return its persisted result.
		return r.load(ctx, runID)
	}
	run.ResolvedAt = &now

	if err := r.applyEffects(ctx, run); err != nil {
		// The stamp stands: re-running a logic bug cannot succeed, and an
		// unstamped run would re-fail on every future sweep.
		r.logger.Error("run resolution effects failed",
			zap.String("run_id", runID), zap.Error(err))
		return run, err
	}

	r.logger.Info("quest run resolved",
		zap.String("run_id", runID),
		zap.String("outcome", run.Outcome),
		zap.Int("participants", len(run.Participants)))
	return run, nil
}

func (r *Resolver) load(ctx context.Context, runID string) (*model.QuestRun, error) {
	var run model.QuestRun
	err := r.db.WithContext(ctx).Preload("Participants").First(&run, "id = ?", runID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, engineerr.Fatal(engineerr.CodeMissingReference, "run %s not found", runID)
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// applyEffects runs only on the claim winner. Participant failures are
// isolated: one vanished agent does not keep the rest of the party from
// resolving.
func (r *Resolver) applyEffects(ctx context.Context, run *model.QuestRun) error {
	var quest model.Quest
	if err := r.db.WithContext(ctx).First(&quest, "id = ?", run.QuestID).Error; err != nil {
		return engineerr.Fatal(engineerr.CodeMissingReference,
			"quest %s for run %s: %v", run.QuestID, run.ID, err)
	}

	dest := quest.DestinationID
	if run.Outcome == model.OutcomeFailure && quest.FailDestinationID != nil {
		dest = *quest.FailDestinationID
	}
	var loc model.Location
	if err := r.db.WithContext(ctx).First(&loc, "id = ?", dest).Error; err != nil {
		return engineerr.Fatal(engineerr.CodeMissingReference,
			"destination %s for run %s: %v", dest, run.ID, err)
	}

	dropsEnabled := run.Outcome == model.OutcomeSuccess || run.Outcome == model.OutcomePartial
	var pools map[model.Rarity][]string
	if dropsEnabled {
		var err error
		if pools, err = r.itemPools(ctx); err != nil {
			return err
		}
	}

	multipliers, err := quest.MultiplierTable()
	if err != nil {
		return engineerr.Fatal(engineerr.CodeMissingReference,
			"quest %s multiplier table: %v", quest.ID, err)
	}

	for i := range run.Participants {
		p := &run.Participants[i]
		if err := r.applyParticipant(ctx, run, &quest, multipliers, p, dest, pools, dropsEnabled); err != nil {
			r.logger.Error("participant resolution failed",
				zap.String("run_id", run.ID),
				zap.String("agent_id", p.AgentID),
				zap.Error(err))
		}
	}
	return nil
}

func (r *Resolver) applyParticipant(ctx context.Context, run *model.QuestRun, quest *model.Quest, multipliers map[string]float64, p *model.QuestRunParticipant, dest string, pools map[model.Rarity][]string, dropsEnabled bool) error {
	var agent model.Agent
	if err := r.db.WithContext(ctx).First(&agent, "id = ?", p.AgentID).Error; err != nil {
		return engineerr.Fatal(engineerr.CodeMissingReference,
			"agent %s for run %s: %v", p.AgentID, run.ID, err)
	}

	cr := formula.PartyChallengeRating(quest.ChallengeRating, quest.PartySize)

	var itemsGained []string
	if dropsEnabled {
		draw := rng.New(rng.DropSeed(run.ID, p.AgentID))
		if rarity, ok := loot.RollRarity(cr, draw.Next(), draw.Next()); ok {
			if itemID := loot.PickItemID(pools, rarity, draw.Next()); itemID != "" {
				itemsGained = append(itemsGained, itemID)
				p.ItemGained = &itemID
				if err := r.db.WithContext(ctx).Model(p).Update("item_gained", itemID).Error; err != nil {
					return err
				}
			}
		}
	}

	skills, err := p.ChosenSkills()
	if err != nil {
		return err
	}
	revealed := make([]float64, len(skills))
	for i, s := range skills {
		m, ok := multipliers[s]
		if !ok {
			m = 1.0
		}
		revealed[i] = m
	}

	journey, err := agent.Journey()
	if err != nil {
		return err
	}

	result := effects.Apply(
		effects.AgentStats{
			Gold:        agent.Gold,
			XP:          agent.XP,
			Level:       agent.Level,
			SkillPoints: agent.UnspentSkillPoints,
			JourneyLog:  journey,
		},
		effects.QuestInfo{
			Name:            quest.Name,
			Outcome:         run.Outcome,
			ChallengeRating: cr,
			RandomFactor:    run.RandomFactor,
			SuccessLevel:    run.SuccessLevel,
			EffectiveSkill:  p.EffectiveSkill,
			SkillsUsed:      skills,
			Multipliers:     revealed,
			NewLocation:     dest,
		},
		effects.Deltas{
			XPGained:   p.XPGained,
			GoldGained: p.GoldGained,
			GoldLost:   p.GoldLost,
		},
		itemsGained,
	)

	agent.Gold = result.Stats.Gold
	agent.XP = result.Stats.XP
	agent.Level = result.Stats.Level
	agent.UnspentSkillPoints = result.Stats.SkillPoints
	agent.LocationID = dest
	agent.CooldownUntil = nil
	if err := agent.SetJourney(result.Stats.JourneyLog); err != nil {
		return err
	}
	if err := agent.SetLastQuestResult(&result.Summary); err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Save(&agent).Error; err != nil {
		return err
	}

	r.notifyCycleComplete(ctx, &agent, result.Summary)
	return nil
}

func (r *Resolver) itemPools(ctx context.Context) (map[model.Rarity][]string, error) {
	var items []model.Item
	if err := r.db.WithContext(ctx).Order("id").Find(&items).Error; err != nil {
		return nil, err
	}
	pools := make(map[model.Rarity][]string)
	for _, it := range items {
		pools[it.Rarity] = append(pools[it.Rarity], it.ID)
	}
	return pools, nil
}

func (r *Resolver) notifyCycleComplete(ctx context.Context, agent *model.Agent, summary model.QuestResultSummary) {
	if agent.WebhookURL == "" {
		return
	}
	var questsAvailable int64
	if err := r.db.WithContext(ctx).Model(&model.Quest{}).
		Where("location_id = ? AND status = ?", agent.LocationID, model.QuestStatusActive).
		Count(&questsAvailable).Error; err != nil {
		r.logger.Warn("quest count for webhook failed", zap.Error(err))
	}
	info := formula.LevelFromTotalXP(agent.XP)

	payload := webhook.CycleComplete{
		Type:        webhook.TypeCycleComplete,
		Agent:       agent.Name,
		Timestamp:   r.nowFunc(),
		QuestResult: summary,
		AgentState: webhook.AgentState{
			Level:              agent.Level,
			XP:                 info.XPInto,
			XPToNext:           info.XPToNext,
			Gold:               agent.Gold,
			Location:           agent.LocationID,
			UnspentSkillPoints: agent.UnspentSkillPoints,
		},
		AvailableActions: webhook.AvailableActions{
			QuestsAvailable:    int(questsAvailable),
			CanAllocateSkills:  agent.UnspentSkillPoints > 0,
			CanManageEquipment: true,
		},
	}
	go r.notifier.Notify(context.WithoutCancel(ctx), agent.WebhookURL, payload)
}
