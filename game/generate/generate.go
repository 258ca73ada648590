// Package generate regenerates the per-location quest pool once per cycle.
//
// Generation is deterministic: every quest of a cycle is derived from a seed
// built out of the cycle start, the location and the batch index, and quest
// ids embed the same triple. Re-running generation for the same cycle, from
// any number of concurrent processes, inserts the same rows and conflicts
// away the duplicates.
package generate

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/lowfell/questworld/server/config"
	"github.com/lowfell/questworld/server/game/clock"
	"github.com/lowfell/questworld/server/game/partyqueue"
	"github.com/lowfell/questworld/server/game/rng"
	"github.com/lowfell/questworld/server/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MaxPartySize bounds generated party quests.
const MaxPartySize = 5

var questVerbs = []string{
	"Escort", "Hunt", "Scout", "Recover", "Defend", "Explore", "Infiltrate", "Deliver",
}

var questObjects = []string{
	"the Caravan", "the Old Ruins", "the Northern Pass", "the Lost Reliquary",
	"the Granary", "the Sunken Crypt", "the Border Watchtower", "the Smugglers' Cache",
	"the Silver Mine", "the Abandoned Chapel",
}

var multiplierSteps = []float64{0.5, 0.75, 1.0, 1.0, 1.25, 1.5, 2.0}

// Service regenerates the quest pool.
type Service struct {
	db     *gorm.DB
	cfg    config.GameConfig
	queues *partyqueue.Service
	logger *zap.Logger
}

// NewService creates a generation Service.
func NewService(db *gorm.DB, cfg config.GameConfig, queues *partyqueue.Service, logger *zap.Logger) *Service {
	return &Service{db: db, cfg: cfg, queues: queues, logger: logger}
}

// CycleStart floors now onto the scaled cycle grid.
func (s *Service) CycleStart(now time.Time) time.Time {
	cycleLen := clock.ScaleDuration(s.cfg.CycleLength, s.cfg.TimeScale)
	ms := now.UnixMilli() / cycleLen.Milliseconds() * cycleLen.Milliseconds()
	return time.UnixMilli(ms).UTC()
}

// Regenerate archives stale quests and fills every location's pool for the
// cycle containing now. Idempotent within a cycle.
func (s *Service) Regenerate(ctx context.Context, now time.Time) error {
	cycleStart := s.CycleStart(now)

	if err := s.archiveStale(ctx, cycleStart); err != nil {
		return err
	}

	var locations []model.Location
	if err := s.db.WithContext(ctx).Order("id").Find(&locations).Error; err != nil {
		return err
	}

	created := 0
	for _, loc := range locations {
		n := s.batchSize(loc.Population)
		for i := 0; i < n; i++ {
			quest := s.rollQuest(cycleStart, locations, loc, i)
			res := s.db.WithContext(ctx).
				Clauses(clause.OnConflict{DoNothing: true}).
				Create(quest)
			if res.Error != nil {
				// One bad insert must not starve the other locations.
				s.logger.Error("quest generation insert failed",
					zap.String("quest_id", quest.ID), zap.Error(res.Error))
				continue
			}
			created += int(res.RowsAffected)
		}
	}

	s.logger.Info("quest pool regenerated",
		zap.Time("cycle_start", cycleStart),
		zap.Int("locations", len(locations)),
		zap.Int("quests_created", created))
	return nil
}

// archiveStale retires quests from previous cycles: solo quests
// unconditionally, party quests only when nobody is still queued for them.
func (s *Service) archiveStale(ctx context.Context, cycleStart time.Time) error {
	err := s.db.WithContext(ctx).Model(&model.Quest{}).
		Where("status = ? AND party_size = 1 AND created_at < ?", model.QuestStatusActive, cycleStart).
		Update("status", model.QuestStatusArchived).Error
	if err != nil {
		return err
	}

	var stale []model.Quest
	err = s.db.WithContext(ctx).
		Where("status = ? AND party_size > 1 AND created_at < ?", model.QuestStatusActive, cycleStart).
		Find(&stale).Error
	if err != nil {
		return err
	}
	for _, q := range stale {
		waiting, err := s.queues.HasWaiters(ctx, q.ID)
		if err != nil {
			s.logger.Error("queue check failed during archive",
				zap.String("quest_id", q.ID), zap.Error(err))
			continue
		}
		if waiting {
			continue
		}
		err = s.db.WithContext(ctx).Model(&model.Quest{}).
			Where("id = ?", q.ID).
			Update("status", model.QuestStatusArchived).Error
		if err != nil {
			s.logger.Error("quest archive failed",
				zap.String("quest_id", q.ID), zap.Error(err))
		}
	}
	return nil
}

func (s *Service) batchSize(population int) int {
	n := 0
	if s.cfg.PopulationPerQuest > 0 {
		n = population / s.cfg.PopulationPerQuest
	}
	if n < s.cfg.MinQuestsPerLocation {
		n = s.cfg.MinQuestsPerLocation
	}
	return n
}

// rollQuest derives one quest from its cycle seed. The draw order is part of
// the determinism contract and must not be reordered.
func (s *Service) rollQuest(cycleStart time.Time, locations []model.Location, origin model.Location, index int) *model.Quest {
	startMs := cycleStart.UnixMilli()
	draw := rng.New(rng.CycleSeed(startMs, origin.ID, index))

	// Index zero is always solo so every location offers a party-free option.
	partySize := 1
	if index > 0 {
		partySize = draw.Int(1, MaxPartySize)
	}
	cr := math.Round(draw.Float(10, 150)*10) / 10

	multipliers := make(map[string]float64, len(model.SkillNames))
	for _, skill := range model.SkillNames {
		multipliers[skill] = rng.Pick(draw, multiplierSteps)
	}

	rewards := model.RewardTable{
		Success: model.RewardTier{
			XP:   int64(cr * draw.Float(3, 5)),
			Gold: int64(cr * draw.Float(1, 3)),
		},
	}
	rewards.Partial = model.RewardTier{
		XP:   rewards.Success.XP / 2,
		Gold: rewards.Success.Gold / 2,
	}

	destination := origin.ID
	if len(locations) > 1 {
		for {
			destination = rng.Pick(draw, locations).ID
			if destination != origin.ID {
				break
			}
		}
	}
	var failDestination *string
	if draw.Next() < 0.5 {
		id := rng.Pick(draw, locations).ID
		failDestination = &id
	}

	name := fmt.Sprintf("%s %s", rng.Pick(draw, questVerbs), rng.Pick(draw, questObjects))

	q := &model.Quest{
		ID:                fmt.Sprintf("q-%d-%s-%d", startMs, origin.ID, index),
		Name:              name,
		LocationID:        origin.ID,
		DestinationID:     destination,
		FailDestinationID: failDestination,
		PartySize:         partySize,
		ChallengeRating:   cr,
		Status:            model.QuestStatusActive,
		CreatedAt:         cycleStart,
	}
	if err := q.SetMultiplierTable(multipliers); err != nil {
		s.logger.Error("multiplier table encode failed", zap.String("quest_id", q.ID), zap.Error(err))
	}
	if err := q.SetRewardsTable(rewards); err != nil {
		s.logger.Error("reward table encode failed", zap.String("quest_id", q.ID), zap.Error(err))
	}
	return q
}
