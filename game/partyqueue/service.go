package partyqueue

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lowfell/questworld/server/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Service persists queue transitions. Every mutation runs inside a
// serializable transaction so concurrent joins and ticks cannot interleave a
// read-then-write on the same queue row.
type Service struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewService creates a queue Service.
func NewService(db *gorm.DB, logger *zap.Logger) *Service {
	return &Service{db: db, logger: logger}
}

var serializable = &sql.TxOptions{Isolation: sql.LevelSerializable}

// Join adds a participant to the quest's queue, creating the queue row on
// first use. Returns the saved queue and a formed event when the join filled
// the party.
func (s *Service) Join(ctx context.Context, quest *model.Quest, timeout time.Duration, p model.QueueParticipant) (*model.PartyQueue, *Event, error) {
	var queue model.PartyQueue
	var event *Event

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where(model.PartyQueue{QuestID: quest.ID}).
			Attrs(model.PartyQueue{Status: model.QueueStatusWaiting}).
			FirstOrCreate(&queue).Error; err != nil {
			return err
		}
		ev, err := Join(&queue, quest.PartySize, timeout, p)
		if err != nil {
			return err
		}
		event = ev
		return tx.Save(&queue).Error
	}, serializable)
	if err != nil {
		return nil, nil, err
	}

	if event != nil {
		s.logger.Info("party formed",
			zap.String("quest_id", quest.ID),
			zap.Strings("agents", event.AgentIDs))
	}
	return &queue, event, nil
}

// TickQueue applies the deadline check to the quest's queue.
func (s *Service) TickQueue(ctx context.Context, quest *model.Quest, now time.Time) (*model.PartyQueue, *Event, error) {
	var queue model.PartyQueue
	var event *Event

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("quest_id = ?", quest.ID).First(&queue).Error; err != nil {
			return err
		}
		ev, err := Tick(&queue, now, quest.PartySize)
		if err != nil {
			return err
		}
		if ev == nil {
			return nil
		}
		event = ev
		return tx.Save(&queue).Error
	}, serializable)
	if err != nil {
		return nil, nil, err
	}
	return &queue, event, nil
}

// ResetQueue returns a terminal queue to empty waiting for the next attempt.
func (s *Service) ResetQueue(ctx context.Context, questID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var queue model.PartyQueue
		if err := tx.Where("quest_id = ?", questID).First(&queue).Error; err != nil {
			return err
		}
		Reset(&queue)
		return tx.Save(&queue).Error
	}, serializable)
}

// ExpiredWaiting returns waiting queues whose deadline has passed.
func (s *Service) ExpiredWaiting(ctx context.Context, now time.Time) ([]model.PartyQueue, error) {
	var queues []model.PartyQueue
	err := s.db.WithContext(ctx).
		Where("status = ? AND expires_at IS NOT NULL AND expires_at < ?", model.QueueStatusWaiting, now).
		Find(&queues).Error
	return queues, err
}

// HasWaiters reports whether the quest's queue currently holds participants.
func (s *Service) HasWaiters(ctx context.Context, questID string) (bool, error) {
	var queue model.PartyQueue
	err := s.db.WithContext(ctx).Where("quest_id = ?", questID).First(&queue).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	list, err := queue.ParticipantList()
	if err != nil {
		return false, err
	}
	return len(list) > 0, nil
}
