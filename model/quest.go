package model

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// QuestStatus is the lifecycle state of a quest definition.
type QuestStatus = string

const (
	QuestStatusActive   QuestStatus = "active"
	QuestStatusArchived QuestStatus = "archived"
)

// RewardTier is the xp/gold payout for one outcome bracket.
type RewardTier struct {
	XP   int64 `json:"xp"`
	Gold int64 `json:"gold"`
}

// RewardTable holds the success and partial payouts. Failure always pays zero.
type RewardTable struct {
	Success RewardTier `json:"success"`
	Partial RewardTier `json:"partial"`
}

// Quest is an immutable-per-cycle activity definition. Multiplier and reward
// tables are JSON bags decoded through the typed accessors.
type Quest struct {
	ID                string         `gorm:"primaryKey;size:64" json:"id"`
	Name              string         `gorm:"size:128;not null" json:"name"`
	LocationID        string         `gorm:"size:64;index" json:"location_id"`
	DestinationID     string         `gorm:"size:64;not null" json:"destination_id"`
	FailDestinationID *string        `gorm:"size:64" json:"fail_destination_id"`
	PartySize         int            `gorm:"not null" json:"party_size"` // 1-5
	ChallengeRating   float64        `gorm:"not null" json:"challenge_rating"`
	Multipliers       datatypes.JSON `json:"multipliers"` // map[string]float64
	Rewards           datatypes.JSON `json:"rewards"`     // RewardTable
	Status            QuestStatus    `gorm:"size:16;index;default:active" json:"status"`
	CreatedAt         time.Time      `gorm:"autoCreateTime" json:"created_at"`
}

// MultiplierTable decodes the per-skill multiplier bag. Skills absent from
// the bag multiply at 1.0.
func (q *Quest) MultiplierTable() (map[string]float64, error) {
	out := make(map[string]float64)
	if len(q.Multipliers) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(q.Multipliers, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SetMultiplierTable encodes the multiplier bag.
func (q *Quest) SetMultiplierTable(m map[string]float64) error {
	raw, err := json.Marshal(m)
	if err != nil {
		return err
	}
	q.Multipliers = datatypes.JSON(raw)
	return nil
}

// RewardsTable decodes the reward table.
func (q *Quest) RewardsTable() (RewardTable, error) {
	var t RewardTable
	if len(q.Rewards) == 0 {
		return t, nil
	}
	err := json.Unmarshal(q.Rewards, &t)
	return t, err
}

// SetRewardsTable encodes the reward table.
func (q *Quest) SetRewardsTable(t RewardTable) error {
	raw, err := json.Marshal(t)
	if err != nil {
		return err
	}
	q.Rewards = datatypes.JSON(raw)
	return nil
}
