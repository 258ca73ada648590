package model

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// QueueStatus is the party-formation state for a multi-agent quest.
type QueueStatus = string

const (
	QueueStatusWaiting  QueueStatus = "waiting"
	QueueStatusFormed   QueueStatus = "formed"
	QueueStatusTimedOut QueueStatus = "timed_out"
)

// QueueParticipant is one agent waiting in a party queue.
type QueueParticipant struct {
	AgentID  string    `json:"agent_id"`
	JoinedAt time.Time `json:"joined_at"`
	Skills   []string  `json:"skills"`
	Action   string    `json:"action"`
}

// PartyQueue is the waiting room for one party-sized quest. ExpiresAt is
// stamped by the first joiner and never extended.
type PartyQueue struct {
	ID           int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	QuestID      string         `gorm:"size:64;uniqueIndex;not null" json:"quest_id"`
	Status       QueueStatus    `gorm:"size:16;index;default:waiting" json:"status"`
	ExpiresAt    *time.Time     `gorm:"index" json:"expires_at"`
	Participants datatypes.JSON `json:"participants"` // []QueueParticipant
	CreatedAt    time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

// ParticipantList decodes the queued participants.
func (q *PartyQueue) ParticipantList() ([]QueueParticipant, error) {
	if len(q.Participants) == 0 {
		return nil, nil
	}
	var list []QueueParticipant
	if err := json.Unmarshal(q.Participants, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// SetParticipantList encodes the queued participants.
func (q *PartyQueue) SetParticipantList(list []QueueParticipant) error {
	raw, err := json.Marshal(list)
	if err != nil {
		return err
	}
	q.Participants = datatypes.JSON(raw)
	return nil
}
