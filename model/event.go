package model

import (
	"time"

	"gorm.io/datatypes"
)

// WorldEvent records one engine action for the audit trail: a quest taken,
// a queue joined, a manual sweep. Written asynchronously in batches.
type WorldEvent struct {
	ID        int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	TraceID   string         `gorm:"index:idx_event_trace;size:36" json:"trace_id"`
	Type      string         `gorm:"size:32;index:idx_event_type;not null" json:"type"`
	AgentID   string         `gorm:"size:64;index:idx_event_agent" json:"agent_id"`
	QuestID   string         `gorm:"size:64" json:"quest_id"`
	RunID     string         `gorm:"size:64" json:"run_id"`
	Detail    datatypes.JSON `json:"detail"`
	Error     string         `gorm:"type:text" json:"error"`
	IP        string         `gorm:"size:45" json:"ip"`
	CreatedAt time.Time      `gorm:"index:idx_event_created;autoCreateTime:milli" json:"created_at"`
}
