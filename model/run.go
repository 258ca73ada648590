package model

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// Outcome classifies how a quest run ended.
type Outcome = string

const (
	OutcomeSuccess Outcome = "success"
	OutcomePartial Outcome = "partial"
	OutcomeFailure Outcome = "failure"
	OutcomeTimeout Outcome = "timeout"
)

// QuestRun is one attempt at a quest by one or more agents. ResolvedAt
// transitions nil → set exactly once; the run is terminal after that.
type QuestRun struct {
	ID             string                `gorm:"primaryKey;size:64" json:"id"`
	QuestID        string                `gorm:"size:64;index;not null" json:"quest_id"`
	Outcome        Outcome               `gorm:"size:16;not null" json:"outcome"`
	EffectiveSkill float64               `json:"effective_skill"`
	RandomFactor   int                   `json:"random_factor"`
	SuccessLevel   float64               `json:"success_level"`
	StartedAt      time.Time             `gorm:"index;not null" json:"started_at"`
	ResolvedAt     *time.Time            `gorm:"index" json:"resolved_at"`
	Participants   []QuestRunParticipant `gorm:"foreignKey:RunID" json:"participants"`
}

// Resolved reports whether the run is terminal.
func (r *QuestRun) Resolved() bool {
	return r.ResolvedAt != nil
}

// QuestRunParticipant is one agent's membership in a run, with the skills it
// chose and its share of the computed result.
type QuestRunParticipant struct {
	ID             int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	RunID          string         `gorm:"size:64;index;not null" json:"run_id"`
	AgentID        string         `gorm:"size:64;index;not null" json:"agent_id"`
	Skills         datatypes.JSON `json:"skills"` // []string, exactly 3 distinct
	Action         string         `gorm:"size:512;not null" json:"action"`
	EffectiveSkill float64        `json:"effective_skill"`
	XPGained       int64          `json:"xp_gained"`
	GoldGained     int64          `json:"gold_gained"`
	GoldLost       int64          `json:"gold_lost"`
	ItemGained     *string        `gorm:"size:64" json:"item_gained"`
}

// ChosenSkills decodes the participant's skill selection.
func (p *QuestRunParticipant) ChosenSkills() ([]string, error) {
	var skills []string
	if len(p.Skills) == 0 {
		return nil, nil
	}
	if err := json.Unmarshal(p.Skills, &skills); err != nil {
		return nil, err
	}
	return skills, nil
}

// SetChosenSkills encodes the participant's skill selection.
func (p *QuestRunParticipant) SetChosenSkills(skills []string) error {
	raw, err := json.Marshal(skills)
	if err != nil {
		return err
	}
	p.Skills = datatypes.JSON(raw)
	return nil
}
