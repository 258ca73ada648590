package model

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// Agent is a persistent-world inhabitant driven by an external caller.
// Skill values, equipment, the journey log and the last quest result are
// stored as JSON bags; use the typed accessors at the storage boundary
// instead of touching the raw columns.
type Agent struct {
	ID                 string         `gorm:"primaryKey;size:64" json:"id"`
	Name               string         `gorm:"size:64;not null" json:"name"`
	Skills             datatypes.JSON `json:"skills"`    // map[string]int, 15 named skills
	Equipment          datatypes.JSON `json:"equipment"` // []string item ids
	Gold               int64          `gorm:"default:0" json:"gold"`
	XP                 int64          `gorm:"default:0" json:"xp"`
	Level              int            `gorm:"default:1" json:"level"`
	UnspentSkillPoints int            `gorm:"default:0" json:"unspent_skill_points"`
	LocationID         string         `gorm:"size:64;index" json:"location_id"`
	CooldownUntil      *time.Time     `json:"cooldown_until"` // nil = free to act
	JourneyLog         datatypes.JSON `json:"journey_log"`    // []string, most recent appended
	LastQuestResult    datatypes.JSON `json:"last_quest_result"`
	WebhookURL         string         `gorm:"size:255" json:"webhook_url"`
	CreatedAt          time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

// SkillValues decodes the skill bag. Missing skills read as 0.
func (a *Agent) SkillValues() (map[string]int, error) {
	out := make(map[string]int, len(SkillNames))
	if len(a.Skills) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(a.Skills, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SetSkillValues encodes the skill bag.
func (a *Agent) SetSkillValues(skills map[string]int) error {
	raw, err := json.Marshal(skills)
	if err != nil {
		return err
	}
	a.Skills = datatypes.JSON(raw)
	return nil
}

// EquippedItemIDs decodes the equipped item list.
func (a *Agent) EquippedItemIDs() ([]string, error) {
	if len(a.Equipment) == 0 {
		return nil, nil
	}
	var ids []string
	if err := json.Unmarshal(a.Equipment, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// Journey decodes the journey log.
func (a *Agent) Journey() ([]string, error) {
	if len(a.JourneyLog) == 0 {
		return nil, nil
	}
	var lines []string
	if err := json.Unmarshal(a.JourneyLog, &lines); err != nil {
		return nil, err
	}
	return lines, nil
}

// SetJourney encodes the journey log.
func (a *Agent) SetJourney(lines []string) error {
	raw, err := json.Marshal(lines)
	if err != nil {
		return err
	}
	a.JourneyLog = datatypes.JSON(raw)
	return nil
}

// SetLastQuestResult encodes the last-result summary.
func (a *Agent) SetLastQuestResult(r *QuestResultSummary) error {
	raw, err := json.Marshal(r)
	if err != nil {
		return err
	}
	a.LastQuestResult = datatypes.JSON(raw)
	return nil
}

// LastResult decodes the last-result summary, or nil if none is stored.
func (a *Agent) LastResult() (*QuestResultSummary, error) {
	if len(a.LastQuestResult) == 0 {
		return nil, nil
	}
	var r QuestResultSummary
	if err := json.Unmarshal(a.LastQuestResult, &r); err != nil {
		return nil, err
	}
	return &r, nil
}
