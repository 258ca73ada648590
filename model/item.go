package model

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// Rarity is an item's drop-rarity tier.
type Rarity = string

const (
	RarityCommon    Rarity = "common"
	RarityUncommon  Rarity = "uncommon"
	RarityRare      Rarity = "rare"
	RarityEpic      Rarity = "epic"
	RarityLegendary Rarity = "legendary"
)

// RarityOrder lists rarities from common to legendary.
var RarityOrder = []Rarity{
	RarityCommon,
	RarityUncommon,
	RarityRare,
	RarityEpic,
	RarityLegendary,
}

// Item is a catalog entry agents can win from quest drops.
type Item struct {
	ID           string         `gorm:"primaryKey;size:64" json:"id"`
	Name         string         `gorm:"size:128;not null" json:"name"`
	Rarity       Rarity         `gorm:"size:16;index;not null" json:"rarity"`
	SkillBonuses datatypes.JSON `json:"skill_bonuses"` // map[string]int
	CreatedAt    time.Time      `gorm:"autoCreateTime" json:"created_at"`
}

// Bonuses decodes the skill-bonus bag.
func (i *Item) Bonuses() (map[string]int, error) {
	out := make(map[string]int)
	if len(i.SkillBonuses) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(i.SkillBonuses, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SetBonuses encodes the skill-bonus bag.
func (i *Item) SetBonuses(b map[string]int) error {
	raw, err := json.Marshal(b)
	if err != nil {
		return err
	}
	i.SkillBonuses = datatypes.JSON(raw)
	return nil
}

// Location is a place quests originate from and lead to. Only existence and
// population matter to the engine; traversal lives elsewhere.
type Location struct {
	ID         string `gorm:"primaryKey;size:64" json:"id"`
	Name       string `gorm:"size:128;not null" json:"name"`
	Population int    `gorm:"default:0" json:"population"`
}
