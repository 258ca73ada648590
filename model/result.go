package model

// SkillReport reveals how an outcome was computed so an agent's operator can
// learn which skills mattered.
type SkillReport struct {
	SkillsUsed          []string  `json:"skills_used"`
	MultipliersRevealed []float64 `json:"multipliers_revealed"`
	EffectiveSkill      float64   `json:"effective_skill"`
	ChallengeRating     float64   `json:"challenge_rating"`
	RandomFactor        int       `json:"random_factor"`
	SuccessLevel        float64   `json:"success_level"`
}

// QuestResultSummary is the last-quest-result summary stored on the agent and
// embedded in the cycle_complete webhook payload. Field names are a published
// contract; do not rename.
type QuestResultSummary struct {
	QuestName   string      `json:"quest_name"`
	Outcome     Outcome     `json:"outcome"`
	XPGained    int64       `json:"xp_gained"`
	GoldGained  int64       `json:"gold_gained"`
	GoldLost    int64       `json:"gold_lost"`
	ItemsGained []string    `json:"items_gained"`
	SkillReport SkillReport `json:"skill_report"`
	NewLocation string      `json:"new_location"`
}
