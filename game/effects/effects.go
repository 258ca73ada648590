// Package effects applies a resolved quest outcome to an agent's stats.
// Everything here is pure: callers pass the current state in and persist the
// returned state themselves.
package effects

import (
	"fmt"
	"strings"

	"github.com/lowfell/questworld/server/game/formula"
	"github.com/lowfell/questworld/server/model"
)

// SkillPointsPerLevel is awarded for each level gained.
const SkillPointsPerLevel = 5

// AgentStats is the mutable subset of an agent touched by a resolution.
type AgentStats struct {
	Gold        int64
	XP          int64
	Level       int
	SkillPoints int
	JourneyLog  []string
}

// QuestInfo carries what the summary reveals about the quest and how the
// outcome was computed.
type QuestInfo struct {
	Name            string
	Outcome         model.Outcome
	ChallengeRating float64
	RandomFactor    int
	SuccessLevel    float64
	EffectiveSkill  float64
	SkillsUsed      []string
	Multipliers     []float64 // one per entry of SkillsUsed, revealed to the operator
	NewLocation     string
}

// Deltas is the reward computed by quest resolution.
type Deltas struct {
	XPGained   int64
	GoldGained int64
	GoldLost   int64
}

// Result is the new agent state plus bookkeeping about the application.
type Result struct {
	Stats              AgentStats
	LevelsGained       int
	SkillPointsAwarded int
	Summary            model.QuestResultSummary
}

// Apply folds a resolution into the agent's stats: xp and level-ups, skill
// points for levels gained, gold floored at zero, a journey-log line, and the
// last-result summary revealing the multipliers used.
func Apply(stats AgentStats, q QuestInfo, d Deltas, itemsGained []string) Result {
	before := formula.LevelFromTotalXP(stats.XP)
	stats.XP += d.XPGained
	after := formula.LevelFromTotalXP(stats.XP)

	levelsGained := after.Level - before.Level
	if levelsGained < 0 {
		levelsGained = 0
	}
	pointsAwarded := SkillPointsPerLevel * levelsGained

	stats.Level = after.Level
	stats.SkillPoints += pointsAwarded
	stats.Gold = stats.Gold + d.GoldGained - d.GoldLost
	if stats.Gold < 0 {
		stats.Gold = 0
	}

	line := fmt.Sprintf("Completed: %s (%s)", q.Name, titleCase(q.Outcome))
	stats.JourneyLog = append(stats.JourneyLog, line)

	summary := model.QuestResultSummary{
		QuestName:   q.Name,
		Outcome:     q.Outcome,
		XPGained:    d.XPGained,
		GoldGained:  d.GoldGained,
		GoldLost:    d.GoldLost,
		ItemsGained: itemsGained,
		SkillReport: model.SkillReport{
			SkillsUsed:          q.SkillsUsed,
			MultipliersRevealed: q.Multipliers,
			EffectiveSkill:      q.EffectiveSkill,
			ChallengeRating:     q.ChallengeRating,
			RandomFactor:        q.RandomFactor,
			SuccessLevel:        q.SuccessLevel,
		},
		NewLocation: q.NewLocation,
	}

	return Result{
		Stats:              stats,
		LevelsGained:       levelsGained,
		SkillPointsAwarded: pointsAwarded,
		Summary:            summary,
	}
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
