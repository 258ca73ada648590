// Package formula holds the pure skill and progression math: the XP curve,
// party scaling, effective-skill computation and the outcome partition.
package formula

import (
	"fmt"
	"math"

	"github.com/lowfell/questworld/server/game/rng"
	"github.com/lowfell/questworld/server/model"
)

// Outcome boundaries on the success level.
const (
	successThreshold = 20
	failureThreshold = -20
)

// RandomFactorRange bounds the seeded perturbation applied to a run.
const (
	RandomFactorMin = -15
	RandomFactorMax = 15
)

// XPForLevel returns the xp cost of advancing from the given level to the
// next one: floor(100 * 1.25^(level-1)).
func XPForLevel(level int) int64 {
	if level < 1 {
		level = 1
	}
	return int64(math.Floor(100 * math.Pow(1.25, float64(level-1))))
}

// LevelInfo describes where a total-xp value lands on the curve.
type LevelInfo struct {
	Level    int
	XPInto   int64
	XPToNext int64
}

// LevelFromTotalXP walks the curve from level 1, consuming each level's cost
// while the remaining xp still covers it.
func LevelFromTotalXP(totalXP int64) LevelInfo {
	if totalXP < 0 {
		totalXP = 0
	}
	level := 1
	remaining := totalXP
	for {
		cost := XPForLevel(level)
		if remaining < cost {
			return LevelInfo{Level: level, XPInto: remaining, XPToNext: cost - remaining}
		}
		remaining -= cost
		level++
	}
}

var partyXPMultipliers = map[int]float64{
	1: 1.0,
	2: 1.25,
	3: 1.5,
	4: 1.75,
	5: 2.0,
}

// PartyXPMultiplier rewards cooperation with a fixed per-size bonus.
func PartyXPMultiplier(size int) (float64, error) {
	m, ok := partyXPMultipliers[size]
	if !ok {
		return 0, fmt.Errorf("formula: party size %d out of range 1-5", size)
	}
	return m, nil
}

// PartyChallengeRating scales difficulty linearly with party size so that
// grouping does not trivialize content.
func PartyChallengeRating(base float64, size int) float64 {
	return base * float64(size)
}

// EffectiveSkill sums (base + equipment bonus) * multiplier over the chosen
// skills, which must be exactly 3 distinct names.
func EffectiveSkill(chosen []string, base map[string]int, multipliers map[string]float64, bonuses map[string]int) (float64, error) {
	if len(chosen) != model.ChosenSkillCount {
		return 0, fmt.Errorf("formula: need exactly %d skills, got %d", model.ChosenSkillCount, len(chosen))
	}
	seen := make(map[string]struct{}, len(chosen))
	total := 0.0
	for _, s := range chosen {
		if _, dup := seen[s]; dup {
			return 0, fmt.Errorf("formula: duplicate skill %q", s)
		}
		seen[s] = struct{}{}
		mult, ok := multipliers[s]
		if !ok {
			mult = 1.0
		}
		total += float64(base[s]+bonuses[s]) * mult
	}
	return total, nil
}

// RollRandomFactor draws the run's perturbation from its namespaced seed.
func RollRandomFactor(seed string) int {
	return rng.New(seed).Int(RandomFactorMin, RandomFactorMax)
}

// SuccessLevel combines skill, difficulty and luck into the outcome scale.
func SuccessLevel(effectiveSkill, challengeRating float64, randomFactor int) float64 {
	return effectiveSkill - challengeRating + float64(randomFactor)
}

// OutcomeFor partitions the success-level line into three exhaustive,
// non-overlapping bands.
func OutcomeFor(level float64) model.Outcome {
	switch {
	case level > successThreshold:
		return model.OutcomeSuccess
	case level < failureThreshold:
		return model.OutcomeFailure
	default:
		return model.OutcomePartial
	}
}
