// Package quest computes quest outcomes and starts quest runs, for parties
// of one through five.
package quest

import (
	"math"

	"github.com/lowfell/questworld/server/game/engineerr"
	"github.com/lowfell/questworld/server/game/formula"
	"github.com/lowfell/questworld/server/model"
)

// ParticipantInput is one agent's contribution to a resolution.
type ParticipantInput struct {
	AgentID    string
	Skills     []string // exactly 3 distinct
	Action     string
	BaseSkills map[string]int
	Bonuses    map[string]int // from equipped items
	Gold       int64          // current gold, for failure losses
}

// ParticipantShare is one agent's slice of a resolved run.
type ParticipantShare struct {
	AgentID        string
	EffectiveSkill float64
	XPGained       int64
	GoldGained     int64
	GoldLost       int64
}

// Resolution is a computed run outcome before persistence.
type Resolution struct {
	Outcome         model.Outcome
	EffectiveSkill  float64 // summed across the party
	RandomFactor    int
	SuccessLevel    float64
	ChallengeRating float64 // party-scaled
	XPMultiplier    float64
	Shares          []ParticipantShare
}

// Resolve computes the outcome of one quest attempt. Each participant's
// effective skill is computed independently and summed; one random factor and
// one outcome apply to the whole party. Rewards are the outcome bracket
// scaled by the party xp multiplier; gold loss on failure is computed per
// participant against their own gold.
func Resolve(q *model.Quest, participants []ParticipantInput, seed string, goldLossRate float64) (*Resolution, error) {
	size := q.PartySize
	if len(participants) != size {
		return nil, engineerr.Validation(engineerr.CodeInvalidSkills,
			"quest %s needs %d participants, got %d", q.ID, size, len(participants))
	}

	xpMult, err := formula.PartyXPMultiplier(size)
	if err != nil {
		return nil, engineerr.Validation(engineerr.CodeInvalidSkills, "%v", err)
	}
	multipliers, err := q.MultiplierTable()
	if err != nil {
		return nil, engineerr.Fatal(engineerr.CodeMissingReference,
			"quest %s multiplier table: %v", q.ID, err)
	}
	rewards, err := q.RewardsTable()
	if err != nil {
		return nil, engineerr.Fatal(engineerr.CodeMissingReference,
			"quest %s reward table: %v", q.ID, err)
	}

	cr := formula.PartyChallengeRating(q.ChallengeRating, size)

	shares := make([]ParticipantShare, len(participants))
	total := 0.0
	for i, p := range participants {
		eff, err := formula.EffectiveSkill(p.Skills, p.BaseSkills, multipliers, p.Bonuses)
		if err != nil {
			return nil, engineerr.Validation(engineerr.CodeInvalidSkills,
				"participant %s: %v", p.AgentID, err)
		}
		shares[i] = ParticipantShare{AgentID: p.AgentID, EffectiveSkill: eff}
		total += eff
	}

	rf := formula.RollRandomFactor(seed)
	level := formula.SuccessLevel(total, cr, rf)
	outcome := formula.OutcomeFor(level)

	var tier model.RewardTier
	switch outcome {
	case model.OutcomeSuccess:
		tier = rewards.Success
	case model.OutcomePartial:
		tier = rewards.Partial
	}

	xpGained := int64(math.Floor(float64(tier.XP) * xpMult))
	for i := range shares {
		shares[i].XPGained = xpGained
		shares[i].GoldGained = tier.Gold
		if outcome == model.OutcomeFailure {
			shares[i].GoldLost = int64(math.Floor(float64(participants[i].Gold) * goldLossRate))
		}
	}

	return &Resolution{
		Outcome:         outcome,
		EffectiveSkill:  total,
		RandomFactor:    rf,
		SuccessLevel:    level,
		ChallengeRating: cr,
		XPMultiplier:    xpMult,
		Shares:          shares,
	}, nil
}
