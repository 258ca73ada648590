package quest

import (
	"testing"

	"github.com/lowfell/questworld/server/game/engineerr"
	"github.com/lowfell/questworld/server/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func questFixture(partySize int, cr float64, mult map[string]float64, rewards model.RewardTable) *model.Quest {
	q := &model.Quest{
		ID:              "q1",
		Name:            "Escort the Caravan",
		LocationID:      "village",
		DestinationID:   "city",
		PartySize:       partySize,
		ChallengeRating: cr,
		Status:          model.QuestStatusActive,
	}
	if err := q.SetMultiplierTable(mult); err != nil {
		panic(err)
	}
	if err := q.SetRewardsTable(rewards); err != nil {
		panic(err)
	}
	return q
}

func soloInput(agentID string, base map[string]int, gold int64) ParticipantInput {
	return ParticipantInput{
		AgentID:    agentID,
		Skills:     []string{"stealth", "combat", "survival"},
		Action:     "ride out",
		BaseSkills: base,
		Gold:       gold,
	}
}

func TestResolveSoloCertainSuccess(t *testing.T) {
	// Effective skill 200 against challenge 30: the worst random factor still
	// clears the success threshold.
	q := questFixture(1, 30, map[string]float64{"stealth": 2.0},
		model.RewardTable{Success: model.RewardTier{XP: 100, Gold: 50}})
	res, err := Resolve(q, []ParticipantInput{
		soloInput("a1", map[string]int{"stealth": 100}, 100),
	}, "seed-success", 0.10)
	require.NoError(t, err)

	assert.Equal(t, model.OutcomeSuccess, res.Outcome)
	assert.Equal(t, 200.0, res.EffectiveSkill)
	assert.Equal(t, 30.0, res.ChallengeRating)
	require.Len(t, res.Shares, 1)
	assert.Equal(t, int64(100), res.Shares[0].XPGained, "solo multiplier is 1.0")
	assert.Equal(t, int64(50), res.Shares[0].GoldGained)
	assert.Equal(t, int64(0), res.Shares[0].GoldLost)
}

func TestResolveSoloCertainFailureLosesGold(t *testing.T) {
	// Zero skill against challenge 200: even the best random factor fails.
	q := questFixture(1, 200, map[string]float64{},
		model.RewardTable{Success: model.RewardTier{XP: 100, Gold: 50}})
	res, err := Resolve(q, []ParticipantInput{
		soloInput("a1", map[string]int{}, 123),
	}, "seed-failure", 0.10)
	require.NoError(t, err)

	assert.Equal(t, model.OutcomeFailure, res.Outcome)
	require.Len(t, res.Shares, 1)
	assert.Equal(t, int64(0), res.Shares[0].XPGained, "failure yields nothing")
	assert.Equal(t, int64(0), res.Shares[0].GoldGained)
	assert.Equal(t, int64(12), res.Shares[0].GoldLost, "floor(123 * 0.10)")
}

func TestResolvePartyScalesChallengeAndXP(t *testing.T) {
	q := questFixture(2, 60, map[string]float64{},
		model.RewardTable{Success: model.RewardTier{XP: 100, Gold: 50}})
	inputs := []ParticipantInput{
		soloInput("a1", map[string]int{"stealth": 200}, 100),
		soloInput("a2", map[string]int{"combat": 200}, 100),
	}
	res, err := Resolve(q, inputs, "seed-party", 0.10)
	require.NoError(t, err)

	assert.Equal(t, 120.0, res.ChallengeRating, "base 60 scaled by party of 2")
	assert.Equal(t, model.OutcomeSuccess, res.Outcome)
	assert.Equal(t, 1.25, res.XPMultiplier)
	for _, share := range res.Shares {
		assert.Equal(t, int64(125), share.XPGained, "floor(100 * 1.25)")
		assert.Equal(t, int64(50), share.GoldGained, "gold is not party-scaled")
	}
}

func TestResolveEquipmentBonusCountsTowardSkill(t *testing.T) {
	q := questFixture(1, 1, map[string]float64{"stealth": 2.0},
		model.RewardTable{Success: model.RewardTier{XP: 10, Gold: 5}})
	in := soloInput("a1", map[string]int{"stealth": 10}, 100)
	in.Bonuses = map[string]int{"stealth": 30}

	res, err := Resolve(q, []ParticipantInput{in}, "seed-equip", 0.10)
	require.NoError(t, err)
	assert.Equal(t, 80.0, res.Shares[0].EffectiveSkill, "(10 base + 30 bonus) * 2.0")
}

func TestResolvePartySizeMismatch(t *testing.T) {
	q := questFixture(3, 60, map[string]float64{}, model.RewardTable{})
	_, err := Resolve(q, []ParticipantInput{
		soloInput("a1", map[string]int{}, 0),
	}, "seed", 0.10)
	require.Error(t, err)
	assert.True(t, engineerr.IsValidation(err))
}

func TestResolveSameSeedSameOutcome(t *testing.T) {
	q := questFixture(1, 50, map[string]float64{},
		model.RewardTable{Success: model.RewardTier{XP: 10, Gold: 5}, Partial: model.RewardTier{XP: 5, Gold: 2}})
	in := soloInput("a1", map[string]int{"stealth": 40}, 100)

	first, err := Resolve(q, []ParticipantInput{in}, "seed-repeat", 0.10)
	require.NoError(t, err)
	second, err := Resolve(q, []ParticipantInput{in}, "seed-repeat", 0.10)
	require.NoError(t, err)

	assert.Equal(t, first.Outcome, second.Outcome)
	assert.Equal(t, first.RandomFactor, second.RandomFactor)
	assert.Equal(t, first.SuccessLevel, second.SuccessLevel)
}
