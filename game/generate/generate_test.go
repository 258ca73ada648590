package generate

import (
	"context"
	"testing"
	"time"

	"github.com/lowfell/questworld/server/config"
	"github.com/lowfell/questworld/server/game/partyqueue"
	"github.com/lowfell/questworld/server/model"
	"github.com/lowfell/questworld/server/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	cfg := config.Default().Game
	queues := partyqueue.NewService(db, zap.NewNop())
	return NewService(db, cfg, queues, zap.NewNop()), db
}

func activeQuests(t *testing.T, db *gorm.DB, locationID string) []model.Quest {
	t.Helper()
	var quests []model.Quest
	require.NoError(t, db.
		Where("location_id = ? AND status = ?", locationID, model.QuestStatusActive).
		Order("id").Find(&quests).Error)
	return quests
}

func TestRegenerateFillsEveryLocation(t *testing.T) {
	s, db := newTestService(t)
	testutil.CreateLocation(t, db, "hamlet", 10)
	testutil.CreateLocation(t, db, "city", 500)
	now := time.Now()

	require.NoError(t, s.Regenerate(context.Background(), now))

	hamlet := activeQuests(t, db, "hamlet")
	city := activeQuests(t, db, "city")
	assert.GreaterOrEqual(t, len(hamlet), s.cfg.MinQuestsPerLocation,
		"small populations still get the minimum batch")
	assert.Greater(t, len(city), len(hamlet), "batch size grows with population")

	for _, quests := range [][]model.Quest{hamlet, city} {
		solo := 0
		for _, q := range quests {
			assert.GreaterOrEqual(t, q.PartySize, 1)
			assert.LessOrEqual(t, q.PartySize, MaxPartySize)
			assert.GreaterOrEqual(t, q.ChallengeRating, 10.0)
			assert.NotEmpty(t, q.Name)
			assert.NotEqual(t, q.LocationID, q.DestinationID)
			mult, err := q.MultiplierTable()
			require.NoError(t, err)
			assert.Len(t, mult, len(model.SkillNames), "one multiplier per skill")
			rewards, err := q.RewardsTable()
			require.NoError(t, err)
			assert.Greater(t, rewards.Success.XP, rewards.Partial.XP)
			if q.PartySize == 1 {
				solo++
			}
		}
		assert.GreaterOrEqual(t, solo, 1, "every location gets at least one solo quest")
	}
}

func TestRegenerateIsIdempotentWithinACycle(t *testing.T) {
	s, db := newTestService(t)
	testutil.CreateLocation(t, db, "hamlet", 10)
	now := time.Now()

	require.NoError(t, s.Regenerate(context.Background(), now))
	first := activeQuests(t, db, "hamlet")

	// Same cycle, later trigger: identical ids conflict away, nothing changes.
	require.NoError(t, s.Regenerate(context.Background(), now.Add(time.Second)))
	second := activeQuests(t, db, "hamlet")

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
		assert.Equal(t, first[i].ChallengeRating, second[i].ChallengeRating)
		assert.Equal(t, string(first[i].Multipliers), string(second[i].Multipliers))
	}
}

func TestRegenerateIsDeterministicPerSeed(t *testing.T) {
	sA, dbA := newTestService(t)
	sB, dbB := newTestService(t)
	now := time.Unix(1_700_000_000, 0)
	testutil.CreateLocation(t, dbA, "hamlet", 10)
	testutil.CreateLocation(t, dbB, "hamlet", 10)

	require.NoError(t, sA.Regenerate(context.Background(), now))
	require.NoError(t, sB.Regenerate(context.Background(), now))

	a := activeQuests(t, dbA, "hamlet")
	b := activeQuests(t, dbB, "hamlet")
	require.Equal(t, len(a), len(b))
	for i := range a {
		assert.Equal(t, a[i].ID, b[i].ID)
		assert.Equal(t, a[i].Name, b[i].Name)
		assert.Equal(t, a[i].PartySize, b[i].PartySize)
		assert.Equal(t, a[i].ChallengeRating, b[i].ChallengeRating)
		assert.Equal(t, string(a[i].Rewards), string(b[i].Rewards))
	}
}

func TestRegenerateArchivesStaleSoloQuests(t *testing.T) {
	s, db := newTestService(t)
	testutil.CreateLocation(t, db, "hamlet", 10)
	now := time.Now()
	cycleStart := s.CycleStart(now)

	old := testutil.CreateQuest(t, db, "old-solo", "hamlet", 1, 20,
		map[string]float64{}, model.RewardTable{})
	require.NoError(t, db.Model(old).Update("created_at", cycleStart.Add(-time.Hour)).Error)

	require.NoError(t, s.Regenerate(context.Background(), now))

	var got model.Quest
	require.NoError(t, db.First(&got, "id = ?", "old-solo").Error)
	assert.Equal(t, model.QuestStatusArchived, got.Status)
}

func TestRegenerateKeepsPartyQuestsWithWaiters(t *testing.T) {
	s, db := newTestService(t)
	testutil.CreateLocation(t, db, "hamlet", 10)
	now := time.Now()
	cycleStart := s.CycleStart(now)

	queued := testutil.CreateQuest(t, db, "old-party-queued", "hamlet", 3, 40,
		map[string]float64{}, model.RewardTable{})
	empty := testutil.CreateQuest(t, db, "old-party-empty", "hamlet", 3, 40,
		map[string]float64{}, model.RewardTable{})
	for _, q := range []*model.Quest{queued, empty} {
		require.NoError(t, db.Model(q).Update("created_at", cycleStart.Add(-time.Hour)).Error)
	}
	testutil.CreateAgent(t, db, "a1", "hamlet", map[string]int{"stealth": 5})
	_, _, err := s.queues.Join(context.Background(), queued, time.Hour, model.QueueParticipant{
		AgentID:  "a1",
		JoinedAt: now,
		Skills:   []string{"stealth", "combat", "survival"},
		Action:   "wait for companions",
	})
	require.NoError(t, err)

	require.NoError(t, s.Regenerate(context.Background(), now))

	var kept, archived model.Quest
	require.NoError(t, db.First(&kept, "id = ?", "old-party-queued").Error)
	require.NoError(t, db.First(&archived, "id = ?", "old-party-empty").Error)
	assert.Equal(t, model.QuestStatusActive, kept.Status,
		"queued participants keep a stale party quest alive")
	assert.Equal(t, model.QuestStatusArchived, archived.Status)
}
