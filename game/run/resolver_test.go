package run

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lowfell/questworld/server/config"
	"github.com/lowfell/questworld/server/game/engineerr"
	"github.com/lowfell/questworld/server/model"
	"github.com/lowfell/questworld/server/testutil"
	"github.com/lowfell/questworld/server/webhook"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type capturedNotify struct {
	URL     string
	Payload interface{}
}

type fakeNotifier struct {
	ch chan capturedNotify
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{ch: make(chan capturedNotify, 16)}
}

func (f *fakeNotifier) Notify(ctx context.Context, url string, payload interface{}) {
	f.ch <- capturedNotify{URL: url, Payload: payload}
}

func newTestResolver(t *testing.T) (*Resolver, *gorm.DB, *fakeNotifier) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	notifier := newFakeNotifier()
	r := NewResolver(db, config.Default().Game, notifier, zap.NewNop())
	return r, db, notifier
}

func seedRun(t *testing.T, db *gorm.DB, quest *model.Quest, agent *model.Agent, outcome model.Outcome, share model.QuestRunParticipant) *model.QuestRun {
	t.Helper()
	share.AgentID = agent.ID
	share.Action = "ride out"
	require.NoError(t, share.SetChosenSkills([]string{"stealth", "combat", "survival"}))
	run := &model.QuestRun{
		ID:           uuid.NewString(),
		QuestID:      quest.ID,
		Outcome:      outcome,
		StartedAt:    time.Now().Add(-time.Hour),
		Participants: []model.QuestRunParticipant{share},
	}
	require.NoError(t, db.Create(run).Error)
	return run
}

func TestResolveAppliesEffectsExactlyOnce(t *testing.T) {
	r, db, _ := newTestResolver(t)
	testutil.CreateLocation(t, db, "village", 100)
	testutil.CreateLocation(t, db, "village-dest", 50)
	agent := testutil.CreateAgent(t, db, "a1", "village", map[string]int{"stealth": 10})
	locked := time.Now().Add(2 * time.Hour)
	require.NoError(t, db.Model(agent).Update("cooldown_until", locked).Error)
	quest := testutil.CreateQuest(t, db, "q1", "village", 1, 30,
		map[string]float64{"stealth": 2.0},
		model.RewardTable{
			Success: model.RewardTier{XP: 100, Gold: 50},
			Partial: model.RewardTier{XP: 50, Gold: 25},
		})
	run := seedRun(t, db, quest, agent, model.OutcomeSuccess, model.QuestRunParticipant{
		EffectiveSkill: 40,
		XPGained:       100,
		GoldGained:     50,
	})

	resolved, err := r.Resolve(context.Background(), run.ID)
	require.NoError(t, err)
	require.True(t, resolved.Resolved())

	var got model.Agent
	require.NoError(t, db.First(&got, "id = ?", agent.ID).Error)
	assert.Equal(t, int64(100), got.XP)
	assert.Equal(t, 2, got.Level, "100 xp is exactly one level-up from level 1")
	assert.Equal(t, 5, got.UnspentSkillPoints)
	assert.Equal(t, int64(150), got.Gold)
	assert.Equal(t, "village-dest", got.LocationID)
	assert.Nil(t, got.CooldownUntil, "resolution unlocks the agent")

	journey, err := got.Journey()
	require.NoError(t, err)
	require.Len(t, journey, 1)
	assert.Equal(t, "Completed: Quest q1 (Success)", journey[0])

	summary, err := got.LastResult()
	require.NoError(t, err)
	require.NotNil(t, summary)
	assert.Equal(t, model.OutcomeSuccess, summary.Outcome)
	assert.Equal(t, int64(100), summary.XPGained)

	// A second call sees the stamp and changes nothing.
	again, err := r.Resolve(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, resolved.ResolvedAt.Unix(), again.ResolvedAt.Unix())
	var after model.Agent
	require.NoError(t, db.First(&after, "id = ?", agent.ID).Error)
	assert.Equal(t, int64(100), after.XP, "rewards must not be applied twice")
	assert.Equal(t, int64(150), after.Gold)
}

func TestResolveRevealsMultipliers(t *testing.T) {
	r, db, _ := newTestResolver(t)
	testutil.CreateLocation(t, db, "keep", 10)
	testutil.CreateLocation(t, db, "keep-dest", 10)
	agent := testutil.CreateAgent(t, db, "a1", "keep", map[string]int{"stealth": 10})
	quest := testutil.CreateQuest(t, db, "q1", "keep", 1, 30,
		map[string]float64{"stealth": 2.0, "combat": 0.5},
		model.RewardTable{Success: model.RewardTier{XP: 10, Gold: 5}})
	run := seedRun(t, db, quest, agent, model.OutcomeSuccess, model.QuestRunParticipant{XPGained: 10, GoldGained: 5})

	_, err := r.Resolve(context.Background(), run.ID)
	require.NoError(t, err)

	var got model.Agent
	require.NoError(t, db.First(&got, "id = ?", agent.ID).Error)
	summary, err := got.LastResult()
	require.NoError(t, err)
	require.NotNil(t, summary)
	assert.Equal(t, []string{"stealth", "combat", "survival"}, summary.SkillReport.SkillsUsed)
	// Unlisted skills reveal the implicit 1.0 multiplier.
	assert.Equal(t, []float64{2.0, 0.5, 1.0}, summary.SkillReport.MultipliersRevealed)
}

func TestResolveFailureMovesToFailDestination(t *testing.T) {
	r, db, _ := newTestResolver(t)
	testutil.CreateLocation(t, db, "fort", 10)
	testutil.CreateLocation(t, db, "fort-dest", 10)
	testutil.CreateLocation(t, db, "swamp", 10)
	agent := testutil.CreateAgent(t, db, "a1", "fort", map[string]int{"combat": 5})
	quest := testutil.CreateQuest(t, db, "q1", "fort", 1, 90,
		map[string]float64{}, model.RewardTable{Success: model.RewardTier{XP: 200, Gold: 80}})
	swamp := "swamp"
	require.NoError(t, db.Model(quest).Update("fail_destination_id", swamp).Error)
	quest.FailDestinationID = &swamp

	run := seedRun(t, db, quest, agent, model.OutcomeFailure, model.QuestRunParticipant{GoldLost: 12})

	_, err := r.Resolve(context.Background(), run.ID)
	require.NoError(t, err)

	var got model.Agent
	require.NoError(t, db.First(&got, "id = ?", agent.ID).Error)
	assert.Equal(t, "swamp", got.LocationID)
	assert.Equal(t, int64(88), got.Gold)
	assert.Equal(t, int64(0), got.XP)
	eq, err := got.EquippedItemIDs()
	require.NoError(t, err)
	assert.Empty(t, eq)
	var p model.QuestRunParticipant
	require.NoError(t, db.First(&p, "run_id = ?", run.ID).Error)
	assert.Nil(t, p.ItemGained, "failed runs never drop items")
}

func TestResolveEmptyCatalogDropsNothing(t *testing.T) {
	r, db, _ := newTestResolver(t)
	testutil.CreateLocation(t, db, "port", 10)
	testutil.CreateLocation(t, db, "port-dest", 10)
	agent := testutil.CreateAgent(t, db, "a1", "port", map[string]int{"stealth": 50})
	quest := testutil.CreateQuest(t, db, "q1", "port", 1, 150,
		map[string]float64{}, model.RewardTable{Success: model.RewardTier{XP: 10, Gold: 5}})
	run := seedRun(t, db, quest, agent, model.OutcomeSuccess, model.QuestRunParticipant{XPGained: 10, GoldGained: 5})

	_, err := r.Resolve(context.Background(), run.ID)
	require.NoError(t, err)

	var p model.QuestRunParticipant
	require.NoError(t, db.First(&p, "run_id = ?", run.ID).Error)
	assert.Nil(t, p.ItemGained, "no items in the catalog, nothing to drop")
}

func TestResolveConcurrentCallersRewardOnce(t *testing.T) {
	r, db, _ := newTestResolver(t)
	testutil.CreateLocation(t, db, "city", 10)
	testutil.CreateLocation(t, db, "city-dest", 10)
	agent := testutil.CreateAgent(t, db, "a1", "city", map[string]int{"stealth": 10})
	quest := testutil.CreateQuest(t, db, "q1", "city", 1, 30,
		map[string]float64{}, model.RewardTable{Success: model.RewardTier{XP: 40, Gold: 20}})
	run := seedRun(t, db, quest, agent, model.OutcomeSuccess, model.QuestRunParticipant{XPGained: 40, GoldGained: 20})

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.Resolve(context.Background(), run.ID)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	var got model.Agent
	require.NoError(t, db.First(&got, "id = ?", agent.ID).Error)
	assert.Equal(t, int64(40), got.XP, "only the claim winner applies rewards")
	assert.Equal(t, int64(120), got.Gold)

	journey, err := got.Journey()
	require.NoError(t, err)
	assert.Len(t, journey, 1, "exactly one journey entry despite concurrent callers")
}

func TestResolveSendsCycleCompleteWebhook(t *testing.T) {
	r, db, notifier := newTestResolver(t)
	testutil.CreateLocation(t, db, "dale", 10)
	testutil.CreateLocation(t, db, "dale-dest", 10)
	agent := testutil.CreateAgent(t, db, "a1", "dale", map[string]int{"stealth": 10})
	require.NoError(t, db.Model(agent).Update("webhook_url", "http://operator.test/hook").Error)
	quest := testutil.CreateQuest(t, db, "q1", "dale", 1, 30,
		map[string]float64{}, model.RewardTable{Success: model.RewardTier{XP: 10, Gold: 5}})
	// Another active quest at the destination shows up in available actions.
	testutil.CreateQuest(t, db, "q2", "dale-dest", 1, 20,
		map[string]float64{}, model.RewardTable{Success: model.RewardTier{XP: 10, Gold: 5}})
	run := seedRun(t, db, quest, agent, model.OutcomeSuccess, model.QuestRunParticipant{XPGained: 10, GoldGained: 5})

	_, err := r.Resolve(context.Background(), run.ID)
	require.NoError(t, err)

	select {
	case n := <-notifier.ch:
		assert.Equal(t, "http://operator.test/hook", n.URL)
		payload, ok := n.Payload.(webhook.CycleComplete)
		if !ok {
			t.Fatalf("unexpected payload type %T", n.Payload)
		}
		assert.Equal(t, "cycle_complete", payload.Type)
		assert.Equal(t, "Agent a1", payload.Agent)
		assert.Equal(t, "dale-dest", payload.AgentState.Location)
		assert.Equal(t, 1, payload.AvailableActions.QuestsAvailable)
		assert.True(t, payload.AvailableActions.CanManageEquipment)
	case <-time.After(2 * time.Second):
		t.Fatal("cycle_complete webhook never fired")
	}
}

func TestResolveUnknownRun(t *testing.T) {
	r, _, _ := newTestResolver(t)
	_, err := r.Resolve(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, engineerr.IsFatal(err))
	assert.Equal(t, engineerr.CodeMissingReference, engineerr.CodeOf(err))
}
