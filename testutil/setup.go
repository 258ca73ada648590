package testutil

import (
	"testing"
	"time"

	"github.com/lowfell/questworld/server/model"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SetupTestDB creates an in-memory SQLite DB and runs AutoMigrate. Each call
// gets its own database, so parallel tests never share state.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "SetupTestDB: open")
	sqlDB, err := db.DB()
	require.NoError(t, err, "SetupTestDB: pool")
	// A single connection keeps the whole test on one in-memory database.
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, model.AutoMigrate(db), "SetupTestDB: AutoMigrate")
	return db
}

// CreateAgent inserts an agent with the given skills and sensible defaults.
func CreateAgent(t *testing.T, db *gorm.DB, id, locationID string, skills map[string]int) *model.Agent {
	t.Helper()
	a := &model.Agent{
		ID:         id,
		Name:       "Agent " + id,
		Gold:       100,
		Level:      1,
		LocationID: locationID,
	}
	require.NoError(t, a.SetSkillValues(skills))
	require.NoError(t, db.Create(a).Error)
	return a
}

// CreateQuest inserts an active quest.
func CreateQuest(t *testing.T, db *gorm.DB, id, locationID string, partySize int, cr float64, mult map[string]float64, rewards model.RewardTable) *model.Quest {
	t.Helper()
	q := &model.Quest{
		ID:              id,
		Name:            "Quest " + id,
		LocationID:      locationID,
		DestinationID:   locationID + "-dest",
		PartySize:       partySize,
		ChallengeRating: cr,
		Status:          model.QuestStatusActive,
		CreatedAt:       time.Now(),
	}
	require.NoError(t, q.SetMultiplierTable(mult))
	require.NoError(t, q.SetRewardsTable(rewards))
	require.NoError(t, db.Create(q).Error)
	return q
}

// CreateLocation inserts a location.
func CreateLocation(t *testing.T, db *gorm.DB, id string, population int) *model.Location {
	t.Helper()
	loc := &model.Location{ID: id, Name: "Location " + id, Population: population}
	require.NoError(t, db.Create(loc).Error)
	return loc
}

// CreateItem inserts a catalog item.
func CreateItem(t *testing.T, db *gorm.DB, id string, rarity model.Rarity) *model.Item {
	t.Helper()
	item := &model.Item{ID: id, Name: "Item " + id, Rarity: rarity}
	require.NoError(t, db.Create(item).Error)
	return item
}
