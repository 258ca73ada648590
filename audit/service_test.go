package audit

import (
	"context"
	"testing"

	"github.com/lowfell/questworld/server/model"
	"github.com/lowfell/questworld/server/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRecordFlushedOnStop(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := New(db, zap.NewNop())

	svc.Record(Entry{
		TraceID: "trace-123",
		Type:    "quest_taken",
		AgentID: "a1",
		QuestID: "q1",
		Detail:  map[string]string{"action": "slip through the gate"},
		IP:      "127.0.0.1",
	})
	svc.Stop(context.Background())

	var events []model.WorldEvent
	db.Find(&events)
	require.Len(t, events, 1)
	assert.Equal(t, "trace-123", events[0].TraceID)
	assert.Equal(t, "quest_taken", events[0].Type)
	assert.Equal(t, "a1", events[0].AgentID)
	assert.Equal(t, "q1", events[0].QuestID)
	assert.Equal(t, "127.0.0.1", events[0].IP)
}

func TestRecordMany(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := New(db, zap.NewNop())

	for i := 0; i < 10; i++ {
		svc.Record(Entry{Type: "sweep"})
	}
	svc.Stop(context.Background())

	var count int64
	db.Model(&model.WorldEvent{}).Count(&count)
	assert.Equal(t, int64(10), count)
}

func TestRecordBatchFlush(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := New(db, zap.NewNop())

	// Exceeding the batch size triggers an immediate flush inside the worker;
	// Stop drains the rest.
	for i := 0; i < batchSize+20; i++ {
		svc.Record(Entry{Type: "flood"})
	}
	svc.Stop(context.Background())

	var count int64
	db.Model(&model.WorldEvent{}).Count(&count)
	assert.GreaterOrEqual(t, count, int64(batchSize))
}

func TestStopIdempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := New(db, zap.NewNop())
	svc.Stop(context.Background())
	svc.Stop(context.Background())
}

func TestRecordAfterOverflowDoesNotPanic(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := New(db, zap.NewNop())

	for i := 0; i < bufferSize+50; i++ {
		svc.Record(Entry{Type: "flood"})
	}
	svc.Stop(context.Background())
}
