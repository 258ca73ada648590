// Package audit writes the world-event trail: who took which quest, which
// runs resolved, when sweeps ran. Entries are buffered and written in
// batches so the hot path never waits on the database.
package audit

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/lowfell/questworld/server/model"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	batchSize     = 100
	flushInterval = 2 * time.Second
	bufferSize    = 1024
)

// Entry is one world event to record.
type Entry struct {
	TraceID string
	Type    string
	AgentID string
	QuestID string
	RunID   string
	Detail  interface{}
	Error   string
	IP      string
}

// Service batches world events into the database asynchronously.
type Service struct {
	db     *gorm.DB
	ch     chan *model.WorldEvent
	stopCh chan struct{}
	wg     sync.WaitGroup
	logger *zap.Logger
}

// New creates an audit Service and starts its background worker.
func New(db *gorm.DB, logger *zap.Logger) *Service {
	svc := &Service{
		db:     db,
		ch:     make(chan *model.WorldEvent, bufferSize),
		stopCh: make(chan struct{}),
		logger: logger,
	}
	svc.wg.Add(1)
	go svc.worker()
	return svc
}

// Record enqueues a world event. If the buffer is full the event is dropped
// rather than blocking the caller.
func (svc *Service) Record(entry Entry) {
	detail, _ := json.Marshal(entry.Detail)
	record := &model.WorldEvent{
		TraceID: entry.TraceID,
		Type:    entry.Type,
		AgentID: entry.AgentID,
		QuestID: entry.QuestID,
		RunID:   entry.RunID,
		Detail:  datatypes.JSON(detail),
		Error:   entry.Error,
		IP:      entry.IP,
	}
	select {
	case svc.ch <- record:
	default:
		svc.logger.Warn("audit buffer full, dropping event",
			zap.String("type", entry.Type))
	}
}

// Stop flushes remaining events and shuts down the worker. It blocks until
// the worker goroutine has finished and is safe to call more than once.
func (svc *Service) Stop(_ context.Context) {
	select {
	case <-svc.stopCh:
	default:
		close(svc.stopCh)
	}
	svc.wg.Wait()
}

func (svc *Service) worker() {
	defer svc.wg.Done()
	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	batch := make([]*model.WorldEvent, 0, batchSize)

	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := svc.db.Create(&batch).Error; err != nil {
			svc.logger.Error("world event batch write failed", zap.Error(err))
		}
		batch = batch[:0]
	}

	for {
		select {
		case event := <-svc.ch:
			batch = append(batch, event)
			if len(batch) >= batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-svc.stopCh:
			for {
				select {
				case event := <-svc.ch:
					batch = append(batch, event)
				default:
					flush()
					return
				}
			}
		}
	}
}
