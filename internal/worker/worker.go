package worker

import (
	"context"

	"tunely/internal/broker"
	"tunely/internal/models"
	"tunely/internal/util"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// MessageSource is the consumer the worker reads from
type MessageSource interface {
	StartConsuming(ctx context.Context, handler broker.MessageHandler) error
	Close() error
}

// QueueRefresher reloads a session's queue into the cache
type QueueRefresher interface {
	RefreshQueueCache(ctx context.Context, sessionID string) ([]models.SongQueueEntry, error)
}

// QueueWorker keeps cached session queues in step with queue events
type QueueWorker struct {
	consumer     MessageSource
	eventHandler *broker.EventHandler
	refresher    QueueRefresher
	logger       *zap.Logger
}

// NewQueueWorker creates a new queue worker
func NewQueueWorker(consumer MessageSource, refresher QueueRefresher) *QueueWorker {
	w := &QueueWorker{
		consumer:     consumer,
		eventHandler: broker.NewEventHandler(),
		refresher:    refresher,
		logger:       util.GetLogger(),
	}

	w.eventHandler.OnSongQueued(func(ctx context.Context, e *models.SongQueuedEvent) error {
		return w.refresh(ctx, e.SessionID)
	})
	w.eventHandler.OnQueueEntryUpdated(func(ctx context.Context, e *models.QueueEntryUpdatedEvent) error {
		return w.refresh(ctx, e.SessionID)
	})

	return w
}

// Start consumes until ctx is cancelled
func (w *QueueWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting queue worker")
	return w.consumer.StartConsuming(ctx, w.HandleMessage)
}

// HandleMessage applies one tip event
func (w *QueueWorker) HandleMessage(ctx context.Context, msg kafka.Message) error {
	return w.eventHandler.HandleMessage(ctx, msg)
}

// Stop closes the consumer
func (w *QueueWorker) Stop() error {
	w.logger.Info("Stopping queue worker")
	return w.consumer.Close()
}

func (w *QueueWorker) refresh(ctx context.Context, sessionID string) error {
	entries, err := w.refresher.RefreshQueueCache(ctx, sessionID)
	if err != nil {
		return err
	}
	w.logger.Debug("Queue cache refreshed",
		zap.String("session_id", sessionID),
		zap.Int("entries", len(entries)))
	return nil
}
