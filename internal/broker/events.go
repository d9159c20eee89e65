package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"tunely/internal/models"
	"tunely/internal/util"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Publisher is the transport EventPublisher writes to
type Publisher interface {
	PublishEvent(ctx context.Context, key string, event interface{}) error
}

// EventPublisher publishes tip domain events
type EventPublisher struct {
	producer Publisher
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer Publisher) *EventPublisher {
	return &EventPublisher{producer: producer}
}

func newBaseEvent(eventType string) models.BaseEvent {
	return models.BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: time.Now().UTC(),
	}
}

func artistKey(artistID string) string {
	return fmt.Sprintf("artist-%s", artistID)
}

func sessionKey(sessionID string) string {
	return fmt.Sprintf("session-%s", sessionID)
}

// PublishTipSucceeded publishes TIP_SUCCEEDED
func (ep *EventPublisher) PublishTipSucceeded(ctx context.Context, event *models.TipSucceededEvent) error {
	event.BaseEvent = newBaseEvent(models.EventTypeTipSucceeded)
	return ep.producer.PublishEvent(ctx, artistKey(event.ArtistID), event)
}

// PublishSongQueued publishes SONG_QUEUED
func (ep *EventPublisher) PublishSongQueued(ctx context.Context, event *models.SongQueuedEvent) error {
	event.BaseEvent = newBaseEvent(models.EventTypeSongQueued)
	return ep.producer.PublishEvent(ctx, sessionKey(event.SessionID), event)
}

// PublishQueueEntryUpdated publishes QUEUE_ENTRY_UPDATED
func (ep *EventPublisher) PublishQueueEntryUpdated(ctx context.Context, event *models.QueueEntryUpdatedEvent) error {
	event.BaseEvent = newBaseEvent(models.EventTypeQueueEntryUpdated)
	return ep.producer.PublishEvent(ctx, sessionKey(event.SessionID), event)
}

// PublishPayoutPaid publishes PAYOUT_PAID
func (ep *EventPublisher) PublishPayoutPaid(ctx context.Context, event *models.PayoutPaidEvent) error {
	event.BaseEvent = newBaseEvent(models.EventTypePayoutPaid)
	return ep.producer.PublishEvent(ctx, artistKey(event.ArtistID), event)
}

// EventHandler routes incoming events to registered callbacks
type EventHandler struct {
	onSongQueued        func(context.Context, *models.SongQueuedEvent) error
	onQueueEntryUpdated func(context.Context, *models.QueueEntryUpdatedEvent) error
	logger              *zap.Logger
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{logger: util.GetLogger()}
}

// OnSongQueued registers a handler for SONG_QUEUED events
func (eh *EventHandler) OnSongQueued(handler func(context.Context, *models.SongQueuedEvent) error) {
	eh.onSongQueued = handler
}

// OnQueueEntryUpdated registers a handler for QUEUE_ENTRY_UPDATED events
func (eh *EventHandler) OnQueueEntryUpdated(handler func(context.Context, *models.QueueEntryUpdatedEvent) error) {
	eh.onQueueEntryUpdated = handler
}

// HandleMessage routes a message by its event_type. Types without a
// registered handler are skipped.
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	eh.logger.Debug("Handling event",
		zap.String("event_type", baseEvent.EventType),
		zap.String("event_id", baseEvent.EventID))

	switch baseEvent.EventType {
	case models.EventTypeSongQueued:
		if eh.onSongQueued != nil {
			var event models.SongQueuedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal SongQueued event: %w", err)
			}
			return eh.onSongQueued(ctx, &event)
		}

	case models.EventTypeQueueEntryUpdated:
		if eh.onQueueEntryUpdated != nil {
			var event models.QueueEntryUpdatedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal QueueEntryUpdated event: %w", err)
			}
			return eh.onQueueEntryUpdated(ctx, &event)
		}
	}

	return nil
}
