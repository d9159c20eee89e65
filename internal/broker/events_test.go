package broker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"tunely/internal/models"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error { return nil }

func TestPublishSongQueuedKeysBySession(t *testing.T) {
	w := &recordingWriter{}
	ep := NewEventPublisher(NewProducerWithWriter(w))

	err := ep.PublishSongQueued(context.Background(), &models.SongQueuedEvent{
		QueueEntryID:  "entry-1",
		SessionID:     "session-1",
		PaymentID:     "payment-1",
		QueuePosition: 4,
		SongRequest:   "Wonderwall",
	})
	require.NoError(t, err)
	require.Len(t, w.msgs, 1)

	assert.Equal(t, "session-session-1", string(w.msgs[0].Key))

	var decoded models.SongQueuedEvent
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &decoded))
	assert.Equal(t, models.EventTypeSongQueued, decoded.EventType)
	assert.NotEmpty(t, decoded.EventID)
	assert.Equal(t, 4, decoded.QueuePosition)
}

func TestPublishPropagatesWriterError(t *testing.T) {
	w := &recordingWriter{err: errors.New("broker down")}
	ep := NewEventPublisher(NewProducerWithWriter(w))

	err := ep.PublishPayoutPaid(context.Background(), &models.PayoutPaidEvent{ArtistID: "artist-1"})
	assert.Error(t, err)
}

func TestHandleMessageRoutesByType(t *testing.T) {
	h := NewEventHandler()

	var queued *models.SongQueuedEvent
	var updated *models.QueueEntryUpdatedEvent
	h.OnSongQueued(func(_ context.Context, e *models.SongQueuedEvent) error {
		queued = e
		return nil
	})
	h.OnQueueEntryUpdated(func(_ context.Context, e *models.QueueEntryUpdatedEvent) error {
		updated = e
		return nil
	})

	ctx := context.Background()
	require.NoError(t, h.HandleMessage(ctx, kafka.Message{
		Value: []byte(`{"event_type":"SONG_QUEUED","session_id":"s1","queue_position":2}`),
	}))
	require.NotNil(t, queued)
	assert.Equal(t, "s1", queued.SessionID)

	require.NoError(t, h.HandleMessage(ctx, kafka.Message{
		Value: []byte(`{"event_type":"QUEUE_ENTRY_UPDATED","session_id":"s1","status":"playing"}`),
	}))
	require.NotNil(t, updated)
	assert.Equal(t, models.QueueStatusPlaying, updated.Status)

	assert.NoError(t, h.HandleMessage(ctx, kafka.Message{Value: []byte(`{"event_type":"TIP_SUCCEEDED"}`)}))
	assert.Error(t, h.HandleMessage(ctx, kafka.Message{Value: []byte(`not json`)}))
}
