package worker

import (
	"context"
	"errors"
	"testing"

	"tunely/internal/broker"
	"tunely/internal/models"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockRefresher struct {
	mock.Mock
}

func (m *mockRefresher) RefreshQueueCache(ctx context.Context, sessionID string) ([]models.SongQueueEntry, error) {
	args := m.Called(ctx, sessionID)
	e, _ := args.Get(0).([]models.SongQueueEntry)
	return e, args.Error(1)
}

type stubSource struct {
	msgs   []kafka.Message
	errs   []error
	closed bool
}

func (s *stubSource) StartConsuming(ctx context.Context, handler broker.MessageHandler) error {
	for _, msg := range s.msgs {
		s.errs = append(s.errs, handler(ctx, msg))
	}
	return nil
}

func (s *stubSource) Close() error {
	s.closed = true
	return nil
}

func TestQueueWorkerRefreshesOnQueueEvents(t *testing.T) {
	refresher := new(mockRefresher)
	refresher.On("RefreshQueueCache", mock.Anything, "session-1").Return([]models.SongQueueEntry{{ID: "e1"}}, nil).Twice()

	source := &stubSource{msgs: []kafka.Message{
		{Value: []byte(`{"event_type":"SONG_QUEUED","session_id":"session-1"}`)},
		{Value: []byte(`{"event_type":"TIP_SUCCEEDED","artist_id":"artist-1"}`)},
		{Value: []byte(`{"event_type":"QUEUE_ENTRY_UPDATED","session_id":"session-1","status":"playing"}`)},
	}}
	w := NewQueueWorker(source, refresher)

	require.NoError(t, w.Start(context.Background()))
	for _, err := range source.errs {
		assert.NoError(t, err)
	}
	refresher.AssertExpectations(t)

	require.NoError(t, w.Stop())
	assert.True(t, source.closed)
}

func TestQueueWorkerReturnsRefreshError(t *testing.T) {
	refresher := new(mockRefresher)
	refresher.On("RefreshQueueCache", mock.Anything, "session-1").Return(nil, errors.New("db down"))
	w := NewQueueWorker(&stubSource{}, refresher)

	err := w.HandleMessage(context.Background(), kafka.Message{
		Value: []byte(`{"event_type":"SONG_QUEUED","session_id":"session-1"}`),
	})

	assert.Error(t, err, "uncommitted so the message is retried")
}
