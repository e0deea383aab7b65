package audit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paiecashplay/oauth-core/pkg/logger"
)

func newTestLogger(t *testing.T) logger.Logger {
	t.Helper()
	log, err := logger.New(logger.Config{Level: "error", Environment: "development", EnableConsole: true})
	require.NoError(t, err)
	return log
}

func TestPrefix(t *testing.T) {
	assert.Equal(t, "abcd", Prefix("abcd"))
	assert.Equal(t, "abcdefgh", Prefix("abcdefgh"))
	assert.Equal(t, "abcdefgh", Prefix("abcdefghijklmnop"))
}

func TestAsyncSink(t *testing.T) {
	t.Run("emit and close drain cleanly", func(t *testing.T) {
		sink := NewAsyncSink(newTestLogger(t), 16)

		for i := 0; i < 10; i++ {
			sink.Emit(Event{Type: EventTokensIssued, ClientID: "web-app"})
		}

		require.NoError(t, sink.Close())
		assert.Equal(t, int64(0), sink.Dropped())
	})

	t.Run("full buffer drops instead of blocking", func(t *testing.T) {
		log := newTestLogger(t)
		sink := &AsyncSink{
			log:    log,
			buffer: make(chan Event, 1),
			done:   make(chan struct{}),
		}
		// No worker running: the second emit must not block
		sink.Emit(Event{Type: EventCodeIssued})
		sink.Emit(Event{Type: EventCodeIssued})

		assert.Equal(t, int64(1), sink.Dropped())
	})

	t.Run("close is idempotent", func(t *testing.T) {
		sink := NewAsyncSink(newTestLogger(t), 16)
		require.NoError(t, sink.Close())
		require.NoError(t, sink.Close())
	})
}
