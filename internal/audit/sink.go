package audit

import (
	"sync"
	"time"

	"github.com/paiecashplay/oauth-core/pkg/logger"
)

// Event types emitted by the authorization flow.
const (
	EventCodeIssued      = "oauth_code_issued"
	EventTokensIssued    = "oauth_tokens_issued"
	EventTokensRefreshed = "oauth_tokens_refreshed"
	EventTokenRevoked    = "oauth_token_revoked"
	EventInvalidGrant    = "oauth_invalid_grant"
	EventInvalidClient   = "oauth_invalid_client"
	EventInvalidScope    = "oauth_invalid_scope"
)

// Event is a structured audit record for one state transition. Token and
// code material must only ever appear as truncated prefixes.
type Event struct {
	Type        string
	ClientID    string
	UserID      string
	Scope       string
	GrantType   string
	CredPrefix  string
	Description string
	At          time.Time
}

// Sink receives audit events. Implementations must never block or fail the
// primary flow.
type Sink interface {
	Emit(event Event)
	Close() error
}

// Prefix truncates a credential to the first 8 characters for safe logging.
func Prefix(value string) string {
	if len(value) <= 8 {
		return value
	}
	return value[:8]
}

// AsyncSink buffers events on a channel and writes them out from a worker
// goroutine. Emit never blocks; when the buffer is full the event is
// dropped and counted.
type AsyncSink struct {
	log      logger.Logger
	buffer   chan Event
	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once

	mu      sync.Mutex
	dropped int64
}

// NewAsyncSink creates a sink that writes events to the structured logger.
func NewAsyncSink(log logger.Logger, bufferSize int) *AsyncSink {
	if bufferSize <= 0 {
		bufferSize = 1000
	}
	s := &AsyncSink{
		log:    log.With(logger.Component("audit")),
		buffer: make(chan Event, bufferSize),
		done:   make(chan struct{}),
	}
	s.wg.Add(1)
	go s.worker()
	return s
}

// Emit queues an event for async writing.
func (s *AsyncSink) Emit(event Event) {
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}
	select {
	case s.buffer <- event:
	default:
		// Buffer full, drop the event rather than stall a request
		s.mu.Lock()
		s.dropped++
		s.mu.Unlock()
	}
}

// Close stops the worker and flushes remaining events.
func (s *AsyncSink) Close() error {
	s.stopOnce.Do(func() {
		close(s.done)
		s.wg.Wait()
	})
	return nil
}

// Dropped returns the number of events discarded due to a full buffer.
func (s *AsyncSink) Dropped() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

func (s *AsyncSink) worker() {
	defer s.wg.Done()

	for {
		select {
		case event := <-s.buffer:
			s.write(event)
		case <-s.done:
			// Drain remaining events
			for {
				select {
				case event := <-s.buffer:
					s.write(event)
				default:
					return
				}
			}
		}
	}
}

func (s *AsyncSink) write(event Event) {
	fields := []logger.Field{
		logger.String("event", event.Type),
		logger.Time("at", event.At),
	}
	if event.ClientID != "" {
		fields = append(fields, logger.ClientID(event.ClientID))
	}
	if event.UserID != "" {
		fields = append(fields, logger.UserID(event.UserID))
	}
	if event.Scope != "" {
		fields = append(fields, logger.String("scope", event.Scope))
	}
	if event.GrantType != "" {
		fields = append(fields, logger.String("grant_type", event.GrantType))
	}
	if event.CredPrefix != "" {
		fields = append(fields, logger.String("cred_prefix", event.CredPrefix))
	}
	if event.Description != "" {
		fields = append(fields, logger.String("description", event.Description))
	}
	s.log.Info("audit event", fields...)
}

// NopSink discards all events.
type NopSink struct{}

func (NopSink) Emit(Event) {}

func (NopSink) Close() error { return nil }
