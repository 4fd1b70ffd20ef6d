// Package audit provides AuditSink implementations. The log sink is
// asynchronous and lossy under pressure: Append never blocks the message
// path, and events are dropped once the buffer is full.
package audit

import (
	"sync"

	"github.com/sirupsen/logrus"

	"agentwire/internal/domain"
)

const defaultBuffer = 1024

// Noop discards every event.
type Noop struct{}

// Append implements domain.AuditSink.
func (Noop) Append(domain.AuditEvent) {}

var _ domain.AuditSink = Noop{}

// Log writes events through logrus on a background goroutine.
type Log struct {
	log  *logrus.Entry
	ch   chan domain.AuditEvent
	done chan struct{}
	once sync.Once

	mu      sync.Mutex
	dropped uint64
}

// NewLog starts the sink. Close releases it.
func NewLog(log *logrus.Entry) *Log {
	s := &Log{
		log:  log,
		ch:   make(chan domain.AuditEvent, defaultBuffer),
		done: make(chan struct{}),
	}
	go s.run()
	return s
}

var _ domain.AuditSink = (*Log)(nil)

// Append enqueues the event, dropping it if the buffer is full.
func (s *Log) Append(ev domain.AuditEvent) {
	select {
	case s.ch <- ev:
	default:
		s.mu.Lock()
		s.dropped++
		s.mu.Unlock()
	}
}

// Dropped reports how many events were discarded under pressure.
func (s *Log) Dropped() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

// Close stops the sink after draining buffered events.
func (s *Log) Close() {
	s.once.Do(func() {
		close(s.ch)
		<-s.done
	})
}

func (s *Log) run() {
	defer close(s.done)
	for ev := range s.ch {
		s.log.WithFields(logrus.Fields{
			"type":    ev.Type,
			"agent":   ev.Agent,
			"peer":    ev.Peer,
			"message": ev.Message,
			"detail":  ev.Detail,
		}).Warn("audit event")
	}
}
