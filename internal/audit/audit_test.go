package audit_test

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"agentwire/internal/audit"
	"agentwire/internal/domain"
)

func TestLog_AppendNeverBlocks(t *testing.T) {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	sink := audit.NewLog(logrus.NewEntry(log))
	defer sink.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		// Far more events than the buffer holds; Append must return
		// immediately regardless, dropping under pressure.
		for i := 0; i < 100000; i++ {
			sink.Append(domain.AuditEvent{Type: "flood", Time: time.Now()})
		}
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Append blocked the producer")
	}
}

func TestLog_CloseIsIdempotent(t *testing.T) {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	sink := audit.NewLog(logrus.NewEntry(log))
	sink.Append(domain.AuditEvent{Type: "one"})
	sink.Close()
	sink.Close()
}
