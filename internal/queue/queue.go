// Package queue runs the event pipeline off the caller's hot path: events
// are published non-blocking onto a bounded channel and a single worker
// sanitizes, bounds, and exports them in order. Overflow drops the event
// with a debug-log line; instrumentation must never stall the server.
package queue

import (
	"sync"

	"github.com/mcptap/mcptap/internal/debuglog"
	"github.com/mcptap/mcptap/internal/event"
	"github.com/mcptap/mcptap/internal/export"
	"github.com/mcptap/mcptap/internal/sanitize"
	"github.com/mcptap/mcptap/internal/truncate"
)

// Queue is the async event pipeline.
type Queue struct {
	ch        chan *event.UnredactedEvent
	exporters []export.Exporter
	log       *debuglog.Logger
	projectID string

	wg   sync.WaitGroup
	once sync.Once
}

// New creates a queue with the given buffer size and starts its worker.
func New(size int, projectID string, log *debuglog.Logger, exporters ...export.Exporter) *Queue {
	if size <= 0 {
		size = 256
	}
	if log == nil {
		log = debuglog.Nop()
	}
	q := &Queue{
		ch:        make(chan *event.UnredactedEvent, size),
		exporters: exporters,
		log:       log,
		projectID: projectID,
	}
	q.wg.Add(1)
	go q.worker()
	return q
}

// Publish enqueues an event without blocking. Returns false when the queue
// is full and the event was dropped.
func (q *Queue) Publish(ev *event.UnredactedEvent) bool {
	if ev == nil {
		return false
	}
	select {
	case q.ch <- ev:
		return true
	default:
		q.log.Printf("queue: full, dropping event %s", ev.EventType)
		return false
	}
}

// Close stops accepting events, drains the queue, and closes every exporter.
func (q *Queue) Close() {
	q.once.Do(func() {
		close(q.ch)
		q.wg.Wait()
		for _, e := range q.exporters {
			if err := e.Close(); err != nil {
				q.log.Printf("queue: exporter close: %v", err)
			}
		}
	})
}

func (q *Queue) worker() {
	defer q.wg.Done()
	for ev := range q.ch {
		q.process(ev)
	}
}

// process runs one event through the pipeline: sanitize, then truncate,
// then export. Sanitization must come first so the byte budget is not spent
// truncating data a short marker replaces anyway.
func (q *Queue) process(ev *event.UnredactedEvent) {
	if ev.ID == "" {
		ev.ID = event.NewEventID()
	}
	if ev.Timestamp == "" {
		ev.Timestamp = event.UTCNowISO()
	}
	if ev.ProjectID == "" {
		ev.ProjectID = q.projectID
	}

	redacted := sanitize.Event(ev)
	bounded := truncate.Event(redacted, q.log)

	for _, e := range q.exporters {
		if err := e.Export(&bounded.Event); err != nil {
			q.log.Printf("queue: export event %s: %v", bounded.ID, err)
		}
	}
}
