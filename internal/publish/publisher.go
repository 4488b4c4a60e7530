// Package publish is the outbound boundary: canonical records leave the
// process here as (subject, flat field map) pairs. Failures are logged and
// counted, never fed back into pipeline or engine state.
package publish

import (
	"context"
	"sync"

	"canonflow/internal/canonical"
)

// Publisher delivers one flattened record under its subject.
type Publisher interface {
	Publish(ctx context.Context, subject string, fields map[string]string) error
	Close() error
}

// Message is a published (subject, fields) pair captured by MemoryPublisher.
type Message struct {
	Subject string
	Fields  map[string]string
}

// MemoryPublisher collects published messages in memory. Used by tests and
// dry runs.
type MemoryPublisher struct {
	mu       sync.Mutex
	messages []Message
}

func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{}
}

func (p *MemoryPublisher) Publish(_ context.Context, subject string, fields map[string]string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, Message{Subject: subject, Fields: fields})
	return nil
}

func (p *MemoryPublisher) Close() error { return nil }

// Messages returns a copy of everything published so far.
func (p *MemoryPublisher) Messages() []Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Message(nil), p.messages...)
}

// SubjectFor derives the publication subject for rec, with an optional dotted
// prefix in front of the record's own hierarchy.
func SubjectFor(rec canonical.Record, prefix string) string {
	subject := canonical.Subject(rec)
	if prefix != "" {
		return prefix + "." + subject
	}
	return subject
}
