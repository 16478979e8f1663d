// Package trigger announces identifier changes to streaming consumers.
package trigger

import (
	"context"
	"errors"
)

// Event types.
const (
	TypeIdentifiers    = "identifiers.written"
	TypeRecordDeleted  = "record.deleted"
	TypeFramesReloaded = "frames.reloaded"
)

// Event is one notification. For TypeIdentifiers, Payload holds the
// IdentifierOnly export of the identifiers just written, one per line.
type Event struct {
	Type           string `json:"type"`
	RecordID       string `json:"record_id,omitempty"`
	Payload        string `json:"payload,omitempty"`
	FramesChecksum string `json:"frames_checksum,omitempty"`
}

// Publisher delivers events. Implementations own their own backpressure.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, ev Event) error

func (f PublisherFunc) Publish(ctx context.Context, ev Event) error { return f(ctx, ev) }

// Fanout delivers every event to each publisher in turn. All publishers are
// attempted; their errors are joined.
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, ev Event) error {
	var errs []error
	for _, p := range f {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Nop discards events.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
