package publishers

import (
	"time"

	"github.com/samvad-hq/overlod-admin/internal/domain"
)

// EventTypeSourceChanged is the only event type emitted today.
const EventTypeSourceChanged = "eds.source.changed"

// Event represents the payload published downstream.
type Event struct {
	ID           string     `json:"id"`
	Type         string     `json:"type"`
	Context      string     `json:"context"`
	SourceURL    string     `json:"source_url"`
	EDSType      string     `json:"eds_type,omitempty"`
	ContentType  string     `json:"content_type,omitempty"`
	Previous     *time.Time `json:"previous_last_modified,omitempty"`
	LastModified time.Time  `json:"last_modified"`
	DetectedAt   time.Time  `json:"detected_at"`
	Refreshed    bool       `json:"refreshed"`
}

// NewEvent constructs an Event for a detected source change.
func NewEvent(change domain.SourceChange) Event {
	evt := Event{
		ID:           change.ID,
		Type:         EventTypeSourceChanged,
		Context:      change.Source.Context,
		SourceURL:    change.Source.URL,
		EDSType:      change.Source.EDSType,
		ContentType:  change.Source.ContentType,
		LastModified: change.LastModified.UTC(),
		DetectedAt:   change.DetectedAt.UTC(),
		Refreshed:    change.Refreshed,
	}
	if !change.Previous.IsZero() {
		prev := change.Previous.UTC()
		evt.Previous = &prev
	}
	if evt.DetectedAt.IsZero() {
		evt.DetectedAt = time.Now().UTC()
	}
	return evt
}

// Attributes are the routing keys copied onto broker message metadata.
func (e Event) Attributes() map[string]string {
	return map[string]string{
		"event_type": e.Type,
		"context":    e.Context,
	}
}
