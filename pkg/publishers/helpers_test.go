package publishers

import (
	"time"

	"github.com/samvad-hq/overlod-admin/internal/domain"
)

func testEvent() Event {
	return NewEvent(domain.SourceChange{
		ID: "evt-1",
		Source: domain.Source{
			Context: "http://example.org/graph/people",
			URL:     "http://example.org/people.ttl",
			EDSType: "WebRDFFile",
		},
		Previous:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		LastModified: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		DetectedAt:   time.Date(2024, 2, 1, 1, 0, 0, 0, time.UTC),
	})
}
