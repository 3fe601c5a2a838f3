package domain

import "time"

// Domain contains core models shared by the monitor and publishers.

// Source is the part of an External Data Source the monitor tracks.
type Source struct {
	Context     string
	URL         string
	EDSType     string
	ContentType string
}

// SourceChange records that a source's Last-Modified stamp moved forward.
type SourceChange struct {
	ID           string
	Source       Source
	Previous     time.Time
	LastModified time.Time
	DetectedAt   time.Time
	Refreshed    bool
}
