package model

import "time"

// Event is the display-ready view of a VEVENT (or of one of its recurrence
// overrides) as published by the feed cache.
type Event struct {
	UID     string `json:"uid"`
	Summary string `json:"summary"`

	Start time.Time `json:"start"`
	// End is zero when the component had no decodable DTEND.
	End time.Time `json:"end"`

	// BusyStatus carries X-MICROSOFT-CDO-BUSYSTATUS (FREE, TENTATIVE,
	// BUSY, OOF) when present.
	BusyStatus string `json:"busyStatus,omitempty"`
}

// Status is the state of the last fetch cycle.
type Status string

const (
	StatusUnset   Status = ""
	StatusLoading Status = "loading"
	StatusLoaded  Status = "loaded"
	StatusError   Status = "error"
	StatusInvalid Status = "invalid"
)

// Snapshot is a copy of the feed cache state.
type Snapshot struct {
	Version uint64  `json:"version"`
	Status  Status  `json:"status"`
	Events  []Event `json:"events"`
	// Source is the URL the events were computed from.
	Source    string    `json:"source,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}
