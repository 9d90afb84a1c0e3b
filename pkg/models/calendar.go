package models

// EntryKind tags the CalendarEntry union.
type EntryKind string

const (
	EntryBlocked      EntryKind = "blocked"
	EntryAvailability EntryKind = "availability"
)

// CalendarEntry is one renderable fact of the reconciled calendar: either a
// fleet-wide block or one artist being available on a day.
type CalendarEntry struct {
	Kind EntryKind `json:"kind"`
	Date Date      `json:"date"`
	Note string    `json:"note,omitempty"`

	// blocked
	BlockedID string `json:"blocked_id,omitempty"`

	// availability
	ArtistID   string `json:"artist_id,omitempty"`
	ArtistName string `json:"artist_name,omitempty"`
	Category   string `json:"category,omitempty"`
	Color      string `json:"color,omitempty"`
	ReadOnly   bool   `json:"read_only,omitempty"`
}

// IsBlocked reports whether the entry is the Blocked variant.
func (e CalendarEntry) IsBlocked() bool { return e.Kind == EntryBlocked }

// ArtistOnDate answers "who is free on this day".
type ArtistOnDate struct {
	ArtistID   string `json:"artist_id"`
	ArtistName string `json:"artist_name"`
	Category   string `json:"category"`
	Note       string `json:"note,omitempty"`
	Color      string `json:"color,omitempty"`
}

// DayAvailability is the point query result for a single date.
type DayAvailability struct {
	Date    Date           `json:"date"`
	Blocked *BlockedDate   `json:"blocked,omitempty"`
	Artists []ArtistOnDate `json:"artists"`
}
