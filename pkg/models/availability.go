package models

import "time"

// ToggleAction reports what a toggle actually did.
type ToggleAction string

const (
	ToggleAdded   ToggleAction = "added"
	ToggleRemoved ToggleAction = "removed"
)

// AvailabilityDay marks one artist as bookable on one calendar day.
// (ArtistID, Date) is unique.
type AvailabilityDay struct {
	ID        string    `json:"id" db:"id"`
	ArtistID  string    `json:"artist_id" db:"artist_id"`
	Date      Date      `json:"date" db:"date"`
	Note      string    `json:"note,omitempty" db:"note"`
	Color     string    `json:"color,omitempty" db:"color"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// joined from the artist record on reads
	ArtistName string   `json:"artist_name,omitempty" db:"artist_name"`
	Category   Category `json:"category,omitempty" db:"category"`
}

// ToggleRequest is the payload of POST /availability-days/toggle.
type ToggleRequest struct {
	Date  string `json:"date" validate:"required"`
	Note  string `json:"note"`
	Color string `json:"color" validate:"omitempty,hexcolor"`
}

// AvailabilityNoteRequest is the payload of PUT /availability-days/{date}.
type AvailabilityNoteRequest struct {
	Note  string `json:"note"`
	Color string `json:"color" validate:"omitempty,hexcolor"`
}

// AvailabilityFilter narrows availability range reads.
// An empty ArtistID means every artist.
type AvailabilityFilter struct {
	ArtistID string
	Start    Date
	End      Date
}
