package models

import "time"

// BlockedDate removes a calendar day from availability for every artist.
type BlockedDate struct {
	ID        string    `json:"id" db:"id"`
	Date      Date      `json:"date" db:"date"`
	Note      string    `json:"note,omitempty" db:"note"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// BlockedDateRequest is the payload of POST /blocked-dates.
type BlockedDateRequest struct {
	Date string `json:"date" validate:"required"`
	Note string `json:"note"`
}

// BlockedDateUpdateRequest is the payload of PUT /blocked-dates/{id}.
type BlockedDateUpdateRequest struct {
	Note string `json:"note"`
}

// RecurringBlockRequest blocks every occurrence of an RFC 5545 RRULE.
type RecurringBlockRequest struct {
	RRule string `json:"rrule" validate:"required"`
	Note  string `json:"note"`
}
