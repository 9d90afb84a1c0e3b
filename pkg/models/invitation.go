package models

import "time"

type InvitationStatus string

const (
	InvitationSent     InvitationStatus = "sent"
	InvitationAccepted InvitationStatus = "accepted"
	InvitationExpired  InvitationStatus = "expired"
)

// Invitation gates the creation of one artist account.
// The stored status is only ever sent or accepted; expired is derived on read.
type Invitation struct {
	ID         string           `json:"id" db:"id"`
	Email      string           `json:"email" db:"email"`
	Token      string           `json:"token" db:"token"`
	Status     InvitationStatus `json:"status" db:"status"`
	ExpiresAt  time.Time        `json:"expires_at" db:"expires_at"`
	AcceptedBy *string          `json:"accepted_by,omitempty" db:"accepted_by"`
	CreatedAt  time.Time        `json:"created_at" db:"created_at"`
}

// EffectiveStatus derives expiry from the clock instead of a stored transition.
func (inv *Invitation) EffectiveStatus(now time.Time) InvitationStatus {
	if inv.Status == InvitationSent && !now.Before(inv.ExpiresAt) {
		return InvitationExpired
	}
	return inv.Status
}

// Usable reports whether the invitation can still be consumed at now.
func (inv *Invitation) Usable(now time.Time) bool {
	return inv.EffectiveStatus(now) == InvitationSent
}

// InvitationCreateRequest is the payload of POST /invitations.
type InvitationCreateRequest struct {
	Email string `json:"email" validate:"required,email"`
}
