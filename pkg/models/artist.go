package models

import (
	"strings"
	"time"
)

// Category is the display classification of an artist.
// The empty value means the artist has not been classified.
type Category string

const (
	CategoryDJ            Category = "DJ"
	CategoryGroup         Category = "Group"
	CategoryUncategorized Category = ""
)

// UncategorizedLabel is how an unset category is rendered to consumers.
const UncategorizedLabel = "Uncategorized"

// ParseCategory maps a client value to a Category. "Groupe" is the legacy
// client spelling of Group; null, "" and "Uncategorized" clear the category.
func ParseCategory(s *string) (Category, bool) {
	if s == nil {
		return CategoryUncategorized, true
	}
	switch strings.ToLower(strings.TrimSpace(*s)) {
	case "dj":
		return CategoryDJ, true
	case "group", "groupe":
		return CategoryGroup, true
	case "", "uncategorized", "none":
		return CategoryUncategorized, true
	}
	return "", false
}

// Label returns the category as displayed, never empty.
func (c Category) Label() string {
	if c == CategoryUncategorized {
		return UncategorizedLabel
	}
	return string(c)
}

// Artist is an artist account joined with its profile.
type Artist struct {
	ID        string    `json:"id" db:"id"`
	Email     string    `json:"email" db:"email"`
	StageName string    `json:"stage_name" db:"stage_name"`
	Phone     string    `json:"phone,omitempty" db:"phone"`
	Link      string    `json:"link,omitempty" db:"link"`
	Category  Category  `json:"category" db:"category"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// DisplayName falls back to the email local part when no stage name is set.
func (a *Artist) DisplayName() string {
	if strings.TrimSpace(a.StageName) != "" {
		return a.StageName
	}
	if i := strings.Index(a.Email, "@"); i > 0 {
		return a.Email[:i]
	}
	return a.Email
}

// ArtistProfileRequest is the payload an artist sends to edit its own profile.
type ArtistProfileRequest struct {
	StageName string `json:"stage_name" validate:"required,max=120"`
	Phone     string `json:"phone" validate:"omitempty,max=40"`
	Link      string `json:"link" validate:"omitempty,url,max=500"`
}

// CategoryRequest is the admin payload for PATCH /artists/{id}/category.
type CategoryRequest struct {
	Category *string `json:"category"`
}
