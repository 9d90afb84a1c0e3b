package calendar

import (
	"sort"
	"strings"

	"artist-calendar-backend/pkg/models"
)

// Scope decides whose availability a reader sees. Blocks are always visible.
type Scope struct {
	Admin    bool
	ArtistID string
	// Category, when set, keeps only availability of artists in that bucket.
	Category *models.Category
}

// AdminScope sees every artist.
func AdminScope() Scope { return Scope{Admin: true} }

// ArtistScope sees only the given artist's days.
func ArtistScope(artistID string) Scope { return Scope{ArtistID: artistID} }

// WithCategory returns a copy of s filtered to category c.
func (s Scope) WithCategory(c models.Category) Scope {
	s.Category = &c
	return s
}

func (s Scope) sees(d models.AvailabilityDay) bool {
	if !s.Admin && d.ArtistID != s.ArtistID {
		return false
	}
	if s.Category != nil && d.Category != *s.Category {
		return false
	}
	return true
}

// Project merges availability and blocks into the renderable calendar for
// [start, end]. A blocked date yields one Blocked entry followed by any
// availability still recorded on it; the block is informational, not a
// filter. Availability before today is marked read-only but kept.
func Project(days []models.AvailabilityDay, blocks []models.BlockedDate, start, end, today models.Date, scope Scope) []models.CalendarEntry {
	inRange := func(d models.Date) bool { return !d.Before(start) && !d.After(end) }

	entries := make([]models.CalendarEntry, 0, len(days)+len(blocks))
	seenBlock := make(map[string]bool, len(blocks))
	for _, b := range blocks {
		key := b.Date.String()
		if !inRange(b.Date) || seenBlock[key] {
			continue
		}
		seenBlock[key] = true
		entries = append(entries, models.CalendarEntry{
			Kind:      models.EntryBlocked,
			Date:      b.Date,
			Note:      b.Note,
			BlockedID: b.ID,
		})
	}
	for _, d := range days {
		if !inRange(d.Date) || !scope.sees(d) {
			continue
		}
		entries = append(entries, models.CalendarEntry{
			Kind:       models.EntryAvailability,
			Date:       d.Date,
			Note:       d.Note,
			ArtistID:   d.ArtistID,
			ArtistName: d.ArtistName,
			Category:   d.Category.Label(),
			Color:      d.Color,
			ReadOnly:   d.Date.Before(today),
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if c := a.Date.Compare(b.Date); c != 0 {
			return c < 0
		}
		if a.IsBlocked() != b.IsBlocked() {
			return a.IsBlocked()
		}
		na, nb := strings.ToLower(a.ArtistName), strings.ToLower(b.ArtistName)
		if na != nb {
			return na < nb
		}
		return a.ArtistID < b.ArtistID
	})
	return entries
}

// artistsOnDate builds the point query answer from one day's availability.
func artistsOnDate(days []models.AvailabilityDay) []models.ArtistOnDate {
	out := make([]models.ArtistOnDate, 0, len(days))
	for _, d := range days {
		out = append(out, models.ArtistOnDate{
			ArtistID:   d.ArtistID,
			ArtistName: d.ArtistName,
			Category:   d.Category.Label(),
			Note:       d.Note,
			Color:      d.Color,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		ni, nj := strings.ToLower(out[i].ArtistName), strings.ToLower(out[j].ArtistName)
		if ni != nj {
			return ni < nj
		}
		return out[i].ArtistID < out[j].ArtistID
	})
	return out
}
