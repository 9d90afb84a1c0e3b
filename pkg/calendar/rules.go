package calendar

import (
	"regexp"
	"unicode/utf8"

	"artist-calendar-backend/pkg/apperr"
	"artist-calendar-backend/pkg/config"
	"artist-calendar-backend/pkg/models"
)

var colorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// DefaultColor is the availability color used when the client sends none.
const DefaultColor = "#3b82f6"

// parseDate turns client input into a Date or a ValidationError.
func parseDate(s string) (models.Date, error) {
	d, err := models.ParseDate(s)
	if err != nil {
		return models.Date{}, apperr.Validation("%s", err.Error())
	}
	return d, nil
}

func validateNote(note string, rules config.Rules) error {
	if n := utf8.RuneCountInString(note); n > rules.NoteMaxLength {
		return apperr.Validation("note must be at most %d characters (got %d)", rules.NoteMaxLength, n)
	}
	return nil
}

func validateColor(color string) error {
	if color != "" && !colorPattern.MatchString(color) {
		return apperr.Validation("color must be a #RRGGBB hex value")
	}
	return nil
}

// checkEditable enforces today <= date <= today + horizon.
func checkEditable(date, today models.Date, rules config.Rules) error {
	if date.Before(today) {
		return apperr.ErrPastDate
	}
	if date.After(today.AddMonths(rules.HorizonMonths)) {
		return apperr.ErrHorizonExceeded
	}
	return nil
}

// checkNotPast enforces date >= today.
func checkNotPast(date, today models.Date) error {
	if date.Before(today) {
		return apperr.ErrPastDate
	}
	return nil
}

// DefaultRange is the window shown when the client gives no bounds: the
// start of the previous month through the editing horizon.
func DefaultRange(today models.Date, rules config.Rules) (models.Date, models.Date) {
	y, m, _ := today.Time().Date()
	start := models.NewDate(y, m, 1).AddMonths(-1)
	return start, today.AddMonths(rules.HorizonMonths)
}

// ResolveRange parses optional range bounds, filling missing ones from
// DefaultRange, and rejects inverted or oversized ranges.
func ResolveRange(startRaw, endRaw string, today models.Date, rules config.Rules) (models.Date, models.Date, error) {
	start, end := DefaultRange(today, rules)
	var err error
	if startRaw != "" {
		if start, err = parseDate(startRaw); err != nil {
			return models.Date{}, models.Date{}, err
		}
	}
	if endRaw != "" {
		if end, err = parseDate(endRaw); err != nil {
			return models.Date{}, models.Date{}, err
		}
	}
	if end.Before(start) {
		return models.Date{}, models.Date{}, apperr.Validation("start_date must not be after end_date")
	}
	if span := start.DaysUntil(end); span > rules.MaxRangeDays {
		return models.Date{}, models.Date{}, apperr.Validation("range spans %d days, at most %d allowed", span, rules.MaxRangeDays)
	}
	return start, end, nil
}
