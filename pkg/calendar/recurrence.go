package calendar

import (
	"strings"

	"github.com/teambition/rrule-go"

	"artist-calendar-backend/pkg/apperr"
	"artist-calendar-backend/pkg/models"
)

// maxRecurrenceSteps bounds iteration for sub-daily frequencies.
const maxRecurrenceSteps = 100000

// normalizeRRule accepts both the single line "DTSTART=...;FREQ=..." form and
// the RFC 5545 two line "DTSTART:...\nRRULE:..." form.
func normalizeRRule(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == '\n' || r == ';' })
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		upper := strings.ToUpper(p)
		switch {
		case p == "":
			continue
		case strings.HasPrefix(upper, "RRULE:"):
			p = p[len("RRULE:"):]
		case strings.HasPrefix(upper, "DTSTART:"):
			p = "DTSTART=" + p[len("DTSTART:"):]
		}
		out = append(out, p)
	}
	return strings.Join(out, ";")
}

// expandRecurrence returns the distinct days of rule within [from, until].
// The rule must carry DTSTART and may not yield more than max days.
func expandRecurrence(raw string, from, until models.Date, max int) ([]models.Date, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, apperr.Validation("rrule is required")
	}
	opt, err := rrule.StrToROption(normalizeRRule(raw))
	if err != nil {
		return nil, apperr.Validation("invalid rrule: %s", err.Error())
	}
	if opt.Dtstart.IsZero() {
		return nil, apperr.Validation("rrule must include DTSTART")
	}
	r, err := rrule.NewRRule(*opt)
	if err != nil {
		return nil, apperr.Validation("invalid rrule: %s", err.Error())
	}

	var (
		dates []models.Date
		seen  = make(map[string]bool)
		next  = r.Iterator()
	)
	for step := 0; step < maxRecurrenceSteps; step++ {
		t, ok := next()
		if !ok {
			break
		}
		d := models.NewDate(t.Year(), t.Month(), t.Day())
		if d.After(until) {
			break
		}
		if d.Before(from) || seen[d.String()] {
			continue
		}
		seen[d.String()] = true
		dates = append(dates, d)
		if len(dates) > max {
			return nil, apperr.Validation("rrule yields more than %d dates before the horizon", max)
		}
	}
	if len(dates) == 0 {
		return nil, apperr.Validation("rrule has no occurrence between %s and %s", from, until)
	}
	return dates, nil
}
