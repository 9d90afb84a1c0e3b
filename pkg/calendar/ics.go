package calendar

import (
	"fmt"
	"time"

	ics "github.com/arran4/golang-ical"

	"artist-calendar-backend/pkg/models"
)

const icsProductID = "-//easybookevent//artist-calendar//EN"

// RenderICS writes entries as an iCalendar feed, one all-day VEVENT each.
func RenderICS(entries []models.CalendarEntry, stamp time.Time) []byte {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(icsProductID)
	cal.SetName("Artist availability")

	for _, e := range entries {
		var uid, summary string
		if e.IsBlocked() {
			uid = fmt.Sprintf("blocked-%s@artist-calendar", e.BlockedID)
			summary = "Blocked"
			if e.Note != "" {
				summary += ": " + e.Note
			}
		} else {
			uid = fmt.Sprintf("availability-%s-%s@artist-calendar", e.ArtistID, e.Date)
			summary = fmt.Sprintf("%s (%s)", e.ArtistName, e.Category)
		}

		ev := cal.AddEvent(uid)
		ev.SetDtStampTime(stamp.UTC())
		ev.SetAllDayStartAt(e.Date.Time())
		ev.SetAllDayEndAt(e.Date.AddDays(1).Time())
		ev.SetSummary(summary)
		if e.Note != "" && !e.IsBlocked() {
			ev.SetDescription(e.Note)
		}
	}
	return []byte(cal.Serialize())
}
