package calendar

import (
	"errors"
	"fmt"
	"testing"

	"artist-calendar-backend/pkg/apperr"
	"artist-calendar-backend/pkg/config"
	"artist-calendar-backend/pkg/models"
)

func avail(artistID, name string, cat models.Category, date string) models.AvailabilityDay {
	return models.AvailabilityDay{
		ID:         artistID + date,
		ArtistID:   artistID,
		ArtistName: name,
		Category:   cat,
		Date:       models.MustParseDate(date),
	}
}

func describe(entries []models.CalendarEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsBlocked() {
			out = append(out, fmt.Sprintf("%s blocked %q", e.Date, e.Note))
			continue
		}
		ro := ""
		if e.ReadOnly {
			ro = " ro"
		}
		out = append(out, fmt.Sprintf("%s %s/%s%s", e.Date, e.ArtistName, e.Category, ro))
	}
	return out
}

func TestProjectOrderingAndFlags(t *testing.T) {
	days := []models.AvailabilityDay{
		avail("z", "zoe", models.CategoryDJ, "2025-06-11"),
		avail("b", "Bob", models.CategoryUncategorized, "2025-06-11"),
		avail("a", "alice", models.CategoryGroup, "2025-06-09"),
		avail("b", "Bob", models.CategoryUncategorized, "2025-06-30"),
	}
	blocks := []models.BlockedDate{
		{ID: "k1", Date: models.MustParseDate("2025-06-11"), Note: "Gala"},
		{ID: "k1", Date: models.MustParseDate("2025-06-11"), Note: "Gala"},
		{ID: "k2", Date: models.MustParseDate("2025-07-01")},
	}

	got := describe(Project(days, blocks,
		models.MustParseDate("2025-06-01"), models.MustParseDate("2025-06-30"),
		models.MustParseDate("2025-06-10"), AdminScope()))

	want := []string{
		"2025-06-09 alice/Group ro",
		`2025-06-11 blocked "Gala"`,
		"2025-06-11 Bob/Uncategorized",
		"2025-06-11 zoe/DJ",
		"2025-06-30 Bob/Uncategorized",
	}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("got  %q\nwant %q", got, want)
	}
}

func TestProjectScopes(t *testing.T) {
	days := []models.AvailabilityDay{
		avail("a", "alice", models.CategoryDJ, "2025-06-12"),
		avail("b", "bob", models.CategoryGroup, "2025-06-12"),
	}
	blocks := []models.BlockedDate{{ID: "k", Date: models.MustParseDate("2025-06-13")}}
	start, end, today := models.MustParseDate("2025-06-01"), models.MustParseDate("2025-06-30"), models.MustParseDate("2025-06-10")

	tests := []struct {
		name  string
		scope Scope
		want  []string
	}{
		{"artist sees own days and all blocks", ArtistScope("b"), []string{"2025-06-12 bob/Group", `2025-06-13 blocked ""`}},
		{"category filter keeps blocks", AdminScope().WithCategory(models.CategoryDJ), []string{"2025-06-12 alice/DJ", `2025-06-13 blocked ""`}},
		{"uncategorized filter", AdminScope().WithCategory(models.CategoryUncategorized), []string{`2025-06-13 blocked ""`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := describe(Project(days, blocks, start, end, today, tt.scope))
			if fmt.Sprint(got) != fmt.Sprint(tt.want) {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestArtistsOnDateSortedByName(t *testing.T) {
	got := artistsOnDate([]models.AvailabilityDay{
		avail("2", "Zed", models.CategoryDJ, "2025-06-12"),
		avail("1", "amy", models.CategoryUncategorized, "2025-06-12"),
	})
	if len(got) != 2 || got[0].ArtistName != "amy" || got[0].Category != models.UncategorizedLabel {
		t.Errorf("got %+v", got)
	}
}

func TestResolveRange(t *testing.T) {
	rules := config.DefaultRules()
	today := models.MustParseDate("2025-06-10")

	start, end, err := ResolveRange("", "", today, rules)
	if err != nil {
		t.Fatal(err)
	}
	if start.String() != "2025-05-01" || end.String() != "2026-12-10" {
		t.Errorf("default range = %s..%s", start, end)
	}

	tests := []struct {
		name       string
		start, end string
		wantErr    bool
	}{
		{"explicit", "2025-06-01", "2025-06-30", false},
		{"single day", "2025-06-01", "2025-06-01", false},
		{"inverted", "2025-06-30", "2025-06-01", true},
		{"two years", "2025-01-01", "2027-01-01", false},
		{"too long", "2025-01-01", "2027-01-03", true},
		{"malformed", "June 1", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ResolveRange(tt.start, tt.end, today, rules)
			if tt.wantErr {
				if !errors.Is(err, apperr.ErrValidation) {
					t.Errorf("err = %v, want validation", err)
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestCheckEditable(t *testing.T) {
	rules := config.DefaultRules()
	today := models.MustParseDate("2025-08-31")
	tests := []struct {
		date string
		want error
	}{
		{"2025-08-30", apperr.ErrPastDate},
		{"2025-08-31", nil},
		{"2027-02-28", nil}, // Aug 31 + 18 months clamps to Feb 28
		{"2027-03-01", apperr.ErrHorizonExceeded},
	}
	for _, tt := range tests {
		err := checkEditable(models.MustParseDate(tt.date), today, rules)
		if tt.want == nil && err != nil || tt.want != nil && !errors.Is(err, tt.want) {
			t.Errorf("%s: err = %v, want %v", tt.date, err, tt.want)
		}
	}
}

func TestExpandRecurrence(t *testing.T) {
	from, until := models.MustParseDate("2025-06-09"), models.MustParseDate("2026-12-09")

	dates, err := expandRecurrence("DTSTART:20250602T000000Z\nRRULE:FREQ=WEEKLY;BYDAY=MO;COUNT=3", from, until, 366)
	if err != nil {
		t.Fatal(err)
	}
	if fmt.Sprint(dates) != "[2025-06-09 2025-06-16]" {
		t.Errorf("dates = %v", dates)
	}

	bad := []string{
		"",
		"FREQ=WEEKLY;COUNT=3",
		"DTSTART=20250602T000000Z;FREQ=NEVER",
		"DTSTART=20250602T000000Z;FREQ=DAILY",
		"DTSTART=20200101T000000Z;FREQ=YEARLY;COUNT=2",
	}
	for _, raw := range bad {
		if _, err := expandRecurrence(raw, from, until, 366); !errors.Is(err, apperr.ErrValidation) {
			t.Errorf("%q: err = %v, want validation", raw, err)
		}
	}
}
