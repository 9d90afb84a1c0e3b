package calendar

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"artist-calendar-backend/pkg/apperr"
	"artist-calendar-backend/pkg/config"
	"artist-calendar-backend/pkg/consistency"
	"artist-calendar-backend/pkg/database"
	"artist-calendar-backend/pkg/models"
)

// 2025-06-09 in Europe/Paris
var testNow = time.Date(2025, 6, 9, 10, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*Service, database.DatabaseInterface, *FixedClock) {
	t.Helper()
	db, err := database.NewLocalDatabase(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	clock := NewFixedClock(testNow)
	svc := NewService(db, clock, config.DefaultRules(), consistency.NewMemoryTracker(time.Second), nil)
	return svc, db, clock
}

func seedArtist(t *testing.T, db database.DatabaseInterface, name string) string {
	t.Helper()
	ctx := context.Background()
	u := &models.User{
		ID:        uuid.NewString(),
		Role:      models.RoleArtist,
		Email:     strings.ToLower(name) + "@example.com",
		Password:  "x",
		CreatedAt: testNow,
		UpdatedAt: testNow,
	}
	if err := db.CreateUser(ctx, u); err != nil {
		t.Fatal(err)
	}
	if _, err := db.UpdateArtistProfile(ctx, u.ID, models.ArtistProfileRequest{StageName: name}); err != nil {
		t.Fatal(err)
	}
	return u.ID
}

func TestToggleBlockProjectScenario(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()
	a := seedArtist(t, db, "A")

	for _, d := range []string{"2025-06-10", "2025-06-11"} {
		res, err := svc.Toggle(ctx, a, models.ToggleRequest{Date: d})
		if err != nil {
			t.Fatalf("toggle %s: %v", d, err)
		}
		if res.Action != models.ToggleAdded || res.Availability.Color != DefaultColor {
			t.Errorf("toggle %s = %+v", d, res.Availability)
		}
	}

	blk, err := svc.CreateBlock(ctx, models.BlockedDateRequest{Date: "2025-06-10", Note: "Maintenance"})
	if err != nil {
		t.Fatal(err)
	}
	if !blk.Created || blk.RemovedAvailabilities != 1 {
		t.Errorf("block = %+v", blk)
	}

	entries, err := svc.Project(ctx, AdminScope(), "2025-06-10", "2025-06-11")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{`2025-06-10 blocked "Maintenance"`, "2025-06-11 A/Uncategorized"}
	if got := describe(entries); fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("got %q, want %q", got, want)
	}

	if _, err := svc.Toggle(ctx, a, models.ToggleRequest{Date: "2025-06-10"}); !errors.Is(err, apperr.ErrDateBlocked) {
		t.Errorf("toggle on blocked date: %v", err)
	}

	res, err := svc.Toggle(ctx, a, models.ToggleRequest{Date: "2025-06-11"})
	if err != nil || res.Action != models.ToggleRemoved {
		t.Errorf("second toggle = %+v, %v", res, err)
	}
}

func TestToggleRejectsBeforeMutation(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()
	a := seedArtist(t, db, "A")

	tests := []struct {
		name string
		req  models.ToggleRequest
		want error
	}{
		{"yesterday", models.ToggleRequest{Date: "2025-06-08"}, apperr.ErrPastDate},
		{"beyond horizon", models.ToggleRequest{Date: "2026-12-10"}, apperr.ErrHorizonExceeded},
		{"bad date", models.ToggleRequest{Date: "2025-13-01"}, apperr.ErrValidation},
		{"bad color", models.ToggleRequest{Date: "2025-06-10", Color: "blue"}, apperr.ErrValidation},
		{"long note", models.ToggleRequest{Date: "2025-06-10", Note: strings.Repeat("é", 281)}, apperr.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Toggle(ctx, a, tt.req); !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}

	days, err := svc.ListRange(ctx, AdminScope(), "", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(days) != 0 {
		t.Errorf("rejected toggles wrote %d days", len(days))
	}

	if _, err := svc.Toggle(ctx, a, models.ToggleRequest{Date: "2026-12-09", Note: strings.Repeat("é", 280)}); err != nil {
		t.Errorf("last editable day: %v", err)
	}
	if _, err := svc.Toggle(ctx, uuid.NewString(), models.ToggleRequest{Date: "2025-06-10"}); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("unknown artist: %v", err)
	}
}

func TestTodayFollowsClock(t *testing.T) {
	svc, db, clock := newTestService(t)
	a := seedArtist(t, db, "A")

	if _, err := svc.Toggle(context.Background(), a, models.ToggleRequest{Date: "2025-06-09"}); err != nil {
		t.Fatal(err)
	}
	// 22:30 UTC is already the 10th in Paris
	clock.Set(time.Date(2025, 6, 9, 22, 30, 0, 0, time.UTC))
	if _, err := svc.Toggle(context.Background(), a, models.ToggleRequest{Date: "2025-06-09"}); !errors.Is(err, apperr.ErrPastDate) {
		t.Errorf("err = %v", err)
	}
}

type racyStore struct {
	database.DatabaseInterface
	failures int32
	calls    int32
}

func (r *racyStore) ToggleAvailability(ctx context.Context, day *models.AvailabilityDay) (models.ToggleAction, *models.AvailabilityDay, error) {
	n := atomic.AddInt32(&r.calls, 1)
	if n <= atomic.LoadInt32(&r.failures) {
		return "", nil, apperr.Concurrency(errors.New("duplicate key"))
	}
	return r.DatabaseInterface.ToggleAvailability(ctx, day)
}

func TestToggleRetriesConcurrencyOnce(t *testing.T) {
	_, db, clock := newTestService(t)
	a := seedArtist(t, db, "A")
	ctx := context.Background()

	store := &racyStore{DatabaseInterface: db, failures: 1}
	svc := NewService(store, clock, config.DefaultRules(), nil, nil)
	res, err := svc.Toggle(ctx, a, models.ToggleRequest{Date: "2025-06-10"})
	if err != nil || res.Action != models.ToggleAdded || store.calls != 2 {
		t.Errorf("one failure: %+v %v calls=%d", res, err, store.calls)
	}

	store = &racyStore{DatabaseInterface: db, failures: 2}
	svc = NewService(store, clock, config.DefaultRules(), nil, nil)
	if _, err := svc.Toggle(ctx, a, models.ToggleRequest{Date: "2025-06-11"}); !errors.Is(err, apperr.ErrConcurrency) {
		t.Errorf("two failures: %v", err)
	}
	if store.calls != 2 {
		t.Errorf("calls = %d, want 2", store.calls)
	}
}

func TestCreateBlockRules(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()
	a := seedArtist(t, db, "A")

	if _, err := svc.CreateBlock(ctx, models.BlockedDateRequest{Date: "2025-06-08"}); !errors.Is(err, apperr.ErrPastDate) {
		t.Errorf("past block: %v", err)
	}
	// blocks are not limited by the availability horizon
	if _, err := svc.CreateBlock(ctx, models.BlockedDateRequest{Date: "2027-06-01"}); err != nil {
		t.Errorf("far block: %v", err)
	}

	if _, err := svc.Toggle(ctx, a, models.ToggleRequest{Date: "2025-06-20"}); err != nil {
		t.Fatal(err)
	}
	first, err := svc.CreateBlock(ctx, models.BlockedDateRequest{Date: "2025-06-20", Note: "one"})
	if err != nil {
		t.Fatal(err)
	}
	again, err := svc.CreateBlock(ctx, models.BlockedDateRequest{Date: "2025-06-20", Note: "two"})
	if err != nil {
		t.Fatal(err)
	}
	if again.Created || again.Blocked.ID != first.Blocked.ID || again.Blocked.Note != "two" {
		t.Errorf("reblock = %+v", again)
	}

	upd, err := svc.UpdateBlock(ctx, first.Blocked.ID, models.BlockedDateUpdateRequest{Note: "three"})
	if err != nil || upd.Note != "three" {
		t.Errorf("update = %+v, %v", upd, err)
	}
	if err := svc.DeleteBlock(ctx, first.Blocked.ID); err != nil {
		t.Fatal(err)
	}
	day, err := svc.AvailabilityOnDate(ctx, "2025-06-20")
	if err != nil {
		t.Fatal(err)
	}
	if day.Blocked != nil || len(day.Artists) != 0 {
		t.Errorf("after unblock = %+v", day)
	}
}

func TestCreateRecurringBlocks(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()
	a := seedArtist(t, db, "A")
	if _, err := svc.Toggle(ctx, a, models.ToggleRequest{Date: "2025-06-16"}); err != nil {
		t.Fatal(err)
	}

	results, err := svc.CreateRecurringBlocks(ctx, models.RecurringBlockRequest{
		RRule: "DTSTART:20250602T000000Z\nRRULE:FREQ=WEEKLY;BYDAY=MO;COUNT=3",
		Note:  "Closed on Mondays",
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 || results[1].RemovedAvailabilities != 1 {
		t.Errorf("results = %+v", results)
	}

	blocks, err := svc.ListBlocks(ctx, "2025-06-01", "2025-06-30")
	if err != nil {
		t.Fatal(err)
	}
	if len(blocks) != 2 || blocks[0].Date.String() != "2025-06-09" {
		t.Errorf("blocks = %+v", blocks)
	}
}

func TestSetCategoryAndListScope(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()
	a := seedArtist(t, db, "A")
	b := seedArtist(t, db, "B")

	groupe := "Groupe"
	artist, err := svc.SetCategory(ctx, a, &groupe)
	if err != nil || artist.Category != models.CategoryGroup {
		t.Errorf("groupe = %+v, %v", artist, err)
	}
	band := "Band"
	if _, err := svc.SetCategory(ctx, a, &band); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("band: %v", err)
	}
	if _, err := svc.SetCategory(ctx, uuid.NewString(), nil); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("unknown artist: %v", err)
	}

	for _, id := range []string{a, b} {
		if _, err := svc.Toggle(ctx, id, models.ToggleRequest{Date: "2025-06-12"}); err != nil {
			t.Fatal(err)
		}
	}
	own, err := svc.ListRange(ctx, ArtistScope(b), "", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(own) != 1 || own[0].ArtistID != b {
		t.Errorf("artist scope = %+v", own)
	}
	all, _ := svc.ListRange(ctx, AdminScope(), "", "")
	if len(all) != 2 || all[0].Category != models.CategoryGroup {
		t.Errorf("admin scope = %+v", all)
	}

	n, err := svc.DeleteArtist(ctx, a)
	if err != nil || n != 1 {
		t.Errorf("delete = %d, %v", n, err)
	}
	if _, err := svc.Toggle(ctx, a, models.ToggleRequest{Date: "2025-06-13"}); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("toggle after delete: %v", err)
	}
}

func TestWritesMarkTracker(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()
	a := seedArtist(t, db, "A")

	if svc.Tracker().Remaining(ctx, consistency.ScopeAvailability) != 0 {
		t.Fatal("tracker dirty before any write")
	}
	if _, err := svc.Toggle(ctx, a, models.ToggleRequest{Date: "2025-06-12"}); err != nil {
		t.Fatal(err)
	}
	if svc.Tracker().Remaining(ctx, consistency.ScopeAvailability) == 0 {
		t.Error("toggle did not mark availability")
	}
}

func TestRenderICS(t *testing.T) {
	entries := []models.CalendarEntry{
		{Kind: models.EntryBlocked, Date: models.MustParseDate("2025-06-10"), Note: "Maintenance", BlockedID: "b1"},
		{Kind: models.EntryAvailability, Date: models.MustParseDate("2025-06-11"), ArtistID: "a1", ArtistName: "A", Category: "DJ"},
	}
	out := string(RenderICS(entries, testNow))

	if n := strings.Count(out, "BEGIN:VEVENT"); n != 2 {
		t.Errorf("events = %d", n)
	}
	for _, want := range []string{"SUMMARY:Blocked: Maintenance", "SUMMARY:A (DJ)", "20250610", "20250612"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in\n%s", want, out)
		}
	}
}

// uuidColumnStore fails malformed ids the way a UUID-typed column does.
type uuidColumnStore struct {
	database.DatabaseInterface
}

func (uuidColumnStore) invalid() error {
	return apperr.Transient("query", errors.New(`pq: invalid input syntax for type uuid: "abc"`))
}

func (s uuidColumnStore) DeleteArtist(context.Context, string) (int, error) { return 0, s.invalid() }
func (s uuidColumnStore) DeleteBlock(context.Context, string) error         { return s.invalid() }
func (s uuidColumnStore) UpdateBlockNote(context.Context, string, string) (*models.BlockedDate, error) {
	return nil, s.invalid()
}
func (s uuidColumnStore) SetArtistCategory(context.Context, string, models.Category) (*models.Artist, error) {
	return nil, s.invalid()
}

func TestMalformedIDsAreNotFound(t *testing.T) {
	_, db, clock := newTestService(t)
	svc := NewService(uuidColumnStore{db}, clock, config.DefaultRules(), nil, nil)
	ctx := context.Background()
	dj := "DJ"

	tests := []struct {
		name string
		call func() error
	}{
		{"delete artist", func() error { _, err := svc.DeleteArtist(ctx, "abc"); return err }},
		{"set category", func() error { _, err := svc.SetCategory(ctx, "abc", &dj); return err }},
		{"update block", func() error {
			_, err := svc.UpdateBlock(ctx, "abc", models.BlockedDateUpdateRequest{Note: "x"})
			return err
		}},
		{"delete block", func() error { return svc.DeleteBlock(ctx, "abc") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			if !errors.Is(err, apperr.ErrNotFound) {
				t.Errorf("err = %v, want not found", err)
			}
		})
	}
}
