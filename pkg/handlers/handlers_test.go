package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"artist-calendar-backend/pkg/calendar"
	"artist-calendar-backend/pkg/config"
	"artist-calendar-backend/pkg/consistency"
	"artist-calendar-backend/pkg/database"
	"artist-calendar-backend/pkg/models"
	"artist-calendar-backend/pkg/server"
	"artist-calendar-backend/pkg/utils"
)

var testNow = time.Date(2025, 6, 9, 10, 0, 0, 0, time.UTC)

type captureMailer struct {
	mu    sync.Mutex
	links []string
}

func (m *captureMailer) SendInvitation(_ context.Context, _, link string, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.links = append(m.links, link)
	return nil
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *utils.APIError `json:"error"`
	Meta    *utils.Meta     `json:"meta"`
}

type testAPI struct {
	t      *testing.T
	router http.Handler
	db     database.DatabaseInterface
	mail   *captureMailer
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	db, err := database.NewLocalDatabase(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	cfg := &config.Config{
		Environment:    "test",
		Port:           "0",
		UseLocalDB:     true,
		JWTSecret:      "test-secret",
		AccessTokenTTL: time.Hour,
		FrontendURL:    "https://app.example.com",
		Rules:          config.DefaultRules(),
		SettleWindow:   200 * time.Millisecond,
		AllowedOrigins: []string{"*"},
	}
	mail := &captureMailer{}
	app, err := server.NewApp(cfg, db,
		server.WithClock(calendar.NewFixedClock(testNow)),
		server.WithMailer(mail),
		server.WithTracker(consistency.NewMemoryTracker(cfg.SettleWindow)),
		server.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	if err != nil {
		t.Fatalf("app: %v", err)
	}
	return &testAPI{t: t, router: server.NewRouter(app), db: db, mail: mail}
}

func (a *testAPI) do(method, path, token string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	a.t.Helper()
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			a.t.Fatal(err)
		}
		reader = bytes.NewReader(buf)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			a.t.Fatalf("%s %s: decode %q: %v", method, path, rec.Body.String(), err)
		}
	}
	return rec, env
}

func (a *testAPI) expect(rec *httptest.ResponseRecorder, status int) {
	a.t.Helper()
	if rec.Code != status {
		a.t.Fatalf("status = %d, want %d: %s", rec.Code, status, rec.Body.String())
	}
}

func decode(t *testing.T, raw json.RawMessage, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(raw, v); err != nil {
		t.Fatalf("decode %s: %v", raw, err)
	}
}

func (a *testAPI) login(email, password string) string {
	a.t.Helper()
	rec, env := a.do(http.MethodPost, "/api/auth/login", "", models.UserLoginRequest{Email: email, Password: password})
	a.expect(rec, http.StatusOK)
	var resp models.UserLoginResponse
	decode(a.t, env.Data, &resp)
	return resp.AccessToken
}

func (a *testAPI) seedAdmin() string {
	a.t.Helper()
	hash, err := utils.HashPassword("admin-password")
	if err != nil {
		a.t.Fatal(err)
	}
	admin := &models.User{
		ID:        uuid.NewString(),
		Role:      models.RoleAdmin,
		Email:     "admin@example.com",
		Password:  hash,
		CreatedAt: testNow,
		UpdatedAt: testNow,
	}
	if err := a.db.CreateUser(context.Background(), admin); err != nil {
		a.t.Fatal(err)
	}
	return a.login(admin.Email, "admin-password")
}

// onboard invites, registers and logs in an artist, returning its token and id
func (a *testAPI) onboard(adminToken, email string) (string, string) {
	a.t.Helper()
	rec, env := a.do(http.MethodPost, "/api/invitations", adminToken, models.InvitationCreateRequest{Email: email})
	a.expect(rec, http.StatusCreated)
	var created struct {
		Invitation models.Invitation `json:"invitation"`
		Link       string            `json:"link"`
	}
	decode(a.t, env.Data, &created)
	if !strings.HasSuffix(created.Link, created.Invitation.Token) {
		a.t.Fatalf("link %q does not carry token", created.Link)
	}

	rec, env = a.do(http.MethodGet, "/api/invitations/verify/"+created.Invitation.Token, "", nil)
	a.expect(rec, http.StatusOK)

	rec, env = a.do(http.MethodPost, "/api/auth/register?token="+created.Invitation.Token, "",
		models.UserRegisterRequest{Password: "artist-password", StageName: "Stage " + email})
	a.expect(rec, http.StatusCreated)
	var artist models.Artist
	decode(a.t, env.Data, &artist)

	return a.login(email, "artist-password"), artist.ID
}

func TestHealthCheck(t *testing.T) {
	api := newTestAPI(t)
	rec, env := api.do(http.MethodGet, "/", "", nil)
	api.expect(rec, http.StatusOK)
	var health map[string]interface{}
	decode(t, env.Data, &health)
	if health["database"] != "local" || health["timezone"] != "Europe/Paris" {
		t.Errorf("health = %v", health)
	}
}

func TestAuthAndRoleGates(t *testing.T) {
	api := newTestAPI(t)
	adminToken := api.seedAdmin()
	artistToken, _ := api.onboard(adminToken, "dj@example.com")

	rec, _ := api.do(http.MethodGet, "/api/calendar", "", nil)
	api.expect(rec, http.StatusUnauthorized)

	rec, _ = api.do(http.MethodGet, "/api/calendar", "not-a-jwt", nil)
	api.expect(rec, http.StatusUnauthorized)

	rec, _ = api.do(http.MethodGet, "/api/artists", artistToken, nil)
	api.expect(rec, http.StatusForbidden)

	rec, _ = api.do(http.MethodPost, "/api/availability-days/toggle", adminToken, models.ToggleRequest{Date: "2025-06-20"})
	api.expect(rec, http.StatusForbidden)

	rec, _ = api.do(http.MethodPost, "/api/auth/login", "", models.UserLoginRequest{Email: "dj@example.com", Password: "wrong-password"})
	api.expect(rec, http.StatusUnauthorized)

	rec, env := api.do(http.MethodGet, "/api/auth/me", artistToken, nil)
	api.expect(rec, http.StatusOK)
	var me struct {
		User   models.User    `json:"user"`
		Artist *models.Artist `json:"artist"`
	}
	decode(t, env.Data, &me)
	if me.User.Role != models.RoleArtist || me.Artist == nil || me.Artist.Email != "dj@example.com" {
		t.Errorf("me = %+v", me)
	}
}

func TestRegisterRejectsUsedToken(t *testing.T) {
	api := newTestAPI(t)
	adminToken := api.seedAdmin()

	rec, env := api.do(http.MethodPost, "/api/invitations", adminToken, models.InvitationCreateRequest{Email: "once@example.com"})
	api.expect(rec, http.StatusCreated)
	var created struct {
		Invitation models.Invitation `json:"invitation"`
	}
	decode(t, env.Data, &created)
	if len(api.mail.links) != 1 {
		t.Fatalf("mails = %v", api.mail.links)
	}

	path := "/api/auth/register?token=" + created.Invitation.Token
	body := models.UserRegisterRequest{Password: "artist-password"}
	rec, _ = api.do(http.MethodPost, path, "", body)
	api.expect(rec, http.StatusCreated)

	rec, env = api.do(http.MethodPost, path, "", body)
	api.expect(rec, http.StatusBadRequest)
	if env.Error == nil || env.Error.Code != "INVALID_TOKEN" {
		t.Errorf("error = %+v", env.Error)
	}

	rec, _ = api.do(http.MethodPost, "/api/auth/register", "", body)
	api.expect(rec, http.StatusBadRequest)
}

func TestAvailabilityBlockAndCalendarFlow(t *testing.T) {
	api := newTestAPI(t)
	adminToken := api.seedAdmin()
	artistToken, artistID := api.onboard(adminToken, "band@example.com")

	rec, env := api.do(http.MethodPost, "/api/availability-days/toggle", artistToken,
		models.ToggleRequest{Date: "2025-06-20", Note: "evening only"})
	api.expect(rec, http.StatusOK)
	var toggled struct {
		Action string `json:"action"`
	}
	decode(t, env.Data, &toggled)
	if toggled.Action != string(models.ToggleAdded) {
		t.Errorf("action = %s", toggled.Action)
	}

	rec, _ = api.do(http.MethodPost, "/api/availability-days/toggle", artistToken, models.ToggleRequest{Date: "2025-06-01"})
	api.expect(rec, http.StatusUnprocessableEntity)

	rec, _ = api.do(http.MethodPost, "/api/availability-days/toggle", artistToken, models.ToggleRequest{Date: "20-06-2025"})
	api.expect(rec, http.StatusBadRequest)

	rec, _ = api.do(http.MethodPut, "/api/availability-days/2025-06-20", artistToken,
		models.AvailabilityNoteRequest{Note: "late set", Color: "#ff0000"})
	api.expect(rec, http.StatusOK)

	// the write is still inside the settle window
	rec, env = api.do(http.MethodGet, "/api/availability-days", artistToken, nil)
	api.expect(rec, http.StatusOK)
	lag, err := strconv.Atoi(rec.Header().Get(utils.SettleHeader))
	if err != nil || lag <= 0 || lag > 200 {
		t.Errorf("settle header = %q", rec.Header().Get(utils.SettleHeader))
	}
	if env.Meta == nil || env.Meta.SettleMs == nil || env.Meta.Count != 1 {
		t.Errorf("meta = %+v", env.Meta)
	}

	rec, _ = api.do(http.MethodGet, "/api/availability-days?consistent=true", artistToken, nil)
	api.expect(rec, http.StatusOK)
	if got := rec.Header().Get(utils.SettleHeader); got != "0" {
		t.Errorf("consistent read settle = %q", got)
	}

	// blocking the day removes the availability and forbids re-adding it
	rec, env = api.do(http.MethodPost, "/api/blocked-dates", adminToken, models.BlockedDateRequest{Date: "2025-06-20", Note: "private event"})
	api.expect(rec, http.StatusCreated)
	var blocked struct {
		Blocked               models.BlockedDate `json:"blocked"`
		Created               bool               `json:"created"`
		RemovedAvailabilities int                `json:"removed_availabilities"`
	}
	decode(t, env.Data, &blocked)
	if !blocked.Created || blocked.RemovedAvailabilities != 1 {
		t.Errorf("block = %+v", blocked)
	}

	rec, _ = api.do(http.MethodPost, "/api/blocked-dates", adminToken, models.BlockedDateRequest{Date: "2025-06-20", Note: "moved"})
	api.expect(rec, http.StatusOK)

	rec, env = api.do(http.MethodPost, "/api/availability-days/toggle", artistToken, models.ToggleRequest{Date: "2025-06-20"})
	api.expect(rec, http.StatusUnprocessableEntity)
	if env.Error == nil || env.Error.Code != "DATE_BLOCKED" {
		t.Errorf("error = %+v", env.Error)
	}

	rec, _ = api.do(http.MethodPost, "/api/availability-days/toggle", artistToken, models.ToggleRequest{Date: "2025-06-21"})
	api.expect(rec, http.StatusOK)

	rec, env = api.do(http.MethodGet, "/api/calendar?start_date=2025-06-01&end_date=2025-06-30", adminToken, nil)
	api.expect(rec, http.StatusOK)
	var entries []models.CalendarEntry
	decode(t, env.Data, &entries)
	if len(entries) != 2 {
		t.Fatalf("entries = %+v", entries)
	}
	if entries[0].Kind != models.EntryBlocked || entries[0].Date.String() != "2025-06-20" || entries[0].Note != "moved" {
		t.Errorf("first = %+v", entries[0])
	}
	if entries[1].ArtistID != artistID || entries[1].Date.String() != "2025-06-21" {
		t.Errorf("second = %+v", entries[1])
	}

	rec, _ = api.do(http.MethodGet, "/api/calendar?category=Orchestra", adminToken, nil)
	api.expect(rec, http.StatusBadRequest)

	rec, _ = api.do(http.MethodGet, "/api/calendar.ics?start_date=2025-06-01&end_date=2025-06-30", artistToken, nil)
	api.expect(rec, http.StatusOK)
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/calendar") {
		t.Errorf("content type = %q", ct)
	}
	if body := rec.Body.String(); !strings.Contains(body, "BEGIN:VCALENDAR") || !strings.Contains(body, "DTSTART;VALUE=DATE:20250621") {
		t.Errorf("ics = %s", body)
	}
}

func TestAdminArtistManagement(t *testing.T) {
	api := newTestAPI(t)
	adminToken := api.seedAdmin()
	artistToken, artistID := api.onboard(adminToken, "group@example.com")

	for _, d := range []string{"2025-07-01", "2025-07-02"} {
		rec, _ := api.do(http.MethodPost, "/api/availability-days/toggle", artistToken, models.ToggleRequest{Date: d})
		api.expect(rec, http.StatusOK)
	}

	category := "Groupe"
	rec, env := api.do(http.MethodPatch, "/api/artists/"+artistID+"/category", adminToken, models.CategoryRequest{Category: &category})
	api.expect(rec, http.StatusOK)
	var artist models.Artist
	decode(t, env.Data, &artist)
	if artist.Category != models.CategoryGroup {
		t.Errorf("category = %q", artist.Category)
	}

	rec, env = api.do(http.MethodGet, "/api/availability-days/2025-07-01", adminToken, nil)
	api.expect(rec, http.StatusOK)

	rec, env = api.do(http.MethodDelete, "/api/artists/"+artistID, adminToken, nil)
	api.expect(rec, http.StatusOK)
	var deleted struct {
		DeletedAvailabilities int `json:"deleted_availabilities"`
	}
	decode(t, env.Data, &deleted)
	if deleted.DeletedAvailabilities != 2 {
		t.Errorf("deleted = %d", deleted.DeletedAvailabilities)
	}

	rec, _ = api.do(http.MethodDelete, "/api/artists/"+artistID, adminToken, nil)
	api.expect(rec, http.StatusNotFound)

	for _, path := range []string{"/api/artists/abc", "/api/blocked-dates/abc", "/api/invitations/abc"} {
		rec, env = api.do(http.MethodDelete, path, adminToken, nil)
		api.expect(rec, http.StatusNotFound)
		if env.Error == nil || env.Error.Code != "NOT_FOUND" {
			t.Errorf("%s error = %+v", path, env.Error)
		}
	}

	rec, env = api.do(http.MethodPost, "/api/admin/reconcile", adminToken, nil)
	api.expect(rec, http.StatusOK)
	var reconciled struct {
		Removed int `json:"removed_availabilities"`
	}
	decode(t, env.Data, &reconciled)
	if reconciled.Removed != 0 {
		t.Errorf("reconcile removed %d", reconciled.Removed)
	}
}

func TestProfileRoundTrip(t *testing.T) {
	api := newTestAPI(t)
	adminToken := api.seedAdmin()
	artistToken, artistID := api.onboard(adminToken, "solo@example.com")

	rec, _ := api.do(http.MethodPut, "/api/profile", artistToken, models.ArtistProfileRequest{StageName: ""})
	api.expect(rec, http.StatusBadRequest)

	rec, _ = api.do(http.MethodPut, "/api/profile", artistToken,
		models.ArtistProfileRequest{StageName: "Solo Act", Phone: "+33 6 00 00 00 00", Link: "https://solo.example.com"})
	api.expect(rec, http.StatusOK)

	rec, env := api.do(http.MethodGet, "/api/profile", artistToken, nil)
	api.expect(rec, http.StatusOK)
	var artist models.Artist
	decode(t, env.Data, &artist)
	if artist.ID != artistID || artist.StageName != "Solo Act" || artist.Link != "https://solo.example.com" {
		t.Errorf("profile = %+v", artist)
	}

	rec, _ = api.do(http.MethodGet, "/api/profile", adminToken, nil)
	api.expect(rec, http.StatusForbidden)
}

func TestUnknownRoute(t *testing.T) {
	api := newTestAPI(t)
	rec, env := api.do(http.MethodGet, "/api/nothing-here", "", nil)
	api.expect(rec, http.StatusNotFound)
	if env.Error == nil || env.Error.Code != "NOT_FOUND" {
		t.Errorf("error = %+v", env.Error)
	}
}
