package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"artist-calendar-backend/pkg/config"
	"artist-calendar-backend/pkg/models"
	"artist-calendar-backend/pkg/utils"
)

var ok = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
})

func bearer(t *testing.T, jwtService *utils.JWTService, role models.UserRole) string {
	t.Helper()
	tok, _, err := jwtService.GenerateAccessToken(&models.User{ID: "u1", Email: "u@example.com", Role: role})
	if err != nil {
		t.Fatal(err)
	}
	return "Bearer " + tok
}

func TestAuthAndRoles(t *testing.T) {
	jwtService := utils.NewJWTService("secret", time.Minute)
	admin := AuthMiddleware(jwtService)(RequireAdmin()(ok))

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"not bearer", "Token abc", http.StatusUnauthorized},
		{"garbage token", "Bearer abc", http.StatusUnauthorized},
		{"wrong secret", bearer(t, utils.NewJWTService("other", time.Minute), models.RoleAdmin), http.StatusUnauthorized},
		{"artist on admin route", bearer(t, jwtService, models.RoleArtist), http.StatusForbidden},
		{"admin", bearer(t, jwtService, models.RoleAdmin), http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			admin.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestAuthPutsRoleInContext(t *testing.T) {
	jwtService := utils.NewJWTService("secret", time.Minute)
	var got *models.User
	h := AuthMiddleware(jwtService)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = GetUserFromContext(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", bearer(t, jwtService, models.RoleArtist))
	h.ServeHTTP(httptest.NewRecorder(), req)
	if got == nil || got.ID != "u1" || got.Role != models.RoleArtist {
		t.Errorf("user = %+v", got)
	}
}

func TestContentTypeJSON(t *testing.T) {
	h := ContentTypeJSON(ok)
	tests := []struct {
		name, method, ctype, body string
		want                      int
	}{
		{"get passes", http.MethodGet, "", "", http.StatusNoContent},
		{"empty post passes", http.MethodPost, "", "", http.StatusNoContent},
		{"json post", http.MethodPost, "application/json; charset=utf-8", "{}", http.StatusNoContent},
		{"form post", http.MethodPost, "application/x-www-form-urlencoded", "a=b", http.StatusBadRequest},
		{"missing type", http.MethodPut, "", "{}", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body io.Reader
			if tt.body != "" {
				body = strings.NewReader(tt.body)
			}
			req := httptest.NewRequest(tt.method, "/", body)
			if tt.ctype != "" {
				req.Header.Set("Content-Type", tt.ctype)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestRecoveryHidesPanicInProduction(t *testing.T) {
	cfg := &config.Config{Environment: "production"}
	h := Recovery(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("secret detail")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "secret detail") {
		t.Error("panic value leaked in production")
	}
}

func TestNormalize(t *testing.T) {
	var path string
	h := Normalize()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { path = r.URL.Path }))
	for in, want := range map[string]string{"/api/artists/": "/api/artists", "/": "/", "/api/calendar": "/api/calendar"} {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, in, nil))
		if path != want {
			t.Errorf("%s -> %s, want %s", in, path, want)
		}
	}
}

func TestIsOriginAllowed(t *testing.T) {
	allowed := []string{"https://app.example.com", "https://*.vercel.app"}
	tests := map[string]bool{
		"https://app.example.com":      true,
		"https://preview-1.vercel.app": true,
		"https://evil.com":             false,
		"http://preview.vercel.app":    false,
	}
	for origin, want := range tests {
		if got := isOriginAllowed(origin, allowed); got != want {
			t.Errorf("%s: got %v, want %v", origin, got, want)
		}
	}
}

func TestCORSExposesSettleHeader(t *testing.T) {
	h := CORS(&config.Config{AllowedOrigins: []string{"https://app.example.com"}})(ok)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Header().Get("Access-Control-Allow-Origin") != "https://app.example.com" {
		t.Errorf("allow origin = %q", rec.Header().Get("Access-Control-Allow-Origin"))
	}
	if !strings.Contains(rec.Header().Get("Access-Control-Expose-Headers"), utils.SettleHeader) {
		t.Errorf("expose = %q", rec.Header().Get("Access-Control-Expose-Headers"))
	}
}
