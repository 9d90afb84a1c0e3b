package utils

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"artist-calendar-backend/pkg/apperr"
	"artist-calendar-backend/pkg/models"
)

func TestGenerateURLToken(t *testing.T) {
	a, err := GenerateURLToken(32)
	if err != nil {
		t.Fatal(err)
	}
	b, _ := GenerateURLToken(32)
	if a == b {
		t.Fatal("tokens must differ")
	}
	if len(a) != 43 {
		t.Errorf("len = %d, want 43", len(a))
	}
	if strings.ContainsAny(a, "+/=") {
		t.Errorf("token %q is not URL safe", a)
	}
}

func TestJWTRoundTrip(t *testing.T) {
	svc := NewJWTService("secret", time.Minute)
	user := &models.User{ID: "u1", Email: "a@example.com", Role: models.RoleArtist}

	tok, expiresIn, err := svc.GenerateAccessToken(user)
	if err != nil {
		t.Fatal(err)
	}
	if expiresIn != 60 {
		t.Errorf("expiresIn = %d", expiresIn)
	}
	claims, err := svc.ValidateToken(tok)
	if err != nil {
		t.Fatal(err)
	}
	if claims.UserID != "u1" || claims.Role != models.RoleArtist {
		t.Errorf("claims = %+v", claims)
	}

	if _, err := NewJWTService("other", time.Minute).ValidateToken(tok); err == nil {
		t.Error("token signed with another key must fail")
	}

	svc.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	if _, err := svc.ValidateToken(tok); err == nil {
		t.Error("expired token must fail")
	}
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("correct horse")
	if err != nil {
		t.Fatal(err)
	}
	ok, err := CheckPassword(hash, "correct horse")
	if err != nil || !ok {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
	ok, err = CheckPassword(hash, "wrong")
	if err != nil || ok {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
}

func TestWriteAppError(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{apperr.ErrPastDate, http.StatusUnprocessableEntity, "PAST_DATE"},
		{apperr.ErrHorizonExceeded, http.StatusUnprocessableEntity, "HORIZON_EXCEEDED"},
		{apperr.ErrDateBlocked, http.StatusUnprocessableEntity, "DATE_BLOCKED"},
		{apperr.ErrInvalidToken, http.StatusBadRequest, "INVALID_TOKEN"},
		{apperr.Validation("bad"), http.StatusBadRequest, "VALIDATION_ERROR"},
		{apperr.NotFound("artist"), http.StatusNotFound, "NOT_FOUND"},
		{apperr.Conflict("dup"), http.StatusConflict, "CONFLICT"},
		{apperr.Concurrency(errors.New("x")), http.StatusConflict, "CONCURRENCY_CONFLICT"},
		{errors.New("connection refused"), http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE"},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		WriteAppError(rec, tt.err)
		if rec.Code != tt.status {
			t.Errorf("%v: status = %d, want %d", tt.err, rec.Code, tt.status)
		}
		var body APIResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatal(err)
		}
		if body.Success || body.Error == nil || body.Error.Code != tt.code {
			t.Errorf("%v: body = %s", tt.err, rec.Body.String())
		}
		if tt.status == http.StatusServiceUnavailable {
			if rec.Header().Get("Retry-After") == "" {
				t.Error("503 must carry Retry-After")
			}
			if strings.Contains(rec.Body.String(), "connection refused") {
				t.Error("internal error leaked to client")
			}
		}
	}
}

func TestWriteListResponse(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteListResponse(rec, []string{"a"}, 1, 300*time.Millisecond)
	if got := rec.Header().Get(SettleHeader); got != "300" {
		t.Errorf("settle header = %q", got)
	}
	var body struct {
		Meta struct {
			SettleMs *int64 `json:"settle_ms"`
		} `json:"meta"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Meta.SettleMs == nil || *body.Meta.SettleMs != 300 {
		t.Errorf("meta = %s", rec.Body.String())
	}
}

func TestValidateStruct(t *testing.T) {
	err := ValidateStruct(&models.InvitationCreateRequest{Email: "not-an-email"})
	if !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("err = %v", err)
	}
	if err := ValidateStruct(&models.InvitationCreateRequest{Email: "a@b.co"}); err != nil {
		t.Fatal(err)
	}
	if err := ValidateStruct(&models.ToggleRequest{Date: "2025-01-01", Color: "blue"}); err == nil {
		t.Error("non-hex color must fail")
	}
}

func TestCheckID(t *testing.T) {
	if err := CheckID("7f1c1d0e-3f5b-4a3c-9d7e-2b9f8c6a1e00", "artist"); err != nil {
		t.Errorf("valid id: %v", err)
	}
	for _, id := range []string{"", "abc", "123"} {
		if err := CheckID(id, "artist"); !errors.Is(err, apperr.ErrNotFound) {
			t.Errorf("CheckID(%q) = %v", id, err)
		}
	}
}

func TestGetQueryParam(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/calendar?start_date=2025-06-01&end_date=", nil)
	if got := GetQueryParam(r, "start_date", ""); got != "2025-06-01" {
		t.Errorf("start_date = %q", got)
	}
	if got := GetQueryParam(r, "end_date", "fallback"); got != "fallback" {
		t.Errorf("empty value should fall back, got %q", got)
	}
	if got := GetQueryParam(r, "consistent", "false"); got != "false" {
		t.Errorf("missing = %q", got)
	}
}
