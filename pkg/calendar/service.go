// Package calendar holds the availability, blocking and projection rules of
// the artist calendar. Stores only persist; every date rule is checked here
// against the injected Clock.
package calendar

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"artist-calendar-backend/pkg/apperr"
	"artist-calendar-backend/pkg/config"
	"artist-calendar-backend/pkg/consistency"
	"artist-calendar-backend/pkg/database"
	"artist-calendar-backend/pkg/metrics"
	"artist-calendar-backend/pkg/models"
	"artist-calendar-backend/pkg/utils"
)

// Service 日历业务服务
type Service struct {
	db      database.DatabaseInterface
	clock   Clock
	rules   config.Rules
	loc     *time.Location
	tracker consistency.Tracker
	logger  *slog.Logger
}

// NewService 创建日历服务
func NewService(db database.DatabaseInterface, clock Clock, rules config.Rules, tracker consistency.Tracker, logger *slog.Logger) *Service {
	if clock == nil {
		clock = SystemClock{}
	}
	if tracker == nil {
		tracker = consistency.NewMemoryTracker(0)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		db:      db,
		clock:   clock,
		rules:   rules,
		loc:     rules.Location(),
		tracker: tracker,
		logger:  logger,
	}
}

// ToggleResult is the authoritative outcome of a toggle.
type ToggleResult struct {
	Action       models.ToggleAction     `json:"action"`
	Availability *models.AvailabilityDay `json:"availability"`
}

// BlockResult is the authoritative outcome of blocking one date.
type BlockResult struct {
	Blocked               *models.BlockedDate `json:"blocked"`
	Created               bool                `json:"created"`
	RemovedAvailabilities int                 `json:"removed_availabilities"`
}

// Today returns the current calendar day in the configured timezone.
func (s *Service) Today() models.Date { return Today(s.clock, s.loc) }

// Rules exposes the active business constants.
func (s *Service) Rules() config.Rules { return s.rules }

// Tracker exposes the consistency tracker to readers.
func (s *Service) Tracker() consistency.Tracker { return s.tracker }

// observe counts business rejections and logs infrastructure failures.
func (s *Service) observe(op string, err error) error {
	if err == nil {
		return nil
	}
	if apperr.IsBusiness(err) {
		metrics.RuleRejections.WithLabelValues(string(apperr.KindOf(err))).Inc()
		return err
	}
	s.logger.Error(op+" failed", "error", err)
	return err
}

// Toggle flips the artist's availability on one day.
func (s *Service) Toggle(ctx context.Context, artistID string, req models.ToggleRequest) (*ToggleResult, error) {
	date, err := parseDate(req.Date)
	if err != nil {
		return nil, s.observe("toggle", err)
	}
	if err := validateNote(req.Note, s.rules); err != nil {
		return nil, s.observe("toggle", err)
	}
	if err := validateColor(req.Color); err != nil {
		return nil, s.observe("toggle", err)
	}
	if err := checkEditable(date, s.Today(), s.rules); err != nil {
		return nil, s.observe("toggle", err)
	}
	color := req.Color
	if color == "" {
		color = DefaultColor
	}

	var (
		action models.ToggleAction
		day    *models.AvailabilityDay
	)
	// a lost insert race is decided again once; the second attempt sees the winner's row
	for attempt := 0; attempt < 2; attempt++ {
		action, day, err = s.db.ToggleAvailability(ctx, &models.AvailabilityDay{
			ID:        uuid.NewString(),
			ArtistID:  artistID,
			Date:      date,
			Note:      strings.TrimSpace(req.Note),
			Color:     color,
			CreatedAt: s.clock.Now().UTC(),
		})
		if !errors.Is(err, apperr.ErrConcurrency) {
			break
		}
		s.logger.Warn("toggle lost a race, retrying", "artist_id", artistID, "date", date.String(), "attempt", attempt+1)
	}
	if err != nil {
		return nil, s.observe("toggle", err)
	}

	metrics.Toggles.WithLabelValues(string(action)).Inc()
	s.tracker.MarkWrite(ctx, consistency.ScopeAvailability)
	return &ToggleResult{Action: action, Availability: day}, nil
}

// UpdateNote replaces the note and color of an existing availability day.
func (s *Service) UpdateNote(ctx context.Context, artistID, dateRaw string, req models.AvailabilityNoteRequest) (*models.AvailabilityDay, error) {
	date, err := parseDate(dateRaw)
	if err != nil {
		return nil, s.observe("update availability", err)
	}
	if err := validateNote(req.Note, s.rules); err != nil {
		return nil, s.observe("update availability", err)
	}
	if err := validateColor(req.Color); err != nil {
		return nil, s.observe("update availability", err)
	}
	if err := checkEditable(date, s.Today(), s.rules); err != nil {
		return nil, s.observe("update availability", err)
	}
	color := req.Color
	if color == "" {
		color = DefaultColor
	}
	day, err := s.db.UpdateAvailabilityNote(ctx, artistID, date, strings.TrimSpace(req.Note), color)
	if err != nil {
		return nil, s.observe("update availability", err)
	}
	s.tracker.MarkWrite(ctx, consistency.ScopeAvailability)
	return day, nil
}

// ListRange returns availability in [start, end] visible to scope, ordered by
// date then artist name. Empty bounds fall back to DefaultRange.
func (s *Service) ListRange(ctx context.Context, scope Scope, startRaw, endRaw string) ([]models.AvailabilityDay, error) {
	start, end, err := ResolveRange(startRaw, endRaw, s.Today(), s.rules)
	if err != nil {
		return nil, s.observe("list availability", err)
	}
	filter := models.AvailabilityFilter{Start: start, End: end}
	if !scope.Admin {
		filter.ArtistID = scope.ArtistID
	}
	days, err := s.db.ListAvailability(ctx, filter)
	if err != nil {
		return nil, s.observe("list availability", err)
	}
	out := days[:0]
	for _, d := range days {
		if scope.sees(d) {
			out = append(out, d)
		}
	}
	return out, nil
}

// AvailabilityOnDate answers who is free on one day, with the block if any.
func (s *Service) AvailabilityOnDate(ctx context.Context, dateRaw string) (*models.DayAvailability, error) {
	date, err := parseDate(dateRaw)
	if err != nil {
		return nil, s.observe("availability on date", err)
	}
	days, err := s.db.ListAvailability(ctx, models.AvailabilityFilter{Start: date, End: date})
	if err != nil {
		return nil, s.observe("availability on date", err)
	}
	blocked, err := s.db.GetBlockByDate(ctx, date)
	if err != nil {
		return nil, s.observe("availability on date", err)
	}
	return &models.DayAvailability{Date: date, Blocked: blocked, Artists: artistsOnDate(days)}, nil
}

// DeleteArtist removes the artist with all of its availability.
func (s *Service) DeleteArtist(ctx context.Context, artistID string) (int, error) {
	if err := utils.CheckID(artistID, "artist"); err != nil {
		return 0, s.observe("delete artist", err)
	}
	n, err := s.db.DeleteArtist(ctx, artistID)
	if err != nil {
		return 0, s.observe("delete artist", err)
	}
	s.tracker.MarkWrite(ctx, consistency.ScopeArtists, consistency.ScopeAvailability)
	s.logger.Info("artist deleted", "artist_id", artistID, "deleted_availabilities", n)
	return n, nil
}

// CreateBlock blocks a date for every artist and clears its availability.
// Blocking an already blocked date updates its note.
func (s *Service) CreateBlock(ctx context.Context, req models.BlockedDateRequest) (*BlockResult, error) {
	date, err := parseDate(req.Date)
	if err != nil {
		return nil, s.observe("block date", err)
	}
	if err := validateNote(req.Note, s.rules); err != nil {
		return nil, s.observe("block date", err)
	}
	if err := checkNotPast(date, s.Today()); err != nil {
		return nil, s.observe("block date", err)
	}
	return s.block(ctx, date, strings.TrimSpace(req.Note))
}

func (s *Service) block(ctx context.Context, date models.Date, note string) (*BlockResult, error) {
	now := s.clock.Now().UTC()
	blocked, created, removed, err := s.db.BlockDate(ctx, &models.BlockedDate{
		ID:        uuid.NewString(),
		Date:      date,
		Note:      note,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return nil, s.observe("block date", err)
	}

	result := "updated"
	if created {
		result = "created"
	}
	metrics.Blocks.WithLabelValues(result).Inc()
	metrics.CascadeDeletions.Add(float64(removed))
	s.tracker.MarkWrite(ctx, consistency.ScopeBlocked, consistency.ScopeAvailability)
	if removed > 0 {
		s.logger.Info("block removed availability", "date", date.String(), "removed", removed)
	}
	return &BlockResult{Blocked: blocked, Created: created, RemovedAvailabilities: removed}, nil
}

// CreateRecurringBlocks blocks every occurrence of an RRULE that falls
// between today and the editing horizon.
func (s *Service) CreateRecurringBlocks(ctx context.Context, req models.RecurringBlockRequest) ([]BlockResult, error) {
	if err := validateNote(req.Note, s.rules); err != nil {
		return nil, s.observe("recurring block", err)
	}
	today := s.Today()
	dates, err := expandRecurrence(req.RRule, today, today.AddMonths(s.rules.HorizonMonths), s.rules.MaxRecurrences)
	if err != nil {
		return nil, s.observe("recurring block", err)
	}
	note := strings.TrimSpace(req.Note)
	results := make([]BlockResult, 0, len(dates))
	for _, d := range dates {
		res, err := s.block(ctx, d, note)
		if err != nil {
			return results, err
		}
		results = append(results, *res)
	}
	return results, nil
}

// UpdateBlock edits the note of an existing block.
func (s *Service) UpdateBlock(ctx context.Context, id string, req models.BlockedDateUpdateRequest) (*models.BlockedDate, error) {
	if err := utils.CheckID(id, "blocked date"); err != nil {
		return nil, s.observe("update block", err)
	}
	if err := validateNote(req.Note, s.rules); err != nil {
		return nil, s.observe("update block", err)
	}
	b, err := s.db.UpdateBlockNote(ctx, id, strings.TrimSpace(req.Note))
	if err != nil {
		return nil, s.observe("update block", err)
	}
	s.tracker.MarkWrite(ctx, consistency.ScopeBlocked)
	return b, nil
}

// DeleteBlock unblocks a date. Availability removed by the block stays removed.
func (s *Service) DeleteBlock(ctx context.Context, id string) error {
	if err := utils.CheckID(id, "blocked date"); err != nil {
		return s.observe("delete block", err)
	}
	if err := s.db.DeleteBlock(ctx, id); err != nil {
		return s.observe("delete block", err)
	}
	metrics.Blocks.WithLabelValues("deleted").Inc()
	s.tracker.MarkWrite(ctx, consistency.ScopeBlocked)
	return nil
}

// ListBlocks returns blocks in the range, ascending by date.
func (s *Service) ListBlocks(ctx context.Context, startRaw, endRaw string) ([]models.BlockedDate, error) {
	start, end, err := ResolveRange(startRaw, endRaw, s.Today(), s.rules)
	if err != nil {
		return nil, s.observe("list blocks", err)
	}
	blocks, err := s.db.ListBlocks(ctx, start, end)
	if err != nil {
		return nil, s.observe("list blocks", err)
	}
	return blocks, nil
}

// Project returns the reconciled calendar for the range as seen by scope.
func (s *Service) Project(ctx context.Context, scope Scope, startRaw, endRaw string) ([]models.CalendarEntry, error) {
	today := s.Today()
	start, end, err := ResolveRange(startRaw, endRaw, today, s.rules)
	if err != nil {
		return nil, s.observe("project calendar", err)
	}
	filter := models.AvailabilityFilter{Start: start, End: end}
	if !scope.Admin {
		filter.ArtistID = scope.ArtistID
	}
	days, err := s.db.ListAvailability(ctx, filter)
	if err != nil {
		return nil, s.observe("project calendar", err)
	}
	blocks, err := s.db.ListBlocks(ctx, start, end)
	if err != nil {
		return nil, s.observe("project calendar", err)
	}
	return Project(days, blocks, start, end, today, scope), nil
}

// ListArtists 列出全部艺人
func (s *Service) ListArtists(ctx context.Context) ([]models.Artist, error) {
	artists, err := s.db.ListArtists(ctx)
	if err != nil {
		return nil, s.observe("list artists", err)
	}
	return artists, nil
}

// SetCategory classifies an artist. A nil category clears it.
func (s *Service) SetCategory(ctx context.Context, artistID string, raw *string) (*models.Artist, error) {
	if err := utils.CheckID(artistID, "artist"); err != nil {
		return nil, s.observe("set category", err)
	}
	category, ok := models.ParseCategory(raw)
	if !ok {
		return nil, s.observe("set category", apperr.Validation("category must be DJ, Group or null"))
	}
	a, err := s.db.SetArtistCategory(ctx, artistID, category)
	if err != nil {
		return nil, s.observe("set category", err)
	}
	s.tracker.MarkWrite(ctx, consistency.ScopeArtists)
	return a, nil
}

// GetProfile 获取艺人资料
func (s *Service) GetProfile(ctx context.Context, artistID string) (*models.Artist, error) {
	a, err := s.db.GetArtist(ctx, artistID)
	if err != nil {
		return nil, s.observe("get profile", err)
	}
	return a, nil
}

// UpdateProfile 更新艺人资料
func (s *Service) UpdateProfile(ctx context.Context, artistID string, req models.ArtistProfileRequest) (*models.Artist, error) {
	req.StageName = strings.TrimSpace(req.StageName)
	req.Phone = strings.TrimSpace(req.Phone)
	req.Link = strings.TrimSpace(req.Link)
	a, err := s.db.UpdateArtistProfile(ctx, artistID, req)
	if err != nil {
		return nil, s.observe("update profile", err)
	}
	s.tracker.MarkWrite(ctx, consistency.ScopeArtists, consistency.ScopeAvailability)
	return a, nil
}
