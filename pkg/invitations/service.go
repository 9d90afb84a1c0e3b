// Package invitations issues and redeems the single-use tokens through which
// artists join the calendar.
package invitations

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"artist-calendar-backend/pkg/apperr"
	"artist-calendar-backend/pkg/calendar"
	"artist-calendar-backend/pkg/config"
	"artist-calendar-backend/pkg/consistency"
	"artist-calendar-backend/pkg/database"
	"artist-calendar-backend/pkg/mailer"
	"artist-calendar-backend/pkg/metrics"
	"artist-calendar-backend/pkg/models"
	"artist-calendar-backend/pkg/utils"
)

// Service 邀请服务
type Service struct {
	db          database.DatabaseInterface
	mailer      mailer.Mailer
	clock       calendar.Clock
	rules       config.Rules
	frontendURL string
	tracker     consistency.Tracker
	logger      *slog.Logger
}

// NewService 创建邀请服务
func NewService(db database.DatabaseInterface, m mailer.Mailer, clock calendar.Clock, rules config.Rules, frontendURL string, tracker consistency.Tracker, logger *slog.Logger) *Service {
	if clock == nil {
		clock = calendar.SystemClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if m == nil {
		m = mailer.LogMailer{Logger: logger}
	}
	if tracker == nil {
		tracker = consistency.NewMemoryTracker(0)
	}
	return &Service{
		db:          db,
		mailer:      m,
		clock:       clock,
		rules:       rules,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		tracker:     tracker,
		logger:      logger,
	}
}

// VerifyResult is what an unauthenticated visitor learns about a token.
type VerifyResult struct {
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expires_at"`
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Link returns the registration URL for token.
func (s *Service) Link(token string) string {
	return s.frontendURL + "/invite/" + token
}

// Issue creates an invitation and mails its link. A delivery failure is
// logged; the invitation stays valid and can be resent from the dashboard.
func (s *Service) Issue(ctx context.Context, req models.InvitationCreateRequest) (*models.Invitation, error) {
	req.Email = normalizeEmail(req.Email)
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}
	token, err := utils.GenerateURLToken(32)
	if err != nil {
		s.logger.Error("token generation failed", "error", err)
		return nil, apperr.Transient("generate invitation token", err)
	}
	now := s.clock.Now().UTC()
	inv := &models.Invitation{
		ID:        uuid.NewString(),
		Email:     req.Email,
		Token:     token,
		Status:    models.InvitationSent,
		ExpiresAt: now.Add(s.rules.InvitationTTL),
		CreatedAt: now,
	}
	if err := s.db.CreateInvitation(ctx, inv); err != nil {
		s.logger.Error("create invitation failed", "error", err)
		return nil, err
	}
	metrics.Invitations.WithLabelValues("issued").Inc()
	s.tracker.MarkWrite(ctx, consistency.ScopeInvitations)

	if err := s.mailer.SendInvitation(ctx, inv.Email, s.Link(inv.Token), inv.ExpiresAt); err != nil {
		metrics.Invitations.WithLabelValues("mail_failed").Inc()
		s.logger.Error("invitation mail failed", "invitation_id", inv.ID, "email", inv.Email, "error", err)
	}
	return inv, nil
}

// lookup returns the invitation only if it can still be consumed.
func (s *Service) lookup(ctx context.Context, token string) (*models.Invitation, error) {
	if strings.TrimSpace(token) == "" {
		return nil, apperr.ErrInvalidToken
	}
	inv, err := s.db.GetInvitationByToken(ctx, token)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, apperr.ErrInvalidToken
	}
	if err != nil {
		return nil, err
	}
	if !inv.Usable(s.clock.Now()) {
		return nil, apperr.ErrInvalidToken
	}
	return inv, nil
}

// Verify reports the email bound to a usable token. Unknown, accepted and
// expired tokens are indistinguishable to the caller.
func (s *Service) Verify(ctx context.Context, token string) (*VerifyResult, error) {
	inv, err := s.lookup(ctx, token)
	if err != nil {
		if errors.Is(err, apperr.ErrInvalidToken) {
			metrics.Invitations.WithLabelValues("rejected").Inc()
		}
		return nil, err
	}
	metrics.Invitations.WithLabelValues("verified").Inc()
	return &VerifyResult{Email: inv.Email, ExpiresAt: inv.ExpiresAt}, nil
}

// Consume redeems token and creates the artist account in one step.
// Only one caller can win a given token; losers get ErrInvalidToken.
func (s *Service) Consume(ctx context.Context, token string, req models.UserRegisterRequest) (*models.Artist, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}
	inv, err := s.lookup(ctx, token)
	if err != nil {
		s.reject(err)
		return nil, err
	}
	if req.Email != "" && normalizeEmail(req.Email) != inv.Email {
		return nil, apperr.Validation("email does not match the invitation")
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		s.logger.Error("password hashing failed", "error", err)
		return nil, apperr.Transient("hash password", err)
	}
	tz := req.Timezone
	if tz == "" {
		tz = s.rules.Timezone
	}
	now := s.clock.Now().UTC()
	user := &models.User{
		ID:        uuid.NewString(),
		Role:      models.RoleArtist,
		Email:     inv.Email,
		Password:  hash,
		Timezone:  tz,
		CreatedAt: now,
		UpdatedAt: now,
	}
	profile := &models.Artist{
		ID:        user.ID,
		Email:     user.Email,
		StageName: strings.TrimSpace(req.StageName),
		Phone:     strings.TrimSpace(req.Phone),
		Link:      strings.TrimSpace(req.Link),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.db.ConsumeInvitation(ctx, token, s.clock.Now(), user, profile); err != nil {
		s.reject(err)
		return nil, err
	}
	metrics.Invitations.WithLabelValues("accepted").Inc()
	s.tracker.MarkWrite(ctx, consistency.ScopeInvitations, consistency.ScopeArtists)
	s.logger.Info("invitation accepted", "invitation_id", inv.ID, "artist_id", user.ID)
	return profile, nil
}

func (s *Service) reject(err error) {
	switch {
	case errors.Is(err, apperr.ErrInvalidToken):
		metrics.Invitations.WithLabelValues("rejected").Inc()
	case errors.Is(err, apperr.ErrConflict):
		metrics.Invitations.WithLabelValues("conflict").Inc()
	case !apperr.IsBusiness(err):
		s.logger.Error("consume invitation failed", "error", err)
	}
}

// Revoke deletes an invitation. Accounts already created are unaffected.
func (s *Service) Revoke(ctx context.Context, id string) error {
	if err := utils.CheckID(id, "invitation"); err != nil {
		return err
	}
	if err := s.db.DeleteInvitation(ctx, id); err != nil {
		if !apperr.IsBusiness(err) {
			s.logger.Error("revoke invitation failed", "error", err)
		}
		return err
	}
	metrics.Invitations.WithLabelValues("revoked").Inc()
	s.tracker.MarkWrite(ctx, consistency.ScopeInvitations)
	return nil
}

// List returns all invitations, newest first, with expiry applied to status.
func (s *Service) List(ctx context.Context) ([]models.Invitation, error) {
	list, err := s.db.ListInvitations(ctx)
	if err != nil {
		s.logger.Error("list invitations failed", "error", err)
		return nil, err
	}
	now := s.clock.Now()
	for i := range list {
		list[i].Status = list[i].EffectiveStatus(now)
	}
	return list, nil
}
