// Package server wires configuration, storage and services into the HTTP
// application shared by the Vercel function and the standalone server.
package server

import (
	"fmt"
	"log/slog"

	"artist-calendar-backend/pkg/calendar"
	"artist-calendar-backend/pkg/config"
	"artist-calendar-backend/pkg/consistency"
	"artist-calendar-backend/pkg/database"
	"artist-calendar-backend/pkg/invitations"
	"artist-calendar-backend/pkg/mailer"
	"artist-calendar-backend/pkg/middleware"
	"artist-calendar-backend/pkg/utils"
)

// App 应用依赖集合
type App struct {
	Config      *config.Config
	DB          database.DatabaseInterface
	Tracker     consistency.Tracker
	Calendar    *calendar.Service
	Invitations *invitations.Service
	Sweeper     *consistency.Sweeper
	JWT         *utils.JWTService
	Logger      *slog.Logger
}

// Option 调整 App 的构建，主要用于测试
type Option func(*options)

type options struct {
	clock   calendar.Clock
	mailer  mailer.Mailer
	tracker consistency.Tracker
	logger  *slog.Logger
}

// WithClock 注入时钟
func WithClock(c calendar.Clock) Option { return func(o *options) { o.clock = c } }

// WithMailer 注入邮件发送器
func WithMailer(m mailer.Mailer) Option { return func(o *options) { o.mailer = m } }

// WithTracker 注入一致性跟踪器
func WithTracker(t consistency.Tracker) Option { return func(o *options) { o.tracker = t } }

// WithLogger 注入日志
func WithLogger(l *slog.Logger) Option { return func(o *options) { o.logger = l } }

// NewApp 基于已打开的数据库构建应用
func NewApp(cfg *config.Config, db database.DatabaseInterface, opts ...Option) (*App, error) {
	o := options{clock: calendar.SystemClock{}}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = middleware.NewSlogLogger(cfg)
	}

	if o.tracker == nil {
		if cfg.RedisURL != "" {
			rt, err := consistency.NewRedisTracker(cfg.RedisURL, cfg.RedisPass, cfg.SettleWindow, o.logger)
			if err != nil {
				return nil, fmt.Errorf("redis tracker: %w", err)
			}
			fmt.Printf("🧮 Using Redis consistency tracker\n")
			o.tracker = rt
		} else {
			o.tracker = consistency.NewMemoryTracker(cfg.SettleWindow)
		}
	}
	if o.mailer == nil {
		o.mailer = mailer.New(cfg.SendGridAPIKey, cfg.SenderEmail, o.logger)
	}

	cal := calendar.NewService(db, o.clock, cfg.Rules, o.tracker, o.logger)
	inv := invitations.NewService(db, o.mailer, o.clock, cfg.Rules, cfg.FrontendURL, o.tracker, o.logger)

	return &App{
		Config:      cfg,
		DB:          db,
		Tracker:     o.tracker,
		Calendar:    cal,
		Invitations: inv,
		Sweeper:     consistency.NewSweeper(db, o.tracker, o.logger),
		JWT:         utils.NewJWTService(cfg.JWTSecret, cfg.AccessTokenTTL),
		Logger:      o.logger,
	}, nil
}
