package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"artist-calendar-backend/pkg/database"
	"artist-calendar-backend/pkg/handlers"
	customMiddleware "artist-calendar-backend/pkg/middleware"
	"artist-calendar-backend/pkg/utils"
)

// NewRouter 构建包含全部 API 路由的 Chi 路由器
func NewRouter(app *App) *chi.Mux {
	router := chi.NewRouter()
	setupMiddleware(router, app)
	setupRoutes(router, app)
	return router
}

// setupMiddleware 设置全局中间件
func setupMiddleware(router *chi.Mux, app *App) {
	cfg := app.Config

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	// Normalize path and restore scheme/host before logging and routing
	router.Use(customMiddleware.Normalize())
	if cfg.IsProduction() {
		router.Use(customMiddleware.CustomLogger(cfg, app.Logger))
	} else {
		router.Use(customMiddleware.Logger(cfg))
	}
	router.Use(customMiddleware.Recovery(cfg, app.Logger))
	router.Use(customMiddleware.Metrics)

	router.Use(customMiddleware.CORS(cfg))

	// 超时中间件（Vercel函数有时间限制）
	router.Use(middleware.Timeout(25 * time.Second))

	router.Use(middleware.Compress(5))

	if cfg.IsDevelopment() {
		router.Use(middleware.Heartbeat("/ping"))
	}
}

// setupRoutes 设置所有API路由
func setupRoutes(router *chi.Mux, app *App) {
	cfg := app.Config

	authHandler := handlers.NewAuthHandler(cfg, app.DB, app.JWT, app.Invitations)
	invitationHandler := handlers.NewInvitationHandler(app.Invitations, app.Tracker)
	availabilityHandler := handlers.NewAvailabilityHandler(app.Calendar)
	blockedHandler := handlers.NewBlockedHandler(app.Calendar)
	artistHandler := handlers.NewArtistHandler(app.Calendar)
	calendarHandler := handlers.NewCalendarHandler(app.Calendar, app.Sweeper)

	// 健康检查端点
	router.Get("/", authHandler.HealthCheck)
	router.Handle("/metrics", promhttp.Handler())

	// 数据库连接池状态端点（调试用）
	if cfg.IsDevelopment() {
		router.Get("/debug/db-pool", func(w http.ResponseWriter, r *http.Request) {
			utils.WriteSuccessResponse(w, database.GetConnectionStats())
		})
	}

	router.Route("/api", func(r chi.Router) {
		r.Use(customMiddleware.MaxBodySize(1 << 20))
		r.Use(customMiddleware.ContentTypeJSON)

		// 公开路由（不需要认证）
		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/register", authHandler.Register)
		r.Get("/invitations/verify/{token}", invitationHandler.Verify)

		// 需要认证的路由
		r.Group(func(r chi.Router) {
			r.Use(customMiddleware.AuthMiddleware(app.JWT))

			r.Get("/auth/me", authHandler.Me)
			r.Get("/availability-days", availabilityHandler.List)
			r.Get("/blocked-dates", blockedHandler.List)
			r.Get("/calendar", calendarHandler.Calendar)
			r.Get("/calendar.ics", calendarHandler.ICS)

			// 艺人路由
			r.Group(func(r chi.Router) {
				r.Use(customMiddleware.RequireArtist())
				r.Post("/availability-days/toggle", availabilityHandler.Toggle)
				r.Put("/availability-days/{date}", availabilityHandler.UpdateNote)
				r.Get("/profile", artistHandler.GetProfile)
				r.Put("/profile", artistHandler.UpdateProfile)
			})

			// 管理员路由
			r.Group(func(r chi.Router) {
				r.Use(customMiddleware.RequireAdmin())
				r.Get("/availability-days/{date}", availabilityHandler.OnDate)

				r.Get("/invitations", invitationHandler.List)
				r.Post("/invitations", invitationHandler.Create)
				r.Delete("/invitations/{id}", invitationHandler.Revoke)

				r.Post("/blocked-dates", blockedHandler.Create)
				r.Post("/blocked-dates/recurring", blockedHandler.CreateRecurring)
				r.Put("/blocked-dates/{id}", blockedHandler.Update)
				r.Delete("/blocked-dates/{id}", blockedHandler.Delete)

				r.Get("/artists", artistHandler.List)
				r.Patch("/artists/{id}/category", artistHandler.SetCategory)
				r.Delete("/artists/{id}", artistHandler.Delete)

				r.Post("/admin/reconcile", calendarHandler.Reconcile)
			})
		})
	})

	// 404处理
	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		utils.WriteNotFoundResponse(w, fmt.Sprintf("Route not found: %s %s", r.Method, r.URL.Path))
	})

	// 405处理
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		utils.WriteErrorResponseWithCode(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED",
			fmt.Sprintf("Method %s not allowed for %s", r.Method, r.URL.Path), "")
	})
}
