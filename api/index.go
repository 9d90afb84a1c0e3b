package handler

import (
	"net/http"
	"sync"
	"time"

	"artist-calendar-backend/pkg/config"
	"artist-calendar-backend/pkg/database"
	"artist-calendar-backend/pkg/server"
	"artist-calendar-backend/pkg/utils"
)

var (
	appMu        sync.Mutex
	cachedDB     database.DatabaseInterface
	cachedRouter http.Handler
)

// Handler 是Vercel函数的入口点
// 这个函数实现了"单体路由模式"，将所有API端点集中在一个Chi路由器中管理
func Handler(w http.ResponseWriter, r *http.Request) {
	cfg := config.GetCached()

	if err := cfg.Validate(); err != nil {
		utils.WriteInternalServerErrorResponse(w, "Configuration error: "+err.Error())
		return
	}

	// 获取复用的数据库连接（自动适配Vercel环境）
	db, err := database.GetDatabase(database.DatabaseConfig{
		UseLocalDB:  cfg.UseLocalDB,
		LocalDBPath: cfg.LocalDBPath,
		PostgresDSN: cfg.PostgresDSN,
		SupabaseURL: cfg.SupabaseURL,
		SupabaseKey: cfg.SupabaseKey,
		Debug:       cfg.Debug,
	})
	if err != nil {
		utils.WriteServiceUnavailableResponse(w, "Database unavailable", 5*time.Second)
		return
	}

	router, err := routerFor(cfg, db)
	if err != nil {
		utils.WriteInternalServerErrorResponse(w, "Initialization error: "+err.Error())
		return
	}
	router.ServeHTTP(w, r)
}

// routerFor 在热启动的函数实例间复用路由与服务，数据库连接变化时重建
func routerFor(cfg *config.Config, db database.DatabaseInterface) (http.Handler, error) {
	appMu.Lock()
	defer appMu.Unlock()

	if cachedRouter != nil && cachedDB == db {
		return cachedRouter, nil
	}
	app, err := server.NewApp(cfg, db)
	if err != nil {
		return nil, err
	}
	cachedDB = db
	cachedRouter = server.NewRouter(app)
	return cachedRouter, nil
}
