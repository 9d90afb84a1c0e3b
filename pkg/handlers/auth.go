package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"artist-calendar-backend/pkg/apperr"
	"artist-calendar-backend/pkg/config"
	"artist-calendar-backend/pkg/database"
	"artist-calendar-backend/pkg/invitations"
	"artist-calendar-backend/pkg/models"
	"artist-calendar-backend/pkg/utils"
)

// AuthHandler 认证处理器
type AuthHandler struct {
	config      *config.Config
	db          database.DatabaseInterface
	jwt         *utils.JWTService
	invitations *invitations.Service
}

// NewAuthHandler 创建认证处理器
func NewAuthHandler(cfg *config.Config, db database.DatabaseInterface, jwtService *utils.JWTService, inv *invitations.Service) *AuthHandler {
	return &AuthHandler{
		config:      cfg,
		db:          db,
		jwt:         jwtService,
		invitations: inv,
	}
}

// Login 用户登录
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.UserLoginRequest
	if err := utils.DecodeAndValidate(r, &req); err != nil {
		utils.WriteAppError(w, err)
		return
	}

	user, err := h.db.GetUserByEmail(r.Context(), strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			utils.WriteUnauthorizedResponse(w, "Invalid email or password")
			return
		}
		utils.WriteAppError(w, err)
		return
	}

	match, err := utils.CheckPassword(user.Password, req.Password)
	if err != nil {
		fmt.Printf("⚠️  Login: unusable password hash for user %s: %v\n", user.ID, err)
	}
	if !match {
		utils.WriteUnauthorizedResponse(w, "Invalid email or password")
		return
	}

	accessToken, expiresIn, err := h.jwt.GenerateAccessToken(user)
	if err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to generate access token")
		return
	}

	utils.WriteSuccessResponse(w, models.UserLoginResponse{
		User:        *user,
		AccessToken: accessToken,
		TokenType:   "bearer",
		ExpiresIn:   expiresIn,
	})
}

// Register 通过邀请令牌注册艺人账号
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimSpace(r.URL.Query().Get("token"))
	if token == "" {
		utils.WriteAppError(w, apperr.ErrInvalidToken)
		return
	}

	var req models.UserRegisterRequest
	if err := utils.DecodeAndValidate(r, &req); err != nil {
		utils.WriteAppError(w, err)
		return
	}

	artist, err := h.invitations.Consume(r.Context(), token, req)
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}
	utils.WriteCreatedResponse(w, artist)
}

// Me 当前用户信息；艺人附带资料
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claimed, ok := currentUser(w, r)
	if !ok {
		return
	}
	user, err := h.db.GetUserByID(r.Context(), claimed.ID)
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}

	resp := map[string]interface{}{"user": user}
	if user.Role == models.RoleArtist {
		if artist, err := h.db.GetArtist(r.Context(), user.ID); err == nil {
			resp["artist"] = artist
		}
	}
	utils.WriteSuccessResponse(w, resp)
}

// HealthCheck 健康检查
func (h *AuthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	dbStatus := "healthy"
	if err := h.db.HealthCheck(r.Context()); err != nil {
		dbStatus = "unhealthy: " + err.Error()
	}

	utils.WriteSuccessResponse(w, map[string]interface{}{
		"service":     "artist-calendar-backend",
		"version":     "1.0.0",
		"environment": h.config.Environment,
		"database":    h.getDatabaseType(),
		"db_status":   dbStatus,
		"timezone":    h.config.Rules.Timezone,
		"timestamp":   time.Now().Unix(),
		"status":      "healthy",
	})
}

// getDatabaseType 获取数据库类型
func (h *AuthHandler) getDatabaseType() string {
	switch {
	case h.config.PostgresDSN != "":
		return "postgresql"
	case h.config.SupabaseURL != "" && h.config.SupabaseKey != "":
		return "supabase"
	case h.config.UseLocalDB:
		return "local"
	}
	return "unknown"
}
