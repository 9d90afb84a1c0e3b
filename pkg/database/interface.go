package database

import (
	"context"
	"fmt"
	"os"
	"time"

	"artist-calendar-backend/pkg/models"
)

// DatabaseInterface 定义数据库访问接口
//
// 所有实现遵循同一错误约定：业务规则失败返回 apperr 中的分类错误
// （NotFound、DateBlocked、Concurrency、Conflict、InvalidToken），
// 其余错误一律按 apperr.Transient 包装。
type DatabaseInterface interface {
	// 用户管理
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)

	// 艺人资料
	GetArtist(ctx context.Context, id string) (*models.Artist, error)
	ListArtists(ctx context.Context) ([]models.Artist, error)
	UpdateArtistProfile(ctx context.Context, id string, req models.ArtistProfileRequest) (*models.Artist, error)
	SetArtistCategory(ctx context.Context, id string, category models.Category) (*models.Artist, error)
	// DeleteArtist removes the account, its profile and every availability day
	// in one step and returns the number of days removed.
	DeleteArtist(ctx context.Context, id string) (int, error)

	// 可用日
	// ToggleAvailability deletes day's (artist, date) row if present, inserts
	// day otherwise. The artist must exist and the date must not be blocked.
	ToggleAvailability(ctx context.Context, day *models.AvailabilityDay) (models.ToggleAction, *models.AvailabilityDay, error)
	UpdateAvailabilityNote(ctx context.Context, artistID string, date models.Date, note, color string) (*models.AvailabilityDay, error)
	ListAvailability(ctx context.Context, filter models.AvailabilityFilter) ([]models.AvailabilityDay, error)

	// 封锁日
	// BlockDate upserts the block for date and deletes every availability day
	// on it. created is false when the date was already blocked.
	BlockDate(ctx context.Context, block *models.BlockedDate) (result *models.BlockedDate, created bool, removed int, err error)
	UpdateBlockNote(ctx context.Context, id, note string) (*models.BlockedDate, error)
	DeleteBlock(ctx context.Context, id string) error
	GetBlockByDate(ctx context.Context, date models.Date) (*models.BlockedDate, error)
	ListBlocks(ctx context.Context, start, end models.Date) ([]models.BlockedDate, error)
	// PurgeBlockedAvailability deletes availability days that sit on blocked
	// dates and returns how many were removed.
	PurgeBlockedAvailability(ctx context.Context) (int, error)

	// 邀请
	CreateInvitation(ctx context.Context, inv *models.Invitation) error
	GetInvitationByToken(ctx context.Context, token string) (*models.Invitation, error)
	ListInvitations(ctx context.Context) ([]models.Invitation, error)
	DeleteInvitation(ctx context.Context, id string) error
	// ConsumeInvitation marks the invitation accepted (only if still sent and
	// unexpired at now) and creates the artist account atomically.
	ConsumeInvitation(ctx context.Context, token string, now time.Time, user *models.User, profile *models.Artist) error

	// 健康检查
	HealthCheck(ctx context.Context) error

	// 关闭连接
	Close() error
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	UseLocalDB  bool
	LocalDBPath string
	PostgresDSN string
	SupabaseURL string
	SupabaseKey string
	Debug       bool
}

// NewDatabase 根据环境与配置选择数据库实现
func NewDatabase(config DatabaseConfig) (DatabaseInterface, error) {
	// 是否在 Vercel 生产环境
	if IsVercelEnvironment() {
		fmt.Printf("🧭 Detected Vercel production environment\n")

		// Vercel 优先使用 Supabase（避免 IPv6）
		if config.SupabaseURL != "" && config.SupabaseKey != "" {
			fmt.Printf("🚀  Using Supabase REST API (Vercel optimized)\n")
			return NewSupabaseDatabase(config.SupabaseURL, config.SupabaseKey), nil
		}

		if config.PostgresDSN != "" {
			fmt.Printf("🌐  Using PostgreSQL in Vercel (may have IPv6 issues)\n")
			return openPostgres(config.PostgresDSN)
		}

		return nil, fmt.Errorf("no valid database configured for Vercel environment: set SUPABASE_URL+SUPABASE_SERVICE_KEY or POSTGRES_DSN")
	}

	// 非 Vercel 环境：PostgreSQL > Supabase > 本地文件数据库
	if config.PostgresDSN != "" {
		fmt.Printf("🗄️  Using PostgreSQL database\n")
		return openPostgres(config.PostgresDSN)
	}

	if config.SupabaseURL != "" && config.SupabaseKey != "" {
		fmt.Printf("🧰  Using Supabase REST API\n")
		return NewSupabaseDatabase(config.SupabaseURL, config.SupabaseKey), nil
	}

	if config.UseLocalDB {
		fmt.Printf("📁 Using local SQLite database at %s\n", config.LocalDBPath)
		local, err := NewLocalDatabase(config.LocalDBPath)
		if err != nil {
			return nil, err
		}
		return local, nil
	}

	return nil, fmt.Errorf("no valid database configuration found: configure POSTGRES_DSN, SUPABASE_URL+SUPABASE_SERVICE_KEY or USE_LOCAL_DB")
}

// openPostgres 连接 PostgreSQL（建表由 scripts/setup_db.go 执行）
func openPostgres(dsn string) (DatabaseInterface, error) {
	pg, err := NewPostgresDatabase(dsn)
	if err != nil {
		return nil, err
	}
	return pg, nil
}

// IsVercelEnvironment 检查是否运行在 Vercel/Lambda
func IsVercelEnvironment() bool {
	vercelEnv := os.Getenv("VERCEL_ENV")
	vercelURL := os.Getenv("VERCEL_URL")
	awsLambda := os.Getenv("AWS_LAMBDA_FUNCTION_NAME")
	return vercelEnv != "" || vercelURL != "" || awsLambda != ""
}
