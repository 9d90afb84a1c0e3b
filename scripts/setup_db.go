package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"

	"artist-calendar-backend/pkg/apperr"
	"artist-calendar-backend/pkg/config"
	"artist-calendar-backend/pkg/database"
	"artist-calendar-backend/pkg/models"
	"artist-calendar-backend/pkg/utils"
)

func main() {
	cfg := config.LoadConfig()

	// 命令行参数优先于 POSTGRES_DSN
	if len(os.Args) > 1 {
		cfg.PostgresDSN = os.Args[1]
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	var db database.DatabaseInterface
	switch {
	case cfg.PostgresDSN != "":
		fmt.Printf("🔗 Connecting to database: %s\n", maskPassword(cfg.PostgresDSN))
		pg, err := database.NewPostgresDatabase(cfg.PostgresDSN)
		if err != nil {
			log.Fatalf("❌ Failed to connect to database: %v", err)
		}
		fmt.Println("📄 Applying schema migrations...")
		if err := pg.Migrate(ctx); err != nil {
			log.Fatalf("❌ Failed to apply migrations: %v", err)
		}
		fmt.Println("✅ Schema is up to date")
		db = pg
	case cfg.SupabaseURL != "" && cfg.SupabaseKey != "":
		fmt.Println("ℹ️  Supabase detected: run pkg/database/migrations/*.sql in the Supabase SQL editor, then re-run this script to seed the admin")
		db = database.NewSupabaseDatabase(cfg.SupabaseURL, cfg.SupabaseKey)
	default:
		fmt.Printf("📁 Using local SQLite database at %s\n", cfg.LocalDBPath)
		local, err := database.NewLocalDatabase(cfg.LocalDBPath)
		if err != nil {
			log.Fatalf("❌ Failed to open local database: %v", err)
		}
		db = local
	}
	defer db.Close()

	if err := db.HealthCheck(ctx); err != nil {
		log.Fatalf("❌ Failed to ping database: %v", err)
	}
	fmt.Println("✅ Database connection successful")

	if err := seedAdmin(ctx, db, cfg); err != nil {
		log.Fatalf("❌ Failed to seed administrator: %v", err)
	}

	// 验证数据
	fmt.Println("🔍 Verifying data...")
	if artists, err := db.ListArtists(ctx); err != nil {
		log.Printf("⚠️  Warning: Failed to list artists: %v", err)
	} else {
		fmt.Printf("✅ Artists: %d records\n", len(artists))
	}
	if invs, err := db.ListInvitations(ctx); err != nil {
		log.Printf("⚠️  Warning: Failed to list invitations: %v", err)
	} else {
		fmt.Printf("✅ Invitations: %d records\n", len(invs))
	}

	fmt.Println("🎉 Database setup completed! Start the API with 'go run ./cmd/server' or 'vercel dev'.")
}

// seedAdmin 根据 ADMIN_EMAIL / ADMIN_PASSWORD 创建初始管理员（已存在则跳过）
func seedAdmin(ctx context.Context, db database.DatabaseInterface, cfg *config.Config) error {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		fmt.Println("ℹ️  ADMIN_EMAIL/ADMIN_PASSWORD not set, skipping administrator seed")
		return nil
	}

	existing, err := db.GetUserByEmail(ctx, cfg.AdminEmail)
	switch {
	case err == nil:
		fmt.Printf("✅ Administrator %s already exists (role: %s)\n", existing.Email, existing.Role)
		return nil
	case !errors.Is(err, apperr.ErrNotFound):
		return err
	}

	hash, err := utils.HashPassword(cfg.AdminPassword)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	admin := &models.User{
		ID:        uuid.NewString(),
		Role:      models.RoleAdmin,
		Email:     cfg.AdminEmail,
		Password:  hash,
		Timezone:  cfg.Rules.Timezone,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := db.CreateUser(ctx, admin); err != nil {
		return err
	}
	fmt.Printf("✅ Administrator %s created\n", admin.Email)
	return nil
}

// maskPassword 隐藏连接字符串中的密码
func maskPassword(dsn string) string {
	if len(dsn) > 50 {
		return dsn[:20] + "***" + dsn[len(dsn)-20:]
	}
	if len(dsn) > 10 {
		return dsn[:10] + "***"
	}
	return "***"
}
