package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config 应用配置结构
type Config struct {
	// 环境配置
	Environment string
	Port        string

	// 数据库配置
	UseLocalDB  bool
	LocalDBPath string
	PostgresDSN string
	SupabaseURL string
	SupabaseKey string
	RedisURL    string
	RedisPass   string

	// JWT配置
	JWTSecret      string
	AccessTokenTTL time.Duration

	// 邮件配置
	SendGridAPIKey string
	SenderEmail    string
	FrontendURL    string

	// 初始管理员
	AdminEmail    string
	AdminPassword string

	// 日历规则
	Rules Rules

	// 一致性配置
	SettleWindow  time.Duration
	SweepSchedule string

	// CORS配置
	AllowedOrigins []string

	// 调试配置
	Debug bool
}

// Rules are the calendar business constants. They can be overridden by a
// YAML file named in CALENDAR_RULES_FILE, then by individual env vars.
type Rules struct {
	Timezone       string
	HorizonMonths  int
	NoteMaxLength  int
	InvitationTTL  time.Duration
	MaxRangeDays   int
	MaxRecurrences int
}

// SchemaNoteLimit is the CHECK limit on note columns in the SQL schema.
const SchemaNoteLimit = 280

// DefaultRules returns the rules the calendar ships with.
func DefaultRules() Rules {
	return Rules{
		Timezone:       "Europe/Paris",
		HorizonMonths:  18,
		NoteMaxLength:  SchemaNoteLimit,
		InvitationTTL:  7 * 24 * time.Hour,
		MaxRangeDays:   731,
		MaxRecurrences: 366,
	}
}

// Location resolves the configured timezone, falling back to UTC.
func (r Rules) Location() *time.Location {
	if loc, err := time.LoadLocation(r.Timezone); err == nil {
		return loc
	}
	return time.UTC
}

// LoadConfig 加载配置（支持本地和Vercel环境）
func LoadConfig() *Config {
	// 根据环境加载对应的 .env 文件
	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = "development" // 默认开发环境
	}

	// 按优先级加载环境文件；godotenv 不会覆盖已存在的环境变量
	switch env {
	case "production":
		_ = godotenv.Load(".env.production")
	default:
		_ = godotenv.Load(".env.local")
	}

	config := &Config{
		// 默认值
		Environment:    getEnvWithDefault("ENVIRONMENT", "development"),
		Port:           getEnvWithDefault("PORT", "3000"),
		UseLocalDB:     getEnvBool("USE_LOCAL_DB", true),
		LocalDBPath:    getEnvWithDefault("LOCAL_DB_PATH", "./data/calendar.db"),
		JWTSecret:      getEnvWithDefault("JWT_SECRET", "your-secret-key-change-in-production"),
		AccessTokenTTL: getEnvDuration("ACCESS_TOKEN_TTL", 30*time.Minute),
		Debug:          getEnvBool("DEBUG", false),
		SweepSchedule:  getEnvWithDefault("SWEEP_SCHEDULE", "@every 5m"),
		SettleWindow:   time.Duration(getEnvInt("CONSISTENCY_SETTLE_MS", 750)) * time.Millisecond,
	}

	// 数据库配置
	// Trim whitespace to avoid trailing spaces/newlines from env sources
	config.PostgresDSN = strings.TrimSpace(os.Getenv("POSTGRES_DSN"))
	config.SupabaseURL = strings.TrimSpace(os.Getenv("SUPABASE_URL"))
	config.SupabaseKey = strings.TrimSpace(os.Getenv("SUPABASE_SERVICE_KEY"))
	config.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	config.RedisPass = os.Getenv("REDIS_PASSWORD")

	// 邮件配置
	config.SendGridAPIKey = strings.TrimSpace(os.Getenv("SENDGRID_API_KEY"))
	config.SenderEmail = getEnvWithDefault("SENDER_EMAIL", "no-reply@easybookevent.app")
	config.FrontendURL = strings.TrimRight(getEnvWithDefault("FRONTEND_URL", "http://localhost:3000"), "/")

	config.AdminEmail = strings.TrimSpace(os.Getenv("ADMIN_EMAIL"))
	config.AdminPassword = os.Getenv("ADMIN_PASSWORD")

	// 日历规则：默认值 < YAML 文件 < 环境变量
	config.Rules = DefaultRules()
	if path := strings.TrimSpace(os.Getenv("CALENDAR_RULES_FILE")); path != "" {
		if err := config.Rules.loadFile(path); err != nil {
			fmt.Printf("⚠️  WARNING: ignoring rules file %s: %v\n", path, err)
		}
	}
	config.Rules.Timezone = getEnvWithDefault("CALENDAR_TIMEZONE", config.Rules.Timezone)
	config.Rules.HorizonMonths = getEnvInt("HORIZON_MONTHS", config.Rules.HorizonMonths)
	config.Rules.NoteMaxLength = getEnvInt("NOTE_MAX_LENGTH", config.Rules.NoteMaxLength)
	config.Rules.InvitationTTL = getEnvDuration("INVITATION_TTL", config.Rules.InvitationTTL)

	// CORS配置
	allowedOrigins := getEnvWithDefault("ALLOWED_ORIGINS", "*")
	if allowedOrigins == "*" {
		config.AllowedOrigins = []string{"*"}
	} else {
		config.AllowedOrigins = strings.Split(allowedOrigins, ",")
	}

	// 环境特定配置
	if config.Environment == "production" {
		// 生产环境强制使用外部数据库（PostgreSQL或Supabase）
		if config.PostgresDSN != "" || (config.SupabaseURL != "" && config.SupabaseKey != "") {
			config.UseLocalDB = false
		} else {
			fmt.Println("⚠️  WARNING: Production environment using local file database. Please configure POSTGRES_DSN or SUPABASE_URL+SUPABASE_SERVICE_KEY")
		}
		// 生产环境关闭调试
		config.Debug = false
	}

	return config
}

// loadFile overlays the YAML rules file on r. Durations use Go syntax ("168h").
func (r *Rules) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var overlay struct {
		Timezone       string `yaml:"timezone"`
		HorizonMonths  int    `yaml:"horizon_months"`
		NoteMaxLength  int    `yaml:"note_max_length"`
		InvitationTTL  string `yaml:"invitation_ttl"`
		MaxRangeDays   int    `yaml:"max_range_days"`
		MaxRecurrences int    `yaml:"max_recurrences"`
	}
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return fmt.Errorf("parse yaml: %w", err)
	}
	if overlay.Timezone != "" {
		r.Timezone = overlay.Timezone
	}
	if overlay.HorizonMonths > 0 {
		r.HorizonMonths = overlay.HorizonMonths
	}
	if overlay.NoteMaxLength > 0 {
		r.NoteMaxLength = overlay.NoteMaxLength
	}
	if overlay.InvitationTTL != "" {
		ttl, err := time.ParseDuration(overlay.InvitationTTL)
		if err != nil {
			return fmt.Errorf("invitation_ttl: %w", err)
		}
		r.InvitationTTL = ttl
	}
	if overlay.MaxRangeDays > 0 {
		r.MaxRangeDays = overlay.MaxRangeDays
	}
	if overlay.MaxRecurrences > 0 {
		r.MaxRecurrences = overlay.MaxRecurrences
	}
	return nil
}

// Cached config (initialized once per cold start)
var (
	cachedConfig *Config
	configOnce   sync.Once
)

// GetCached returns the process-wide cached Config.
// On serverless (Vercel), it initializes once per cold start and
// reuses it across warm invocations, avoiding per-request parsing.
func GetCached() *Config {
	configOnce.Do(func() {
		cachedConfig = LoadConfig()
	})
	return cachedConfig
}

// Validate 验证配置
func (c *Config) Validate() error {
	// 验证端口
	if c.Port == "" {
		return fmt.Errorf("PORT is required")
	}

	// 验证JWT密钥
	if c.JWTSecret == "" || c.JWTSecret == "your-secret-key-change-in-production" {
		if c.Environment == "production" {
			return fmt.Errorf("JWT_SECRET must be set in production")
		}
	}

	if _, err := time.LoadLocation(c.Rules.Timezone); err != nil {
		return fmt.Errorf("CALENDAR_TIMEZONE %q is not a valid IANA zone: %w", c.Rules.Timezone, err)
	}
	if c.Rules.HorizonMonths <= 0 || c.Rules.NoteMaxLength <= 0 || c.Rules.InvitationTTL <= 0 || c.Rules.MaxRangeDays <= 0 {
		return fmt.Errorf("calendar rules must be positive (horizon=%d, note=%d, ttl=%s, range=%d)",
			c.Rules.HorizonMonths, c.Rules.NoteMaxLength, c.Rules.InvitationTTL, c.Rules.MaxRangeDays)
	}
	// 数据库 note 列的 CHECK 约束上限
	if c.Rules.NoteMaxLength > SchemaNoteLimit {
		return fmt.Errorf("NOTE_MAX_LENGTH %d exceeds the schema limit of %d", c.Rules.NoteMaxLength, SchemaNoteLimit)
	}
	// 默认查询窗口（上月1日到 today+horizon）必须放得进最大跨度
	if span := (c.Rules.HorizonMonths + 2) * 31; span > c.Rules.MaxRangeDays {
		return fmt.Errorf("HORIZON_MONTHS %d makes the default range (~%d days) exceed max range of %d days",
			c.Rules.HorizonMonths, span, c.Rules.MaxRangeDays)
	}

	// 验证数据库配置
	if c.UseLocalDB || c.PostgresDSN != "" || (c.SupabaseURL != "" && c.SupabaseKey != "") {
		return nil
	}
	return fmt.Errorf("数据库配置不完整：请配置 POSTGRES_DSN 或 SUPABASE_URL+SUPABASE_SERVICE_KEY")
}

// IsProduction 检查是否为生产环境
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// IsDevelopment 检查是否为开发环境
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// 辅助函数

// getEnvWithDefault 获取环境变量，如果不存在则使用默认值
func getEnvWithDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool 获取布尔类型的环境变量
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvInt 获取整数类型的环境变量
func getEnvInt(key string, defaultValue int) int {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go durations ("168h") or plain seconds.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
