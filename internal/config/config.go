// Package config loads service configuration from environment variables.
// envconfig maps variables onto struct fields; an optional .env file is
// loaded first so local development does not need exported variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds every setting the server reads at startup.
type Config struct {
	// --- HTTP ---
	HTTPAddr       string   `envconfig:"HTTP_ADDR" default:":5000"`
	CORSOriginsRaw string   `envconfig:"CORS_ORIGINS" default:"http://localhost:5173"`
	CORSOrigins    []string `envconfig:"-"`

	// --- Session ---
	// HS256 secret shared with the identity provider that issues session tokens.
	SessionSecret     string `envconfig:"SESSION_SECRET" required:"true"`
	SessionCookieName string `envconfig:"SESSION_COOKIE_NAME" default:"session"`

	// --- Database ---
	// DATABASE_URL wins over the individual DB_* parts when set.
	DatabaseURL string `envconfig:"DATABASE_URL"`
	DBHost      string `envconfig:"DB_HOST" default:"localhost"`
	DBPort      int    `envconfig:"DB_PORT" default:"5432"`
	DBUser      string `envconfig:"DB_USER" default:"storyforge"`
	DBPassword  string `envconfig:"DB_PASSWORD"`
	DBName      string `envconfig:"DB_NAME" default:"storyforge"`
	DBSSLMode   string `envconfig:"DB_SSLMODE" default:"disable"`
	DBMaxConns  int32  `envconfig:"DB_MAX_CONNS" default:"25"`
	DBMinConns  int32  `envconfig:"DB_MIN_CONNS" default:"2"`

	// --- Application ---
	AppEnv      string `envconfig:"APP_ENV" default:"development"`
	AppLogLevel string `envconfig:"APP_LOG_LEVEL" default:"info"`
	AppTimezone string `envconfig:"APP_TIMEZONE" default:"UTC"`

	// --- Admin ---
	// Argon2id hash, see scripts/generate_hash.go. Empty disables /api/admin.
	AdminPasswordHash string `envconfig:"ADMIN_PASSWORD_HASH"`

	// --- Economy ---
	EconomyStartingBalance int64   `envconfig:"ECONOMY_STARTING_BALANCE" default:"50"`
	DailyRewardTableRaw    string  `envconfig:"DAILY_REWARD_TABLE" default:"10,15,20,25,30,35,40"`
	DailyRewardTable       []int64 `envconfig:"-"`

	// --- Generation ---
	GenerationCostCharacter   int64 `envconfig:"GENERATION_COST_CHARACTER" default:"5"`
	GenerationCostEnvironment int64 `envconfig:"GENERATION_COST_ENVIRONMENT" default:"5"`
	GenerationCostProp        int64 `envconfig:"GENERATION_COST_PROP" default:"3"`
	GenerationCostImage       int64 `envconfig:"GENERATION_COST_IMAGE" default:"10"`

	// --- AI ---
	// Without AI_API_KEY the generator runs in mock mode.
	AIAPIKey         string        `envconfig:"AI_API_KEY"`
	AIBaseURL        string        `envconfig:"AI_BASE_URL" default:"https://generativelanguage.googleapis.com"`
	AITextModel      string        `envconfig:"AI_TEXT_MODEL" default:"gemini-2.5-flash"`
	AIImageModel     string        `envconfig:"AI_IMAGE_MODEL" default:"gemini-2.0-flash-preview-image-generation"`
	AIRequestTimeout time.Duration `envconfig:"AI_REQUEST_TIMEOUT" default:"60s"`

	// --- S3 ---
	// Images are returned as data URIs when S3_BUCKET is empty.
	S3Endpoint      string `envconfig:"S3_ENDPOINT"`
	S3Region        string `envconfig:"S3_REGION" default:"us-east-1"`
	S3AccessKey     string `envconfig:"S3_ACCESS_KEY"`
	S3SecretKey     string `envconfig:"S3_SECRET_KEY"`
	S3Bucket        string `envconfig:"S3_BUCKET"`
	S3PublicBaseURL string `envconfig:"S3_PUBLIC_BASE_URL"`
	S3UsePathStyle  bool   `envconfig:"S3_USE_PATH_STYLE" default:"false"`
	S3Prefix        string `envconfig:"S3_PREFIX" default:"generated"`

	// --- Telegram moderation feed ---
	TelegramBotToken         string `envconfig:"TELEGRAM_BOT_TOKEN"`
	TelegramModerationChatID int64  `envconfig:"TELEGRAM_MODERATION_CHAT_ID"`

	// --- Rate Limiting ---
	RateLimitRequests int           `envconfig:"RATE_LIMIT_REQUESTS" default:"120"`
	RateLimitWindow   time.Duration `envconfig:"RATE_LIMIT_WINDOW" default:"1m"`

	// --- Housekeeping ---
	QuestRetentionDays int `envconfig:"QUEST_RETENTION_DAYS" default:"30"`
}

// DatabaseDSN returns the PostgreSQL connection string.
func (c *Config) DatabaseDSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
}

// Location resolves AppTimezone. Validate guarantees it loads.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.AppTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// AdminEnabled reports whether the admin surface is mounted.
func (c *Config) AdminEnabled() bool {
	return c.AdminPasswordHash != ""
}

// S3Enabled reports whether generated images go to object storage.
func (c *Config) S3Enabled() bool {
	return c.S3Bucket != ""
}

// TelegramEnabled reports whether the moderation notifier is configured.
func (c *Config) TelegramEnabled() bool {
	return c.TelegramBotToken != "" && c.TelegramModerationChatID != 0
}

func (c *Config) Validate() error {
	if len(c.SessionSecret) < 32 {
		return errors.New("SESSION_SECRET must be at least 32 characters")
	}
	if c.DBMaxConns <= 0 || c.DBMinConns < 0 || c.DBMinConns > c.DBMaxConns {
		return errors.New("invalid DB_MIN_CONNS/DB_MAX_CONNS")
	}
	if _, err := time.LoadLocation(c.AppTimezone); err != nil {
		return fmt.Errorf("APP_TIMEZONE: %w", err)
	}
	if c.EconomyStartingBalance < 0 {
		return errors.New("ECONOMY_STARTING_BALANCE must be >= 0")
	}
	if len(c.DailyRewardTable) == 0 {
		return errors.New("DAILY_REWARD_TABLE must not be empty")
	}
	for i, v := range c.DailyRewardTable {
		if v <= 0 {
			return fmt.Errorf("DAILY_REWARD_TABLE[%d] must be positive", i)
		}
		if i > 0 && v < c.DailyRewardTable[i-1] {
			return errors.New("DAILY_REWARD_TABLE must be non-decreasing")
		}
	}
	for name, cost := range map[string]int64{
		"GENERATION_COST_CHARACTER":   c.GenerationCostCharacter,
		"GENERATION_COST_ENVIRONMENT": c.GenerationCostEnvironment,
		"GENERATION_COST_PROP":        c.GenerationCostProp,
		"GENERATION_COST_IMAGE":       c.GenerationCostImage,
	} {
		if cost < 0 {
			return fmt.Errorf("%s must be >= 0", name)
		}
	}
	if c.S3Enabled() && (c.S3AccessKey == "" || c.S3SecretKey == "" || c.S3PublicBaseURL == "") {
		return errors.New("S3_BUCKET requires S3_ACCESS_KEY, S3_SECRET_KEY and S3_PUBLIC_BASE_URL")
	}
	if c.RateLimitRequests <= 0 || c.RateLimitWindow <= 0 {
		return errors.New("RATE_LIMIT_REQUESTS and RATE_LIMIT_WINDOW must be positive")
	}
	if c.QuestRetentionDays < 1 {
		return errors.New("QUEST_RETENTION_DAYS must be >= 1")
	}
	return nil
}

// Load reads the environment (after an optional .env file) into a Config.
func Load() (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	table, err := parseInt64CSV(cfg.DailyRewardTableRaw)
	if err != nil {
		return nil, fmt.Errorf("DAILY_REWARD_TABLE parse: %w", err)
	}
	cfg.DailyRewardTable = table
	cfg.CORSOrigins = parseStringCSV(cfg.CORSOriginsRaw)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// loadEnvFile loads CONFIG_ENV_PATH or ./.env when present. A missing file is fine.
func loadEnvFile() error {
	path := ".env"
	if custom, ok := os.LookupEnv("CONFIG_ENV_PATH"); ok && custom != "" {
		path = custom
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("access env file %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

func parseInt64CSV(s string) ([]int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]int64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		v, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad int64 %q: %w", p, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func parseStringCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
