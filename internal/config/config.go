package config

import (
	"errors"
	"io/fs"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Backend kinds
const (
	BackendSQL      = "sql"
	BackendSupabase = "supabase"
)

// Config holds application configuration
type Config struct {
	ServerPort     string
	Backend        string
	DatabaseType   string
	DatabasePath   string
	DatabaseURL    string
	MigrationsPath string

	JWTSecret       string
	CSRFSecret      string
	SessionDuration time.Duration
	IdleSessionTTL  time.Duration
	FeedbackDelay   time.Duration

	SupabaseURL     string
	SupabaseAnonKey string

	LogLevel  string
	LogFormat string

	AWSRegion    string
	SESFromEmail string
	SESFromName  string
	AppBaseURL   string
}

// Load reads configuration from the environment (and a .env file when present)
// with sensible defaults
func Load() *Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("Warning: failed to read .env file: %v", err)
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	return &Config{
		ServerPort:      v.GetString("PORT"),
		Backend:         v.GetString("BACKEND"),
		DatabaseType:    v.GetString("DB_TYPE"),
		DatabasePath:    v.GetString("DB_PATH"),
		DatabaseURL:     v.GetString("DATABASE_URL"),
		MigrationsPath:  v.GetString("MIGRATIONS_PATH"),
		JWTSecret:       v.GetString("JWT_SECRET"),
		CSRFSecret:      v.GetString("CSRF_SECRET"),
		SessionDuration: v.GetDuration("SESSION_DURATION"),
		IdleSessionTTL:  v.GetDuration("IDLE_SESSION_TTL"),
		FeedbackDelay:   v.GetDuration("FEEDBACK_DELAY"),
		SupabaseURL:     v.GetString("SUPABASE_URL"),
		SupabaseAnonKey: v.GetString("SUPABASE_ANON_KEY"),
		LogLevel:        v.GetString("LOG_LEVEL"),
		LogFormat:       v.GetString("LOG_FORMAT"),
		AWSRegion:       v.GetString("AWS_REGION"),
		SESFromEmail:    v.GetString("SES_FROM_EMAIL"),
		SESFromName:     v.GetString("SES_FROM_NAME"),
		AppBaseURL:      v.GetString("APP_BASE_URL"),
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("BACKEND", BackendSQL)
	v.SetDefault("DB_TYPE", "sqlite")
	v.SetDefault("DB_PATH", "./vocabquiz.db")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("MIGRATIONS_PATH", "") // empty: use the embedded migrations

	v.SetDefault("JWT_SECRET", "change-me-in-production")
	v.SetDefault("CSRF_SECRET", "change-me-in-production")
	v.SetDefault("SESSION_DURATION", 24*time.Hour)
	v.SetDefault("IDLE_SESSION_TTL", 30*time.Minute)
	v.SetDefault("FEEDBACK_DELAY", 1200*time.Millisecond)

	v.SetDefault("SUPABASE_URL", "")
	v.SetDefault("SUPABASE_ANON_KEY", "")

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")

	v.SetDefault("AWS_REGION", "us-east-1")
	v.SetDefault("SES_FROM_EMAIL", "")
	v.SetDefault("SES_FROM_NAME", "Arabic Vocab")
	v.SetDefault("APP_BASE_URL", "http://localhost:8080")
}
