package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Tracing   TracingConfig   `mapstructure:"tracing"`
	CORS      CORSConfig      `mapstructure:"cors"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Log       LogConfig       `mapstructure:"log"`
	Scoring   ScoringConfig   `mapstructure:"scoring"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`

	// 运行时标志（非配置文件，通过命令行参数设置）
	ForceMigrate bool `mapstructure:"-"`
	MigrateOnly  bool `mapstructure:"-"`
}

type ServerConfig struct {
	Port string
	Mode string
}

type DatabaseConfig struct {
	Driver     string `mapstructure:"driver"` // mysql | sqlite
	Host       string
	Port       int
	User       string
	Password   string
	DBName     string
	Charset    string
	ParseTime  bool   `mapstructure:"parsetime"`
	SQLitePath string `mapstructure:"sqlite_path"`
	LogSQL     bool   `mapstructure:"log_sql"`
}

type RedisConfig struct {
	Enabled        bool `mapstructure:"enabled"`
	Host           string
	Port           int
	Password       string
	DB             int
	LeaderboardTTL time.Duration `mapstructure:"leaderboard_ttl"`
}

type TracingConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	ServiceName       string `mapstructure:"service_name"`
	CollectorEndpoint string `mapstructure:"collector_endpoint"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type RateLimitConfig struct {
	MaxRequests   int `mapstructure:"max_requests"`
	WindowMinutes int `mapstructure:"window_minutes"`
}

type LogConfig struct {
	File  string `mapstructure:"file"`
	Level string `mapstructure:"level"`
}

// ScoringConfig 积分规则，支持热加载
type ScoringConfig struct {
	Timezone           string   `mapstructure:"timezone"`
	MonthWindowDays    int      `mapstructure:"month_window_days"`
	SingleSessionWeeks []int    `mapstructure:"single_session_weeks"`
	RecentTransactions int      `mapstructure:"recent_transactions"`
	XP                 XPConfig `mapstructure:"xp"`
}

type XPConfig struct {
	SessionComplete    int `mapstructure:"session_complete"`
	TestingComplete    int `mapstructure:"testing_complete"`
	WeekComplete       int `mapstructure:"week_complete"`
	TrainingAndTesting int `mapstructure:"training_and_testing"`
	MonthComplete      int `mapstructure:"month_complete"`
}

type SchedulerConfig struct {
	StatsRefreshInterval time.Duration `mapstructure:"stats_refresh_interval"`
}

// Location 解析训练计划所在时区
func (s ScoringConfig) Location() (*time.Location, error) {
	if s.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(s.Timezone)
}

func (s ScoringConfig) Validate() error {
	if _, err := s.Location(); err != nil {
		return fmt.Errorf("scoring.timezone: %w", err)
	}
	if s.MonthWindowDays <= 0 {
		return fmt.Errorf("scoring.month_window_days must be positive, got %d", s.MonthWindowDays)
	}
	amounts := map[string]int{
		"session_complete":     s.XP.SessionComplete,
		"testing_complete":     s.XP.TestingComplete,
		"week_complete":        s.XP.WeekComplete,
		"training_and_testing": s.XP.TrainingAndTesting,
		"month_complete":       s.XP.MonthComplete,
	}
	for name, amount := range amounts {
		if amount <= 0 {
			return fmt.Errorf("scoring.xp.%s must be positive, got %d", name, amount)
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")

	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.port", 3306)
	v.SetDefault("database.charset", "utf8mb4")
	v.SetDefault("database.parsetime", true)
	v.SetDefault("database.sqlite_path", "data/training.db")

	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.leaderboard_ttl", "5m")

	v.SetDefault("tracing.service_name", "training-tracker")
	v.SetDefault("rate_limit.max_requests", 600)
	v.SetDefault("rate_limit.window_minutes", 1)
	v.SetDefault("log.file", "logs/app.log")

	v.SetDefault("scoring.timezone", "UTC")
	v.SetDefault("scoring.month_window_days", 28)
	v.SetDefault("scoring.recent_transactions", 10)
	v.SetDefault("scoring.xp.session_complete", 1)
	v.SetDefault("scoring.xp.testing_complete", 2)
	v.SetDefault("scoring.xp.week_complete", 1)
	v.SetDefault("scoring.xp.training_and_testing", 2)
	v.SetDefault("scoring.xp.month_complete", 3)

	v.SetDefault("scheduler.stats_refresh_interval", "0s")
}

func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetEnvPrefix("TRAINING")
	v.AutomaticEnv()
	setDefaults(v)

	// Database
	v.BindEnv("database.driver", "DATABASE_DRIVER")
	v.BindEnv("database.host", "DATABASE_HOST")
	v.BindEnv("database.port", "DATABASE_PORT")
	v.BindEnv("database.user", "DATABASE_USER")
	v.BindEnv("database.password", "DATABASE_PASSWORD")
	v.BindEnv("database.dbname", "DATABASE_NAME")

	// Redis
	v.BindEnv("redis.enabled", "REDIS_ENABLED")
	v.BindEnv("redis.host", "REDIS_HOST")
	v.BindEnv("redis.port", "REDIS_PORT")
	v.BindEnv("redis.password", "REDIS_PASSWORD")

	// Server
	v.BindEnv("server.mode", "SERVER_MODE")
	v.BindEnv("server.port", "SERVER_PORT")

	// Tracing
	v.BindEnv("tracing.enabled", "TRACING_ENABLED")
	v.BindEnv("tracing.collector_endpoint", "TRACING_COLLECTOR_ENDPOINT")

	// Scoring
	v.BindEnv("scoring.timezone", "SCORING_TIMEZONE")

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.Scoring.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}
