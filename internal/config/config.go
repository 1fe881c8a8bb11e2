package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Environment string            `mapstructure:"environment"`
	LogLevel    string            `mapstructure:"log_level"`
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Redis       RedisConfig       `mapstructure:"redis"`
	FRED        FREDConfig        `mapstructure:"fred"`
	ECOS        ECOSConfig        `mapstructure:"ecos"`
	Groq        GroqConfig        `mapstructure:"groq"`
	News        NewsConfig        `mapstructure:"news"`
	Forecast    ForecastConfig    `mapstructure:"forecast"`
	RateData    RateDataConfig    `mapstructure:"rate_data"`
	Correlation CorrelationConfig `mapstructure:"correlation"`
	Telegram    TelegramConfig    `mapstructure:"telegram"`
	Monitor     MonitorConfig     `mapstructure:"monitor"`
	Telemetry   TelemetryConfig   `mapstructure:"telemetry"`
}

type ServerConfig struct {
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// FREDConfig configures the St. Louis Fed FRED API client (US 10Y yield).
type FREDConfig struct {
	BaseURL  string `mapstructure:"base_url"`
	APIKey   string `mapstructure:"api_key"`
	SeriesID string `mapstructure:"series_id"`
	Timeout  int    `mapstructure:"timeout"`
}

// ECOSConfig configures the Bank of Korea ECOS API client (KR 10Y yield).
type ECOSConfig struct {
	BaseURL   string `mapstructure:"base_url"`
	APIKey    string `mapstructure:"api_key"`
	TableCode string `mapstructure:"table_code"`
	ItemCode  string `mapstructure:"item_code"`
	PageSize  int    `mapstructure:"page_size"`
	Timeout   int    `mapstructure:"timeout"`
}

type GroqConfig struct {
	BaseURL       string  `mapstructure:"base_url"`
	APIKey        string  `mapstructure:"api_key"`
	Model         string  `mapstructure:"model"`
	MaxTokens     int     `mapstructure:"max_tokens"`
	Timeout       int     `mapstructure:"timeout"`
	AnalysisTemp  float64 `mapstructure:"analysis_temperature"`
	ChatTemp      float64 `mapstructure:"chat_temperature"`
	ChatMaxTokens int     `mapstructure:"chat_max_tokens"`
}

type NewsConfig struct {
	BaseURL  string `mapstructure:"base_url"`
	CacheTTL string `mapstructure:"cache_ttl"`
	Timeout  int    `mapstructure:"timeout"`
}

type ForecastConfig struct {
	Path string `mapstructure:"path"`
}

type RateDataConfig struct {
	DefaultDays int    `mapstructure:"default_days"`
	MaxDays     int    `mapstructure:"max_days"`
	CacheTTL    string `mapstructure:"cache_ttl"`
	AnalysisTTL string `mapstructure:"analysis_ttl"`
}

type CorrelationConfig struct {
	Window int `mapstructure:"window"`
}

type TelegramConfig struct {
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
}

type MonitorConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Interval string `mapstructure:"interval"`
}

type TelemetryConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	OTLPEndpoint   string `mapstructure:"otlp_endpoint"`
	ServiceName    string `mapstructure:"service_name"`
	ServiceVersion string `mapstructure:"service_version"`
}

func Load() (*Config, error) {
	// Local development keeps API keys in a .env file; a missing file is fine.
	_ = godotenv.Load()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")

	setDefaults()

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.BindEnv("fred.api_key", "FRED_API_KEY"); err != nil {
		return nil, fmt.Errorf("failed to bind FRED_API_KEY environment variable: %w", err)
	}
	if err := viper.BindEnv("ecos.api_key", "ECOS_API_KEY"); err != nil {
		return nil, fmt.Errorf("failed to bind ECOS_API_KEY environment variable: %w", err)
	}
	if err := viper.BindEnv("groq.api_key", "GROQ_API_KEY"); err != nil {
		return nil, fmt.Errorf("failed to bind GROQ_API_KEY environment variable: %w", err)
	}
	if err := viper.BindEnv("telegram.bot_token", "TELEGRAM_BOT_TOKEN"); err != nil {
		return nil, fmt.Errorf("failed to bind TELEGRAM_BOT_TOKEN environment variable: %w", err)
	}

	if err := viper.ReadInConfig(); err != nil {
		// Config file not found, use defaults and environment variables
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	config.Environment = strings.ToLower(config.Environment)

	if config.Correlation.Window < 2 {
		return nil, fmt.Errorf("correlation window must be at least 2, got %d", config.Correlation.Window)
	}
	if config.RateData.DefaultDays < 1 || config.RateData.DefaultDays > config.RateData.MaxDays {
		return nil, fmt.Errorf("rate_data.default_days must be between 1 and %d, got %d",
			config.RateData.MaxDays, config.RateData.DefaultDays)
	}
	if _, err := time.ParseDuration(config.RateData.CacheTTL); err != nil {
		return nil, fmt.Errorf("invalid rate_data.cache_ttl: %w", err)
	}
	if _, err := time.ParseDuration(config.RateData.AnalysisTTL); err != nil {
		return nil, fmt.Errorf("invalid rate_data.analysis_ttl: %w", err)
	}
	if _, err := time.ParseDuration(config.News.CacheTTL); err != nil {
		return nil, fmt.Errorf("invalid news.cache_ttl: %w", err)
	}
	if _, err := time.ParseDuration(config.Monitor.Interval); err != nil {
		return nil, fmt.Errorf("invalid monitor.interval: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	// Environment
	viper.SetDefault("environment", "development")
	viper.SetDefault("log_level", "info")

	// Server
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})

	// Database
	// Empty hosts leave Postgres and Redis disabled; the service then
	// runs without the snapshot fallback and response caching.
	viper.SetDefault("database.host", "")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "postgres")
	viper.SetDefault("database.dbname", "ratewatch")
	viper.SetDefault("database.sslmode", "disable")

	// Redis
	viper.SetDefault("redis.host", "")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	// FRED: DGS10 is the 10-Year Treasury Constant Maturity series
	viper.SetDefault("fred.base_url", "https://api.stlouisfed.org/fred")
	viper.SetDefault("fred.api_key", "")
	viper.SetDefault("fred.series_id", "DGS10")
	viper.SetDefault("fred.timeout", 30)

	// ECOS: table 817Y002 item 010210000 is the KTB 10Y daily yield
	viper.SetDefault("ecos.base_url", "https://ecos.bok.or.kr/api")
	viper.SetDefault("ecos.api_key", "")
	viper.SetDefault("ecos.table_code", "817Y002")
	viper.SetDefault("ecos.item_code", "010210000")
	viper.SetDefault("ecos.page_size", 10000)
	viper.SetDefault("ecos.timeout", 30)

	// Groq
	viper.SetDefault("groq.base_url", "https://api.groq.com/openai/v1")
	viper.SetDefault("groq.api_key", "")
	viper.SetDefault("groq.model", "qwen/qwen3-32b")
	viper.SetDefault("groq.max_tokens", 500)
	viper.SetDefault("groq.timeout", 30)
	// Analysis runs cooler than chat; chat gets more room to answer.
	viper.SetDefault("groq.analysis_temperature", 0.3)
	viper.SetDefault("groq.chat_temperature", 0.5)
	viper.SetDefault("groq.chat_max_tokens", 2000)

	// News
	viper.SetDefault("news.base_url", "https://news.google.com")
	viper.SetDefault("news.cache_ttl", "30m")
	viper.SetDefault("news.timeout", 15)

	// Forecast
	viper.SetDefault("forecast.path", "./data/forecast.json")

	// Rate data
	viper.SetDefault("rate_data.default_days", 90)
	viper.SetDefault("rate_data.max_days", 365)
	viper.SetDefault("rate_data.cache_ttl", "1h")
	viper.SetDefault("rate_data.analysis_ttl", "6h")

	// Correlation
	viper.SetDefault("correlation.window", 20)

	// Telegram
	viper.SetDefault("telegram.bot_token", "")
	viper.SetDefault("telegram.chat_id", "")

	// Monitor
	viper.SetDefault("monitor.enabled", false)
	viper.SetDefault("monitor.interval", "15m")

	// Telemetry
	viper.SetDefault("telemetry.enabled", false)
	viper.SetDefault("telemetry.otlp_endpoint", "localhost:4318")
	viper.SetDefault("telemetry.service_name", "ratewatch")
	viper.SetDefault("telemetry.service_version", "1.0.0")
}
