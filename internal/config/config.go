package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	App      AppConfig      `yaml:"app"`
	Database DatabaseConfig `yaml:"database"`
	AI       AIConfig       `yaml:"ai"`
	Window   WindowConfig   `yaml:"window"`
	State    StateConfig    `yaml:"state"`
	Rabbit   RabbitConfig   `yaml:"rabbit"`
	Log      LogConfig      `yaml:"log"`

	ChatContextWindowSize int `yaml:"chat_context_window_size"`
}

type AppConfig struct {
	Name          string `yaml:"name"`
	Port          int    `yaml:"port"`
	PublicURL     string `yaml:"public_url"`
	ResponseStyle string `yaml:"response_style"`
}

type DatabaseConfig struct {
	URL          string `yaml:"url"`
	Driver       string `yaml:"driver"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

type AIConfig struct {
	Provider string `yaml:"provider"`

	GoogleAPIKey string `yaml:"google_api_key"`
	GeminiModel  string `yaml:"gemini_model"`

	OllamaBaseURL string `yaml:"ollama_base_url"`
	OllamaModel   string `yaml:"ollama_model"`

	OpenRouterBaseURL string `yaml:"openrouter_base_url"`
	OpenRouterAPIKey  string `yaml:"openrouter_api_key"`
	OpenRouterModel   string `yaml:"openrouter_model"`
	OpenRouterSiteURL string `yaml:"openrouter_site_url"`
	OpenRouterAppName string `yaml:"openrouter_app_name"`
}

type WindowConfig struct {
	Timezone    string `yaml:"timezone"`
	StartHour   int    `yaml:"start_hour"`
	StartMinute int    `yaml:"start_minute"`
	EndHour     int    `yaml:"end_hour"`
	EndMinute   int    `yaml:"end_minute"`
}

type StateConfig struct {
	Backend       string `yaml:"backend"`
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	TTLHours      int    `yaml:"ttl_hours"`
}

type RabbitConfig struct {
	URL               string `yaml:"url"`
	Queue             string `yaml:"queue"`
	WorkerConcurrency int    `yaml:"worker_concurrency"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	Console    bool   `yaml:"console"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

const defaultConfigPath = "etc/config.yaml"

func defaults() Config {
	return Config{
		App: AppConfig{Name: "daily_standup_agent", Port: 8001, ResponseStyle: "task"},
		Database: DatabaseConfig{
			MaxOpenConns: 10,
			MaxIdleConns: 2,
		},
		AI: AIConfig{
			Provider:          "gemini",
			GeminiModel:       "gemini-2.0-flash-001",
			OllamaBaseURL:     "http://localhost:11434",
			OllamaModel:       "llama3:latest",
			OpenRouterBaseURL: "https://openrouter.ai/api/v1",
			OpenRouterModel:   "openrouter/auto",
		},
		Window: WindowConfig{
			Timezone:    "Africa/Lagos",
			StartHour:   9,
			StartMinute: 30,
			EndHour:     12,
			EndMinute:   30,
		},
		State: StateConfig{
			Backend:   "db",
			RedisAddr: "127.0.0.1:6379",
			TTLHours:  24,
		},
		Rabbit: RabbitConfig{
			Queue:             "standup_events",
			WorkerConcurrency: 2,
		},
		Log: LogConfig{Level: "info", Console: true, MaxSizeMB: 100, MaxBackups: 3, MaxAgeDays: 30},

		ChatContextWindowSize: 10,
	}
}

// Load builds the configuration from defaults, an optional YAML file and
// the environment, in that order. An explicit path that cannot be read is an
// error; the default path is optional.
func Load(path string) (Config, error) {
	c := defaults()

	file := path
	if file == "" {
		file = defaultConfigPath
	}
	data, err := os.ReadFile(file)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &c); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", file, err)
		}
	case path != "":
		return Config{}, fmt.Errorf("read %s: %w", file, err)
	}

	c.applyEnv()

	if c.Database.Driver == "" {
		c.Database.Driver = InferDriver(c.Database.URL)
	}
	if c.Rabbit.WorkerConcurrency <= 0 {
		c.Rabbit.WorkerConcurrency = 2
	}
	if c.Rabbit.WorkerConcurrency > 50 {
		c.Rabbit.WorkerConcurrency = 50
	}
	return c, nil
}

func (c *Config) applyEnv() {
	envOverride(&c.App.Name, "APP_NAME")
	envOverrideInt(&c.App.Port, "A2A_PORT")
	envOverrideInt(&c.App.Port, "PORT")
	envOverride(&c.App.PublicURL, "PUBLIC_URL")
	envOverride(&c.App.ResponseStyle, "A2A_RESPONSE_STYLE")

	envOverride(&c.Database.URL, "DATABASE_URL")
	envOverride(&c.Database.Driver, "DB_DRIVER")
	envOverrideInt(&c.Database.MaxOpenConns, "DB_MAX_OPEN_CONNS")
	envOverrideInt(&c.Database.MaxIdleConns, "DB_MAX_IDLE_CONNS")

	envOverride(&c.AI.Provider, "AI_PROVIDER")
	envOverride(&c.AI.GoogleAPIKey, "GOOGLE_API_KEY")
	envOverride(&c.AI.GeminiModel, "GEMINI_MODEL")
	envOverride(&c.AI.OllamaBaseURL, "OLLAMA_BASE_URL")
	envOverride(&c.AI.OllamaModel, "OLLAMA_MODEL")
	envOverride(&c.AI.OpenRouterBaseURL, "OPENROUTER_BASE_URL")
	envOverride(&c.AI.OpenRouterAPIKey, "OPENROUTER_API_KEY")
	envOverride(&c.AI.OpenRouterModel, "OPENROUTER_MODEL")
	envOverride(&c.AI.OpenRouterSiteURL, "OPENROUTER_SITE_URL")
	envOverride(&c.AI.OpenRouterAppName, "OPENROUTER_APP_NAME")

	envOverride(&c.Window.Timezone, "TIMEZONE")
	envOverrideInt(&c.Window.StartHour, "WINDOW_START_HOUR")
	envOverrideInt(&c.Window.StartMinute, "WINDOW_START_MINUTE")
	envOverrideInt(&c.Window.EndHour, "WINDOW_END_HOUR")
	envOverrideInt(&c.Window.EndMinute, "WINDOW_END_MINUTE")

	envOverride(&c.State.Backend, "STATE_BACKEND")
	envOverride(&c.State.RedisAddr, "REDIS_ADDR")
	envOverride(&c.State.RedisPassword, "REDIS_PASSWORD")
	envOverrideInt(&c.State.RedisDB, "REDIS_DB")
	envOverrideInt(&c.State.TTLHours, "STATE_TTL_HOURS")

	envOverride(&c.Rabbit.URL, "RABBIT_URL")
	envOverride(&c.Rabbit.Queue, "RABBIT_QUEUE")
	envOverrideInt(&c.Rabbit.WorkerConcurrency, "WORKER_CONCURRENCY")

	envOverride(&c.Log.Level, "LOG_LEVEL")
	envOverride(&c.Log.File, "LOG_FILE")
	envOverrideBool(&c.Log.Console, "LOG_CONSOLE")

	envOverrideInt(&c.ChatContextWindowSize, "CHAT_CONTEXT_WINDOW_SIZE")
}

// Validate reports every missing precondition at once so a misconfigured
// process dies with one clear message.
func (c Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Database.URL) == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	switch c.Database.Driver {
	case "postgres", "mysql", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("unsupported DB_DRIVER=%q", c.Database.Driver))
	}

	switch strings.ToLower(c.AI.Provider) {
	case "gemini":
		if c.AI.GoogleAPIKey == "" {
			errs = append(errs, errors.New("GOOGLE_API_KEY is required for AI_PROVIDER=gemini"))
		}
	case "openrouter":
		if c.AI.OpenRouterAPIKey == "" {
			errs = append(errs, errors.New("OPENROUTER_API_KEY is required for AI_PROVIDER=openrouter"))
		}
	case "ollama":
	default:
		errs = append(errs, fmt.Errorf("unsupported AI_PROVIDER=%q", c.AI.Provider))
	}

	w := c.Window
	if !validClock(w.StartHour, w.StartMinute) || !validClock(w.EndHour, w.EndMinute) {
		errs = append(errs, errors.New("window hours must be 0-23 and minutes 0-59"))
	} else if w.EndHour*60+w.EndMinute < w.StartHour*60+w.StartMinute {
		errs = append(errs, errors.New("window end must not be before window start"))
	}

	switch c.State.Backend {
	case "memory", "redis", "db":
	default:
		errs = append(errs, fmt.Errorf("unsupported STATE_BACKEND=%q", c.State.Backend))
	}

	switch c.App.ResponseStyle {
	case "task", "message":
	default:
		errs = append(errs, fmt.Errorf("unsupported A2A_RESPONSE_STYLE=%q", c.App.ResponseStyle))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %w", errors.Join(errs...))
	}
	return nil
}

func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.App.Port)
}

// InferDriver guesses the gorm dialect from a connection string.
func InferDriver(dsn string) string {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return ""
	}
	if u, err := url.Parse(dsn); err == nil {
		switch u.Scheme {
		case "postgres", "postgresql":
			return "postgres"
		case "mysql":
			return "mysql"
		case "sqlite", "file":
			return "sqlite"
		}
	}
	switch {
	case strings.Contains(dsn, "@tcp("):
		return "mysql"
	case strings.HasSuffix(dsn, ".db"), strings.HasPrefix(dsn, ":memory:"):
		return "sqlite"
	case strings.Contains(dsn, "host=") || strings.Contains(dsn, "dbname="):
		return "postgres"
	}
	return "postgres"
}

func validClock(h, m int) bool {
	return h >= 0 && h <= 23 && m >= 0 && m <= 59
}

func envOverride(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envOverrideInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envOverrideBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}
