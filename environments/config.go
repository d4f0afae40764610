package environments

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server     ServerConfig
	Log        LogConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Runner     RunnerConfig
	Dispatcher DispatcherConfig
	Sequence   SequenceConfig
	Throttle   ThrottleConfig
	Alert      AlertConfig
	Auth       AuthConfig
}

type ServerConfig struct {
	Port string
}

type LogConfig struct {
	Level  string
	Format string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Password string
	DB       int
}

// RunnerConfig points at the external workflow runner that performs the
// actual call or send for a dispatched step.
type RunnerConfig struct {
	URL     string
	AuthKey string
	Timeout time.Duration
}

type DispatcherConfig struct {
	AutoStart         bool
	BatchSize         int
	PollInterval      time.Duration
	VisibilityTimeout time.Duration
}

// SequenceConfig controls how the completion transition treats failures.
type SequenceConfig struct {
	FailurePolicy    string
	MaxAttempts      int
	RetryBackoff     time.Duration
	ReadyLimit       int
	CompletionTTL    time.Duration
	PublishChunkSize int
}

type ThrottleConfig struct {
	Backend     string
	DailyCap    int
	MinInterval time.Duration
	Timezone    string
	LockTTL     time.Duration
}

type AlertConfig struct {
	WebhookURL     string
	IterationCount int
}

type AuthConfig struct {
	ExecutorAPIKey string
	AdminAPIKey    string
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first when present; real environment variables win.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Port: GetEnv("SERVER_PORT", "8080"),
		},
		Log: LogConfig{
			Level:  GetEnv("LOG_LEVEL", "info"),
			Format: GetEnv("LOG_FORMAT", "text"),
		},
		Database: DatabaseConfig{
			Host:     GetEnv("DB_HOST", "localhost"),
			Port:     GetEnv("DB_PORT", "3306"),
			User:     GetEnv("DB_USER", "sequencer"),
			Password: GetEnv("DB_PASSWORD", "sequencer123"),
			DBName:   GetEnv("DB_NAME", "outreach_sequencer"),
		},
		Redis: RedisConfig{
			Enabled:  GetEnvAsBool("REDIS_ENABLED", true),
			Host:     GetEnv("REDIS_HOST", "localhost"),
			Port:     GetEnv("REDIS_PORT", "6379"),
			Password: GetEnv("REDIS_PASSWORD", ""),
			DB:       GetEnvAsInt("REDIS_DB", 0),
		},
		Runner: RunnerConfig{
			URL:     GetEnv("RUNNER_URL", "http://localhost:9090/steps"),
			AuthKey: GetEnv("RUNNER_AUTH_KEY", ""),
			Timeout: time.Duration(GetEnvAsInt("RUNNER_TIMEOUT_SECONDS", 30)) * time.Second,
		},
		Dispatcher: DispatcherConfig{
			AutoStart:         GetEnvAsBool("DISPATCHER_AUTO_START", true),
			BatchSize:         GetEnvAsInt("DISPATCHER_BATCH_SIZE", 20),
			PollInterval:      GetEnvAsDuration("DISPATCHER_POLL_INTERVAL", 5*time.Second),
			VisibilityTimeout: GetEnvAsDuration("DISPATCHER_VISIBILITY_TIMEOUT", 10*time.Minute),
		},
		Sequence: SequenceConfig{
			FailurePolicy:    strings.ToLower(GetEnv("FAILURE_POLICY", "halt")),
			MaxAttempts:      GetEnvAsInt("FAILURE_MAX_ATTEMPTS", 3),
			RetryBackoff:     GetEnvAsDuration("FAILURE_RETRY_BACKOFF", 15*time.Minute),
			ReadyLimit:       GetEnvAsInt("READY_TASKS_MAX_LIMIT", 500),
			CompletionTTL:    GetEnvAsDuration("COMPLETION_CACHE_TTL", 24*time.Hour),
			PublishChunkSize: GetEnvAsInt("PUBLISH_CHUNK_SIZE", 500),
		},
		Throttle: ThrottleConfig{
			Backend:     strings.ToLower(GetEnv("THROTTLE_BACKEND", "mysql")),
			DailyCap:    GetEnvAsInt("THROTTLE_DAILY_CAP", 100),
			MinInterval: GetEnvAsDuration("THROTTLE_MIN_INTERVAL", 5*time.Minute),
			Timezone:    GetEnv("THROTTLE_TIMEZONE", "UTC"),
			LockTTL:     GetEnvAsDuration("THROTTLE_LOCK_TTL", 2*time.Second),
		},
		Alert: AlertConfig{
			WebhookURL:     GetEnv("ALERT_WEBHOOK_URL", ""),
			IterationCount: GetEnvAsInt("ALERT_ITERATION_COUNT", 0),
		},
		Auth: AuthConfig{
			ExecutorAPIKey: GetEnv("EXECUTOR_API_KEY", ""),
			AdminAPIKey:    GetEnv("ADMIN_API_KEY", ""),
		},
	}
}

func GetEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func GetEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func GetEnvAsBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func GetEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
