package server

import (
	"os"
	"strconv"
	"time"
)

// Config holds server configuration from environment variables.
type Config struct {
	Port     string
	GRPCPort string
	NatsURL  string

	// APIKey authenticates mutating endpoints. Empty is refused at startup
	// unless AllowInsecureNoAuth is set.
	APIKey              string
	AllowInsecureNoAuth bool

	// ExecTimeout bounds a single content mutation.
	ExecTimeout time.Duration

	// TriggerEnabled runs the internal cron trigger; TriggerSpec is its
	// schedule. StalledAfter is the reaper's claim-staleness threshold.
	TriggerEnabled bool
	TriggerSpec    string
	StalledAfter   time.Duration

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// LoadConfig reads configuration from environment variables with defaults.
func LoadConfig() Config {
	return Config{
		Port:                getEnv("SCHED_PORT", "8080"),
		GRPCPort:            getEnv("SCHED_GRPC_PORT", "9090"),
		NatsURL:             getEnv("NATS_URL", "nats://localhost:4222"),
		APIKey:              getEnv("SCHED_API_KEY", ""),
		AllowInsecureNoAuth: getEnvBool("SCHED_ALLOW_INSECURE_NO_AUTH", false),
		ExecTimeout:         getEnvDuration("SCHED_EXEC_TIMEOUT", 30*time.Second),
		TriggerEnabled:      getEnvBool("SCHED_TRIGGER_ENABLED", true),
		TriggerSpec:         getEnv("SCHED_TRIGGER_SPEC", "@every 1m"),
		StalledAfter:        getEnvDuration("SCHED_STALLED_AFTER", 5*time.Minute),
		ReadTimeout:         getEnvDuration("SCHED_READ_TIMEOUT", 10*time.Second),
		WriteTimeout:        getEnvDuration("SCHED_WRITE_TIMEOUT", 30*time.Second),
		IdleTimeout:         getEnvDuration("SCHED_IDLE_TIMEOUT", 120*time.Second),
		ShutdownTimeout:     getEnvDuration("SCHED_SHUTDOWN_TIMEOUT", 15*time.Second),
	}
}

func getEnv(key, defaultVal string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
