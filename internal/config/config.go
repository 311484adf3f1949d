package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Backend names
const (
	LocalSQLite    = "sqlite"
	LocalMemory    = "memory"
	RemoteMemory   = "memory"
	RemoteSupabase = "supabase"
	RemotePostgres = "postgres"
)

type Config struct {
	// HTTP Server
	HTTPAddr string

	// Local store
	DataDir      string
	LocalBackend string
	SQLiteDBPath string

	// Remote store
	RemoteBackend   string
	SupabaseURL     string
	SupabaseAnonKey string
	SupabaseTable   string
	SupabaseBucket  string
	DatabaseURL     string
	PhotoDir        string
	PhotoBaseURL    string

	// Session
	SessionFile           string
	GoogleWebClientID     string
	GoogleOAuthClientFile string
	GoogleOAuthClientJSON string
	GoogleIDToken         string
	OAuthRedirectPort     int
	RemoteTimeout         time.Duration

	// AMQP, disabled when AMQPURL is empty
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Sync
	SyncInterval       time.Duration
	ClearOnSessionLoss bool
	PushWithoutPhoto   bool

	// Logging
	LogLevel  string
	LogFormat string
}

func Load() *Config {
	dataDir := getEnv("DATA_DIR", "./data")

	cfg := &Config{
		HTTPAddr: getEnv("HTTP_ADDR", ":8081"),

		DataDir:      dataDir,
		LocalBackend: getEnv("LOCAL_BACKEND", LocalSQLite),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", filepath.Join(dataDir, "gastos.db")),

		RemoteBackend:   getEnv("REMOTE_BACKEND", RemoteMemory),
		SupabaseURL:     getEnv("SUPABASE_URL", ""),
		SupabaseAnonKey: getEnv("SUPABASE_ANON_KEY", ""),
		SupabaseTable:   getEnv("SUPABASE_TABLE", "gastos"),
		SupabaseBucket:  getEnv("SUPABASE_BUCKET", "fotos_gastos"),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		PhotoDir:        getEnv("PHOTO_DIR", filepath.Join(dataDir, "fotos")),
		PhotoBaseURL:    getEnv("PHOTO_BASE_URL", "http://localhost:8081/fotos"),

		SessionFile:           getEnv("SESSION_FILE", filepath.Join(dataDir, "session.json")),
		GoogleWebClientID:     getEnv("GOOGLE_WEB_CLIENT_ID", ""),
		GoogleOAuthClientFile: getEnv("GOOGLE_OAUTH_CLIENT_FILE", ""),
		GoogleOAuthClientJSON: getEnv("GOOGLE_OAUTH_CLIENT_JSON", ""),
		GoogleIDToken:         getEnv("GOOGLE_ID_TOKEN", ""),
		OAuthRedirectPort:     getEnvInt("OAUTH_REDIRECT_PORT", 8085),
		RemoteTimeout:         getEnvDuration("REMOTE_TIMEOUT", 30*time.Second),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "gastos.events"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "gastos_events"),

		SyncInterval:       getEnvDuration("SYNC_INTERVAL", 5*time.Minute),
		ClearOnSessionLoss: getEnvBool("CLEAR_ON_SESSION_LOSS", false),
		PushWithoutPhoto:   getEnvBool("PUSH_WITHOUT_PHOTO", false),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}

	return cfg
}

// Validate validates the configuration and returns every problem found
func (c *Config) Validate() error {
	var errors []string

	if _, port, err := net.SplitHostPort(c.HTTPAddr); err != nil {
		errors = append(errors, fmt.Sprintf("invalid HTTP address '%s': %v", c.HTTPAddr, err))
	} else if p, err := strconv.Atoi(port); err != nil || p < 0 || p > 65535 {
		errors = append(errors, fmt.Sprintf("invalid HTTP port '%s': must be between 0 and 65535", port))
	}

	validLocal := []string{LocalSQLite, LocalMemory}
	if !slices.Contains(validLocal, c.LocalBackend) {
		errors = append(errors, fmt.Sprintf("invalid local backend '%s': must be one of %v", c.LocalBackend, validLocal))
	}

	if c.LocalBackend == LocalSQLite {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else if dir := filepath.Dir(c.SQLiteDBPath); dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	}

	validRemote := []string{RemoteMemory, RemoteSupabase, RemotePostgres}
	if !slices.Contains(validRemote, c.RemoteBackend) {
		errors = append(errors, fmt.Sprintf("invalid remote backend '%s': must be one of %v", c.RemoteBackend, validRemote))
	}

	switch c.RemoteBackend {
	case RemoteSupabase:
		if c.SupabaseURL == "" {
			errors = append(errors, "SUPABASE_URL is required when using supabase backend")
		} else if u, err := url.Parse(c.SupabaseURL); err != nil || (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
			errors = append(errors, fmt.Sprintf("invalid Supabase URL '%s': must be an http(s) URL", c.SupabaseURL))
		}
		if c.SupabaseAnonKey == "" {
			errors = append(errors, "SUPABASE_ANON_KEY is required when using supabase backend")
		}
		if c.SupabaseTable == "" || c.SupabaseBucket == "" {
			errors = append(errors, "Supabase table and bucket names cannot be empty")
		}
	case RemotePostgres:
		if c.DatabaseURL == "" {
			errors = append(errors, "DATABASE_URL is required when using postgres backend")
		} else if u, err := url.Parse(c.DatabaseURL); err != nil || (u.Scheme != "postgres" && u.Scheme != "postgresql") {
			errors = append(errors, "invalid DATABASE_URL: scheme must be 'postgres' or 'postgresql'")
		}
		if c.PhotoDir == "" {
			errors = append(errors, "PHOTO_DIR is required when using postgres backend")
		}
	}

	if c.OAuthRedirectPort < 1 || c.OAuthRedirectPort > 65535 {
		errors = append(errors, fmt.Sprintf("invalid OAuth redirect port %d: must be between 1 and 65535", c.OAuthRedirectPort))
	}

	if c.RemoteTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("invalid remote timeout %v: must be positive", c.RemoteTimeout))
	}

	if c.GoogleOAuthClientFile != "" {
		if _, err := os.Stat(c.GoogleOAuthClientFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("Google OAuth client file does not exist: %s", c.GoogleOAuthClientFile))
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
	}

	if c.SyncInterval < 10*time.Second {
		errors = append(errors, fmt.Sprintf("invalid sync interval %v: must be at least 10 seconds", c.SyncInterval))
	} else if c.SyncInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid sync interval %v: must be at most 24 hours", c.SyncInterval))
	}

	validFormats := []string{"text", "json", "console"}
	if !slices.Contains(validFormats, strings.ToLower(c.LogFormat)) {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be one of %v", c.LogFormat, validFormats))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// HasGoogleClient reports whether an interactive OAuth client is configured.
func (c *Config) HasGoogleClient() bool {
	return c.GoogleOAuthClientFile != "" || c.GoogleOAuthClientJSON != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
