package backend

import (
	"fmt"
	"strconv"

	"gastos/internal/config"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	cfg := Config{
		Local:  LocalType(appConfig.LocalBackend),
		Remote: RemoteType(appConfig.RemoteBackend),

		SQLiteDBPath: appConfig.SQLiteDBPath,

		SupabaseURL:     appConfig.SupabaseURL,
		SupabaseAnonKey: appConfig.SupabaseAnonKey,
		SupabaseTable:   appConfig.SupabaseTable,
		SupabaseBucket:  appConfig.SupabaseBucket,
		RemoteTimeout:   appConfig.RemoteTimeout,

		DatabaseURL:  appConfig.DatabaseURL,
		PhotoDir:     appConfig.PhotoDir,
		PhotoBaseURL: appConfig.PhotoBaseURL,

		SessionFile:           appConfig.SessionFile,
		GoogleWebClientID:     appConfig.GoogleWebClientID,
		GoogleOAuthClientFile: appConfig.GoogleOAuthClientFile,
		GoogleOAuthClientJSON: appConfig.GoogleOAuthClientJSON,
		GoogleIDToken:         appConfig.GoogleIDToken,
		OAuthRedirectPort:     strconv.Itoa(appConfig.OAuthRedirectPort),

		AMQPURL:      appConfig.AMQPURL,
		AMQPExchange: appConfig.AMQPExchange,
		AMQPQueue:    appConfig.AMQPQueue,
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Local.IsValid() {
		return fmt.Errorf("invalid local backend: %s", c.Local)
	}
	if !c.Remote.IsValid() {
		return fmt.Errorf("invalid remote backend: %s", c.Remote)
	}

	if c.Local == SQLiteLocal && c.SQLiteDBPath == "" {
		return fmt.Errorf("SQLite database path is required for sqlite backend")
	}

	switch c.Remote {
	case SupabaseRemote:
		if c.SupabaseURL == "" || c.SupabaseAnonKey == "" {
			return fmt.Errorf("Supabase URL and anon key are required for supabase backend")
		}
	case PostgresRemote:
		if c.DatabaseURL == "" {
			return fmt.Errorf("database URL is required for postgres backend")
		}
		if c.PhotoDir == "" {
			return fmt.Errorf("photo directory is required for postgres backend")
		}
	case MemoryRemote:
		// Nothing to connect to
	}

	return nil
}

// GetLocalTypeStrings returns all valid local store names
func GetLocalTypeStrings() []string {
	return []string{SQLiteLocal.String(), MemoryLocal.String()}
}

// GetRemoteTypeStrings returns all valid remote backend names
func GetRemoteTypeStrings() []string {
	return []string{SupabaseRemote.String(), PostgresRemote.String(), MemoryRemote.String()}
}
