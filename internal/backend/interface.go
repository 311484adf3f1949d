package backend

import (
	"context"
	"time"

	"gastos/internal/auth"
	"gastos/internal/remote"
	"gastos/internal/services"
	"gastos/internal/storage"
)

// Backend bundles every collaborator the sync engine needs.
type Backend struct {
	Local   storage.LocalStore
	Rows    remote.RowStore
	Bucket  remote.Bucket
	Session auth.Provider
	// Events is nil when AMQP is not configured.
	Events services.Publisher

	keepAlive func(ctx context.Context, interval time.Duration)
}

// KeepAlive runs the session provider's renewal loop until ctx is done. It returns
// immediately for providers that need none.
func (b *Backend) KeepAlive(ctx context.Context, interval time.Duration) {
	if b.keepAlive != nil {
		b.keepAlive(ctx, interval)
	}
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the backend instance and optional cleanup function
type BackendResult struct {
	Backend *Backend
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	// CreateBackend creates a backend instance based on the provided config
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Local  LocalType
	Remote RemoteType

	// SQLite specific
	SQLiteDBPath string

	// Supabase specific
	SupabaseURL     string
	SupabaseAnonKey string
	SupabaseTable   string
	SupabaseBucket  string
	RemoteTimeout   time.Duration

	// Postgres specific, photos go to a directory bucket
	DatabaseURL  string
	PhotoDir     string
	PhotoBaseURL string

	// Session
	SessionFile           string
	GoogleWebClientID     string
	GoogleOAuthClientFile string
	GoogleOAuthClientJSON string
	GoogleIDToken         string
	OAuthRedirectPort     string

	// Events, optional
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

// LocalType selects the local store implementation
type LocalType string

const (
	SQLiteLocal LocalType = "sqlite"
	MemoryLocal LocalType = "memory"
)

// String implements fmt.Stringer
func (lt LocalType) String() string {
	return string(lt)
}

// IsValid returns true if the local type is valid
func (lt LocalType) IsValid() bool {
	switch lt {
	case SQLiteLocal, MemoryLocal:
		return true
	default:
		return false
	}
}

// RemoteType selects the shared backend implementation
type RemoteType string

const (
	SupabaseRemote RemoteType = "supabase"
	PostgresRemote RemoteType = "postgres"
	MemoryRemote   RemoteType = "memory"
)

// String implements fmt.Stringer
func (rt RemoteType) String() string {
	return string(rt)
}

// IsValid returns true if the remote type is valid
func (rt RemoteType) IsValid() bool {
	switch rt {
	case SupabaseRemote, PostgresRemote, MemoryRemote:
		return true
	default:
		return false
	}
}
