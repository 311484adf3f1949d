package backend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gastos/internal/amqp"
	"gastos/internal/auth"
	"gastos/internal/remote/filesystem"
	remotememory "gastos/internal/remote/memory"
	"gastos/internal/remote/postgres"
	"gastos/internal/remote/supabase"
	"gastos/internal/storage"
	"gastos/internal/storage/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
	// prompt receives the sign-in URL of the interactive OAuth flow.
	prompt io.Writer
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger, prompt io.Writer) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	if prompt == nil {
		prompt = os.Stderr
	}
	return &DefaultFactory{
		logger: logger,
		prompt: prompt,
	}
}

// CreateBackend implements Factory.CreateBackend. Resources opened before a failure
// are released before the error is returned.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var cleanups []CleanupFunc
	cleanup := func() error {
		var errs []error
		for i := len(cleanups) - 1; i >= 0; i-- {
			if err := cleanups[i](); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}
	fail := func(err error) (*BackendResult, error) {
		if cerr := cleanup(); cerr != nil {
			f.logger.Warn("Cleanup after failed backend creation", "error", cerr)
		}
		return nil, err
	}

	b := &Backend{}

	local, err := f.createLocal(config)
	if err != nil {
		return fail(err)
	}
	b.Local = local
	cleanups = append(cleanups, local.Close)

	broker, err := f.createBroker(config)
	if err != nil {
		return fail(err)
	}
	verifier := auth.NewVerifier(config.GoogleWebClientID)
	var sessionFile *auth.SessionFile
	if config.SessionFile != "" {
		sessionFile = auth.NewSessionFile(config.SessionFile)
	}

	switch config.Remote {
	case SupabaseRemote:
		err = f.createSupabaseRemote(ctx, config, b, broker, verifier, sessionFile)
	case PostgresRemote:
		var closeRows CleanupFunc
		closeRows, err = f.createPostgresRemote(ctx, config, b)
		if closeRows != nil {
			cleanups = append(cleanups, closeRows)
		}
	case MemoryRemote:
		f.createMemoryRemote(config, b)
	default:
		err = fmt.Errorf("unsupported remote backend: %s", config.Remote)
	}
	if err != nil {
		return fail(err)
	}

	if config.Remote != SupabaseRemote {
		provider := auth.NewGoogleProvider(broker, verifier, sessionFile)
		if err := provider.Restore(ctx); err != nil {
			f.logger.Warn("Failed to restore session, continuing signed out", "error", err)
		}
		b.Session = provider
		b.keepAlive = provider.KeepAlive
	}

	// AMQP is optional
	if config.AMQPURL != "" {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without events", "error", err)
		} else {
			f.logger.Info("Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
			b.Events = client
			cleanups = append(cleanups, client.Close)
		}
	}

	f.logger.Info("Initialized backend",
		"local", config.Local,
		"remote", config.Remote,
		"events_enabled", b.Events != nil,
		"signed_in", b.Session.Current().IsAuthenticated())

	return &BackendResult{Backend: b, Cleanup: cleanup}, nil
}

func (f *DefaultFactory) createLocal(config Config) (storage.LocalStore, error) {
	switch config.Local {
	case SQLiteLocal:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.Info("Initialized SQLite local store", "db_path", config.SQLiteDBPath)
		return repo, nil
	case MemoryLocal:
		f.logger.Info("Initialized memory local store")
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unsupported local backend: %s", config.Local)
	}
}

// createBroker picks how ID tokens are obtained: a pre-issued token wins over the
// interactive flow. Without either, SignIn fails with auth.ErrNoIDToken.
func (f *DefaultFactory) createBroker(config Config) (auth.Broker, error) {
	if config.GoogleIDToken != "" {
		return auth.StaticBroker(config.GoogleIDToken), nil
	}
	if config.GoogleOAuthClientJSON == "" && config.GoogleOAuthClientFile == "" {
		return auth.StaticBroker(""), nil
	}
	clientJSON, err := auth.LoadOAuthClient(config.GoogleOAuthClientJSON, config.GoogleOAuthClientFile)
	if err != nil {
		return nil, err
	}
	broker, err := auth.NewOAuthBroker(clientJSON, config.OAuthRedirectPort, f.prompt)
	if err != nil {
		return nil, err
	}
	return broker, nil
}

func (f *DefaultFactory) createSupabaseRemote(ctx context.Context, config Config, b *Backend, broker auth.Broker, verifier *auth.Verifier, file *auth.SessionFile) error {
	client, err := supabase.New(supabase.Config{
		URL:     config.SupabaseURL,
		AnonKey: config.SupabaseAnonKey,
		Table:   config.SupabaseTable,
		Bucket:  config.SupabaseBucket,
		Timeout: config.RemoteTimeout,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize Supabase client: %w", err)
	}

	opts := []auth.Option{auth.WithVerifier(verifier)}
	if file != nil {
		opts = append(opts, auth.WithSessionFile(file))
	}
	provider := auth.NewSupabaseProvider(client, broker, opts...)
	if err := provider.Restore(ctx); err != nil {
		f.logger.Warn("Failed to restore session, continuing signed out", "error", err)
	}

	b.Rows = client.Rows()
	b.Bucket = client.Storage()
	b.Session = provider
	b.keepAlive = provider.KeepAlive

	f.logger.Info("Initialized Supabase remote",
		"url", config.SupabaseURL,
		"table", config.SupabaseTable,
		"bucket", config.SupabaseBucket)
	return nil
}

func (f *DefaultFactory) createPostgresRemote(ctx context.Context, config Config, b *Backend) (CleanupFunc, error) {
	rows, err := postgres.New(ctx, config.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Postgres row store: %w", err)
	}
	bucket, err := filesystem.New(config.PhotoDir, config.PhotoBaseURL)
	if err != nil {
		return rows.Close, fmt.Errorf("failed to initialize photo directory: %w", err)
	}

	b.Rows = rows
	b.Bucket = bucket

	f.logger.Info("Initialized Postgres remote", "photo_dir", config.PhotoDir)
	return rows.Close, nil
}

func (f *DefaultFactory) createMemoryRemote(config Config, b *Backend) {
	b.Rows = remotememory.NewRowStore()
	b.Bucket = remotememory.NewBucket(config.PhotoBaseURL)
	f.logger.Info("Initialized memory remote")
}
