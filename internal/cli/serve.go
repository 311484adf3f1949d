package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/spf13/cobra"

	"gastos/internal/config"
	apphttp "gastos/internal/http"
	applog "gastos/internal/log"
	"gastos/internal/services"
)

const (
	shutdownTimeout   = 10 * time.Second
	keepAliveInterval = time.Minute
)

// NewServeCommand runs the JSON API together with the periodic refresh and the
// session keep-alive.
func NewServeCommand(opts *RootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(ctx context.Context, app *App) error {
				if addr != "" {
					app.Config.HTTPAddr = addr
				}
				return serve(ctx, app)
			})
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "override HTTP_ADDR")
	return cmd
}

func serve(parent context.Context, app *App) error {
	cfg := app.Config
	logger := app.Logger.WithComponent(applog.ComponentApp)

	parent, stop := context.WithCancel(parent)
	defer stop()

	srv := apphttp.NewServer(app.Engine, apphttp.Config{
		Addr:      cfg.HTTPAddr,
		UploadDir: uploadDir(cfg),
		Metrics:   app.Metrics.Handler(),
		Ready: func(ctx context.Context) error {
			_, err := app.Backend.Local.List(ctx)
			return err
		},
		PhotoDir:  servedPhotoDir(cfg),
		PhotoPath: photoPath(cfg),
		Logger:    app.Logger.WithComponent(applog.ComponentHTTP),
	})

	loop := services.NewRefreshLoop(app.Engine, services.RefreshLoopConfig{Interval: cfg.SyncInterval})
	if err := loop.Start(parent); err != nil {
		return fmt.Errorf("start refresh loop: %w", err)
	}

	keepAliveCtx, stopKeepAlive := context.WithCancel(parent)
	go app.Backend.KeepAlive(keepAliveCtx, keepAliveInterval)

	ctx, done := GracefulShutdown(parent, logger, shutdownTimeout, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("HTTP server shutdown error", applog.FieldError, err)
		}
		if err := loop.Stop(ctx); err != nil {
			logger.Error("Refresh loop shutdown error", applog.FieldError, err)
		}
		stopKeepAlive()
	})

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var err error
	select {
	case err = <-serveErr:
		stop()
	case <-ctx.Done():
	}
	WaitForShutdown(ctx, done)
	if err != nil {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// servedPhotoDir is the directory backing the filesystem bucket, if the server
// should expose it.
func servedPhotoDir(cfg *config.Config) string {
	if cfg.RemoteBackend != config.RemotePostgres {
		return ""
	}
	return cfg.PhotoDir
}

func photoPath(cfg *config.Config) string {
	u, err := url.Parse(cfg.PhotoBaseURL)
	if err != nil {
		return ""
	}
	return u.Path
}
