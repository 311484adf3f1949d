package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"gastos/internal/backend"
	"gastos/internal/config"
	applog "gastos/internal/log"
	"gastos/internal/metrics"
	"gastos/internal/services"
)

// App is an opened backend with a started sync engine.
type App struct {
	Config  *config.Config
	Logger  *applog.Logger
	Backend *backend.Backend
	Engine  *services.SyncEngine
	Metrics *metrics.Recorder

	cleanup backend.CleanupFunc
}

// openApp builds the backend from cfg and starts the engine on it.
func openApp(ctx context.Context, cfg *config.Config, logger *applog.Logger, prompt io.Writer) (*App, error) {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("backend config: %w", err)
	}
	factory := backend.NewFactory(logger.WithComponent(applog.ComponentBackend).Logger, prompt)
	res, err := factory.CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, err
	}

	rec := metrics.New()
	deps := services.Deps{
		Local:   res.Backend.Local,
		Rows:    res.Backend.Rows,
		Bucket:  res.Backend.Bucket,
		Session: res.Backend.Session,
		Photos:  services.FilePhotoReader{Dir: uploadDir(cfg)},
		Events:  res.Backend.Events,
		Metrics: rec,
		Logger:  logger.WithComponent(applog.ComponentEngine),
	}
	engine := services.NewSyncEngine(deps, services.Options{
		PushWithoutPhoto:   cfg.PushWithoutPhoto,
		ClearOnSessionLoss: cfg.ClearOnSessionLoss,
	})
	if err := engine.Start(ctx); err != nil {
		return nil, errors.Join(fmt.Errorf("start sync engine: %w", err), res.Cleanup())
	}

	return &App{
		Config:  cfg,
		Logger:  logger,
		Backend: res.Backend,
		Engine:  engine,
		Metrics: rec,
		cleanup: res.Cleanup,
	}, nil
}

// uploadDir holds photos received over HTTP. Relative photo references resolve
// against it.
func uploadDir(cfg *config.Config) string {
	return filepath.Join(cfg.DataDir, "capturas")
}

func (a *App) Close() error {
	return errors.Join(a.Engine.Close(), a.cleanup())
}
