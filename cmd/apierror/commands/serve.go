package commands

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"git.home.luguber.info/inful/apierror/internal/config"
	"git.home.luguber.info/inful/apierror/internal/daemon"
	ferrors "git.home.luguber.info/inful/apierror/internal/foundation/errors"
	"git.home.luguber.info/inful/apierror/internal/logfields"
	"git.home.luguber.info/inful/apierror/internal/logging"
)

// ServeCmd implements the 'serve' command.
type ServeCmd struct {
	Addr string `short:"a" help:"Admin listen address (overrides configuration)"`
}

func (s *ServeCmd) Run(_ *Global, root *CLI) error {
	cfg, configPath, err := loadServeConfig(root.Config)
	if err != nil {
		return err
	}
	if s.Addr != "" {
		cfg.Server.ListenAddr = s.Addr
	}

	level := string(cfg.Logging.Level)
	if root.Verbose {
		level = string(config.LogLevelDebug)
	}
	logger, err := logging.Setup(os.Stderr, level, string(cfg.Logging.Format))
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	return RunDaemon(ctx, cfg, configPath, logger)
}

// loadServeConfig loads path, falling back to defaults when the file does not exist.
// The returned path is empty when no file is watched.
func loadServeConfig(path string) (*config.Config, string, error) {
	cfg, err := config.Load(path)
	if err == nil {
		return cfg, path, nil
	}
	if !ferrors.HasCategory(err, ferrors.CategoryNotFound) {
		return nil, "", err
	}
	slog.Warn("Configuration file not found; using defaults", logfields.Path(path))
	cfg, err = config.Load("")
	if err != nil {
		return nil, "", err
	}
	return cfg, "", nil
}

// RunDaemon runs the daemon until ctx is cancelled and then stops it gracefully.
func RunDaemon(ctx context.Context, cfg *config.Config, configPath string, logger *slog.Logger) error {
	d, err := daemon.NewDaemonWithConfigFile(cfg, configPath, logger)
	if err != nil {
		return err
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- d.Start(ctx)
	}()

	logger.Info("Daemon started, waiting for shutdown signal...")

	select {
	case err := <-errChan:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		logger.Info("Shutdown signal received, stopping daemon...")
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer stopCancel()

	if err := d.Stop(stopCtx); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryRuntime, "failed to stop daemon").Build()
	}

	logger.Info("Daemon stopped successfully")
	return nil
}
