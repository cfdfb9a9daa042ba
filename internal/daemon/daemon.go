// Package daemon assembles the long-running error handling service: the engine,
// its notification transports, the admin HTTP server, the stats reporter and the
// configuration watcher.
package daemon

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"git.home.luguber.info/inful/apierror/internal/config"
	"git.home.luguber.info/inful/apierror/internal/events"
	ferrors "git.home.luguber.info/inful/apierror/internal/foundation/errors"
	"git.home.luguber.info/inful/apierror/internal/handler"
	"git.home.luguber.info/inful/apierror/internal/logfields"
	"git.home.luguber.info/inful/apierror/internal/metrics"
	"git.home.luguber.info/inful/apierror/internal/notify"
	"git.home.luguber.info/inful/apierror/internal/notify/natsnotify"
	"git.home.luguber.info/inful/apierror/internal/notify/redisnotify"
	"git.home.luguber.info/inful/apierror/internal/reporter"
	"git.home.luguber.info/inful/apierror/internal/server/httpserver"
	"git.home.luguber.info/inful/apierror/internal/services"
	"git.home.luguber.info/inful/apierror/internal/version"
)

// Status represents the current state of the daemon.
type Status string

const (
	StatusStopped  Status = "stopped"
	StatusStarting Status = "starting"
	StatusRunning  Status = "running"
	StatusStopping Status = "stopping"
	StatusError    Status = "error"
)

// Daemon owns every runtime component of the service.
type Daemon struct {
	mu         sync.RWMutex
	config     *config.Config
	configPath string
	logger     *slog.Logger

	status    atomic.Value // Status
	startTime time.Time
	stopChan  chan struct{}
	wg        sync.WaitGroup

	registry *prometheus.Registry
	recorder *metrics.PrometheusRecorder
	bus      *events.Bus
	engine   *handler.Engine
	server   *httpserver.Server
	reporter *reporter.Reporter
	watcher  *config.Watcher
	closers  []io.Closer
	services *services.Orchestrator
}

// NewDaemon creates a daemon without config file watching.
func NewDaemon(cfg *config.Config, logger *slog.Logger) (*Daemon, error) {
	return NewDaemonWithConfigFile(cfg, "", logger)
}

// NewDaemonWithConfigFile creates a daemon that reloads the engine settings
// whenever configPath changes. An empty path disables watching.
func NewDaemonWithConfigFile(cfg *config.Config, configPath string, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil {
		return nil, ferrors.ValidationError("configuration is required").Build()
	}
	if logger == nil {
		logger = slog.Default()
	}

	d := &Daemon{
		config:     cfg,
		configPath: configPath,
		logger:     logger,
		stopChan:   make(chan struct{}),
		registry:   prometheus.NewRegistry(),
		bus:        events.NewBus(),
	}
	d.status.Store(StatusStopped)

	d.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	d.recorder = metrics.NewPrometheusRecorder(d.registry)

	d.engine = handler.New(
		handler.WithLogger(logger),
		handler.WithRecorder(d.recorder),
		handler.WithNotifier(notify.NewBusNotifier(d.bus)),
		handler.WithConfig(cfg.EngineConfig()),
	)

	d.server = httpserver.New(d.engine, httpserver.Options{
		Addr:    cfg.Server.ListenAddr,
		Policy:  cfg.RetryPolicy(),
		Metrics: metrics.HTTPHandler(d.registry),
		Logger:  logger,
	})

	if cfg.ReporterEnabled() {
		r, err := reporter.New(d.engine, reporter.Options{
			Interval: cfg.Reporter.Interval,
			Recorder: d.recorder,
			Logger:   logger,
		})
		if err != nil {
			return nil, err
		}
		d.reporter = r
	}

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			w, err := config.NewWatcher(configPath, d.bus, config.DefaultDebounce, logger)
			if err != nil {
				logger.Warn("Config watching disabled", logfields.Path(configPath), logfields.Error(err))
			} else {
				d.watcher = w
			}
		}
	}

	if err := d.registerServices(); err != nil {
		return nil, err
	}
	return d, nil
}

// Service names registered with the orchestrator.
const (
	ServiceNotifiers   = "notifiers"
	ServiceSubscribers = "subscribers"
	ServiceAdminServer = "admin-server"
	ServiceReporter    = "reporter"
	ServiceWatcher     = "config-watcher"
)

func (d *Daemon) registerServices() error {
	d.services = services.NewOrchestrator(d.logger)

	list := []services.ManagedService{
		services.NewFuncService(ServiceNotifiers, d.connectNotifiers,
			func(context.Context) error {
				d.engine.SetNotifier(notify.NoopNotifier{})
				d.closeNotifiers()
				return nil
			}),
		services.NewFuncService(ServiceSubscribers,
			func(context.Context) error {
				d.subscribe()
				return nil
			},
			func(context.Context) error {
				d.bus.Close()
				d.wg.Wait()
				return nil
			}),
		services.NewFuncService(ServiceAdminServer, d.server.Start, d.server.Stop,
			ServiceNotifiers, ServiceSubscribers),
	}
	if d.reporter != nil {
		list = append(list, services.NewFuncService(ServiceReporter,
			func(context.Context) error {
				d.reporter.Start()
				return nil
			},
			func(context.Context) error { return d.reporter.Stop() }))
	}
	if d.watcher != nil {
		list = append(list, services.NewFuncService(ServiceWatcher,
			func(ctx context.Context) error {
				// The watcher outlives the start timeout; Stop ends it.
				return d.watcher.Start(context.WithoutCancel(ctx))
			},
			func(context.Context) error { return d.watcher.Stop() },
			ServiceSubscribers))
	}

	for _, svc := range list {
		if err := d.services.Register(svc); err != nil {
			return err
		}
	}
	return nil
}

// Services reports the lifecycle state of every managed component.
func (d *Daemon) Services() []services.ServiceInfo {
	return d.services.AllInfo()
}

// Engine returns the error handling engine.
func (d *Daemon) Engine() *handler.Engine {
	return d.engine
}

// Bus returns the daemon's event bus.
func (d *Daemon) Bus() *events.Bus {
	return d.bus
}

// Addr returns the bound admin address once the daemon is running.
func (d *Daemon) Addr() string {
	return d.server.Addr()
}

// Start brings every component up and blocks until ctx is cancelled or Stop is called.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	if d.GetStatus() != StatusStopped {
		d.mu.Unlock()
		return ferrors.RuntimeError("daemon is not in stopped state").
			WithContext("status", string(d.GetStatus())).
			Build()
	}

	d.status.Store(StatusStarting)
	d.startTime = time.Now()
	d.logger.Info("Starting API error daemon", slog.String("version", version.String()))

	if err := d.services.StartAll(ctx); err != nil {
		d.status.Store(StatusError)
		d.mu.Unlock()
		return err
	}

	d.status.Store(StatusRunning)
	d.logger.Info("API error daemon started",
		logfields.Addr(d.server.Addr()),
		slog.Bool("reporter", d.reporter != nil),
		slog.Int("notifiers", len(d.closers)))

	// Release the lock before blocking so that status reads are not held up.
	d.mu.Unlock()

	select {
	case <-ctx.Done():
	case <-d.stopChan:
	}
	return nil
}

// Stop shuts components down in reverse start order. It is safe to call more than once.
func (d *Daemon) Stop(ctx context.Context) error {
	d.mu.Lock()
	current := d.GetStatus()
	if current == StatusStopped || current == StatusStopping {
		d.mu.Unlock()
		return nil
	}

	d.status.Store(StatusStopping)
	d.logger.Info("Stopping API error daemon")

	select {
	case <-d.stopChan:
	default:
		close(d.stopChan)
	}
	startTime := d.startTime
	// Subscribers may be applying a reload that needs the lock.
	d.mu.Unlock()

	err := d.services.StopAll(ctx)

	d.status.Store(StatusStopped)
	d.logger.Info("API error daemon stopped", slog.Duration("uptime", time.Since(startTime)))
	return err
}

// GetStatus returns the current daemon status.
func (d *Daemon) GetStatus() Status {
	status, ok := d.status.Load().(Status)
	if !ok {
		return StatusError
	}
	return status
}

// GetStartTime returns when the daemon was last started.
func (d *Daemon) GetStartTime() time.Time {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.startTime
}

// GetConfig returns the active configuration.
func (d *Daemon) GetConfig() *config.Config {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.config
}

// ReloadConfig applies the engine section of newConfig to the running engine.
// Listen address, notifier and reporter changes take effect on the next start.
func (d *Daemon) ReloadConfig(newConfig *config.Config) error {
	if newConfig == nil {
		return ferrors.ValidationError("configuration is required").Build()
	}

	d.mu.Lock()
	old := d.config
	d.config = newConfig
	d.mu.Unlock()

	applied := d.engine.UpdateConfig(newConfig.EnginePatch())

	if old != nil && (old.Server.ListenAddr != newConfig.Server.ListenAddr ||
		old.NATSEnabled() != newConfig.NATSEnabled() ||
		old.RedisEnabled() != newConfig.RedisEnabled()) {
		d.logger.Warn("Server or notifier settings changed; restart to apply them")
	}

	d.logger.Info("Configuration reloaded",
		slog.Bool("logging", applied.EnableLogging),
		slog.Bool("tracking", applied.EnableTracking),
		slog.Bool("notify_ui", applied.NotifyUI),
		logfields.Window(applied.Window))
	return nil
}

// connectNotifiers dials the configured out-of-process transports and installs
// them alongside the bus notifier.
func (d *Daemon) connectNotifiers(ctx context.Context) error {
	targets := notify.Multi{notify.NewBusNotifier(d.bus)}

	if d.config.NATSEnabled() {
		n := d.config.Notify.NATS
		nn, err := natsnotify.Connect(natsnotify.Config{
			URL:       n.URL,
			Subject:   n.Subject,
			JetStream: n.JetStream,
			Timeout:   n.Timeout,
		})
		if err != nil {
			return err
		}
		targets = append(targets, nn)
		d.closers = append(d.closers, nn)
	}

	if d.config.RedisEnabled() {
		r := d.config.Notify.Redis
		rn, err := redisnotify.Connect(ctx, redisnotify.Config{
			URL:      r.URL,
			Password: r.Password,
			Channel:  r.Channel,
		})
		if err != nil {
			d.closeNotifiers()
			return err
		}
		targets = append(targets, rn)
		d.closers = append(d.closers, rn)
	}

	if len(targets) == 1 {
		d.engine.SetNotifier(targets[0])
	} else {
		d.engine.SetNotifier(targets)
	}
	return nil
}

func (d *Daemon) closeNotifiers() {
	for _, c := range d.closers {
		if err := c.Close(); err != nil {
			d.logger.Warn("Failed to close notifier", logfields.Error(err))
		}
	}
	d.closers = nil
}

// subscribe starts the bus consumers: UI envelope logging and config reloads.
func (d *Daemon) subscribe() {
	envelopes, _ := events.Subscribe[notify.Envelope](d.bus, 64)
	reloads, _ := events.Subscribe[config.Reloaded](d.bus, 4)
	failures, _ := events.Subscribe[config.ReloadFailed](d.bus, 4)

	d.wg.Add(3)
	go func() {
		defer d.wg.Done()
		for env := range envelopes {
			d.logger.Debug("UI notification",
				slog.String("type", string(env.Type)),
				logfields.Code(string(env.Code)),
				slog.String("message", env.Message))
		}
	}()
	go func() {
		defer d.wg.Done()
		for evt := range reloads {
			if err := d.ReloadConfig(evt.Config); err != nil {
				d.logger.Error("Failed to apply reloaded configuration", logfields.Error(err))
			}
		}
	}()
	go func() {
		defer d.wg.Done()
		for evt := range failures {
			d.logger.Warn("Configuration reload failed; keeping previous settings",
				logfields.Path(evt.Path), logfields.Error(evt.Err))
		}
	}()
}
