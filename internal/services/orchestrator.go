package services

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	ferrors "git.home.luguber.info/inful/apierror/internal/foundation/errors"
	"git.home.luguber.info/inful/apierror/internal/logfields"
)

// ServiceStatus represents the current state of a service.
type ServiceStatus string

const (
	StatusNotStarted ServiceStatus = "not_started"
	StatusStarting   ServiceStatus = "starting"
	StatusRunning    ServiceStatus = "running"
	StatusStopping   ServiceStatus = "stopping"
	StatusStopped    ServiceStatus = "stopped"
	StatusFailed     ServiceStatus = "failed"
)

// ServiceInfo contains metadata about a managed service.
type ServiceInfo struct {
	Name         string        `json:"name"`
	Status       ServiceStatus `json:"status"`
	Dependencies []string      `json:"dependencies"`
	StartedAt    *time.Time    `json:"started_at,omitempty"`
	StoppedAt    *time.Time    `json:"stopped_at,omitempty"`
	LastError    string        `json:"last_error,omitempty"`
}

// Orchestrator starts services in dependency order and stops them in reverse.
type Orchestrator struct {
	mu         sync.RWMutex
	logger     *slog.Logger
	services   map[string]ManagedService
	status     map[string]ServiceStatus
	startedAt  map[string]time.Time
	stoppedAt  map[string]time.Time
	lastErrors map[string]error
	started    []string

	startTimeout time.Duration
	stopTimeout  time.Duration
}

// NewOrchestrator creates an empty orchestrator.
func NewOrchestrator(logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		logger:       logger,
		services:     make(map[string]ManagedService),
		status:       make(map[string]ServiceStatus),
		startedAt:    make(map[string]time.Time),
		stoppedAt:    make(map[string]time.Time),
		lastErrors:   make(map[string]error),
		startTimeout: 30 * time.Second,
		stopTimeout:  10 * time.Second,
	}
}

// WithTimeouts configures per-service start and stop timeouts.
func (o *Orchestrator) WithTimeouts(start, stop time.Duration) *Orchestrator {
	o.startTimeout = start
	o.stopTimeout = stop
	return o
}

// Register adds a service. Names must be unique and non-empty.
func (o *Orchestrator) Register(service ManagedService) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	name := service.Name()
	if name == "" {
		return ferrors.ValidationError("service name cannot be empty").Build()
	}
	if _, exists := o.services[name]; exists {
		return ferrors.ValidationError("service already registered").
			WithContext("service", name).
			Build()
	}

	o.services[name] = service
	o.status[name] = StatusNotStarted
	o.logger.Debug("Service registered", slog.String("service", name),
		slog.Any("dependencies", service.Dependencies()))
	return nil
}

// StartAll starts every service in dependency order. When one fails the
// services already started are stopped again and the failure is returned.
func (o *Orchestrator) StartAll(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	order, err := o.startOrder()
	if err != nil {
		return err
	}

	o.logger.Info("Starting services", slog.Int("count", len(order)), slog.Any("order", order))
	for _, name := range order {
		if err := o.startService(ctx, name); err != nil {
			o.stopStarted(ctx)
			return err
		}
	}
	return nil
}

// StopAll stops running services in reverse start order. Every service is
// attempted; the last failure is returned.
func (o *Orchestrator) StopAll(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	var lastErr error
	for i := len(o.started) - 1; i >= 0; i-- {
		name := o.started[i]
		if err := o.stopService(ctx, name); err != nil {
			lastErr = err
			o.logger.Error("Error stopping service", slog.String("service", name), logfields.Error(err))
		}
	}
	o.started = nil

	if lastErr != nil {
		return ferrors.WrapError(lastErr, ferrors.CategoryRuntime, "some services failed to stop gracefully").Build()
	}
	return nil
}

// Info returns information about a specific service.
func (o *Orchestrator) Info(name string) (ServiceInfo, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.info(name)
}

// AllInfo returns information about every service sorted by name.
func (o *Orchestrator) AllInfo() []ServiceInfo {
	o.mu.RLock()
	defer o.mu.RUnlock()

	names := o.sortedNames()
	infos := make([]ServiceInfo, 0, len(names))
	for _, name := range names {
		if info, ok := o.info(name); ok {
			infos = append(infos, info)
		}
	}
	return infos
}

func (o *Orchestrator) info(name string) (ServiceInfo, bool) {
	service, exists := o.services[name]
	if !exists {
		return ServiceInfo{}, false
	}
	info := ServiceInfo{
		Name:         name,
		Status:       o.status[name],
		Dependencies: service.Dependencies(),
	}
	if t, ok := o.startedAt[name]; ok {
		info.StartedAt = &t
	}
	if t, ok := o.stoppedAt[name]; ok {
		info.StoppedAt = &t
	}
	if err := o.lastErrors[name]; err != nil {
		info.LastError = err.Error()
	}
	return info, true
}

func (o *Orchestrator) sortedNames() []string {
	names := make([]string, 0, len(o.services))
	for name := range o.services {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// startOrder is a topological sort over Dependencies. Ties are broken by name
// so that the order is stable between runs.
func (o *Orchestrator) startOrder() ([]string, error) {
	visited := make(map[string]bool)
	visiting := make(map[string]bool)
	var order []string

	var visit func(string) error
	visit = func(name string) error {
		if visiting[name] {
			return ferrors.InternalError("circular service dependency").
				WithContext("service", name).
				Build()
		}
		if visited[name] {
			return nil
		}
		service, exists := o.services[name]
		if !exists {
			return ferrors.InternalError("unknown service dependency").
				WithContext("service", name).
				Build()
		}

		visiting[name] = true
		for _, dep := range service.Dependencies() {
			if err := visit(dep); err != nil {
				return err
			}
		}
		visiting[name] = false
		visited[name] = true
		order = append(order, name)
		return nil
	}

	for _, name := range o.sortedNames() {
		if err := visit(name); err != nil {
			return nil, err
		}
	}
	return order, nil
}

func (o *Orchestrator) startService(ctx context.Context, name string) error {
	service := o.services[name]
	o.status[name] = StatusStarting

	timeoutCtx, cancel := context.WithTimeout(ctx, o.startTimeout)
	defer cancel()

	start := time.Now()
	if err := service.Start(timeoutCtx); err != nil {
		o.status[name] = StatusFailed
		o.lastErrors[name] = err
		return ferrors.WrapError(err, ferrors.GetCategory(err), "failed to start service").
			WithContext("service", name).
			Build()
	}

	o.status[name] = StatusRunning
	o.startedAt[name] = start
	o.lastErrors[name] = nil
	o.started = append(o.started, name)
	o.logger.Debug("Service started", slog.String("service", name), slog.Duration("duration", time.Since(start)))
	return nil
}

func (o *Orchestrator) stopService(ctx context.Context, name string) error {
	if o.status[name] != StatusRunning {
		return nil
	}
	service := o.services[name]
	o.status[name] = StatusStopping

	timeoutCtx, cancel := context.WithTimeout(ctx, o.stopTimeout)
	defer cancel()

	stopped := time.Now()
	if err := service.Stop(timeoutCtx); err != nil {
		o.status[name] = StatusFailed
		o.lastErrors[name] = err
		return err
	}

	o.status[name] = StatusStopped
	o.stoppedAt[name] = stopped
	o.logger.Debug("Service stopped", slog.String("service", name), slog.Duration("duration", time.Since(stopped)))
	return nil
}

// stopStarted unwinds a partial start.
func (o *Orchestrator) stopStarted(ctx context.Context) {
	for i := len(o.started) - 1; i >= 0; i-- {
		if err := o.stopService(ctx, o.started[i]); err != nil {
			o.logger.Error("Error stopping service during cleanup",
				slog.String("service", o.started[i]), logfields.Error(err))
		}
	}
	o.started = nil
}
