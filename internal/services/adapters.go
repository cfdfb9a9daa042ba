package services

import "context"

// FuncService adapts a pair of functions to ManagedService.
type FuncService struct {
	name    string
	deps    []string
	startFn func(ctx context.Context) error
	stopFn  func(ctx context.Context) error
}

// NewFuncService creates a service from start and stop functions. Either may be nil.
func NewFuncService(name string, start, stop func(ctx context.Context) error, deps ...string) *FuncService {
	return &FuncService{name: name, deps: deps, startFn: start, stopFn: stop}
}

func (f *FuncService) Name() string { return f.name }

func (f *FuncService) Start(ctx context.Context) error {
	if f.startFn == nil {
		return nil
	}
	return f.startFn(ctx)
}

func (f *FuncService) Stop(ctx context.Context) error {
	if f.stopFn == nil {
		return nil
	}
	return f.stopFn(ctx)
}

func (f *FuncService) Dependencies() []string { return f.deps }
