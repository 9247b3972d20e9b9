package jobs

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
)

var (
	ErrFuncNotFound      = errors.New("jobs: func not found")
	ErrAlreadyRegistered = errors.New("jobs: func already registered")
)

// Func is a function that can be run as a batch job. The job process finds
// it by the name it was registered under, so every binary that submits jobs
// must register the same functions it expects its jobs to run.
type Func func(ctx context.Context, call *Call) (any, error)

// Registry maps function names to Funcs. It is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	funcs map[string]Func
}

func NewRegistry() *Registry {
	return &Registry{funcs: make(map[string]Func)}
}

// Default is the registry used by package-level helpers and by examples
// registering themselves from init().
var Default = NewRegistry()

func (r *Registry) Register(name string, fn Func) error {
	if name == "" {
		return errors.New("jobs: empty func name")
	}
	if fn == nil {
		return fmt.Errorf("jobs: nil func %s", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.funcs[name]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadyRegistered, name)
	}
	r.funcs[name] = fn
	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(name string, fn Func) {
	if err := r.Register(name, fn); err != nil {
		panic(err)
	}
}

func (r *Registry) Get(name string) (Func, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, exists := r.funcs[name]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrFuncNotFound, name)
	}
	return fn, nil
}

// List returns the registered names in sorted order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func Register(name string, fn Func) error {
	return Default.Register(name, fn)
}

func MustRegister(name string, fn Func) {
	Default.MustRegister(name, fn)
}

func Get(name string) (Func, error) {
	return Default.Get(name)
}

func List() []string {
	return Default.List()
}
