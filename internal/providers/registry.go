package providers

import (
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"subfetch/internal/cache"
	"subfetch/internal/config"
)

// Settings carries everything a provider factory may need.
type Settings struct {
	Config     config.Providers
	Logger     *slog.Logger
	HTTPClient *http.Client
	// Cache memoizes lookups such as show lists. It may be nil.
	Cache    *cache.Cache
	CacheTTL time.Duration
	// Version is the application version reported in user agents.
	Version string
}

// Factory builds a provider. It returns a *ConfigurationError when the
// settings cannot support the provider.
type Factory func(Settings) (Provider, error)

// Registry maps provider names to factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

var defaultRegistry = NewRegistry()

// DefaultRegistry returns the process-wide registry built-in providers add
// themselves to when their packages are imported.
func DefaultRegistry() *Registry {
	return defaultRegistry
}

// Register adds a factory to the default registry. It panics on duplicate names.
func Register(name string, factory Factory) {
	if err := defaultRegistry.Register(name, factory); err != nil {
		panic(err)
	}
}

// Register adds a factory under name.
func (r *Registry) Register(name string, factory Factory) error {
	name = normalizeName(name)
	if name == "" || factory == nil {
		return fmt.Errorf("register provider: name and factory are required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[name]; exists {
		return fmt.Errorf("register provider: %q already registered", name)
	}
	r.factories[name] = factory
	return nil
}

// Names lists registered providers alphabetically.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[normalizeName(name)]
	return ok
}

// New constructs the named provider.
func (r *Registry) New(name string, settings Settings) (Provider, error) {
	r.mu.RLock()
	factory, ok := r.factories[normalizeName(name)]
	r.mu.RUnlock()
	if !ok {
		return nil, &ConfigurationError{Provider: name, Reason: "unknown provider"}
	}
	return factory(settings)
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
