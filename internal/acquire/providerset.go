package acquire

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"sync"

	"subfetch/internal/logging"
	"subfetch/internal/providers"
)

type providerState struct {
	mu          sync.Mutex
	provider    providers.Provider
	initialized bool
	// excluded providers never serve this batch.
	excluded bool
}

// providerSet constructs and initializes providers lazily, once per batch.
type providerSet struct {
	registry *providers.Registry
	settings providers.Settings
	logger   *slog.Logger

	mu     sync.Mutex
	states map[string]*providerState
}

func newProviderSet(registry *providers.Registry, settings providers.Settings, logger *slog.Logger) *providerSet {
	return &providerSet{
		registry: registry,
		settings: settings,
		logger:   logger,
		states:   make(map[string]*providerState),
	}
}

func (s *providerSet) state(name string) *providerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[name]
	if !ok {
		st = &providerState{}
		s.states[name] = st
	}
	return st
}

// get returns the named provider ready for use, or false when it is unknown,
// lacks credentials, or failed to initialize.
func (s *providerSet) get(ctx context.Context, name string) (providers.Provider, bool) {
	st := s.state(name)
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.excluded {
		return nil, false
	}
	if st.provider == nil {
		p, err := s.registry.New(name, s.settings)
		if err != nil {
			st.excluded = true
			var cfgErr *providers.ConfigurationError
			hint := "check the provider section of the configuration"
			if errors.As(err, &cfgErr) {
				hint = cfgErr.Reason
			}
			logging.WarnEvent(s.logger, "provider excluded", "provider_excluded",
				logging.String(logging.FieldProvider, name),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, hint),
				logging.String(logging.FieldImpact, "provider is not queried in this run"),
			)
			return nil, false
		}
		st.provider = p
	}
	if !st.initialized {
		if err := st.provider.Initialize(ctx); err != nil {
			st.excluded = true
			logging.WarnEvent(s.logger, "provider initialization failed", "provider_init_failed",
				logging.String(logging.FieldProvider, name),
				logging.Error(err),
				logging.String(logging.FieldImpact, "provider is not queried in this run"),
			)
			return nil, false
		}
		st.initialized = true
	}
	return st.provider, true
}

// close terminates every initialized provider.
func (s *providerSet) close(ctx context.Context) {
	s.mu.Lock()
	states := maps.Clone(s.states)
	s.mu.Unlock()
	for name, st := range states {
		st.mu.Lock()
		if st.initialized {
			if err := st.provider.Terminate(ctx); err != nil {
				s.logger.Debug("provider terminate failed", logging.String(logging.FieldProvider, name), logging.Error(err))
			}
			st.initialized = false
		}
		st.mu.Unlock()
	}
}
