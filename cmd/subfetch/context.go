package main

import (
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"subfetch/internal/config"
	"subfetch/internal/logging"
)

// session holds the global flags of one invocation and loads the
// configuration and logger on first use.
type session struct {
	configPath string
	logLevel   string

	loaded bool
	cfg    *config.Config
	err    error
	log    *slog.Logger
}

// config loads the configuration once, applying --log-level and creating the
// cache and log directories.
func (s *session) config() (*config.Config, error) {
	if s.loaded {
		return s.cfg, s.err
	}
	s.loaded = true
	cfg, _, _, err := config.Load(strings.TrimSpace(s.configPath))
	if err == nil {
		if level := strings.TrimSpace(s.logLevel); level != "" {
			cfg.Logging.Level = level
		}
		err = cfg.EnsureDirectories()
	}
	if err != nil {
		s.err = err
		return nil, err
	}
	s.cfg = cfg
	return cfg, nil
}

func (s *session) logger() (*slog.Logger, error) {
	if s.log != nil {
		return s.log, nil
	}
	cfg, err := s.config()
	if err != nil {
		return nil, err
	}
	if s.log, err = logging.NewFromConfig(cfg); err != nil {
		return nil, err
	}
	return s.log, nil
}

// skipConfigLoad marks commands that work without a valid configuration.
var skipConfigLoad = map[string]string{"skipConfigLoad": "true"}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
