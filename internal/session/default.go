package session

import (
	"sync"

	"github.com/GriffinCanCode/netkit/internal/infrastructure/config"
	"github.com/GriffinCanCode/netkit/internal/infrastructure/logging"
)

var (
	defaultManager *Manager
	defaultOnce    sync.Once
)

// Default returns a process-wide manager built from the environment on
// first use. Code that can be handed a *Manager should be.
func Default() *Manager {
	defaultOnce.Do(func() {
		cfg := config.LoadOrDefault()
		logger := defaultLogger(cfg.Logging)
		m, err := NewFromConfig(cfg, logger.Logger, nil)
		if err != nil {
			m = New(Options{Logger: logger.Logger})
		}
		defaultManager = m
	})
	return defaultManager
}

// defaultLogger builds the configured logger, or the stock one when the
// configuration is unusable
func defaultLogger(cfg config.LogConfig) *logging.Logger {
	logger, err := logging.New(logging.FromConfig(cfg))
	if err != nil {
		return logging.NewDefault()
	}
	return logger
}
