package config

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// CreateLogger returns the logger builders should be constructed with,
// development or production depending on the Debug flag.
func (c Config) CreateLogger() (*zap.Logger, error) {
	var logger *zap.Logger
	var err error
	if c.Debug {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}

	return logger, errors.Wrap(err, "create logger")
}
