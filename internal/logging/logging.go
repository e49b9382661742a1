package logging

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/segyhp/loan-engine/internal/config"
)

// New builds the process logger. Production and LOG_FORMAT=json use the JSON
// formatter; an unknown level falls back to info.
func New(cfg *config.Config) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)

	if cfg.IsProduction() || strings.EqualFold(cfg.Logging.Format, "json") {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	level, err := logrus.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	return logger
}
