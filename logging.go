package ftpkit

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// NewLogger builds the dual stderr+file logger threaded through
// Pool/FileSystem/Orchestrator constructors as an injected *logrus.Logger
// rather than a package-global: level and path are read once at CLI
// startup and never touched again by core components.
//
// level is parsed with logrus.ParseLevel; an empty level means
// logrus.InfoLevel and an invalid one is reported as a *ConfigError. If path
// is empty, logs go to stderr only.
func NewLogger(level, path string) (*logrus.Logger, error) {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	lvl := logrus.InfoLevel
	if level != "" {
		parsed, err := logrus.ParseLevel(level)
		if err != nil {
			return nil, &ConfigError{Field: "logger_level", Err: err}
		}
		lvl = parsed
	}
	log.SetLevel(lvl)

	if path == "" {
		log.SetOutput(os.Stderr)
		return log, nil
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, &ConfigError{Field: "logger_path", Err: fmt.Errorf("opening log file %q: %w", path, err)}
	}
	log.SetOutput(io.MultiWriter(os.Stderr, f))
	return log, nil
}
