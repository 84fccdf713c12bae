// Package logs configures the shared logrus logger used across the service.
package logs

import (
	"strings"

	"github.com/sirupsen/logrus"
)

// Logger is the process-wide logger. Init replaces its configuration;
// the pointer itself stays valid for the whole process lifetime.
var Logger = logrus.New()

// Options controls the logger setup.
type Options struct {
	Level  string // debug|info|warn|error, default info
	Format string // text|json, default text
}

// Init applies the configured level and format to Logger.
func Init(opts Options) {
	level, err := logrus.ParseLevel(strings.ToLower(opts.Level))
	if err != nil {
		level = logrus.InfoLevel
	}
	Logger.SetLevel(level)

	switch strings.ToLower(opts.Format) {
	case "json":
		Logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		Logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
}
