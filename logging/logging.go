// Package logging provides the shared structured logger used across
// every specgo package.
package logging

import (
	"github.com/sirupsen/logrus"
)

// Log is the shared logger instance. Every package in this module logs
// through it rather than constructing its own logrus.Logger, so a single
// formatter/level switch in cmd/specgo controls output everywhere.
var Log = logrus.New()

// TimestampFormat is the timestamp layout used by both the text and JSON
// formatters, and by report timestamps so log lines and reports line up.
const TimestampFormat = "2006-01-02T15:04:05.000000Z07:00"

// Configure switches the logger between "json" and "text" output and
// sets the minimum level. An unrecognized format falls back to text.
func Configure(format string, level string) error {
	switch format {
	case "json":
		Log.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: TimestampFormat,
		})
	case "text":
		fallthrough
	default:
		Log.SetFormatter(&logrus.TextFormatter{
			TimestampFormat: TimestampFormat,
		})
	}

	if level == "" {
		return nil
	}
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	Log.SetLevel(parsed)
	return nil
}
