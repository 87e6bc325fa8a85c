// Package logging builds the structured logger shared by the client.
package logging

import (
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"taskdeck/internal/config"
)

// New returns a logger writing to w, configured from cfg.
// --debug forces the debug level; otherwise cfg.LogLevel applies and an
// unparsable level falls back to warn.
func New(cfg *config.Config, w io.Writer) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(w)

	if cfg.LogFormat == "json" {
		log.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "ts",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
			},
		})
	} else {
		log.SetFormatter(&logrus.TextFormatter{
			DisableTimestamp: !cfg.Debug,
		})
	}

	level := logrus.WarnLevel
	if lvl, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		level = lvl
	}
	if cfg.Debug {
		level = logrus.DebugLevel
	}
	log.SetLevel(level)

	return log
}
