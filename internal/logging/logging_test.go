package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskdeck/internal/config"
)

func TestNew_Levels(t *testing.T) {
	tests := []struct {
		name  string
		cfg   config.Config
		level logrus.Level
	}{
		{name: "configured", cfg: config.Config{LogLevel: "info"}, level: logrus.InfoLevel},
		{name: "invalid falls back", cfg: config.Config{LogLevel: "loud"}, level: logrus.WarnLevel},
		{name: "debug flag wins", cfg: config.Config{LogLevel: "error", Debug: true}, level: logrus.DebugLevel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			log := New(&cfg, &bytes.Buffer{})
			assert.Equal(t, tt.level, log.GetLevel())
		})
	}
}

func TestNew_JSONFieldMap(t *testing.T) {
	var buf bytes.Buffer
	log := New(&config.Config{LogLevel: "info", LogFormat: "json"}, &buf)

	log.WithField("task_id", "t1").Info("hello")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "hello", entry["message"])
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "t1", entry["task_id"])
	assert.Contains(t, entry, "ts")
}
