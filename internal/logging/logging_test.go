// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_WritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "modechat.log")
	log, closer, err := New(Options{Level: "info", Format: "json", File: path})
	require.NoError(t, err)

	log.Info().Str("mode", "code").Msg("mode switch started")
	log.Debug().Msg("filtered out")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "mode switch started", entry["message"])
	assert.Equal(t, "code", entry["mode"])
	assert.Equal(t, "info", entry["level"])
}

func TestNew_Errors(t *testing.T) {
	tests := []struct {
		name string
		opts Options
	}{
		{"bad level", Options{Level: "loud", Stderr: true}},
		{"bad format", Options{Level: "info", Format: "xml", Stderr: true}},
		{"no file", Options{Level: "info"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, closer, err := New(tt.opts)
			assert.Error(t, err)
			assert.NotNil(t, closer)
		})
	}
}

func TestNew_DisabledNeedsNoFile(t *testing.T) {
	log, closer, err := New(Options{Level: "disabled"})
	require.NoError(t, err)
	defer closer.Close()
	assert.Equal(t, zerolog.Disabled, log.GetLevel())
}

func TestNewWithWriter_Console(t *testing.T) {
	var buf bytes.Buffer
	log, err := newWithWriter(&buf, zerolog.DebugLevel, "console", false)
	require.NoError(t, err)
	log.Debug().Str("chat", "abc").Msg("store saved")
	assert.Contains(t, buf.String(), "store saved")
	assert.Contains(t, buf.String(), "chat=abc")
}
