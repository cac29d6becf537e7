package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriter_JSONOutsideDev(t *testing.T) {
	var buf bytes.Buffer
	l := Component(NewWithWriter(&buf, "debug", "prod"), "planner")
	l.Debug().Uint64(WEDDING, 7).Msg("chart saved")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "planner", line[COMPONENT])
	assert.Equal(t, "chart saved", line["message"])
	assert.EqualValues(t, 7, line[WEDDING])
}

func TestNewWithWriter_LevelFallback(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, "nonsense", "prod")
	assert.Equal(t, zerolog.InfoLevel, l.GetLevel())

	l.Debug().Msg("hidden")
	assert.Zero(t, buf.Len())
}

func TestNewWithWriter_ConsoleInDev(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, "info", "dev")
	l.Info().Msg("hello")
	assert.Contains(t, buf.String(), "hello")
	assert.False(t, json.Valid(buf.Bytes()))
}
