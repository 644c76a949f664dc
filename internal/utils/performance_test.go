package utils

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestTimer_StopWithContext(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf).Level(zerolog.DebugLevel)

	timer := NewTimer("projection", log)
	duration := timer.StopWithContext(map[string]interface{}{
		"holdings": 3,
		"policy":   "reinvest_all",
	})

	assert.GreaterOrEqual(t, int64(duration), int64(0))
	assert.Contains(t, buf.String(), `"operation":"projection"`)
	assert.Contains(t, buf.String(), `"holdings":3`)
	assert.Contains(t, buf.String(), `"policy":"reinvest_all"`)
}

func TestTimer_Disabled(t *testing.T) {
	var buf bytes.Buffer
	timer := NewTimer("projection", zerolog.New(&buf))
	timer.Disable()

	assert.Equal(t, int64(0), int64(timer.Stop()))
	assert.Empty(t, buf.String())
}
