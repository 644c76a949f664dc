package utils

import (
	"time"

	"github.com/rs/zerolog"
)

// slowOperationThreshold is the duration above which a timed operation is logged at warn.
const slowOperationThreshold = 10 * time.Second

// Timer is a simple performance timer for measuring operation duration
type Timer struct {
	start   time.Time
	name    string
	log     zerolog.Logger
	enabled bool
}

// NewTimer creates a new timer with the given name
func NewTimer(name string, log zerolog.Logger) *Timer {
	return &Timer{
		start:   time.Now(),
		name:    name,
		log:     log,
		enabled: true,
	}
}

// Stop stops the timer and logs the duration
func (t *Timer) Stop() time.Duration {
	return t.StopWithContext(nil)
}

// StopWithContext stops the timer and logs with additional context
func (t *Timer) StopWithContext(context map[string]interface{}) time.Duration {
	if !t.enabled {
		return 0
	}

	duration := time.Since(t.start)

	event := t.log.Debug()
	if duration > slowOperationThreshold {
		event = t.log.Warn()
	}
	event = event.
		Str("operation", t.name).
		Dur("duration_ms", duration)

	for key, value := range context {
		switch v := value.(type) {
		case string:
			event = event.Str(key, v)
		case int:
			event = event.Int(key, v)
		case int64:
			event = event.Int64(key, v)
		case float64:
			event = event.Float64(key, v)
		case bool:
			event = event.Bool(key, v)
		default:
			event = event.Interface(key, v)
		}
	}

	if duration > slowOperationThreshold {
		event.Msg("Slow operation detected")
	} else {
		event.Msg("Performance measurement")
	}

	return duration
}

// Disable disables the timer
func (t *Timer) Disable() {
	t.enabled = false
}
