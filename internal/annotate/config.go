package annotate

import (
	"os"
	"strconv"
)

// TaskType identifies the kind of annotation being generated.
type TaskType string

// TaskNarrative is the only task today; the summary, objectives, and
// per-day focus all come back in its one structured response.
const TaskNarrative TaskType = "narrative"

// TaskConfig holds per-task generation parameters.
type TaskConfig struct {
	Temperature float64
	MaxTokens   int
	TimeoutMs   int // overrides global if > 0
}

// Config holds all configuration for the narrative annotator subsystem.
// The annotator is optional: plans are fully valid without it.
type Config struct {
	Enabled    bool
	LogCalls   bool
	Endpoint   string
	Model      string
	TimeoutMs  int
	MaxRetries int

	// RatePerMinute bounds annotator calls in batch mode; 0 disables
	// client-side throttling.
	RatePerMinute int

	Tasks map[TaskType]TaskConfig
}

// DefaultConfig returns annotator configuration with the annotator
// disabled.
func DefaultConfig() Config {
	return Config{
		Enabled:       false,
		LogCalls:      false,
		Endpoint:      "http://localhost:11434",
		Model:         "llama3.2",
		TimeoutMs:     15000,
		MaxRetries:    1,
		RatePerMinute: 30,
		Tasks: map[TaskType]TaskConfig{
			TaskNarrative: {Temperature: 0.3, MaxTokens: 1024, TimeoutMs: 15000},
		},
	}
}

// LoadConfig reads annotator configuration from FIELDPLAN_LLM_*
// environment variables, falling back to defaults for unset values.
func LoadConfig() Config {
	cfg := DefaultConfig()

	if v := os.Getenv("FIELDPLAN_LLM_ENABLED"); v != "" {
		cfg.Enabled, _ = strconv.ParseBool(v)
	}
	if v := os.Getenv("FIELDPLAN_LLM_LOG_CALLS"); v != "" {
		cfg.LogCalls, _ = strconv.ParseBool(v)
	}
	if v := os.Getenv("FIELDPLAN_LLM_ENDPOINT"); v != "" {
		cfg.Endpoint = v
	}
	if v := os.Getenv("FIELDPLAN_LLM_MODEL"); v != "" {
		cfg.Model = v
	}
	if v := os.Getenv("FIELDPLAN_LLM_TIMEOUT_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.TimeoutMs = n
		}
	}
	if v := os.Getenv("FIELDPLAN_LLM_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.MaxRetries = n
		}
	}
	if v := os.Getenv("FIELDPLAN_LLM_RATE_PER_MINUTE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.RatePerMinute = n
		}
	}
	return cfg
}

// TaskTimeout returns the effective timeout for a task, preferring the
// per-task override.
func (c Config) TaskTimeout(task TaskType) int {
	if tc, ok := c.Tasks[task]; ok && tc.TimeoutMs > 0 {
		return tc.TimeoutMs
	}
	return c.TimeoutMs
}
