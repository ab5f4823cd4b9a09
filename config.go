package cachehook

import "time"

// Config holds the configuration for an Engine.
type Config struct {
	// BufferWindow is the delay between the first observation of a window
	// and its flush. Zero or less disables the timer; the buffer is then
	// flushed only by Flush or Stop.
	BufferWindow time.Duration `json:"buffer_window" yaml:"buffer_window" mapstructure:"buffer_window"`

	// AllowedEvents is the allow-list of event names that may be dispatched.
	// It is required.
	AllowedEvents []string `json:"allowed_events" yaml:"allowed_events" mapstructure:"allowed_events"`

	// Concurrency is the number of delivery worker goroutines.
	Concurrency int `json:"concurrency" yaml:"concurrency" mapstructure:"concurrency"`

	// PollInterval is how often the delivery engine checks for pending deliveries.
	PollInterval time.Duration `json:"poll_interval" yaml:"poll_interval" mapstructure:"poll_interval"`

	// BatchSize is the maximum number of deliveries dequeued per poll cycle.
	BatchSize int `json:"batch_size" yaml:"batch_size" mapstructure:"batch_size"`

	// RequestTimeout is the HTTP timeout per delivery attempt.
	RequestTimeout time.Duration `json:"request_timeout" yaml:"request_timeout" mapstructure:"request_timeout"`

	// MaxRetries is the maximum number of delivery attempts per event and webhook.
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`

	// RetrySchedule defines the backoff intervals between retry attempts.
	RetrySchedule []time.Duration `json:"retry_schedule" yaml:"retry_schedule" mapstructure:"retry_schedule"`

	// ShutdownTimeout bounds how long Stop waits for in-flight deliveries.
	ShutdownTimeout time.Duration `json:"shutdown_timeout" yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
}

// DefaultRetrySchedule defines the default exponential backoff intervals.
var DefaultRetrySchedule = []time.Duration{
	5 * time.Second,
	30 * time.Second,
	2 * time.Minute,
	15 * time.Minute,
	2 * time.Hour,
}

// DefaultConfig returns a Config with sensible defaults. AllowedEvents is
// left empty and must be set.
func DefaultConfig() Config {
	return Config{
		BufferWindow:    time.Second,
		Concurrency:     10,
		PollInterval:    1 * time.Second,
		BatchSize:       50,
		RequestTimeout:  30 * time.Second,
		MaxRetries:      5,
		RetrySchedule:   DefaultRetrySchedule,
		ShutdownTimeout: 30 * time.Second,
	}
}
