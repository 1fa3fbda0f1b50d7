package sse

import "time"

// Config holds configuration for SSE streams
type Config struct {
	// KeepAliveInterval is how often a comment line is written to keep proxies from
	// closing idle streams
	KeepAliveInterval time.Duration
}

// DefaultConfig returns the default SSE configuration.
// 10 seconds stays under the idle timeout of common proxies.
func DefaultConfig() *Config {
	return &Config{
		KeepAliveInterval: 10 * time.Second,
	}
}
