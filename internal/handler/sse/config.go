package sse

import "time"

// Config holds configuration for event stream connections
type Config struct {
	// KeepAliveInterval is how often a comment line is written to keep proxies from
	// closing an idle stream
	KeepAliveInterval time.Duration

	// BufferSize bounds the events queued per client. A client that falls further
	// behind loses events and should reload the tree.
	BufferSize int
}

// DefaultConfig returns the default stream configuration
func DefaultConfig() *Config {
	return &Config{
		KeepAliveInterval: 10 * time.Second,
		BufferSize:        64,
	}
}
