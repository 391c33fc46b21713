package server

import "time"

// HostConfig configures a Host and its connections.
type HostConfig struct {
	// FrameBudget bounds one WorkWithDeadline call. Dirty scopes left over
	// when it runs out are rendered on the next cycle.
	// Default: 8ms.
	FrameBudget time.Duration

	// PatchHistory is the number of edit frames kept for replay.
	// Default: 100.
	PatchHistory int

	// EventQueue is the capacity of the inbound event queue. Events that
	// arrive while it is full are dropped and reported to the renderer.
	// Default: 256.
	EventQueue int

	// ReadTimeout is the maximum time to wait for a message from the renderer.
	// Default: 60 seconds.
	ReadTimeout time.Duration

	// WriteTimeout is the maximum time to wait when sending a frame.
	// Default: 10 seconds.
	WriteTimeout time.Duration

	// HandshakeTimeout is the maximum time to wait for the ClientHello.
	// Default: 10 seconds.
	HandshakeTimeout time.Duration

	// HeartbeatInterval is how often the host pings an attached renderer.
	// Zero disables heartbeats.
	// Default: 30 seconds.
	HeartbeatInterval time.Duration

	// MaxMessageSize is the maximum size of an incoming WebSocket message.
	// Default: 64KB.
	MaxMessageSize int64

	// CheckOrigin validates the Origin header of upgrade requests.
	// Default: nil, which lets gorilla/websocket require same-origin.
	CheckOrigin func(origin string) bool
}

// DefaultHostConfig returns a HostConfig with sensible defaults.
func DefaultHostConfig() *HostConfig {
	return &HostConfig{
		FrameBudget:       8 * time.Millisecond,
		PatchHistory:      100,
		EventQueue:        256,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
		HandshakeTimeout:  10 * time.Second,
		HeartbeatInterval: 30 * time.Second,
		MaxMessageSize:    64 * 1024,
	}
}

// Clone returns a copy of the config.
func (c *HostConfig) Clone() *HostConfig {
	clone := *c
	return &clone
}

// withDefaults returns a copy with zero fields filled from DefaultHostConfig.
// HeartbeatInterval is left alone since zero disables it.
func (c *HostConfig) withDefaults() *HostConfig {
	d := DefaultHostConfig()
	if c == nil {
		return d
	}
	out := c.Clone()
	if out.FrameBudget <= 0 {
		out.FrameBudget = d.FrameBudget
	}
	if out.PatchHistory <= 0 {
		out.PatchHistory = d.PatchHistory
	}
	if out.EventQueue <= 0 {
		out.EventQueue = d.EventQueue
	}
	if out.ReadTimeout <= 0 {
		out.ReadTimeout = d.ReadTimeout
	}
	if out.WriteTimeout <= 0 {
		out.WriteTimeout = d.WriteTimeout
	}
	if out.HandshakeTimeout <= 0 {
		out.HandshakeTimeout = d.HandshakeTimeout
	}
	if out.MaxMessageSize <= 0 {
		out.MaxMessageSize = d.MaxMessageSize
	}
	return out
}
