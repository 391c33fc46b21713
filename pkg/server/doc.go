// Package server hosts a VirtualDom behind a WebSocket connection.
//
// A Host owns one VirtualDom and drives it from a single goroutine. The
// engine is not safe for concurrent use, so every call into it (event
// dispatch, incremental work, teardown) is serialized on that goroutine.
// Other goroutines reach it through two channels:
//
//   - a bounded event queue, filled by the connection read loop
//   - a wake channel, signalled whenever a scope is marked dirty
//
// Each drive cycle runs WorkWithDeadline with a per-frame budget. A cycle
// that yields leaves the remaining dirty scopes queued and re-signals the
// wake channel, so pending events interleave with long renders.
//
// # Edit delivery
//
// Every non-empty edit script is wrapped in a FrameEdits frame with a
// monotonically increasing sequence number, applied to an in-memory
// render.Document mirror, kept in a bounded EditHistory and written to the
// attached renderer. Only one renderer is attached at a time; a newer
// connection replaces the older one.
//
// # Resync
//
// A renderer reports the last sequence it applied in its ClientHello (or
// later in a ResyncRequest control). When the history still holds every
// frame after that point they are replayed with FlagReplay. Otherwise the
// host sends a ControlReset followed by a single FlagReset edits frame that
// rebuilds the mirror's current tree from an empty container, reusing the
// same mount ids so listener targets stay valid.
//
// # Routing
//
// NewRouter mounts the host on a chi router next to /metrics and /healthz.
// An EventFeed passed in RouterConfig.Events is served at /events.
package server
