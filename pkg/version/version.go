// Package version holds the engine identity reported by health, status
// and the WebSocket hello.
package version

// Version is overridden at build time via -ldflags.
var Version = "0.3.0"

// Engine is the engine name clients see in health/status payloads.
const Engine = "clawgate"

// ProtocolVersion is the gateway WebSocket protocol version.
const ProtocolVersion = 1
