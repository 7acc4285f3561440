// Package server implements the core of the chat service: a hub goroutine
// that owns the session registry and serializes every registration, command,
// broadcast, and removal, fed by framed TCP connections and an optional
// WebSocket bridge.
//
// The implementation is organized into specialized files for configuration,
// hub coordination, sessions, command parsing, and the listeners to keep the
// codebase maintainable and testable as the project grows.
package server
