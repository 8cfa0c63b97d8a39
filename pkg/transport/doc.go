// Package transport supplies concrete bootcore.Channel implementations:
// an in-memory pipe for tests, a real OS serial port for talking to
// hardware, and a pseudo-terminal pair for the local simulator. None of
// these types are imported by pkg/bootcore; the CORE only ever sees the
// Channel interface.
package transport
