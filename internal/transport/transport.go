// Package transport owns the authenticated network channel. It exposes
// two primitives: run a command to completion capturing its output, and
// open a long-lived interactive byte stream.
package transport

import (
	"context"
	"io"
)

// Result is the complete outcome of a control command. A non-zero exit
// status is data, not an error: the caller decides error semantics per
// command.
type Result struct {
	Stdout     string
	Stderr     string
	ExitStatus int
}

// Channel is a live interactive duplex. Bytes are opaque at this layer:
// no line buffering, no escape-sequence interpretation.
type Channel interface {
	io.WriteCloser

	// Stdout and Stderr stream the remote output until the channel ends.
	Stdout() io.Reader
	Stderr() io.Reader
}

// Transport is an authenticated remote-execution channel.
type Transport interface {
	// Run executes one control command to completion. Stdout and stderr
	// are captured separately.
	Run(ctx context.Context, command string) (Result, error)

	// OpenInteractive starts a remote shell and writes initialCommand as
	// the first line sent over it.
	OpenInteractive(initialCommand string) (Channel, error)

	Close() error
}
