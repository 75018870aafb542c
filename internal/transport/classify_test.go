package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
	"testing"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "dial tcp: operation timed out" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		expect Kind
	}{
		{
			name:   "dns error",
			err:    &net.DNSError{Err: "no such host", Name: "nope.invalid", IsNotFound: true},
			expect: KindHostUnresolvable,
		},
		{
			name:   "dns by message",
			err:    errors.New("dial tcp: lookup nope.invalid: no such host"),
			expect: KindHostUnresolvable,
		},
		{
			name:   "econnrefused",
			err:    &net.OpError{Op: "dial", Err: syscall.ECONNREFUSED},
			expect: KindConnectionRefused,
		},
		{
			name:   "refused by message",
			err:    errors.New("dial tcp 10.0.0.1:22: connect: connection refused"),
			expect: KindConnectionRefused,
		},
		{
			name:   "net timeout",
			err:    timeoutErr{},
			expect: KindTimeout,
		},
		{
			name:   "context deadline",
			err:    fmt.Errorf("dial: %w", context.DeadlineExceeded),
			expect: KindTimeout,
		},
		{
			name:   "io timeout by message",
			err:    errors.New("dial tcp 10.0.0.1:22: i/o timeout"),
			expect: KindTimeout,
		},
		{
			name:   "auth rejected",
			err:    errors.New("ssh: handshake failed: ssh: unable to authenticate, attempted methods [none password], no supported methods remain"),
			expect: KindAuthRejected,
		},
		{
			name:   "host key unknown",
			err:    errors.New("ssh: handshake failed: knownhosts: key is unknown"),
			expect: KindHostKeyMismatch,
		},
		{
			name:   "unrecognized",
			err:    errors.New("something odd happened"),
			expect: KindGeneric,
		},
		{
			name:   "nil",
			err:    nil,
			expect: KindGeneric,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.expect {
				t.Errorf("Classify(%v) = %v, want %v", tt.err, got, tt.expect)
			}
		})
	}
}
