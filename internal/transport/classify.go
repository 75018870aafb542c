package transport

import (
	"context"
	"errors"
	"net"
	"os"
	"strings"
	"syscall"

	"golang.org/x/crypto/ssh/knownhosts"
)

// Kind is the user-meaningful category of a connect failure. The rest of
// the system branches on this enum, never on error message content; all
// string matching against the transport's failure signatures lives here.
type Kind int

const (
	KindGeneric Kind = iota
	KindHostUnresolvable
	KindConnectionRefused
	KindTimeout
	KindAuthRejected
	KindHostKeyMismatch
)

func (k Kind) String() string {
	switch k {
	case KindHostUnresolvable:
		return "host unresolvable"
	case KindConnectionRefused:
		return "connection refused"
	case KindTimeout:
		return "connection timed out"
	case KindAuthRejected:
		return "authentication rejected"
	case KindHostKeyMismatch:
		return "host key verification failed"
	default:
		return "connection failed"
	}
}

// Classify maps a low-level dial error to a Kind. Typed errors are
// preferred; substring matching covers the cases the ssh package folds
// into generic errors.
func Classify(err error) Kind {
	if err == nil {
		return KindGeneric
	}

	var keyErr *knownhosts.KeyError
	if errors.As(err, &keyErr) {
		return KindHostKeyMismatch
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return KindHostUnresolvable
	}

	if errors.Is(err, syscall.ECONNREFUSED) {
		return KindConnectionRefused
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return KindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "no such host"),
		strings.Contains(msg, "name resolution"):
		return KindHostUnresolvable
	case strings.Contains(msg, "connection refused"):
		return KindConnectionRefused
	case strings.Contains(msg, "i/o timeout"),
		strings.Contains(msg, "timed out"),
		strings.Contains(msg, "handshake did not complete"):
		return KindTimeout
	case strings.Contains(msg, "unable to authenticate"),
		strings.Contains(msg, "no supported methods remain"),
		strings.Contains(msg, "permission denied"):
		return KindAuthRejected
	case strings.Contains(msg, "host key mismatch"),
		strings.Contains(msg, "key is unknown"),
		strings.Contains(msg, "knownhosts:"):
		return KindHostKeyMismatch
	}
	return KindGeneric
}
