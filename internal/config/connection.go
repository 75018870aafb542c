package config

import (
	"errors"
	"fmt"
	"time"
)

// AuthMethod selects which credential field of a ConnectionConfig is
// meaningful.
type AuthMethod int

const (
	AuthPassword AuthMethod = iota
	AuthPrivateKey
)

// DefaultConnectTimeout bounds the SSH handshake.
const DefaultConnectTimeout = 30 * time.Second

// ConnectionConfig describes one SSH endpoint and its credential.
// It is treated as immutable once a connection attempt starts.
type ConnectionConfig struct {
	Host     string
	Port     int
	Username string
	Auth     AuthMethod

	// Exactly one of these is meaningful, per Auth.
	Password   string
	PrivateKey []byte

	// KnownHostsPath enables host-identity verification when non-empty.
	KnownHostsPath string

	// Timeout for the connect handshake; DefaultConnectTimeout when zero.
	Timeout time.Duration
}

// Validate checks the config before any network I/O happens.
func (c ConnectionConfig) Validate() error {
	if c.Host == "" {
		return errors.New("invalid connection config: host is required")
	}
	if c.Username == "" {
		return errors.New("invalid connection config: username is required")
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid connection config: port %d out of range", c.Port)
	}
	switch c.Auth {
	case AuthPassword:
		if c.Password == "" {
			return errors.New("invalid connection config: password auth selected but password is empty")
		}
	case AuthPrivateKey:
		if len(c.PrivateKey) == 0 {
			return errors.New("invalid connection config: key auth selected but private key is empty")
		}
	default:
		return fmt.Errorf("invalid connection config: unknown auth method %d", c.Auth)
	}
	return nil
}

// ConnectTimeout returns the effective handshake timeout.
func (c ConnectionConfig) ConnectTimeout() time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	return DefaultConnectTimeout
}
