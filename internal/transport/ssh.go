package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/simon/remux/internal/config"
)

// sshTransport implements Transport over golang.org/x/crypto/ssh.
// Each control command gets its own ssh.Session, so a control round trip
// and an open interactive channel can coexist on one client.
type sshTransport struct {
	client *ssh.Client
}

// Dial authenticates against the configured host and returns a live
// transport. The config must already be validated; Dial validates again
// as a guard since it is the last stop before network I/O.
func Dial(cfg config.ConnectionConfig) (Transport, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var auth ssh.AuthMethod
	switch cfg.Auth {
	case config.AuthPrivateKey:
		signer, err := ssh.ParsePrivateKey(cfg.PrivateKey)
		if err != nil {
			return nil, fmt.Errorf("parse private key: %w", err)
		}
		auth = ssh.PublicKeys(signer)
	default:
		auth = ssh.Password(cfg.Password)
	}

	hostKeyCallback := ssh.InsecureIgnoreHostKey()
	if cfg.KnownHostsPath != "" {
		cb, err := knownhosts.New(cfg.KnownHostsPath)
		if err != nil {
			return nil, fmt.Errorf("load known_hosts %s: %w", cfg.KnownHostsPath, err)
		}
		hostKeyCallback = cb
	}

	clientCfg := &ssh.ClientConfig{
		User:            cfg.Username,
		Auth:            []ssh.AuthMethod{auth},
		HostKeyCallback: hostKeyCallback,
		Timeout:         cfg.ConnectTimeout(),
	}

	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	client, err := ssh.Dial("tcp", addr, clientCfg)
	if err != nil {
		return nil, err
	}
	return &sshTransport{client: client}, nil
}

func (t *sshTransport) Run(ctx context.Context, command string) (Result, error) {
	sess, err := t.client.NewSession()
	if err != nil {
		return Result{}, fmt.Errorf("open exec channel: %w", err)
	}
	defer sess.Close()

	var stdout, stderr bytes.Buffer
	sess.Stdout = &stdout
	sess.Stderr = &stderr

	done := make(chan error, 1)
	go func() { done <- sess.Run(command) }()

	select {
	case <-ctx.Done():
		// Best effort: closing the session aborts the remote command.
		sess.Close()
		<-done
		return Result{}, ctx.Err()
	case err := <-done:
		res := Result{Stdout: stdout.String(), Stderr: stderr.String()}
		var exitErr *ssh.ExitError
		if errors.As(err, &exitErr) {
			res.ExitStatus = exitErr.ExitStatus()
			return res, nil
		}
		if err != nil {
			return res, err
		}
		return res, nil
	}
}

func (t *sshTransport) OpenInteractive(initialCommand string) (Channel, error) {
	sess, err := t.client.NewSession()
	if err != nil {
		return nil, fmt.Errorf("open interactive channel: %w", err)
	}

	modes := ssh.TerminalModes{
		ssh.ECHO:          1,
		ssh.TTY_OP_ISPEED: 14400,
		ssh.TTY_OP_OSPEED: 14400,
	}
	if err := sess.RequestPty("xterm-256color", 40, 120, modes); err != nil {
		sess.Close()
		return nil, fmt.Errorf("request pty: %w", err)
	}

	stdin, err := sess.StdinPipe()
	if err != nil {
		sess.Close()
		return nil, err
	}
	stdout, err := sess.StdoutPipe()
	if err != nil {
		sess.Close()
		return nil, err
	}
	stderr, err := sess.StderrPipe()
	if err != nil {
		sess.Close()
		return nil, err
	}

	if err := sess.Shell(); err != nil {
		sess.Close()
		return nil, fmt.Errorf("start shell: %w", err)
	}

	if _, err := io.WriteString(stdin, initialCommand+"\n"); err != nil {
		sess.Close()
		return nil, fmt.Errorf("send initial command: %w", err)
	}

	return &sshChannel{sess: sess, stdin: stdin, stdout: stdout, stderr: stderr}, nil
}

func (t *sshTransport) Close() error {
	return t.client.Close()
}

type sshChannel struct {
	sess   *ssh.Session
	stdin  io.WriteCloser
	stdout io.Reader
	stderr io.Reader
}

func (c *sshChannel) Write(p []byte) (int, error) { return c.stdin.Write(p) }
func (c *sshChannel) Stdout() io.Reader           { return c.stdout }
func (c *sshChannel) Stderr() io.Reader           { return c.stderr }

func (c *sshChannel) Close() error {
	c.stdin.Close()
	return c.sess.Close()
}
