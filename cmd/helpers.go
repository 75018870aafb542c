package cmd

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/simon/remux/internal/config"
	"github.com/simon/remux/internal/events"
	"github.com/simon/remux/internal/manager"
	"github.com/simon/remux/internal/state"
)

// parseHostName splits "host:name" into (host, name).
// If no colon, returns ("", name).
func parseHostName(s string) (host, name string) {
	if idx := strings.IndexByte(s, ':'); idx >= 0 {
		return s[:idx], s[idx+1:]
	}
	return "", s
}

// hostEntry looks up a host book entry by handle.
func hostEntry(handle string) (config.HostConfig, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.HostConfig{}, err
	}
	h, ok := cfg.Hosts[handle]
	if !ok {
		return config.HostConfig{}, fmt.Errorf("unknown host %q (add it to ~/.config/remux/config.yaml)", handle)
	}
	return h, nil
}

// connectManager authenticates a manager against a configured host.
// Passwords come from REMUX_PASSWORD or a terminal prompt; they are
// never stored.
func connectManager(m *manager.Manager, handle string) error {
	h, err := hostEntry(handle)
	if err != nil {
		return err
	}

	password := ""
	if h.KeyPath == "" {
		password = os.Getenv("REMUX_PASSWORD")
		if password == "" {
			password, err = promptPassword(fmt.Sprintf("%s@%s password: ", h.User, h.Host))
			if err != nil {
				return err
			}
		}
	}

	connCfg, err := h.ConnectionConfig(password)
	if err != nil {
		return err
	}

	if err := m.Connect(connCfg); err != nil {
		return err
	}

	// History is best effort; a broken local database must not block
	// the connection.
	if st, err := state.Open(); err == nil {
		_ = st.RecordConnect(handle, h.Host, h.User)
		st.Close()
	}
	return nil
}

// openManager connects a standalone manager for one-shot commands.
func openManager(handle string) (*manager.Manager, error) {
	m := manager.New(handle)
	if err := connectManager(m, handle); err != nil {
		return nil, err
	}
	return m, nil
}

// connectAllHosts connects every configured host into one registry.
// Hosts that fail to connect are reported and skipped.
func connectAllHosts() (*manager.Registry, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if len(cfg.Hosts) == 0 {
		return nil, fmt.Errorf("no hosts configured in ~/.config/remux/config.yaml")
	}

	registry := manager.NewRegistry()
	for handle := range cfg.Hosts {
		m, err := registry.Create(handle)
		if err != nil {
			continue
		}
		if err := connectManager(m, handle); err != nil {
			fmt.Fprintf(os.Stderr, "warning: %s: %v\n", handle, err)
			registry.Remove(handle)
		}
	}
	if len(registry.Handles()) == 0 {
		return nil, fmt.Errorf("no hosts reachable")
	}
	return registry, nil
}

func promptPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	pw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(pw), nil
}

// runAttach relays the interactive channel to the local terminal: raw
// mode, stdin forwarded as keystrokes, remote bytes written through.
func runAttach(mgr *manager.Manager, name string) error {
	fd := int(os.Stdin.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("set raw terminal: %w", err)
	}
	defer term.Restore(fd, oldState)

	bus := mgr.Events()
	h := bus.SubscribeOutput(func(ev events.Output) {
		if ev.Kind == events.Stderr {
			os.Stderr.Write(ev.Data)
			return
		}
		os.Stdout.Write(ev.Data)
	})
	defer bus.UnsubscribeOutput(h)

	done, err := mgr.AttachSession(name)
	if err != nil {
		return err
	}
	defer mgr.Detach()

	go func() {
		buf := make([]byte, 1024)
		for {
			n, err := os.Stdin.Read(buf)
			if n > 0 {
				if mgr.WriteInput(buf[:n]) != nil {
					return
				}
			}
			if err != nil {
				return
			}
		}
	}()

	<-done
	return nil
}

// recordSession appends to the local audit log, best effort.
func recordSession(handle, session, action string) {
	if st, err := state.Open(); err == nil {
		_ = st.RecordSession(handle, session, action)
		st.Close()
	}
}
