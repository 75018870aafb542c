package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// HostConfig is one entry in the host book. Passwords are never stored
// here; at most a path to a private key on disk.
type HostConfig struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	User       string `yaml:"user"`
	KeyPath    string `yaml:"key"`
	KnownHosts string `yaml:"known_hosts"`
}

type Config struct {
	Hosts map[string]HostConfig `yaml:"hosts"`
}

// Load reads the host book from ~/.config/remux/config.yaml.
// A missing file is an empty config, not an error.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return &Config{}, nil
	}
	return LoadFile(filepath.Join(home, ".config", "remux", "config.yaml"))
}

// LoadFile reads the host book from an explicit path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	home, _ := os.UserHomeDir()
	for name, h := range cfg.Hosts {
		if h.Port == 0 {
			h.Port = 22
		}
		h.KeyPath = expandHome(h.KeyPath, home)
		h.KnownHosts = expandHome(h.KnownHosts, home)
		cfg.Hosts[name] = h
	}

	return &cfg, nil
}

func expandHome(path, home string) string {
	if len(path) > 0 && path[0] == '~' && home != "" {
		return filepath.Join(home, path[1:])
	}
	return path
}

// ConnectionConfig turns a host book entry into a dialable config.
// Key material is read here; a password, if needed, is supplied by the
// caller (prompted or taken from the environment, never persisted).
func (h HostConfig) ConnectionConfig(password string) (ConnectionConfig, error) {
	cfg := ConnectionConfig{
		Host:           h.Host,
		Port:           h.Port,
		Username:       h.User,
		KnownHostsPath: h.KnownHosts,
	}
	if h.KeyPath != "" {
		key, err := os.ReadFile(h.KeyPath)
		if err != nil {
			return ConnectionConfig{}, fmt.Errorf("read private key %s: %w", h.KeyPath, err)
		}
		cfg.Auth = AuthPrivateKey
		cfg.PrivateKey = key
	} else {
		cfg.Auth = AuthPassword
		cfg.Password = password
	}
	return cfg, nil
}
