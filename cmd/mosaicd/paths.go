package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/erichter2018/MosaicTools-sub001/pkg/protocol"
)

// Paths holds all resolved mosaicd state file paths.
// Use ResolvePaths() to populate this struct with defaults + env overrides.
type Paths struct {
	Home       string // ~/.mosaic or MOSAIC_HOME
	PIDPath    string // mosaicd.pid or MOSAIC_PID_PATH
	SocketPath string // mosaicd.sock or MOSAIC_SOCKET_PATH
	LegacyPath string // legacy.sock or MOSAIC_LEGACY_SOCKET
	DBPath     string // mosaicd.db or MOSAIC_DB_PATH
	ConfigPath string // config.toml (respects MOSAIC_HOME)
	MacrosPath string // macros.yaml (respects MOSAIC_HOME)
	LogPath    string // mosaicd.log (respects MOSAIC_HOME)
}

// ResolvePaths returns all mosaicd paths, respecting env var overrides.
// Environment variables:
//   - MOSAIC_HOME: base directory for all mosaicd state (default: ~/.mosaic)
//   - MOSAIC_PID_PATH: daemon PID file (default: $MOSAIC_HOME/mosaicd.pid)
//   - MOSAIC_SOCKET_PATH: control UDS socket (default: $MOSAIC_HOME/mosaicd.sock)
//   - MOSAIC_LEGACY_SOCKET: legacy signal socket (default: $MOSAIC_HOME/legacy.sock)
//   - MOSAIC_DB_PATH: runtime database (default: $MOSAIC_HOME/mosaicd.db)
func ResolvePaths() (*Paths, error) {
	home, err := resolveMosaicHome()
	if err != nil {
		return nil, err
	}

	return &Paths{
		Home:       home,
		PIDPath:    resolvePathWithEnv("MOSAIC_PID_PATH", home, protocol.PIDName),
		SocketPath: resolvePathWithEnv("MOSAIC_SOCKET_PATH", home, protocol.SocketName),
		LegacyPath: resolvePathWithEnv("MOSAIC_LEGACY_SOCKET", home, protocol.LegacySocketName),
		DBPath:     resolvePathWithEnv("MOSAIC_DB_PATH", home, protocol.DBName),
		ConfigPath: filepath.Join(home, protocol.ConfigName),
		MacrosPath: filepath.Join(home, protocol.MacrosName),
		LogPath:    filepath.Join(home, protocol.LogName),
	}, nil
}

// EnsureHome creates the mosaic home directory if it does not exist.
func (p *Paths) EnsureHome() error {
	if err := os.MkdirAll(p.Home, 0o700); err != nil {
		return fmt.Errorf("create state dir %s: %w", p.Home, err)
	}
	return nil
}

// resolveMosaicHome returns the state directory from MOSAIC_HOME or ~/.mosaic.
func resolveMosaicHome() (string, error) {
	if v := os.Getenv("MOSAIC_HOME"); v != "" {
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, protocol.MosaicDir), nil
}

// resolvePathWithEnv returns the path from envKey if set, otherwise joins base + suffix.
func resolvePathWithEnv(envKey, base, suffix string) string {
	if v := os.Getenv(envKey); v != "" {
		return v
	}
	return filepath.Join(base, suffix)
}
