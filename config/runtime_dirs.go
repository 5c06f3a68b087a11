package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// DefaultStateDir holds sentinel files and the sample database.
	// It must live on a disk-backed filesystem: pages of a tmpfs file
	// are always resident and would make every sample meaningless.
	DefaultStateDir = "/var/lib/pagecache"
	// DefaultRunDir holds the lock file and the health socket.
	DefaultRunDir = "/run/pagecache"
)

// RuntimeDirs holds every path the daemon touches:
//
//	{state}/sentinels/   - timestamp sentinel files
//	{state}/db/          - sample database
//	{run}/               - lock file
//	{run}-sock/          - gRPC health socket
//
// RuntimeDirs is immutable. Use NewRuntimeDirs to create one.
type RuntimeDirs struct {
	state     string
	sentinels string
	db        string
	run       string
	sock      string
	lock      string
}

// DefaultRuntimeDirs returns RuntimeDirs rooted at the defaults.
func DefaultRuntimeDirs() RuntimeDirs {
	dirs, err := NewRuntimeDirs(DefaultStateDir, DefaultRunDir)
	if err != nil {
		panic(fmt.Sprintf("DefaultRuntimeDirs: %v", err))
	}
	return dirs
}

// NewRuntimeDirs derives all paths from a state root and a run root.
// Both must be absolute.
func NewRuntimeDirs(state, run string) (RuntimeDirs, error) {
	for name, base := range map[string]string{"state": state, "run": run} {
		if base == "" {
			return RuntimeDirs{}, fmt.Errorf("%s directory cannot be empty", name)
		}
		if !filepath.IsAbs(base) {
			return RuntimeDirs{}, fmt.Errorf("%s directory must be absolute, got %q", name, base)
		}
	}

	state = filepath.Clean(state)
	run = filepath.Clean(run)
	return RuntimeDirs{
		state:     state,
		sentinels: filepath.Join(state, "sentinels"),
		db:        filepath.Join(state, "db"),
		run:       run,
		sock:      run + "-sock",
		lock:      filepath.Join(run, ".lock"),
	}, nil
}

func (d RuntimeDirs) State() string     { return d.state }
func (d RuntimeDirs) Sentinels() string { return d.sentinels }
func (d RuntimeDirs) DB() string        { return d.db }
func (d RuntimeDirs) Run() string       { return d.run }
func (d RuntimeDirs) Sock() string      { return d.sock }
func (d RuntimeDirs) Lock() string      { return d.lock }

// DBPath returns the sample database file.
func (d RuntimeDirs) DBPath() string {
	return filepath.Join(d.db, "samples.db")
}

// HealthSocketPath returns the gRPC health socket.
func (d RuntimeDirs) HealthSocketPath() string {
	return filepath.Join(d.sock, "health.sock")
}

// EnsureDirectories creates every directory the daemon writes to.
// MkdirAll is idempotent so this is safe on every start.
func (d RuntimeDirs) EnsureDirectories() error {
	for _, dir := range []string{d.state, d.sentinels, d.db, d.run, d.sock} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}
