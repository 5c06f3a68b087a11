package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frobware/go-pagecache/config"
)

func TestNewRuntimeDirs(t *testing.T) {
	dirs, err := config.NewRuntimeDirs("/var/lib/pagecache/", "/run/pagecache")
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/pagecache", dirs.State())
	assert.Equal(t, "/var/lib/pagecache/sentinels", dirs.Sentinels())
	assert.Equal(t, "/var/lib/pagecache/db", dirs.DB())
	assert.Equal(t, "/var/lib/pagecache/db/samples.db", dirs.DBPath())
	assert.Equal(t, "/run/pagecache", dirs.Run())
	assert.Equal(t, "/run/pagecache-sock", dirs.Sock())
	assert.Equal(t, "/run/pagecache-sock/health.sock", dirs.HealthSocketPath())
	assert.Equal(t, "/run/pagecache/.lock", dirs.Lock())
}

func TestNewRuntimeDirs_Invalid(t *testing.T) {
	tests := []struct {
		name       string
		state, run string
		wantErr    string
	}{
		{name: "empty state", state: "", run: "/run/x", wantErr: "state directory cannot be empty"},
		{name: "empty run", state: "/var/x", run: "", wantErr: "run directory cannot be empty"},
		{name: "relative state", state: "tmp/", run: "/run/x", wantErr: "must be absolute"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.NewRuntimeDirs(tt.state, tt.run)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDefaultRuntimeDirs(t *testing.T) {
	dirs := config.DefaultRuntimeDirs()
	assert.Equal(t, config.DefaultStateDir, dirs.State())
	assert.Equal(t, config.DefaultRunDir, dirs.Run())
}

func TestEnsureDirectories(t *testing.T) {
	root := t.TempDir()
	dirs, err := config.NewRuntimeDirs(filepath.Join(root, "state"), filepath.Join(root, "run"))
	require.NoError(t, err)

	require.NoError(t, dirs.EnsureDirectories())
	require.NoError(t, dirs.EnsureDirectories(), "idempotent")

	for _, dir := range []string{dirs.Sentinels(), dirs.DB(), dirs.Run(), dirs.Sock()} {
		fi, err := os.Stat(dir)
		require.NoError(t, err, dir)
		assert.True(t, fi.IsDir(), dir)
	}
}
