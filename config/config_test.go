package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"openshelf/native/market"
)

func TestLoadCreatesDefaultFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:8645", cfg.ListenAddress)
	require.Equal(t, "./openshelf-data", cfg.DataDir)
	require.FileExists(t, path)

	// Reloading reads the file it just wrote.
	again, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg.ListenAddress, again.ListenAddress)
}

func TestLoadExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	body := `ListenAddress = "0.0.0.0:9000"
DataDir = "/var/lib/openshelf"
PlatformAddress = "0x00000000000000000000000000000000000000ff"
EnableFaucet = true

[marketplace]
AuthorShareBps = 6000
StakerShareBps = 2000
MaxStakers = 64
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "0.0.0.0:9000", cfg.ListenAddress)
	require.True(t, cfg.EnableFaucet)

	platform, ok := cfg.Platform()
	require.True(t, ok)
	require.Equal(t, byte(0xFF), platform[19])

	params := cfg.Marketplace.Params()
	require.Equal(t, uint64(6000), params.AuthorShareBps)
	require.Equal(t, uint64(2000), params.StakerShareBps)
	require.Equal(t, 64, params.MaxStakers)
	// Unset fields fall back to defaults.
	require.Equal(t, uint64(market.DefaultMaxChapterPrice), params.MaxChapterPrice)
	require.Equal(t, market.DefaultMaxChapters, params.MaxChapters)
}

func TestValidateRejectsBadPlatformAddress(t *testing.T) {
	cfg := &Config{
		ListenAddress:   "127.0.0.1:8645",
		DataDir:         "./data",
		PlatformAddress: "not-an-address",
	}
	require.Error(t, cfg.Validate())
}

func TestValidateRejectsBadSplit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	body := `ListenAddress = "127.0.0.1:8645"
DataDir = "./data"

[marketplace]
AuthorShareBps = 9000
StakerShareBps = 2000
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	_, err := Load(path)
	require.Error(t, err, "shares above 100% must be rejected")
}

func TestPlatformUnsetReturnsFalse(t *testing.T) {
	cfg := &Config{ListenAddress: "127.0.0.1:8645", DataDir: "./data"}
	_, ok := cfg.Platform()
	require.False(t, ok)
}
