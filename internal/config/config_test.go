package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseConfig() Config {
	var cfg Config
	cfg.App.Port = 38471
	cfg.Polling.ScrapeSeconds = 900
	cfg.Polling.SweepSeconds = 3600
	cfg.Consumer.FetchLimit = 100
	return cfg
}

func TestValidate(t *testing.T) {
	require.NoError(t, Validate(baseConfig()))

	bad := baseConfig()
	bad.App.Port = 0
	assert.Error(t, Validate(bad))

	bad = baseConfig()
	bad.Polling.SweepSeconds = 0
	assert.Error(t, Validate(bad))

	bad = baseConfig()
	bad.Sources.Greenhouse.Enabled = true
	bad.Sources.Greenhouse.Companies = []Company{{Slug: " "}}
	assert.Error(t, Validate(bad))

	bad = baseConfig()
	bad.Email.Enabled = true
	assert.Error(t, Validate(bad), "enabled email needs host, username, mailbox")

	ok := baseConfig()
	ok.Email.Enabled = true
	ok.Email.IMAPHost = "imap.example.com"
	ok.Email.Username = "me@example.com"
	ok.Email.Mailbox = "INBOX"
	assert.NoError(t, Validate(ok))
}

func TestSaveAtomicRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")

	cfg := baseConfig()
	cfg.Sources.Lever.Enabled = true
	cfg.Sources.Lever.Companies = []Company{{Slug: "acme", Name: "Acme"}}

	require.NoError(t, SaveAtomic(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.App, loaded.App)
	assert.Equal(t, cfg.Polling, loaded.Polling)
	assert.Equal(t, cfg.Consumer, loaded.Consumer)
	assert.True(t, loaded.Sources.Lever.Enabled)
	assert.Equal(t, cfg.Sources.Lever.Companies, loaded.Sources.Lever.Companies)

	// a second save keeps the previous file as .bak
	cfg.App.Port = 38472
	require.NoError(t, SaveAtomic(path, cfg))
	_, err = os.Stat(path + ".bak")
	require.NoError(t, err)

	loaded, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, 38472, loaded.App.Port)
}

func TestSaveAtomicRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")

	bad := baseConfig()
	bad.App.Port = -1
	require.Error(t, SaveAtomic(path, bad))

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err), "invalid config must not be written")
}

func TestEnsureUserConfig(t *testing.T) {
	dir := t.TempDir()
	defaultPath := filepath.Join(dir, "default.yml")
	require.NoError(t, os.WriteFile(defaultPath, []byte("app:\n  port: 38471\n"), 0o644))

	dataDir := filepath.Join(dir, "data")
	require.NoError(t, os.MkdirAll(dataDir, 0o755))

	userPath, err := EnsureUserConfig(dataDir, defaultPath)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dataDir, "config.yml"), userPath)

	cfg, err := Load(userPath)
	require.NoError(t, err)
	assert.Equal(t, 38471, cfg.App.Port)

	// user edits survive a second bootstrap
	require.NoError(t, os.WriteFile(userPath, []byte("app:\n  port: 40000\n"), 0o644))
	again, err := EnsureUserConfig(dataDir, defaultPath)
	require.NoError(t, err)
	cfg, err = Load(again)
	require.NoError(t, err)
	assert.Equal(t, 40000, cfg.App.Port)
}
