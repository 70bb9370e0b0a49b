package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeJSON(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestDefaults(t *testing.T) {
	cfg, err := LoadWithPath(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 15*time.Second, cfg.BackendTimeout.Duration)
	assert.Equal(t, 30*time.Minute, cfg.SessionTTL.Duration)
	assert.Equal(t, "sv", cfg.DefaultLang)
	assert.Equal(t, "exports", cfg.FilesRoot)
	assert.NoError(t, cfg.Validate())
}

func TestLayering(t *testing.T) {
	p := writeJSON(t, `{"port":"9000","backendTimeout":"5s","sessionTtl":600,"logLevel":"debug","dbUrl":"postgres://json"}`)
	t.Setenv("SCOUTADMIN_PORT", "9100")
	t.Setenv("SCOUTADMIN_COOKIE_SECURE", "true")
	t.Setenv("SCOUTADMIN_SESSION_TTL", "45m")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags := BindFlags(fs, p)
	require.NoError(t, fs.Parse([]string{"--port", "9200", "--lang", "en"}))

	cfg, err := flags.Load(fs)
	require.NoError(t, err)

	assert.Equal(t, "9200", cfg.Port)                           // флаг поверх ENV
	assert.Equal(t, 5*time.Second, cfg.BackendTimeout.Duration) // JSON
	assert.Equal(t, 45*time.Minute, cfg.SessionTTL.Duration)    // ENV поверх JSON
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "postgres://json", cfg.DBURL)
	assert.Equal(t, "en", cfg.DefaultLang)
	assert.True(t, cfg.CookieSecure)
}

func TestUnsetFlagsDoNotOverride(t *testing.T) {
	p := writeJSON(t, `{"port":"9000"}`)
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags := BindFlags(fs, p)
	require.NoError(t, fs.Parse(nil))

	cfg, err := flags.Load(fs)
	require.NoError(t, err)
	assert.Equal(t, "9000", cfg.Port)
}

func TestConfigFlagSelectsFile(t *testing.T) {
	p := writeJSON(t, `{"backendUrl":"https://backend.example/api"}`)
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags := BindFlags(fs, "config.json")
	require.NoError(t, fs.Parse([]string{"--config", p}))

	cfg, err := flags.Load(fs)
	require.NoError(t, err)
	assert.Equal(t, "https://backend.example/api", cfg.BackendURL)
}

func TestMalformedJSON(t *testing.T) {
	_, err := LoadWithPath(writeJSON(t, `{"port":`))
	assert.Error(t, err)

	_, err = LoadWithPath(writeJSON(t, `{"backendTimeout":true}`))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Port = "abc"
	cfg.BackendURL = "ftp://x"
	cfg.LogLevel = "loud"
	cfg.SessionTTL = Duration{}
	err := cfg.Validate()
	require.Error(t, err)
	for _, part := range []string{"port", "backendUrl", "logLevel", "sessionTtl"} {
		assert.Contains(t, err.Error(), part)
	}
}
