package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, 5, cfg.Acquire.MaxEmptyPages)
	assert.Equal(t, 5*time.Minute, cfg.Acquire.MaxIdle)
	assert.Equal(t, 60*time.Second, cfg.Session.StepUpWait)
	assert.NotEmpty(t, cfg.Selectors.ConnectButton)
	assert.NotEmpty(t, cfg.Selectors.NextButton)
}

func TestLoadYAMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
linkedin:
  email: user@example.com
  password: hunter2
browser:
  headless: false
acquire:
  max_empty_pages: 3
  max_idle: 2m
selectors:
  connect_button: "button.custom-connect"
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "user@example.com", cfg.LinkedIn.Email)
	assert.False(t, cfg.Browser.Headless)
	assert.Equal(t, 3, cfg.Acquire.MaxEmptyPages)
	assert.Equal(t, 2*time.Minute, cfg.Acquire.MaxIdle)
	assert.Equal(t, "button.custom-connect", cfg.Selectors.ConnectButton)

	// Untouched sections keep their defaults.
	assert.Equal(t, 60*time.Second, cfg.Session.StepUpWait)
	assert.Equal(t, DefaultSelectors().NextButton, cfg.Selectors.NextButton)
}

func TestLoadRejectsUnknownFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("x = 1"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
linkedin:
  email: file@example.com
  password: filepass
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	t.Setenv("LINKEDIN_EMAIL", "env@example.com")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "env@example.com", cfg.LinkedIn.Email)
	assert.Equal(t, "filepass", cfg.LinkedIn.Password)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := DefaultConfig()
		cfg.LinkedIn.Email = "user@example.com"
		cfg.LinkedIn.Password = "hunter2"
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"missing email", func(c *Config) { c.LinkedIn.Email = "" }, "email"},
		{"missing password", func(c *Config) { c.LinkedIn.Password = "" }, "password"},
		{"zero empty pages", func(c *Config) { c.Acquire.MaxEmptyPages = 0 }, "empty pages"},
		{"zero idle", func(c *Config) { c.Acquire.MaxIdle = 0 }, "idle"},
		{"zero step-up wait", func(c *Config) { c.Session.StepUpWait = 0 }, "step-up"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "saved.yaml")

	cfg := DefaultConfig()
	cfg.LinkedIn.Email = "user@example.com"
	cfg.LinkedIn.Password = "hunter2"
	cfg.Acquire.MaxEmptyPages = 7
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7, loaded.Acquire.MaxEmptyPages)
	assert.Equal(t, cfg.Selectors, loaded.Selectors)
}
