package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func validConfig() *Config {
	return &Config{
		Port:          "8290",
		DBPassword:    "password",
		DBSSLMode:     "disable",
		SessionSecret: "change-me-before-deploying-quill",
		UploadDir:     "static/images",
		Env:           "development",
	}
}

func TestValidateDevelopmentDefaults(t *testing.T) {
	cfg := validConfig()
	assert.NoError(t, cfg.Validate())
}

func TestValidateRequiredFields(t *testing.T) {
	cfg := validConfig()
	cfg.Port = ""
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.SessionSecret = ""
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.UploadDir = ""
	assert.Error(t, cfg.Validate())
}

func TestValidateProductionStrictness(t *testing.T) {
	// The shipped default secret is rejected in production.
	cfg := validConfig()
	cfg.Env = "production"
	cfg.DBPassword = "a-real-password"
	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "SESSION_SECRET")

	// Short secrets are rejected too.
	cfg.SessionSecret = "short"
	err = cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "32 characters")

	// The default DB password is rejected.
	cfg.SessionSecret = strings.Repeat("s", 32)
	cfg.DBPassword = "password"
	err = cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "DB_PASSWORD")

	// A hardened config passes.
	cfg.DBPassword = "a-real-password"
	assert.NoError(t, cfg.Validate())
}
