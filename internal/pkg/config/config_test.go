package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DB_USER", "checkout")
	t.Setenv("DB_PASSWORD", "secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "tsetsecheckout", cfg.Database.Database)
	assert.Equal(t, 6379, cfg.Cache.Port)
	assert.Equal(t, 10, cfg.Queue.Concurrency)
	assert.Equal(t, "tsetse.sample.db@gmail.com", cfg.SMTP.Sender)
	assert.Equal(t, int64(50), cfg.Upload.MaxFileSizeMB)

	assert.True(t, cfg.IsDevelopment())
	assert.False(t, cfg.IsProduction())
}

func TestLoad_RequiredCredentials(t *testing.T) {
	t.Setenv("DB_USER", "")
	t.Setenv("DB_PASSWORD", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_USER")
}

func TestGetDatabaseURL(t *testing.T) {
	t.Setenv("DB_USER", "checkout")
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("DB_HOST", "db.internal")

	cfg, err := Load()
	require.NoError(t, err)

	url := cfg.GetDatabaseURL()
	assert.Contains(t, url, "host=db.internal")
	assert.Contains(t, url, "user=checkout")
	assert.Contains(t, url, "dbname=tsetsecheckout")
}
