package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")

	cfg, loaded, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.False(t, loaded)
	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, StorageMongo, cfg.Storage)
	assert.Equal(t, NoticeStoreMongo, cfg.NoticeStore)
	assert.Equal(t, DirectoryMongo, cfg.UserDirectory)
	assert.True(t, cfg.MongoTransactions)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
}

func TestLoad_EnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte(
		"JWT_SECRET=from-file\nSERVER_PORT=9090\nSTORAGE=memory\nUSER_DIRECTORY=memory\n"+
			"MONGO_TRANSACTIONS=false\nCORS_ALLOWED_ORIGINS=http://a.test, http://b.test\n"), 0o600))
	for _, key := range []string{"JWT_SECRET", "SERVER_PORT", "STORAGE", "USER_DIRECTORY", "MONGO_TRANSACTIONS", "CORS_ALLOWED_ORIGINS"} {
		// godotenv never overrides variables that are already set
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	cfg, loaded, err := Load(path)
	require.NoError(t, err)
	assert.True(t, loaded)
	assert.Equal(t, "from-file", cfg.JWTSecret)
	assert.Equal(t, "9090", cfg.ServerPort)
	assert.Equal(t, StorageMemory, cfg.Storage)
	assert.False(t, cfg.MongoTransactions)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSOrigins)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			ServerPort:    "8080",
			Storage:       StorageMongo,
			NoticeStore:   NoticeStoreMongo,
			UserDirectory: DirectoryMongo,
			JWTSecret:     "s",
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"bad port", func(c *Config) { c.ServerPort = "http" }, "SERVER_PORT"},
		{"bad storage", func(c *Config) { c.Storage = "redis" }, "STORAGE"},
		{"bad notice store", func(c *Config) { c.NoticeStore = "redis" }, "NOTICE_STORE"},
		{"missing secret", func(c *Config) { c.JWTSecret = "" }, "JWT_SECRET"},
		{"mongo directory on memory storage", func(c *Config) { c.Storage = StorageMemory }, "USER_DIRECTORY=mongo"},
		{"http directory without url", func(c *Config) { c.UserDirectory = DirectoryHTTP }, "USERS_SERVICE_URL"},
		{"postgres directory without db", func(c *Config) { c.UserDirectory = DirectoryPostgres }, "DB_USER"},
		{"unknown directory", func(c *Config) { c.UserDirectory = "ldap" }, "USER_DIRECTORY must be"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_BadBoolean(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("MONGO_TRANSACTIONS", "maybe")
	_, _, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MONGO_TRANSACTIONS")
}
