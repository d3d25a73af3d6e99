package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, ":8080", c.EndpointAddr)
	assert.Equal(t, BackendDynamoDB, c.StoreBackend)
	assert.Equal(t, "LangoApp", c.TableName)
	assert.Equal(t, "UsernameIndex", c.UsernameIndexName)
	assert.Equal(t, "us-east-1", c.AWSRegion)
	assert.Equal(t, time.Hour, c.TokenValidityDuration)
	assert.Equal(t, 10*time.Second, c.RequestTimeout)
	assert.Empty(t, c.SecretKey, "there must be no default signing secret")
	assert.False(t, c.AutoMigrate)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		var c Config
		c.LoadDefaults()
		c.SecretKey = "k"
		return c
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid dynamodb", mutate: func(c *Config) {}},
		{name: "valid memory", mutate: func(c *Config) { c.StoreBackend = BackendMemory }},
		{name: "valid postgres", mutate: func(c *Config) { c.StoreBackend = BackendPostgres }},
		{name: "missing secret", mutate: func(c *Config) { c.SecretKey = "" }, wantErr: "signing secret"},
		{name: "unknown backend", mutate: func(c *Config) { c.StoreBackend = "redis" }, wantErr: "unknown store backend"},
		{name: "missing table", mutate: func(c *Config) { c.TableName = "" }, wantErr: "table name"},
		{name: "missing index", mutate: func(c *Config) { c.UsernameIndexName = "" }, wantErr: "username index"},
		{name: "missing dsn", mutate: func(c *Config) {
			c.StoreBackend = BackendPostgres
			c.DatabaseDSN = ""
		}, wantErr: "database DSN"},
		{name: "zero validity", mutate: func(c *Config) { c.TokenValidityDuration = 0 }, wantErr: "token validity"},
		{name: "zero timeout", mutate: func(c *Config) { c.RequestTimeout = 0 }, wantErr: "request timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadConfig_Precedence(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	path := writeTempJSON(t, "", "", map[string]any{
		"table_name": "FromFile",
		"aws_region": "eu-west-1",
		"secret_key": "file-secret",
	})

	t.Setenv("AWS_REGION", "eu-central-1")
	t.Setenv("JWT_SECRET", "env-secret")
	os.Args = []string{"testbin", "-c", path, "-s", "flag-secret"}

	c, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "FromFile", c.TableName, "file overrides default")
	assert.Equal(t, "eu-central-1", c.AWSRegion, "env overrides file")
	assert.Equal(t, "flag-secret", c.SecretKey, "flags override env")
	assert.Equal(t, time.Hour, c.TokenValidityDuration, "untouched default survives")
}

func TestLoadConfig_BadFileIsReported(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	os.Args = []string{"testbin", "-config", "/definitely/not/here.json"}

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config file")
}
