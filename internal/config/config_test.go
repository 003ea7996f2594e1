package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noEnv(string) (string, bool) { return "", false }

func envOf(vars map[string]string) func(string) (string, bool) {
	return func(name string) (string, bool) {
		v, ok := vars[name]
		return v, ok
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestApplyDefaults(t *testing.T) {
	config := &Config{}
	applyDefaults(config)

	assert.Equal(t, 5000, config.Server.Port)
	assert.Equal(t, "/api", config.Server.BasePath)
	assert.Equal(t, "http", config.Server.Runtime)
	assert.Empty(t, config.Server.CORSOrigins)
	assert.Equal(t, 10*time.Second, config.Server.ShutdownTimeout())

	assert.Equal(t, "mongo", config.Storage.Driver)
	assert.Equal(t, "localhost", config.Storage.Mongo.Host)
	assert.Equal(t, 27017, config.Storage.Mongo.Port)
	assert.Equal(t, "inkpost", config.Storage.Mongo.Database)
	assert.Equal(t, "us-east-1", config.Storage.DynamoDB.Region)
	assert.Equal(t, "inkpost", config.Storage.DynamoDB.TableName)
	assert.False(t, config.Storage.DynamoDB.SkipTableCreation)

	assert.Equal(t, "none", config.Cache.Driver)
	assert.Equal(t, time.Minute, config.Cache.TTL())
	assert.Equal(t, "localhost:6379", config.Cache.Redis.Addr)

	assert.Equal(t, "passthrough", config.Posts.DraftStatusPolicy)
	assert.Equal(t, "info", config.Logging.Level)
	assert.Equal(t, "console", config.Logging.Format)
}

func TestApplyDefaults_StringSlice(t *testing.T) {
	var target struct {
		Origins []string `default:"http://a.test, http://b.test"`
	}
	applyDefaults(&target)

	assert.Equal(t, []string{"http://a.test", "http://b.test"}, target.Origins)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	config, err := load(filepath.Join(t.TempDir(), "absent.yaml"), noEnv)
	require.NoError(t, err)

	assert.Equal(t, 5000, config.Server.Port)
	assert.Equal(t, "mongo", config.Storage.Driver)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeFile(t, "inkpost.yaml", `
server:
  port: 8081
  cors_origins: ["http://localhost:3000"]
storage:
  driver: dynamodb
  dynamodb:
    endpoint: http://localhost:8000
cache:
  driver: redis
  ttl_seconds: 30
posts:
  draft_status_policy: force-draft
`)

	config, err := load(path, noEnv)
	require.NoError(t, err)

	assert.Equal(t, 8081, config.Server.Port)
	assert.Equal(t, []string{"http://localhost:3000"}, config.Server.CORSOrigins)
	assert.Equal(t, "dynamodb", config.Storage.Driver)
	assert.Equal(t, "http://localhost:8000", config.Storage.DynamoDB.Endpoint)
	// untouched keys keep their defaults
	assert.Equal(t, "inkpost", config.Storage.DynamoDB.TableName)
	assert.Equal(t, "redis", config.Cache.Driver)
	assert.Equal(t, 30*time.Second, config.Cache.TTL())
	assert.Equal(t, "force-draft", config.Posts.DraftStatusPolicy)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeFile(t, "inkpost.yaml", "server:\n  port: 8081\nstorage:\n  driver: memory\n")

	config, err := load(path, envOf(map[string]string{
		"PORT":           "9090",
		"MONGO_URI":      "mongodb://db:27017",
		"DB_NAME":        "blog",
		"STORAGE_DRIVER": "mongo",
		"CACHE_DRIVER":   "redis",
		"REDIS_ADDR":     "cache:6379",
		"LOG_LEVEL":      "debug",
		"LAMBDA_RUNTIME": "true",
	}))
	require.NoError(t, err)

	assert.Equal(t, 9090, config.Server.Port)
	assert.Equal(t, "mongodb://db:27017", config.Storage.Mongo.URI)
	assert.Equal(t, "blog", config.Storage.Mongo.Database)
	assert.Equal(t, "mongo", config.Storage.Driver)
	assert.Equal(t, "redis", config.Cache.Driver)
	assert.Equal(t, "cache:6379", config.Cache.Redis.Addr)
	assert.Equal(t, "debug", config.Logging.Level)
	assert.Equal(t, "lambda", config.Server.Runtime)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		env     map[string]string
	}{
		{name: "malformed yaml", content: "server: [port"},
		{name: "bad PORT", env: map[string]string{"PORT": "five"}},
		{name: "unknown storage driver", content: "storage:\n  driver: postgres\n"},
		{name: "unknown cache driver", env: map[string]string{"CACHE_DRIVER": "memcached"}},
		{name: "unknown policy", content: "posts:\n  draft_status_policy: maybe\n"},
		{name: "port out of range", content: "server:\n  port: 70000\n"},
		{name: "dynamodb cache over mongo storage", content: "cache:\n  driver: dynamodb\n"},
		{name: "mongo cache over dynamodb storage", content: "storage:\n  driver: dynamodb\ncache:\n  driver: mongo\n"},
		{name: "non-positive cache ttl", content: "cache:\n  driver: redis\n  ttl_seconds: 0\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, "inkpost.yaml", tt.content)
			_, err := load(path, envOf(tt.env))
			assert.Error(t, err)
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	path := writeFile(t, ".env", "INKPOST_TEST_DOTENV=from-file\n")
	t.Setenv("INKPOST_TEST_DOTENV", "")
	require.NoError(t, os.Unsetenv("INKPOST_TEST_DOTENV"))

	require.NoError(t, LoadDotEnv(path, filepath.Join(t.TempDir(), "missing.env")))
	assert.Equal(t, "from-file", os.Getenv("INKPOST_TEST_DOTENV"))
}

func TestLoad_CacheSharesStorageConnection(t *testing.T) {
	path := writeFile(t, "inkpost.yaml", "storage:\n  driver: dynamodb\ncache:\n  driver: dynamodb\n")

	config, err := load(path, noEnv)
	require.NoError(t, err)

	assert.Equal(t, "dynamodb", config.Cache.Driver)
	assert.Equal(t, "inkpost", config.Storage.DynamoDB.TableName)
}
