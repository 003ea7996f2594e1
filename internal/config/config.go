package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

var configLogger = zerolog.Nop()

func SetLogger(l zerolog.Logger) {
	configLogger = l
}

// Config represents the complete configuration structure
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Cache   CacheConfig   `yaml:"cache"`
	Posts   PostsConfig   `yaml:"posts"`
	Logging LoggingConfig `yaml:"logging"`
}

type ServerConfig struct {
	Port     int    `yaml:"port" default:"5000"`
	BasePath string `yaml:"base_path" default:"/api"`
	Runtime  string `yaml:"runtime" default:"http"`
	// Empty allows every origin.
	CORSOrigins            []string `yaml:"cors_origins"`
	ShutdownTimeoutSeconds int      `yaml:"shutdown_timeout_seconds" default:"10"`
}

func (c ServerConfig) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutSeconds) * time.Second
}

type StorageConfig struct {
	Driver   string         `yaml:"driver" default:"mongo"`
	Mongo    MongoConfig    `yaml:"mongo"`
	DynamoDB DynamoDBConfig `yaml:"dynamodb"`
}

type MongoConfig struct {
	// URI wins over the host fields when set.
	URI            string `yaml:"uri"`
	Host           string `yaml:"host" default:"localhost"`
	Port           int    `yaml:"port" default:"27017"`
	Username       string `yaml:"username"`
	Password       string `yaml:"password"`
	Database       string `yaml:"database" default:"inkpost"`
	TimeoutSeconds int    `yaml:"timeout_seconds" default:"10"`
}

type DynamoDBConfig struct {
	Region            string `yaml:"region" default:"us-east-1"`
	Endpoint          string `yaml:"endpoint"`
	TableName         string `yaml:"table_name" default:"inkpost"`
	AccessKeyID       string `yaml:"access_key_id"`
	SecretAccessKey   string `yaml:"secret_access_key"`
	SkipTableCreation bool   `yaml:"skip_table_creation" default:"false"`
}

type CacheConfig struct {
	Driver     string      `yaml:"driver" default:"none"`
	TTLSeconds int         `yaml:"ttl_seconds" default:"60"`
	Redis      RedisConfig `yaml:"redis"`
}

func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

type RedisConfig struct {
	Addr     string `yaml:"addr" default:"localhost:6379"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db" default:"0"`
}

type PostsConfig struct {
	DraftStatusPolicy string `yaml:"draft_status_policy" default:"passthrough"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" default:"info"`
	Format string `yaml:"format" default:"console"`
}

// LoadDotEnv loads .env files into the environment without overriding
// variables that are already set. Missing files are not an error.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				configLogger.Debug().Str("path", path).Msg("No .env file")
				continue
			}
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
	}
	return nil
}

// Load builds the configuration from defaults, then the YAML file at path (if
// any), then environment overrides, and validates the result.
func Load(path string) (*Config, error) {
	return load(path, os.LookupEnv)
}

func load(path string, lookupEnv func(string) (string, bool)) (*Config, error) {
	config := &Config{}

	// Apply default values first
	applyDefaults(config)

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			configLogger.Info().Str("path", path).Msg("Config file not found, using defaults")
		case err != nil:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, config); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	if err := applyEnv(config, lookupEnv); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func applyEnv(config *Config, lookupEnv func(string) (string, bool)) error {
	strOverrides := map[string]*string{
		"MONGO_URI":         &config.Storage.Mongo.URI,
		"DB_NAME":           &config.Storage.Mongo.Database,
		"STORAGE_DRIVER":    &config.Storage.Driver,
		"DYNAMODB_ENDPOINT": &config.Storage.DynamoDB.Endpoint,
		"DYNAMODB_TABLE":    &config.Storage.DynamoDB.TableName,
		"AWS_REGION":        &config.Storage.DynamoDB.Region,
		"CACHE_DRIVER":      &config.Cache.Driver,
		"REDIS_ADDR":        &config.Cache.Redis.Addr,
		"LOG_LEVEL":         &config.Logging.Level,
	}
	for name, target := range strOverrides {
		if v, ok := lookupEnv(name); ok && v != "" {
			*target = v
		}
	}

	if v, ok := lookupEnv("PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		config.Server.Port = port
	}
	if v, ok := lookupEnv("LAMBDA_RUNTIME"); ok && v == "true" {
		config.Server.Runtime = "lambda"
	}
	return nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if !oneOf(c.Server.Runtime, "http", "lambda") {
		errs = append(errs, fmt.Errorf("unknown server.runtime %q", c.Server.Runtime))
	}
	if !oneOf(c.Storage.Driver, "mongo", "dynamodb", "memory") {
		errs = append(errs, fmt.Errorf("unknown storage.driver %q", c.Storage.Driver))
	}
	if !oneOf(c.Cache.Driver, "none", "mongo", "redis", "dynamodb") {
		errs = append(errs, fmt.Errorf("unknown cache.driver %q", c.Cache.Driver))
	}
	// the mongo and dynamodb caches share the post store's connection
	if oneOf(c.Cache.Driver, "mongo", "dynamodb") && c.Cache.Driver != c.Storage.Driver {
		errs = append(errs, fmt.Errorf("cache.driver %s needs storage.driver %s", c.Cache.Driver, c.Cache.Driver))
	}
	if !oneOf(c.Posts.DraftStatusPolicy, "passthrough", "force-draft") {
		errs = append(errs, fmt.Errorf("unknown posts.draft_status_policy %q", c.Posts.DraftStatusPolicy))
	}
	if c.Cache.Driver != "none" && c.Cache.TTLSeconds <= 0 {
		errs = append(errs, fmt.Errorf("cache.ttl_seconds must be positive"))
	}
	return errors.Join(errs...)
}

func oneOf(value string, allowed ...string) bool {
	for _, a := range allowed {
		if value == a {
			return true
		}
	}
	return false
}

func applyDefaults(config interface{}) {
	v := reflect.ValueOf(config)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}

	if v.Kind() != reflect.Struct {
		return
	}

	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		if !field.IsValid() || !field.CanSet() {
			continue
		}

		if field.Kind() == reflect.Struct {
			applyDefaults(field.Addr().Interface())
			continue
		}

		defaultValue := fieldType.Tag.Get("default")
		if defaultValue == "" {
			continue
		}

		switch field.Kind() {
		case reflect.String:
			field.SetString(defaultValue)
		case reflect.Bool:
			if val, err := strconv.ParseBool(defaultValue); err == nil {
				field.SetBool(val)
			}
		case reflect.Int:
			if val, err := strconv.ParseInt(defaultValue, 10, 64); err == nil {
				field.SetInt(val)
			}
		case reflect.Slice:
			if field.Len() == 0 && field.Type().Elem().Kind() == reflect.String {
				parts := strings.Split(defaultValue, ",")
				slice := reflect.MakeSlice(field.Type(), len(parts), len(parts))
				for j, part := range parts {
					slice.Index(j).SetString(strings.TrimSpace(part))
				}
				field.Set(slice)
			}
		default:
			configLogger.Warn().
				Str("field_name", fieldType.Name).
				Str("field_type", field.Kind().String()).
				Msg("Unsupported field type for default value")
		}
	}
}
