package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/rkotari/smartdrive/database"
	smarthttp "github.com/rkotari/smartdrive/http"
)

// configKey is the context key for storing the loaded configuration.
type configKey struct{}

// WithContext returns a new context with the config stored.
func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// FromContext retrieves the config from context.
// Returns an error if config is not found.
func FromContext(ctx context.Context) (*Config, error) {
	cfg, ok := ctx.Value(configKey{}).(*Config)
	if !ok || cfg == nil {
		return nil, errors.New("config not found in context")
	}
	return cfg, nil
}

// Config is the root configuration struct for smartdrive.
type Config struct {
	Server ServerConfig         `mapstructure:"server"`
	Auth   AuthConfig           `mapstructure:"auth"`
	Store  database.Config      `mapstructure:"store"`
	Blob   BlobConfig           `mapstructure:"blob"`
	AWS    AWSConfig            `mapstructure:"aws"`
	CORS   smarthttp.CORSConfig `mapstructure:"cors"`
	Log    LogConfig            `mapstructure:"log"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port          int    `mapstructure:"port" validate:"required,min=1,max=65535"`
	BaseURL       string `mapstructure:"base_url"`
	MaxUploadSize int64  `mapstructure:"max_upload_size" validate:"min=0"`
}

// AuthConfig holds token issuance configuration. The secret signs both
// identity tokens and filesystem download URLs.
type AuthConfig struct {
	Secret          string `mapstructure:"secret" validate:"required,min=16"`
	TokenTTLSeconds int    `mapstructure:"token_ttl_seconds" validate:"min=1"`
	URLTTLSeconds   int    `mapstructure:"url_ttl_seconds" validate:"min=1"`
}

// BlobConfig holds object storage configuration.
type BlobConfig struct {
	Type   string `mapstructure:"type" validate:"required,oneof=filesystem s3 memory"`
	Path   string `mapstructure:"path"`
	Bucket string `mapstructure:"bucket"`
}

// AWSConfig holds shared settings for the S3 and DynamoDB clients.
// Endpoint overrides the AWS endpoint for MinIO or DynamoDB Local.
type AWSConfig struct {
	Region    string `mapstructure:"region"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
}

// flagToViperKey maps CLI flag names to viper configuration keys.
var flagToViperKey = map[string]string{
	"port":         "server.port",
	"store-type":   "store.type",
	"store-dsn":    "store.dsn",
	"blob-type":    "blob.type",
	"storage-path": "blob.path",
	"secret":       "auth.secret",
}

// bindFlags binds CLI flags to viper keys with custom name mapping.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) {
	flags.VisitAll(func(f *pflag.Flag) {
		viperKey := f.Name
		if mapped, ok := flagToViperKey[viperKey]; ok {
			viperKey = mapped
		}

		// Only bind if the flag was explicitly set
		if f.Changed {
			_ = v.BindPFlag(viperKey, f)
		}
	})
}

// setDefaults configures default values on the viper instance.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 5000)
	v.SetDefault("server.base_url", "http://localhost:5000")
	v.SetDefault("server.max_upload_size", 0) // 0 means no limit

	v.SetDefault("auth.token_ttl_seconds", 7200)
	v.SetDefault("auth.url_ttl_seconds", 3600)

	v.SetDefault("store.type", "sqlite")
	v.SetDefault("store.dsn", "smartdrive.db")
	v.SetDefault("store.tables.accounts", "users")
	v.SetDefault("store.tables.files", "files")

	v.SetDefault("blob.type", "filesystem")
	v.SetDefault("blob.path", "./data")

	v.SetDefault("aws.region", "us-east-1")

	v.SetDefault("cors.enabled", true)
	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "DELETE", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{"Authorization", "Content-Type"})

	v.SetDefault("log.level", "info")
}

// Load reads configuration and returns a validated Config struct.
// Order of precedence (highest to lowest): flags > env > config files > defaults
//
// Parameters:
//   - configFiles: list of config file paths (later files override earlier ones)
//   - flags: cobra flag set for flag binding (can be nil)
func Load(configFiles []string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	// 1. Set defaults
	setDefaults(v)

	// 2. Read config files
	if len(configFiles) > 0 {
		v.SetConfigFile(configFiles[0])
		if err := v.ReadInConfig(); err != nil {
			slog.Warn("error reading config file", "file", configFiles[0], "err", err)
		}

		for _, cf := range configFiles[1:] {
			v.SetConfigFile(cf)
			if err := v.MergeInConfig(); err != nil {
				slog.Warn("error merging config file", "file", cf, "err", err)
			}
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")

		if err := v.ReadInConfig(); err != nil {
			var configNotFound viper.ConfigFileNotFoundError
			if !errors.As(err, &configNotFound) {
				slog.Warn("error reading config file", "err", err)
			}
		}
	}

	// 3. Bind environment variables
	v.SetEnvPrefix("SMARTDRIVE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 4. Bind flags (if provided)
	if flags != nil {
		bindFlags(v, flags)
	}

	// 5. Unmarshal into Config struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// 6. Validate using go-playground/validator
	validate := validator.New()
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	if err := cfg.Store.Tables.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}
