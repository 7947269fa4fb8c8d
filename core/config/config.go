package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"strings"

	"syncstore/core/database"
	"syncstore/core/logger"
	"syncstore/core/provider"
	"syncstore/core/server"
	"syncstore/core/storage"
	"syncstore/feature/furniture"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/multierr"
)

// ErrInvalid wraps every validation failure reported by LoadConfig.
var ErrInvalid = errors.New("invalid configuration")

// Config is the root configuration. Each section is owned by the package it configures
// and maps to an environment prefix (SERVER_, STORAGE_, LOG_, DATABASE_, SYNC_, FURNITURE_).
type Config struct {
	Server    server.Config     `mapstructure:"server"`
	Storage   storage.Config    `mapstructure:"storage"`
	Log       logger.Config     `mapstructure:"log"`
	Database  database.Config   `mapstructure:"database"`
	Sync      provider.Settings `mapstructure:"sync"`
	Furniture furniture.Config  `mapstructure:"furniture"`
}

// LoadConfig reads dir/.env when present, overlays the process environment on the tag
// defaults and validates the result.
func LoadConfig(dir string) (*Config, error) {
	// A missing .env is normal outside development.
	_ = godotenv.Overload(filepath.Join(dir, ".env"))

	v := viper.New()
	registerDefaults(v, reflect.TypeOf(Config{}), "")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports every setting that would make a component fail later on.
func (c *Config) Validate() error {
	var err error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			err = multierr.Append(err, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
		}
	}

	check(c.Database.Driver == database.DriverMySQL || c.Database.Driver == database.DriverSQLite,
		"database.driver %q is not one of mysql, sqlite", c.Database.Driver)
	check(c.Sync.PoolSize >= 0, "sync.pool_size must not be negative")
	check(c.Sync.RefreshInterval >= 0, "sync.refresh_interval must not be negative")
	if _, terr := c.Sync.TriggerSet(); terr != nil {
		check(false, "sync.triggers: %v", terr)
	}
	check(c.Storage.Bucket != "", "storage.bucket is required")
	if c.Furniture.Enabled {
		check(c.Furniture.Object != "", "furniture.object is required")
		check(c.Furniture.Domain != "", "furniture.domain is required")
		check(c.Furniture.ListLimit >= 0, "furniture.list_limit must not be negative")
	}
	return err
}

// registerDefaults walks the section structs and registers every leaf key with its
// `default` tag. Registration is what makes AutomaticEnv consider the key at all.
func registerDefaults(v *viper.Viper, t reflect.Type, prefix string) {
	for _, field := range reflect.VisibleFields(t) {
		name := field.Tag.Get("mapstructure")
		if name == "" || !field.IsExported() {
			continue
		}
		if prefix != "" {
			name = prefix + "." + name
		}
		if field.Type.Kind() == reflect.Struct && field.Type.PkgPath() != "time" {
			registerDefaults(v, field.Type, name)
			continue
		}
		v.SetDefault(name, field.Tag.Get("default"))
	}
}
