// Package config loads ramstk settings from an optional YAML file and
// RAMSTK_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/spf13/viper"

	"ramstk/internal/blob"
	"ramstk/internal/core"
)

// EnvPrefix prefixes every environment override, e.g. RAMSTK_STORAGE_DRIVER.
const EnvPrefix = "RAMSTK"

// Settings is the decoded configuration.
type Settings struct {
	Storage  StorageSettings  `mapstructure:"storage"`
	Blob     BlobSettings     `mapstructure:"blob"`
	Log      LogSettings      `mapstructure:"log"`
	Metrics  MetricsSettings  `mapstructure:"metrics"`
	Analysis AnalysisSettings `mapstructure:"analysis"`
}

// StorageSettings selects the record persistence driver.
type StorageSettings struct {
	Driver      string `mapstructure:"driver"`
	SQLitePath  string `mapstructure:"sqlite_path"`
	PostgresDSN string `mapstructure:"postgres_dsn"`
}

// BlobSettings selects the worksheet archive backend.
type BlobSettings struct {
	Driver string     `mapstructure:"driver"`
	FSRoot string     `mapstructure:"fs_root"`
	S3     S3Settings `mapstructure:"s3"`
}

// S3Settings locates the archive bucket.
type S3Settings struct {
	Bucket          string `mapstructure:"bucket"`
	Region          string `mapstructure:"region"`
	Endpoint        string `mapstructure:"endpoint"`
	PathStyle       bool   `mapstructure:"path_style"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
}

// LogSettings configures the slog handler.
type LogSettings struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// MetricsSettings configures the Prometheus recorder.
type MetricsSettings struct {
	Namespace string `mapstructure:"namespace"`
}

// AnalysisSettings holds calculation defaults.
type AnalysisSettings struct {
	RPNMethod string `mapstructure:"rpn_method"`
}

// defaults lists every setting so environment overrides bind even when the
// file omits them.
var defaults = map[string]any{
	"storage.driver":            string(core.StorageSQLite),
	"storage.sqlite_path":       "ramstk.db",
	"storage.postgres_dsn":      "",
	"blob.driver":               string(blob.DriverFilesystem),
	"blob.fs_root":              "./worksheets-data",
	"blob.s3.bucket":            "",
	"blob.s3.region":            "us-east-1",
	"blob.s3.endpoint":          "",
	"blob.s3.path_style":        false,
	"blob.s3.access_key_id":     "",
	"blob.s3.secret_access_key": "",
	"log.level":                 "info",
	"log.format":                "text",
	"metrics.namespace":         "ramstk",
	"analysis.rpn_method":       "mechanism",
}

// Load reads path when non-empty, applies RAMSTK_* overrides and decodes the
// result. A missing file is an error; an empty path uses defaults and the
// environment only.
func Load(path string) (Settings, error) {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return Settings{}, fmt.Errorf("config file %s not found", path)
			}
			return Settings{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("decode config: %w", err)
	}
	return s, nil
}

// StorageConfig converts the storage section for core.OpenPersistentStore.
func (s Settings) StorageConfig() core.StorageConfig {
	return core.StorageConfig{
		Driver:      core.StorageDriver(strings.ToLower(s.Storage.Driver)),
		SQLitePath:  s.Storage.SQLitePath,
		PostgresDSN: s.Storage.PostgresDSN,
	}
}

// BlobConfig converts the blob section for blob.Open.
func (s Settings) BlobConfig() blob.Config {
	return blob.Config{
		Driver: blob.Driver(s.Blob.Driver),
		FSRoot: s.Blob.FSRoot,
		S3: blob.S3Config{
			Bucket:          s.Blob.S3.Bucket,
			Region:          s.Blob.S3.Region,
			Endpoint:        s.Blob.S3.Endpoint,
			PathStyle:       s.Blob.S3.PathStyle,
			AccessKeyID:     s.Blob.S3.AccessKeyID,
			SecretAccessKey: s.Blob.S3.SecretAccessKey,
		},
	}
}
