// SPDX-License-Identifier: MIT

// Package config loads daemon configuration from an optional YAML file with
// CLIPLINK_* environment overrides.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Backend and transport selector values.
const (
	EngineExec     = "exec"
	EngineEmbedded = "embedded"

	StorageFS = "fs"
	StorageS3 = "s3"

	MetadataMemory = "memory"
	MetadataRedis  = "redis"
	MetadataBadger = "badger"
)

// Config is the resolved daemon configuration.
type Config struct {
	Listen   string `yaml:"listen,omitempty"`
	DataDir  string `yaml:"dataDir,omitempty"`
	LogLevel string `yaml:"logLevel,omitempty"`

	// MaxUploadBytes caps the multipart upload size.
	MaxUploadBytes int64 `yaml:"maxUploadBytes,omitempty"`
	// RateLimitPerMinute caps requests per client IP. Zero disables.
	RateLimitPerMinute int `yaml:"rateLimitPerMinute,omitempty"`

	Engine   EngineConfig   `yaml:"engine,omitempty"`
	Trim     TrimConfig     `yaml:"trim,omitempty"`
	Storage  StorageConfig  `yaml:"storage,omitempty"`
	Metadata MetadataConfig `yaml:"metadata,omitempty"`
}

// EngineConfig selects and parameterises the engine transport.
type EngineConfig struct {
	Transport  string `yaml:"transport,omitempty"` // exec | embedded
	FFmpegBin  string `yaml:"ffmpegBin,omitempty"`
	ScratchDir string `yaml:"scratchDir,omitempty"`
}

// TrimConfig selects the cut policy and output MIME type.
type TrimConfig struct {
	Policy string `yaml:"policy,omitempty"` // copy | reencode
	MIME   string `yaml:"mime,omitempty"`
}

// StorageConfig selects the blob storage backend.
type StorageConfig struct {
	Backend string `yaml:"backend,omitempty"` // fs | s3

	FSRoot    string `yaml:"fsRoot,omitempty"`
	FSBaseURL string `yaml:"fsBaseUrl,omitempty"`

	S3Bucket  string `yaml:"s3Bucket,omitempty"`
	S3BaseURL string `yaml:"s3BaseUrl,omitempty"`
}

// MetadataConfig selects the metadata store backend.
type MetadataConfig struct {
	Backend string `yaml:"backend,omitempty"` // memory | redis | badger

	RedisAddr     string `yaml:"redisAddr,omitempty"`
	RedisPassword string `yaml:"redisPassword,omitempty"`
	RedisDB       int    `yaml:"redisDb,omitempty"`

	BadgerDir string `yaml:"badgerDir,omitempty"`
}

// Load reads the YAML file at path (missing file is fine when path is
// empty), applies environment overrides and defaults, and validates.
func Load(path string) (Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	envString("CLIPLINK_LISTEN", &c.Listen)
	envString("CLIPLINK_DATA_DIR", &c.DataDir)
	envString("CLIPLINK_LOG_LEVEL", &c.LogLevel)
	envInt64("CLIPLINK_MAX_UPLOAD_BYTES", &c.MaxUploadBytes)
	envInt("CLIPLINK_RATE_LIMIT_PER_MINUTE", &c.RateLimitPerMinute)

	envString("CLIPLINK_ENGINE_TRANSPORT", &c.Engine.Transport)
	envString("CLIPLINK_FFMPEG_BIN", &c.Engine.FFmpegBin)
	envString("CLIPLINK_ENGINE_SCRATCH_DIR", &c.Engine.ScratchDir)

	envString("CLIPLINK_TRIM_POLICY", &c.Trim.Policy)

	envString("CLIPLINK_STORAGE_BACKEND", &c.Storage.Backend)
	envString("CLIPLINK_STORAGE_FS_ROOT", &c.Storage.FSRoot)
	envString("CLIPLINK_STORAGE_FS_BASE_URL", &c.Storage.FSBaseURL)
	envString("CLIPLINK_S3_BUCKET", &c.Storage.S3Bucket)
	envString("CLIPLINK_S3_BASE_URL", &c.Storage.S3BaseURL)

	envString("CLIPLINK_METADATA_BACKEND", &c.Metadata.Backend)
	envString("CLIPLINK_REDIS_ADDR", &c.Metadata.RedisAddr)
	envString("CLIPLINK_REDIS_PASSWORD", &c.Metadata.RedisPassword)
	envInt("CLIPLINK_REDIS_DB", &c.Metadata.RedisDB)
	envString("CLIPLINK_BADGER_DIR", &c.Metadata.BadgerDir)
}

func (c *Config) applyDefaults() {
	if c.Listen == "" {
		c.Listen = ":8080"
	}
	if c.DataDir == "" {
		c.DataDir = "./data"
	}
	if c.MaxUploadBytes <= 0 {
		c.MaxUploadBytes = 512 << 20 // 512 MiB captures
	}
	if c.Engine.Transport == "" {
		c.Engine.Transport = EngineExec
	}
	if c.Engine.FFmpegBin == "" {
		c.Engine.FFmpegBin = "ffmpeg"
	}
	if c.Engine.ScratchDir == "" {
		c.Engine.ScratchDir = c.DataDir + "/scratch"
	}
	if c.Trim.Policy == "" {
		c.Trim.Policy = "copy"
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = StorageFS
	}
	if c.Storage.FSRoot == "" {
		c.Storage.FSRoot = c.DataDir + "/objects"
	}
	if c.Storage.FSBaseURL == "" {
		c.Storage.FSBaseURL = "http://localhost:8080/media"
	}
	if c.Metadata.Backend == "" {
		c.Metadata.Backend = MetadataMemory
	}
	if c.Metadata.RedisAddr == "" {
		c.Metadata.RedisAddr = "localhost:6379"
	}
	if c.Metadata.BadgerDir == "" {
		c.Metadata.BadgerDir = c.DataDir + "/meta"
	}
}

// Validate rejects unknown selector values and inconsistent settings.
func (c *Config) Validate() error {
	switch c.Engine.Transport {
	case EngineExec, EngineEmbedded:
	default:
		return fmt.Errorf("unknown engine transport %q", c.Engine.Transport)
	}

	switch c.Trim.Policy {
	case "copy", "reencode":
	default:
		return fmt.Errorf("unknown trim policy %q", c.Trim.Policy)
	}

	switch c.Storage.Backend {
	case StorageFS:
	case StorageS3:
		if c.Storage.S3Bucket == "" {
			return fmt.Errorf("storage backend %q requires s3Bucket", StorageS3)
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}

	switch c.Metadata.Backend {
	case MetadataMemory, MetadataRedis, MetadataBadger:
	default:
		return fmt.Errorf("unknown metadata backend %q", c.Metadata.Backend)
	}

	return nil
}

func envString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envInt64(key string, dst *int64) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}
