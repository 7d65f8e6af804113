package config

import (
	"path/filepath"
	"strings"
	"time"
)

// BackendKind names a storage medium.
type BackendKind string

const (
	BackendMemory   BackendKind = "memory"
	BackendFile     BackendKind = "file"
	BackendS3       BackendKind = "s3"
	BackendRedis    BackendKind = "redis"
	BackendPostgres BackendKind = "postgres"
	BackendMySQL    BackendKind = "mysql"
)

// DocumentFormat is the encoding of tree-structured documents (files, S3 objects).
type DocumentFormat string

const (
	FormatYAML DocumentFormat = "yaml"
	FormatJSON DocumentFormat = "json"
)

// BackendCfg selects exactly one storage medium.
// The first non-nil sub-config wins, in the order File, S3, Redis, Postgres, MySQL;
// with none set the in-memory backend is used.
type BackendCfg struct {
	File     *FileCfg     `yaml:"file"`
	S3       *S3Cfg       `yaml:"s3"`
	Redis    *RedisCfg    `yaml:"redis"`
	Postgres *PostgresCfg `yaml:"postgres"`
	MySQL    *MySQLCfg    `yaml:"mysql"`

	// Kind is derived from which sub-config is set. It is not read from YAML.
	Kind BackendKind // virtual: computed during init
}

func (cfg *BackendCfg) Enabled() bool {
	return cfg != nil
}

func (cfg *BackendCfg) AdjustConfig() {
	switch {
	case cfg.File != nil:
		cfg.Kind = BackendFile
		cfg.File.AdjustConfig()
	case cfg.S3 != nil:
		cfg.Kind = BackendS3
		cfg.S3.AdjustConfig()
	case cfg.Redis != nil:
		cfg.Kind = BackendRedis
		cfg.Redis.AdjustConfig()
	case cfg.Postgres != nil:
		cfg.Kind = BackendPostgres
		cfg.Postgres.AdjustConfig()
	case cfg.MySQL != nil:
		cfg.Kind = BackendMySQL
		cfg.MySQL.AdjustConfig()
	default:
		cfg.Kind = BackendMemory
	}
}

// FileCfg configures the tree-structured file backend.
type FileCfg struct {
	// Path is the document location on disk. Parent directories are created on open.
	Path string `yaml:"path"`

	// Format is "yaml" or "json". When empty, it is inferred from the file extension.
	Format DocumentFormat `yaml:"format"`
}

func (cfg *FileCfg) AdjustConfig() {
	if cfg.Format == "" {
		cfg.Format = FormatFromExt(cfg.Path)
	}
}

// FormatFromExt maps ".json" to FormatJSON and anything else to FormatYAML.
func FormatFromExt(name string) DocumentFormat {
	if strings.EqualFold(filepath.Ext(name), ".json") {
		return FormatJSON
	}
	return FormatYAML
}

// S3Cfg configures the S3 document backend: the whole tree is one object.
type S3Cfg struct {
	Bucket    string `yaml:"bucket"`
	Key       string `yaml:"key"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`

	// PathStyle enables path-style URLs (required for MinIO and similar).
	PathStyle bool `yaml:"path_style"`

	// Format of the stored document. Inferred from Key when empty.
	Format DocumentFormat `yaml:"format"`
}

func (cfg *S3Cfg) AdjustConfig() {
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	if cfg.Key == "" {
		cfg.Key = "storage.yaml"
	}
	if cfg.Format == "" {
		cfg.Format = FormatFromExt(cfg.Key)
	}
}

// RedisCfg configures the Redis backend: one key per path.
type RedisCfg struct {
	URL string `yaml:"url"`

	// Prefix namespaces keys as "{prefix}:{path}".
	Prefix string `yaml:"prefix"`

	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	PoolSize     int           `yaml:"pool_size"`
}

func (cfg *RedisCfg) AdjustConfig() {
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 5 * time.Second
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 3 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 3 * time.Second
	}
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = 10
	}
}

// PostgresCfg configures the PostgreSQL backend: one row per path.
type PostgresCfg struct {
	DSN   string `yaml:"dsn"`
	Table string `yaml:"table"`

	// Migrate applies the embedded goose migrations on open.
	Migrate bool `yaml:"migrate"`

	MaxConns int32 `yaml:"max_conns"`
}

func (cfg *PostgresCfg) AdjustConfig() {
	if cfg.Table == "" {
		cfg.Table = "ash_storage"
	}
	if cfg.MaxConns <= 0 {
		cfg.MaxConns = 10
	}
}

// MySQLCfg configures the MySQL backend: one row per path.
type MySQLCfg struct {
	DSN   string `yaml:"dsn"`
	Table string `yaml:"table"`

	MaxOpenConns int `yaml:"max_open_conns"`
}

func (cfg *MySQLCfg) AdjustConfig() {
	if cfg.Table == "" {
		cfg.Table = "ash_storage"
	}
	if cfg.MaxOpenConns <= 0 {
		cfg.MaxOpenConns = 10
	}
}
