// Package config loads service configuration from the environment and
// assembles the content service and its collaborators from it.
package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/linkvault/linkvault/pkg/linkvault"
	memoryrepo "github.com/linkvault/linkvault/pkg/linkvault/repo/memory"
	postgresrepo "github.com/linkvault/linkvault/pkg/linkvault/repo/postgres"
	fsstorage "github.com/linkvault/linkvault/pkg/linkvault/storage/fs"
	s3storage "github.com/linkvault/linkvault/pkg/linkvault/storage/s3"
	"github.com/linkvault/linkvault/pkg/linkvault/sweep"
)

// Config is the full server configuration, populated from environment
// variables.
type Config struct {
	Server  ServerConfig
	DB      DBConfig
	Storage StorageConfig
	S3      S3Config
	Sweep   SweepConfig
	Auth    AuthConfig
}

type ServerConfig struct {
	Port        string `env:"PORT" env-default:"8080"`
	Environment string `env:"ENVIRONMENT" env-default:"development"`
	BaseURL     string `env:"BASE_URL" env-default:"http://localhost:8080"`
}

type DBConfig struct {
	// Type selects the repository: "memory" or "postgres".
	Type     string `env:"VAULT_DB_TYPE" env-default:"memory"`
	Host     string `env:"VAULT_PG_HOST" env-default:"localhost"`
	Port     uint16 `env:"VAULT_PG_PORT" env-default:"5432"`
	Name     string `env:"VAULT_PG_NAME" env-default:"linkvault_db"`
	User     string `env:"VAULT_PG_USER" env-default:"linkvault"`
	Password string `env:"VAULT_PG_PASSWORD" env-default:"pwd"`
}

type StorageConfig struct {
	BaseDir string `env:"VAULT_STORAGE_DIR" env-default:"./data/uploads"`

	// DefaultTTLMinutes applies when a create request names no expiry.
	DefaultTTLMinutes int `env:"VAULT_DEFAULT_TTL_MINUTES" env-default:"10"`

	// MaxTTLMinutes caps requested expiries; 0 means uncapped.
	MaxTTLMinutes int `env:"VAULT_MAX_TTL_MINUTES" env-default:"0"`
}

type S3Config struct {
	Enabled         bool   `env:"AWS_S3_ENABLED" env-default:"false"`
	Endpoint        string `env:"AWS_S3_ENDPOINT" env-default:""`
	Region          string `env:"AWS_REGION" env-default:"us-east-1"`
	Bucket          string `env:"AWS_S3_BUCKET" env-default:""`
	AccessKeyID     string `env:"AWS_ACCESS_KEY_ID" env-default:""`
	SecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" env-default:""`
	UsePathStyle    bool   `env:"AWS_S3_USE_PATH_STYLE" env-default:"false"`
	CreateBucket    bool   `env:"AWS_S3_CREATE_BUCKET" env-default:"false"`
}

type SweepConfig struct {
	Enabled         bool `env:"VAULT_SWEEP_ENABLED" env-default:"true"`
	IntervalMinutes int  `env:"VAULT_SWEEP_INTERVAL_MINUTES" env-default:"5"`
}

type AuthConfig struct {
	// JWTSecret enables owner identification from bearer tokens when set.
	JWTSecret string `env:"VAULT_JWT_SECRET" env-default:""`
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks configuration consistency.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return errors.New("port is required")
	}
	if c.DB.Type != "memory" && c.DB.Type != "postgres" {
		return errors.New("db type must be 'memory' or 'postgres'")
	}
	if c.Storage.BaseDir == "" {
		return errors.New("storage base directory is required")
	}
	if c.S3.Enabled && c.S3.Bucket == "" {
		return errors.New("s3 bucket is required when s3 is enabled")
	}
	return nil
}

// DatabaseURL assembles the postgres connection string.
func (c *DBConfig) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s",
		url.QueryEscape(c.User), url.QueryEscape(c.Password), c.Host, c.Port, c.Name)
}

// BuildRepository creates a Repository based on the configuration.
func (c *Config) BuildRepository(ctx context.Context) (linkvault.Repository, error) {
	switch c.DB.Type {
	case "memory":
		return memoryrepo.New(), nil
	case "postgres":
		pool, err := pgxpool.New(ctx, c.DB.DatabaseURL())
		if err != nil {
			return nil, fmt.Errorf("failed to create pgx pool: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("database ping failed: %w", err)
		}
		return postgresrepo.NewWithPool(pool), nil
	default:
		return nil, fmt.Errorf("unsupported db type: %s", c.DB.Type)
	}
}

// BuildService assembles the content service: repository, local filesystem
// backend, and the optional S3 backend for remote-first uploads.
func (c *Config) BuildService(ctx context.Context, logger *slog.Logger) (linkvault.Service, linkvault.Repository, error) {
	repo, err := c.BuildRepository(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build repository: %w", err)
	}

	localStore, err := fsstorage.New(fsstorage.Config{
		BaseDir:   c.Storage.BaseDir,
		URLPrefix: c.Server.BaseURL + "/api/files",
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build filesystem backend: %w", err)
	}

	options := []linkvault.Option{
		linkvault.WithRepository(repo),
		linkvault.WithBlobStore("fs", localStore),
		linkvault.WithLocalBackend("fs"),
		linkvault.WithLogger(logger),
	}

	defaultTTL := time.Duration(c.Storage.DefaultTTLMinutes) * time.Minute
	maxTTL := time.Duration(c.Storage.MaxTTLMinutes) * time.Minute
	options = append(options, linkvault.WithTTLBounds(defaultTTL, maxTTL))

	if c.S3.Enabled {
		remoteStore, err := s3storage.New(s3storage.Config{
			Region:                 c.S3.Region,
			Bucket:                 c.S3.Bucket,
			AccessKeyID:            c.S3.AccessKeyID,
			SecretAccessKey:        c.S3.SecretAccessKey,
			Endpoint:               c.S3.Endpoint,
			UsePathStyle:           c.S3.UsePathStyle,
			CreateBucketIfNotExist: c.S3.CreateBucket,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to build s3 backend: %w", err)
		}
		options = append(options,
			linkvault.WithBlobStore("s3", remoteStore),
			linkvault.WithRemoteBackend("s3"))
	}

	svc, err := linkvault.New(options...)
	if err != nil {
		return nil, nil, err
	}
	return svc, repo, nil
}

// BuildSweeper creates the expiry sweeper for the given service and repository.
func (c *Config) BuildSweeper(svc linkvault.Service, repo linkvault.Repository, logger *slog.Logger) *sweep.Sweeper {
	return sweep.New(svc, repo, sweep.Config{
		Enabled:  c.Sweep.Enabled,
		Interval: time.Duration(c.Sweep.IntervalMinutes) * time.Minute,
	}, sweep.WithLogger(logger))
}
