package config

import (
	"regexp"
	"time"

	"github.com/ajitpratap0/partsync/pkg/errors"
)

// Store names accepted in checkpoint.store.
const (
	StoreMemory    = "memory"
	StoreFile      = "file"
	StoreBolt      = "bolt"
	StorePostgres  = "postgres"
	StoreMySQL     = "mysql"
	StoreSnowflake = "snowflake"
	StoreMongoDB   = "mongodb"
	StoreS3        = "s3"
	StoreGCS       = "gcs"
	StoreKafka     = "kafka"
	StoreNATS      = "nats"
)

var streamNamePattern = regexp.MustCompile(`^[A-Za-z0-9_-][A-Za-z0-9_.-]*$`)

// Config is the single configuration structure of a partsync deployment.
// Every section carries both yaml and mapstructure tags so it can be loaded
// through viper and written back with yaml.v3.
type Config struct {
	// Name identifies the sync job in logs and traces
	Name string `yaml:"name" mapstructure:"name" json:"name"`
	// Stream is the default stream the CLI operates on
	Stream string `yaml:"stream" mapstructure:"stream" json:"stream"`

	Checkpoint    CheckpointConfig    `yaml:"checkpoint" mapstructure:"checkpoint" json:"checkpoint"`
	Compression   CompressionConfig   `yaml:"compression" mapstructure:"compression" json:"compression"`
	Observability ObservabilityConfig `yaml:"observability" mapstructure:"observability" json:"observability"`
	Logging       LoggingConfig       `yaml:"logging" mapstructure:"logging" json:"logging"`
}

// CheckpointConfig selects and configures the checkpoint store. Only the
// section matching Store is read.
type CheckpointConfig struct {
	// Store is the registered store name (memory, file, bolt, postgres, ...)
	Store string `yaml:"store" mapstructure:"store" json:"store"`
	// Timeout bounds a single store operation
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout" json:"timeout"`
	// Retry guards remote stores against transient failures
	Retry RetryConfig `yaml:"retry" mapstructure:"retry" json:"retry"`

	File      FileStoreConfig  `yaml:"file" mapstructure:"file" json:"file"`
	Bolt      BoltStoreConfig  `yaml:"bolt" mapstructure:"bolt" json:"bolt"`
	Postgres  SQLStoreConfig   `yaml:"postgres" mapstructure:"postgres" json:"postgres"`
	MySQL     SQLStoreConfig   `yaml:"mysql" mapstructure:"mysql" json:"mysql"`
	Snowflake SQLStoreConfig   `yaml:"snowflake" mapstructure:"snowflake" json:"snowflake"`
	MongoDB   MongoStoreConfig `yaml:"mongodb" mapstructure:"mongodb" json:"mongodb"`
	S3        S3StoreConfig    `yaml:"s3" mapstructure:"s3" json:"s3"`
	GCS       GCSStoreConfig   `yaml:"gcs" mapstructure:"gcs" json:"gcs"`
	Kafka     KafkaStoreConfig `yaml:"kafka" mapstructure:"kafka" json:"kafka"`
	NATS      NATSStoreConfig  `yaml:"nats" mapstructure:"nats" json:"nats"`
}

// RetryConfig controls retries and the circuit breaker wrapped around remote
// stores. MaxAttempts of 1 or less disables the wrapper.
type RetryConfig struct {
	MaxAttempts    int           `yaml:"max_attempts" mapstructure:"max_attempts" json:"max_attempts"`
	InitialBackoff time.Duration `yaml:"initial_backoff" mapstructure:"initial_backoff" json:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff" mapstructure:"max_backoff" json:"max_backoff"`
	// FailureThreshold consecutive failed operations open the breaker
	FailureThreshold int `yaml:"failure_threshold" mapstructure:"failure_threshold" json:"failure_threshold"`
	// ResetTimeout is how long the breaker stays open before a probe
	ResetTimeout time.Duration `yaml:"reset_timeout" mapstructure:"reset_timeout" json:"reset_timeout"`
}

// Enabled reports whether remote stores should be wrapped.
func (r RetryConfig) Enabled() bool {
	return r.MaxAttempts > 1
}

// FileStoreConfig keeps one file per stream under Dir.
type FileStoreConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir" json:"dir"`
}

// BoltStoreConfig keeps checkpoints in a bbolt database.
type BoltStoreConfig struct {
	Path   string `yaml:"path" mapstructure:"path" json:"path"`
	Bucket string `yaml:"bucket" mapstructure:"bucket" json:"bucket"`
	// LockTimeout bounds waiting for the database file lock
	LockTimeout time.Duration `yaml:"lock_timeout" mapstructure:"lock_timeout" json:"lock_timeout"`
}

// SQLStoreConfig is shared by the postgres, mysql and snowflake stores.
type SQLStoreConfig struct {
	DSN          string `yaml:"dsn" mapstructure:"dsn" json:"dsn"`
	Table        string `yaml:"table" mapstructure:"table" json:"table"`
	MaxOpenConns int    `yaml:"max_open_conns" mapstructure:"max_open_conns" json:"max_open_conns"`
	// CreateTable creates the checkpoint table on open when missing
	CreateTable bool `yaml:"create_table" mapstructure:"create_table" json:"create_table"`
}

// MongoStoreConfig keeps one document per stream.
type MongoStoreConfig struct {
	URI        string `yaml:"uri" mapstructure:"uri" json:"uri"`
	Database   string `yaml:"database" mapstructure:"database" json:"database"`
	Collection string `yaml:"collection" mapstructure:"collection" json:"collection"`
}

// S3StoreConfig keeps one object per stream under Prefix.
type S3StoreConfig struct {
	Bucket       string `yaml:"bucket" mapstructure:"bucket" json:"bucket"`
	Prefix       string `yaml:"prefix" mapstructure:"prefix" json:"prefix"`
	Region       string `yaml:"region" mapstructure:"region" json:"region"`
	Endpoint     string `yaml:"endpoint" mapstructure:"endpoint" json:"endpoint"`
	UsePathStyle bool   `yaml:"use_path_style" mapstructure:"use_path_style" json:"use_path_style"`
}

// GCSStoreConfig keeps one object per stream under Prefix.
type GCSStoreConfig struct {
	Bucket          string `yaml:"bucket" mapstructure:"bucket" json:"bucket"`
	Prefix          string `yaml:"prefix" mapstructure:"prefix" json:"prefix"`
	CredentialsFile string `yaml:"credentials_file" mapstructure:"credentials_file" json:"credentials_file"`
}

// KafkaStoreConfig keeps checkpoints in a compacted topic keyed by stream.
type KafkaStoreConfig struct {
	Brokers  []string `yaml:"brokers" mapstructure:"brokers" json:"brokers"`
	Topic    string   `yaml:"topic" mapstructure:"topic" json:"topic"`
	ClientID string   `yaml:"client_id" mapstructure:"client_id" json:"client_id"`
	// ReadTimeout bounds replaying the topic on Load and List
	ReadTimeout time.Duration `yaml:"read_timeout" mapstructure:"read_timeout" json:"read_timeout"`
}

// NATSStoreConfig keeps checkpoints in a JetStream key-value bucket.
type NATSStoreConfig struct {
	URL      string `yaml:"url" mapstructure:"url" json:"url"`
	Bucket   string `yaml:"bucket" mapstructure:"bucket" json:"bucket"`
	Replicas int    `yaml:"replicas" mapstructure:"replicas" json:"replicas"`
	// History is the number of revisions kept per stream
	History int `yaml:"history" mapstructure:"history" json:"history"`
}

// CompressionConfig selects the checkpoint blob compression.
type CompressionConfig struct {
	// Algorithm is none, gzip, snappy, s2, lz4, zstd or deflate
	Algorithm string `yaml:"algorithm" mapstructure:"algorithm" json:"algorithm"`
	// Level is fastest, default, better or best
	Level string `yaml:"level" mapstructure:"level" json:"level"`
}

// ObservabilityConfig contains tracing and metrics switches.
type ObservabilityConfig struct {
	EnableMetrics     bool    `yaml:"enable_metrics" mapstructure:"enable_metrics" json:"enable_metrics"`
	EnableTracing     bool    `yaml:"enable_tracing" mapstructure:"enable_tracing" json:"enable_tracing"`
	TracingSampleRate float64 `yaml:"tracing_sample_rate" mapstructure:"tracing_sample_rate" json:"tracing_sample_rate"`
	ServiceName       string  `yaml:"service_name" mapstructure:"service_name" json:"service_name"`
}

// LoggingConfig mirrors logger.Config.
type LoggingConfig struct {
	Level       string   `yaml:"level" mapstructure:"level" json:"level"`
	Encoding    string   `yaml:"encoding" mapstructure:"encoding" json:"encoding"`
	Development bool     `yaml:"development" mapstructure:"development" json:"development"`
	OutputPaths []string `yaml:"output_paths" mapstructure:"output_paths" json:"output_paths"`
}

// NewDefault returns a configuration with production defaults: a file store
// under ./checkpoints, zstd compression and JSON logging at info.
//
//	cfg := config.NewDefault()
//	cfg.Checkpoint.Store = config.StoreBolt
//	cfg.Checkpoint.Bolt.Path = "/var/lib/partsync/state.db"
func NewDefault() *Config {
	return &Config{
		Name: "partsync",
		Checkpoint: CheckpointConfig{
			Store:   StoreFile,
			Timeout: 30 * time.Second,
			Retry: RetryConfig{
				MaxAttempts:      3,
				InitialBackoff:   200 * time.Millisecond,
				MaxBackoff:       5 * time.Second,
				FailureThreshold: 5,
				ResetTimeout:     30 * time.Second,
			},
			File: FileStoreConfig{Dir: "checkpoints"},
			Bolt: BoltStoreConfig{
				Path:        "partsync.db",
				Bucket:      "checkpoints",
				LockTimeout: 5 * time.Second,
			},
			Postgres:  SQLStoreConfig{Table: "partsync_checkpoints", MaxOpenConns: 4, CreateTable: true},
			MySQL:     SQLStoreConfig{Table: "partsync_checkpoints", MaxOpenConns: 4, CreateTable: true},
			Snowflake: SQLStoreConfig{Table: "PARTSYNC_CHECKPOINTS", MaxOpenConns: 2, CreateTable: true},
			MongoDB:   MongoStoreConfig{Database: "partsync", Collection: "checkpoints"},
			S3:        S3StoreConfig{Prefix: "checkpoints/"},
			GCS:       GCSStoreConfig{Prefix: "checkpoints/"},
			Kafka: KafkaStoreConfig{
				Topic:       "partsync-checkpoints",
				ClientID:    "partsync",
				ReadTimeout: 10 * time.Second,
			},
			NATS: NATSStoreConfig{Bucket: "partsync-checkpoints", Replicas: 1, History: 1},
		},
		Compression: CompressionConfig{
			Algorithm: "zstd",
			Level:     "default",
		},
		Observability: ObservabilityConfig{
			EnableMetrics:     true,
			EnableTracing:     false,
			TracingSampleRate: 0.1,
			ServiceName:       "partsync",
		},
		Logging: LoggingConfig{
			Level:    "info",
			Encoding: "json",
		},
	}
}

// Validate checks required fields and the section of the selected store.
func (c *Config) Validate() error {
	if c.Name == "" {
		return errors.New(errors.ErrorTypeConfig, "name is required")
	}
	if c.Stream != "" && !ValidStreamName(c.Stream) {
		return errors.Newf(errors.ErrorTypeConfig, "invalid stream name %q", c.Stream)
	}
	if err := c.Checkpoint.Validate(); err != nil {
		return err
	}
	switch c.Compression.Algorithm {
	case "", "none", "gzip", "snappy", "s2", "lz4", "zstd", "deflate":
	default:
		return errors.Newf(errors.ErrorTypeConfig, "unsupported compression algorithm %q", c.Compression.Algorithm)
	}
	switch c.Compression.Level {
	case "", "fastest", "default", "better", "best":
	default:
		return errors.Newf(errors.ErrorTypeConfig, "unsupported compression level %q", c.Compression.Level)
	}
	if r := c.Observability.TracingSampleRate; r < 0 || r > 1 {
		return errors.New(errors.ErrorTypeConfig, "tracing_sample_rate must be within [0, 1]")
	}
	return nil
}

// Validate checks the settings of the selected store.
func (c *CheckpointConfig) Validate() error {
	if c.Timeout < 0 {
		return errors.New(errors.ErrorTypeConfig, "checkpoint.timeout cannot be negative")
	}
	if r := c.Retry; r.MaxAttempts < 0 || r.InitialBackoff < 0 || r.MaxBackoff < 0 ||
		r.FailureThreshold < 0 || r.ResetTimeout < 0 {
		return errors.New(errors.ErrorTypeConfig, "checkpoint.retry settings cannot be negative")
	}

	require := func(field, value string) error {
		if value == "" {
			return errors.Newf(errors.ErrorTypeConfig, "checkpoint.%s.%s is required", c.Store, field)
		}
		return nil
	}

	switch c.Store {
	case "":
		return errors.New(errors.ErrorTypeConfig, "checkpoint.store is required")
	case StoreMemory:
		return nil
	case StoreFile:
		return require("dir", c.File.Dir)
	case StoreBolt:
		if err := require("path", c.Bolt.Path); err != nil {
			return err
		}
		return require("bucket", c.Bolt.Bucket)
	case StorePostgres, StoreMySQL, StoreSnowflake:
		sql := c.SQL()
		if err := require("dsn", sql.DSN); err != nil {
			return err
		}
		return require("table", sql.Table)
	case StoreMongoDB:
		if err := require("uri", c.MongoDB.URI); err != nil {
			return err
		}
		return require("collection", c.MongoDB.Collection)
	case StoreS3:
		return require("bucket", c.S3.Bucket)
	case StoreGCS:
		return require("bucket", c.GCS.Bucket)
	case StoreKafka:
		if len(c.Kafka.Brokers) == 0 {
			return errors.New(errors.ErrorTypeConfig, "checkpoint.kafka.brokers is required")
		}
		return require("topic", c.Kafka.Topic)
	case StoreNATS:
		if err := require("url", c.NATS.URL); err != nil {
			return err
		}
		return require("bucket", c.NATS.Bucket)
	default:
		// stores registered by other packages validate themselves
		return nil
	}
}

// SQL returns the section of the selected SQL store.
func (c *CheckpointConfig) SQL() SQLStoreConfig {
	switch c.Store {
	case StoreMySQL:
		return c.MySQL
	case StoreSnowflake:
		return c.Snowflake
	default:
		return c.Postgres
	}
}

// IsCompressionEnabled returns true if checkpoint blobs should be compressed
func (c *CompressionConfig) IsCompressionEnabled() bool {
	return c.Algorithm != "" && c.Algorithm != "none"
}

// ValidStreamName reports whether name can be used as a checkpoint key in
// every store: letters, digits, '_', '.' and '-', not starting with '.'.
// The file store treats dotfiles as temporary and never lists them.
func ValidStreamName(name string) bool {
	return streamNamePattern.MatchString(name)
}
