// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Index, Search, PageRank, Server, Redis, Postgres, Kafka, etc.).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Index    IndexConfig    `yaml:"index"`
	Search   SearchConfig   `yaml:"search"`
	PageRank PageRankConfig `yaml:"pagerank"`
	Server   ServerConfig   `yaml:"server"`
	Redis    RedisConfig    `yaml:"redis"`
	Postgres PostgresConfig `yaml:"postgres"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// IndexConfig controls the on-disk layout of the index, the memory ceiling
// that triggers a block spill and the sizes of the lookup caches.
type IndexConfig struct {
	DataDir          string `yaml:"dataDir"`
	PostingsFile     string `yaml:"postingsFile"`
	OffsetFile       string `yaml:"offsetFile"`
	PathFile         string `yaml:"pathFile"`
	LengthFile       string `yaml:"lengthFile"`
	BlockPrefix      string `yaml:"blockPrefix"`
	MergePrefix      string `yaml:"mergePrefix"`
	BigramPrefix     string `yaml:"bigramPrefix"`
	MemoryLimit      int    `yaml:"memoryLimit"`
	CacheMaxSize     int    `yaml:"cacheMaxSize"`
	PathCacheMaxSize int    `yaml:"pathCacheMaxSize"`
	KeepInMemory     bool   `yaml:"keepInMemory"`
	IndexBigrams     bool   `yaml:"indexBigrams"`
	MaxLineSize      int    `yaml:"maxLineSize"`
	ScanThreshold    int    `yaml:"scanThreshold"`
	CorpusExtension  string `yaml:"corpusExtension"`
}

// SearchConfig controls ranking weights, the bigram fallback heuristic and
// result limits of the query engine.
type SearchConfig struct {
	TFIDFWeight             float64       `yaml:"tfidfWeight"`
	PageRankWeight          float64       `yaml:"pageRankWeight"`
	BigramFallbackThreshold int           `yaml:"bigramFallbackThreshold"`
	IDFThreshold            float64       `yaml:"idfThreshold"`
	DefaultLimit            int           `yaml:"defaultLimit"`
	MaxResults              int           `yaml:"maxResults"`
	ScoresFile              string        `yaml:"scoresFile"`
	TitlesFile              string        `yaml:"titlesFile"`
	Timeout                 time.Duration `yaml:"timeout"`
}

// PageRankConfig holds the random-surfer parameters and the sample sizes of
// the Monte Carlo estimators.
type PageRankConfig struct {
	LinksFile     string  `yaml:"linksFile"`
	Method        string  `yaml:"method"`
	Damping       float64 `yaml:"damping"`
	Epsilon       float64 `yaml:"epsilon"`
	MaxIterations int     `yaml:"maxIterations"`
	Walks         int     `yaml:"walks"`
	WalksPerPage  int     `yaml:"walksPerPage"`
	ReportSize    int     `yaml:"reportSize"`
	ScoresFile    string  `yaml:"scoresFile"`
	ReportFile    string  `yaml:"reportFile"`
	Seed          uint64  `yaml:"seed"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	RequestTimeout  time.Duration `yaml:"requestTimeout"`
	// CORSOrigins lists browser origins allowed to call the API; "*" allows
	// any. Empty disables CORS headers.
	CORSOrigins []string `yaml:"corsOrigins"`
}

// RedisConfig holds Redis connection and caching parameters.
type RedisConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// KafkaConfig holds Kafka broker and topic settings.
type KafkaConfig struct {
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	DocumentTokens string `yaml:"documentTokens"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It returns a Config populated with defaults for any missing
// values.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the built-in configuration without reading any file or
// environment variable.
func Default() *Config {
	return defaultConfig()
}

// Validate rejects settings the index builder and ranking engine cannot
// work with.
func (c *Config) Validate() error {
	if c.Index.DataDir == "" {
		return fmt.Errorf("index.dataDir must be set")
	}
	if c.Index.MemoryLimit <= 0 {
		return fmt.Errorf("index.memoryLimit must be positive, got %d", c.Index.MemoryLimit)
	}
	if c.Index.CacheMaxSize <= 0 || c.Index.PathCacheMaxSize <= 0 {
		return fmt.Errorf("index cache sizes must be positive")
	}
	if c.Index.ScanThreshold <= 0 || c.Index.MaxLineSize <= 0 {
		return fmt.Errorf("index.scanThreshold and index.maxLineSize must be positive")
	}
	if c.PageRank.Damping <= 0 || c.PageRank.Damping >= 1 {
		return fmt.Errorf("pagerank.damping must be in (0, 1), got %g", c.PageRank.Damping)
	}
	return nil
}

func defaultConfig() *Config {
	return &Config{
		Index: IndexConfig{
			DataDir:          "data/index",
			PostingsFile:     "p.txt",
			OffsetFile:       "i.txt",
			PathFile:         "id.txt",
			LengthFile:       "len.txt",
			BlockPrefix:      "t",
			MergePrefix:      "m",
			BigramPrefix:     "b",
			MemoryLimit:      70371,
			CacheMaxSize:     10000000,
			PathCacheMaxSize: 100000,
			KeepInMemory:     true,
			IndexBigrams:     true,
			MaxLineSize:      65 * 1024,
			ScanThreshold:    1024,
			CorpusExtension:  ".f",
		},
		Search: SearchConfig{
			TFIDFWeight:             1,
			PageRankWeight:          0.75,
			BigramFallbackThreshold: 10,
			DefaultLimit:            10,
			MaxResults:              100,
			ScoresFile:              "data/pagerank/page_rank.txt",
			Timeout:                 5 * time.Second,
		},
		PageRank: PageRankConfig{
			Method:        "s",
			Damping:       0.15,
			Epsilon:       0.0001,
			MaxIterations: 1000,
			WalksPerPage:  100,
			ReportSize:    60,
			ScoresFile:    "data/pagerank/page_rank.txt",
			ReportFile:    "data/pagerank/page_rank_report.txt",
		},
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			RequestTimeout:  10 * time.Second,
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 10,
			CacheTTL: 60 * time.Second,
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "searchengine",
			User:            "searchengine",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "searchengine-indexer",
			Topics: KafkaTopics{
				DocumentTokens: "document-tokens",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
	}
}

// applyEnvOverrides reads SE_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SE_INDEX_DATA_DIR"); v != "" {
		cfg.Index.DataDir = v
	}
	if v := os.Getenv("SE_INDEX_MEMORY_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Index.MemoryLimit = n
		}
	}
	if v := os.Getenv("SE_INDEX_KEEP_IN_MEMORY"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Index.KeepInMemory = b
		}
	}
	if v := os.Getenv("SE_SEARCH_PAGERANK_WEIGHT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Search.PageRankWeight = f
		}
	}
	if v := os.Getenv("SE_SEARCH_SCORES_FILE"); v != "" {
		cfg.Search.ScoresFile = v
	}
	if v := os.Getenv("SE_SEARCH_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Search.Timeout = d
		}
	}
	if v := os.Getenv("SE_PAGERANK_LINKS_FILE"); v != "" {
		cfg.PageRank.LinksFile = v
	}
	if v := os.Getenv("SE_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("SE_SERVER_CORS_ORIGINS"); v != "" {
		cfg.Server.CORSOrigins = strings.Split(v, ",")
	}
	if v := os.Getenv("SE_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
		cfg.Redis.Enabled = true
	}
	if v := os.Getenv("SE_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("SE_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
		cfg.Postgres.Enabled = true
	}
	if v := os.Getenv("SE_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("SE_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("SE_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("SE_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
