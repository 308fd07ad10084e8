// package config loads application configuration from the environment,
// an optional .env file and an optional YAML overlay.
package config

import (
	"bytes"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	// remote job api
	BackendURL     string
	BackendTimeout time.Duration
	BackendRPS     float64
	BackendBurst   int

	// warm cache
	CacheDriver string // sqlite or postgres
	CacheDSN    string

	// nats, empty url disables event publishing
	NatsURL    string
	NatsStream string

	// server
	HTTPPort    int
	StaticDir   string
	CORSOrigins []string

	// board
	PageSize int

	// logging
	LogLevel string
	LogFile  string
	LogJSON  bool
}

// File is the YAML overlay layout. Zero values leave the environment's
// value in place.
type File struct {
	Backend struct {
		URL     string        `yaml:"url"`
		Timeout time.Duration `yaml:"timeout"`
		RPS     float64       `yaml:"rps"`
		Burst   int           `yaml:"burst"`
	} `yaml:"backend"`
	Cache struct {
		Driver string `yaml:"driver"`
		DSN    string `yaml:"dsn"`
	} `yaml:"cache"`
	Nats struct {
		URL    string `yaml:"url"`
		Stream string `yaml:"stream"`
	} `yaml:"nats"`
	Server struct {
		Port        int      `yaml:"port"`
		StaticDir   string   `yaml:"static_dir"`
		CORSOrigins []string `yaml:"cors_origins"`
	} `yaml:"server"`
	Board struct {
		PageSize int `yaml:"page_size"`
	} `yaml:"board"`
	Logging struct {
		Level string `yaml:"level"`
		File  string `yaml:"file"`
		JSON  *bool  `yaml:"json"`
	} `yaml:"logging"`
}

// Load reads configuration with sensible defaults. A .env file in the
// working directory is honoured when present, and CONFIG_FILE names a YAML
// overlay applied last.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		BackendURL:     getEnv("BACKEND_URL", "http://localhost:8086"),
		BackendTimeout: time.Duration(getEnvInt("BACKEND_TIMEOUT_SECONDS", 20)) * time.Second,
		BackendRPS:     getEnvFloat("BACKEND_RPS", 10),
		BackendBurst:   getEnvInt("BACKEND_BURST", 5),
		CacheDriver:    getEnv("CACHE_DRIVER", "sqlite"),
		CacheDSN:       getEnv("CACHE_DSN", "./storage/cache.db"),
		NatsURL:        getEnv("NATS_URL", ""),
		NatsStream:     getEnv("NATS_STREAM", "BOARD"),
		HTTPPort:       getEnvInt("HTTP_PORT", 3100),
		StaticDir:      getEnv("STATIC_DIR", ""),
		CORSOrigins:    getEnvList("CORS_ORIGINS", []string{"*"}),
		PageSize:       getEnvInt("BOARD_PAGE_SIZE", 30),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFile:        getEnv("LOG_FILE", "./logs/dashboard.log"),
		LogJSON:        getEnvBool("LOG_JSON", false),
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		f, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		cfg.Apply(f)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile decodes a YAML overlay. Unknown keys are rejected.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return ParseFile(data)
}

// ParseFile decodes YAML overlay bytes.
func ParseFile(data []byte) (*File, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	return &f, nil
}

// Apply copies every non-zero overlay value onto cfg.
func (cfg *Config) Apply(f *File) {
	setString(&cfg.BackendURL, f.Backend.URL)
	if f.Backend.Timeout > 0 {
		cfg.BackendTimeout = f.Backend.Timeout
	}
	if f.Backend.RPS > 0 {
		cfg.BackendRPS = f.Backend.RPS
	}
	setInt(&cfg.BackendBurst, f.Backend.Burst)
	setString(&cfg.CacheDriver, f.Cache.Driver)
	setString(&cfg.CacheDSN, f.Cache.DSN)
	setString(&cfg.NatsURL, f.Nats.URL)
	setString(&cfg.NatsStream, f.Nats.Stream)
	setInt(&cfg.HTTPPort, f.Server.Port)
	setString(&cfg.StaticDir, f.Server.StaticDir)
	if len(f.Server.CORSOrigins) > 0 {
		cfg.CORSOrigins = f.Server.CORSOrigins
	}
	setInt(&cfg.PageSize, f.Board.PageSize)
	setString(&cfg.LogLevel, f.Logging.Level)
	setString(&cfg.LogFile, f.Logging.File)
	if f.Logging.JSON != nil {
		cfg.LogJSON = *f.Logging.JSON
	}
}

// Validate rejects configurations the service cannot start with.
func (cfg *Config) Validate() error {
	if cfg.BackendURL == "" {
		return fmt.Errorf("backend url is required")
	}
	if cfg.HTTPPort < 1 || cfg.HTTPPort > 65535 {
		return fmt.Errorf("invalid http port %d", cfg.HTTPPort)
	}
	switch cfg.CacheDriver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported cache driver %q", cfg.CacheDriver)
	}
	if cfg.PageSize <= 0 {
		return fmt.Errorf("page size must be positive, got %d", cfg.PageSize)
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

// getEnv returns the value of an environment variable or a default value.
func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// getEnvInt returns the integer value of an environment variable or a default.
func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

// getEnvList splits a comma separated variable.
func getEnvList(key string, defaultVal []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	var out []string
	for _, p := range strings.Split(val, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultVal
	}
	return out
}
