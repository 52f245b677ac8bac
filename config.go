package sqldoctest

import (
	"fmt"
	"os"
	"regexp"

	"github.com/goccy/go-yaml"
	"github.com/joho/godotenv"
)

// Config represents the sqldoctest configuration
type Config struct {
	Engine     EngineConfig `yaml:"engine"`
	Markers    MarkerConfig `yaml:"markers"`
	Run        RunConfig    `yaml:"run"`
	Extensions []string     `yaml:"extensions"`
}

// EngineConfig represents ephemeral database engine settings
type EngineConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Role     string `yaml:"role"`
	Password string `yaml:"password"`
	// BinDir points at the engine binaries. Empty means resolve via pg_config.
	BinDir string `yaml:"bin_dir"`
	LogDir string `yaml:"log_dir"`
}

// MarkerConfig represents the delimiters of marker-delimited spec blocks
type MarkerConfig struct {
	Start string `yaml:"start"`
	End   string `yaml:"end"`
}

// RunConfig represents concurrency settings for test execution
type RunConfig struct {
	// PoolSize is the number of pooled sessions shared by stateless tests.
	PoolSize int `yaml:"pool_size"`
	// PipelineWidth is the number of stateful files in flight at once.
	PipelineWidth int `yaml:"pipeline_width"`
}

// Default configuration values
const (
	DefaultPort          = 1763
	DefaultRole          = "postgres"
	DefaultStartMarker   = "/*--[sql-tests]"
	DefaultEndMarker     = "*/"
	DefaultPoolSize      = 4
	DefaultPipelineWidth = 2
)

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Engine: EngineConfig{
			Host:   "localhost",
			Port:   DefaultPort,
			Role:   DefaultRole,
			LogDir: ".",
		},
		Markers: MarkerConfig{
			Start: DefaultStartMarker,
			End:   DefaultEndMarker,
		},
		Run: RunConfig{
			PoolSize:      DefaultPoolSize,
			PipelineWidth: DefaultPipelineWidth,
		},
		Extensions: []string{"md", "sql", "c", "h", "go"},
	}
}

// LoadConfig loads configuration from a YAML file, falling back to defaults
// when the file does not exist. Environment variables referenced as ${VAR}
// or $VAR in string values are expanded after an optional .env file is loaded.
func LoadConfig(path string) (*Config, error) {
	if err := loadEnvFiles(); err != nil {
		return nil, err
	}

	config := DefaultConfig()

	if path != "" && fileExists(path) {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	expandConfigEnvVars(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks the configuration for values the runner cannot work with
func (c *Config) Validate() error {
	if c.Engine.Port <= 0 || c.Engine.Port > 65535 {
		return fmt.Errorf("%w: engine port %d out of range", ErrConfigValidation, c.Engine.Port)
	}

	if c.Markers.Start == "" || c.Markers.End == "" {
		return fmt.Errorf("%w: start and end markers must not be empty", ErrConfigValidation)
	}

	if c.Run.PoolSize <= 0 {
		return fmt.Errorf("%w: pool size must be positive", ErrConfigValidation)
	}

	if c.Run.PipelineWidth <= 0 {
		return fmt.Errorf("%w: pipeline width must be positive", ErrConfigValidation)
	}

	return nil
}

// loadEnvFiles loads .env files if they exist
func loadEnvFiles() error {
	if fileExists(".env") {
		err := godotenv.Load(".env")
		if err != nil {
			return fmt.Errorf("failed to load .env file: %w", err)
		}
	}

	return nil
}

// expandEnvVars expands environment variables in the format ${VAR} or $VAR
func expandEnvVars(s string) string {
	re1 := regexp.MustCompile(`\$\{([^}]+)\}`)
	s = re1.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		return os.Getenv(varName)
	})

	re2 := regexp.MustCompile(`\$([A-Za-z_][A-Za-z0-9_]*)`)
	s = re2.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[1:]
		return os.Getenv(varName)
	})

	return s
}

// expandConfigEnvVars expands environment variables in config string values
func expandConfigEnvVars(config *Config) {
	config.Engine.Host = expandEnvVars(config.Engine.Host)
	config.Engine.Role = expandEnvVars(config.Engine.Role)
	config.Engine.Password = expandEnvVars(config.Engine.Password)
	config.Engine.BinDir = expandEnvVars(config.Engine.BinDir)
	config.Engine.LogDir = expandEnvVars(config.Engine.LogDir)
	config.Markers.Start = expandEnvVars(config.Markers.Start)
	config.Markers.End = expandEnvVars(config.Markers.End)
}

// fileExists checks if a file exists
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}
