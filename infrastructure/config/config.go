package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Neo4jConfig holds connection settings for the graph store
type Neo4jConfig struct {
	URI      string
	Username string
	Password string
	Database string
}

// OllamaConfig holds settings for the text-generation backend
type OllamaConfig struct {
	BaseURL string
	Model   string
	Timeout time.Duration
}

// MemoryConfig holds short-term memory behavior settings
type MemoryConfig struct {
	// MessageTTL is the lifetime of a short-term message
	MessageTTL time.Duration
	// FallbackCapacity bounds the degraded-mode cache
	FallbackCapacity int
	// ProbeInterval is how often a degraded store is re-probed
	ProbeInterval time.Duration
	// MaxMessageBytes caps the content size of a recorded message
	MaxMessageBytes int
}

// SimulationConfig holds simulation job settings
type SimulationConfig struct {
	// MaxTurns caps the requested turn limit
	MaxTurns int
	// JobRetention is how long terminal jobs stay queryable
	JobRetention time.Duration
}

// Config holds all application configuration
type Config struct {
	// Server configuration
	ServerAddress string
	Environment   string

	// Logging
	LogLevel string

	// Feature flags
	EnableMetrics bool
	EnableCORS    bool

	// LimitsFile is an optional YAML file with runtime-tunable limits
	LimitsFile string

	Neo4j      Neo4jConfig
	Ollama     OllamaConfig
	Memory     MemoryConfig
	Simulation SimulationConfig
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		ServerAddress: getEnv("SERVER_ADDRESS", ":8080"),
		Environment:   getEnv("ENVIRONMENT", "development"),

		LogLevel:      getEnv("LOG_LEVEL", "info"),
		EnableMetrics: getEnvBool("ENABLE_METRICS", true),
		EnableCORS:    getEnvBool("ENABLE_CORS", true),

		LimitsFile: getEnv("LIMITS_FILE", ""),

		Neo4j: Neo4jConfig{
			URI:      normalizeNeo4jURI(getEnv("NEO4J_URI", "bolt://localhost:7687")),
			Username: getEnv("NEO4J_USERNAME", "neo4j"),
			Password: getEnv("NEO4J_PASSWORD", ""),
			Database: getEnv("NEO4J_DATABASE", "neo4j"),
		},

		Ollama: OllamaConfig{
			BaseURL: getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			Model:   getEnv("OLLAMA_MODEL", "llama3"),
			Timeout: getEnvDuration("OLLAMA_TIMEOUT", 120*time.Second),
		},

		Memory: MemoryConfig{
			MessageTTL:       getEnvDuration("MEMORY_MESSAGE_TTL", time.Hour),
			FallbackCapacity: getEnvInt("MEMORY_FALLBACK_CAPACITY", 500),
			ProbeInterval:    getEnvDuration("MEMORY_PROBE_INTERVAL", 15*time.Second),
			MaxMessageBytes:  getEnvInt("MEMORY_MAX_MESSAGE_BYTES", 64*1024),
		},

		Simulation: SimulationConfig{
			MaxTurns:     getEnvInt("SIMULATION_MAX_TURNS", 50),
			JobRetention: getEnvDuration("SIMULATION_JOB_RETENTION", time.Hour),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Load is an alias for LoadConfig
func Load() (*Config, error) {
	return LoadConfig()
}

// Validate checks if all required configuration is present
func (c *Config) Validate() error {
	if c.Neo4j.URI == "" {
		return fmt.Errorf("NEO4J_URI is required")
	}
	if c.Memory.FallbackCapacity < 1 {
		return fmt.Errorf("MEMORY_FALLBACK_CAPACITY must be positive")
	}
	if c.Memory.MessageTTL <= 0 {
		return fmt.Errorf("MEMORY_MESSAGE_TTL must be positive")
	}
	if c.Memory.MaxMessageBytes < 1 {
		return fmt.Errorf("MEMORY_MAX_MESSAGE_BYTES must be positive")
	}
	if c.Simulation.MaxTurns < 1 {
		return fmt.Errorf("SIMULATION_MAX_TURNS must be positive")
	}
	if c.Environment == "production" && c.Neo4j.Password == "" {
		return fmt.Errorf("NEO4J_PASSWORD is required in production")
	}

	return nil
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// normalizeNeo4jURI maps neo4j:// schemes onto bolt:// so single-instance
// deployments do not require routing support
func normalizeNeo4jURI(uri string) string {
	if strings.HasPrefix(uri, "neo4j+s://") {
		return "bolt+s://" + strings.TrimPrefix(uri, "neo4j+s://")
	}
	if strings.HasPrefix(uri, "neo4j://") {
		return "bolt://" + strings.TrimPrefix(uri, "neo4j://")
	}
	return uri
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration gets a duration environment variable with a default value
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
