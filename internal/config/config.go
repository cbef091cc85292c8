package config

import (
	_ "embed"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

//go:embed models.yaml
var modelsYAML []byte

type Config struct {
	Database  DatabaseConfig
	Embedding EmbeddingConfig
	Search    SearchConfig
	Log       LogConfig
	Models    ModelsConfig
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
}

type EmbeddingConfig struct {
	URL   string // defaults to http://localhost:8000
	Model string // defaults to ViT-B-32__openai
}

type SearchConfig struct {
	// MaxDistance is the cosine distance ceiling for duplicate detection.
	MaxDistance float64 // defaults to 0.03
	// IndexPath persists the in-memory duplicate index. Empty means
	// the index is rebuilt from the database on startup.
	IndexPath string
}

type LogConfig struct {
	Level string // zap level name, defaults to "info"
}

type ModelsConfig struct {
	Models map[string]ModelSpec `yaml:"models"`
}

// ModelSpec describes a known embedding model.
type ModelSpec struct {
	Dimension int `yaml:"dimension"`
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable and parses it as a positive float.
// Returns the default value if the env var is unset, empty, or invalid.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return f
	}
	return defaultVal
}

func envDefault(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

func Load() *Config {
	var models ModelsConfig
	if err := yaml.Unmarshal(modelsYAML, &models); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded models.yaml: " + err.Error())
	}

	return &Config{
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Embedding: EmbeddingConfig{
			URL:   envDefault("EMBEDDING_URL", "http://localhost:8000"),
			Model: envDefault("EMBEDDING_MODEL", "ViT-B-32__openai"),
		},
		Search: SearchConfig{
			MaxDistance: envFloat("DUPLICATE_MAX_DISTANCE", 0.03),
			IndexPath:   os.Getenv("DUPLICATE_INDEX_PATH"),
		},
		Log: LogConfig{
			Level: envDefault("LOG_LEVEL", "info"),
		},
		Models: models,
	}
}

// ModelDimension returns the embedding width of a known model, or 0 when
// the model is not in the embedded catalog.
func (c *Config) ModelDimension(modelName string) int {
	if spec, ok := c.Models.Models[modelName]; ok {
		return spec.Dimension
	}
	return 0
}
