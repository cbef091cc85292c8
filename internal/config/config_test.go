package config

import (
	"os"
	"testing"
)

func TestLoad_DatabaseDefaults(t *testing.T) {
	os.Unsetenv("DATABASE_MAX_OPEN_CONNS")
	os.Unsetenv("DATABASE_MAX_IDLE_CONNS")

	cfg := Load()

	if cfg.Database.MaxOpenConns != 25 {
		t.Errorf("expected default max open conns 25, got %d", cfg.Database.MaxOpenConns)
	}

	if cfg.Database.MaxIdleConns != 5 {
		t.Errorf("expected default max idle conns 5, got %d", cfg.Database.MaxIdleConns)
	}
}

func TestLoad_DatabaseFromEnv(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://app:app@db:5432/photark")
	t.Setenv("DATABASE_MAX_OPEN_CONNS", "50")
	t.Setenv("DATABASE_MAX_IDLE_CONNS", "10")

	cfg := Load()

	if cfg.Database.URL != "postgres://app:app@db:5432/photark" {
		t.Errorf("unexpected database URL '%s'", cfg.Database.URL)
	}

	if cfg.Database.MaxOpenConns != 50 {
		t.Errorf("expected max open conns 50, got %d", cfg.Database.MaxOpenConns)
	}

	if cfg.Database.MaxIdleConns != 10 {
		t.Errorf("expected max idle conns 10, got %d", cfg.Database.MaxIdleConns)
	}
}

func TestLoad_InvalidConnCounts(t *testing.T) {
	t.Setenv("DATABASE_MAX_OPEN_CONNS", "invalid")
	t.Setenv("DATABASE_MAX_IDLE_CONNS", "-3")

	cfg := Load()

	// Invalid and negative values fall back to defaults
	if cfg.Database.MaxOpenConns != 25 {
		t.Errorf("expected fallback max open conns 25, got %d", cfg.Database.MaxOpenConns)
	}

	if cfg.Database.MaxIdleConns != 5 {
		t.Errorf("expected fallback max idle conns 5, got %d", cfg.Database.MaxIdleConns)
	}
}

func TestLoad_EmbeddingDefaults(t *testing.T) {
	os.Unsetenv("EMBEDDING_URL")
	os.Unsetenv("EMBEDDING_MODEL")

	cfg := Load()

	if cfg.Embedding.URL != "http://localhost:8000" {
		t.Errorf("expected default embedding URL, got '%s'", cfg.Embedding.URL)
	}

	if cfg.Embedding.Model != "ViT-B-32__openai" {
		t.Errorf("expected default embedding model, got '%s'", cfg.Embedding.Model)
	}
}

func TestLoad_EmbeddingFromEnv(t *testing.T) {
	t.Setenv("EMBEDDING_URL", "http://ml-host:9000")
	t.Setenv("EMBEDDING_MODEL", "ViT-L-14__openai")

	cfg := Load()

	if cfg.Embedding.URL != "http://ml-host:9000" {
		t.Errorf("expected embedding URL 'http://ml-host:9000', got '%s'", cfg.Embedding.URL)
	}

	if cfg.Embedding.Model != "ViT-L-14__openai" {
		t.Errorf("expected embedding model 'ViT-L-14__openai', got '%s'", cfg.Embedding.Model)
	}
}

func TestLoad_SearchDefaults(t *testing.T) {
	os.Unsetenv("DUPLICATE_MAX_DISTANCE")
	os.Unsetenv("DUPLICATE_INDEX_PATH")

	cfg := Load()

	if cfg.Search.MaxDistance != 0.03 {
		t.Errorf("expected default max distance 0.03, got %f", cfg.Search.MaxDistance)
	}

	if cfg.Search.IndexPath != "" {
		t.Errorf("expected empty index path, got '%s'", cfg.Search.IndexPath)
	}
}

func TestLoad_SearchFromEnv(t *testing.T) {
	t.Setenv("DUPLICATE_MAX_DISTANCE", "0.05")
	t.Setenv("DUPLICATE_INDEX_PATH", "/var/lib/photark/dupindex.gob")

	cfg := Load()

	if cfg.Search.MaxDistance != 0.05 {
		t.Errorf("expected max distance 0.05, got %f", cfg.Search.MaxDistance)
	}

	if cfg.Search.IndexPath != "/var/lib/photark/dupindex.gob" {
		t.Errorf("unexpected index path '%s'", cfg.Search.IndexPath)
	}
}

func TestLoad_InvalidMaxDistance(t *testing.T) {
	t.Setenv("DUPLICATE_MAX_DISTANCE", "not-a-number")

	cfg := Load()

	if cfg.Search.MaxDistance != 0.03 {
		t.Errorf("expected fallback max distance 0.03, got %f", cfg.Search.MaxDistance)
	}
}

func TestLoad_LogLevel(t *testing.T) {
	os.Unsetenv("LOG_LEVEL")

	cfg := Load()
	if cfg.Log.Level != "info" {
		t.Errorf("expected default log level 'info', got '%s'", cfg.Log.Level)
	}

	t.Setenv("LOG_LEVEL", "debug")
	cfg = Load()
	if cfg.Log.Level != "debug" {
		t.Errorf("expected log level 'debug', got '%s'", cfg.Log.Level)
	}
}

func TestModelDimension_KnownModels(t *testing.T) {
	cfg := Load()

	tests := []struct {
		model string
		dim   int
	}{
		{"ViT-B-32__openai", 512},
		{"ViT-L-14__openai", 768},
		{"ViT-H-14__laion2b-s32b-b79k", 1024},
		{"buffalo_l", 512},
	}

	for _, tt := range tests {
		if got := cfg.ModelDimension(tt.model); got != tt.dim {
			t.Errorf("ModelDimension(%s) = %d; want %d", tt.model, got, tt.dim)
		}
	}
}

func TestModelDimension_UnknownModel(t *testing.T) {
	cfg := Load()

	if got := cfg.ModelDimension("unknown-model-xyz"); got != 0 {
		t.Errorf("expected 0 for unknown model, got %d", got)
	}
}

func TestLoad_ModelsLoaded(t *testing.T) {
	cfg := Load()

	if len(cfg.Models.Models) == 0 {
		t.Error("expected models to be loaded from embedded YAML")
	}
}
