package cfg

import (
	"testing"
)

func TestGetVersion(t *testing.T) {
	// Test default version
	if GetVersion() == "" {
		t.Error("GetVersion should never return empty string")
	}

	version := GetVersion()
	if version != "dev" && version != "unknown" {
		// This is fine, version could be set at build time
		t.Logf("Version: %s", version)
	}
}

func TestConfigFields(t *testing.T) {
	cfg := &Cfg{
		Port:                "8080",
		WorkerCount:         4,
		SchedulerInterval:   60,
		APIAccessKey:        "test-key",
		Version:             "test-version",
		SourcesDir:          "./sources",
		DBHost:              "localhost",
		DBPort:              "5432",
		DBUser:              "test_user",
		DBPassword:          "test_password",
		DBName:              "test_db",
		LLMBaseURL:          "https://llm.example.com/v1",
		LLMModel:            "test-model",
		ScaleMin:            0,
		ScaleMax:            10,
		ThesisMax:           5,
		SimilarityThreshold: 0.6,
		ContestedMargin:     0.15,
		Timezone:            "UTC",
		Debug:               true,
	}

	if cfg.Port != "8080" {
		t.Errorf("Expected port '8080', got '%s'", cfg.Port)
	}
	if cfg.WorkerCount != 4 {
		t.Errorf("Expected worker count 4, got %d", cfg.WorkerCount)
	}
	if cfg.SchedulerInterval != 60 {
		t.Errorf("Expected scheduler interval 60, got %d", cfg.SchedulerInterval)
	}
	if cfg.APIAccessKey != "test-key" {
		t.Errorf("Expected API key 'test-key', got '%s'", cfg.APIAccessKey)
	}
	if cfg.SourcesDir != "./sources" {
		t.Errorf("Expected sources dir './sources', got '%s'", cfg.SourcesDir)
	}
	if cfg.LLMBaseURL != "https://llm.example.com/v1" {
		t.Errorf("Expected LLM base URL 'https://llm.example.com/v1', got '%s'", cfg.LLMBaseURL)
	}
	if cfg.LLMModel != "test-model" {
		t.Errorf("Expected LLM model 'test-model', got '%s'", cfg.LLMModel)
	}
	if cfg.ScaleMax != 10 {
		t.Errorf("Expected scale max 10, got %f", cfg.ScaleMax)
	}
	if cfg.SimilarityThreshold != 0.6 {
		t.Errorf("Expected similarity threshold 0.6, got %f", cfg.SimilarityThreshold)
	}
	if cfg.ContestedMargin != 0.15 {
		t.Errorf("Expected contested margin 0.15, got %f", cfg.ContestedMargin)
	}
	if !cfg.Debug {
		t.Error("Expected debug to be true")
	}
}
