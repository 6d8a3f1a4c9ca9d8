package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadValidConfig(t *testing.T) {
	content := `
server:
  port: 9090
log:
  level: debug
  format: json
gemini:
  project_id: cartorio-dev
  region: southamerica-east1
  vision_model: gemini-2.0-flash
limits:
  analysis_max_chars: 30000
  research_context_max_chars: 1500
  max_upload_mb: 5
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Errorf("Unexpected log config: %+v", cfg.Log)
	}
	if cfg.Gemini.ProjectID != "cartorio-dev" {
		t.Errorf("Expected project cartorio-dev, got %s", cfg.Gemini.ProjectID)
	}
	if cfg.Gemini.Region != "southamerica-east1" {
		t.Errorf("Expected region southamerica-east1, got %s", cfg.Gemini.Region)
	}
	if cfg.Limits.AnalysisMaxChars != 30000 {
		t.Errorf("Expected analysis budget 30000, got %d", cfg.Limits.AnalysisMaxChars)
	}
	if cfg.Limits.ResearchContextMaxChars != 1500 {
		t.Errorf("Expected research context budget 1500, got %d", cfg.Limits.ResearchContextMaxChars)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	if err != nil {
		t.Fatalf("Expected missing file to be tolerated, got %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Expected default log level info, got %s", cfg.Log.Level)
	}
	if cfg.Gemini.Region != "us-central1" {
		t.Errorf("Expected default region, got %s", cfg.Gemini.Region)
	}
	if cfg.Gemini.VisionModel == "" || cfg.Gemini.AnalysisModel == "" || cfg.Gemini.ResearchModel == "" {
		t.Error("Expected default model names")
	}
	if cfg.Limits.AnalysisMaxChars != 40000 {
		t.Errorf("Expected default analysis budget 40000, got %d", cfg.Limits.AnalysisMaxChars)
	}
	if cfg.Limits.ResearchContextMaxChars != 2000 {
		t.Errorf("Expected default research context budget 2000, got %d", cfg.Limits.ResearchContextMaxChars)
	}
	if cfg.Limits.MaxUploadMB != 10 {
		t.Errorf("Expected default upload cap 10 MB, got %d", cfg.Limits.MaxUploadMB)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server: [broken"), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Error("Expected error for invalid yaml")
	}
}

func TestEnvironmentOverridesCredentials(t *testing.T) {
	content := `
gemini:
  project_id: from-yaml
  region: us-central1
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	t.Setenv("GOOGLE_CLOUD_PROJECT", "from-env")
	t.Setenv("VERTEX_AI_REGION", "southamerica-east1")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "/tmp/sa.json")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Gemini.ProjectID != "from-env" {
		t.Errorf("Expected env to override project id, got %s", cfg.Gemini.ProjectID)
	}
	if cfg.Gemini.Region != "southamerica-east1" {
		t.Errorf("Expected env to override region, got %s", cfg.Gemini.Region)
	}
	if cfg.Gemini.CredentialsFile != "/tmp/sa.json" {
		t.Errorf("Expected env to set credentials file, got %s", cfg.Gemini.CredentialsFile)
	}
}
