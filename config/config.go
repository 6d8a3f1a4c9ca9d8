package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server ServerConfig `yaml:"server"`
	Log    LogConfig    `yaml:"log"`
	Gemini GeminiConfig `yaml:"gemini"`
	Limits LimitsConfig `yaml:"limits"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

type GeminiConfig struct {
	ProjectID       string `yaml:"project_id"`
	Region          string `yaml:"region"`
	VisionModel     string `yaml:"vision_model"`
	AnalysisModel   string `yaml:"analysis_model"`
	ResearchModel   string `yaml:"research_model"`
	CredentialsFile string `yaml:"credentials_file"`
}

// LimitsConfig names the request-size budgets. The analysis prompt is a
// silent prefix truncation of the transcription; the cut text never reaches
// the reasoning model. Kept deliberately, see DESIGN.md.
type LimitsConfig struct {
	AnalysisMaxChars        int `yaml:"analysis_max_chars"`
	ResearchContextMaxChars int `yaml:"research_context_max_chars"`
	MaxUploadMB             int `yaml:"max_upload_mb"`
}

// Load reads the yaml config. A missing file is not an error: the defaults
// plus environment overrides are enough to run.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
	} else if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// Set defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Gemini.Region == "" {
		cfg.Gemini.Region = "us-central1"
	}
	if cfg.Gemini.VisionModel == "" {
		cfg.Gemini.VisionModel = "gemini-2.0-flash"
	}
	if cfg.Gemini.AnalysisModel == "" {
		cfg.Gemini.AnalysisModel = "gemini-2.0-flash"
	}
	if cfg.Gemini.ResearchModel == "" {
		cfg.Gemini.ResearchModel = "gemini-2.0-flash"
	}
	if cfg.Limits.AnalysisMaxChars == 0 {
		cfg.Limits.AnalysisMaxChars = 40000
	}
	if cfg.Limits.ResearchContextMaxChars == 0 {
		cfg.Limits.ResearchContextMaxChars = 2000
	}
	if cfg.Limits.MaxUploadMB == 0 {
		cfg.Limits.MaxUploadMB = 10
	}

	// Credentials come from the environment when set; the yaml values are a
	// convenience for local runs only.
	if v := os.Getenv("GOOGLE_CLOUD_PROJECT"); v != "" {
		cfg.Gemini.ProjectID = v
	}
	if v := os.Getenv("VERTEX_AI_REGION"); v != "" {
		cfg.Gemini.Region = v
	}
	if v := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); v != "" {
		cfg.Gemini.CredentialsFile = v
	}

	return &cfg, nil
}
