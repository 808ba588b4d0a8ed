package config

import (
	"fmt"
	"os"
	"path"

	"gopkg.in/yaml.v3"
)

// Config holds every tunable of the monitor process.
type Config struct {
	// DataDir is the root for the similarity index files and the
	// SQLite database.
	DataDir    string `yaml:"data_dir"`
	ListenAddr string `yaml:"listen_addr"`

	// Detector
	DetectorURL     string  `yaml:"detector_url"`
	DetectorTimeout int     `yaml:"detector_timeout_seconds"`
	BirdConfidence  float64 `yaml:"bird_confidence"`

	// Identity matching
	EmbeddingDim   int     `yaml:"embedding_dim"`
	SpaceType      string  `yaml:"space_type"`
	MatchK         int     `yaml:"match_k"`
	MatchThreshold float64 `yaml:"match_threshold"`

	// Capture ingestion
	CaptureDir string `yaml:"capture_dir"`
	FeederID   string `yaml:"feeder_id"`
	CameraID   string `yaml:"camera_id"`

	// Feeder alerts
	VisitAlertThreshold int     `yaml:"visit_alert_threshold"`
	NectarDepletionRate float64 `yaml:"nectar_depletion_rate"`

	// Summaries
	GeminiAPIKey string `yaml:"gemini_api_key"`
	GeminiModel  string `yaml:"gemini_model"`

	// Logging
	LogLevel string `yaml:"log_level"`
	LogFile  string `yaml:"log_file"`
}

// Default returns a config with the stock settings rooted at dir.
func Default(dir string) *Config {
	return &Config{
		DataDir:             dir,
		ListenAddr:          ":8080",
		DetectorURL:         "http://localhost:32168",
		DetectorTimeout:     30,
		BirdConfidence:      0.4,
		EmbeddingDim:        128,
		SpaceType:           "l2",
		MatchK:              5,
		MatchThreshold:      0.7,
		CaptureDir:          path.Join(dir, "captures"),
		FeederID:            "feeder-1",
		CameraID:            "camera-1",
		VisitAlertThreshold: 50,
		NectarDepletionRate: 0.5,
		GeminiModel:         "gemini-2.0-flash",
		LogLevel:            "info",
	}
}

// FromFile reads a YAML config file. Missing keys keep their
// defaults; GEMINI_API_KEY in the environment overrides the file.
func FromFile(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", filePath, err)
	}

	conf := Default(".")
	if err := yaml.Unmarshal(data, conf); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", filePath, err)
	}
	conf.applyEnv()

	if conf.EmbeddingDim <= 0 {
		return nil, fmt.Errorf("embedding_dim must be positive, got %d", conf.EmbeddingDim)
	}
	switch conf.SpaceType {
	case "l2", "ip", "cos":
	default:
		return nil, fmt.Errorf("space_type must be l2, ip, or cos, got %q", conf.SpaceType)
	}
	return conf, nil
}

// NewConfig returns the config for dir, reading config.yaml there if
// present and falling back to defaults otherwise.
func NewConfig(dir string) (*Config, error) {
	filePath := path.Join(dir, "config.yaml")
	if _, err := os.Stat(filePath); err != nil {
		conf := Default(dir)
		conf.applyEnv()
		return conf, nil
	}
	conf, err := FromFile(filePath)
	if err != nil {
		return nil, err
	}
	if conf.DataDir == "" || conf.DataDir == "." {
		conf.DataDir = dir
	}
	return conf, nil
}

func (c *Config) applyEnv() {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.GeminiAPIKey = key
	}
}

// IndexDir is where the similarity index persists its two artifacts.
func (c *Config) IndexDir() string {
	return path.Join(c.DataDir, "index")
}

// DBPath is the SQLite database file.
func (c *Config) DBPath() string {
	return path.Join(c.DataDir, "hummingbird.db")
}
