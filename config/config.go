package config

import (
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Provider ProviderConfig `yaml:"provider"`
	Storage  StorageConfig  `yaml:"storage"`
	Credits  CreditsConfig  `yaml:"credits"`
}

type ServerConfig struct {
	Port     int    `yaml:"port"`
	Host     string `yaml:"host"`
	LogLevel string `yaml:"log_level"`
}

type ProviderConfig struct {
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	Model      string `yaml:"model"`
	ImageModel string `yaml:"image_model"`
	Timeout    int    `yaml:"timeout"`

	// Output token budget per requested length
	ShortTokens  int `yaml:"short_tokens"`
	MediumTokens int `yaml:"medium_tokens"`
	LongTokens   int `yaml:"long_tokens"`
}

type StorageConfig struct {
	DBPath string `yaml:"db_path"`
}

type CreditsConfig struct {
	InitialBalance int64 `yaml:"initial_balance"`
}

var (
	cfg  *Config
	once sync.Once
)

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:     8090,
			Host:     "0.0.0.0",
			LogLevel: "info",
		},
		Provider: ProviderConfig{
			Model:        "gpt-3.5-turbo",
			ImageModel:   "dall-e-3",
			Timeout:      60,
			ShortTokens:  300,
			MediumTokens: 600,
			LongTokens:   1000,
		},
		Storage: StorageConfig{
			DBPath: "./data/contentforge.db",
		},
		Credits: CreditsConfig{
			InitialBalance: 10,
		},
	}
}

// Load loads configuration from file
func Load(path string) (*Config, error) {
	var err error
	once.Do(func() {
		cfg = DefaultConfig()

		data, readErr := os.ReadFile(path)
		if readErr != nil {
			if os.IsNotExist(readErr) {
				// Create default config file
				err = Save(path, cfg)
				return
			}
			err = readErr
			return
		}

		if unmarshalErr := yaml.Unmarshal(data, cfg); unmarshalErr != nil {
			err = unmarshalErr
			return
		}
	})

	return cfg, err
}

// Save saves configuration to file
func Save(path string, c *Config) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Get returns the current configuration
func Get() *Config {
	if cfg == nil {
		return DefaultConfig()
	}
	return cfg
}
