package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// fileConfig is the optional YAML configuration. Environment variables
// override every field, so a deployment can run with either or both.
type fileConfig struct {
	Port       string        `yaml:"port"`
	LogLevel   string        `yaml:"log_level"`
	SecretKey  string        `yaml:"secret_key"`
	Email      string        `yaml:"email"`
	SessionsDB string        `yaml:"sessions_db"`
	Browser    browserYAML   `yaml:"browser"`
	OpenAI     openAIYAML    `yaml:"openai"`
	Budget     time.Duration `yaml:"budget"`
}

type browserYAML struct {
	Remote string `yaml:"remote"`
}

type openAIYAML struct {
	APIKey  string        `yaml:"api_key"`
	Model   string        `yaml:"model"`
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// loadFileConfig reads the YAML file at path. A missing QUIZRUN_CONFIG is
// not an error; a named file that fails to parse is.
func loadFileConfig(path string) (*fileConfig, error) {
	if path == "" {
		return &fileConfig{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	var cfg fileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return &cfg, nil
}

// pick resolves one setting: environment beats file beats default.
func pick(envKey, fileVal, def string) string {
	if v := os.Getenv(envKey); v != "" {
		return v
	}
	if fileVal != "" {
		return fileVal
	}
	return def
}
