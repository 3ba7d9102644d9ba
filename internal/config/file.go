package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const configFileName = "config.yaml"

// File mirrors the optional YAML configuration file. Environment variables
// take precedence over every field.
type File struct {
	AppName   string `yaml:"app_name"`
	APIURL    string `yaml:"api_url"`
	TokenURL  string `yaml:"token_url"`
	Folder    string `yaml:"folder"`
	Storage   string `yaml:"storage"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// LoadFile reads a YAML config file. A missing file is not an error.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return &f, nil
}

func (f *File) value(get func(*File) string) string {
	if f == nil {
		return ""
	}
	return get(f)
}

func defaultConfigFilePath() string {
	return filepath.Join(GetEnv(folderEnvVar, defaultFolder()), configFileName)
}
