package config

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type Config interface {
	EnvConfig
	SessionConfig
}

type EnvConfig interface {
	GetAppName() string
	GetAPIBaseURL() string
	GetTokenBaseURL() string
	GetDataFolder() string
	GetStorageBackend() string
	GetLogLevel() string
	GetLogFormat() string
	GetEnv() string
}

type mainConfig struct {
	EnvVars
	Session
}

// New returns configuration read from the environment, falling back to
// {folder}/config.yaml and then to built-in defaults.
func New() Config {
	return NewWithLogger(log.Logger)
}

// NewWithLogger is New reporting an unreadable default config file to logger.
// The file is then ignored and env vars and defaults apply.
func NewWithLogger(logger zerolog.Logger) Config {
	path := defaultConfigFilePath()
	file, err := LoadFile(path)
	if err != nil {
		logger.Warn().Err(err).Str("path", path).Msg("ignoring unreadable config file")
	}
	return mainConfig{EnvVars: EnvVars{file: file}}
}

// NewWithFile is New with an explicit YAML file.
func NewWithFile(path string) (Config, error) {
	file, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	return mainConfig{EnvVars: EnvVars{file: file}}, nil
}
