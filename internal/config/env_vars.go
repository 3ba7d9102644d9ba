package config

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	appNameVar   = "APP_NAME"
	apiURLVar    = "CAREBOOK_API_URL"
	tokenURLVar  = "CAREBOOK_TOKEN_URL"
	folderEnvVar = "FOLDER"
	storageVar   = "STORAGE"
	logLevelVar  = "LOG_LEVEL"
	logFormatVar = "LOG_FORMAT"
)

type EnvVars struct {
	file *File
}

var _ EnvConfig = EnvVars{}

func (e EnvVars) GetAppName() string {
	return e.get(appNameVar, e.file.value(func(f *File) string { return f.AppName }), "CareBook")
}

// GetAPIBaseURL returns the base of the account endpoints (e.g. "https://host/api/v1")
func (e EnvVars) GetAPIBaseURL() string {
	url := e.get(apiURLVar, e.file.value(func(f *File) string { return f.APIURL }), "https://carebook.example.com/api/v1")
	return strings.TrimRight(url, "/")
}

// GetTokenBaseURL returns the base of the token endpoints (e.g. "https://host/api/token")
func (e EnvVars) GetTokenBaseURL() string {
	url := e.get(tokenURLVar, e.file.value(func(f *File) string { return f.TokenURL }), "https://carebook.example.com/api/token")
	return strings.TrimRight(url, "/")
}

func (e EnvVars) GetDataFolder() string {
	return e.get(folderEnvVar, e.file.value(func(f *File) string { return f.Folder }), defaultFolder())
}

// GetStorageBackend returns one of "file", "sqlite" or "memory"
func (e EnvVars) GetStorageBackend() string {
	return strings.ToLower(e.get(storageVar, e.file.value(func(f *File) string { return f.Storage }), "file"))
}

func (e EnvVars) GetLogLevel() string {
	return e.get(logLevelVar, e.file.value(func(f *File) string { return f.LogLevel }), "info")
}

func (e EnvVars) GetLogFormat() string {
	return e.get(logFormatVar, e.file.value(func(f *File) string { return f.LogFormat }), "console")
}

func (EnvVars) GetEnv() string {
	env := os.Getenv("ENV")
	if env == "" {
		return "DEV"
	}
	return env
}

func (e EnvVars) get(envVar, fileValue, defaultValue string) string {
	if value := os.Getenv(envVar); value != "" {
		return value
	}
	if fileValue != "" {
		return fileValue
	}
	return defaultValue
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}

func defaultFolder() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./.carebook"
	}
	return filepath.Join(home, ".carebook")
}
