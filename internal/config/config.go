// Package config loads fangnote configuration from the environment and an
// optional YAML file.
package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Provider selects the extraction backend.
type Provider string

const (
	ProviderGoogleAI  Provider = "googleai"
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
	ProviderOllama    Provider = "ollama"
	ProviderBedrock   Provider = "bedrock"
)

// StoreBackend selects where task history and preferences are persisted.
type StoreBackend string

const (
	StoreFile    StoreBackend = "file"
	StoreRedis   StoreBackend = "redis"
	StoreSurreal StoreBackend = "surrealdb"
)

// Config holds all configuration values.
type Config struct {
	// Extraction provider
	Provider        Provider
	Model           string
	GeminiAPIKey    string
	OpenAIAPIKey    string
	AnthropicAPIKey string
	OllamaHost      string
	BedrockModel    string

	// Persistence
	Store   StoreBackend
	DataDir string

	// Redis store
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// SurrealDB store
	SurrealDBURL       string
	SurrealDBNamespace string
	SurrealDBDatabase  string
	SurrealDBUser      string
	SurrealDBPass      string
	SurrealDBAuthLevel string

	// Logging
	LogFile  string
	LogLevel slog.Level

	// Theme used when no preference has been stored yet.
	DefaultTheme string
}

// fileConfig mirrors Config for the optional YAML file. Values from the file
// act as defaults; environment variables always win.
type fileConfig struct {
	Provider     string `yaml:"provider"`
	Model        string `yaml:"model"`
	OllamaHost   string `yaml:"ollama_host"`
	BedrockModel string `yaml:"bedrock_model"`
	Store        string `yaml:"store"`
	DataDir      string `yaml:"data_dir"`
	RedisAddr    string `yaml:"redis_addr"`
	SurrealDBURL string `yaml:"surrealdb_url"`
	LogFile      string `yaml:"log_file"`
	LogLevel     string `yaml:"log_level"`
	Theme        string `yaml:"theme"`
}

// Load reads configuration from ~/.config/fangnote/config.yaml (if present)
// and the environment. Environment variables override file values.
func Load() Config {
	return load(defaultConfigPath())
}

func load(configPath string) Config {
	fc := loadFileConfig(configPath)

	dataDir := firstOf(os.Getenv("FANGNOTE_DATA_DIR"), fc.DataDir, defaultDataDir())

	return Config{
		Provider:        Provider(firstOf(os.Getenv("FANGNOTE_PROVIDER"), fc.Provider, string(ProviderGoogleAI))),
		Model:           firstOf(os.Getenv("FANGNOTE_MODEL"), fc.Model, "gemini-2.5-flash"),
		GeminiAPIKey:    firstOf(os.Getenv("GEMINI_API_KEY"), os.Getenv("API_KEY")),
		OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
		OllamaHost:      firstOf(os.Getenv("OLLAMA_HOST"), fc.OllamaHost, "http://localhost:11434"),
		BedrockModel:    firstOf(os.Getenv("FANGNOTE_BEDROCK_MODEL"), fc.BedrockModel, "anthropic.claude-3-5-sonnet-20241022-v2:0"),

		Store:   StoreBackend(firstOf(os.Getenv("FANGNOTE_STORE"), fc.Store, string(StoreFile))),
		DataDir: dataDir,

		RedisAddr:     firstOf(os.Getenv("FANGNOTE_REDIS_ADDR"), fc.RedisAddr, "localhost:6379"),
		RedisPassword: os.Getenv("FANGNOTE_REDIS_PASSWORD"),

		SurrealDBURL:       firstOf(os.Getenv("SURREALDB_URL"), fc.SurrealDBURL, "ws://localhost:8000/rpc"),
		SurrealDBNamespace: getEnv("SURREALDB_NAMESPACE", "fangnote"),
		SurrealDBDatabase:  getEnv("SURREALDB_DATABASE", "tasks"),
		SurrealDBUser:      getEnv("SURREALDB_USER", "root"),
		SurrealDBPass:      getEnv("SURREALDB_PASS", "root"),
		SurrealDBAuthLevel: getEnv("SURREALDB_AUTH_LEVEL", "root"),

		LogFile:  firstOf(os.Getenv("FANGNOTE_LOG_FILE"), fc.LogFile, filepath.Join(dataDir, "fangnote.log")),
		LogLevel: parseLogLevel(firstOf(os.Getenv("FANGNOTE_LOG_LEVEL"), fc.LogLevel, "INFO")),

		DefaultTheme: firstOf(os.Getenv("FANGNOTE_THEME"), fc.Theme, "light"),
	}
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "fangnote", "config.yaml")
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".fangnote"
	}
	return filepath.Join(home, ".local", "share", "fangnote")
}

func loadFileConfig(path string) fileConfig {
	var fc fileConfig
	if path == "" {
		return fc
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			slog.Warn("failed to read config file", "path", path, "error", err)
		}
		return fc
	}
	if err := yaml.Unmarshal(data, &fc); err != nil {
		slog.Warn("failed to parse config file, ignoring", "path", path, "error", err)
		return fileConfig{}
	}
	return fc
}

func firstOf(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
