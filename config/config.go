package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix prefixes every environment override, e.g. QUEST_SERVER_PORT
const EnvPrefix = "QUEST"

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Server ServerConfig `json:"server"`

	// Game content configuration
	Game GameConfig `json:"game"`

	// Competence storage configuration
	Storage StorageConfig `json:"storage"`

	// WhatsApp configuration
	WhatsApp WhatsAppConfig `json:"whatsapp"`

	// Metrics configuration
	Metrics MetricsConfig `json:"metrics"`
}

// ServerConfig holds server specific configuration
type ServerConfig struct {
	// Server port
	Port string `json:"port" envconfig:"PORT"`

	// Log level (debug, info, warn, error)
	LogLevel string `json:"log_level" envconfig:"LOG_LEVEL"`

	// Request timeout in seconds
	RequestTimeout int `json:"request_timeout" envconfig:"REQUEST_TIMEOUT"`
}

// GameConfig holds game specific configuration
type GameConfig struct {
	// Directory holding countries.yaml and scenarios/
	ContentDir string `json:"content_dir" envconfig:"CONTENT_DIR"`
}

// StorageConfig holds competence storage configuration
type StorageConfig struct {
	// Backend: file, sqlite, redis or memory
	Driver string `json:"driver" envconfig:"DRIVER"`

	// Directory of the file backend
	Dir string `json:"dir" envconfig:"DIR"`

	// Connection string of the sqlite backend
	DSN string `json:"dsn" envconfig:"DSN"`

	// Redis backend settings
	RedisAddr     string `json:"redis_addr" envconfig:"REDIS_ADDR"`
	RedisPassword string `json:"-" envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `json:"redis_db" envconfig:"REDIS_DB"`

	// Prefix added to every redis key
	KeyPrefix string `json:"key_prefix" envconfig:"KEY_PREFIX"`
}

// WhatsAppConfig holds WhatsApp specific configuration
type WhatsAppConfig struct {
	// Whether the chat bot is started
	Enabled bool `json:"enabled" envconfig:"ENABLED"`

	// Path to store WhatsApp session data
	StoreDir string `json:"store_dir" envconfig:"STORE_DIR"`

	// Client device name
	ClientName string `json:"client_name" envconfig:"CLIENT_NAME"`

	// Directory where login QR codes are written
	QRCodeDir string `json:"qr_code_dir" envconfig:"QR_CODE_DIR"`
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	// Whether /metrics is served
	Enabled bool `json:"enabled" envconfig:"ENABLED"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Port:           "8080",
			LogLevel:       "info",
			RequestTimeout: 60,
		},
		Game: GameConfig{
			ContentDir: "./assets/data",
		},
		Storage: StorageConfig{
			Driver:    "file",
			Dir:       "./data/competence",
			DSN:       "file:./data/quest.db?_busy_timeout=5000",
			RedisAddr: "localhost:6379",
			RedisDB:   0,
			KeyPrefix: "quest:",
		},
		WhatsApp: WhatsAppConfig{
			Enabled:    false,
			StoreDir:   "./whatsapp-store",
			ClientName: "ETIQUETTE QUEST",
			QRCodeDir:  "./assets/qrcodes",
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// LoadConfig loads configuration from a file, creating it with defaults when missing,
// then applies environment overrides
func LoadConfig(path string) (Config, error) {
	config := DefaultConfig()

	// Create directory if it doesn't exist
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return config, err
	}

	// Check if file exists
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := SaveConfig(config, path); err != nil {
			return config, err
		}
	} else {
		file, err := os.Open(path)
		if err != nil {
			return config, err
		}
		defer file.Close()

		decoder := json.NewDecoder(file)
		if err := decoder.Decode(&config); err != nil {
			return config, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := ApplyEnv(&config); err != nil {
		return config, err
	}

	return config, nil
}

// LoadDotEnv loads a .env file into the process environment; a missing file is ignored
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides fields from QUEST_* environment variables. Unset variables leave fields unchanged.
func ApplyEnv(config *Config) error {
	if err := envconfig.Process(EnvPrefix, config); err != nil {
		return fmt.Errorf("failed to process environment: %w", err)
	}
	return nil
}

// SaveConfig saves configuration to a file
func SaveConfig(config Config, path string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	// Create or truncate file
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	// Write config to file
	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(config); err != nil {
		return err
	}

	return nil
}
