package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultAPIEndpoint is the Telegram Bot API method endpoint (token, method)
	DefaultAPIEndpoint = "https://api.telegram.org/bot%s/%s"
	// DefaultFileEndpoint is the Telegram file download endpoint (token, file path)
	DefaultFileEndpoint = "https://api.telegram.org/file/bot%s/%s"

	// Animated and video sticker policies
	AnimatedPolicySkip = "skip"
	AnimatedPolicyKeep = "keep"

	// Credential backends
	BackendFile      = "file"
	BackendKeyring   = "keyring"
	BackendEncrypted = "encrypted"

	// UI modes
	UIModeProgress = "progress"
	UIModeTUI      = "tui"
	UIModeQuiet    = "quiet"

	envPrefix = "STICKERDL_"
)

// Config holds all configuration options for the sticker downloader
type Config struct {
	Telegram    TelegramConfig    `yaml:"telegram" json:"telegram"`
	Output      OutputConfig      `yaml:"output" json:"output"`
	Download    DownloadConfig    `yaml:"download" json:"download"`
	Conversion  ConversionConfig  `yaml:"conversion" json:"conversion"`
	Credentials CredentialsConfig `yaml:"credentials" json:"credentials"`
	Logging     LoggingConfig     `yaml:"logging" json:"logging"`
	UI          UIConfig          `yaml:"ui" json:"ui"`
}

// TelegramConfig holds Bot API connection settings
type TelegramConfig struct {
	APIEndpoint       string        `yaml:"api_endpoint" json:"api_endpoint"`
	FileEndpoint      string        `yaml:"file_endpoint" json:"file_endpoint"`
	Timeout           time.Duration `yaml:"timeout" json:"timeout"`
	RequestsPerSecond int           `yaml:"requests_per_second" json:"requests_per_second"`
	Debug             bool          `yaml:"debug" json:"debug"`
}

// OutputConfig holds output directory configuration
type OutputConfig struct {
	BaseDirectory     string `yaml:"base_directory" json:"base_directory"`
	KeepSource        bool   `yaml:"keep_source" json:"keep_source"`
	OverwriteExisting bool   `yaml:"overwrite_existing" json:"overwrite_existing"`
	SaveMetadata      bool   `yaml:"save_metadata" json:"save_metadata"`
}

// DownloadConfig holds download-specific configuration
type DownloadConfig struct {
	ConcurrentDownloads int           `yaml:"concurrent_downloads" json:"concurrent_downloads"`
	MaxRetries          int           `yaml:"max_retries" json:"max_retries"`
	RetryDelay          time.Duration `yaml:"retry_delay" json:"retry_delay"`
}

// ConversionConfig controls how downloaded stickers become PNG files
type ConversionConfig struct {
	AnimatedPolicy string `yaml:"animated_policy" json:"animated_policy"`
	CanvasSize     int    `yaml:"canvas_size" json:"canvas_size"`
}

// CredentialsConfig selects where the bot token is persisted
type CredentialsConfig struct {
	Backend string `yaml:"backend" json:"backend"`
	File    string `yaml:"file" json:"file"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// UIConfig holds terminal output preferences
type UIConfig struct {
	Mode          string `yaml:"mode" json:"mode"`
	Color         bool   `yaml:"color" json:"color"`
	Notifications bool   `yaml:"notifications" json:"notifications"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Telegram: TelegramConfig{
			APIEndpoint:       DefaultAPIEndpoint,
			FileEndpoint:      DefaultFileEndpoint,
			Timeout:           30 * time.Second,
			RequestsPerSecond: 20,
		},
		Output: OutputConfig{
			BaseDirectory: "stickers",
		},
		Download: DownloadConfig{
			ConcurrentDownloads: 4,
			MaxRetries:          0,
			RetryDelay:          time.Second,
		},
		Conversion: ConversionConfig{
			AnimatedPolicy: AnimatedPolicySkip,
		},
		Credentials: CredentialsConfig{
			Backend: BackendFile,
		},
		Logging: LoggingConfig{
			Level: "warn",
		},
		UI: UIConfig{
			Mode:  UIModeProgress,
			Color: true,
		},
	}
}

// LoadFromEnv loads configuration from STICKERDL_* environment variables
func (c *Config) LoadFromEnv() error {
	var errs []error

	if v := os.Getenv(envPrefix + "API_ENDPOINT"); v != "" {
		c.Telegram.APIEndpoint = v
	}
	if v := os.Getenv(envPrefix + "FILE_ENDPOINT"); v != "" {
		c.Telegram.FileEndpoint = v
	}
	if v := os.Getenv(envPrefix + "TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sTIMEOUT: %w", envPrefix, err))
		} else {
			c.Telegram.Timeout = d
		}
	}
	if v := os.Getenv(envPrefix + "OUTPUT_DIR"); v != "" {
		c.Output.BaseDirectory = v
	}
	if v := os.Getenv(envPrefix + "KEEP_SOURCE"); v != "" {
		c.Output.KeepSource = parseBool(v)
	}
	if v := os.Getenv(envPrefix + "CONCURRENT_DOWNLOADS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sCONCURRENT_DOWNLOADS: %w", envPrefix, err))
		} else {
			c.Download.ConcurrentDownloads = n
		}
	}
	if v := os.Getenv(envPrefix + "MAX_RETRIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sMAX_RETRIES: %w", envPrefix, err))
		} else {
			c.Download.MaxRetries = n
		}
	}
	if v := os.Getenv(envPrefix + "ANIMATED_POLICY"); v != "" {
		c.Conversion.AnimatedPolicy = strings.ToLower(v)
	}
	if v := os.Getenv(envPrefix + "CREDENTIALS_BACKEND"); v != "" {
		c.Credentials.Backend = strings.ToLower(v)
	}
	if v := os.Getenv(envPrefix + "CREDENTIALS_FILE"); v != "" {
		c.Credentials.File = v
	}
	if v := os.Getenv(envPrefix + "LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv(envPrefix + "UI_MODE"); v != "" {
		c.UI.Mode = strings.ToLower(v)
	}
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		c.UI.Color = false
	}

	return errors.Join(errs...)
}

func parseBool(v string) bool {
	b, err := strconv.ParseBool(v)
	return err == nil && b
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	if path == "" {
		path = findConfigFile()
		if path == "" {
			return nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// DefaultPath is where `config init` writes when no path is given
func DefaultPath() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// ConfigDir returns the per-user configuration directory for stickerdl
func ConfigDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(os.Getenv("HOME"), ".config", "stickerdl")
	}
	return filepath.Join(dir, "stickerdl")
}

// findConfigFile searches for config file in standard locations
func findConfigFile() string {
	locations := []string{
		"stickerdl.yaml",
		".stickerdl.yaml",
		".stickerdl.yml",
		filepath.Join(ConfigDir(), "config.yaml"),
		filepath.Join(ConfigDir(), "config.yml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if !strings.Contains(c.Telegram.APIEndpoint, "%s") {
		errs = append(errs, errors.New("telegram api endpoint must contain %s placeholders for token and method"))
	}
	if !strings.Contains(c.Telegram.FileEndpoint, "%s") {
		errs = append(errs, errors.New("telegram file endpoint must contain %s placeholders for token and file path"))
	}
	if c.Telegram.Timeout <= 0 {
		errs = append(errs, errors.New("telegram timeout must be positive"))
	}
	if c.Telegram.RequestsPerSecond <= 0 {
		errs = append(errs, errors.New("requests per second must be positive"))
	}

	if c.Output.BaseDirectory == "" {
		errs = append(errs, errors.New("output directory is required"))
	}

	if c.Download.ConcurrentDownloads <= 0 {
		errs = append(errs, errors.New("concurrent downloads must be positive"))
	}
	if c.Download.ConcurrentDownloads > 16 {
		errs = append(errs, errors.New("concurrent downloads should not exceed 16"))
	}
	if c.Download.MaxRetries < 0 {
		errs = append(errs, errors.New("max retries cannot be negative"))
	}
	if c.Download.MaxRetries > 0 && c.Download.RetryDelay <= 0 {
		errs = append(errs, errors.New("retry delay must be positive when retries are enabled"))
	}

	switch c.Conversion.AnimatedPolicy {
	case AnimatedPolicySkip, AnimatedPolicyKeep:
	default:
		errs = append(errs, fmt.Errorf("invalid animated policy %q (want skip or keep)", c.Conversion.AnimatedPolicy))
	}
	if c.Conversion.CanvasSize < 0 || c.Conversion.CanvasSize > 4096 {
		errs = append(errs, errors.New("canvas size must be between 0 and 4096"))
	}

	switch c.Credentials.Backend {
	case BackendFile, BackendKeyring, BackendEncrypted:
	default:
		errs = append(errs, fmt.Errorf("invalid credentials backend %q", c.Credentials.Backend))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "disabled": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	switch c.UI.Mode {
	case UIModeProgress, UIModeTUI, UIModeQuiet:
	default:
		errs = append(errs, fmt.Errorf("invalid ui mode %q", c.UI.Mode))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if outputDir, ok := flags["output"].(string); ok && outputDir != "" {
		c.Output.BaseDirectory = outputDir
	}
	if workers, ok := flags["workers"].(int); ok && workers > 0 {
		c.Download.ConcurrentDownloads = workers
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
	if verbose, ok := flags["verbose"].(bool); ok && verbose {
		c.Logging.Level = "debug"
	}
	if noColor, ok := flags["no-color"].(bool); ok && noColor {
		c.UI.Color = false
	}
	if quiet, ok := flags["quiet"].(bool); ok && quiet {
		c.UI.Mode = UIModeQuiet
	}
	if tui, ok := flags["tui"].(bool); ok && tui {
		c.UI.Mode = UIModeTUI
	}
	if keep, ok := flags["keep-animated"].(bool); ok && keep {
		c.Conversion.AnimatedPolicy = AnimatedPolicyKeep
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(ConfigDir(), ".env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
