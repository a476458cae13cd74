package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// GenerateAPIKey generates a secure random API key
func GenerateAPIKey() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}

// Config holds all configuration for the agent
type Config struct {
	// Server settings
	Port         int
	Host         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// Authentication
	APIKey    string
	JWTSecret string

	// Security
	AllowedOrigins []string
	RateLimitRPS   int

	// Logging
	LogLevel string
	LogDev   bool

	// Detection
	Detection DetectionConfig

	// Setup mode
	SetupMode bool
	EnvFile   string
}

// DetectionConfig holds meeting detection settings
type DetectionConfig struct {
	// PollInterval is the period between detection cycles
	PollInterval time.Duration

	// GracePeriod is how long an ended meeting stays queryable
	GracePeriod time.Duration

	// TargetPatterns are case-insensitive substrings matched against
	// process name or command line to identify meeting applications
	TargetPatterns []string

	// TitleLookupTimeout bounds a single window-title lookup
	TitleLookupTimeout time.Duration

	// TitleCacheTTL is how long a looked-up title is reused between cycles
	TitleCacheTTL time.Duration

	// TitleWorkers bounds concurrent title lookups within one cycle
	TitleWorkers int

	// EventBuffer is the per-subscriber meeting event buffer size
	EventBuffer int

	// Title keywords for status classification
	WaitingKeywords []string
	PausedKeywords  []string
	ActiveKeywords  []string

	// AutoStart begins monitoring as soon as the agent boots
	AutoStart bool
}

// DefaultTargetPatterns returns the process signatures of the meeting
// applications the agent watches out of the box
func DefaultTargetPatterns() []string {
	return []string{
		"zoom.us",
		"zoom",
		"teams",
		"webex",
		"meet.google.com",
		"skype",
	}
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Determine .env file path
	envFile := getEnvFile()

	// Load .env file if it exists
	_ = godotenv.Load(envFile)

	cfg := &Config{
		Port:           getEnvInt("PORT", 8086),
		Host:           getEnv("HOST", "0.0.0.0"),
		ReadTimeout:    time.Duration(getEnvInt("READ_TIMEOUT_SECONDS", 30)) * time.Second,
		WriteTimeout:   time.Duration(getEnvInt("WRITE_TIMEOUT_SECONDS", 300)) * time.Second,
		APIKey:         getEnv("API_KEY", ""),
		JWTSecret:      getEnv("JWT_SECRET", ""),
		AllowedOrigins: getEnvSlice("ALLOWED_ORIGINS", []string{"*"}),
		RateLimitRPS:   getEnvInt("RATE_LIMIT_RPS", 100),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogDev:         getEnvBool("LOG_DEV", false),
		Detection: DetectionConfig{
			PollInterval:       getEnvDuration("POLL_INTERVAL", 2*time.Second),
			GracePeriod:        getEnvDuration("GRACE_PERIOD", 30*time.Second),
			TargetPatterns:     getEnvSlice("TARGET_PATTERNS", DefaultTargetPatterns()),
			TitleLookupTimeout: getEnvDuration("TITLE_LOOKUP_TIMEOUT", 750*time.Millisecond),
			TitleCacheTTL:      getEnvDuration("TITLE_CACHE_TTL", 1500*time.Millisecond),
			TitleWorkers:       getEnvInt("TITLE_WORKERS", 4),
			EventBuffer:        getEnvInt("EVENT_BUFFER", 64),
			WaitingKeywords:    getEnvSlice("WAITING_KEYWORDS", []string{"waiting", "lobby"}),
			PausedKeywords:     getEnvSlice("PAUSED_KEYWORDS", []string{"paused", "inactive", "on hold"}),
			ActiveKeywords:     getEnvSlice("ACTIVE_KEYWORDS", []string{"meeting", "call"}),
			AutoStart:          getEnvBool("AUTO_START", true),
		},
		SetupMode: false,
		EnvFile:   envFile,
	}

	// Check if API key is configured
	if cfg.APIKey == "" {
		cfg.SetupMode = true
		return cfg, nil
	}

	if cfg.JWTSecret == "" {
		// Use API key as fallback for JWT secret
		cfg.JWTSecret = cfg.APIKey
	}

	return cfg, nil
}

// getEnvFile returns the path to the .env file
func getEnvFile() string {
	if envFile := os.Getenv("ENV_FILE"); envFile != "" {
		return envFile
	}

	// Try to find .env in current directory or executable directory
	if _, err := os.Stat(".env"); err == nil {
		return ".env"
	}

	exe, err := os.Executable()
	if err == nil {
		dir := strings.TrimSuffix(exe, "/meetwatch-agent")
		envPath := dir + "/.env"
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	return ".env"
}

// SaveAPIKey saves the API key to the .env file
func (c *Config) SaveAPIKey(apiKey string) error {
	updates := map[string]string{"API_KEY": apiKey}
	if err := UpdateEnvFile(c.EnvFile, updates); err != nil {
		return err
	}

	c.APIKey = apiKey
	c.JWTSecret = apiKey
	c.SetupMode = false

	return nil
}

// UpdateEnvFile updates or adds environment variables in a .env file
func UpdateEnvFile(envFile string, updates map[string]string) error {
	// Read existing .env content
	existingContent := ""
	if data, err := os.ReadFile(envFile); err == nil {
		existingContent = string(data)
	}

	lines := strings.Split(existingContent, "\n")
	found := make(map[string]bool)

	// Update existing keys
	for i, line := range lines {
		for key, value := range updates {
			if strings.HasPrefix(line, key+"=") {
				lines[i] = key + "=" + value
				found[key] = true
				break
			}
		}
	}

	// Add missing keys at the beginning
	var newLines []string
	for key, value := range updates {
		if !found[key] {
			newLines = append(newLines, key+"="+value)
		}
	}
	if len(newLines) > 0 {
		lines = append(newLines, lines...)
	}

	// Remove empty lines at the end
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}

	content := strings.Join(lines, "\n") + "\n"
	if err := os.WriteFile(envFile, []byte(content), 0600); err != nil {
		return fmt.Errorf("failed to write .env file: %w", err)
	}

	return nil
}

// LoadWithDefaults loads config with defaults for testing
func LoadWithDefaults() *Config {
	return &Config{
		Port:           8086,
		Host:           "0.0.0.0",
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   300 * time.Second,
		APIKey:         "test-api-key",
		JWTSecret:      "test-jwt-secret",
		AllowedOrigins: []string{"*"},
		RateLimitRPS:   100,
		LogLevel:       "info",
		Detection: DetectionConfig{
			PollInterval:       2 * time.Second,
			GracePeriod:        30 * time.Second,
			TargetPatterns:     DefaultTargetPatterns(),
			TitleLookupTimeout: 750 * time.Millisecond,
			TitleCacheTTL:      1500 * time.Millisecond,
			TitleWorkers:       4,
			EventBuffer:        64,
			WaitingKeywords:    []string{"waiting", "lobby"},
			PausedKeywords:     []string{"paused", "inactive", "on hold"},
			ActiveKeywords:     []string{"meeting", "call"},
			AutoStart:          false,
		},
	}
}

// Addr returns the server address string
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}
