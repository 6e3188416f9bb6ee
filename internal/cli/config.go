package cli

import "os"

// Config holds CLI configuration
type Config struct {
	ServerURL string
	Token     string
}

// DefaultConfig returns a Config with default values
func DefaultConfig() *Config {
	return &Config{
		ServerURL: getEnvOrDefault("CHATGATE_SERVER", "http://localhost:8080"),
		Token:     os.Getenv("CHATGATE_TOKEN"),
	}
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
