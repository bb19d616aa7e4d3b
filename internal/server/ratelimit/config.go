package ratelimit

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// EndpointConfig represents rate limiting configuration for a specific endpoint.
type EndpointConfig struct {
	Path   string        // Endpoint path pattern (supports prefix matching)
	Method string        // HTTP method (GET, POST, etc.)
	Limit  int           // Maximum requests per window
	Window time.Duration // Time window
	Burst  int           // Burst capacity (defaults to Limit if 0)
}

// LoadConfig builds the limiter configuration. generateRPS bounds how often one client
// may start a generation; the remaining settings come from RATE_LIMIT_* variables read
// through getenv.
func LoadConfig(generateRPS float64, getenv func(string) string) *Config {
	if !getEnvBool(getenv, "RATE_LIMIT_ENABLED", true) {
		return &Config{Enabled: false}
	}

	return &Config{
		Enabled:         true,
		DefaultLimit:    getEnvInt(getenv, "RATE_LIMIT_DEFAULT_LIMIT", 600),
		DefaultWindow:   getEnvDuration(getenv, "RATE_LIMIT_DEFAULT_WINDOW", time.Minute),
		CleanupInterval: getEnvDuration(getenv, "RATE_LIMIT_CLEANUP_INTERVAL", 5*time.Minute),
		Whitelist:       parseIPList(getenv("RATE_LIMIT_WHITELIST")),
		Blacklist:       parseIPList(getenv("RATE_LIMIT_BLACKLIST")),
		EndpointConfigs: DefaultEndpointConfigs(generateRPS),
	}
}

// DefaultEndpointConfigs returns the endpoint-specific configurations. Generation and
// context analysis call paid services, so they get the strict per-minute budget.
func DefaultEndpointConfigs(generateRPS float64) []EndpointConfig {
	if generateRPS <= 0 {
		generateRPS = 1
	}
	perMinute := max(1, int(math.Round(generateRPS*60)))
	burst := max(1, int(math.Ceil(generateRPS*5)))

	return []EndpointConfig{
		// Expensive operations
		{Path: "/v1/generate", Method: "POST", Limit: perMinute, Window: time.Minute, Burst: burst},
		{Path: "/v1/generate/stream", Method: "POST", Limit: perMinute, Window: time.Minute, Burst: burst},
		{Path: "/v1/context", Method: "POST", Limit: perMinute, Window: time.Minute, Burst: burst},

		// Status polling
		{Path: "/v1/runs/", Method: "GET", Limit: 300, Window: time.Minute, Burst: 30},
	}
}

func getEnvInt(getenv func(string) string, key string, defaultValue int) int {
	if value := getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(getenv func(string) string, key string, defaultValue bool) bool {
	if value := getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(getenv func(string) string, key string, defaultValue time.Duration) time.Duration {
	if value := getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// parseIPList parses a comma-separated list of IP addresses into a map.
func parseIPList(list string) map[string]bool {
	result := make(map[string]bool)
	for _, ip := range strings.Split(list, ",") {
		if ip = strings.TrimSpace(ip); ip != "" {
			result[ip] = true
		}
	}
	return result
}
