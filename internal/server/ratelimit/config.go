package ratelimit

import (
	"os"
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

// LoadConfig builds the rate limiting configuration from environment
// variables read through getenv. A nil getenv reads the process environment.
func LoadConfig(getenv func(string) string) *Config {
	if getenv == nil {
		getenv = os.Getenv
	}
	env := envReader(getenv)

	if !env.boolean("RATE_LIMIT_ENABLED", true) {
		return &Config{Enabled: false}
	}

	return &Config{
		Enabled:         true,
		DefaultLimit:    env.integer("RATE_LIMIT_DEFAULT_LIMIT", 1000),
		DefaultWindow:   env.duration("RATE_LIMIT_DEFAULT_WINDOW", time.Minute),
		CleanupInterval: env.duration("RATE_LIMIT_CLEANUP_INTERVAL", 5*time.Minute),
		Whitelist:       parseIPList(env("RATE_LIMIT_WHITELIST")),
		Blacklist:       parseIPList(env("RATE_LIMIT_BLACKLIST")),
		EndpointConfigs: DefaultEndpointConfigs(env.integer("RATE_LIMIT_SUBMISSIONS_PER_HOUR", 30)),
	}
}

// DefaultEndpointConfigs returns the endpoint-specific limits. Submissions
// write to every delivery channel and are held to submissionsPerHour;
// rendering is cheaper and is only bounded per minute.
func DefaultEndpointConfigs(submissionsPerHour int) []EndpointConfig {
	burst := max(submissionsPerHour/10, 1)
	return []EndpointConfig{
		{Path: "/submissions", Method: "POST", Limit: submissionsPerHour, Window: time.Hour, Burst: burst},
		{Path: "/submissions/stream", Method: "POST", Limit: submissionsPerHour, Window: time.Hour, Burst: burst},
		{Path: "/render", Method: "POST", Limit: 60, Window: time.Minute, Burst: 10},
	}
}

type envReader func(string) string

func (e envReader) integer(key string, defaultValue int) int {
	if v, err := strconv.Atoi(e(key)); err == nil {
		return v
	}
	return defaultValue
}

func (e envReader) boolean(key string, defaultValue bool) bool {
	if v, err := strconv.ParseBool(e(key)); err == nil {
		return v
	}
	return defaultValue
}

func (e envReader) duration(key string, defaultValue time.Duration) time.Duration {
	if v, err := time.ParseDuration(e(key)); err == nil {
		return v
	}
	return defaultValue
}

// parseIPList parses a comma-separated list of IP addresses into a map.
func parseIPList(list string) map[string]bool {
	result := make(map[string]bool)
	if list == "" {
		return result
	}

	ips := strings.Split(list, ",")
	for _, ip := range ips {
		ip = strings.TrimSpace(ip)
		if ip != "" {
			result[ip] = true
		}
	}

	return result
}

