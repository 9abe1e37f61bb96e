package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2/log"
	"github.com/joho/godotenv"
)

const (
	DefaultPort                   = "8080"
	DefaultAccessTokenExpiryMin   = 15
	DefaultRefreshTokenExpiryMin  = 10080
	DefaultMaxActiveRefreshTokens = 5
	DefaultLoginMaxAttempts       = 5
	DefaultLoginWindowMinutes     = 15
	DefaultOwnerEmail             = "hotclass@dono.com"
	DefaultBaseDeviceSlots        = 3
	DefaultUnlockMaxAttempts      = 5
	DefaultUnlockWindowMinutes    = 15
	DefaultUnknownIPPolicy        = UnknownIPAllow
	DefaultIPLookupURL            = "https://api.ipify.org?format=json"
	DefaultIPLookupTimeoutSec     = 5
	DefaultIPLookupCacheMinutes   = 60
	DefaultResetCodeTTLMinutes    = 30
)

// Policies for a sign-in whose client IP could not be resolved.
const (
	UnknownIPAllow = "allow"
	UnknownIPDeny  = "deny"
)

type Config struct {
	Env                    string
	Port                   string
	DBURL                  string
	AccessTokenSecret      string
	RefreshTokenSecret     string
	AccessExpiryMin        int
	RefreshExpiryMin       int
	MaxActiveRefreshTokens int
	LoginMaxAttempts       int
	LoginWindowMinutes     int

	OwnerEmail          string
	OwnerPasswordHash   string
	BaseDeviceSlots     int
	UnlockPasswordHash  string
	UnlockMaxAttempts   int
	UnlockWindowMinutes int
	UnknownIPPolicy     string

	IPLookupURL          string
	IPLookupTimeoutSec   int
	IPLookupCacheMinutes int
	ProxyHeader          string
	// TrustedProxies lists the addresses or CIDRs allowed to set ProxyHeader.
	TrustedProxies []string

	SupportURL          string
	ResetCodeTTLMinutes int
}

// fileValues holds the entries of the env file read by the last Load call.
var fileValues map[string]string

// Load reads config/.env.<env> (if present) and then the process environment.
// Variables set in the environment take precedence over the file.
func Load() *Config {
	env := os.Getenv("ENV")
	if env == "" {
		env = "development"
	}
	fileValues = readEnvFile(env)

	return &Config{
		Env:                    env,
		Port:                   getEnv("PORT", DefaultPort),
		DBURL:                  mustGetEnv("DB_URL"),
		AccessTokenSecret:      mustGetEnv("ACCESS_TOKEN_SECRET"),
		RefreshTokenSecret:     mustGetEnv("REFRESH_TOKEN_SECRET"),
		AccessExpiryMin:        getEnvAsInt("ACCESS_TOKEN_EXPIRY", DefaultAccessTokenExpiryMin),
		RefreshExpiryMin:       getEnvAsInt("REFRESH_TOKEN_EXPIRY", DefaultRefreshTokenExpiryMin),
		MaxActiveRefreshTokens: getEnvAsInt("MAX_ACTIVE_REFRESH_TOKENS", DefaultMaxActiveRefreshTokens),
		LoginMaxAttempts:       getEnvAsInt("LOGIN_MAX_ATTEMPTS", DefaultLoginMaxAttempts),
		LoginWindowMinutes:     getEnvAsInt("LOGIN_WINDOW_MINUTES", DefaultLoginWindowMinutes),

		OwnerEmail:          getEnv("OWNER_EMAIL", DefaultOwnerEmail),
		OwnerPasswordHash:   getEnv("OWNER_PASSWORD_HASH", ""),
		BaseDeviceSlots:     getEnvAsInt("BASE_DEVICE_SLOTS", DefaultBaseDeviceSlots),
		UnlockPasswordHash:  getEnv("UNLOCK_PASSWORD_HASH", ""),
		UnlockMaxAttempts:   getEnvAsInt("UNLOCK_MAX_ATTEMPTS", DefaultUnlockMaxAttempts),
		UnlockWindowMinutes: getEnvAsInt("UNLOCK_WINDOW_MINUTES", DefaultUnlockWindowMinutes),
		UnknownIPPolicy:     getUnknownIPPolicy(),

		IPLookupURL:          getEnv("IP_LOOKUP_URL", DefaultIPLookupURL),
		IPLookupTimeoutSec:   getEnvAsInt("IP_LOOKUP_TIMEOUT_SEC", DefaultIPLookupTimeoutSec),
		IPLookupCacheMinutes: getEnvAsInt("IP_LOOKUP_CACHE_MINUTES", DefaultIPLookupCacheMinutes),
		ProxyHeader:          getEnv("PROXY_HEADER", ""),
		TrustedProxies:       getEnvAsList("TRUSTED_PROXIES"),

		SupportURL:          getEnv("SUPPORT_URL", ""),
		ResetCodeTTLMinutes: getEnvAsInt("RESET_CODE_TTL_MINUTES", DefaultResetCodeTTLMinutes),
	}
}

func readEnvFile(env string) map[string]string {
	name := ".env." + env
	switch env {
	case "development":
		name = ".env.dev"
	case "production":
		name = ".env.prod"
	}

	path := filepath.Join("config", name)
	if _, err := os.Stat(path); err != nil {
		return map[string]string{}
	}
	values, err := godotenv.Read(path)
	if err != nil {
		log.Warnf("failed to read %s: %v", path, err)
		return map[string]string{}
	}
	return values
}

func lookup(key string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fileValues[key]
}

func getEnv(key string, defaultVal string) string {
	if value := lookup(key); value != "" {
		return value
	}
	return defaultVal
}

func mustGetEnv(key string) string {
	if value := lookup(key); value != "" {
		return value
	}
	log.Fatalf("Missing required config: %s", key)
	return ""
}

func getEnvAsInt(key string, defaultVal int) int {
	valStr := lookup(key)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(valStr)
	if err != nil {
		log.Warnf("Invalid value for %s, using default %d", key, defaultVal)
		return defaultVal
	}
	return val
}

// getEnvAsList splits a comma-separated value, dropping empty entries.
func getEnvAsList(key string) []string {
	var out []string
	for _, item := range strings.Split(lookup(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func getUnknownIPPolicy() string {
	policy := getEnv("UNKNOWN_IP_POLICY", DefaultUnknownIPPolicy)
	if policy != UnknownIPAllow && policy != UnknownIPDeny {
		log.Warnf("Invalid value for UNKNOWN_IP_POLICY %q, using default %s", policy, DefaultUnknownIPPolicy)
		return DefaultUnknownIPPolicy
	}
	return policy
}
