package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
)

var hexAddressRegexp = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// Config holds all runtime configuration, loaded once in main and passed down.
type Config struct {
	// HTTP
	ListenAddr string

	// Database
	DBPath string

	// Chain RPC
	RPCURL    string
	RPCAPIKey string

	// Payments
	TokenAddress    string // USDC contract
	ReceiverAddress string // treasury wallet receiving transfers

	// Webhook
	WebhookSecret string

	// Admission control
	RateLimitRPS   float64
	RateLimitBurst int

	// Economy
	DailyPicksBase int
	DailyPicksOG   int
}

// Load reads configuration from the environment with sane defaults.
func Load() *Config {
	return &Config{
		ListenAddr: getEnv("LISTEN_ADDR", "127.0.0.1:8090"),
		DBPath:     getEnv("DB_PATH", "boxdrop.db"),

		RPCURL:    strings.TrimSuffix(getEnv("RPC_URL", "https://mainnet.base.org"), "/"),
		RPCAPIKey: getEnv("RPC_API_KEY", ""),

		TokenAddress:    strings.ToLower(getEnv("USDC_ADDRESS", "0x833589fcd6edb6e08f4c7c32d4f71b54bda02913")),
		ReceiverAddress: strings.ToLower(getEnv("RECEIVER_ADDRESS", "")),

		WebhookSecret: getEnv("WEBHOOK_SECRET", ""),

		RateLimitRPS:   getEnvFloat("RATE_LIMIT_RPS", 2),
		RateLimitBurst: getEnvInt("RATE_LIMIT_BURST", 5),

		DailyPicksBase: getEnvInt("DAILY_PICKS_BASE", 1),
		DailyPicksOG:   getEnvInt("DAILY_PICKS_OG", 2),
	}
}

// Validate fails fast on configuration that would make every settlement
// unverifiable, instead of surfacing it one intent at a time.
func (c *Config) Validate() error {
	if !IsHexAddress(c.TokenAddress) {
		return fmt.Errorf("USDC_ADDRESS %q is not a valid address", c.TokenAddress)
	}
	if !IsHexAddress(c.ReceiverAddress) {
		return fmt.Errorf("RECEIVER_ADDRESS %q is not a valid address", c.ReceiverAddress)
	}
	if c.DailyPicksBase < 1 || c.DailyPicksOG < c.DailyPicksBase {
		return fmt.Errorf("daily pick allotments misconfigured: base=%d og=%d", c.DailyPicksBase, c.DailyPicksOG)
	}
	return nil
}

// IsHexAddress reports whether s looks like a 20-byte 0x-prefixed hex address.
func IsHexAddress(s string) bool {
	return hexAddressRegexp.MatchString(s)
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}
