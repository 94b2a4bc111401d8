package config

import (
	"os"

	"github.com/joho/godotenv"
)

// Config holds process-wide configuration. It is built once in main and passed
// by pointer; nothing reads the environment after startup.
type Config struct {
	ServiceName  string
	Port         string
	OTELEndpoint string

	// Payment platform.
	PiPlatformURL string
	PiAPIKey      string
	ValidationKey string

	// A2U settlement wallet. The secret is never logged or echoed.
	WalletSecret  string
	WalletAddress string

	// Ledger endpoints, one fixed pair. The payment's declared network picks
	// between them at submission time.
	HorizonMainnetURL string
	HorizonTestnetURL string

	// Optional advisory-lock backend. Empty disables locking.
	RedisAddr string
}

// Load reads configuration from a .env file (if present) and the environment.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		ServiceName:  "pi-gateway",
		Port:         getEnv("PORT", "8080"),
		OTELEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),

		PiPlatformURL: getEnv("PI_PLATFORM_URL", "https://api.minepi.com"),
		PiAPIKey:      os.Getenv("PI_API_KEY"),
		ValidationKey: os.Getenv("PI_VALIDATION_KEY"),

		WalletSecret:  os.Getenv("PI_WALLET_PRIVATE_SEED"),
		WalletAddress: os.Getenv("PI_WALLET_PUBLIC_KEY"),

		HorizonMainnetURL: getEnv("HORIZON_MAINNET_URL", "https://api.mainnet.minepi.com"),
		HorizonTestnetURL: getEnv("HORIZON_TESTNET_URL", "https://api.testnet.minepi.com"),

		RedisAddr: os.Getenv("REDIS_ADDR"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
