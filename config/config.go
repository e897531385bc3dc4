package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

type Config struct {
	Port           string
	AllowedOrigins []string
	RequestTimeout time.Duration

	MongoURI      string
	MongoDatabase string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CartCacheTTL  time.Duration

	JWTSecret string
	JWTTTL    time.Duration

	// FinalizeClaimTTL is how long a finalizing checkout stays locked before a
	// retry may take the claim over.
	FinalizeClaimTTL time.Duration

	PaymentVerifier     string
	EthRPCURL           string
	EthMerchantAddress  string
	EthMinConfirmations uint64
	EthWeiPerUnit       string
}

// LoadEnv loads environment variables from a .env file
func LoadEnv() {
	err := godotenv.Load(".env")
	if err != nil {
		log.Println("No .env file loaded, using process environment")
	}
}

// GetEnv retrieves environment variables with a fallback
func GetEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// Load reads the .env file (if any) and builds a Config from the environment.
func Load() (*Config, error) {
	LoadEnv()
	return FromEnv()
}

// FromEnv builds a Config from the current process environment only.
func FromEnv() (*Config, error) {
	cfg := &Config{
		Port:               GetEnv("PORT", "9000"),
		AllowedOrigins:     splitList(GetEnv("CORS_ORIGINS", "http://localhost:5173")),
		MongoURI:           GetEnv("MONGODB_URI", "mongodb://localhost:27017"),
		MongoDatabase:      GetEnv("MONGODB_DATABASE", "mivine"),
		RedisAddr:          GetEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:      GetEnv("REDIS_PASSWORD", ""),
		JWTSecret:          GetEnv("JWT_SECRET", ""),
		PaymentVerifier:    GetEnv("PAYMENT_VERIFIER", "ethereum"),
		EthRPCURL:          GetEnv("ETH_RPC_URL", ""),
		EthMerchantAddress: GetEnv("ETH_MERCHANT_ADDRESS", ""),
		EthWeiPerUnit:      GetEnv("ETH_WEI_PER_UNIT", "1000000000000000"),
	}

	var err error
	if cfg.RedisDB, err = strconv.Atoi(GetEnv("REDIS_DB", "0")); err != nil {
		return nil, errors.Wrap(err, "REDIS_DB")
	}
	if cfg.EthMinConfirmations, err = strconv.ParseUint(GetEnv("ETH_MIN_CONFIRMATIONS", "1"), 10, 64); err != nil {
		return nil, errors.Wrap(err, "ETH_MIN_CONFIRMATIONS")
	}
	durations := []struct {
		key      string
		fallback string
		dst      *time.Duration
	}{
		{"REQUEST_TIMEOUT", "10s", &cfg.RequestTimeout},
		{"CART_CACHE_TTL", "15m", &cfg.CartCacheTTL},
		{"JWT_TTL", "40h", &cfg.JWTTTL},
		{"FINALIZE_CLAIM_TTL", "2m", &cfg.FinalizeClaimTTL},
	}
	for _, d := range durations {
		if *d.dst, err = time.ParseDuration(GetEnv(d.key, d.fallback)); err != nil {
			return nil, errors.Wrap(err, d.key)
		}
	}

	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	switch cfg.PaymentVerifier {
	case "ethereum":
		if cfg.EthRPCURL == "" || cfg.EthMerchantAddress == "" {
			return nil, errors.New("ETH_RPC_URL and ETH_MERCHANT_ADDRESS are required for the ethereum payment verifier")
		}
	case "manual":
	default:
		return nil, errors.Errorf("unknown PAYMENT_VERIFIER %q", cfg.PaymentVerifier)
	}
	return cfg, nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
