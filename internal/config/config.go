// Package config loads runtime settings from the environment, with an
// optional .env file for local development.
package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds everything the server needs to start. Adapter
// credentials may be empty; the matching adapter then reports
// unavailable and is simply not wired in.
type Config struct {
	DBPath       string
	SalesLogPath string
	CacheDir     string
	ListenAddr   string
	SyncInterval time.Duration

	EbayClientID     string
	EbayClientSecret string
	EbayRefreshToken string
	EbaySandbox      bool

	EtsyAPIKey      string
	EtsyAccessToken string
	EtsyShopID      int64

	DepopSeller string
}

// Load reads configuration from the environment. A missing .env file
// is not an error.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using environment variables")
	}

	return Config{
		DBPath:       getEnv("CROSSLIST_DB", "crosslist.db"),
		SalesLogPath: getEnv("CROSSLIST_SALES_LOG", "sales.csv"),
		CacheDir:     getEnv("CROSSLIST_CACHE_DIR", ".cache"),
		ListenAddr:   getEnv("CROSSLIST_ADDR", ":8080"),
		SyncInterval: getDuration("CROSSLIST_SYNC_INTERVAL", 5*time.Minute),

		EbayClientID:     os.Getenv("EBAY_CLIENT_ID"),
		EbayClientSecret: os.Getenv("EBAY_CLIENT_SECRET"),
		EbayRefreshToken: os.Getenv("EBAY_REFRESH_TOKEN"),
		EbaySandbox:      getBool("EBAY_SANDBOX", false),

		EtsyAPIKey:      os.Getenv("ETSY_API_KEY"),
		EtsyAccessToken: os.Getenv("ETSY_ACCESS_TOKEN"),
		EtsyShopID:      getInt64("ETSY_SHOP_ID", 0),

		DepopSeller: os.Getenv("DEPOP_SELLER"),
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		log.Printf("invalid %s=%q, using %v", key, value, fallback)
		return fallback
	}
	return parsed
}

func getInt64(key string, fallback int64) int64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		log.Printf("invalid %s=%q, using %d", key, value, fallback)
		return fallback
	}
	return parsed
}

func getDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		log.Printf("invalid %s=%q, using %s", key, value, fallback)
		return fallback
	}
	return parsed
}
