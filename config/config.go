package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	InstagramUsername string
	InstagramPassword string

	MaxPosts          int
	NavTimeoutSec     int
	SettleTimeoutSec  int
	DialogTimeoutSec  int
	FirstPostTimeout  int
	PostDelayMs       int
	AdvanceDelayMinMs int
	AdvanceDelayMaxMs int
	PollIntervalMs    int

	Headless    bool
	ChromeBin   string
	LogFilePath string

	PostgresEnabled  bool
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string
}

// Load reads the .env file and returns a populated Config struct.
// The Instagram credentials are not validated here; a missing value
// surfaces later as a failed login.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	return &Config{
		InstagramUsername: getEnv("INSTAGRAM_USERNAME", ""),
		InstagramPassword: getEnv("INSTAGRAM_PASSWORD", ""),

		MaxPosts:          getEnvInt("MAX_POSTS", 20),
		NavTimeoutSec:     getEnvInt("NAV_TIMEOUT_SEC", 30),
		SettleTimeoutSec:  getEnvInt("SETTLE_TIMEOUT_SEC", 5),
		DialogTimeoutSec:  getEnvInt("DIALOG_TIMEOUT_SEC", 10),
		FirstPostTimeout:  getEnvInt("FIRST_POST_TIMEOUT_SEC", 20),
		PostDelayMs:       getEnvInt("POST_DELAY_MS", 5000),
		AdvanceDelayMinMs: getEnvInt("ADVANCE_DELAY_MIN_MS", 2000),
		AdvanceDelayMaxMs: getEnvInt("ADVANCE_DELAY_MAX_MS", 4000),
		PollIntervalMs:    getEnvInt("POLL_INTERVAL_MS", 250),

		Headless:    getEnvBool("HEADLESS", true),
		ChromeBin:   getEnv("CHROME_BIN", ""),
		LogFilePath: getEnv("LOG_FILE_PATH", "instagram_scraper.log"),

		PostgresEnabled:  getEnvBool("POSTGRES_ENABLED", false),
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "scraper"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "scraper123"),
		PostgresDB:       getEnv("POSTGRES_DB", "instagram_db"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
	}
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

// CSVPath returns the output file name for a profile, e.g.
// "natgeo_instagram_posts.csv".
func (c *Config) CSVPath(profile string) string {
	return profile + "_instagram_posts.csv"
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		b, err := strconv.ParseBool(val)
		if err == nil {
			return b
		}
	}
	return fallback
}
