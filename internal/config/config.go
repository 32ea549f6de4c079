package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

const devSecret = "hackmath-dev-secret"

type Config struct {
	Mode     Mode
	HTTPAddr string

	DBDriver string
	DBDSN    string

	AuthSecret         string
	AuthTokenTTL       time.Duration
	EnableRegistration bool

	AdminUser     string
	AdminPassHash string // bcrypt; bootstrap is skipped when empty

	CORSOriginsOnline  []string
	CORSOriginsOffline []string

	// Token revocation; in-memory when RedisAddr is empty
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	EnableMetrics bool
	SiteID        string // event_log.site_id
}

// Load reads an optional .env file and then the environment.
func Load() Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("config: .env: %v", err)
	}
	return FromEnv()
}

func FromEnv() Config {
	mode := Mode(os.Getenv("MODE"))
	if mode == "" {
		mode = ModeOffline
	}
	return Config{
		Mode:               mode,
		HTTPAddr:           envOr("HTTP_ADDR", ":8080"),
		DBDriver:           envOr("DB_DRIVER", "sqlite"),
		DBDSN:              envOr("DB_DSN", ""),
		AuthSecret:         envOr("AUTH_HMAC_SECRET", devSecret),
		AuthTokenTTL:       envDuration("AUTH_TOKEN_TTL", 8*time.Hour),
		EnableRegistration: envBool("ENABLE_REGISTRATION", true),
		AdminUser:          envOr("ADMIN_USER", "admin"),
		AdminPassHash:      os.Getenv("ADMIN_PASS_HASH"),
		CORSOriginsOnline:  csvOr("CORS_ORIGINS_ONLINE", "https://hackmath.example.com"),
		CORSOriginsOffline: csvOr("CORS_ORIGINS_OFFLINE", "http://localhost:3000,http://localhost:5173"),
		RedisAddr:          os.Getenv("REDIS_ADDR"),
		RedisPassword:      os.Getenv("REDIS_PASSWORD"),
		RedisDB:            envInt("REDIS_DB", 0),
		EnableMetrics:      envBool("ENABLE_METRICS", true),
		SiteID:             envOr("SITE_ID", "local"),
	}
}

// CORSOrigins returns the allow-list for the current mode.
func (c Config) CORSOrigins() []string {
	if c.Mode == ModeOnline {
		return c.CORSOriginsOnline
	}
	return c.CORSOriginsOffline
}

// UsesDevSecret reports whether tokens are signed with the built-in key.
func (c Config) UsesDevSecret() bool { return c.AuthSecret == devSecret }

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}
func envBool(k string, def bool) bool {
	switch os.Getenv(k) {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return def
	}
}
func envInt(k string, def int) int {
	n, err := strconv.Atoi(os.Getenv(k))
	if err != nil {
		return def
	}
	return n
}
func envDuration(k string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(k))
	if err != nil || d <= 0 {
		return def
	}
	return d
}
func csvOr(k, def string) []string {
	v := envOr(k, def)
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
