package config

import (
	"fmt"
	"net/netip"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config keeps runtime settings for the API server.
type Config struct {
	HTTPAddr           string
	DatabaseURL        string
	JWTSecret          string
	JWTExpiresIn       time.Duration
	RedisURL           string
	AuthRateLimit      int
	AuthRateWindow     time.Duration
	CORSAllowedOrigins string
	// TrustedProxies lists peers whose X-Forwarded-For / X-Real-IP headers are
	// believed. Empty means the socket address is always used.
	TrustedProxies         []netip.Prefix
	MetricsRefreshInterval time.Duration
	OTelEndpoint           string
	LogFormat              string
}

// Load reads configuration from the environment (and an optional .env file) with sane defaults.
func Load() (Config, error) {
	// A missing .env is the normal case outside local development.
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("HTTP_ADDR", ":4000")
	v.SetDefault("DATABASE_URL", "task_manager.db")
	v.SetDefault("JWT_EXPIRES_IN", "24h")
	v.SetDefault("AUTH_RATE_LIMIT", 5)
	v.SetDefault("AUTH_RATE_WINDOW", "1m")
	v.SetDefault("METRICS_REFRESH_INTERVAL", "1m")
	v.SetDefault("LOG_FORMAT", "text")

	return fromViper(v)
}

func fromViper(v *viper.Viper) (Config, error) {
	cfg := Config{
		HTTPAddr:               strings.TrimSpace(v.GetString("HTTP_ADDR")),
		DatabaseURL:            strings.TrimSpace(v.GetString("DATABASE_URL")),
		JWTSecret:              strings.TrimSpace(v.GetString("JWT_SECRET")),
		JWTExpiresIn:           v.GetDuration("JWT_EXPIRES_IN"),
		RedisURL:               strings.TrimSpace(v.GetString("REDIS_URL")),
		AuthRateLimit:          v.GetInt("AUTH_RATE_LIMIT"),
		AuthRateWindow:         v.GetDuration("AUTH_RATE_WINDOW"),
		CORSAllowedOrigins:     strings.TrimSpace(v.GetString("CORS_ALLOWED_ORIGINS")),
		MetricsRefreshInterval: v.GetDuration("METRICS_REFRESH_INTERVAL"),
		OTelEndpoint:           strings.TrimSpace(v.GetString("OTEL_EXPORTER_OTLP_ENDPOINT")),
		LogFormat:              strings.ToLower(strings.TrimSpace(v.GetString("LOG_FORMAT"))),
	}

	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":4000"
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = "task_manager.db"
	}
	if cfg.JWTExpiresIn <= 0 {
		cfg.JWTExpiresIn = 24 * time.Hour
	}
	if cfg.AuthRateLimit <= 0 {
		cfg.AuthRateLimit = 5
	}
	if cfg.AuthRateWindow <= 0 {
		cfg.AuthRateWindow = time.Minute
	}

	proxies, err := parseTrustedProxies(v.GetString("TRUSTED_PROXIES"))
	if err != nil {
		return cfg, err
	}
	cfg.TrustedProxies = proxies

	if cfg.JWTSecret == "" {
		return cfg, fmt.Errorf("JWT_SECRET is required")
	}

	return cfg, nil
}

// parseTrustedProxies accepts a comma-separated list of CIDRs or bare IPs.
func parseTrustedProxies(raw string) ([]netip.Prefix, error) {
	var out []netip.Prefix
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if strings.Contains(part, "/") {
			prefix, err := netip.ParsePrefix(part)
			if err != nil {
				return nil, fmt.Errorf("TRUSTED_PROXIES: %w", err)
			}
			out = append(out, prefix.Masked())
			continue
		}
		addr, err := netip.ParseAddr(part)
		if err != nil {
			return nil, fmt.Errorf("TRUSTED_PROXIES: %w", err)
		}
		addr = addr.Unmap()
		out = append(out, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return out, nil
}
