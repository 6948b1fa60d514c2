package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Development defaults, accepted only outside release mode.
const (
	devSigningKey    = "default_super_secret_key"
	devAdminPassword = "admin123"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Session  SessionConfig
	Logging  LoggingConfig
	Admin    AdminConfig
	Pages    PagesConfig
}

type ServerConfig struct {
	Port        string
	Mode        string // gin mode: debug, release, test
	CORSOrigins []string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type SessionConfig struct {
	SigningKey   string
	Issuer       string
	Expiry       time.Duration
	SecureCookie bool
}

type LoggingConfig struct {
	Level      string
	Format     string // "json" or "text"
	Filename   string
	MaxSize    int // megabytes
	MaxBackups int
	MaxAge     int // days
	Compress   bool
}

// AdminConfig describes the constant administrator account seeded at start.
type AdminConfig struct {
	Email       string
	Password    string
	DisplayName string
}

type PagesConfig struct {
	PublicEntry string
	Forbidden   string
	PublicPages []string
	MenuFile    string // optional override of the built-in menu
}

func Load() *Config {
	mode := getEnv("GIN_MODE", "debug")
	return &Config{
		Server: ServerConfig{
			Port:        getEnv("PORT", "8080"),
			Mode:        mode,
			CORSOrigins: getEnvList("CORS_ORIGINS", []string{"http://localhost:5173", "http://127.0.0.1:5173"}),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "postgres"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Session: SessionConfig{
			SigningKey:   getEnv("JWT_SECRET", devSigningKey),
			Issuer:       getEnv("JWT_ISSUER", "dopravni-system"),
			Expiry:       getEnvDuration("SESSION_EXPIRY", 24*time.Hour),
			SecureCookie: getEnvBool("SESSION_SECURE_COOKIE", mode == "release"),
		},
		Logging: LoggingConfig{
			Level:      getEnv("LOG_LEVEL", "info"),
			Format:     getEnv("LOG_FORMAT", "text"),
			Filename:   getEnv("LOG_FILE", "logs/server.log"),
			MaxSize:    getEnvInt("LOG_MAX_SIZE_MB", 50),
			MaxBackups: getEnvInt("LOG_MAX_BACKUPS", 5),
			MaxAge:     getEnvInt("LOG_MAX_AGE_DAYS", 28),
			Compress:   getEnvBool("LOG_COMPRESS", true),
		},
		Admin: AdminConfig{
			Email:       getEnv("ADMIN_EMAIL", "admin@dopravni-system.cz"),
			Password:    getEnv("ADMIN_PASSWORD", devAdminPassword),
			DisplayName: getEnv("ADMIN_NAME", "Administrátor"),
		},
		Pages: PagesConfig{
			PublicEntry: getEnv("PAGE_PUBLIC_ENTRY", "/"),
			Forbidden:   getEnv("PAGE_FORBIDDEN", "/forbidden"),
			PublicPages: getEnvList("PAGE_PUBLIC", []string{"/login", "/favicon.ico", "/static/assets"}),
			MenuFile:    getEnv("MENU_FILE", ""),
		},
	}
}

// Validate rejects settings that are unsafe in release mode.
func (c *Config) Validate() error {
	if c.Server.Mode == "release" && c.Session.SigningKey == devSigningKey {
		return errors.New("JWT_SECRET environment variable is required in release mode")
	}
	if c.Server.Mode == "release" && c.Admin.Password == devAdminPassword {
		return errors.New("ADMIN_PASSWORD environment variable is required in release mode")
	}
	if c.Session.Expiry <= 0 {
		return fmt.Errorf("SESSION_EXPIRY must be positive, got %s", c.Session.Expiry)
	}
	if c.Admin.Email == "" {
		return errors.New("ADMIN_EMAIL must not be empty")
	}
	return nil
}

func (c *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     net.JoinHostPort(c.Host, c.Port),
		Path:     "/" + c.DBName,
		RawQuery: url.Values{"sslmode": {c.SSLMode}}.Encode(),
	}
	return u.String()
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
