package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type Config struct {
	// Database
	DatabaseURL string

	// Server
	Port        string
	Environment string

	// Invoice storage
	UploadDir     string
	UploadTempDir string

	// Auth
	JWTSecret  string
	CSRFSecret string

	// Mail
	SMTPHost string
	SMTPPort int
	SMTPUser string
	SMTPPass string
	MailFrom string

	// Shop identity used in outgoing emails
	ShopName string
	ShopURL  string
}

func Load() (*Config, error) {
	smtpPort, err := strconv.Atoi(getEnv("SMTP_PORT", "587"))
	if err != nil {
		return nil, fmt.Errorf("invalid SMTP_PORT: %w", err)
	}

	cfg := &Config{
		DatabaseURL: getEnv("DATABASE_URL", ""),

		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),

		UploadDir:     getEnv("UPLOAD_DIR", "./uploads/invoices"),
		UploadTempDir: getEnv("UPLOAD_TEMP_DIR", filepath.Join(os.TempDir(), "invoice-intake")),

		JWTSecret:  getEnv("JWT_SECRET", ""),
		CSRFSecret: getEnv("CSRF_SECRET", ""),

		SMTPHost: getEnv("SMTP_HOST", "localhost"),
		SMTPPort: smtpPort,
		SMTPUser: getEnv("SMTP_USER", ""),
		SMTPPass: getEnv("SMTP_PASS", ""),
		MailFrom: getEnv("MAIL_FROM", ""),

		ShopName: getEnv("SHOP_NAME", "Shop"),
		ShopURL:  getEnv("SHOP_URL", ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.CSRFSecret == "" {
		return fmt.Errorf("CSRF_SECRET is required")
	}
	if c.MailFrom == "" {
		return fmt.Errorf("MAIL_FROM is required")
	}
	return nil
}

func InitDB(databaseURL string) *gorm.DB {
	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	return db
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
