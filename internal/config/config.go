// Package config loads runtime settings from the environment, with a
// configs/.env file picked up in development.
package config

import (
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

// Storage drivers for the procedure record collection.
const (
	DriverFile     = "file"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type Config struct {
	Port          string
	DataDir       string // record collection + user directory + key file
	UploadDir     string // encrypted document blobs
	KeyFile       string
	JWTSecret     string
	StorageDriver string
	PostgresDSN   string
	AllowOrigins  []string
	GinMode       string
}

// Load reads the environment, applying development defaults for anything
// unset. A missing JWT secret in release mode is fatal.
func Load() *Config {
	if err := godotenv.Load("configs/.env"); err != nil {
		log.Println("No configs/.env file found or error loading it")
	}

	dataDir := getenv("DATA_DIR", "data")
	cfg := &Config{
		Port:          getenv("PORT", "8080"),
		DataDir:       dataDir,
		UploadDir:     getenv("UPLOAD_DIR", "uploads"),
		KeyFile:       getenv("KEY_FILE", filepath.Join(dataDir, "enc.key")),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		StorageDriver: getenv("STORAGE_DRIVER", DriverFile),
		PostgresDSN:   os.Getenv("POSTGRES_DSN"),
		GinMode:       os.Getenv("GIN_MODE"),
		AllowOrigins:  splitList(getenv("ALLOW_ORIGINS", "http://localhost:5173,http://127.0.0.1:5173")),
	}

	if cfg.JWTSecret == "" {
		if cfg.GinMode == "release" {
			log.Fatal("FATAL: JWT_SECRET environment variable is required in release mode")
		}
		cfg.JWTSecret = "default_super_secret_key" // Development fallback only — DO NOT use in production
	}

	return cfg
}

// RecordsFile is the path of the flat JSON record collection.
func (c *Config) RecordsFile() string {
	return filepath.Join(c.DataDir, "procedures.json")
}

// UsersFile is the path of the principal directory.
func (c *Config) UsersFile() string {
	return filepath.Join(c.DataDir, "users.json")
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
