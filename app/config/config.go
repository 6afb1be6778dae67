package config

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

// Config holds everything main wires together: the PostgreSQL handle,
// Firebase settings and the sync engine tunables.
type Config struct {
	DB       *sql.DB
	Firebase FirebaseConfig
	Sync     SyncConfig
	Listen   string
}

type FirebaseConfig struct {
	ProjectID       string
	CredentialsFile string
}

type SyncConfig struct {
	MaxBatchSize  int
	Workers       int
	OpTimeout     time.Duration
	RetentionDays int
}

// Load reads .env (if present) and the environment, opens the PostgreSQL
// connection and returns the assembled config. It does not keep any global
// state; callers pass the config down explicitly.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	db, err := openDB()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		DB: db,
		Firebase: FirebaseConfig{
			ProjectID:       getEnv("FIREBASE_PROJECT_ID", "al-huda-school"),
			CredentialsFile: getEnv("FIREBASE_CREDENTIALS_FILE", ""),
		},
		Sync: SyncConfig{
			MaxBatchSize:  getEnvInt("SYNC_MAX_BATCH_SIZE", 500),
			Workers:       getEnvInt("SYNC_WORKERS", 4),
			OpTimeout:     time.Duration(getEnvInt("SYNC_OP_TIMEOUT_SECONDS", 30)) * time.Second,
			RetentionDays: getEnvInt("SYNC_RETENTION_DAYS", 90),
		},
		Listen: getEnv("LISTEN_ADDR", ":8080"),
	}
	return cfg, nil
}

func openDB() (*sql.DB, error) {
	psqlInfo := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s connect_timeout=60",
		getEnv("DB_HOST", "localhost"),
		getEnv("DB_PORT", "5432"),
		getEnv("DB_USER", "postgres"),
		getEnv("DB_PASSWORD", ""),
		getEnv("DB_NAME", "alhuda"),
		getEnv("DB_SSLMODE", "disable"),
	)

	db, err := sql.Open("postgres", psqlInfo)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	log.Println("Testing database connection...")
	if err = db.Ping(); err != nil {
		return nil, fmt.Errorf("cannot establish database connection: %w", err)
	}

	log.Println("Database connected successfully")
	return db, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("Invalid %s=%q, using %d", key, v, fallback)
		return fallback
	}
	return n
}
