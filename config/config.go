package config

import (
	"fmt"
	"log"

	"github.com/spf13/viper"
)

// Config holds the full application configuration loaded from environment
// variables or a .env file.
//
// Example ENV equivalent:
//
//	SERVER_PORT=8080
//	POSTGRES_HOST=localhost
//	POSTGRES_PORT=5432
//	POSTGRES_USER=postgres
//	POSTGRES_PASSWORD=postgres
//	POSTGRES_DB=nsepulse
//	POSTGRES_SSLMODE=disable
//	NSE_BHAV_URL=https://archives.nseindia.com/content/historical/EQUITIES/%s/%s/cm%s%s%sbhav.csv.zip
//	NSE_DELIV_URL=https://archives.nseindia.com/archives/equities/mto/MTO_%s%s%s.DAT
//	NSE_RENAME_URL=https://archives.nseindia.com/content/equities/symbolchange.csv
//	INGEST_GRACE_DAYS=7
//	INGEST_CONFIRM_DAYS=100
type Config struct {
	Server   ServerConfig   // HTTP server configuration (api mode)
	Postgres PostgresConfig // PostgreSQL connection settings
	NSE      NSEConfig      // Upstream feed endpoints and HTTP behavior
	Ingest   IngestConfig   // Ingestion pacing and retry policy knobs
}

// ServerConfig holds HTTP server settings such as the port to listen on.
type ServerConfig struct {
	Port string
}

// PostgresConfig defines connection details for PostgreSQL.
// URL is the computed DSN used by database/sql to connect.
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	URL      string
}

// NSEConfig holds the upstream feed URL templates and the shared HTTP timeout.
//
// BhavURL expands with (YYYY, MON, DD, MON, YYYY), DelivURL with (DD, MM, YYYY),
// matching the exchange's archive naming. RenameURL is a plain CSV endpoint.
type NSEConfig struct {
	BhavURL        string
	DelivURL       string
	RenameURL      string
	TimeoutSeconds int
}

// IngestConfig carries ingestion policy knobs.
//
// Fields:
//   - GraceDays: NOT_FOUND ledger entries older than this many days are treated
//     as closed gaps (exchange holidays) and no longer retried.
//   - ConfirmDays: date ranges longer than this require explicit confirmation.
//   - PaceMinMs / PaceMaxMs: bounds of the randomized inter-date delay applied
//     before each network attempt.
type IngestConfig struct {
	GraceDays   int
	ConfirmDays int
	PaceMinMs   int
	PaceMaxMs   int
}

// AppConfig is the globally accessible configuration instance, populated once
// via LoadConfig().
var AppConfig Config

// LoadConfig initializes the global AppConfig by reading from a .env file
// or directly from environment variables.
//
// Precedence (lowest to highest): defaults, .env file, environment variables.
// Missing required variables terminate the process via validateConfig().
func LoadConfig() {
	viper.SetDefault("SERVER_PORT", "8080")

	viper.SetDefault("POSTGRES_HOST", "localhost")
	viper.SetDefault("POSTGRES_PORT", 5432)
	viper.SetDefault("POSTGRES_USER", "postgres")
	viper.SetDefault("POSTGRES_PASSWORD", "postgres")
	viper.SetDefault("POSTGRES_DB", "nsepulse")
	viper.SetDefault("POSTGRES_SSLMODE", "disable")

	viper.SetDefault("NSE_BHAV_URL", "https://archives.nseindia.com/content/historical/EQUITIES/%s/%s/cm%s%s%sbhav.csv.zip")
	viper.SetDefault("NSE_DELIV_URL", "https://archives.nseindia.com/archives/equities/mto/MTO_%s%s%s.DAT")
	viper.SetDefault("NSE_RENAME_URL", "https://archives.nseindia.com/content/equities/symbolchange.csv")
	viper.SetDefault("HTTP_TIMEOUT_SECONDS", 30)

	viper.SetDefault("INGEST_GRACE_DAYS", 7)
	viper.SetDefault("INGEST_CONFIRM_DAYS", 100)
	viper.SetDefault("INGEST_PACE_MIN_MS", 1000)
	viper.SetDefault("INGEST_PACE_MAX_MS", 10000)

	// Optionally read from .env if present (common in local dev)
	viper.SetConfigFile(".env")
	_ = viper.ReadInConfig() // ignore error if no .env

	viper.AutomaticEnv()

	AppConfig = Config{
		Server: ServerConfig{
			Port: viper.GetString("SERVER_PORT"),
		},
		Postgres: PostgresConfig{
			Host:     viper.GetString("POSTGRES_HOST"),
			Port:     viper.GetInt("POSTGRES_PORT"),
			User:     viper.GetString("POSTGRES_USER"),
			Password: viper.GetString("POSTGRES_PASSWORD"),
			DBName:   viper.GetString("POSTGRES_DB"),
			SSLMode:  viper.GetString("POSTGRES_SSLMODE"),
		},
		NSE: NSEConfig{
			BhavURL:        viper.GetString("NSE_BHAV_URL"),
			DelivURL:       viper.GetString("NSE_DELIV_URL"),
			RenameURL:      viper.GetString("NSE_RENAME_URL"),
			TimeoutSeconds: viper.GetInt("HTTP_TIMEOUT_SECONDS"),
		},
		Ingest: IngestConfig{
			GraceDays:   viper.GetInt("INGEST_GRACE_DAYS"),
			ConfirmDays: viper.GetInt("INGEST_CONFIRM_DAYS"),
			PaceMinMs:   viper.GetInt("INGEST_PACE_MIN_MS"),
			PaceMaxMs:   viper.GetInt("INGEST_PACE_MAX_MS"),
		},
	}

	AppConfig.Postgres.URL = fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		AppConfig.Postgres.User,
		AppConfig.Postgres.Password,
		AppConfig.Postgres.Host,
		AppConfig.Postgres.Port,
		AppConfig.Postgres.DBName,
		AppConfig.Postgres.SSLMode,
	)

	validateConfig()
}

// validateConfig ensures required variables are present and terminates the
// application if they are missing.
func validateConfig() {
	var missing []string

	if AppConfig.Postgres.Host == "" {
		missing = append(missing, "POSTGRES_HOST")
	}
	if AppConfig.Postgres.Port == 0 {
		missing = append(missing, "POSTGRES_PORT")
	}
	if AppConfig.Postgres.User == "" {
		missing = append(missing, "POSTGRES_USER")
	}
	if AppConfig.Postgres.Password == "" {
		missing = append(missing, "POSTGRES_PASSWORD")
	}
	if AppConfig.Postgres.DBName == "" {
		missing = append(missing, "POSTGRES_DB")
	}
	if AppConfig.NSE.BhavURL == "" {
		missing = append(missing, "NSE_BHAV_URL")
	}
	if AppConfig.NSE.DelivURL == "" {
		missing = append(missing, "NSE_DELIV_URL")
	}
	if AppConfig.Ingest.GraceDays < 0 {
		missing = append(missing, "INGEST_GRACE_DAYS")
	}
	if AppConfig.Ingest.PaceMinMs > AppConfig.Ingest.PaceMaxMs {
		missing = append(missing, "INGEST_PACE_MIN_MS<=INGEST_PACE_MAX_MS")
	}

	if len(missing) > 0 {
		log.Fatalf("missing or invalid required environment variables: %v\n", missing)
	}
}
