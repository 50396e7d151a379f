// Package config provides configuration management for the diary service.
//
// It utilizes Viper for loading configuration from an optional config.yaml,
// a .env file and environment variables (highest precedence).
//
// # Configuration Structure
//
// The Config struct is the central repository for all application settings, divided into subsections:
//   - Server: HTTP port, API key, timeouts and timezone
//   - Database: sqlite, MySQL or Postgres connection details
//   - Storage: S3/MinIO credentials, bucket and key prefix
//   - Log: level, format and optional rotated log file
//   - Remote: which remote copy to sync with (s3, local, gdrive)
//   - Sync: workers, fetch timeout, index TTL and schedule interval
//
// Defaults come from the `default` struct tags of each section.
//
// # Usage
//
//	cfg, err := config.LoadConfig(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Server.Port)
package config
