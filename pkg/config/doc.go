// Package config loads typed configuration structs from the environment.
//
// It wraps github.com/joho/godotenv and github.com/caarlos0/env/v11: the first
// call loads .env files into the process environment (missing files are
// ignored) and every call parses env-tagged struct fields.
//
// # Usage
//
//	var cfg struct {
//		DB  pg.Config
//		Log logger.Config
//	}
//	if err := config.Load(&cfg); err != nil {
//		return err
//	}
//
// WithPrefix parses the same struct under a namespace, for example to read a
// second database configuration from REPLICA_PG_CONN_URL.
package config
