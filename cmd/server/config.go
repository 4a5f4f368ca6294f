package main

import (
	"flag"
	"fmt"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

// config is the server configuration. Flags win over environment variables,
// which win over defaults.
//
//	-port     PORT             HTTP server port (default: 8080)
//	-db       DB_PATH          SQLite database path (default: allocator.db)
//	-log      LOG_LEVEL        logrus level (default: info)
//	-origins  ALLOWED_ORIGINS  comma separated CORS origins
type config struct {
	Port           int
	DBPath         string
	LogLevel       logrus.Level
	AllowedOrigins []string
}

func loadConfig(args []string, getenv func(string) string) (config, error) {
	envOr := func(key, def string) string {
		if v := getenv(key); v != "" {
			return v
		}
		return def
	}

	defaultPort, err := strconv.Atoi(envOr("PORT", "8080"))
	if err != nil {
		return config{}, fmt.Errorf("invalid PORT: %w", err)
	}

	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	port := fs.Int("port", defaultPort, "HTTP server port")
	dbPath := fs.String("db", envOr("DB_PATH", "allocator.db"), "SQLite database path")
	level := fs.String("log", envOr("LOG_LEVEL", "info"), "log level")
	origins := fs.String("origins", envOr("ALLOWED_ORIGINS", ""), "comma separated CORS origins")
	if err := fs.Parse(args); err != nil {
		return config{}, err
	}

	lvl, err := logrus.ParseLevel(*level)
	if err != nil {
		return config{}, err
	}

	cfg := config{Port: *port, DBPath: *dbPath, LogLevel: lvl}
	for _, o := range strings.Split(*origins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
		}
	}
	return cfg, nil
}
