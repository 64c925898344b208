// Package config reads the service settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	StorageMongo  = "mongo"
	StorageMemory = "memory"

	NoticeStoreMongo     = "mongo"
	NoticeStoreCassandra = "cassandra"

	DirectoryMongo    = "mongo"
	DirectoryPostgres = "postgres"
	DirectoryHTTP     = "http"
	DirectoryMemory   = "memory"
)

type Postgres struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

type Config struct {
	ServerPort string

	Storage           string
	MongoURI          string
	MongoDBName       string
	MongoTransactions bool

	NoticeStore  string
	CassandraDB  string
	CassKeyspace string

	UserDirectory   string
	UsersServiceURL string
	UsersFile       string
	Postgres        Postgres

	JWTSecret   string
	CORSOrigins []string

	LogFile  string
	LogLevel string
}

// Load reads envFile when present, then the process environment. A missing
// file is reported through the second return value and is not an error.
func Load(envFile string) (*Config, bool, error) {
	loaded := false
	if envFile != "" {
		if err := godotenv.Load(envFile); err == nil {
			loaded = true
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, false, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	transactions, err := boolEnv("MONGO_TRANSACTIONS", true)
	if err != nil {
		return nil, loaded, err
	}

	cfg := &Config{
		ServerPort:        env("SERVER_PORT", "8080"),
		Storage:           env("STORAGE", StorageMongo),
		MongoURI:          env("MONGO_URI", "mongodb://localhost:27017"),
		MongoDBName:       env("MONGO_DB_NAME", "taskboard"),
		MongoTransactions: transactions,
		NoticeStore:       env("NOTICE_STORE", NoticeStoreMongo),
		CassandraDB:       env("CASS_DB", "127.0.0.1"),
		CassKeyspace:      env("CASS_KEYSPACE", "notifications"),
		UserDirectory:     env("USER_DIRECTORY", DirectoryMongo),
		UsersServiceURL:   os.Getenv("USERS_SERVICE_URL"),
		UsersFile:         os.Getenv("USERS_FILE"),
		Postgres: Postgres{
			Host:     env("DB_HOST", "localhost"),
			Port:     env("DB_PORT", "5432"),
			User:     os.Getenv("DB_USER"),
			Password: os.Getenv("DB_PASSWORD"),
			Name:     os.Getenv("DB_NAME"),
			SSLMode:  env("DB_SSLMODE", "disable"),
		},
		JWTSecret:   os.Getenv("JWT_SECRET"),
		CORSOrigins: list(env("CORS_ALLOWED_ORIGINS", "*")),
		LogFile:     os.Getenv("LOG_FILE"),
		LogLevel:    env("LOG_LEVEL", "info"),
	}
	return cfg, loaded, cfg.Validate()
}

func (c *Config) Validate() error {
	var problems []string
	check := func(ok bool, format string, args ...any) {
		if !ok {
			problems = append(problems, fmt.Sprintf(format, args...))
		}
	}

	port, err := strconv.Atoi(c.ServerPort)
	check(err == nil && port > 0 && port < 65536, "SERVER_PORT %q is not a valid port", c.ServerPort)
	check(c.Storage == StorageMongo || c.Storage == StorageMemory, "STORAGE must be mongo or memory, got %q", c.Storage)
	check(c.NoticeStore == NoticeStoreMongo || c.NoticeStore == NoticeStoreCassandra, "NOTICE_STORE must be mongo or cassandra, got %q", c.NoticeStore)
	check(c.JWTSecret != "", "JWT_SECRET is required")

	switch c.UserDirectory {
	case DirectoryMongo:
		check(c.Storage == StorageMongo, "USER_DIRECTORY=mongo needs STORAGE=mongo")
	case DirectoryPostgres:
		check(c.Postgres.User != "" && c.Postgres.Name != "", "USER_DIRECTORY=postgres needs DB_USER and DB_NAME")
	case DirectoryHTTP:
		check(c.UsersServiceURL != "", "USER_DIRECTORY=http needs USERS_SERVICE_URL")
	case DirectoryMemory:
	default:
		problems = append(problems, fmt.Sprintf("USER_DIRECTORY must be mongo, postgres, http or memory, got %q", c.UserDirectory))
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

func env(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func boolEnv(key string, fallback bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %q is not a boolean", key, v)
	}
	return b, nil
}

func list(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
