package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// Environment is the type for defining the running environment
type Environment string

// define constants
const (
	EnvDevelopment Environment = "Dev"
	EnvProduction  Environment = "Prod"
)

// Supported database drivers
const (
	DriverMySQL    string = "mysql"
	DriverPostgres        = "postgres"
	DriverSQLite          = "sqlite"
)

// Database describes how to reach the storage engine
type Database struct {
	Driver   string
	Host     string
	User     string
	Password string
	Name     string // file path when Driver is sqlite
	Port     int
}

// Config is read once at startup and passed by value afterwards
type Config struct {
	Environment Environment
	ListenAddr  string
	Database    Database

	AMQPURI     string
	EventQueue  string // queue consumed by the worker
	SentryDSN   string
	CORSOrigins []string
}

// Getenv looks up a variable. FromEnvFunc takes one so tests do not have to touch the process environment.
type Getenv func(key string) string

// FromEnv builds the Config from the process environment
func FromEnv() (Config, error) {
	return FromEnvFunc(os.Getenv)
}

// FromEnvFunc builds the Config from the given lookup, applying defaults for unset variables
func FromEnvFunc(getenv Getenv) (Config, error) {
	get := func(key, fallback string) string {
		if v := getenv(key); v != "" {
			return v
		}
		return fallback
	}

	env := EnvDevelopment
	if get("API_ENV", "") == "production" {
		env = EnvProduction
	}

	driver := strings.ToLower(get("DB_DRIVER", DriverMySQL))
	switch driver {
	case DriverMySQL, DriverPostgres, DriverSQLite:
	default:
		return Config{}, fmt.Errorf("unsupported DB_DRIVER %q", driver)
	}

	port, err := strconv.Atoi(get("DB_PORT", "3306"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid DB_PORT: %v", err)
	}

	var origins []string
	for _, o := range strings.Split(get("CORS_ALLOWED_ORIGINS", "*"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}

	return Config{
		Environment: env,
		ListenAddr:  get("LISTEN_ADDR", ":8000"),
		Database: Database{
			Driver:   driver,
			Host:     get("DB_HOST", "mysql.default.svc.cluster.local"),
			User:     get("DB_USER", "root"),
			Password: get("DB_PASSWORD", "my-secret-pw"),
			Name:     get("DB_NAME", "mysql"),
			Port:     port,
		},
		AMQPURI:     getenv("AMQP_URI"),
		EventQueue:  get("EVENT_QUEUE", "customer_events_log"),
		SentryDSN:   getenv("SENTRY_DSN"),
		CORSOrigins: origins,
	}, nil
}

// DSN renders the connection string understood by the configured driver
func (d Database) DSN() string {
	addr := net.JoinHostPort(d.Host, strconv.Itoa(d.Port))
	switch d.Driver {
	case DriverPostgres:
		u := url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(d.User, d.Password),
			Host:     addr,
			Path:     "/" + d.Name,
			RawQuery: "sslmode=disable",
		}
		return u.String()
	case DriverSQLite:
		return d.Name
	default:
		cfg := mysql.NewConfig()
		cfg.User = d.User
		cfg.Passwd = d.Password
		cfg.Net = "tcp"
		cfg.Addr = addr
		cfg.DBName = d.Name
		cfg.ParseTime = true
		return cfg.FormatDSN()
	}
}
