package config // package config loads application configuration from environment variables

import (
	"log"     // log reports configuration errors and halts execution
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types
)

// DefaultSecret is the signing secret used when AUTH_SECRET is not set.  It
// exists so the application runs out of the box in development; production
// deployments must provide their own secret.
const DefaultSecret = "dev-secret"

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  Database variables are required and missing
// values abort startup; the remaining fields fall back to development
// defaults.
type Config struct {
	Env        string // application environment (e.g. "dev", "production")
	Port       string // HTTP port to listen on
	DBUser     string // database username
	DBPass     string // database password (optional)
	DBHost     string // database host address
	DBPort     string // database port number
	DBName     string // database name
	AuthSecret string // secret used to sign session credentials
	BcryptCost int    // bcrypt cost for password hashing
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
	return Config{
		Env:        getenvDefault("APP_ENV", "dev"),
		Port:       getenvDefault("APP_PORT", "8080"),
		DBUser:     must("DB_USER"),
		DBPass:     os.Getenv("DB_PASS"), // empty allowed
		DBHost:     must("DB_HOST"),
		DBPort:     must("DB_PORT"),
		DBName:     must("DB_NAME"),
		AuthSecret: getenvDefault("AUTH_SECRET", DefaultSecret),
		BcryptCost: envIntDefault("BCRYPT_COST", 10),
	}
}

// Production reports whether the process runs in a production-designated
// environment.  The Secure cookie flag depends on this.
func (c Config) Production() bool {
	return c.Env == "production" || c.Env == "prod"
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// getenvDefault returns the variable's value or def when unset or empty.
func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// envIntDefault reads an integer variable, falling back to def when unset.
// A set but malformed value is a configuration mistake and aborts startup.
func envIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, v)
	}
	return n
}
