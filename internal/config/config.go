package config // package config loads application configuration from environment variables

import (
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types
	"time"    // time expresses heartbeat and retry durations
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  The types reflect how the values are used in
// the application: strings for identifiers and secrets, ints for costs,
// durations for anything time-based.
type Config struct {
	Env          string // application environment (e.g. "dev", "prod")
	Port         string // HTTP port to listen on
	DBUser       string // database username
	DBPass       string // database password (optional)
	DBHost       string // database host address
	DBPort       string // database port number
	DBName       string // database name
	JWTSecret    string // secret used to sign JWTs
	AccessTTLMin int    // access token time‑to‑live in minutes
	BcryptCost   int    // bcrypt cost for password hashing
	Broker       Broker // message broker endpoint, passed to the broker package
}

// Broker describes the AMQP endpoint the pipeline talks to.  It is read
// once at startup and injected into every producer and consumer; nothing
// outside this package consults the environment for broker parameters.
// All fields carry working defaults for a local Docker setup, so only
// deviations need to be configured.
type Broker struct {
	Host           string        // broker host name (RABBITMQ_HOST)
	Port           int           // broker port (RABBITMQ_PORT)
	VHost          string        // virtual host (RABBITMQ_VHOST)
	User           string        // plaintext username (RABBITMQ_USER)
	Pass           string        // plaintext password (RABBITMQ_PASS)
	Heartbeat      time.Duration // AMQP heartbeat interval
	DialTimeout    time.Duration // per-attempt TCP connect timeout
	BlockedTimeout time.Duration // how long a flow-blocked connection is tolerated
	FrameMax       int           // maximum AMQP frame size in bytes
	RetryAttempts  int           // connection attempts before giving up
	RetryDelay     time.Duration // fixed delay between connection attempts
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.  Broker values all
// have defaults and use getenv() instead.
func Load() Config {
	return Config{
		Env:          must("APP_ENV"),                // environment (dev/test/prod)
		Port:         must("APP_PORT"),               // port to bind the HTTP server
		DBUser:       must("DB_USER"),                // database user
		DBPass:       os.Getenv("DB_PASS"),           // database password (empty allowed)
		DBHost:       must("DB_HOST"),                // database host
		DBPort:       must("DB_PORT"),                // database port
		DBName:       must("DB_NAME"),                // database name
		JWTSecret:    must("JWT_SECRET"),             // secret used for signing JWTs
		AccessTTLMin: mustInt("ACCESS_TOKEN_TTL_MIN"), // TTL for access tokens in minutes
		BcryptCost:   mustInt("BCRYPT_COST"),         // bcrypt cost factor
		Broker:       LoadBroker(),                   // AMQP endpoint parameters
	}
}

// LoadBroker builds the broker endpoint from the environment.  The defaults
// match the Docker network the services run in: a broker reachable under
// the host name "rabbitmq" with the stock guest account.
func LoadBroker() Broker {
	return Broker{
		Host:           getenv("RABBITMQ_HOST", "rabbitmq"),
		Port:           getenvInt("RABBITMQ_PORT", 5672),
		VHost:          getenv("RABBITMQ_VHOST", "/"),
		User:           getenv("RABBITMQ_USER", "guest"),
		Pass:           getenv("RABBITMQ_PASS", "guest"),
		Heartbeat:      600 * time.Second,
		DialTimeout:    5 * time.Second,
		BlockedTimeout: 300 * time.Second,
		FrameMax:       131072, // maximum allowed frame size for AMQP 0.9.1
		RetryAttempts:  10,
		RetryDelay:     5 * time.Second,
	}
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

// mustInt is like must() but converts the retrieved string into an integer.
// If conversion fails, the application logs a fatal error and exits.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}

// getenv returns the value of an optional environment variable, falling
// back to def when it is unset or empty.
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// getenvInt is like getenv() for integer-valued variables.  Unparseable
// values fall back to the default rather than aborting startup.
func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
