package main

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/reputalia/creditos/internal/logger"
)

const (
	defaultListenAddr     = "localhost:8000"
	defaultLoggingLevel   = logger.LevelInfo
	defaultEnvironment    = logger.EnvProduction
	defaultWelcomeCredits = 500
	defaultCreditsTTLDays = 365
)

type Config struct {
	// Default logging level
	LogLevel string

	// Address on which the creditos service will be run
	ListenAddr string

	// Database to connect to
	DatabaseDSN string

	// Redis to cache balances in
	// Empty means no cache, every balance read hits the database
	RedisDSN string

	// Secret key
	// Some internal parts (like signing JWT tokens) uses symmetric encryption, so this key is used for that purpose
	SecretKey string

	// Environment
	Environment string

	// Percent of granted credits at which the balance alert turns low
	// Zero means the service default
	AlertThresholdPercent int64

	// Credits granted to every fresh account
	WelcomeCredits int64

	// Credits older than this many days are swept by the expiry job
	CreditsTTLDays int

	// Cron expression of the expiry sweep, empty disables it
	ExpirySchedule string
}

func NewConfig() *Config {
	return &Config{
		LogLevel:       defaultLoggingLevel,
		ListenAddr:     defaultListenAddr,
		Environment:    defaultEnvironment,
		WelcomeCredits: defaultWelcomeCredits,
		CreditsTTLDays: defaultCreditsTTLDays,
	}
}

// Load variable from '.env' file (should be located at working directory)
func (c *Config) LoadDotEnv(getwd func() (string, error)) error {
	wd, err := getwd()
	if err != nil {
		return err
	}

	envMap, err := godotenv.Read(filepath.Join(wd, ".env"))

	switch {
	case err == nil:
		c.LoadEnv(func(key string) string {
			return envMap[key]
		})
		return nil
	case errors.Is(err, os.ErrNotExist):
		return nil
	default:
		return err
	}
}

func (c *Config) LoadEnv(getenv func(string) string) {
	// Set option to value if it not empty
	setString := func(o *string) func(value string) {
		return func(value string) {
			if value != "" {
				*o = value
			}
		}
	}
	setInt64 := func(o *int64) func(value string) {
		return func(value string) {
			if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
				*o = parsed
			}
		}
	}
	setInt := func(o *int) func(value string) {
		return func(value string) {
			if parsed, err := strconv.Atoi(value); err == nil {
				*o = parsed
			}
		}
	}

	envMap := map[string]func(string){
		"RUN_ADDRESS":             setString(&c.ListenAddr),
		"DATABASE_URI":            setString(&c.DatabaseDSN),
		"REDIS_URI":               setString(&c.RedisDSN),
		"SECRET_KEY":              setString(&c.SecretKey),
		"LOG_LEVEL":               setString(&c.LogLevel),
		"ENVIRONMENT":             setString(&c.Environment),
		"ALERT_THRESHOLD_PERCENT": setInt64(&c.AlertThresholdPercent),
		"WELCOME_CREDITS":         setInt64(&c.WelcomeCredits),
		"CREDITS_TTL_DAYS":        setInt(&c.CreditsTTLDays),
		"EXPIRY_SCHEDULE":         setString(&c.ExpirySchedule),
	}

	for key, parseFn := range envMap {
		parseFn(getenv(key))
	}
}

func (c *Config) ParseFlags(args []string) error {
	fs := pflag.NewFlagSet("creditos", pflag.ContinueOnError)

	fs.StringVarP(&c.ListenAddr, "address", "a", c.ListenAddr, "Server listen address")
	fs.StringVarP(&c.DatabaseDSN, "database", "d", c.DatabaseDSN, "Database connection string")
	fs.StringVarP(&c.RedisDSN, "redis", "r", c.RedisDSN, "Redis connection string for the balance cache")
	fs.StringVarP(&c.SecretKey, "secret-key", "s", c.SecretKey, "Secret key")
	fs.StringVarP(&c.LogLevel, "log-level", "l", c.LogLevel, "Logging level (debug, info, warn, error)")
	fs.StringVarP(&c.Environment, "environment", "e", c.Environment, "Environment (dev, prod)")
	fs.Int64Var(&c.AlertThresholdPercent, "alert-threshold", c.AlertThresholdPercent, "Low balance alert threshold, percent of granted credits")
	fs.Int64Var(&c.WelcomeCredits, "welcome-credits", c.WelcomeCredits, "Credits granted on registration")
	fs.IntVar(&c.CreditsTTLDays, "credits-ttl-days", c.CreditsTTLDays, "Days before granted credits expire")
	fs.StringVar(&c.ExpirySchedule, "expiry-schedule", c.ExpirySchedule, "Cron expression of the expiry sweep (empty disables)")

	return fs.Parse(args)
}
