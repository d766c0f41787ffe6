package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/joacominatel/querystor/internal/database"
)

// Keys recognised in the configuration document. Lookups ignore case.
const (
	KeyConnector   = "db-connector"
	KeyHost        = "db-host"
	KeyPort        = "db-port"
	KeyUsername    = "db-username"
	KeyPassword    = "db-password"
	KeyDatabase    = "db-name"
	KeyTimeout     = "db-timeout"
	KeyWatchPaths  = "watch-paths"
	KeyEventsTable = "events-table"
	KeyLogLevel    = "log-level"
)

// Config is the service configuration. Every value is kept as text, the way
// it appears in the document, and parsed by the accessors below.
type Config struct {
	Connector   string `mapstructure:"db-connector"`
	Host        string `mapstructure:"db-host"`
	Port        string `mapstructure:"db-port"`
	Username    string `mapstructure:"db-username"`
	Password    string `mapstructure:"db-password"`
	Database    string `mapstructure:"db-name"`
	Timeout     string `mapstructure:"db-timeout"`
	WatchPaths  string `mapstructure:"watch-paths"`
	EventsTable string `mapstructure:"events-table"`
	LogLevel    string `mapstructure:"log-level"`
}

// Endpoint converts the connection settings into a database.Endpoint.
func (c *Config) Endpoint() (database.Endpoint, error) {
	port, err := strconv.ParseUint(strings.TrimSpace(c.Port), 10, 16)
	if err != nil || port == 0 {
		return database.Endpoint{}, fmt.Errorf("%s: invalid port %q", KeyPort, c.Port)
	}

	var timeout time.Duration
	if s := strings.TrimSpace(c.Timeout); s != "" {
		timeout, err = time.ParseDuration(s)
		if err != nil || timeout <= 0 {
			return database.Endpoint{}, fmt.Errorf("%s: invalid duration %q", KeyTimeout, c.Timeout)
		}
	}

	return database.Endpoint{
		Host:     strings.TrimSpace(c.Host),
		Port:     uint16(port),
		Username: c.Username,
		Password: c.Password,
		Database: strings.TrimSpace(c.Database),
		Timeout:  timeout,
	}, nil
}

// Paths returns the watched directories. The value is a list separated by
// the OS path list separator.
func (c *Config) Paths() []string {
	var paths []string
	for _, p := range filepath.SplitList(c.WatchPaths) {
		if p = strings.TrimSpace(p); p != "" {
			paths = append(paths, filepath.Clean(p))
		}
	}
	return paths
}

// Level parses the configured log level.
func (c *Config) Level() (log.Level, error) {
	lvl, err := log.ParseLevel(strings.TrimSpace(c.LogLevel))
	if err != nil {
		return log.InfoLevel, fmt.Errorf("%s: %w", KeyLogLevel, err)
	}
	return lvl, nil
}

// Validate reports every problem with the configuration at once.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Connector) == "" {
		errs = append(errs, fmt.Errorf("%s is required", KeyConnector))
	}
	if strings.TrimSpace(c.Host) == "" {
		errs = append(errs, fmt.Errorf("%s is required", KeyHost))
	}
	if _, err := c.Endpoint(); err != nil {
		errs = append(errs, err)
	}
	if strings.TrimSpace(c.EventsTable) == "" {
		errs = append(errs, fmt.Errorf("%s is required", KeyEventsTable))
	}
	if _, err := c.Level(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// DisplayString returns a human-readable summary of the connection. The
// password is never included.
func (c *Config) DisplayString() string {
	s := c.Host
	if c.Port != "" {
		s += ":" + c.Port
	}
	db := c.Database
	if db == "" {
		db = database.DefaultDatabase
	}
	s += "/" + db
	if c.Username != "" {
		s = c.Username + "@" + s
	}
	return c.Connector + "://" + s
}
