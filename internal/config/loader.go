package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"github.com/zalando/go-keyring"
)

const (
	// FileName is the document read from the working directory when no
	// path is given.
	FileName = "queryfs.json"

	envPrefix      = "QUERYSTOR"
	keyringService = "querystor"
)

var defaults = map[string]string{
	KeyConnector:   "mariadb",
	KeyHost:        "localhost",
	KeyPort:        "3306",
	KeyUsername:    "root",
	KeyPassword:    "",
	KeyDatabase:    "querystordb",
	KeyTimeout:     "10s",
	KeyWatchPaths:  "",
	KeyEventsTable: "fs_events",
	KeyLogLevel:    "info",
}

func setDefaults(v *viper.Viper) {
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
}

// Load reads the configuration document at path, or FileName when path is
// empty. A missing document is first written with the defaults. Values can
// be overridden from the environment as QUERYSTOR_DB_HOST and so on.
func Load(path string) (*Config, error) {
	return load(path, true)
}

// LoadFile is Load without environment overrides. Use it when the result is
// going to be written back with Save.
func LoadFile(path string) (*Config, error) {
	return load(path, false)
}

func load(path string, env bool) (*Config, error) {
	if path == "" {
		path = FileName
	}

	if err := writeDefaults(path); err != nil {
		return nil, fmt.Errorf("write defaults: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)
	v.SetConfigType("json")
	if env {
		v.SetEnvPrefix(envPrefix)
		v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
		v.AutomaticEnv()
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

// writeDefaults creates path holding the defaults unless it already exists.
// It uses its own viper instance so environment overrides never reach disk.
func writeDefaults(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigType("json")
	err := v.SafeWriteConfigAs(path)

	var exists viper.ConfigFileAlreadyExistsError
	if errors.As(err, &exists) {
		return nil
	}
	return err
}

// Save writes cfg to path, replacing its contents. Pass a Config from
// LoadFile, since one from Load carries environment overrides.
func Save(path string, cfg *Config) error {
	if path == "" {
		path = FileName
	}

	v := viper.New()
	v.SetConfigType("json")
	v.Set(KeyConnector, cfg.Connector)
	v.Set(KeyHost, cfg.Host)
	v.Set(KeyPort, cfg.Port)
	v.Set(KeyUsername, cfg.Username)
	v.Set(KeyPassword, cfg.Password)
	v.Set(KeyDatabase, cfg.Database)
	v.Set(KeyTimeout, cfg.Timeout)
	v.Set(KeyWatchPaths, cfg.WatchPaths)
	v.Set(KeyEventsTable, cfg.EventsTable)
	v.Set(KeyLogLevel, cfg.LogLevel)

	return v.WriteConfigAs(path)
}

// ResolvePassword fills an empty password from the OS keyring. A keyring
// without an entry for the user is not an error.
func (c *Config) ResolvePassword() error {
	if c.Password != "" || c.Username == "" {
		return nil
	}

	pw, err := keyring.Get(keyringService, c.Username)
	switch {
	case err == nil:
		c.Password = pw
		return nil
	case errors.Is(err, keyring.ErrNotFound):
		return nil
	default:
		return fmt.Errorf("read keyring: %w", err)
	}
}

// StorePassword saves password for username in the OS keyring.
func StorePassword(username, password string) error {
	if username == "" {
		return fmt.Errorf("%s is required to store a password", KeyUsername)
	}
	if err := keyring.Set(keyringService, username, password); err != nil {
		return fmt.Errorf("write keyring: %w", err)
	}
	return nil
}
