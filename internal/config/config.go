// Package config provides the server and client options, read from
// command-line flags, environment variables and an optional JSON file.
//
// Flags set the defaults, the JSON file overrides them, and environment
// variables override both.
package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"
)

// ServerOptions holds the configuration of the snapshot server.
type ServerOptions struct {
	// Port defines the server's listening address (ip:port).
	Port string `json:"address"`
	// DatabaseDSN holds the database connection string.
	DatabaseDSN string `json:"database_dsn"`
	// CertsDir holds ca.crt, ca.key, server.crt and server.key.
	CertsDir string `json:"certs_dir"`
	// Retention is how long superseded snapshots are kept.
	Retention Duration `json:"retention"`
	// CleanInterval is how often superseded snapshots are purged.
	CleanInterval Duration `json:"clean_interval"`
	// LogLevel is a zap level name.
	LogLevel string `json:"log_level"`
	// Config is the path to the JSON config file.
	Config string `json:"-"`
}

// ClientOptions holds the configuration of the auther client.
type ClientOptions struct {
	// Command is "shell" or "register".
	Command string `json:"-"`
	// File is the vault file name or path.
	File string `json:"file"`
	// BaseURL is the snapshot server, empty for offline use.
	BaseURL  string `json:"url"`
	CertFile string `json:"cert"`
	KeyFile  string `json:"key"`
	CAFile   string `json:"ca"`
	// Login is the name to register.
	Login string `json:"-"`
	// SyncInterval enables background sync when positive.
	SyncInterval Duration `json:"sync_interval"`
	LogLevel     string   `json:"log_level"`
	ShowVersion  bool     `json:"-"`
	Config       string   `json:"-"`
}

// Duration is a time.Duration read from JSON as a string like "1h30m".
type Duration struct {
	time.Duration
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("duration must be a string: %w", err)
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// ParseServer reads the server options from args and the environment.
func ParseServer(args []string) (*ServerOptions, error) {
	o := &ServerOptions{}
	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.StringVar(&o.Port, "a", "localhost:8080", "run on ip:port server")
	fs.StringVar(&o.DatabaseDSN, "d", "", "db address")
	fs.StringVar(&o.CertsDir, "certs", "certs", "directory with CA and server certificates")
	fs.DurationVar(&o.Retention.Duration, "retention", 30*24*time.Hour, "how long superseded snapshots are kept")
	fs.DurationVar(&o.CleanInterval.Duration, "clean-interval", time.Hour, "how often superseded snapshots are purged")
	fs.StringVar(&o.LogLevel, "log", "info", "log level")
	fs.StringVar(&o.Config, "config", "config.json", "path to config file")
	fs.StringVar(&o.Config, "c", "config.json", "path to config file (shorthand)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if configPath := os.Getenv("CONFIG"); configPath != "" {
		o.Config = configPath
	}
	if err := loadFile(o.Config, o); err != nil {
		return nil, err
	}

	if v := os.Getenv("SERVER_ADDRESS"); v != "" {
		o.Port = v
	}
	if v := os.Getenv("DATABASE_DSN"); v != "" {
		o.DatabaseDSN = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		o.LogLevel = v
	}

	if o.DatabaseDSN == "" {
		return nil, errors.New("database DSN is required (-d or DATABASE_DSN)")
	}
	if o.Retention.Duration <= 0 || o.CleanInterval.Duration <= 0 {
		return nil, errors.New("retention and clean interval must be positive")
	}
	return o, nil
}

// ParseClient reads the client options from args and the environment.
func ParseClient(args []string) (*ClientOptions, error) {
	o := &ClientOptions{}
	fs := flag.NewFlagSet("auther", flag.ContinueOnError)
	fs.StringVar(&o.Command, "cmd", "shell", "command: register | shell")
	fs.StringVar(&o.File, "f", "", "vault file (default auther.toml in the working or home directory)")
	fs.StringVar(&o.BaseURL, "url", "", "snapshot server base URL, empty to work offline")
	fs.StringVar(&o.CertFile, "cert", "client.crt", "path to client cert")
	fs.StringVar(&o.KeyFile, "key", "client.key", "path to client key")
	fs.StringVar(&o.CAFile, "ca", "certs/ca.crt", "path to CA cert")
	fs.StringVar(&o.Login, "login", "", "username for registration")
	fs.DurationVar(&o.SyncInterval.Duration, "sync", 0, "background sync interval, 0 disables it")
	fs.StringVar(&o.LogLevel, "log", "warn", "log level")
	fs.BoolVar(&o.ShowVersion, "version", false, "show build version and date")
	fs.StringVar(&o.Config, "c", "", "path to config file")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if err := loadFile(o.Config, o); err != nil {
		return nil, err
	}
	if v := os.Getenv("AUTHER_FILE"); v != "" {
		o.File = v
	}
	if v := os.Getenv("AUTHER_URL"); v != "" {
		o.BaseURL = v
	}

	switch o.Command {
	case "shell":
	case "register":
		if o.Login == "" && !o.ShowVersion {
			return nil, errors.New("please provide -login=username")
		}
		if o.BaseURL == "" && !o.ShowVersion {
			return nil, errors.New("please provide -url of the server")
		}
	default:
		return nil, fmt.Errorf("unknown command: %s", o.Command)
	}
	return o, nil
}

// loadFile decodes the JSON file at path into dst. A missing file is not an error.
func loadFile(path string, dst any) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("error while reading config file: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("error while parsing config file: %w", err)
	}
	return nil
}
