// Package config binds command line flags and NEWSLEDGER_* environment
// variables into the settings used by the serve command.
package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const EnvPrefix = "NEWSLEDGER"

// Flag names, also used as viper keys.
const (
	FlagAddr            = "addr"
	FlagDataDir         = "data-dir"
	FlagRedisAddr       = "redis-addr"
	FlagRedisChannel    = "redis-channel"
	FlagProofTag        = "proof-tag"
	FlagMaxContent      = "max-content"
	FlagLegacyLookup    = "legacy-lookup"
	FlagTLS             = "tls"
	FlagShutdownTimeout = "shutdown-timeout"
	FlagLogLevel        = "log-level"
)

var ErrInvalid = errors.New("config: invalid value")

type Config struct {
	Addr            string
	DataDir         string
	RedisAddr       string
	RedisChannel    string
	ProofTag        int64
	MaxContent      int
	LegacyLookup    bool
	TLS             bool
	ShutdownTimeout time.Duration
	LogLevel        string
}

// Default returns the settings used when nothing is configured. With no data
// directory the ledger lives in memory, and with no redis address block
// events are dropped.
func Default() Config {
	return Config{
		Addr:            ":5000",
		RedisChannel:    "newsledger:blocks",
		ProofTag:        123,
		MaxContent:      4000,
		ShutdownTimeout: 5 * time.Second,
		LogLevel:        "info",
	}
}

// RegisterFlags declares every setting on fs with its default.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String(FlagAddr, d.Addr, "address the HTTP server listens on")
	fs.String(FlagDataDir, d.DataDir, "badger directory for the chain, empty keeps it in memory")
	fs.String(FlagRedisAddr, d.RedisAddr, "redis server receiving block events, empty disables them")
	fs.String(FlagRedisChannel, d.RedisChannel, "redis pub/sub channel for block events")
	fs.Int64(FlagProofTag, d.ProofTag, "proof value stored in verification blocks")
	fs.Int(FlagMaxContent, d.MaxContent, "number of input characters analyzed and stored")
	fs.Bool(FlagLegacyLookup, d.LegacyLookup, "also match stored previous hashes on lookup")
	fs.Bool(FlagTLS, d.TLS, "serve HTTPS with a self-signed certificate")
	fs.Duration(FlagShutdownTimeout, d.ShutdownTimeout, "grace period for in-flight requests on shutdown")
	fs.String(FlagLogLevel, d.LogLevel, "log level: debug, info, warn or error")
}

// Bind makes v read fs and the environment. NEWSLEDGER_DATA_DIR maps to
// --data-dir.
func Bind(v *viper.Viper, fs *pflag.FlagSet) error {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v.BindPFlags(fs)
}

// Load reads the settings from v and validates them.
func Load(v *viper.Viper) (Config, error) {
	c := Config{
		Addr:            v.GetString(FlagAddr),
		DataDir:         v.GetString(FlagDataDir),
		RedisAddr:       v.GetString(FlagRedisAddr),
		RedisChannel:    v.GetString(FlagRedisChannel),
		ProofTag:        v.GetInt64(FlagProofTag),
		MaxContent:      v.GetInt(FlagMaxContent),
		LegacyLookup:    v.GetBool(FlagLegacyLookup),
		TLS:             v.GetBool(FlagTLS),
		ShutdownTimeout: v.GetDuration(FlagShutdownTimeout),
		LogLevel:        v.GetString(FlagLogLevel),
	}
	return c, c.Validate()
}

func (c Config) Validate() error {
	if _, _, err := net.SplitHostPort(c.Addr); err != nil {
		return fmt.Errorf("%w: %s %q: %v", ErrInvalid, FlagAddr, c.Addr, err)
	}
	if c.RedisAddr != "" {
		if _, _, err := net.SplitHostPort(c.RedisAddr); err != nil {
			return fmt.Errorf("%w: %s %q: %v", ErrInvalid, FlagRedisAddr, c.RedisAddr, err)
		}
		if c.RedisChannel == "" {
			return fmt.Errorf("%w: %s must not be empty", ErrInvalid, FlagRedisChannel)
		}
	}
	if c.MaxContent <= 0 {
		return fmt.Errorf("%w: %s must be positive, got %d", ErrInvalid, FlagMaxContent, c.MaxContent)
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("%w: %s must be positive, got %s", ErrInvalid, FlagShutdownTimeout, c.ShutdownTimeout)
	}
	if _, err := c.PtermLevel(); err != nil {
		return err
	}
	return nil
}

// PtermLevel maps LogLevel to the terminal logger level.
func (c Config) PtermLevel() (pterm.LogLevel, error) {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return pterm.LogLevelDebug, nil
	case "info", "":
		return pterm.LogLevelInfo, nil
	case "warn", "warning":
		return pterm.LogLevelWarn, nil
	case "error":
		return pterm.LogLevelError, nil
	}
	return 0, fmt.Errorf("%w: %s %q", ErrInvalid, FlagLogLevel, c.LogLevel)
}
