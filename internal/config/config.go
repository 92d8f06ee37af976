package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

var ErrInvalid = errors.New("invalid config")

type Config struct {
	ADBPath          string
	MirrorPath       string
	RemoteDir        string
	WifiInterface    string
	WifiPort         int
	RecordGrace      time.Duration
	DBPath           string
	HistoryEnabled   bool
	HistoryLimit     int
	HistoryRetention time.Duration
	LogLevel         string
}

func DefaultConfig() Config {
	return Config{
		ADBPath:          "adb",
		MirrorPath:       "scrcpy",
		RemoteDir:        "/data/local/tmp",
		WifiInterface:    "wlan0",
		WifiPort:         5555,
		RecordGrace:      5 * time.Second,
		DBPath:           defaultDBPath(),
		HistoryEnabled:   true,
		HistoryLimit:     20,
		HistoryRetention: 30 * 24 * time.Hour,
		LogLevel:         "info",
	}
}

// DefaultConfigPath is read when no --config flag is given. Its absence is not an error.
func DefaultConfigPath() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "sadb", "config.yaml")
}

// Load layers the config file at path and SADB_* environment variables over
// DefaultConfig. An empty path falls back to DefaultConfigPath.
func Load(path string) (Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultConfigPath()
	}

	def := DefaultConfig()
	v := viper.New()
	v.SetDefault("adb_path", def.ADBPath)
	v.SetDefault("mirror_path", def.MirrorPath)
	v.SetDefault("remote_dir", def.RemoteDir)
	v.SetDefault("wifi_interface", def.WifiInterface)
	v.SetDefault("wifi_port", def.WifiPort)
	v.SetDefault("record_grace", def.RecordGrace)
	v.SetDefault("db_path", def.DBPath)
	v.SetDefault("history_enabled", def.HistoryEnabled)
	v.SetDefault("history_limit", def.HistoryLimit)
	v.SetDefault("history_retention", def.HistoryRetention)
	v.SetDefault("log_level", def.LogLevel)
	v.SetEnvPrefix("sadb")
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			missing := errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist)
			if explicit || !missing {
				return Config{}, fmt.Errorf("read config %s: %w", path, err)
			}
		}
	}

	cfg := Config{
		ADBPath:          strings.TrimSpace(v.GetString("adb_path")),
		MirrorPath:       strings.TrimSpace(v.GetString("mirror_path")),
		RemoteDir:        strings.TrimRight(strings.TrimSpace(v.GetString("remote_dir")), "/"),
		WifiInterface:    strings.TrimSpace(v.GetString("wifi_interface")),
		WifiPort:         v.GetInt("wifi_port"),
		RecordGrace:      v.GetDuration("record_grace"),
		DBPath:           v.GetString("db_path"),
		HistoryEnabled:   v.GetBool("history_enabled"),
		HistoryLimit:     v.GetInt("history_limit"),
		HistoryRetention: v.GetDuration("history_retention"),
		LogLevel:         strings.ToLower(strings.TrimSpace(v.GetString("log_level"))),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch {
	case c.ADBPath == "":
		return fmt.Errorf("%w: adb_path is empty", ErrInvalid)
	case c.MirrorPath == "":
		return fmt.Errorf("%w: mirror_path is empty", ErrInvalid)
	case c.RemoteDir == "" || !strings.HasPrefix(c.RemoteDir, "/"):
		return fmt.Errorf("%w: remote_dir must be an absolute device path", ErrInvalid)
	case c.WifiPort < 1 || c.WifiPort > 65535:
		return fmt.Errorf("%w: wifi_port %d out of range", ErrInvalid, c.WifiPort)
	case c.RecordGrace < 0:
		return fmt.Errorf("%w: record_grace must not be negative", ErrInvalid)
	case c.HistoryLimit < 0:
		return fmt.Errorf("%w: history_limit must not be negative", ErrInvalid)
	case c.HistoryRetention <= 0:
		return fmt.Errorf("%w: history_retention must be positive", ErrInvalid)
	}
	return nil
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "sadb.db"
	}
	return filepath.Join(home, ".local", "state", "sadb", "history.db")
}
