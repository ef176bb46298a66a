// Package config loads rsd settings from <config-dir>/config.yaml and RSD_*
// environment variables. Flags are applied on top by the CLI.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"
	envPrefix      = "RSD"

	KeyAPIURL    = "api_url"
	KeyToken     = "token"
	KeyAccount   = "account"
	KeyRows      = "rows"
	KeyLogLevel  = "log_level"
	KeyLogFile   = "log_file"
	KeyDevAddr   = "dev.addr"
	KeyDevDB     = "dev.db"
	KeyDevSecret = "dev.secret"

	DefaultAPIURL  = "http://localhost:3500"
	DefaultRows    = 12
	DefaultDevAddr = "127.0.0.1:3500"
)

const defaultConfigYAML = `# rsd configuration
api_url: http://localhost:3500
# token: <bearer JWT for mutations>
# account: <account id, used for maintainer checks>
rows: 12
log_level: info
# log_file: /tmp/rsd.log

dev:
  addr: 127.0.0.1:3500
  # db: ~/.rsd/dev.sqlite
  # secret: <HS256 signing secret of the development API>
`

type Config struct {
	APIURL   string
	Token    string
	Account  string
	Rows     int
	LogLevel string
	LogFile  string

	Dev DevConfig

	// Path is the config file that was read, or "" when none exists.
	Path string
}

type DevConfig struct {
	Addr   string
	DB     string
	Secret string
}

// DefaultDir is ~/.rsd, or $RSD_CONFIG_DIR when set.
func DefaultDir() string {
	if d := strings.TrimSpace(os.Getenv("RSD_CONFIG_DIR")); d != "" {
		return d
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ".rsd"
	}
	return filepath.Join(home, ".rsd")
}

// Load reads config.yaml from dir. A missing file is not an error.
// Environment variables (RSD_API_URL, RSD_DEV_SECRET, ...) override the file.
func Load(dir string) (Config, error) {
	v := viper.New()
	v.SetDefault(KeyAPIURL, DefaultAPIURL)
	v.SetDefault(KeyRows, DefaultRows)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyDevAddr, DefaultDevAddr)
	v.SetDefault(KeyDevDB, filepath.Join(dir, "dev.sqlite"))

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// AutomaticEnv only covers keys viper already knows about.
	for _, k := range []string{KeyToken, KeyAccount, KeyLogFile, KeyDevSecret} {
		_ = v.BindEnv(k)
	}

	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(dir)

	path := ""
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		path = v.ConfigFileUsed()
	}

	cfg := Config{
		APIURL:   strings.TrimSpace(v.GetString(KeyAPIURL)),
		Token:    strings.TrimSpace(v.GetString(KeyToken)),
		Account:  strings.TrimSpace(v.GetString(KeyAccount)),
		Rows:     v.GetInt(KeyRows),
		LogLevel: strings.TrimSpace(v.GetString(KeyLogLevel)),
		LogFile:  strings.TrimSpace(v.GetString(KeyLogFile)),
		Dev: DevConfig{
			Addr:   strings.TrimSpace(v.GetString(KeyDevAddr)),
			DB:     strings.TrimSpace(v.GetString(KeyDevDB)),
			Secret: strings.TrimSpace(v.GetString(KeyDevSecret)),
		},
		Path: path,
	}
	if cfg.Rows <= 0 {
		cfg.Rows = DefaultRows
	}
	return cfg, nil
}

// WriteDefault creates dir and a commented config.yaml unless one exists.
// It returns the config file path.
func WriteDefault(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create config dir: %w", err)
	}
	path := filepath.Join(dir, configFileExt)
	if _, err := os.Stat(path); err == nil {
		return path, nil
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("stat config file: %w", err)
	}
	if err := os.WriteFile(path, []byte(defaultConfigYAML), 0o600); err != nil {
		return "", err
	}
	return path, nil
}
