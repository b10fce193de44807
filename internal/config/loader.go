package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Environment variable names.
const (
	EnvConfigFile = "JVC_CONFIG_FILE"
	EnvHTTPPort   = "JVC_HTTP_PORT"
	EnvSQLiteDSN  = "JVC_SQLITE_DSN"
	EnvTimezone   = "JVC_TIMEZONE"
	EnvReportCron = "JVC_REPORT_CRON"
	EnvReportDir  = "JVC_REPORT_DIR"
	EnvLogLevel   = "JVC_LOG_LEVEL"
)

// Config captures file and environment driven configuration values.
type Config struct {
	HTTPPort  int    `yaml:"http_port"`
	SQLiteDSN string `yaml:"sqlite_dsn"`
	// Timezone is the IANA zone used for report months and date labels.
	Timezone string `yaml:"timezone"`
	// ReportCron schedules the monthly exemption export. Empty disables it.
	ReportCron string `yaml:"report_cron"`
	ReportDir  string `yaml:"report_dir"`
	LogLevel   string `yaml:"log_level"`

	// Location is resolved from Timezone.
	Location *time.Location `yaml:"-"`
}

// Default returns the configuration used when neither file nor environment
// provide a value.
func Default() Config {
	return Config{
		HTTPPort:   8080,
		SQLiteDSN:  "file:jvc.db",
		Timezone:   "Europe/Berlin",
		ReportCron: "0 6 1 * *",
		ReportDir:  "reports",
		LogLevel:   "info",
	}
}

// Load builds the configuration from defaults, the optional YAML file named by
// JVC_CONFIG_FILE and the process environment, in increasing precedence.
//
// Invalid values are collected and reported together.
func Load() (Config, error) {
	cfg := Default()

	if path := strings.TrimSpace(os.Getenv(EnvConfigFile)); path != "" {
		if err := mergeFile(&cfg, path); err != nil {
			return Config{}, err
		}
	}

	invalid := make([]string, 0, 4)

	if portValue := strings.TrimSpace(os.Getenv(EnvHTTPPort)); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil {
			invalid = append(invalid, EnvHTTPPort)
		} else {
			cfg.HTTPPort = port
		}
	}
	if dsn := strings.TrimSpace(os.Getenv(EnvSQLiteDSN)); dsn != "" {
		cfg.SQLiteDSN = dsn
	}
	if tz := strings.TrimSpace(os.Getenv(EnvTimezone)); tz != "" {
		cfg.Timezone = tz
	}
	if spec, ok := os.LookupEnv(EnvReportCron); ok {
		cfg.ReportCron = strings.TrimSpace(spec)
	}
	if dir := strings.TrimSpace(os.Getenv(EnvReportDir)); dir != "" {
		cfg.ReportDir = dir
	}
	if level := strings.TrimSpace(os.Getenv(EnvLogLevel)); level != "" {
		cfg.LogLevel = level
	}

	if cfg.HTTPPort <= 0 || cfg.HTTPPort > 65535 {
		invalid = appendOnce(invalid, EnvHTTPPort)
	}
	if strings.TrimSpace(cfg.SQLiteDSN) == "" {
		invalid = appendOnce(invalid, EnvSQLiteDSN)
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		invalid = appendOnce(invalid, EnvTimezone)
	} else {
		cfg.Location = loc
	}

	if cfg.ReportCron != "" {
		if _, err := cron.ParseStandard(cfg.ReportCron); err != nil {
			invalid = appendOnce(invalid, EnvReportCron)
		}
	}

	switch strings.ToLower(cfg.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		invalid = appendOnce(invalid, EnvLogLevel)
	}

	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("ungültige Konfigurationswerte: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}

// ReportsEnabled reports whether the scheduled export is configured.
func (c Config) ReportsEnabled() bool {
	return strings.TrimSpace(c.ReportCron) != ""
}

// Addr returns the HTTP listen address.
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

func mergeFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("Konfigurationsdatei nicht gefunden: %s", path)
		}
		return fmt.Errorf("Konfigurationsdatei konnte nicht gelesen werden: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("Konfigurationsdatei ist kein gültiges YAML: %w", err)
	}
	return nil
}

func appendOnce(values []string, v string) []string {
	for _, existing := range values {
		if existing == v {
			return values
		}
	}
	return append(values, v)
}
