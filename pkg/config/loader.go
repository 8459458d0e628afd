package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// legacyEnv maps config keys to the plain environment variables older
// deployments of the job still set.
var legacyEnv = map[string]string{
	"app.log_level":     "LOGLEVEL",
	"schedule.timezone": "TIMEZONE",
	"schedule.day":      "DAY",
	"schedule.status":   "STATUS",
	"argocd.url":        "URL",
	"slack.channel":     "SLACKCHANNEL",
	"slack.redirect":    "SLACKREDIRECT",
}

// Load reads the fleet configuration and merges the secret file on top of it.
// Either path may be empty.
func Load(configPath, secretPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/autoscaler")
	}

	v.SetEnvPrefix("AUTOSCALER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, env := range legacyEnv {
		prefixed := "AUTOSCALER_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if secretPath != "" {
		if err := mergeSecret(v, secretPath); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func mergeSecret(v *viper.Viper, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open secret file: %w", err)
	}
	defer f.Close()

	v.SetConfigType("yaml")
	if err := v.MergeConfig(f); err != nil {
		return fmt.Errorf("failed to read secret file: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "staging-autoscaler")
	v.SetDefault("app.mode", "production")
	v.SetDefault("app.log_level", "debug")

	v.SetDefault("schedule.timezone", "Asia/Kuala_Lumpur")
	v.SetDefault("schedule.scale_up.hours", 1)
	v.SetDefault("schedule.scale_up.minutes", 0)
	v.SetDefault("schedule.scale_down.hours", 13)
	v.SetDefault("schedule.scale_down.minutes", 0)

	v.SetDefault("argocd.timeout", "60s")
	v.SetDefault("argocd.circuit_breaker.max_failures", 5)

	v.SetDefault("aws.timeout", "60s")

	v.SetDefault("slack.channel", "#alerts-autoscaler")
	v.SetDefault("slack.redirect", "example.com")
	v.SetDefault("slack.api_url", "https://slack.com/api")
	v.SetDefault("slack.timeout", "5s")

	v.SetDefault("metrics.job", "staging-autoscaler")

	v.SetDefault("history.enabled", false)
	v.SetDefault("history.database.host", "localhost")
	v.SetDefault("history.database.port", 5432)
	v.SetDefault("history.database.name", "autoscaler")
	v.SetDefault("history.database.max_connections", 4)
	v.SetDefault("history.database.ssl_mode", "disable")
	v.SetDefault("history.database.migration_timeout", "60s")
}
