package config

import (
	"time"

	"github.com/OldStager01/staging-autoscaler/pkg/database"
	"github.com/OldStager01/staging-autoscaler/pkg/models"
)

type Config struct {
	App       AppConfig                `mapstructure:"app"`
	Schedule  ScheduleConfig           `mapstructure:"schedule"`
	ArgoCD    ArgoCDConfig             `mapstructure:"argocd"`
	AWS       AWSConfig                `mapstructure:"aws"`
	Slack     SlackConfig              `mapstructure:"slack"`
	Metrics   MetricsConfig            `mapstructure:"metrics"`
	History   HistoryConfig            `mapstructure:"history"`
	Servers   []models.ManagedResource `mapstructure:"server"`
	Databases []models.ManagedResource `mapstructure:"database"`
}

type AppConfig struct {
	Name     string `mapstructure:"name"`
	Mode     string `mapstructure:"mode"`
	LogLevel string `mapstructure:"log_level"`
}

// ScheduleConfig describes the weekly calendar. Boundaries are UTC clock
// times; the timezone only decides which day it is.
type ScheduleConfig struct {
	Timezone  string           `mapstructure:"timezone"`
	ScaleUp   models.ClockTime `mapstructure:"scale_up"`
	ScaleDown models.ClockTime `mapstructure:"scale_down"`
	Day       string           `mapstructure:"day"`
	Status    string           `mapstructure:"status"`
}

type ArgoCDConfig struct {
	URL            string               `mapstructure:"url"`
	Username       string               `mapstructure:"username"`
	Password       string               `mapstructure:"password"`
	Timeout        time.Duration        `mapstructure:"timeout"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
}

type CircuitBreakerConfig struct {
	MaxFailures int `mapstructure:"max_failures"`
}

type AWSConfig struct {
	AccessKeyID           string        `mapstructure:"aws_access_key_id"`
	SecretAccessKey       string        `mapstructure:"aws_secret_access_key"`
	Region                string        `mapstructure:"region_name"`
	UseDefaultCredentials bool          `mapstructure:"use_default_credentials"`
	Timeout               time.Duration `mapstructure:"timeout"`
}

// Enabled reports whether database scaling can run at all.
func (a AWSConfig) Enabled() bool {
	return a.AccessKeyID != "" || a.UseDefaultCredentials
}

type SlackConfig struct {
	Token    string        `mapstructure:"token"`
	Channel  string        `mapstructure:"channel"`
	Redirect string        `mapstructure:"redirect"`
	APIURL   string        `mapstructure:"api_url"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

func (s SlackConfig) Enabled() bool {
	return s.Token != ""
}

type MetricsConfig struct {
	PushgatewayURL string `mapstructure:"pushgateway_url"`
	Job            string `mapstructure:"job"`
}

type HistoryConfig struct {
	Enabled  bool           `mapstructure:"enabled"`
	Database DatabaseConfig `mapstructure:"database"`
}

type DatabaseConfig struct {
	Host             string        `mapstructure:"host"`
	Port             int           `mapstructure:"port"`
	Name             string        `mapstructure:"name"`
	User             string        `mapstructure:"user"`
	Password         string        `mapstructure:"password"`
	MaxConnections   int           `mapstructure:"max_connections"`
	SSLMode          string        `mapstructure:"ssl_mode"`
	PingTimeout      time.Duration `mapstructure:"ping_timeout"`
	MigrationTimeout time.Duration `mapstructure:"migration_timeout"`
}

// Store converts the history settings for the database package.
func (h HistoryConfig) Store() database.Config {
	d := h.Database
	return database.Config{
		Host:           d.Host,
		Port:           d.Port,
		Name:           d.Name,
		User:           d.User,
		Password:       d.Password,
		MaxConnections: d.MaxConnections,
		SSLMode:        d.SSLMode,
		PingTimeout:    d.PingTimeout,
	}
}

// AllResources returns application resources followed by database-only ones.
func (c *Config) AllResources() []models.ManagedResource {
	out := make([]models.ManagedResource, 0, len(c.Servers)+len(c.Databases))
	out = append(out, c.Servers...)
	return append(out, c.Databases...)
}
