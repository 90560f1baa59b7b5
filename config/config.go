// Package config loads the dbpool binary configuration.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"dbpool"
	"dbpool/logger"
)

const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

// Config is the configuration of the dbpool binary.
type Config struct {
	MaxConnections int `mapstructure:"max_connections"`
	// IdleConnectionTimeout is the connection TTL in milliseconds.
	IdleConnectionTimeout int           `mapstructure:"idle_connection_timeout"`
	PruneInterval         time.Duration `mapstructure:"prune_interval"`
	CollectionInterval    time.Duration `mapstructure:"collection_interval"`
	CloseTimeout          time.Duration `mapstructure:"close_timeout"`

	Log       logger.Config `mapstructure:"log"`
	Metrics   Metrics       `mapstructure:"metrics"`
	Debug     Debug         `mapstructure:"debug"`
	Instances []Instance    `mapstructure:"instances"`
}

type Metrics struct {
	Enabled bool   `mapstructure:"enabled"`
	Address string `mapstructure:"address"`
}

type Debug struct {
	DetectDeadlocks bool `mapstructure:"detect_deadlocks"`
}

// Instance is one monitored database server.
type Instance struct {
	Driver    string   `mapstructure:"driver"`
	Host      string   `mapstructure:"host"`
	Port      int      `mapstructure:"port"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	DBName    string   `mapstructure:"dbname"`
	Databases []string `mapstructure:"databases"`
	SSLMode   string   `mapstructure:"sslmode"`
}

// Credentials returns the pool registry key material of the instance.
func (i Instance) Credentials() dbpool.Credentials {
	return dbpool.Credentials{
		Host:     i.Host,
		Port:     i.Port,
		Username: i.Username,
		Password: i.Password,
	}
}

// AllDatabases returns dbname followed by the other databases, without
// duplicates.
func (i Instance) AllDatabases() []string {
	seen := make(map[string]struct{}, len(i.Databases)+1)
	var dbnames []string
	for _, dbname := range append([]string{i.DBName}, i.Databases...) {
		if _, ok := seen[dbname]; ok || dbname == "" {
			continue
		}
		seen[dbname] = struct{}{}
		dbnames = append(dbnames, dbname)
	}
	return dbnames
}

// IdleTTL returns IdleConnectionTimeout as a duration.
func (c *Config) IdleTTL() time.Duration {
	return time.Duration(c.IdleConnectionTimeout) * time.Millisecond
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("max_connections", 30)
	v.SetDefault("idle_connection_timeout", 60000)
	v.SetDefault("prune_interval", 10*time.Second)
	v.SetDefault("collection_interval", 10*time.Second)
	v.SetDefault("close_timeout", 5*time.Second)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "json")
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.address", ":9187")
	v.SetDefault("debug.detect_deadlocks", false)
}

// Load reads the configuration file at path. Every key can be overridden
// by an environment variable, e.g. DBPOOL_LOG_LEVEL for log.level.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("DBPOOL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	for i := range cfg.Instances {
		cfg.Instances[i].applyDefaults()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func (i *Instance) applyDefaults() {
	if i.Driver == "" {
		i.Driver = DriverPostgres
	}
	if i.Port == 0 {
		switch i.Driver {
		case DriverPostgres:
			i.Port = 5432
		case DriverMySQL:
			i.Port = 3306
		}
	}
	if i.DBName == "" && i.Driver == DriverPostgres {
		i.DBName = "postgres"
	}
}

// Validate checks the configuration for values the pool cannot work with.
func (c *Config) Validate() error {
	if c.MaxConnections <= 0 {
		return errors.New("max_connections must be positive")
	}
	if c.IdleConnectionTimeout <= 0 {
		return errors.New("idle_connection_timeout must be positive")
	}
	if c.CollectionInterval <= 0 {
		return errors.New("collection_interval must be positive")
	}
	if len(c.Instances) == 0 {
		return errors.New("at least one instance is required")
	}
	for n, instance := range c.Instances {
		if instance.Host == "" {
			return fmt.Errorf("instances[%d]: host is required", n)
		}
		if instance.Driver != DriverPostgres && instance.Driver != DriverMySQL {
			return fmt.Errorf("instances[%d]: unknown driver %q", n, instance.Driver)
		}
		if len(instance.AllDatabases()) == 0 {
			return fmt.Errorf("instances[%d]: no database to collect", n)
		}
	}
	return nil
}
