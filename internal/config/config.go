package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all runtime settings for a gridsql node.
type Config struct {
	Partitions int // number of cache partitions

	Query   QueryConfig
	Network NetworkConfig
	SeqURL  string // Seq log sink, empty disables
}

type QueryConfig struct {
	Timeout           time.Duration // whole-query deadline
	SubRequestTimeout time.Duration // per-partition sub-request deadline
}

type NetworkConfig struct {
	Port           int // client-facing TCP port
	ClusterPort    int // partition sub-request port (0 = local only)
	MaxConnections int // bound on concurrent connection handlers
}

// Load reads configuration from gridsql.yaml (if present) and the
// GRIDSQL_* environment, falling back to defaults.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("partitions", 8)
	v.SetDefault("query.timeout", "5s")
	v.SetDefault("query.subrequest_timeout", "2s")
	v.SetDefault("network.port", 5433)
	v.SetDefault("network.cluster_port", 0)
	v.SetDefault("network.max_connections", 128)
	v.SetDefault("seq_url", "")

	v.SetConfigName("gridsql")
	v.SetConfigType("yaml")
	if path != "" {
		v.AddConfigPath(path)
	}
	v.AddConfigPath(".")

	v.SetEnvPrefix("GRIDSQL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// Missing config file is fine, everything has a default
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	cfg := &Config{
		Partitions: v.GetInt("partitions"),
		Query: QueryConfig{
			Timeout:           v.GetDuration("query.timeout"),
			SubRequestTimeout: v.GetDuration("query.subrequest_timeout"),
		},
		Network: NetworkConfig{
			Port:           v.GetInt("network.port"),
			ClusterPort:    v.GetInt("network.cluster_port"),
			MaxConnections: v.GetInt("network.max_connections"),
		},
		SeqURL: v.GetString("seq_url"),
	}

	if cfg.Partitions < 1 {
		cfg.Partitions = 1
	}

	return cfg, nil
}
