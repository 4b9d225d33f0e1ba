package main

import (
	"time"

	"github.com/flowcache/ccache/configloader"
	"github.com/spf13/pflag"
)

// ctlConfig is ccachectl's runtime configuration, loaded in precedence
// order defaults -> YAML file -> environment -> flags, matching
// configloader's own documented option ordering.
type ctlConfig struct {
	AdminAddress     string        `koanf:"admin_address"`
	Shards           int           `koanf:"shards"`
	CapacityPerShard int           `koanf:"capacity_per_shard"`
	SweepInterval    time.Duration `koanf:"sweep_interval"`
	SweepWorkers     int           `koanf:"sweep_workers"`
	DefaultLifeMS    int64         `koanf:"default_life_ms"`
	DefaultIdleMS    int64         `koanf:"default_idle_ms"`
	MetricsNamespace string        `koanf:"metrics_namespace"`
	MetricsAddress   string        `koanf:"metrics_address"`
	LogFormat        string        `koanf:"log_format"`
	ConfigFile       string        `koanf:"config_file"`
}

func defaultCtlConfig() ctlConfig {
	return ctlConfig{
		AdminAddress:     ":8090",
		Shards:           16,
		CapacityPerShard: 0,
		SweepInterval:    30 * time.Second,
		SweepWorkers:     4,
		DefaultLifeMS:    0,
		DefaultIdleMS:    0,
		MetricsNamespace: "ccache",
		MetricsAddress:   ":9090",
		LogFormat:        "console",
	}
}

func loadConfig(args []string) (ctlConfig, error) {
	defaults := defaultCtlConfig()

	flags := pflag.NewFlagSet("ccachectl", pflag.ContinueOnError)
	flags.String("admin_address", defaults.AdminAddress, "admin HTTP listen address")
	flags.Int("shards", defaults.Shards, "number of store shards")
	flags.Int("capacity_per_shard", defaults.CapacityPerShard, "per-shard entry cap, 0 for unbounded")
	flags.Duration("sweep_interval", defaults.SweepInterval, "background janitor sweep interval, 0 disables it")
	flags.Int("sweep_workers", defaults.SweepWorkers, "worker pool size for the janitor's per-shard sweeps")
	flags.Int64("default_life_ms", defaults.DefaultLifeMS, "default entry lifetime in milliseconds, 0 for none")
	flags.Int64("default_idle_ms", defaults.DefaultIdleMS, "default entry idle bound in milliseconds, 0 for none")
	flags.String("metrics_namespace", defaults.MetricsNamespace, "Prometheus namespace prefix")
	flags.String("metrics_address", defaults.MetricsAddress, "listen address for the standalone /metrics endpoint")
	flags.String("log_format", defaults.LogFormat, "log output format: console or json")
	flags.String("config_file", "", "optional YAML/JSON config file")

	if err := flags.Parse(args); err != nil {
		return ctlConfig{}, err
	}

	configFile, _ := flags.GetString("config_file")
	if configFile == "" {
		configFile = "ccachectl.yaml"
	}

	opts := []configloader.Option[ctlConfig]{
		configloader.WithDefaults(defaults),
		configloader.WithOptionalFile[ctlConfig](configFile),
	}
	opts = append(opts,
		configloader.WithEnv[ctlConfig]("CCACHECTL_"),
		configloader.WithFlags[ctlConfig](flags),
	)

	loader := configloader.NewConfigLoader(opts...)
	return loader.Load()
}
