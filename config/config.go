// Package config loads the declfast configuration from an optional config
// file, environment variables and built-in defaults, in ascending order of
// precedence for env over file.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/prodops/declfast/naming"
)

// Config is the full declfast configuration.
type Config struct {
	// Experiment names the catalog namespace files are declared under.
	Experiment string `mapstructure:"experiment"`

	Catalog  Catalog  `mapstructure:"catalog"`
	Pipeline Pipeline `mapstructure:"pipeline"`
	Naming   Naming   `mapstructure:"naming"`
	Journal  Journal  `mapstructure:"journal"`
	Metrics  Metrics  `mapstructure:"metrics"`
	Log      Log      `mapstructure:"log"`
}

// Catalog configures the file catalog client.
type Catalog struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// Pipeline tunes worker pools, timeouts and rate limiting.
type Pipeline struct {
	MaxDeclareWorkers  int `mapstructure:"max_declare_workers"`
	MaxTransferWorkers int `mapstructure:"max_transfer_workers"`
	MinBatchSize       int `mapstructure:"min_batch_size"`
	QueueDepth         int `mapstructure:"queue_depth"`

	DeclarePopTimeout    time.Duration `mapstructure:"declare_pop_timeout"`
	TransferPopTimeout   time.Duration `mapstructure:"transfer_pop_timeout"`
	DeclareStartDelayMax time.Duration `mapstructure:"declare_start_delay_max"`
	TransferStartDelay   time.Duration `mapstructure:"transfer_start_delay"`

	MaxRespawns int `mapstructure:"max_respawns"`

	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Smear             float64 `mapstructure:"smear"`
}

// Naming configures filename rewriting and classification.
type Naming struct {
	Rewrites        map[string]string `mapstructure:"rewrites"`
	VirtualPrefixes []string          `mapstructure:"virtual_prefixes"`
	ExcludePrefixes []string          `mapstructure:"exclude_prefixes"`
	SidecarSuffix   string            `mapstructure:"sidecar_suffix"`
}

// Rules converts the configured tables into naming rules.
func (n Naming) Rules() naming.Rules {
	return naming.Rules{
		Rewrites:        n.Rewrites,
		VirtualPrefixes: n.VirtualPrefixes,
		ExcludePrefixes: n.ExcludePrefixes,
		SidecarSuffix:   n.SidecarSuffix,
	}
}

// Journal configures the on-disk run journal.
type Journal struct {
	// Path of the bolt database file. Empty disables journaling.
	Path string `mapstructure:"path"`
}

// Metrics configures the Prometheus endpoint.
type Metrics struct {
	// Listen is the address the /metrics endpoint binds to. Empty
	// disables the endpoint.
	Listen string `mapstructure:"listen"`
}

// Log configures logging.
type Log struct {
	Level string `mapstructure:"level"`
}

func setDefaults(v *viper.Viper) {
	def := naming.DefaultRules()

	// Every key needs a default so env-only overrides survive Unmarshal.
	v.SetDefault("experiment", "")
	v.SetDefault("catalog.url", "https://samweb.fnal.gov:8483/sam")
	v.SetDefault("catalog.timeout", 30*time.Second)

	v.SetDefault("pipeline.max_declare_workers", 4)
	v.SetDefault("pipeline.max_transfer_workers", 10)
	v.SetDefault("pipeline.min_batch_size", 10)
	v.SetDefault("pipeline.queue_depth", 1000)
	v.SetDefault("pipeline.declare_pop_timeout", 10*time.Second)
	v.SetDefault("pipeline.transfer_pop_timeout", 30*time.Second)
	v.SetDefault("pipeline.declare_start_delay_max", 5*time.Second)
	v.SetDefault("pipeline.transfer_start_delay", 5*time.Second)
	v.SetDefault("pipeline.max_respawns", 2)
	v.SetDefault("pipeline.requests_per_second", 5.0)
	v.SetDefault("pipeline.smear", 1.1)

	v.SetDefault("naming.rewrites", def.Rewrites)
	v.SetDefault("naming.virtual_prefixes", def.VirtualPrefixes)
	v.SetDefault("naming.exclude_prefixes", def.ExcludePrefixes)
	v.SetDefault("naming.sidecar_suffix", def.SidecarSuffix)

	v.SetDefault("journal.path", "")
	v.SetDefault("metrics.listen", "")
	v.SetDefault("log.level", "info")
}

// Load reads the configuration. A non-empty path names a config file that
// must exist and parse; environment variables with the DECLFAST_ prefix
// override file values (DECLFAST_CATALOG_URL overrides catalog.url).
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("DECLFAST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
