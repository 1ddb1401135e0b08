package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"latency-tester/pkg/database"
	"latency-tester/pkg/measurement"
)

// AppConfig is the decoded content of config.yaml plus environment overrides.
type AppConfig struct {
	Latency  measurement.Settings `mapstructure:"latency_test"`
	Database database.Config      `mapstructure:"database"`
}

// SearchPaths are the directories searched for config.yaml when no explicit
// file is given.
var SearchPaths = []string{".", "$HOME/.latency-tester", "/etc/latency-tester/"}

// Load reads the configuration. An explicit path must exist; without one the
// search paths are tried and a missing file leaves every key at its default.
// Environment variables override file values using the SECTION__KEY form,
// e.g. LATENCY_TEST__TEST_COUNT=5.
func Load(path string) (*AppConfig, error) {
	v := New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		for _, p := range SearchPaths {
			v.AddConfigPath(p)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error decoding config: %w", err)
	}
	return &cfg, nil
}

// New returns a viper instance with every known key defaulted and
// environment overrides enabled.
func New() *viper.Viper {
	v := viper.New()

	v.SetDefault("latency_test.test_count", measurement.DefaultTestCount)
	v.SetDefault("latency_test.concurrent_limit", measurement.DefaultConcurrentLimit)
	v.SetDefault("latency_test.retry_times", measurement.DefaultRetryTimes)
	v.SetDefault("latency_test.max_latency", measurement.DefaultMaxLatency)
	v.SetDefault("latency_test.ping_timeout", measurement.DefaultPingTimeout)
	v.SetDefault("latency_test.http_timeout", measurement.DefaultHTTPTimeout)
	v.SetDefault("latency_test.http_connect_timeout", measurement.DefaultHTTPConnectTimeout)
	v.SetDefault("latency_test.http_read_timeout", measurement.DefaultHTTPReadTimeout)
	v.SetDefault("latency_test.test_url", measurement.DefaultTestURL)
	v.SetDefault("latency_test.discard_outliers", true)
	v.SetDefault("latency_test.latency_buckets", measurement.DefaultLatencyBuckets())
	v.SetDefault("latency_test.http_via_proxy", false)
	v.SetDefault("latency_test.probe_rate_limit", 0)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "latency")
	v.SetDefault("database.sslmode", "disable")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "__"))
	v.AutomaticEnv()

	return v
}
