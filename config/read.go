package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

const (
	ConfigName   = "config"
	ConfigFormat = "yaml"
	EnvPrefix    = "AMBULANZ"
)

var GlobalConf *Config

// setDefaults mirrors the behaviour of a fresh installation: local CSV
// storage, EBM fees of the outpatient clinic and the 600 session goal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.timeout_seconds", 30)
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.rate_limit.requests_per_minute", 120)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.dbname", "ambulanz")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.pool.max_open_conns", 10)
	v.SetDefault("database.pool.max_idle_conns", 2)
	v.SetDefault("database.pool.conn_max_lifetime_minutes", 5)

	v.SetDefault("database.user", "")
	v.SetDefault("database.password", "")

	// Empty addresses disable the optional backends. The defaults also make
	// the keys known to viper so env-only settings are decoded.
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.report_ttl_minutes", 60)
	v.SetDefault("nats.url", "")
	v.SetDefault("s3.bucket", "")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.region", "eu-central-1")
	v.SetDefault("s3.access_key_id", "")
	v.SetDefault("s3.secret_access_key", "")

	v.SetDefault("storage.driver", StorageDriverCSV)
	v.SetDefault("storage.csv_path", "data/termine.csv")

	v.SetDefault("schedule.intake_count", 3)

	v.SetDefault("billing.practice", "intern")
	v.SetDefault("billing.fees", map[string]float64{
		"Sprechstunde": 46.80,
		"Probatorik":   35.15,
		"Anamnese":     35.05,
		"KZT":          46.65,
		"LZT":          46.65,
		"RFP":          46.65,
		"PTG":          38.20,
	})
	v.SetDefault("billing.external_deduction", 3.0)
	v.SetDefault("billing.estimate_factor", 10.0/12.0)

	v.SetDefault("supervision.total_ratio", 0.25)
	v.SetDefault("supervision.individual_ratio", 1.0/12.0)
	v.SetDefault("supervision.group_ratio", 1.0/6.0)

	v.SetDefault("progress.goal", 600)
	v.SetDefault("progress.window_days", 30)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.output.stdout", true)

	v.SetDefault("observability.service_name", "ambulanz")
	v.SetDefault("observability.metrics.path", "/metrics")
}

func ReadConfig(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName(ConfigName)
	v.SetConfigType(ConfigFormat)
	v.AddConfigPath(configPath)

	// Allow env vars to override config values.
	// e.g. AMBULANZ_DATABASE_HOST overrides database.host
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// The config file is optional when the environment carries the settings.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %v", err)
		}
		if os.Getenv(EnvPrefix+"_STORAGE_DRIVER") == "" {
			fmt.Fprintf(os.Stderr, "no %s.%s in %s, using defaults\n", ConfigName, ConfigFormat, configPath)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %v", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

func MustReadConfig(path string) *Config {
	config, err := ReadConfig(path)
	if err != nil {
		panic(err)
	}

	GlobalConf = config

	return config
}
