package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	SourceVedtak    = "vedtak"
	SourceMeldekort = "meldekort"

	// OpenEndedToday closes a decision without end date at the current date.
	OpenEndedToday = "today"
	// OpenEndedDrop leaves decisions without end date out of the solution.
	OpenEndedDrop = "drop"

	DriverAMQP   = "amqp"
	DriverMemory = "memory"
)

type Config struct {
	Service  ServiceConfig  `mapstructure:"service"`
	Log      LogConfig      `mapstructure:"log"`
	Broker   BrokerConfig   `mapstructure:"broker"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Backend  BackendConfig  `mapstructure:"backend"`
	Dispatch DispatchConfig `mapstructure:"dispatch"`
	Needs    []NeedConfig   `mapstructure:"needs"`

	v *viper.Viper
}

type ServiceConfig struct {
	Name string `mapstructure:"name"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	// SecurePath is where the access-restricted "tjenestekall" log is written.
	// Empty means stderr.
	SecurePath string `mapstructure:"secure_path"`
	Otel       bool   `mapstructure:"otel"`
}

type BrokerConfig struct {
	Driver string `mapstructure:"driver"`
	URL    string `mapstructure:"url"`
	// Topic is the shared rapid every node reads from and writes to.
	Topic string `mapstructure:"topic"`
	// Group names this node's queue; instances sharing a group share the work.
	Group string `mapstructure:"group"`
}

type HTTPConfig struct {
	Addr string `mapstructure:"addr"`
}

type BackendConfig struct {
	YtelseskontraktURL string        `mapstructure:"ytelseskontrakt_url"`
	MeldekortURL       string        `mapstructure:"meldekort_url"`
	UsernamePath       string        `mapstructure:"username_path"`
	PasswordPath       string        `mapstructure:"password_path"`
	Timeout            time.Duration `mapstructure:"timeout"`
	Breaker            BreakerConfig `mapstructure:"breaker"`
}

type BreakerConfig struct {
	MaxRequests      uint32        `mapstructure:"max_requests"`
	Interval         time.Duration `mapstructure:"interval"`
	Timeout          time.Duration `mapstructure:"timeout"`
	FailureThreshold uint32        `mapstructure:"failure_threshold"`
}

type DispatchConfig struct {
	Workers   int           `mapstructure:"workers"`
	QueueSize int           `mapstructure:"queue_size"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// NeedConfig describes one need type this node answers.
type NeedConfig struct {
	Behov      string   `mapstructure:"behov"`
	Ytelsetype string   `mapstructure:"ytelsetype"`
	Tema       string   `mapstructure:"tema"`
	Sources    []string `mapstructure:"sources"`
	OpenEnded  string   `mapstructure:"open_ended"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("service.name", "benefit-solver")
	v.SetDefault("log.level", "info")
	v.SetDefault("broker.driver", DriverAMQP)
	v.SetDefault("broker.topic", "helse-rapid-v1")
	v.SetDefault("broker.group", "benefit-solver")
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("backend.username_path", "/var/run/secrets/nais.io/service_user/username")
	v.SetDefault("backend.password_path", "/var/run/secrets/nais.io/service_user/password")
	v.SetDefault("backend.timeout", "30s")
	v.SetDefault("backend.breaker.max_requests", 1)
	v.SetDefault("backend.breaker.interval", "60s")
	v.SetDefault("backend.breaker.timeout", "30s")
	v.SetDefault("backend.breaker.failure_threshold", 5)
	v.SetDefault("dispatch.workers", 8)
	v.SetDefault("dispatch.queue_size", 64)
	v.SetDefault("dispatch.timeout", "60s")
	v.SetDefault("needs", []map[string]any{
		{
			"behov":      "Dagpenger",
			"ytelsetype": "Dagpenger",
			"tema":       "DAG",
			"sources":    []string{SourceVedtak, SourceMeldekort},
			"open_ended": OpenEndedToday,
		},
		{
			"behov":      "Arbeidsavklaringspenger",
			"ytelsetype": "Arbeidsavklaringspenger",
			"tema":       "AAP",
			"sources":    []string{SourceVedtak, SourceMeldekort},
			"open_ended": OpenEndedToday,
		},
	})
}

// legacyEnv maps config keys to the environment names the platform already provides.
var legacyEnv = map[string]string{
	"backend.ytelseskontrakt_url": "YTELSESKONTRAKT_BASE_URL",
	"backend.meldekort_url":       "MELDEKORT_UTBETALINGSGRUNNLAG_ENDPOINTURL",
	"broker.group":                "RAPID_APP_NAME",
	"broker.topic":                "KAFKA_RAPID_TOPIC",
	"broker.url":                  "AMQP_URL",
}

// LoadConfig reads, in increasing precedence: defaults, the optional file, environment,
// and flags that were explicitly set.
func LoadConfig(file string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range legacyEnv {
		if err := v.BindEnv(key, strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env); err != nil {
			return nil, fmt.Errorf("config: bind env %s: %w", env, err)
		}
	}

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("config: bind flags: %w", err)
		}
	}

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", file, err)
		}
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	cfg.v = v
	return &cfg, nil
}

// Validate checks the invariants the rest of the service relies on.
func (c *Config) Validate() error {
	var errs []error

	if _, err := c.Log.SlogLevel(); err != nil {
		errs = append(errs, err)
	}

	switch c.Broker.Driver {
	case DriverAMQP:
		if c.Broker.URL == "" {
			errs = append(errs, errors.New("config: broker.url is required for the amqp driver"))
		}
	case DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("config: unknown broker.driver %q", c.Broker.Driver))
	}
	if c.Broker.Topic == "" {
		errs = append(errs, errors.New("config: broker.topic is required"))
	}

	if len(c.Needs) == 0 {
		errs = append(errs, errors.New("config: at least one need is required"))
	}

	seen := make(map[string]bool, len(c.Needs))
	for i, n := range c.Needs {
		if n.Behov == "" {
			errs = append(errs, fmt.Errorf("config: needs[%d].behov is required", i))
			continue
		}
		// [DISJOINT_NEEDS] Two handlers on the same behov would both write its solution.
		if seen[n.Behov] {
			errs = append(errs, fmt.Errorf("config: need %q is configured twice", n.Behov))
		}
		seen[n.Behov] = true

		if len(n.Sources) == 0 {
			errs = append(errs, fmt.Errorf("config: need %q has no sources", n.Behov))
		}
		for _, s := range n.Sources {
			switch s {
			case SourceVedtak:
				if n.Ytelsetype == "" {
					errs = append(errs, fmt.Errorf("config: need %q: source vedtak requires ytelsetype", n.Behov))
				}
			case SourceMeldekort:
				if n.Tema == "" {
					errs = append(errs, fmt.Errorf("config: need %q: source meldekort requires tema", n.Behov))
				}
			default:
				errs = append(errs, fmt.Errorf("config: need %q: unknown source %q", n.Behov, s))
			}
		}

		switch n.OpenEnded {
		case OpenEndedToday, OpenEndedDrop, "":
		default:
			errs = append(errs, fmt.Errorf("config: need %q: unknown open_ended policy %q", n.Behov, n.OpenEnded))
		}
	}

	return errors.Join(errs...)
}

// HasSource reports whether the need reads from source.
func (n NeedConfig) HasSource(source string) bool {
	for _, s := range n.Sources {
		if s == source {
			return true
		}
	}
	return false
}

// SlogLevel parses Level.
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("config: log.level: %w", err)
	}
	return level, nil
}

// Watch calls fn with the re-read config whenever the config file changes.
// Without a config file there is nothing to watch.
func (c *Config) Watch(fn func(*Config, error)) {
	if c.v == nil || c.v.ConfigFileUsed() == "" {
		return
	}
	c.v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		next, err := decode(c.v)
		if err == nil {
			err = next.Validate()
		}
		fn(next, err)
	})
	c.v.WatchConfig()
}
