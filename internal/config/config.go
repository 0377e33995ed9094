// Package config loads huddle settings from defaults, an optional config
// file and HUDDLE_ prefixed environment variables.
package config

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const envPrefix = "HUDDLE"

const (
	ProviderGroq   = "groq"
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

const (
	ClassifierPattern = "pattern"
	ClassifierLLM     = "llm"
	ClassifierChain   = "chain"
)

var (
	ErrUnknownProvider   = errors.New("unknown llm provider")
	ErrUnknownClassifier = errors.New("unknown emergency classifier")
	ErrMissingAPIKey     = errors.New("llm api key is not set")
	ErrInvalidDuration   = errors.New("duration must not be negative")
	ErrMissingAddress    = errors.New("server address is empty")
)

type Config struct {
	Server      ServerConfig    `mapstructure:"server"`
	LLM         LLMConfig       `mapstructure:"llm"`
	Timing      TimingConfig    `mapstructure:"timing"`
	Emergency   EmergencyConfig `mapstructure:"emergency"`
	SourcesFile string          `mapstructure:"sources_file"`
	Log         LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
	// SessionIdleTimeout drops sessions nobody attached a stream to.
	SessionIdleTimeout time.Duration `mapstructure:"session_idle_timeout"`
	PruneInterval      time.Duration `mapstructure:"prune_interval"`
	// StrictEvents validates every outgoing event against the event schema.
	StrictEvents   bool     `mapstructure:"strict_events"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type LLMConfig struct {
	Provider    string  `mapstructure:"provider"`
	APIKey      string  `mapstructure:"api_key"`
	Model       string  `mapstructure:"model"`
	BaseURL     string  `mapstructure:"base_url"`
	Temperature float64 `mapstructure:"temperature"`
}

type TimingConfig struct {
	ReadingPause      time.Duration `mapstructure:"reading_pause"`
	PreSynthesisPause time.Duration `mapstructure:"pre_synthesis_pause"`
	QuestionTimeout   time.Duration `mapstructure:"question_timeout"`
	// RateInterval is the minimum spacing between two generation calls.
	RateInterval time.Duration `mapstructure:"rate_interval"`
}

type EmergencyConfig struct {
	Classifier string `mapstructure:"classifier"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":3001")
	v.SetDefault("server.session_idle_timeout", 10*time.Minute)
	v.SetDefault("server.prune_interval", time.Minute)
	v.SetDefault("server.strict_events", false)
	v.SetDefault("server.allowed_origins", []string{})

	v.SetDefault("llm.provider", ProviderGemini)
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.temperature", 0.7)

	v.SetDefault("timing.reading_pause", 4*time.Second)
	v.SetDefault("timing.pre_synthesis_pause", 5*time.Second)
	v.SetDefault("timing.question_timeout", 10*time.Second)
	v.SetDefault("timing.rate_interval", 2500*time.Millisecond)

	v.SetDefault("emergency.classifier", ClassifierChain)
	v.SetDefault("sources_file", "")
	v.SetDefault("log.level", "info")
}

// Load reads the configuration. An empty path looks for huddle.yaml in the
// working directory and skips it silently when absent; an explicit path must
// exist.
func Load(path string) (*Config, error) {
	return LoadWith(viper.New(), path)
}

func LoadWith(v *viper.Viper, path string) (*Config, error) {
	if v == nil {
		v = viper.New()
	}
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	} else {
		v.SetConfigName("huddle")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.LLM.Provider = strings.ToLower(strings.TrimSpace(cfg.LLM.Provider))
	cfg.Emergency.Classifier = strings.ToLower(strings.TrimSpace(cfg.Emergency.Classifier))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the shape of the configuration. It does not require an
// API key since not every command talks to a model; see LLMConfig.Ready.
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Server.Addr) == "" {
		errs = append(errs, ErrMissingAddress)
	}
	if !slices.Contains([]string{ProviderGroq, ProviderOpenAI, ProviderGemini}, c.LLM.Provider) {
		errs = append(errs, fmt.Errorf("%w: %q", ErrUnknownProvider, c.LLM.Provider))
	}
	if !slices.Contains([]string{ClassifierPattern, ClassifierLLM, ClassifierChain}, c.Emergency.Classifier) {
		errs = append(errs, fmt.Errorf("%w: %q", ErrUnknownClassifier, c.Emergency.Classifier))
	}

	durations := map[string]time.Duration{
		"timing.reading_pause":        c.Timing.ReadingPause,
		"timing.pre_synthesis_pause":  c.Timing.PreSynthesisPause,
		"timing.question_timeout":     c.Timing.QuestionTimeout,
		"timing.rate_interval":        c.Timing.RateInterval,
		"server.session_idle_timeout": c.Server.SessionIdleTimeout,
		"server.prune_interval":       c.Server.PruneInterval,
	}
	for _, key := range slices.Sorted(maps.Keys(durations)) {
		if durations[key] < 0 {
			errs = append(errs, fmt.Errorf("%w: %s", ErrInvalidDuration, key))
		}
	}

	return errors.Join(errs...)
}

// Ready reports whether a model client can be built from the settings.
func (c LLMConfig) Ready() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("%w (set %s_LLM_API_KEY)", ErrMissingAPIKey, envPrefix)
	}
	return nil
}

// NeedsLLM reports whether the emergency classifier talks to a model.
func (c EmergencyConfig) NeedsLLM() bool {
	return c.Classifier == ClassifierLLM || c.Classifier == ClassifierChain
}
