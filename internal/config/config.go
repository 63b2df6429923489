package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. TABLEPLAN_LOG_LEVEL.
const EnvPrefix = "TABLEPLAN"

type Config struct {
	Engine struct {
		MaxColumns int   `mapstructure:"max_columns"`
		Coerce     bool  `mapstructure:"coerce"`
		Seed       int64 `mapstructure:"seed"` // 0 = unseeded
	} `mapstructure:"engine"`

	Translator struct {
		APIKey   string        `mapstructure:"api_key"`
		Model    string        `mapstructure:"model"`
		Endpoint string        `mapstructure:"endpoint"`
		Timeout  time.Duration `mapstructure:"timeout"`
	} `mapstructure:"translator"`

	Log Log `mapstructure:"log"`

	Preview struct {
		Rows int `mapstructure:"rows"`
	} `mapstructure:"preview"`
}

type Log struct {
	Level  string `mapstructure:"level"`
	SeqURL string `mapstructure:"seq_url"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("engine.max_columns", 50)
	v.SetDefault("engine.coerce", true)
	v.SetDefault("engine.seed", 0)
	v.SetDefault("translator.api_key", "")
	v.SetDefault("translator.model", "gemini-2.0-flash")
	v.SetDefault("translator.endpoint", "https://generativelanguage.googleapis.com/v1beta/models")
	v.SetDefault("translator.timeout", 30*time.Second)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.seq_url", "")
	v.SetDefault("preview.rows", 20)
}

// Load reads the YAML file at path (optional; "" skips it), applies
// TABLEPLAN_* environment overrides and fills defaults for every key.
// GEMINI_API_KEY is accepted for translator.api_key.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("translator.api_key", EnvPrefix+"_TRANSLATOR_API_KEY", "GEMINI_API_KEY"); err != nil {
		return nil, fmt.Errorf("bind env: %w", err)
	}

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}
