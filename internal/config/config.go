package config

import (
	"errors"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds the application configuration
type Config struct {
	Server     ServerConfig
	DB         DBConfig
	LLM        LLMConfig
	Chat       ChatConfig
	Auth       AuthConfig
	Encryption EncryptionConfig
	LogLevel   string `mapstructure:"log_level"`
}

// ServerConfig holds the HTTP server configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
}

// DBConfig holds the document store configuration
type DBConfig struct {
	Path string `mapstructure:"path"`
}

// LLMConfig holds the language-model endpoint configuration
type LLMConfig struct {
	BaseURL    string `mapstructure:"base_url"`
	APIKey     string `mapstructure:"api_key"`
	Model      string `mapstructure:"model"`
	CheapModel string `mapstructure:"cheap_model"`
}

// ChatConfig holds the conversation-context tuning knobs
type ChatConfig struct {
	// HistoryLimit is the maximum number of raw turns kept in model context.
	HistoryLimit int `mapstructure:"history_limit"`
	// SummarizeAfter is the turn count past which the running summary is
	// considered due for a refresh.
	SummarizeAfter int `mapstructure:"summarize_after"`
	// UseCheapModelForSummary routes summary refreshes to CheapModel.
	UseCheapModelForSummary bool `mapstructure:"use_cheap_model_for_summary"`
}

// AuthConfig holds the token-auth configuration
type AuthConfig struct {
	JWTSecret         string `mapstructure:"jwt_secret"`
	JWTExpirationDays int    `mapstructure:"jwt_expiration_days"`
}

// EncryptionConfig holds the at-rest encryption configuration
type EncryptionConfig struct {
	Key string `mapstructure:"key"`
}

// Load reads configuration from the yaml file pointed at by CONFIG_PATH
// (default ./config.yaml) with environment-variable overrides, e.g.
// NOUS_LLM_API_KEY overrides llm.api_key.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("NOUS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		// env-only operation is fine
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8000")
	v.SetDefault("db.path", "./data/nous.db")
	v.SetDefault("llm.base_url", "https://api.openai.com/v1")
	// empty defaults register the keys so AutomaticEnv can fill them
	v.SetDefault("llm.api_key", "")
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("encryption.key", "")
	v.SetDefault("llm.model", "gpt-4o")
	v.SetDefault("llm.cheap_model", "gpt-4o-mini")
	v.SetDefault("chat.history_limit", 10)
	v.SetDefault("chat.summarize_after", 6)
	v.SetDefault("chat.use_cheap_model_for_summary", true)
	v.SetDefault("auth.jwt_expiration_days", 30)
	v.SetDefault("log_level", "info")
}
