package cmd

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spigell/freelance-advisor/internal/backend"
	"github.com/spigell/freelance-advisor/internal/cache"
	"github.com/spigell/freelance-advisor/internal/llm"
	"github.com/spigell/freelance-advisor/internal/server"
)

const (
	app       = "freelance-advisor"
	envPrefix = "ADVISOR"
)

type Config struct {
	Name    string         `mapstructure:"name"`
	Backend backend.Config `mapstructure:"backend"`
	Cache   CacheConfig    `mapstructure:"cache"`
	LLM     llm.Config     `mapstructure:"llm"`
	Server  server.Config  `mapstructure:"server"`
}

type CacheConfig struct {
	cache.Config `mapstructure:",squash"`

	// RedisURL switches the entry store from process memory to Redis.
	RedisURL    string `mapstructure:"redis-url" validate:"omitempty,url"`
	RedisPrefix string `mapstructure:"redis-prefix"`
	// WarmInterval refreshes every resource in the background; zero disables it.
	WarmInterval time.Duration `mapstructure:"warm-interval" validate:"gte=0"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "freelance-advisor answers freelancer and client questions about a decentralized job marketplace",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	if err := bindEnvs(); err != nil {
		log.Fatal(err)
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is freelance-advisor.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))

	setDefaults()
}

// bindEnvs maps keys to the unprefixed variable names used by deployments.
func bindEnvs() error {
	envs := map[string]string{
		"llm.api-key-file":        "ASI1_API_KEY_FILE",
		"llm.gemini.api-key-file": "GEMINI_API_KEY_FILE",
		"cache.redis-url":         "REDIS_URL",
	}
	for key, env := range envs {
		if err := viper.BindEnv(key, envPrefix+"_"+envKey(key), env); err != nil {
			return fmt.Errorf("binding %s environment variable: %w", env, err)
		}
	}
	return nil
}

// setDefaults registers every key so AutomaticEnv can override it during
// Unmarshal.
func setDefaults() {
	viper.SetDefault("name", "freelance-advisor-agent")

	viper.SetDefault("backend.base-url", "")
	viper.SetDefault("backend.canister-id", "")
	viper.SetDefault("backend.post-timeout", 0)
	viper.SetDefault("backend.get-timeout", 0)
	viper.SetDefault("backend.breaker.max-failures", 0)
	viper.SetDefault("backend.breaker.open-timeout", 0)

	viper.SetDefault("cache.ttl", cache.DefaultTTL)
	viper.SetDefault("cache.serve-stale-on-error", false)
	viper.SetDefault("cache.redis-prefix", "")
	viper.SetDefault("cache.warm-interval", 0)

	viper.SetDefault("llm.provider", llm.ProviderOpenAI)
	viper.SetDefault("llm.base-url", llm.DefaultBaseURL)
	viper.SetDefault("llm.model", llm.DefaultModel)
	viper.SetDefault("llm.api-key", "")
	viper.SetDefault("llm.timeout", llm.DefaultTimeout)
	viper.SetDefault("llm.max-tokens", llm.DefaultMaxTokens)
	viper.SetDefault("llm.parallel-tools", 1)
	viper.SetDefault("llm.gemini.model", "")
	viper.SetDefault("llm.gemini.api-key", "")
	viper.SetDefault("llm.gemini.max-retries", 0)

	viper.SetDefault("server.addr", server.DefaultAddr)
	viper.SetDefault("server.allowed-origins", []string{"*"})
	viper.SetDefault("server.read-timeout", 0)
	viper.SetDefault("server.write-timeout", 0)
	viper.SetDefault("server.shutdown-timeout", 0)
}

func initConfig() {
	// A missing .env is normal outside development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Fatalf("loading .env: %v", err)
	}

	useEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app + ".yaml")
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		// The default config file is optional, an explicit one is not.
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	var config *Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	if err := validator.New().Struct(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

func useEnv() {
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()
}

func envKey(key string) string {
	return strings.ToUpper(strings.NewReplacer("-", "_", ".", "_").Replace(key))
}
