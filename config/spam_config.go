package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"spam_filter/core/service/learning"
	"spam_filter/core/service/lexicon"
	"spam_filter/pkg/apperr"
)

// ConfigFileEnv names the optional YAML file whose values env vars override.
const ConfigFileEnv = "SPAM_CONFIG_FILE"

type Config struct {
	Environment string `yaml:"env"`
	LogLevel    string `yaml:"log_level"`
	MetricsAddr string `yaml:"metrics_addr"`

	// Database
	DatabaseURL string `yaml:"database_url"`
	RedisURL    string `yaml:"redis_url"`
	MongoDBURL  string `yaml:"mongodb_url"`
	MongoDBName string `yaml:"mongodb_database"`

	// Training
	NumCPUCores    int `yaml:"num_cpu_cores"`
	TrainBatchSize int `yaml:"train_batch_size"`

	// Bayes
	BayesMinWordAppearance int     `yaml:"bayes_min_word_appearance"`
	BayesTopWords          int     `yaml:"bayes_top_words"`
	BayesSmoothing         float64 `yaml:"bayes_smoothing"`
	BayesThreshold         float64 `yaml:"bayes_threshold"`

	// Neural network
	NNThreshold       float64 `yaml:"nn_threshold"`
	NNEpochMultiplier int     `yaml:"nn_epoch_multiplier"`
	NNLearningRate    float64 `yaml:"nn_learning_rate"`
	NNValidationSplit float64 `yaml:"nn_validation_split"`
	NNSeed            int64   `yaml:"nn_seed"`

	// Cache
	CacheTTLMin int `yaml:"cache_ttl_min"`

	// Auto-learning
	AutoLearningEnabled     bool `yaml:"auto_learning_enabled"`
	AutoLearningIntervalSec int  `yaml:"auto_learning_interval_sec"`

	// Lexicon overrides
	LexiconRUPath string `yaml:"lexicon_ru_path"`
	LexiconENPath string `yaml:"lexicon_en_path"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() *Config {
	bayes := learning.DefaultBayesOptions()
	neural := learning.DefaultNeuralOptions()
	return &Config{
		Environment: "development",
		LogLevel:    "info",
		MongoDBName: "spamfilter",

		NumCPUCores:    runtime.NumCPU(),
		TrainBatchSize: learning.DefaultBatchSize,

		BayesMinWordAppearance: int(bayes.MinWordAppearance),
		BayesTopWords:          bayes.TopWords,
		BayesSmoothing:         bayes.Smoothing,
		BayesThreshold:         bayes.Threshold,

		NNThreshold:       neural.Threshold,
		NNEpochMultiplier: neural.EpochMultiplier,
		NNLearningRate:    neural.Network.LearningRate,
		NNValidationSplit: neural.ValidationSplit,
		NNSeed:            neural.Network.Seed,

		CacheTTLMin:             24 * 60,
		AutoLearningIntervalSec: 300,
	}
}

// Load builds the configuration from defaults, the optional YAML file named
// by SPAM_CONFIG_FILE and finally environment variables.
func Load() (*Config, error) {
	cfg := Defaults()
	if path := os.Getenv(ConfigFileEnv); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return apperr.ConfigError(fmt.Sprintf("read %s", path)).WithError(err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return apperr.ConfigError(fmt.Sprintf("parse %s", path)).WithError(err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Environment = getEnv("ENV", c.Environment)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.MetricsAddr = getEnv("METRICS_ADDR", c.MetricsAddr)

	// Database
	c.DatabaseURL = getEnv("DATABASE_URL", c.DatabaseURL)
	c.RedisURL = getEnv("REDIS_URL", c.RedisURL)
	c.MongoDBURL = getEnv("MONGODB_URL", c.MongoDBURL)
	c.MongoDBName = getEnv("MONGODB_DATABASE", c.MongoDBName)

	// Training
	c.NumCPUCores = getEnvInt("NUM_CPU_CORES", c.NumCPUCores)
	c.TrainBatchSize = getEnvInt("TRAIN_BATCH_SIZE", c.TrainBatchSize)

	// Bayes
	c.BayesMinWordAppearance = getEnvInt("BAYES_MIN_WORD_APPEARANCE", c.BayesMinWordAppearance)
	c.BayesTopWords = getEnvInt("BAYES_TOP_WORDS", c.BayesTopWords)
	c.BayesSmoothing = getEnvFloat("BAYES_SMOOTHING", c.BayesSmoothing)
	c.BayesThreshold = getEnvFloat("BAYES_THRESHOLD", c.BayesThreshold)

	// Neural network
	c.NNThreshold = getEnvFloat("NN_THRESHOLD", c.NNThreshold)
	c.NNEpochMultiplier = getEnvInt("NN_EPOCH_MULTIPLIER", c.NNEpochMultiplier)
	c.NNLearningRate = getEnvFloat("NN_LEARNING_RATE", c.NNLearningRate)
	c.NNValidationSplit = getEnvFloat("NN_VALIDATION_SPLIT", c.NNValidationSplit)
	c.NNSeed = int64(getEnvInt("NN_SEED", int(c.NNSeed)))

	// Cache
	c.CacheTTLMin = getEnvInt("CACHE_TTL_MIN", c.CacheTTLMin)

	// Auto-learning
	c.AutoLearningEnabled = getEnvBool("AUTO_LEARNING_ENABLED", c.AutoLearningEnabled)
	c.AutoLearningIntervalSec = getEnvInt("AUTO_LEARNING_INTERVAL_SEC", c.AutoLearningIntervalSec)

	// Lexicon
	c.LexiconRUPath = getEnv("LEXICON_RU_PATH", c.LexiconRUPath)
	c.LexiconENPath = getEnv("LEXICON_EN_PATH", c.LexiconENPath)
}

// Validate rejects values the models cannot work with.
func (c *Config) Validate() error {
	switch {
	case c.NumCPUCores < 1:
		return apperr.ConfigError("NUM_CPU_CORES must be positive")
	case c.TrainBatchSize < 1:
		return apperr.ConfigError("TRAIN_BATCH_SIZE must be positive")
	case c.BayesTopWords < 1:
		return apperr.ConfigError("BAYES_TOP_WORDS must be positive")
	case c.BayesThreshold <= 0 || c.BayesThreshold >= 1:
		return apperr.ConfigError("BAYES_THRESHOLD must be in (0, 1)")
	case c.NNThreshold <= 0 || c.NNThreshold >= 1:
		return apperr.ConfigError("NN_THRESHOLD must be in (0, 1)")
	case c.NNValidationSplit < 0 || c.NNValidationSplit >= 1:
		return apperr.ConfigError("NN_VALIDATION_SPLIT must be in [0, 1)")
	case c.NNEpochMultiplier < 1:
		return apperr.ConfigError("NN_EPOCH_MULTIPLIER must be positive")
	}
	return nil
}

// BayesOptions projects the configuration onto the Bayes model options.
func (c *Config) BayesOptions() learning.BayesOptions {
	opts := learning.DefaultBayesOptions()
	opts.MinWordAppearance = int64(c.BayesMinWordAppearance)
	opts.TopWords = c.BayesTopWords
	opts.Smoothing = c.BayesSmoothing
	opts.Threshold = c.BayesThreshold
	opts.Workers = c.NumCPUCores
	return opts
}

// NeuralOptions projects the configuration onto the neural model options.
func (c *Config) NeuralOptions() learning.NeuralOptions {
	opts := learning.DefaultNeuralOptions()
	opts.Threshold = c.NNThreshold
	opts.EpochMultiplier = c.NNEpochMultiplier
	opts.ValidationSplit = c.NNValidationSplit
	opts.Network.LearningRate = c.NNLearningRate
	opts.Network.Seed = c.NNSeed
	opts.Workers = c.NumCPUCores
	return opts
}

// LexiconOptions returns the dictionary overrides.
func (c *Config) LexiconOptions() lexicon.Options {
	return lexicon.Options{RussianPath: c.LexiconRUPath, EnglishPath: c.LexiconENPath}
}

// CacheTTL returns the word cache entry lifetime.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLMin) * time.Minute
}

// AutoLearningInterval returns the period of the auto-learning loop.
func (c *Config) AutoLearningInterval() time.Duration {
	return time.Duration(c.AutoLearningIntervalSec) * time.Second
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
