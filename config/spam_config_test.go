package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spam_filter/pkg/apperr"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv(ConfigFileEnv, "")
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 1000, cfg.TrainBatchSize)
	assert.Equal(t, 13, cfg.BayesTopWords)
	assert.Equal(t, 0.9, cfg.BayesThreshold)
	assert.Equal(t, 0.6, cfg.NNThreshold)
	assert.Equal(t, 24*time.Hour, cfg.CacheTTL())
	assert.Positive(t, cfg.NumCPUCores)
	assert.False(t, cfg.AutoLearningEnabled)
	assert.Zero(t, cfg.NeuralOptions().Network.Seed)
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spam.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
bayes_top_words: 20
nn_threshold: 0.7
auto_learning_enabled: true
database_url: postgres://file/db
`), 0o600))

	t.Setenv(ConfigFileEnv, path)
	t.Setenv("DATABASE_URL", "postgres://env/db")
	t.Setenv("NUM_CPU_CORES", "3")
	t.Setenv("BAYES_SMOOTHING", "not-a-number")
	t.Setenv("NN_SEED", "42")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 20, cfg.BayesTopWords)
	assert.Equal(t, 0.7, cfg.NNThreshold)
	assert.True(t, cfg.AutoLearningEnabled)
	assert.Equal(t, "postgres://env/db", cfg.DatabaseURL)
	assert.Equal(t, 3.0, cfg.BayesSmoothing)

	bayes := cfg.BayesOptions()
	assert.Equal(t, 20, bayes.TopWords)
	assert.Equal(t, 3, bayes.Workers)
	neural := cfg.NeuralOptions()
	assert.Equal(t, 0.7, neural.Threshold)
	assert.Equal(t, 3, neural.Workers)
	assert.Equal(t, int64(42), neural.Network.Seed)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv(ConfigFileEnv, "")
	t.Setenv("NN_THRESHOLD", "1.5")
	_, err := Load()
	require.Error(t, err)
	assert.Equal(t, apperr.ExitConfig, apperr.GetExitCode(err))
}

func TestLoadMissingFile(t *testing.T) {
	t.Setenv(ConfigFileEnv, filepath.Join(t.TempDir(), "absent.yaml"))
	_, err := Load()
	assert.True(t, apperr.HasCode(err, apperr.CodeConfigError))
}
