package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spam_filter/adapter/out/memory"
	"spam_filter/config"
	"spam_filter/internal/bootstrap"
	"spam_filter/pkg/apperr"
)

var (
	spamCorpus = filepath.Join("..", "..", "core", "service", "learning", "testdata", "spam.txt")
	hamCorpus  = filepath.Join("..", "..", "core", "service", "learning", "testdata", "ham.txt")
)

type testEnv struct {
	words    *memory.WordCounterStore
	weights  *memory.WeightBlobStore
	messages *memory.LearningMessageStore
}

func newTestEnv() *testEnv {
	return &testEnv{
		words:    memory.NewWordCounterStore(),
		weights:  memory.NewWeightBlobStore(),
		messages: memory.NewLearningMessageStore(),
	}
}

// run executes one CLI invocation against the in-memory stores of env.
func (e *testEnv) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Setenv(config.ConfigFileEnv, "")
	t.Setenv("METRICS_ADDR", "")

	var out bytes.Buffer
	app := &App{
		Out: &out,
		NewDeps: func(_ context.Context, cfg *config.Config, log zerolog.Logger) (*bootstrap.Dependencies, func(), error) {
			deps, err := bootstrap.NewInMemory(cfg, log, e.words, e.weights, e.messages)
			return deps, func() {}, err
		},
	}
	root := NewRootCommand(app)
	root.SetArgs(args)
	root.SetOut(&out)
	root.SetIn(strings.NewReader(stdin))
	defer app.teardown()
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestTrainBayesAndCheck(t *testing.T) {
	env := newTestEnv()

	out, err := env.run(t, "", "train-bayes", "--spam-file", spamCorpus, "--ham-file", hamCorpus, "--init", "--batch-size", "5")
	require.NoError(t, err)
	assert.Equal(t, "trained bayes on 16 messages\n", out)
	assert.Positive(t, env.words.Len())

	spam, err := os.ReadFile(spamCorpus)
	require.NoError(t, err)
	first := strings.SplitN(string(spam), "**********\n", 2)[0]

	out, err = env.run(t, first, "check", "--model", "bayes")
	require.NoError(t, err)
	assert.Equal(t, "spam\n", out)

	ham, err := os.ReadFile(hamCorpus)
	require.NoError(t, err)
	hamFile := filepath.Join(t.TempDir(), "ham.eml")
	require.NoError(t, os.WriteFile(hamFile, []byte(strings.SplitN(string(ham), "**********\n", 2)[0]), 0o600))

	out, err = env.run(t, "", "check", "-m", "bayes", "--probability", "--file", hamFile)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "ham 0."), out)
}

func TestValidateReportsMismatchCount(t *testing.T) {
	env := newTestEnv()
	_, err := env.run(t, "", "train-bayes", "--spam-file", spamCorpus, "--ham-file", hamCorpus, "--init")
	require.NoError(t, err)

	out, err := env.run(t, "", "validate", "-m", "bayes", "--spam-file", spamCorpus, "--ham-file", hamCorpus, "--limit", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "mismatches\n")
}

func TestCheckStoreQueuesMessage(t *testing.T) {
	env := newTestEnv()
	out, err := env.run(t, "", "check", "--store", "see you at lunch")
	require.NoError(t, err)
	assert.Contains(t, []string{"spam\n", "ham\n"}, out)
	require.Len(t, env.messages.All(), 1)
	assert.Zero(t, env.weights.Count())
}

func TestSubmitAndAutolearn(t *testing.T) {
	env := newTestEnv()

	out, err := env.run(t, `[{"content": "spam", "spam": true}, {"content": "ham", "spam": false}]`, "submit")
	require.NoError(t, err)
	assert.Equal(t, "queued 2 messages\n", out)

	t.Setenv("AUTO_LEARNING_ENABLED", "false")
	out, err = env.run(t, "", "autolearn")
	require.NoError(t, err)
	assert.Contains(t, out, "disabled")

	out, err = env.run(t, "", "autolearn", "--force")
	require.NoError(t, err)
	assert.Equal(t, "learned from 2 messages\n", out)
	_, ok := env.words.Get("spam")
	assert.True(t, ok)
}

func TestCommandErrors(t *testing.T) {
	env := newTestEnv()

	_, err := env.run(t, "", "train-nn")
	assert.Equal(t, apperr.ExitUsage, apperr.GetExitCode(err))

	_, err = env.run(t, "", "check", "--model", "svm", "hello")
	assert.True(t, apperr.HasCode(err, apperr.CodeInvalidInput))

	_, err = env.run(t, "not json", "submit")
	assert.True(t, apperr.HasCode(err, apperr.CodeMalformedInput))

	_, err = env.run(t, "", "train-bayes", "--spam-file", "does-not-exist.txt")
	assert.Equal(t, apperr.ExitData, apperr.GetExitCode(err))
	assert.True(t, apperr.HasCode(err, apperr.CodeNotFound))

	_, err = env.run(t, "", "archive", "--spam-file", spamCorpus)
	assert.True(t, apperr.HasCode(err, apperr.CodeConfigError))

	_, err = env.run(t, "", "schema")
	assert.True(t, apperr.HasCode(err, apperr.CodeConfigError))

	_, err = env.run(t, "", "train-bayes", "--no-such-flag")
	assert.Equal(t, apperr.ExitUsage, apperr.GetExitCode(err))
}
