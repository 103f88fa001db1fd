package learning

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spam_filter/adapter/out/memory"
	"spam_filter/adapter/out/source"
	"spam_filter/core/domain"
	"spam_filter/core/port/in"
	"spam_filter/core/service/content"
	"spam_filter/core/service/lexicon"
	"spam_filter/pkg/apperr"
	"spam_filter/pkg/logger"
)

var (
	parserOnce sync.Once
	testParser *content.Parser
	parserErr  error
)

func newParser(t *testing.T) *content.Parser {
	t.Helper()
	parserOnce.Do(func() {
		var lex *lexicon.Lexicon
		lex, parserErr = lexicon.Shared()
		if parserErr == nil {
			testParser = content.NewParser(lex)
		}
	})
	require.NoError(t, parserErr)
	return testParser
}

func corpus() (spam, ham *source.FileSource) {
	return source.NewFileSource(filepath.Join("testdata", "spam.txt"), ""),
		source.NewFileSource(filepath.Join("testdata", "ham.txt"), "")
}

func newBayes(t *testing.T, store *memory.WordCounterStore, opts BayesOptions) *BayesModel {
	return NewBayesModel(store, newParser(t), opts, zerolog.Nop())
}

func TestCombineProbabilitiesSingleWord(t *testing.T) {
	counters := map[string]domain.WordCounter{
		"spam": {Word: "spam", SpamCount: 1},
		"ham":  {Word: "ham", HamCount: 1},
	}
	sums := domain.CounterSums{Spam: 1, Ham: 1}

	p := CombineProbabilities([]string{"spam"}, counters, sums, DefaultBayesOptions())
	assert.InDelta(t, 0.625, p, 1e-9)
	assert.False(t, p > DefaultBayesOptions().Threshold)

	p = CombineProbabilities([]string{"ham"}, counters, sums, DefaultBayesOptions())
	assert.InDelta(t, 0.375, p, 1e-9)
}

func TestCombineProbabilitiesManySpamWords(t *testing.T) {
	counters := map[string]domain.WordCounter{"ham": {Word: "ham", HamCount: 5}}
	words := []string{"w1", "w2", "w3", "w4", "w5"}
	for _, w := range words {
		counters[w] = domain.WordCounter{Word: w, SpamCount: 3}
	}
	sums := domain.CounterSums{Spam: 15, Ham: 5}

	p := CombineProbabilities(words, counters, sums, DefaultBayesOptions())
	assert.InDelta(t, 243.0/244.0, p, 1e-9)
	assert.Greater(t, p, 0.9)
}

func TestCombineProbabilitiesNoEvidence(t *testing.T) {
	opts := DefaultBayesOptions()
	assert.Equal(t, 0.5, CombineProbabilities([]string{"x"}, nil, domain.CounterSums{}, opts))
	assert.Equal(t, 0.5, CombineProbabilities(nil, nil, domain.CounterSums{Spam: 1}, opts))
}

func TestCombineProbabilitiesTopWords(t *testing.T) {
	counters := map[string]domain.WordCounter{
		"mild":   {Word: "mild", SpamCount: 1, HamCount: 1},
		"strong": {Word: "strong", HamCount: 4},
	}
	sums := domain.CounterSums{Spam: 1, Ham: 5}
	opts := DefaultBayesOptions()
	opts.TopWords = 1

	p := CombineProbabilities([]string{"mild", "strong"}, counters, sums, opts)
	// Only "strong" survives: p=0, n=4 -> (1.5 + 0) / 7.
	assert.InDelta(t, 1.5/7, p, 1e-9)
}

func TestBayesTrainAndCheck(t *testing.T) {
	ctx := context.Background()
	store := memory.NewWordCounterStore()
	model := newBayes(t, store, DefaultBayesOptions())
	trainer := NewTrainer(zerolog.Nop())
	spamSrc, hamSrc := corpus()

	n, err := trainer.TrainFromSources(ctx, model, spamSrc, hamSrc, TrainOptions{BatchSize: 5, Init: true})
	require.NoError(t, err)
	assert.Equal(t, 16, n)

	spam, err := spamSrc.Content(ctx, 1)
	require.NoError(t, err)
	ham, err := hamSrc.Content(ctx, 1)
	require.NoError(t, err)

	isSpam, err := model.CheckMessageForSpam(ctx, spam[0])
	require.NoError(t, err)
	assert.True(t, isSpam)
	isSpam, err = model.CheckMessageForSpam(ctx, ham[0])
	require.NoError(t, err)
	assert.False(t, isSpam)

	sums, err := store.Sums(ctx)
	require.NoError(t, err)

	_, err = trainer.TrainFromSources(ctx, model, spamSrc, hamSrc, TrainOptions{BatchSize: 5})
	require.NoError(t, err)
	doubled, err := store.Sums(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2*sums.Spam, doubled.Spam)
	assert.Equal(t, 2*sums.Ham, doubled.Ham)

	_, err = trainer.TrainFromSources(ctx, model, spamSrc, hamSrc, TrainOptions{BatchSize: 100, Init: true})
	require.NoError(t, err)
	reset, err := store.Sums(ctx)
	require.NoError(t, err)
	assert.Equal(t, sums, reset)
}

func TestBayesMinWordAppearance(t *testing.T) {
	ctx := context.Background()
	store := memory.NewWordCounterStore()
	opts := DefaultBayesOptions()
	opts.MinWordAppearance = 2
	model := newBayes(t, store, opts)

	err := model.TrainBatch(ctx, []domain.Sample{
		{Content: "subscribe today", Spam: true},
		{Content: "please subscribe", Spam: false},
		{Content: "unique words", Spam: true},
	}, true)
	require.NoError(t, err)

	assert.Equal(t, 1, store.Len())
	c, ok := store.Get("subscrib")
	require.True(t, ok)
	assert.Equal(t, int64(1), c.SpamCount)
	assert.Equal(t, int64(1), c.HamCount)
}

func TestBayesCountsWordOncePerMessage(t *testing.T) {
	ctx := context.Background()
	store := memory.NewWordCounterStore()
	model := newBayes(t, store, DefaultBayesOptions())

	require.NoError(t, model.TrainBatch(ctx, []domain.Sample{{Content: "spam spam spam", Spam: true}}, true))
	c, ok := store.Get("spam")
	require.True(t, ok)
	assert.Equal(t, int64(1), c.SpamCount)
}

func TestBayesEmptyBatchLeavesStore(t *testing.T) {
	ctx := context.Background()
	store := memory.NewWordCounterStore()
	store.Put(domain.WordCounter{Word: "keep", SpamCount: 2})
	model := newBayes(t, store, DefaultBayesOptions())

	require.NoError(t, model.TrainBatch(ctx, nil, true))
	require.NoError(t, model.TrainBatch(ctx, []domain.Sample{{Content: "<p> </p>", Spam: true}}, true))
	assert.Equal(t, 1, store.Len())
}

func TestBayesCheckOnEmptyStore(t *testing.T) {
	model := newBayes(t, memory.NewWordCounterStore(), DefaultBayesOptions())
	p, err := model.Probability(context.Background(), "anything at all", false)
	require.NoError(t, err)
	assert.Equal(t, 0.5, p)
}

// recordingModel captures batches for orchestration tests.
type recordingModel struct {
	batches [][]domain.Sample
	inits   []bool
	runIDs  []string
	failAt  int
}

func (m *recordingModel) Name() domain.ModelName { return "recording" }

func (m *recordingModel) TrainBatch(ctx context.Context, samples []domain.Sample, init bool) error {
	if m.failAt > 0 && len(m.batches)+1 == m.failAt {
		return errors.New("store unavailable")
	}
	runID, _ := logger.RunID(ctx)
	m.batches = append(m.batches, samples)
	m.inits = append(m.inits, init)
	m.runIDs = append(m.runIDs, runID)
	return nil
}

func (m *recordingModel) CheckMessageForSpam(_ context.Context, message string) (bool, error) {
	return message == "spam", nil
}

func (m *recordingModel) Checker(context.Context) (in.SpamChecker, error) { return m, nil }

func samplesOf(n int) []domain.Sample {
	samples := make([]domain.Sample, n)
	for i := range samples {
		samples[i] = domain.Sample{Content: "msg", Spam: i%2 == 0}
	}
	return samples
}

func TestTrainBatching(t *testing.T) {
	tests := []struct {
		name      string
		samples   int
		batchSize int
		wantSizes []int
	}{
		{"remainder", 5, 2, []int{2, 2, 1}},
		{"exact multiple", 4, 2, []int{2, 2}},
		{"single short batch", 3, 10, []int{3}},
		{"empty", 0, 10, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model := &recordingModel{}
			n, err := NewTrainer(zerolog.Nop()).TrainSamples(context.Background(), model, samplesOf(tt.samples),
				TrainOptions{BatchSize: tt.batchSize, Init: true})
			require.NoError(t, err)
			assert.Equal(t, tt.samples, n)

			var sizes []int
			for _, b := range model.batches {
				sizes = append(sizes, len(b))
			}
			assert.Equal(t, tt.wantSizes, sizes)
			for i, init := range model.inits {
				assert.Equal(t, i == 0, init, "batch %d", i)
			}
		})
	}
}

func TestTrainTagsRunID(t *testing.T) {
	tests := []struct {
		name  string
		ctx   context.Context
		runID string
	}{
		{name: "inherits the caller run", ctx: logger.WithRunID(context.Background(), "pass-7"), runID: "pass-7"},
		{name: "starts a new run", ctx: context.Background()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			model := &recordingModel{}
			_, err := NewTrainer(zerolog.New(&buf)).TrainSamples(tt.ctx, model, samplesOf(4), TrainOptions{BatchSize: 2})
			require.NoError(t, err)

			require.Len(t, model.runIDs, 2)
			assert.NotEmpty(t, model.runIDs[0])
			assert.Equal(t, model.runIDs[0], model.runIDs[1])
			if tt.runID != "" {
				assert.Equal(t, tt.runID, model.runIDs[0])
			}
			assert.Contains(t, buf.String(), `"run_id":"`+model.runIDs[0]+`"`)
		})
	}
}

func TestTrainAbortsOnFailingBatch(t *testing.T) {
	model := &recordingModel{failAt: 2}
	n, err := NewTrainer(zerolog.Nop()).TrainSamples(context.Background(), model, samplesOf(6), TrainOptions{BatchSize: 2})

	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, apperr.CodeTrainingBatchFailure))
	assert.Equal(t, 2, n)
	assert.Len(t, model.batches, 1)
}

func TestTrainSpamBeforeHam(t *testing.T) {
	model := &recordingModel{}
	spamSrc, hamSrc := corpus()
	_, err := NewTrainer(zerolog.Nop()).TrainFromSources(context.Background(), model, spamSrc, hamSrc,
		TrainOptions{BatchSize: 1000, MaxItems: 2})
	require.NoError(t, err)

	require.Len(t, model.batches, 1)
	var labels []bool
	for _, s := range model.batches[0] {
		labels = append(labels, s.Spam)
	}
	assert.Equal(t, []bool{true, true, false, false}, labels)
}

func TestValidateReportsMismatches(t *testing.T) {
	model := &recordingModel{}
	mismatches, err := NewTrainer(zerolog.Nop()).Validate(context.Background(), model, []domain.Sample{
		{Content: "spam", Spam: true},
		{Content: "other", Spam: true},
		{Content: "ham", Spam: false},
	})
	require.NoError(t, err)
	assert.Equal(t, []domain.Mismatch{{Message: "other", Expected: true}}, mismatches)
}

func TestMapSamplesKeepsOrderAndFails(t *testing.T) {
	ctx := context.Background()
	samples := samplesOf(50)
	for i := range samples {
		samples[i].Content = string(rune('a' + i%26))
	}

	out, err := mapSamples(ctx, 8, samples, func(_ context.Context, s domain.Sample) (string, error) {
		return s.Content, nil
	})
	require.NoError(t, err)
	for i, s := range samples {
		assert.Equal(t, s.Content, out[i])
	}

	_, err = mapSamples(ctx, 4, samples, func(_ context.Context, s domain.Sample) (int, error) {
		if s.Content == "c" {
			return 0, errors.New("bad sample")
		}
		return 1, nil
	})
	assert.ErrorContains(t, err, "bad sample")
}
