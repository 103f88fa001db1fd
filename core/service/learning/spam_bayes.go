package learning

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"spam_filter/core/domain"
	"spam_filter/core/port/in"
	"spam_filter/core/port/out"
	"spam_filter/core/service/content"
	"spam_filter/pkg/metrics"
)

// neutralProbability is returned when no word carries evidence.
const neutralProbability = 0.5

// BayesOptions tunes training and classification of the Bayes model.
type BayesOptions struct {
	// MinWordAppearance drops words seen in fewer messages of a batch.
	MinWordAppearance int64
	// MinWordLength is the exclusive lower bound on word length in runes.
	MinWordLength int
	// TopWords is how many of the most decisive words are combined.
	TopWords int
	// Smoothing is the weight of the 0.5 prior for rarely seen words.
	Smoothing float64
	// Threshold is the combined probability above which a message is spam.
	Threshold float64
	// Workers is the width of the training pool.
	Workers int
}

// DefaultBayesOptions returns the stock tuning.
func DefaultBayesOptions() BayesOptions {
	return BayesOptions{
		MinWordAppearance: 1,
		MinWordLength:     2,
		TopWords:          13,
		Smoothing:         3,
		Threshold:         0.9,
		Workers:           4,
	}
}

// BayesModel is the naive Bayes word-probability model.
type BayesModel struct {
	store  out.WordCounterStore
	parser *content.Parser
	opts   BayesOptions
	log    zerolog.Logger
}

var _ in.LearningModel = (*BayesModel)(nil)

func NewBayesModel(store out.WordCounterStore, parser *content.Parser, opts BayesOptions, log zerolog.Logger) *BayesModel {
	return &BayesModel{
		store:  store,
		parser: parser,
		opts:   opts,
		log:    log.With().Str("component", "bayes_model").Logger(),
	}
}

func (m *BayesModel) Name() domain.ModelName {
	return domain.ModelBayes
}

// TrainBatch counts the distinct words of every sample and merges the
// counts into the store in one transaction.
func (m *BayesModel) TrainBatch(ctx context.Context, samples []domain.Sample, init bool) error {
	started := time.Now()

	partials, err := mapSamples(ctx, m.opts.Workers, samples, m.tallySample)
	if err != nil {
		return err
	}
	tallies := make(domain.WordTallies)
	for _, partial := range partials {
		tallies.Merge(partial)
	}
	metrics.MessagesProcessed.WithLabelValues(string(domain.ModelBayes)).Add(float64(len(samples)))

	counters := tallies.Counters(m.opts.MinWordAppearance)
	if len(counters) == 0 {
		m.log.Debug().Int("samples", len(samples)).Msg("batch produced no words")
		return nil
	}

	if err := m.store.Merge(ctx, counters, init); err != nil {
		return fmt.Errorf("failed to merge word counters: %w", err)
	}

	metrics.ObserveBatch(string(domain.ModelBayes), init, started)
	m.log.Info().
		Int("samples", len(samples)).
		Int("words", len(counters)).
		Bool("init", init).
		Dur("took", time.Since(started)).
		Msg("bayes batch trained")
	return nil
}

func (m *BayesModel) tallySample(_ context.Context, sample domain.Sample) (domain.WordTallies, error) {
	tallies := make(domain.WordTallies)
	for _, word := range m.parser.Tokens(sample.Content) {
		if utf8.RuneCountInString(word) <= m.opts.MinWordLength {
			continue
		}
		if _, seen := tallies[word]; seen {
			continue
		}
		tallies.Observe(word, sample.Spam)
	}
	return tallies, nil
}

// Probability returns the combined spam probability of message. With
// tokenized the message is taken as already normalized tokens.
func (m *BayesModel) Probability(ctx context.Context, message string, tokenized bool) (float64, error) {
	var tokens []string
	if tokenized {
		tokens = strings.Fields(message)
	} else {
		tokens = m.parser.Tokens(message)
	}
	words := uniqueInOrder(tokens)
	if len(words) == 0 {
		return neutralProbability, nil
	}

	sums, err := m.store.Sums(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load counter sums: %w", err)
	}
	if sums.IsZero() {
		return neutralProbability, nil
	}
	counters, err := m.store.Lookup(ctx, words)
	if err != nil {
		return 0, fmt.Errorf("failed to look up words: %w", err)
	}
	return CombineProbabilities(words, counters, sums, m.opts), nil
}

// CheckMessageForSpam reports whether the combined probability of message
// exceeds the threshold.
func (m *BayesModel) CheckMessageForSpam(ctx context.Context, message string) (bool, error) {
	p, err := m.Probability(ctx, message, false)
	if err != nil {
		return false, err
	}
	spam := p > m.opts.Threshold
	metrics.ObserveVerdict(string(domain.ModelBayes), spam)
	return spam, nil
}

// Checker returns the model itself: every check reads the live counters.
func (m *BayesModel) Checker(context.Context) (in.SpamChecker, error) {
	return m, nil
}

type wordEvidence struct {
	probability float64
	deviation   float64
}

// CombineProbabilities selects the TopWords words whose spam likelihood is
// farthest from 0.5, smooths each toward 0.5 by how often it was seen and
// combines them as prod(p) / (prod(p) + prod(1-p)). Ties keep the order of
// words. Words never seen under either label carry no evidence.
func CombineProbabilities(words []string, counters map[string]domain.WordCounter,
	sums domain.CounterSums, opts BayesOptions) float64 {
	evidence := make([]wordEvidence, 0, len(words))
	seen := make([]int64, 0, len(words))
	for _, word := range words {
		c, ok := counters[word]
		if !ok {
			continue
		}
		p, ok := wordLikelihood(c, sums)
		if !ok {
			continue
		}
		evidence = append(evidence, wordEvidence{probability: p, deviation: math.Abs(neutralProbability - p)})
		seen = append(seen, c.Total())
	}
	if len(evidence) == 0 {
		return neutralProbability
	}

	order := make([]int, len(evidence))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return evidence[order[a]].deviation > evidence[order[b]].deviation
	})
	if opts.TopWords > 0 && len(order) > opts.TopWords {
		order = order[:opts.TopWords]
	}

	spamProduct, hamProduct := 1.0, 1.0
	for _, i := range order {
		n := float64(seen[i])
		p := (opts.Smoothing*neutralProbability + n*evidence[i].probability) / (opts.Smoothing + n)
		spamProduct *= p
		hamProduct *= 1 - p
	}
	if spamProduct+hamProduct == 0 {
		return neutralProbability
	}
	return spamProduct / (spamProduct + hamProduct)
}

// wordLikelihood is (s/S) / ((s/S) + (h/H)) with empty classes counting as 0.
func wordLikelihood(c domain.WordCounter, sums domain.CounterSums) (float64, bool) {
	var spamFreq, hamFreq float64
	if sums.Spam > 0 {
		spamFreq = float64(c.SpamCount) / float64(sums.Spam)
	}
	if sums.Ham > 0 {
		hamFreq = float64(c.HamCount) / float64(sums.Ham)
	}
	if spamFreq+hamFreq == 0 {
		return 0, false
	}
	return spamFreq / (spamFreq + hamFreq), true
}

func uniqueInOrder(tokens []string) []string {
	seen := make(map[string]struct{}, len(tokens))
	words := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		words = append(words, t)
	}
	return words
}
