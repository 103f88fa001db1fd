package learning

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"spam_filter/core/domain"
	"spam_filter/core/port/in"
	"spam_filter/core/port/out"
	"spam_filter/core/service/content"
	"spam_filter/core/service/learning/nn"
	"spam_filter/pkg/metrics"
)

// NeuralOptions tunes the neural ensemble.
type NeuralOptions struct {
	Network nn.Config
	// EpochMultiplier times the batch size gives the epoch count.
	EpochMultiplier int
	ValidationSplit float64
	// Threshold is the network output above which a message is spam.
	Threshold float64
	Workers   int
}

// DefaultNeuralOptions returns the stock tuning.
func DefaultNeuralOptions() NeuralOptions {
	return NeuralOptions{
		Network:         nn.DefaultConfig(),
		EpochMultiplier: 3,
		ValidationSplit: 0.2,
		Threshold:       0.6,
		Workers:         4,
	}
}

// NeuralModel combines the Bayes probability with six lexical statistics
// in a small feed-forward network.
type NeuralModel struct {
	weights out.WeightBlobStore
	bayes   *BayesModel
	parser  *content.Parser
	opts    NeuralOptions
	log     zerolog.Logger
}

var _ in.LearningModel = (*NeuralModel)(nil)

func NewNeuralModel(weights out.WeightBlobStore, bayes *BayesModel, parser *content.Parser,
	opts NeuralOptions, log zerolog.Logger) *NeuralModel {
	return &NeuralModel{
		weights: weights,
		bayes:   bayes,
		parser:  parser,
		opts:    opts,
		log:     log.With().Str("component", "neural_model").Logger(),
	}
}

func (m *NeuralModel) Name() domain.ModelName {
	return domain.ModelNeural
}

type featureRow struct {
	vector domain.FeatureVector
	label  float64
	ok     bool
}

// Features computes the network input for a raw message. ok is false for
// messages without content.
func (m *NeuralModel) Features(ctx context.Context, message string) (domain.FeatureVector, bool, error) {
	input, ok := m.parser.PrepareFeatureInput(message)
	if !ok {
		return domain.FeatureVector{}, false, nil
	}
	p, err := m.bayes.Probability(ctx, input.Body, true)
	if err != nil {
		return domain.FeatureVector{}, false, err
	}
	return domain.NewFeatureVector(p, input.Info), true, nil
}

// TrainBatch builds the feature matrix of the batch and fits the network.
// Without init training continues from the persisted weights.
func (m *NeuralModel) TrainBatch(ctx context.Context, samples []domain.Sample, init bool) error {
	started := time.Now()

	rows, err := mapSamples(ctx, m.opts.Workers, samples, func(ctx context.Context, s domain.Sample) (featureRow, error) {
		vector, ok, err := m.Features(ctx, s.Content)
		if err != nil || !ok {
			return featureRow{}, err
		}
		label := 0.0
		if s.Spam {
			label = 1
		}
		return featureRow{vector: vector, label: label, ok: true}, nil
	})
	if err != nil {
		return err
	}

	x := make([][]float64, 0, len(rows))
	y := make([]float64, 0, len(rows))
	for _, row := range rows {
		if !row.ok {
			continue
		}
		vector := row.vector
		x = append(x, vector[:])
		y = append(y, row.label)
	}
	metrics.MessagesProcessed.WithLabelValues(string(domain.ModelNeural)).Add(float64(len(samples)))
	if dropped := len(samples) - len(x); dropped > 0 {
		metrics.MessagesWithoutContent.WithLabelValues(string(domain.ModelNeural)).Add(float64(dropped))
	}
	if len(x) == 0 {
		m.log.Debug().Int("samples", len(samples)).Msg("batch has no usable messages")
		return nil
	}

	net, err := m.loadNetwork(ctx, init)
	if err != nil {
		return err
	}
	hist, err := net.Fit(x, y, nn.FitOptions{
		Epochs:          m.opts.EpochMultiplier * len(x),
		BatchSize:       len(x),
		ValidationSplit: m.opts.ValidationSplit,
		Shuffle:         true,
	})
	if err != nil {
		return fmt.Errorf("failed to fit network: %w", err)
	}

	blob, err := net.MarshalBinary()
	if err != nil {
		return fmt.Errorf("failed to encode network: %w", err)
	}
	if err := m.weights.Replace(ctx, blob); err != nil {
		return fmt.Errorf("failed to store network: %w", err)
	}

	metrics.ObserveBatch(string(domain.ModelNeural), init, started)
	m.log.Info().
		Int("rows", len(x)).
		Int("epochs", hist.Epochs).
		Float64("loss", hist.Loss).
		Float64("accuracy", hist.Accuracy).
		Float64("val_loss", hist.ValidationLoss).
		Float64("val_accuracy", hist.ValidationAccuracy).
		Bool("init", init).
		Dur("took", time.Since(started)).
		Msg("neural batch trained")
	return nil
}

// loadNetwork returns fresh weights for init. Otherwise it seeds the store
// with fresh weights when empty and loads whatever the store holds.
func (m *NeuralModel) loadNetwork(ctx context.Context, init bool) (*nn.Network, error) {
	fresh := nn.New(m.opts.Network)
	if init {
		return fresh, nil
	}

	blob, err := fresh.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("failed to encode network: %w", err)
	}
	created, err := m.weights.CreateIfAbsent(ctx, blob)
	if err != nil {
		return nil, fmt.Errorf("failed to seed network weights: %w", err)
	}
	if created {
		return fresh, nil
	}

	net, err := m.decodeStored(ctx, fresh)
	if errors.Is(err, out.ErrWeightsNotFound) {
		return fresh, nil
	}
	return net, err
}

// readNetwork loads the stored network without seeding the store.
func (m *NeuralModel) readNetwork(ctx context.Context) (*nn.Network, error) {
	fresh := nn.New(m.opts.Network)
	net, err := m.decodeStored(ctx, fresh)
	if errors.Is(err, out.ErrWeightsNotFound) {
		m.log.Debug().Msg("no stored network weights, checking with fresh weights")
		return fresh, nil
	}
	return net, err
}

func (m *NeuralModel) decodeStored(ctx context.Context, net *nn.Network) (*nn.Network, error) {
	stored, err := m.weights.Get(ctx)
	if errors.Is(err, out.ErrWeightsNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load network weights: %w", err)
	}
	if err := net.UnmarshalBinary(stored); err != nil {
		return nil, err
	}
	if net.Inputs() != domain.FeatureCount {
		return nil, fmt.Errorf("%w: stored network takes %d inputs", nn.ErrShapeMismatch, net.Inputs())
	}
	return net, nil
}

// CheckMessageForSpam loads the persisted network and classifies message.
func (m *NeuralModel) CheckMessageForSpam(ctx context.Context, message string) (bool, error) {
	checker, err := m.Checker(ctx)
	if err != nil {
		return false, err
	}
	return checker.CheckMessageForSpam(ctx, message)
}

// Checker loads the network once for repeated checks. It never writes: with
// no stored weights it checks with fresh, unpersisted ones.
func (m *NeuralModel) Checker(ctx context.Context) (in.SpamChecker, error) {
	net, err := m.readNetwork(ctx)
	if err != nil {
		return nil, err
	}
	return &neuralChecker{model: m, net: net}, nil
}

type neuralChecker struct {
	model *NeuralModel
	net   *nn.Network
}

func (c *neuralChecker) CheckMessageForSpam(ctx context.Context, message string) (bool, error) {
	vector, ok, err := c.model.Features(ctx, message)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	spam := c.net.Predict(vector[:]) > c.model.opts.Threshold
	metrics.ObserveVerdict(string(domain.ModelNeural), spam)
	return spam, nil
}
