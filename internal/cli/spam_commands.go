package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"unicode/utf8"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"spam_filter/adapter/in/worker"
	"spam_filter/adapter/out/persistence"
	"spam_filter/core/domain"
	"spam_filter/core/port/in"
	"spam_filter/core/service/learning"
	"spam_filter/internal/bootstrap"
	"spam_filter/pkg/apperr"
)

type modelPicker func(deps *bootstrap.Dependencies) in.LearningModel

func bayesModel(deps *bootstrap.Dependencies) in.LearningModel  { return deps.Bayes }
func neuralModel(deps *bootstrap.Dependencies) in.LearningModel { return deps.Neural }

func pickModel(name string) (modelPicker, error) {
	switch domain.ModelName(name) {
	case domain.ModelBayes:
		return bayesModel, nil
	case domain.ModelNeural:
		return neuralModel, nil
	}
	return nil, apperr.InvalidInput("model", fmt.Sprintf("unknown model %q", name))
}

func newTrainCommand(app *App, use, short string, model modelPicker) *cobra.Command {
	var (
		src       sourceFlags
		initModel bool
		batchSize int
	)
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			deps, err := app.dependencies(ctx)
			if err != nil {
				return err
			}
			spam, ham, err := src.resolve(deps)
			if err != nil {
				return err
			}
			if batchSize <= 0 {
				batchSize = app.cfg.TrainBatchSize
			}

			m := model(deps)
			n, err := deps.Trainer.TrainFromSources(ctx, m, spam, ham, learning.TrainOptions{
				BatchSize: batchSize,
				Init:      initModel,
				MaxItems:  src.maxItems,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "trained %s on %d messages\n", m.Name(), n)
			return nil
		},
	}
	src.register(cmd)
	cmd.Flags().BoolVar(&initModel, "init", false, "replace the stored model instead of extending it")
	cmd.Flags().IntVar(&batchSize, "batch-size", 0, "messages per training batch (default TRAIN_BATCH_SIZE)")
	return cmd
}

func newCheckCommand(app *App) *cobra.Command {
	var (
		file        string
		modelName   string
		store       bool
		probability bool
	)
	cmd := &cobra.Command{
		Use:   "check [message]",
		Short: "Classify a message read from the argument, --file or stdin",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			message, err := readMessage(cmd.InOrStdin(), file, args)
			if err != nil {
				return err
			}
			pick, err := pickModel(modelName)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			deps, err := app.dependencies(ctx)
			if err != nil {
				return err
			}

			var spam bool
			switch {
			case store:
				spam, err = deps.Intake.Check(ctx, message)
			default:
				spam, err = pick(deps).CheckMessageForSpam(ctx, message)
			}
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if probability {
				p, err := deps.Bayes.Probability(ctx, message, false)
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "%s %.4f\n", domain.Label(spam), p)
				return nil
			}
			fmt.Fprintln(w, domain.Label(spam))
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "read the message from a file")
	cmd.Flags().StringVarP(&modelName, "model", "m", string(domain.ModelNeural), "model to use: bayes or neural")
	cmd.Flags().BoolVar(&store, "store", false, "classify with the neural model and keep the message for auto-learning")
	cmd.Flags().BoolVar(&probability, "probability", false, "also print the Bayes spam probability")
	return cmd
}

func readMessage(stdin io.Reader, file string, args []string) (string, error) {
	switch {
	case len(args) == 1:
		return args[0], nil
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return "", apperr.ReadFailure(file, err)
		}
		return string(data), nil
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", apperr.MalformedInput("stdin", err)
	}
	return string(data), nil
}

func newValidateCommand(app *App) *cobra.Command {
	var (
		src       sourceFlags
		modelName string
		limit     int
	)
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Report labeled messages the model misclassifies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pick, err := pickModel(modelName)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			deps, err := app.dependencies(ctx)
			if err != nil {
				return err
			}
			spam, ham, err := src.resolve(deps)
			if err != nil {
				return err
			}

			mismatches, err := deps.Trainer.CheckForValid(ctx, pick(deps), spam, ham, limit)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			for _, m := range mismatches {
				fmt.Fprintf(w, "expected %s: %s\n", domain.Label(m.Expected), preview(m.Message, 80))
			}
			fmt.Fprintf(w, "%d mismatches\n", len(mismatches))
			return nil
		},
	}
	src.register(cmd)
	cmd.Flags().StringVarP(&modelName, "model", "m", string(domain.ModelNeural), "model to validate: bayes or neural")
	cmd.Flags().IntVar(&limit, "limit", 100, "messages to check per label")
	return cmd
}

func preview(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}

func newAutolearnCommand(app *App) *cobra.Command {
	var (
		loop  bool
		force bool
	)
	cmd := &cobra.Command{
		Use:   "autolearn",
		Short: "Train both models on queued learning messages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if force {
				app.cfg.AutoLearningEnabled = true
			}
			ctx := cmd.Context()
			deps, err := app.dependencies(ctx)
			if err != nil {
				return err
			}
			if !deps.AutoLearner.Enabled() {
				fmt.Fprintln(cmd.OutOrStdout(), "auto-learning disabled (set AUTO_LEARNING_ENABLED or pass --force)")
				return nil
			}

			if !loop {
				n, err := deps.AutoLearner.Run(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "learned from %d messages\n", n)
				return nil
			}

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()
			scheduler := worker.NewAutoLearnScheduler(ctx, deps.AutoLearner, app.cfg.AutoLearningInterval())
			scheduler.Start()
			<-scheduler.Done()
			scheduler.Stop()
			return nil
		},
	}
	cmd.Flags().BoolVar(&loop, "loop", false, "keep running every AUTO_LEARNING_INTERVAL_SEC until interrupted")
	cmd.Flags().BoolVar(&force, "force", false, "run even when AUTO_LEARNING_ENABLED is off")
	return cmd
}

// submission is the JSON form accepted by the submit command.
type submission struct {
	Content string `json:"content"`
	Spam    bool   `json:"spam"`
}

func newSubmitCommand(app *App) *cobra.Command {
	var (
		file        string
		immediately bool
	)
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Queue labeled messages from a JSON file for auto-learning",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readMessage(cmd.InOrStdin(), file, nil)
			if err != nil {
				return err
			}
			var entries []submission
			if err := json.Unmarshal([]byte(raw), &entries); err != nil {
				return apperr.MalformedInput("submission", err)
			}
			samples := make([]domain.Sample, len(entries))
			for i, e := range entries {
				samples[i] = domain.Sample{Content: e.Content, Spam: e.Spam}
			}

			ctx := cmd.Context()
			deps, err := app.dependencies(ctx)
			if err != nil {
				return err
			}
			if err := deps.Intake.Submit(ctx, samples, immediately); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "queued %d messages\n", len(samples))
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", `JSON array of {"content": ..., "spam": ...} (default stdin)`)
	cmd.Flags().BoolVar(&immediately, "immediately", false, "run an auto-learning pass right away")
	return cmd
}

func newArchiveCommand(app *App) *cobra.Command {
	var src sourceFlags
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Copy labeled messages into the MongoDB corpus",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if src.fromMongo {
				return apperr.InvalidInput("source", "--from-mongo cannot be archived into itself")
			}
			ctx := cmd.Context()
			deps, err := app.dependencies(ctx)
			if err != nil {
				return err
			}
			if deps.Corpus == nil {
				return apperr.ConfigError("MONGODB_URL is required for archive")
			}
			spam, ham, err := src.resolve(deps)
			if err != nil {
				return err
			}

			var samples []domain.Sample
			for s, err := range learning.LabeledStream(ctx, spam, ham, src.maxItems) {
				if err != nil {
					return err
				}
				samples = append(samples, s)
			}
			if err := deps.Corpus.Save(ctx, samples); err != nil {
				return apperr.DatabaseError("archive corpus", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "archived %d messages\n", len(samples))
			return nil
		},
	}
	src.register(cmd)
	return cmd
}

func newSchemaCommand(app *App) *cobra.Command {
	var drop bool
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Create the database tables and indexes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			deps, err := app.dependencies(ctx)
			if err != nil {
				return err
			}
			return applySchema(ctx, deps, drop, cmd.OutOrStdout())
		},
	}
	cmd.Flags().BoolVar(&drop, "drop", false, "drop existing tables first (deletes every trained model)")
	return cmd
}

func applySchema(ctx context.Context, deps *bootstrap.Dependencies, drop bool, w io.Writer) error {
	if deps.SQLDB == nil {
		return apperr.ConfigError("DATABASE_URL is required for schema")
	}
	if drop {
		if err := persistence.DropSchema(ctx, deps.SQLDB); err != nil {
			return apperr.DatabaseError("drop schema", err)
		}
	}
	if err := persistence.EnsureSchema(ctx, deps.SQLDB); err != nil {
		return apperr.DatabaseError("apply schema", err)
	}
	if deps.Corpus != nil {
		if err := deps.Corpus.EnsureIndexes(ctx); err != nil {
			return apperr.DatabaseError("create corpus indexes", err)
		}
	}
	fmt.Fprintln(w, "schema ready")
	return nil
}
