package cli

import (
	"github.com/spf13/cobra"

	"spam_filter/adapter/out/source"
	"spam_filter/core/port/out"
	"spam_filter/internal/bootstrap"
	"spam_filter/pkg/apperr"
)

// sourceFlags selects where labeled messages come from.
type sourceFlags struct {
	spamFile  string
	hamFile   string
	spamMbox  string
	hamMbox   string
	delimiter string
	fromDB    bool
	fromMongo bool
	maxItems  int
}

func (f *sourceFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&f.spamFile, "spam-file", "", "delimited file of spam messages")
	flags.StringVar(&f.hamFile, "ham-file", "", "delimited file of ham messages")
	flags.StringVar(&f.spamMbox, "spam-mbox", "", "mbox archive of spam messages")
	flags.StringVar(&f.hamMbox, "ham-mbox", "", "mbox archive of ham messages")
	flags.StringVar(&f.delimiter, "delimiter", source.DefaultDelimiter, "message delimiter of --spam-file/--ham-file")
	flags.BoolVar(&f.fromDB, "from-db", false, "read labeled learning messages from the database")
	flags.BoolVar(&f.fromMongo, "from-mongo", false, "read the archived corpus from MongoDB")
	flags.IntVar(&f.maxItems, "max-items", 0, "read at most this many messages per label (0 = all)")
}

// resolve returns one source per label; either may be nil but not both.
func (f *sourceFlags) resolve(deps *bootstrap.Dependencies) (spam, ham out.MessageSource, err error) {
	pick := func(file, mbox string, label bool) (out.MessageSource, error) {
		switch {
		case file != "":
			return source.NewFileSource(file, f.delimiter), nil
		case mbox != "":
			return source.NewMboxSource(mbox, deps.Log), nil
		case f.fromDB:
			return source.NewLearningMessageSource(deps.Messages, label), nil
		case f.fromMongo:
			if deps.Corpus == nil {
				return nil, apperr.ConfigError("MONGODB_URL is required for --from-mongo")
			}
			return deps.Corpus.Source(label), nil
		}
		return nil, nil
	}

	if spam, err = pick(f.spamFile, f.spamMbox, true); err != nil {
		return nil, nil, err
	}
	if ham, err = pick(f.hamFile, f.hamMbox, false); err != nil {
		return nil, nil, err
	}
	if spam == nil && ham == nil {
		return nil, nil, apperr.InvalidInput("source", "give --spam-file, --ham-file, --spam-mbox, --ham-mbox, --from-db or --from-mongo")
	}
	return spam, ham, nil
}
