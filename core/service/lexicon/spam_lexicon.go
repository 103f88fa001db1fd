// Package lexicon holds the language resources used by lexical analysis:
// the Russian and English lemmatization dictionaries, the part-of-speech
// tagger, stemmers and synonym groups.
package lexicon

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/aaaton/golem/v4"
	"github.com/aaaton/golem/v4/dicts/en"
	"github.com/aaaton/golem/v4/dicts/ru"
)

// Options points the lexicon at supplementary dictionary files. Their
// entries are consulted before the bundled dictionaries.
type Options struct {
	// RussianPath holds "lemma<TAB>form,form,..." lines.
	RussianPath string
	// EnglishPath holds one base form per line.
	EnglishPath string
}

// Lexicon bundles the loaded language resources. It is safe for concurrent use.
type Lexicon struct {
	Russian *RussianDictionary
	English *EnglishDictionary
	Tagger  Tagger
}

var (
	bundledOnce sync.Once
	bundledRU   *golem.Lemmatizer
	bundledEN   *golem.Lemmatizer
	bundledErr  error
)

// bundled decodes the golem dictionaries once per process.
func bundled() (*golem.Lemmatizer, *golem.Lemmatizer, error) {
	bundledOnce.Do(func() {
		bundledRU, bundledErr = golem.New(ru.New())
		if bundledErr != nil {
			bundledErr = fmt.Errorf("failed to load russian dictionary: %w", bundledErr)
			return
		}
		bundledEN, bundledErr = golem.New(en.New())
		if bundledErr != nil {
			bundledErr = fmt.Errorf("failed to load english dictionary: %w", bundledErr)
		}
	})
	return bundledRU, bundledEN, bundledErr
}

// Load builds a lexicon on the bundled dictionaries plus the optional
// supplementary files.
func Load(opts Options) (*Lexicon, error) {
	ruLem, enLem, err := bundled()
	if err != nil {
		return nil, err
	}
	russian := NewRussianDictionary(ruLem)
	english := NewEnglishDictionary(enLem)

	if opts.RussianPath != "" {
		if err := readFile(opts.RussianPath, russian.AddForms); err != nil {
			return nil, fmt.Errorf("failed to read russian dictionary: %w", err)
		}
	}
	if opts.EnglishPath != "" {
		if err := readFile(opts.EnglishPath, english.AddWords); err != nil {
			return nil, fmt.Errorf("failed to read english word list: %w", err)
		}
	}

	return &Lexicon{
		Russian: russian,
		English: english,
		Tagger:  NewProseTagger(),
	}, nil
}

var (
	sharedOnce sync.Once
	shared     *Lexicon
	sharedErr  error
	sharedOpts Options
)

// Configure sets the resource paths used by Shared. It has no effect once
// Shared was called.
func Configure(opts Options) {
	sharedOpts = opts
}

// Shared returns the process-wide lexicon, loading it on first use.
func Shared() (*Lexicon, error) {
	sharedOnce.Do(func() {
		shared, sharedErr = Load(sharedOpts)
	})
	return shared, sharedErr
}

func readFile(path string, fn func(io.Reader) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open lexicon file %s: %w", path, err)
	}
	defer f.Close()
	return fn(f)
}

// scanEntries yields non-empty, non-comment lines.
func scanEntries(r io.Reader, fn func(line string) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if err := fn(line); err != nil {
			return err
		}
	}
	return scanner.Err()
}
