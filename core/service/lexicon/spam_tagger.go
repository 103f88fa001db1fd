package lexicon

import (
	"strings"
	"sync"

	"github.com/jdkato/prose/v2"
)

// defaultTag is used for tokens the tagger could not align.
const defaultTag = "NN"

// alignWindow bounds how far ahead a tagger token is searched for a match.
const alignWindow = 4

// Tagger assigns Penn Treebank tags to a run of tokens.
type Tagger interface {
	Tag(tokens []string) []string
}

// ProseTagger tags tokens with the prose averaged perceptron model. The
// model is loaded once and shared across calls.
type ProseTagger struct {
	once  sync.Once
	mu    sync.Mutex
	model *prose.Model
}

func NewProseTagger() *ProseTagger {
	return &ProseTagger{}
}

func (t *ProseTagger) loadModel() {
	doc, err := prose.NewDocument("init",
		prose.WithExtraction(false),
		prose.WithSegmentation(false))
	if err == nil {
		t.model = doc.Model
	}
}

// Tag returns one tag per input token. The tokenizer of the model may split
// tokens differently, so tags are aligned by text and unmatched tokens get NN.
func (t *ProseTagger) Tag(tokens []string) []string {
	tags := make([]string, len(tokens))
	for i := range tags {
		tags[i] = defaultTag
	}
	if len(tokens) == 0 {
		return tags
	}

	t.once.Do(t.loadModel)

	opts := []prose.DocOpt{prose.WithExtraction(false), prose.WithSegmentation(false)}
	if t.model != nil {
		opts = append(opts, prose.UsingModel(t.model))
	}

	t.mu.Lock()
	doc, err := prose.NewDocument(strings.Join(tokens, " "), opts...)
	t.mu.Unlock()
	if err != nil {
		return tags
	}

	tagged := doc.Tokens()
	next := 0
	for i, token := range tokens {
		for k := next; k < len(tagged) && k < next+alignWindow; k++ {
			if tagged[k].Text == token {
				tags[i] = tagged[k].Tag
				next = k + 1
				break
			}
		}
	}
	return tags
}
