package mongodb

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"spam_filter/core/domain"
	"spam_filter/core/port/out"
)

const (
	collectionCorpus = "spam_corpus"

	// Bodies above this size are stored gzip-compressed.
	compressionThreshold = 4096
)

// CorpusAdapter archives labeled messages and serves them back as a
// training source.
type CorpusAdapter struct {
	collection *mongo.Collection
}

// NewCorpusAdapter creates a new corpus adapter on db.
func NewCorpusAdapter(db *mongo.Database) *CorpusAdapter {
	return &CorpusAdapter{collection: db.Collection(collectionCorpus)}
}

// EnsureIndexes creates necessary indexes for the collection.
func (a *CorpusAdapter) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "spam", Value: 1},
				{Key: "created_at", Value: 1},
			},
		},
	}
	_, err := a.collection.Indexes().CreateMany(ctx, indexes)
	return err
}

// =============================================================================
// Document Model
// =============================================================================

type corpusDocument struct {
	ID           string    `bson:"_id"`
	Spam         bool      `bson:"spam"`
	Body         []byte    `bson:"body"`
	IsCompressed bool      `bson:"is_compressed"`
	OriginalSize int64     `bson:"original_size"`
	CreatedAt    time.Time `bson:"created_at"`
}

// =============================================================================
// Operations
// =============================================================================

// Save archives samples in one unordered bulk write.
func (a *CorpusAdapter) Save(ctx context.Context, samples []domain.Sample) error {
	if len(samples) == 0 {
		return nil
	}

	now := time.Now().UTC()
	models := make([]mongo.WriteModel, 0, len(samples))
	for _, s := range samples {
		doc, err := toDocument(s, now)
		if err != nil {
			return err
		}
		models = append(models, mongo.NewInsertOneModel().SetDocument(doc))
	}

	opts := options.BulkWrite().SetOrdered(false)
	if _, err := a.collection.BulkWrite(ctx, models, opts); err != nil {
		return fmt.Errorf("failed to archive corpus: %w", err)
	}
	return nil
}

// Contents returns bodies of one label, oldest first.
func (a *CorpusAdapter) Contents(ctx context.Context, spam bool, maxItems int) ([]string, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	if maxItems > 0 {
		opts.SetLimit(int64(maxItems))
	}

	cursor, err := a.collection.Find(ctx, bson.M{"spam": spam}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query corpus: %w", err)
	}
	defer cursor.Close(ctx)

	var contents []string
	for cursor.Next(ctx) {
		var doc corpusDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode corpus document: %w", err)
		}
		body, err := fromDocument(&doc)
		if err != nil {
			return nil, fmt.Errorf("failed to read corpus document %s: %w", doc.ID, err)
		}
		contents = append(contents, body)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate corpus: %w", err)
	}
	return contents, nil
}

// Source binds the adapter to one label.
func (a *CorpusAdapter) Source(spam bool) out.MessageSource {
	return &corpusSource{adapter: a, spam: spam}
}

type corpusSource struct {
	adapter *CorpusAdapter
	spam    bool
}

func (s *corpusSource) Content(ctx context.Context, maxItems int) ([]string, error) {
	return s.adapter.Contents(ctx, s.spam, maxItems)
}

// =============================================================================
// Conversion Helpers
// =============================================================================

func toDocument(s domain.Sample, now time.Time) (*corpusDocument, error) {
	body := []byte(s.Content)
	doc := &corpusDocument{
		ID:           uuid.NewString(),
		Spam:         s.Spam,
		Body:         body,
		OriginalSize: int64(len(body)),
		CreatedAt:    now,
	}
	if len(body) > compressionThreshold {
		compressed, err := compress(body)
		if err != nil {
			return nil, fmt.Errorf("failed to compress body: %w", err)
		}
		doc.Body = compressed
		doc.IsCompressed = true
	}
	return doc, nil
}

func fromDocument(doc *corpusDocument) (string, error) {
	if !doc.IsCompressed {
		return string(doc.Body), nil
	}
	body, err := decompress(doc.Body)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

func compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	writer := gzip.NewWriter(&buf)
	if _, err := writer.Write(data); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decompress(data []byte) ([]byte, error) {
	reader, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer reader.Close()
	return io.ReadAll(reader)
}
