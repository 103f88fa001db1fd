// Package source reads raw message contents for training and validation.
package source

import (
	"context"
	"fmt"
	"os"
	"strings"

	"spam_filter/core/port/out"
	"spam_filter/pkg/apperr"
)

// DefaultDelimiter separates messages in a file source.
const DefaultDelimiter = "**********\n"

// FileSource reads messages from a single file split by a delimiter.
type FileSource struct {
	Path      string
	Delimiter string
}

var _ out.MessageSource = (*FileSource)(nil)

func NewFileSource(path, delimiter string) *FileSource {
	if delimiter == "" {
		delimiter = DefaultDelimiter
	}
	return &FileSource{Path: path, Delimiter: delimiter}
}

// Content returns the non-blank messages of the file in order.
func (s *FileSource) Content(ctx context.Context, maxItems int) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, apperr.ReadFailure(s.Path, fmt.Errorf("failed to read message file: %w", err))
	}
	return splitMessages(string(data), s.Delimiter, maxItems), nil
}

func splitMessages(data, delimiter string, maxItems int) []string {
	var messages []string
	for _, part := range strings.Split(data, delimiter) {
		if strings.TrimSpace(part) == "" {
			continue
		}
		messages = append(messages, part)
		if maxItems > 0 && len(messages) == maxItems {
			break
		}
	}
	return messages
}
