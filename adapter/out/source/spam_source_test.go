package source

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spam_filter/adapter/out/memory"
	"spam_filter/core/domain"
	"spam_filter/pkg/apperr"
)

func TestFileSourceContent(t *testing.T) {
	src := NewFileSource(filepath.Join("testdata", "messages.txt"), "")

	all, err := src.Content(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "<p>Какой прекрасный день</p>\n", all[0])
	assert.Equal(t, "last message\n", all[2])

	limited, err := src.Content(context.Background(), 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestSourcesReportMissingFiles(t *testing.T) {
	tests := []struct {
		name string
		src  interface {
			Content(ctx context.Context, maxItems int) ([]string, error)
		}
		code string
	}{
		{"missing text file", NewFileSource(filepath.Join("testdata", "absent.txt"), ""), apperr.CodeNotFound},
		{"missing mbox", NewMboxSource(filepath.Join("testdata", "absent.mbox"), zerolog.Nop()), apperr.CodeNotFound},
		{"directory instead of file", NewFileSource("testdata", ""), apperr.CodeMalformedInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.src.Content(context.Background(), 0)
			require.Error(t, err)
			assert.True(t, apperr.HasCode(err, tt.code), err)
			assert.Equal(t, apperr.ExitData, apperr.GetExitCode(err))
		})
	}
}

func TestMboxSourcePrefersHTML(t *testing.T) {
	src := NewMboxSource(filepath.Join("testdata", "sample.mbox"), zerolog.Nop())

	bodies, err := src.Content(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, bodies, 3)
	assert.Equal(t, "<p>html body</p>", strings.TrimSpace(bodies[0]))
	assert.Equal(t, "just text", strings.TrimSpace(bodies[1]))

	limited, err := src.Content(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestLearningMessageSource(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewLearningMessageStore()
	require.NoError(t, repo.BulkCreate(ctx, []domain.LearningMessage{
		{Message: "buy now", Spam: true},
		{Message: "see you", Spam: false},
		{Message: "free prize", Spam: true},
	}))

	spam, err := NewLearningMessageSource(repo, true).Content(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"buy now", "free prize"}, spam)

	ham, err := NewLearningMessageSource(repo, false).Content(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"see you"}, ham)
}
