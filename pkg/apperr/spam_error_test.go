package apperr

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTrainingBatchFailureUnwraps(t *testing.T) {
	cause := errors.New("connection reset")
	err := fmt.Errorf("train: %w", TrainingBatchFailure("bayes", 2, cause))

	assert.ErrorIs(t, err, cause)
	assert.True(t, HasCode(err, CodeTrainingBatchFailure))
	assert.Equal(t, ExitInternal, GetExitCode(err))
	assert.Equal(t, 2, AsAppError(err).Details["batch"])
}

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, 0},
		{"plain", errors.New("x"), ExitInternal},
		{"config", ConfigError("bad"), ExitConfig},
		{"malformed", MalformedInput("mbox", nil), ExitData},
		{"usage", InvalidInput("batch_size", "must be positive"), ExitUsage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetExitCode(tt.err))
		})
	}
}

func TestReadFailure(t *testing.T) {
	missing := ReadFailure("spam.txt", fmt.Errorf("open: %w", fs.ErrNotExist))
	assert.Equal(t, CodeNotFound, missing.Code)
	assert.Equal(t, ExitData, missing.ExitCode)
	assert.ErrorIs(t, missing, fs.ErrNotExist)

	broken := ReadFailure("spam.txt", fs.ErrPermission)
	assert.Equal(t, CodeMalformedInput, broken.Code)
	assert.Equal(t, ExitData, broken.ExitCode)
}

func TestAsAppErrorWrapsForeignErrors(t *testing.T) {
	appErr := AsAppError(errors.New("boom"))
	assert.Equal(t, CodeInternalError, appErr.Code)
	assert.EqualError(t, appErr, "[INTERNAL_ERROR] internal error: boom")
}
