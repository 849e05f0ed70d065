package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Classification(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
		typ   ErrorType
	}{
		{"setup", NewSetupError("permission denied", nil), IsSetup, ErrSetup},
		{"remote write", NewRemoteWriteError("failed to create commit", nil), IsRemoteWrite, ErrRemoteWrite},
		{"conflict", NewConflictError("branch moved", nil), IsConflict, ErrConflict},
		{"not found", NewNotFoundError("no checkpoint", nil), IsNotFound, ErrNotFound},
		{"validation", NewValidationError("owner is required", nil), IsValidationError, ErrInvalidInput},
		{"unauthorized", NewUnauthorizedError("token required", nil), IsUnauthorized, ErrUnauthorized},
		{"cancelled", NewCancelledError("stopped", context.Canceled), IsCancelled, ErrCancelled},
		{"rate limit", New(ErrRateLimit, "slow down", nil), IsRateLimit, ErrRateLimit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.check(tt.err))
			assert.Equal(t, tt.typ, TypeOf(tt.err))

			wrapped := fmt.Errorf("run failed: %w", tt.err)
			assert.True(t, tt.check(wrapped), "wrapped errors classify the same way")
			assert.Equal(t, tt.typ, TypeOf(wrapped))
		})
	}
}

func TestAppError_Message(t *testing.T) {
	cause := stderrors.New("502 Bad Gateway")
	err := NewRemoteWriteError("failed to create commit 47 of 200", cause)

	assert.Equal(t, "REMOTE_WRITE: failed to create commit 47 of 200 (caused by: 502 Bad Gateway)", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.False(t, err.Timestamp.IsZero())

	assert.Equal(t, "NOT_FOUND: no checkpoint", NewNotFoundError("no checkpoint", nil).Error())
}

func TestTypeOf_PlainError(t *testing.T) {
	assert.Equal(t, ErrInternal, TypeOf(stderrors.New("boom")))
	assert.False(t, IsNotFound(stderrors.New("boom")))
	assert.True(t, IsCancelled(NewCancelledError("stopped", context.DeadlineExceeded)))
	assert.ErrorIs(t, NewCancelledError("stopped", context.DeadlineExceeded), context.DeadlineExceeded)
}

func TestJobInProgressError(t *testing.T) {
	err := NewJobInProgressError("octocat/art/2024")
	assert.True(t, IsJobInProgress(err))
	assert.True(t, IsJobInProgress(fmt.Errorf("start: %w", err)))
	assert.Equal(t, "job already in progress: octocat/art/2024", err.Error())
	assert.False(t, IsJobInProgress(NewConflictError("x", nil)))
}
