package services

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/caresync/internal/core/domain"
)

func TestClassify(t *testing.T) {
	remote := func(status int) error {
		return &domain.RemoteError{Op: "put", Path: "p", Status: status, Err: errors.New("x")}
	}

	tests := []struct {
		name string
		err  error
		want domain.ErrorKind
	}{
		{name: "unauthorized", err: remote(http.StatusUnauthorized), want: domain.KindNetwork},
		{name: "forbidden", err: remote(http.StatusForbidden), want: domain.KindNetwork},
		{name: "not found", err: remote(http.StatusNotFound), want: domain.KindNetwork},
		{name: "server error", err: remote(http.StatusBadGateway), want: domain.KindNetwork},
		{name: "transport", err: remote(0), want: domain.KindNetwork},
		{name: "wrapped remote", err: fmt.Errorf("upload: %w", remote(http.StatusUnauthorized)), want: domain.KindNetwork},
		{name: "remote missing document", err: fmt.Errorf("find: %w", &domain.RemoteError{Op: "find", Status: http.StatusNotFound, Err: domain.ErrNotFound}), want: domain.KindNetwork},
		{name: "malformed", err: fmt.Errorf("map: %w", domain.ErrMalformedDocument), want: domain.KindValidation},
		{name: "invalid input", err: domain.ErrInvalidInput, want: domain.KindValidation},
		{name: "local store", err: fmt.Errorf("save: %w", domain.ErrLocalStore), want: domain.KindDatabase},
		{name: "not found sentinel", err: domain.ErrNotFound, want: domain.KindNotFound},
		{name: "other", err: errors.New("boom"), want: domain.KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify("push tasks", tt.err)
			assert.Equal(t, tt.want, got.Kind)
			assert.Equal(t, "push tasks", got.Op)
			assert.ErrorIs(t, got, tt.err)
		})
	}
}

func TestClassify_PassesDomainErrorThrough(t *testing.T) {
	original := domain.NewDomainError(domain.KindSecurity, "pull notes", errors.New("denied"))

	got := Classify("push tasks", fmt.Errorf("wrapped: %w", original))
	assert.Same(t, original, got)
}

func TestClassify_RemoteFailuresAreRetryable(t *testing.T) {
	for _, status := range []int{0, http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound, http.StatusServiceUnavailable} {
		err := &domain.RemoteError{Op: "find", Path: "caregivers/c1/notes", Status: status, Err: errors.New("x")}
		assert.True(t, Classify("pull notes", err).Retryable(), "status %d", status)
	}
}

func TestClassify_Nil(t *testing.T) {
	assert.Nil(t, Classify("op", nil))
}
