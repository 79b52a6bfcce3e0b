package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorsIs(t *testing.T) {
	cause := errors.New("connection reset")

	tests := []struct {
		name      string
		err       error
		target    error
		wantMatch bool
	}{
		{
			name:      "NotFound wraps ErrNotFound",
			err:       NotFound("organization", "acme"),
			target:    ErrNotFound,
			wantMatch: true,
		},
		{
			name:      "Unauthorized wraps ErrUnauthorized",
			err:       Unauthorized(),
			target:    ErrUnauthorized,
			wantMatch: true,
		},
		{
			name:      "Upstream wraps ErrUpstream",
			err:       Upstream("query user", cause),
			target:    ErrUpstream,
			wantMatch: true,
		},
		{
			name:      "Upstream keeps its cause",
			err:       Upstream("query user", cause),
			target:    cause,
			wantMatch: true,
		},
		{
			name:      "wrapped Upstream still matches",
			err:       fmt.Errorf("failed to get issues: %w", Upstream("query issues", cause)),
			target:    ErrUpstream,
			wantMatch: true,
		},
		{
			name:      "NotFound does not match ErrUpstream",
			err:       NotFound("organization", "acme"),
			target:    ErrUpstream,
			wantMatch: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantMatch, errors.Is(tt.err, tt.target))
		})
	}
}

func TestErrorMessages(t *testing.T) {
	assert.Equal(t, "organization not found: acme", NotFound("organization", "acme").Error())
	assert.Equal(t, "unauthorized", Unauthorized().Error())
	assert.Equal(t, "github: query user: boom", Upstream("query user", errors.New("boom")).Error())
	assert.Equal(t, "name is required", ValidationFailed("name", "name is required").Error())
}

func TestErrorsAs(t *testing.T) {
	err := fmt.Errorf("resolver: %w", ValidationFailed("login", "login is required"))

	var appErr *AppError
	assert.True(t, errors.As(err, &appErr))
	assert.Equal(t, "login", appErr.Field)
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{ValidationFailed("x", "bad"), http.StatusBadRequest},
		{Unauthorized(), http.StatusUnauthorized},
		{NotFound("repository", "acme:widgets"), http.StatusNotFound},
		{Upstream("query", errors.New("boom")), http.StatusBadGateway},
		{errors.New("anything else"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, HTTPStatus(tt.err), "error: %v", tt.err)
	}
}
