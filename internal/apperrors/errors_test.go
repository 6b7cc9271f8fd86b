package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"not found", NotFound("business"), http.StatusNotFound},
		{"wrapped not found", fmt.Errorf("lookup: %w", ErrNotFound), http.StatusNotFound},
		{"unauthorized", ErrUnauthorized, http.StatusUnauthorized},
		{"forbidden", ErrForbidden, http.StatusForbidden},
		{"validation", Validation("email is required"), http.StatusBadRequest},
		{"conflict", Conflict("business already exists"), http.StatusConflict},
		{"upstream", Upstream("purchase number", errors.New("twilio 500")), http.StatusBadGateway},
		{"unknown", errors.New("db down"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, HTTPStatus(tc.err))
		})
	}
}

func TestUpstreamKeepsCause(t *testing.T) {
	cause := errors.New("twilio 500")
	err := Upstream("release number", cause)
	assert.ErrorIs(t, err, ErrUpstream)
	assert.ErrorIs(t, err, cause)
}

func TestPublicMessageHidesInternal(t *testing.T) {
	assert.Equal(t, "internal error", PublicMessage(errors.New("pq: password authentication failed")))
	assert.Equal(t, "business not found", PublicMessage(NotFound("business")))
}
