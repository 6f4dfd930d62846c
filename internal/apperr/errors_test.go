package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		code Code
		want int
	}{
		{CodeInvalidArgument, http.StatusBadRequest},
		{CodeValidation, http.StatusUnprocessableEntity},
		{CodeUnauthenticated, http.StatusUnauthorized},
		{CodePermissionDenied, http.StatusForbidden},
		{CodeNotFound, http.StatusNotFound},
		{CodeConflict, http.StatusConflict},
		{CodeRateLimited, http.StatusTooManyRequests},
		{CodeInternal, http.StatusInternalServerError},
		{CodeUnknown, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.code.HTTPStatus())
		})
	}
}

func TestFromWrapped(t *testing.T) {
	err := fmt.Errorf("booking: %w", ErrSlotTaken)
	ae := From(err)
	assert.Equal(t, CodeConflict, ae.Code)
	assert.Equal(t, ErrSlotTaken.Error(), ae.Message)
}

func TestFromPlainErrorIsInternal(t *testing.T) {
	cause := errors.New("connection reset")
	ae := From(cause)
	assert.Equal(t, CodeInternal, ae.Code)
	assert.NotContains(t, ae.Message, "connection reset")
	assert.ErrorIs(t, ae, cause)
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeUnknown, CodeOf(nil))
	assert.Equal(t, CodeNotFound, CodeOf(ErrWishNotFound))
}
