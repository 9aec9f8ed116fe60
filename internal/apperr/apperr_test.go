package apperr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMatchesKindAndCause(t *testing.T) {
	cause := errors.New("quota exceeded")
	err := Rejected("update employee", cause)

	assert.ErrorIs(t, err, ErrWriteRejected)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrDataSourceUnavailable)
	assert.Equal(t, "update employee: write rejected: quota exceeded", err.Error())
}

func TestValidationError(t *testing.T) {
	err := &ValidationError{Fields: map[string]string{"name": "is required", "hrms_id": "is required"}}

	assert.ErrorIs(t, err, ErrValidationFailed)
	assert.Equal(t, "validation failed: hrms_id: is required; name: is required", err.Error())

	var ve *ValidationError
	assert.True(t, errors.As(error(Invalid("id", "is required")), &ve))
	assert.Equal(t, "is required", ve.Fields["id"])
}
