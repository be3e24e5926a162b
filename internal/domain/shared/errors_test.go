package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainError_IsMatchesByCode(t *testing.T) {
	err := ErrInsufficientStock.WithDetail("product", "Tomates")

	assert.True(t, errors.Is(err, ErrInsufficientStock))
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, "Tomates", err.Details["product"])
	assert.Nil(t, ErrInsufficientStock.Details, "sentinel must not be mutated")
}

func TestDomainError_Wrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := ErrUnavailable.Wrap(cause)

	assert.True(t, errors.Is(err, ErrUnavailable))
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, "Backing store is unreachable: connection refused", err.Error())

	wrapped := fmt.Errorf("load products: %w", err)
	var de *DomainError
	assert.True(t, errors.As(wrapped, &de))
	assert.Equal(t, "UNAVAILABLE", de.Code)
}

func TestDomainError_WithMessage(t *testing.T) {
	err := ErrInvalidInput.WithMessage("step must be positive")
	assert.Equal(t, "step must be positive", err.Error())
	assert.Equal(t, "Invalid input provided", ErrInvalidInput.Message)
}
