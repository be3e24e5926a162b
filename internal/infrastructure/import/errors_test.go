package csvimport

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRowError(t *testing.T) {
	assert.Equal(t, "row 5, column 'price': expected a decimal number",
		NewRowError(5, "price", ErrCodeInvalidNumber, "expected a decimal number").Error())
	assert.Equal(t, "row 10: malformed row",
		NewRowError(10, "", ErrCodeMalformedRow, "malformed row").Error())
}

func TestErrorCollection(t *testing.T) {
	t.Run("empty collection has no error", func(t *testing.T) {
		ec := NewErrorCollection(0)
		assert.False(t, ec.HasErrors())
		assert.NoError(t, ec.Err())
	})

	t.Run("keeps up to the limit and counts the rest", func(t *testing.T) {
		ec := NewErrorCollection(2)
		ec.AddRequired(2, "code")
		ec.AddInvalidNumber(3, "price", "abc")
		ec.AddRequired(4, "unit")

		assert.Len(t, ec.Errors(), 2)
		assert.Equal(t, 3, ec.TotalCount())
		assert.Equal(t, "abc", ec.Errors()[1].Value)

		err := ec.Err()
		var ve *ValidationError
		require.True(t, errors.As(err, &ve))
		assert.Equal(t, "catalog file has 3 error(s); row 2, column 'code': value is required; "+
			"row 3, column 'price': expected a decimal number; and 1 more", err.Error())
	})
}
