package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/farmstore/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPhoneValidation(t *testing.T) {
	v := validator.New()
	RegisterValidations(v)

	type contact struct {
		Phone string `json:"phone" validate:"phone"`
	}
	tests := []struct {
		phone string
		valid bool
	}{
		{"+221 77 123 45 67", true},
		{"771234567", true},
		{"77-123-45-67", true},
		{"12345", false},
		{"call me", false},
		{"+221 77 123 45 67 89 01 23", false},
	}
	for _, tt := range tests {
		t.Run(tt.phone, func(t *testing.T) {
			err := v.Struct(contact{Phone: tt.phone})
			if tt.valid {
				assert.NoError(t, err)
				return
			}
			var verrs validator.ValidationErrors
			require.ErrorAs(t, err, &verrs)
			assert.Equal(t, "phone", verrs[0].Field(), "errors use JSON field names")
			assert.Equal(t, "Invalid phone number", getValidationMessage(verrs[0]))
		})
	}
}

func TestHandleValidationError(t *testing.T) {
	require.NoError(t, SetupValidator())

	router := gin.New()
	router.POST("/checkout", func(c *gin.Context) {
		var req dto.CheckoutRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			HandleValidationError(c, err)
			return
		}
		c.Status(http.StatusOK)
	})

	post := func(body string) (int, dto.Response) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/checkout", strings.NewReader(body)))
		var resp dto.Response
		_ = json.Unmarshal(w.Body.Bytes(), &resp)
		return w.Code, resp
	}

	t.Run("malformed json", func(t *testing.T) {
		code, resp := post(`{"customer":`)
		assert.Equal(t, http.StatusBadRequest, code)
		require.NotNil(t, resp.Error)
		assert.Equal(t, dto.ErrCodeInvalidJSON, resp.Error.Code)
	})

	t.Run("field errors", func(t *testing.T) {
		code, resp := post(`{"customer":{"name":"Awa","phone":"nope"},"location_failure":"lost"}`)
		assert.Equal(t, http.StatusBadRequest, code)
		require.NotNil(t, resp.Error)
		assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
		fields := map[string]string{}
		for _, f := range resp.Error.Fields {
			fields[f.Field] = f.Message
		}
		assert.Equal(t, "Invalid phone number", fields["phone"])
		assert.Contains(t, fields["location_failure"], "denied")
	})

	t.Run("missing name and phone pass binding", func(t *testing.T) {
		code, _ := post(`{"customer":{}}`)
		assert.Equal(t, http.StatusOK, code)
	})
}
