package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/erp/personportal/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type personForm struct {
	PersonID int    `form:"PersonID" binding:"min=0"`
	Name     string `form:"Name" binding:"max=10"`
	Email    string `form:"Email" binding:"omitempty,email"`
}

func TestSetupValidator(t *testing.T) {
	SetupValidator()

	v, ok := binding.Validator.Engine().(*validator.Validate)
	assert.True(t, ok)
	assert.NotNil(t, v)
}

func TestHandleValidationError_UsesFormFieldNames(t *testing.T) {
	SetupValidator()

	router := gin.New()
	router.Use(RequestID())
	router.POST("/test", func(c *gin.Context) {
		var form personForm
		if err := c.ShouldBind(&form); err != nil {
			HandleValidationError(c, err)
			return
		}
		c.Status(http.StatusOK)
	})

	t.Run("invalid form", func(t *testing.T) {
		values := url.Values{"PersonID": {"0"}, "Name": {"a much too long name"}, "Email": {"nope"}}
		req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(values.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set(RequestIDHeader, "req-1")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.NotNil(t, resp.Error)
		assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
		assert.Equal(t, "req-1", resp.Error.RequestID)
		require.Len(t, resp.Error.Details, 2)
		assert.Equal(t, "Name", resp.Error.Details[0].Field)
		assert.Equal(t, "Must be at most 10 characters", resp.Error.Details[0].Message)
		assert.Equal(t, "Email", resp.Error.Details[1].Field)
		assert.Equal(t, "Invalid email format", resp.Error.Details[1].Message)
	})

	t.Run("valid form", func(t *testing.T) {
		values := url.Values{"PersonID": {"3"}, "Name": {"Ada"}}
		req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(values.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestValidationSummary(t *testing.T) {
	SetupValidator()

	v, ok := binding.Validator.Engine().(*validator.Validate)
	require.True(t, ok)

	err := v.Struct(personForm{PersonID: -1, Email: "bad"})
	require.Error(t, err)
	assert.Equal(t, "PersonID: Must be at least 0; Email: Invalid email format", ValidationSummary(err))

	assert.Equal(t, "boom", ValidationSummary(errors.New("boom")))
}
