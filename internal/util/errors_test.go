package util

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppErrorIsMatchesWrappedCopies(t *testing.T) {
	cause := errors.New("UNIQUE constraint failed")
	err := fmt.Errorf("submit: %w", ErrAlreadySubmitted.Wrap(cause))

	assert.ErrorIs(t, err, ErrAlreadySubmitted)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrAlreadyEnrolled)
}

func runHandleError(t *testing.T, mode string, err error) (int, Response) {
	t.Helper()
	gin.SetMode(mode)
	t.Cleanup(func() { gin.SetMode(gin.TestMode) })

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	HandleError(c, err)

	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return w.Code, resp
}

func TestHandleErrorStatusMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{ErrSelectedOptions, http.StatusBadRequest},
		{ErrUnauthorized, http.StatusUnauthorized},
		{ErrNotEnrolled, http.StatusForbidden},
		{ErrQuizNotFound, http.StatusNotFound},
		{ErrAlreadySubmitted, http.StatusConflict},
		{errors.New("db down"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		code, resp := runHandleError(t, gin.TestMode, tc.err)
		assert.Equal(t, tc.want, code)
		assert.Equal(t, tc.want, resp.Code)
	}
}

func TestHandleErrorHidesCauseOutsideDebug(t *testing.T) {
	_, resp := runHandleError(t, gin.ReleaseMode, errors.New("dial tcp 10.0.0.1:3306"))
	assert.Equal(t, "Internal server error", resp.Message)
	assert.Empty(t, resp.Error)

	_, resp = runHandleError(t, gin.DebugMode, errors.New("dial tcp 10.0.0.1:3306"))
	assert.Equal(t, "dial tcp 10.0.0.1:3306", resp.Error)
}

func TestBindErrorFormatsValidationErrors(t *testing.T) {
	type req struct {
		Email    string `validate:"required,email"`
		Password string `validate:"min=6"`
	}
	err := validator.New().Struct(req{Email: "nope", Password: "123"})
	require.Error(t, err)

	appErr := BindError(err)
	assert.Equal(t, KindBadRequest, appErr.Kind)
	assert.Contains(t, appErr.Message, "Email must be a valid email")
	assert.Contains(t, appErr.Message, "Password must be at least 6")

	appErr = BindError(errors.New("unexpected EOF"))
	assert.Equal(t, "Invalid request body", appErr.Message)
}
