package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromResponse_StringMessage(t *testing.T) {
	err := FromResponse(http.StatusConflict, []byte(`{"statusCode":409,"message":"Recipe already saved","error":"Conflict"}`))

	assert.Equal(t, CodeConflict, err.Code)
	assert.Equal(t, "Recipe already saved", err.Message)
	assert.Equal(t, http.StatusConflict, err.StatusCode())
}

func TestFromResponse_MessageList(t *testing.T) {
	err := FromResponse(http.StatusBadRequest, []byte(`{"message":["ingredients should not be empty","maxTime must be a number"]}`))

	assert.Equal(t, CodeBadRequest, err.Code)
	assert.Equal(t, "ingredients should not be empty; maxTime must be a number", err.Message)
}

func TestFromResponse_NoBody(t *testing.T) {
	err := FromResponse(http.StatusBadGateway, nil)

	assert.Equal(t, CodeExternalServiceError, err.Code)
	assert.Empty(t, err.Message)
	assert.Equal(t, "Bad Gateway", err.Details)
	assert.Equal(t, http.StatusBadGateway, err.StatusCode())
}

func TestFromResponse_Unauthorized(t *testing.T) {
	err := FromResponse(http.StatusUnauthorized, []byte(`{"message":"Unauthorized"}`))

	assert.True(t, Is(err, CodeUnauthorized))
	assert.True(t, Is(fmt.Errorf("load profile: %w", err), CodeUnauthorized))
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"server message", FromResponse(http.StatusBadRequest, []byte(`{"message":"Invalid email"}`)), "Invalid email"},
		{"server message on 5xx", FromResponse(http.StatusInternalServerError, []byte(`{"message":"LLM quota exhausted"}`)), "LLM quota exhausted"},
		{"no server message", FromResponse(http.StatusInternalServerError, []byte(`not json`)), "Something went wrong"},
		{"transport failure", NewExternalServiceError("recipe api", fmt.Errorf("dial tcp: refused")), "Something went wrong"},
		{"plain error", fmt.Errorf("boom"), "Something went wrong"},
		{"validation", NewValidationErrors([]ValidationError{{Field: "name", Message: "Name cannot be empty"}}), "Name cannot be empty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, UserMessage(tt.err, "Something went wrong"))
		})
	}
}

func TestWrap(t *testing.T) {
	assert.Nil(t, Wrap(nil, "ignored"))

	original := NewNotFoundError("Recipe")
	assert.Same(t, original, Wrap(fmt.Errorf("ctx: %w", original), "ignored"))

	wrapped := Wrap(fmt.Errorf("boom"), "render failed")
	require.NotNil(t, wrapped)
	assert.Equal(t, CodeInternal, wrapped.Code)
	assert.Equal(t, "render failed", wrapped.Message)
	assert.EqualError(t, wrapped.Unwrap(), "boom")
}

func TestNewExternalServiceError_KeepsCause(t *testing.T) {
	cause := fmt.Errorf("dial tcp: connection refused")
	err := NewExternalServiceError("recipe API", cause)

	assert.Equal(t, CodeExternalServiceError, err.Code)
	assert.Equal(t, "Failed to communicate with recipe API", err.Details)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, http.StatusBadGateway, err.StatusCode())
}

func TestValidationErrors_Error(t *testing.T) {
	assert.Equal(t, "validation failed", ValidationErrors{}.Error())
	assert.Equal(t, "a; b", ValidationErrors{{Message: "a"}, {Message: "b"}}.Error())
}
