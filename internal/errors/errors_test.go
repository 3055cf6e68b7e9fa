package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapKeepsCode(t *testing.T) {
	base := NotFound("file abc")
	wrapped := Wrap(base, "query failed")

	assert.Equal(t, CodeNotFound, GetCode(wrapped))
	assert.Equal(t, "query failed: file abc not found", wrapped.Error())
	assert.True(t, Is(wrapped, CodeNotFound))
}

func TestWrapPlainErrorIsInternal(t *testing.T) {
	wrapped := Wrapf(fmt.Errorf("boom"), "step %d", 3)
	assert.Equal(t, CodeInternalError, GetCode(wrapped))
	assert.Equal(t, "step 3: boom", wrapped.Error())
	assert.Nil(t, Wrap(nil, "nothing"))
}

func TestGetCodeThroughFmtWrap(t *testing.T) {
	err := fmt.Errorf("outer: %w", InvalidInput("bad"))
	assert.Equal(t, CodeInvalidInput, GetCode(err))
	assert.True(t, IsAppError(err))
	assert.Equal(t, "UNKNOWN", GetCode(fmt.Errorf("plain")))
}

func TestHTTPStatus(t *testing.T) {
	cases := map[error]int{
		NotFound("x"):                                http.StatusNotFound,
		InvalidInput("x"):                            http.StatusBadRequest,
		UnsupportedFileType(".feather"):              http.StatusBadRequest,
		MalformedOutput("goals", fmt.Errorf("x")):    http.StatusBadGateway,
		ExternalServiceError("llm", fmt.Errorf("x")): http.StatusBadGateway,
		fmt.Errorf("plain"):                          http.StatusInternalServerError,
	}
	for err, want := range cases {
		assert.Equal(t, want, HTTPStatus(err), err.Error())
	}
}
