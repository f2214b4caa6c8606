package errors

import (
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(ErrorHandler(), Recovery())
	return r
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestErrorHandler_RendersAppError(t *testing.T) {
	r := newTestEngine()
	r.GET("/bad", func(c *gin.Context) {
		c.Error(NewBadRequestError("MESSAGE_REQUIRED", "Message is required"))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/bad", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decode(t, w)
	assert.Equal(t, "Message is required", body["error"])
	assert.Equal(t, "MESSAGE_REQUIRED", body["code"])
}

func TestErrorHandler_HidesUnexpectedCause(t *testing.T) {
	r := newTestEngine()
	r.GET("/boom", func(c *gin.Context) {
		c.Error(stderrors.New("dial tcp 10.0.0.1:443: connection refused"))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, InternalMessage, decode(t, w)["error"])
	assert.NotContains(t, w.Body.String(), "connection refused")
}

func TestRecovery(t *testing.T) {
	r := newTestEngine()
	r.GET("/panic", func(c *gin.Context) {
		panic("unexpected nil trip")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, InternalMessage, decode(t, w)["error"])
}

func TestFromError_FindsWrappedAppError(t *testing.T) {
	appErr := NewNotFoundError("NOT_FOUND", "missing")
	wrapped := stderrors.Join(stderrors.New("context"), appErr)

	assert.Same(t, appErr, FromError(wrapped))
	assert.Equal(t, http.StatusNotFound, GetStatusCode(wrapped))
	assert.Nil(t, FromError(nil))
}

func TestWrap_KeepsOriginalUntouched(t *testing.T) {
	base := NewBadRequestError("INVALID_REQUEST", "Invalid request format")
	cause := stderrors.New("unexpected EOF")

	wrapped := base.Wrap(cause)

	assert.Nil(t, base.Err)
	assert.ErrorIs(t, wrapped, cause)
	assert.Equal(t, base.Message, wrapped.Message)
}
