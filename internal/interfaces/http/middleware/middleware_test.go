package middleware

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/weatherbot/backend/internal/infrastructure/log"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/simplifiedchinese"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func echoRouter() *gin.Engine {
	router := gin.New()
	router.Use(RequestID(), EnsureUTF8Body())
	router.POST("/echo", func(c *gin.Context) {
		body, _ := io.ReadAll(c.Request.Body)
		c.Header("X-Seen-Request-ID", log.RequestIDFromContext(c.Request.Context()))
		c.Data(http.StatusOK, "text/plain; charset=utf-8", body)
	})
	return router
}

func TestEnsureUTF8Body_ConvertsGBK(t *testing.T) {
	gbk, err := simplifiedchinese.GBK.NewEncoder().Bytes([]byte(`{"message":"北京天气怎么样"}`))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/echo", bytes.NewReader(gbk))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	echoRouter().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `{"message":"北京天气怎么样"}`, w.Body.String())
}

func TestEnsureUTF8Body_KeepsUTF8(t *testing.T) {
	body := `{"message":"weather in Zürich"}`
	req := httptest.NewRequest(http.MethodPost, "/echo", bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	echoRouter().ServeHTTP(w, req)

	assert.Equal(t, body, w.Body.String())
}

func TestEnsureUTF8Body_DeclaredCharset(t *testing.T) {
	latin1, err := charmap.ISO8859_1.NewEncoder().Bytes([]byte(`{"message":"weather in Zürich"}`))
	require.NoError(t, err)
	require.False(t, utf8.Valid(latin1))

	req := httptest.NewRequest(http.MethodPost, "/echo", bytes.NewReader(latin1))
	req.Header.Set("Content-Type", "application/json; charset=ISO-8859-1")
	w := httptest.NewRecorder()
	echoRouter().ServeHTTP(w, req)

	assert.Equal(t, `{"message":"weather in Zürich"}`, w.Body.String())
}

func TestEnsureUTF8Body_SkipsNonJSON(t *testing.T) {
	raw := []byte{0xff, 0xfe, 0x00, 0x01}
	req := httptest.NewRequest(http.MethodPost, "/echo", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/octet-stream")
	w := httptest.NewRecorder()
	echoRouter().ServeHTTP(w, req)

	assert.Equal(t, raw, w.Body.Bytes())
}

func TestParseContentType(t *testing.T) {
	tests := []struct {
		header    string
		mediaType string
		charset   string
	}{
		{"", "", ""},
		{"application/json", "application/json", ""},
		{"application/json; charset=GBK", "application/json", "gbk"},
		{"text/plain;;", "text/plain", ""},
	}
	for _, tt := range tests {
		mediaType, charset := parseContentType(tt.header)
		assert.Equal(t, tt.mediaType, mediaType, tt.header)
		assert.Equal(t, tt.charset, charset, tt.header)
	}
}

func TestRequestID(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/echo", nil)
	w := httptest.NewRecorder()
	echoRouter().ServeHTTP(w, req)

	id := w.Header().Get(HeaderRequestID)
	assert.NotEmpty(t, id)
	assert.Equal(t, id, w.Header().Get("X-Seen-Request-ID"))

	req = httptest.NewRequest(http.MethodPost, "/echo", nil)
	req.Header.Set(HeaderRequestID, "req-123")
	w = httptest.NewRecorder()
	echoRouter().ServeHTTP(w, req)
	assert.Equal(t, "req-123", w.Header().Get(HeaderRequestID))
}
