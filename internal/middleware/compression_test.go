package middleware

import (
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T, body string, contentType string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cm, err := NewCompressionMiddleware(DefaultCompressionConfig())
	require.NoError(t, err)

	r := gin.New()
	r.Use(cm.Handler())
	r.GET("/data", func(c *gin.Context) {
		c.Data(http.StatusOK, contentType, []byte(body))
	})
	return r
}

func get(r *gin.Engine, acceptGzip bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/data", nil)
	if acceptGzip {
		req.Header.Set("Accept-Encoding", "gzip, deflate")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCompression(t *testing.T) {
	large := `{"entries":"` + strings.Repeat("broker ", 500) + `"}`
	small := `{"ok":true}`

	tests := []struct {
		name        string
		body        string
		contentType string
		acceptGzip  bool
		compressed  bool
	}{
		{"large json is compressed", large, "application/json; charset=utf-8", true, true},
		{"small json is sent as is", small, "application/json", true, false},
		{"client without gzip", large, "application/json", false, false},
		{"binary content type", large, "application/octet-stream", true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := get(newTestRouter(t, tt.body, tt.contentType), tt.acceptGzip)
			require.Equal(t, http.StatusOK, w.Code)

			if !tt.compressed {
				assert.Empty(t, w.Header().Get("Content-Encoding"))
				assert.Equal(t, tt.body, w.Body.String())
				return
			}

			assert.Equal(t, "gzip", w.Header().Get("Content-Encoding"))
			assert.Equal(t, "Accept-Encoding", w.Header().Get("Vary"))
			assert.Less(t, w.Body.Len(), len(tt.body))

			gz, err := gzip.NewReader(w.Body)
			require.NoError(t, err)
			decoded, err := io.ReadAll(gz)
			require.NoError(t, err)
			assert.Equal(t, tt.body, string(decoded))
		})
	}
}

func TestCompression_InvalidLevel(t *testing.T) {
	config := DefaultCompressionConfig()
	config.CompressionLevel = 42

	_, err := NewCompressionMiddleware(config)
	assert.Error(t, err)
}

func TestCompression_ErrorsAfterHandlerUseOriginalWriter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cm, err := NewCompressionMiddleware(DefaultCompressionConfig())
	require.NoError(t, err)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Next()
		if len(c.Errors) > 0 && !c.Writer.Written() {
			c.JSON(http.StatusBadRequest, gin.H{"error": c.Errors.Last().Error()})
		}
	})
	r.Use(cm.Handler())
	r.GET("/fail", func(c *gin.Context) {
		_ = c.Error(assert.AnError)
	})

	req := httptest.NewRequest(http.MethodGet, "/fail", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), assert.AnError.Error())
}
