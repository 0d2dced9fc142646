package middleware

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
)

// CompressionConfig holds configuration for response compression
type CompressionConfig struct {
	MinSize          int      // Minimum response size to compress (bytes)
	CompressionLevel int      // Gzip compression level (1-9, 9 is best compression)
	ContentTypes     []string // Content types to compress
}

// DefaultCompressionConfig returns the default compression configuration
func DefaultCompressionConfig() CompressionConfig {
	return CompressionConfig{
		MinSize:          1024,
		CompressionLevel: gzip.DefaultCompression,
		ContentTypes: []string{
			"application/json",
			"application/yaml",
			"text/plain",
		},
	}
}

// CompressionMiddleware provides gzip compression for HTTP responses
type CompressionMiddleware struct {
	config CompressionConfig
	pool   sync.Pool
}

// NewCompressionMiddleware creates a new compression middleware
func NewCompressionMiddleware(config CompressionConfig) (*CompressionMiddleware, error) {
	if _, err := gzip.NewWriterLevel(nil, config.CompressionLevel); err != nil {
		return nil, fmt.Errorf("invalid compression level %d: %w", config.CompressionLevel, err)
	}

	cm := &CompressionMiddleware{config: config}
	cm.pool.New = func() any {
		gz, _ := gzip.NewWriterLevel(nil, config.CompressionLevel)
		return gz
	}
	return cm, nil
}

// Handler compresses responses of at least MinSize bytes for clients that accept gzip.
// The original writer is restored once the handler chain returns.
func (cm *CompressionMiddleware) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !clientAcceptsGzip(c.Request) || c.Request.Method == http.MethodHead {
			c.Next()
			return
		}

		original := c.Writer
		gzw := &gzipResponseWriter{ResponseWriter: original, cm: cm}
		c.Writer = gzw
		c.Header("Vary", "Accept-Encoding")

		c.Next()

		if err := gzw.finish(); err != nil {
			_ = c.Error(err)
		}
		c.Writer = original
	}
}

// clientAcceptsGzip checks if the client accepts gzip compression
func clientAcceptsGzip(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept-Encoding"), "gzip")
}

// shouldCompress checks if the content type should be compressed
func (cm *CompressionMiddleware) shouldCompress(contentType string) bool {
	for _, ct := range cm.config.ContentTypes {
		if strings.Contains(contentType, ct) {
			return true
		}
	}
	return false
}

// gzipResponseWriter buffers the body until it can decide whether to compress
type gzipResponseWriter struct {
	gin.ResponseWriter
	cm          *CompressionMiddleware
	buf         bytes.Buffer
	gz          *gzip.Writer
	passthrough bool
}

func (w *gzipResponseWriter) Write(data []byte) (int, error) {
	switch {
	case w.gz != nil:
		return w.gz.Write(data)
	case w.passthrough:
		return w.ResponseWriter.Write(data)
	}

	w.buf.Write(data)
	if w.buf.Len() < w.cm.config.MinSize {
		return len(data), nil
	}

	if !w.cm.shouldCompress(w.Header().Get("Content-Type")) {
		w.passthrough = true
		return len(data), w.flushBuffer(w.ResponseWriter)
	}

	w.startGzip()
	return len(data), w.flushBuffer(w.gz)
}

func (w *gzipResponseWriter) WriteString(s string) (int, error) {
	return w.Write([]byte(s))
}

// Written reports true once the handler produced a body, buffered or not
func (w *gzipResponseWriter) Written() bool {
	return w.buf.Len() > 0 || w.gz != nil || w.ResponseWriter.Written()
}

func (w *gzipResponseWriter) startGzip() {
	w.Header().Set("Content-Encoding", "gzip")
	w.Header().Del("Content-Length")

	w.gz = w.cm.pool.Get().(*gzip.Writer)
	w.gz.Reset(w.ResponseWriter)
}

func (w *gzipResponseWriter) flushBuffer(dst interface{ Write([]byte) (int, error) }) error {
	_, err := dst.Write(w.buf.Bytes())
	w.buf.Reset()
	return err
}

// finish writes a small buffered body as is, or closes the gzip stream
func (w *gzipResponseWriter) finish() error {
	if w.gz != nil {
		err := w.gz.Close()
		w.gz.Reset(nil)
		w.cm.pool.Put(w.gz)
		w.gz = nil
		w.passthrough = true
		return err
	}
	if w.buf.Len() > 0 {
		return w.flushBuffer(w.ResponseWriter)
	}
	return nil
}

// Flush pushes compressed data to the client
func (w *gzipResponseWriter) Flush() {
	if w.gz != nil {
		_ = w.gz.Flush()
	}
	w.ResponseWriter.Flush()
}
