// Package performance provides response compression for rendered pages and
// HTMX fragments
package performance

import (
	"bytes"
	"compress/gzip"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/andybalholm/brotli"
)

// CompressionConfig configures compression behavior
type CompressionConfig struct {
	BrotliLevel       int // 0-11
	GzipLevel         int // 1-9
	MinSizeBytes      int
	PreferBrotli      bool
	CompressibleTypes []string
}

// DefaultCompressionConfig returns sensible defaults
func DefaultCompressionConfig() CompressionConfig {
	return CompressionConfig{
		BrotliLevel:  5,
		GzipLevel:    6,
		MinSizeBytes: 1024,
		PreferBrotli: true,
		CompressibleTypes: []string{
			"text/html",
			"text/css",
			"text/javascript",
			"application/javascript",
			"application/json",
			"text/plain",
			"image/svg+xml",
		},
	}
}

// CompressionMiddleware buffers responses and compresses them with brotli or
// gzip when the client accepts it
type CompressionMiddleware struct {
	config CompressionConfig
}

// NewCompressionMiddleware creates a new compression middleware
func NewCompressionMiddleware(config CompressionConfig) *CompressionMiddleware {
	return &CompressionMiddleware{config: config}
}

// responseBuffer holds the response until the handler returns
type responseBuffer struct {
	http.ResponseWriter
	buffer     bytes.Buffer
	statusCode int
}

func (rb *responseBuffer) WriteHeader(code int) {
	if rb.statusCode == 0 {
		rb.statusCode = code
	}
}

func (rb *responseBuffer) Write(p []byte) (int, error) {
	if rb.statusCode == 0 {
		rb.statusCode = http.StatusOK
	}
	return rb.buffer.Write(p)
}

// Handler returns the middleware handler function
func (cm *CompressionMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		encoding := cm.bestEncoding(r)
		if encoding == "" || r.Method == http.MethodHead {
			next.ServeHTTP(w, r)
			return
		}

		rb := &responseBuffer{ResponseWriter: w}
		next.ServeHTTP(rb, r)
		cm.finalize(w, rb, encoding)
	})
}

// bestEncoding picks br or gzip from Accept-Encoding
func (cm *CompressionMiddleware) bestEncoding(r *http.Request) string {
	encodings := parseAcceptEncoding(r.Header.Get("Accept-Encoding"))
	if cm.config.PreferBrotli && encodings["br"] > 0 {
		return "br"
	}
	if encodings["gzip"] > 0 {
		return "gzip"
	}
	if encodings["br"] > 0 {
		return "br"
	}
	return ""
}

// parseAcceptEncoding maps each coding to its quality value
func parseAcceptEncoding(header string) map[string]float64 {
	encodings := make(map[string]float64)
	for _, part := range strings.Split(header, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, params, _ := strings.Cut(part, ";")
		quality := 1.0
		if q, ok := strings.CutPrefix(strings.TrimSpace(params), "q="); ok {
			if v, err := strconv.ParseFloat(q, 64); err == nil {
				quality = v
			}
		}
		encodings[strings.TrimSpace(name)] = quality
	}
	return encodings
}

// finalize writes the buffered response, compressed when worthwhile
func (cm *CompressionMiddleware) finalize(w http.ResponseWriter, rb *responseBuffer, encoding string) {
	status := rb.statusCode
	if status == 0 {
		status = http.StatusOK
	}
	content := rb.buffer.Bytes()

	if len(content) < cm.config.MinSizeBytes ||
		w.Header().Get("Content-Encoding") != "" ||
		!cm.isCompressibleType(w.Header().Get("Content-Type")) {
		w.WriteHeader(status)
		_, _ = w.Write(content)
		return
	}

	compressed, err := cm.compress(content, encoding)
	if err != nil {
		w.WriteHeader(status)
		_, _ = w.Write(content)
		return
	}

	w.Header().Set("Content-Encoding", encoding)
	w.Header().Set("Content-Length", strconv.Itoa(len(compressed)))
	w.Header().Add("Vary", "Accept-Encoding")
	w.WriteHeader(status)
	_, _ = w.Write(compressed)
}

func (cm *CompressionMiddleware) compress(content []byte, encoding string) ([]byte, error) {
	var buf bytes.Buffer
	var writer io.WriteCloser
	if encoding == "br" {
		writer = brotli.NewWriterLevel(&buf, cm.config.BrotliLevel)
	} else {
		gz, err := gzip.NewWriterLevel(&buf, cm.config.GzipLevel)
		if err != nil {
			return nil, err
		}
		writer = gz
	}

	if _, err := writer.Write(content); err != nil {
		writer.Close()
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// isCompressibleType checks if the content type should be compressed
func (cm *CompressionMiddleware) isCompressibleType(contentType string) bool {
	if contentType == "" {
		return false
	}
	mainType := strings.TrimSpace(strings.ToLower(strings.Split(contentType, ";")[0]))
	for _, t := range cm.config.CompressibleTypes {
		if mainType == t {
			return true
		}
	}
	return false
}
