package gateway

import (
	"compress/gzip"
	"net/http"
)

// responseWriter wraps http.ResponseWriter to track the final status code
// and written byte count, and to swallow duplicate WriteHeader calls. The
// metrics middleware reads it after the handler returns, so it is the
// mechanism that makes metrics-end fire with the real outcome on every exit
// path.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	bytes      int
	written    bool
}

func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

// WriteHeader records the first status code; later calls are ignored.
func (rw *responseWriter) WriteHeader(statusCode int) {
	if rw.written {
		return
	}
	rw.statusCode = statusCode
	rw.ResponseWriter.WriteHeader(statusCode)
	rw.written = true
}

// Write writes the body, defaulting the status to 200 on first write.
func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.written {
		rw.WriteHeader(http.StatusOK)
	}
	n, err := rw.ResponseWriter.Write(b)
	rw.bytes += n
	return n, err
}

// Status returns the HTTP status code that was written.
func (rw *responseWriter) Status() int { return rw.statusCode }

// BytesWritten returns the payload size sent so far.
func (rw *responseWriter) BytesWritten() int { return rw.bytes }

// gzipWriter routes body writes through a gzip stream while header writes
// pass straight through.
type gzipWriter struct {
	http.ResponseWriter
	gz *gzip.Writer
}

func (gw *gzipWriter) Write(b []byte) (int, error) {
	return gw.gz.Write(b)
}
