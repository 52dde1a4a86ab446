// Copyright 2025 The pgr Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package compression encodes responses with brotli or gzip according to
// the request's Accept-Encoding header.
//
// Bodies shorter than the minimum size are sent as is. Responses with
// status 204, 206 or 304, HEAD requests and bodies that already carry a
// Content-Encoding are never compressed.
//
//	handler = compression.New(compression.WithMinSize(512))(handler)
package compression

import (
	"compress/gzip"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/andybalholm/brotli"
)

// DefaultMinSize is used without [WithMinSize].
const DefaultMinSize = 1024

// Option configures the middleware.
type Option func(*config)

type config struct {
	logger      *slog.Logger
	gzipLevel   int
	brotliLevel int
	minSize     int
	brotli      bool
	exclude     map[string]bool
}

// WithGzipLevel sets the gzip level.
func WithGzipLevel(level int) Option {
	return func(c *config) { c.gzipLevel = level }
}

// WithBrotliLevel sets the brotli level (0 to 11).
func WithBrotliLevel(level int) Option {
	return func(c *config) { c.brotliLevel = level }
}

// WithoutBrotli restricts the middleware to gzip.
func WithoutBrotli() Option {
	return func(c *config) { c.brotli = false }
}

// WithMinSize sets the smallest body that is compressed.
func WithMinSize(n int) Option {
	return func(c *config) { c.minSize = n }
}

// WithExcludePaths exempts exact paths.
func WithExcludePaths(paths ...string) Option {
	return func(c *config) {
		for _, p := range paths {
			c.exclude[p] = true
		}
	}
}

// WithLogger sets the logger for encoder errors.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) { c.logger = l }
}

// New returns the middleware.
func New(opts ...Option) func(http.Handler) http.Handler {
	cfg := &config{
		logger:      slog.Default(),
		gzipLevel:   gzip.DefaultCompression,
		brotliLevel: 4,
		minSize:     DefaultMinSize,
		brotli:      true,
		exclude:     make(map[string]bool),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	gzipPool := &sync.Pool{New: func() any {
		w, _ := gzip.NewWriterLevel(io.Discard, cfg.gzipLevel)
		return w
	}}
	brotliPool := &sync.Pool{New: func() any {
		return brotli.NewWriterLevel(io.Discard, cfg.brotliLevel)
	}}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodHead || cfg.exclude[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}
			encoding := chooseEncoding(r.Header.Get("Accept-Encoding"), cfg.brotli)
			if encoding == "" {
				next.ServeHTTP(w, r)
				return
			}

			pool := gzipPool
			if encoding == "br" {
				pool = brotliPool
			}
			cw := &compressWriter{
				ResponseWriter: w,
				encoding:       encoding,
				pool:           pool,
				minSize:        cfg.minSize,
			}
			next.ServeHTTP(cw, r)
			if err := cw.finish(); err != nil {
				cfg.logger.Error("compression finalization failed", "encoding", encoding, "error", err)
			}
		})
	}
}

type encoder interface {
	io.WriteCloser
	Reset(io.Writer)
}

// compressWriter buffers up to minSize bytes before choosing between the
// encoder and the plain writer.
type compressWriter struct {
	http.ResponseWriter
	encoding string
	pool     *sync.Pool
	minSize  int

	status      int
	buf         []byte
	enc         encoder
	decided     bool
	compress    bool
	wroteHeader bool
}

func (cw *compressWriter) WriteHeader(code int) {
	if cw.wroteHeader || cw.status != 0 {
		return
	}
	cw.status = code
	h := cw.Header()
	if skipStatus(code) || h.Get("Content-Encoding") != "" || skipContentType(h.Get("Content-Type")) {
		cw.decided = true
		cw.sendHeader()
	}
}

func (cw *compressWriter) Write(p []byte) (int, error) {
	if cw.status == 0 {
		cw.WriteHeader(http.StatusOK)
	}
	if cw.decided {
		if cw.compress {
			return cw.enc.Write(p)
		}
		return cw.ResponseWriter.Write(p)
	}

	cw.buf = append(cw.buf, p...)
	if len(cw.buf) >= cw.minSize {
		if err := cw.decide(true); err != nil {
			return 0, err
		}
	}
	return len(p), nil
}

func (cw *compressWriter) decide(compress bool) error {
	cw.decided = true
	cw.compress = compress
	if compress {
		h := cw.Header()
		h.Del("Content-Length")
		h.Set("Content-Encoding", cw.encoding)
		h.Add("Vary", "Accept-Encoding")
		cw.enc = cw.pool.Get().(encoder)
		cw.enc.Reset(cw.ResponseWriter)
	}
	cw.sendHeader()

	if len(cw.buf) == 0 {
		return nil
	}
	var err error
	if compress {
		_, err = cw.enc.Write(cw.buf)
	} else {
		_, err = cw.ResponseWriter.Write(cw.buf)
	}
	cw.buf = nil
	return err
}

func (cw *compressWriter) sendHeader() {
	if cw.wroteHeader {
		return
	}
	cw.wroteHeader = true
	if cw.status == 0 {
		cw.status = http.StatusOK
	}
	cw.ResponseWriter.WriteHeader(cw.status)
}

func (cw *compressWriter) finish() error {
	if !cw.decided {
		if cw.status == 0 {
			return nil
		}
		return cw.decide(false)
	}
	if !cw.compress {
		return nil
	}
	err := cw.enc.Close()
	cw.enc.Reset(io.Discard)
	cw.pool.Put(cw.enc)
	cw.enc = nil
	return err
}

// Flush sends buffered bytes. A pending decision is made in favor of
// compression.
func (cw *compressWriter) Flush() {
	if !cw.decided {
		if cw.status == 0 {
			cw.status = http.StatusOK
		}
		_ = cw.decide(true)
	}
	if f, ok := cw.enc.(interface{ Flush() error }); ok && cw.compress {
		_ = f.Flush()
	}
	if f, ok := cw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap returns the underlying writer.
func (cw *compressWriter) Unwrap() http.ResponseWriter { return cw.ResponseWriter }

func skipStatus(code int) bool {
	return code < http.StatusOK ||
		code == http.StatusNoContent ||
		code == http.StatusPartialContent ||
		code == http.StatusNotModified
}

func skipContentType(ct string) bool {
	ct = strings.ToLower(ct)
	return strings.HasPrefix(ct, "text/event-stream") ||
		strings.HasPrefix(ct, "application/octet-stream") ||
		strings.HasPrefix(ct, "application/grpc")
}

// chooseEncoding picks br or gzip by q-value; br wins ties.
func chooseEncoding(accept string, allowBrotli bool) string {
	if accept == "" {
		return ""
	}
	brQ, gzipQ := -1.0, -1.0
	for _, part := range strings.Split(strings.ToLower(accept), ",") {
		name, params, _ := strings.Cut(strings.TrimSpace(part), ";")
		q := 1.0
		if v, ok := strings.CutPrefix(strings.TrimSpace(params), "q="); ok {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				q = f
			}
		}
		switch strings.TrimSpace(name) {
		case "br":
			brQ = q
		case "gzip":
			gzipQ = q
		case "*":
			if brQ < 0 {
				brQ = q
			}
			if gzipQ < 0 {
				gzipQ = q
			}
		}
	}
	if allowBrotli && brQ > 0 && brQ >= gzipQ {
		return "br"
	}
	if gzipQ > 0 {
		return "gzip"
	}
	return ""
}
