package server

import (
	"compress/gzip"
	"net/http"

	"github.com/klauspost/compress/gzhttp"
)

// compressMinSize is the smallest response worth compressing.
const compressMinSize = 1024

// newCompressionHandler wraps an HTTP handler with gzip/zstd compression middleware.
func newCompressionHandler(h http.Handler) http.Handler {
	wrapper, err := gzhttp.NewWrapper(
		gzhttp.MinSize(compressMinSize),
		gzhttp.CompressionLevel(gzip.DefaultCompression),
	)
	if err != nil {
		return h
	}
	return wrapper(h)
}
