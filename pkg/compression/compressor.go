// Package compression wraps the stream compressors used by the export sinks
// and by the CLI when it reads compressed input files.
//
// Supported algorithms:
//   - None: pass-through
//   - Gzip: klauspost/compress gzip, widely readable
//   - LZ4: frame format, fastest
//   - Zstd: best ratio
//
// Example:
//
//	w, err := compression.NewWriter(f, compression.Gzip, compression.Default)
//	if err != nil {
//	    return err
//	}
//	defer w.Close()
package compression

import (
	"io"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/ajitpratap0/iotcore/pkg/errors"
)

// Algorithm names a compression format.
type Algorithm string

const (
	// None writes data unchanged
	None Algorithm = "none"
	// Gzip represents gzip compression
	Gzip Algorithm = "gzip"
	// LZ4 represents lz4 frame compression
	LZ4 Algorithm = "lz4"
	// Zstd represents zstandard compression
	Zstd Algorithm = "zstd"
)

// Level trades speed for ratio.
type Level int

const (
	// Fastest prioritizes speed over compression ratio.
	Fastest Level = 1
	// Default balances speed and compression.
	Default Level = 5
	// Best maximizes compression ratio.
	Best Level = 9
)

// ParseAlgorithm accepts an algorithm name; the empty string means None.
func ParseAlgorithm(name string) (Algorithm, error) {
	switch a := Algorithm(strings.ToLower(strings.TrimSpace(name))); a {
	case "":
		return None, nil
	case None, Gzip, LZ4, Zstd:
		return a, nil
	default:
		return "", errors.Newf(errors.ErrorTypeConfig, "unsupported compression algorithm: %s", name)
	}
}

// Extension returns the file suffix conventionally used for a.
func (a Algorithm) Extension() string {
	switch a {
	case Gzip:
		return ".gz"
	case LZ4:
		return ".lz4"
	case Zstd:
		return ".zst"
	default:
		return ""
	}
}

// ForPath picks the algorithm from a file name suffix; unknown suffixes mean None.
func ForPath(path string) Algorithm {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz":
		return Gzip
	case ".lz4":
		return LZ4
	case ".zst":
		return Zstd
	default:
		return None
	}
}

// ContentEncoding returns the HTTP Content-Encoding value for a, if any.
func (a Algorithm) ContentEncoding() string {
	switch a {
	case Gzip:
		return "gzip"
	case Zstd:
		return "zstd"
	default:
		return ""
	}
}

// NewWriter returns a writer that compresses into dst. Closing it flushes the
// compressed stream; dst itself is not closed.
func NewWriter(dst io.Writer, algorithm Algorithm, level Level) (io.WriteCloser, error) {
	switch algorithm {
	case None, "":
		return nopCloser{dst}, nil
	case Gzip:
		w, err := gzip.NewWriterLevel(dst, mapGzipLevel(level))
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid gzip level")
		}
		return w, nil
	case LZ4:
		w := lz4.NewWriter(dst)
		if err := w.Apply(lz4.CompressionLevelOption(mapLZ4Level(level))); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid lz4 level")
		}
		return w, nil
	case Zstd:
		w, err := zstd.NewWriter(dst, zstd.WithEncoderLevel(mapZstdLevel(level)))
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid zstd options")
		}
		return w, nil
	default:
		return nil, errors.Newf(errors.ErrorTypeConfig, "unsupported compression algorithm: %s", algorithm)
	}
}

// NewReader returns a reader that decompresses src.
func NewReader(src io.Reader, algorithm Algorithm) (io.ReadCloser, error) {
	switch algorithm {
	case None, "":
		return io.NopCloser(src), nil
	case Gzip:
		r, err := gzip.NewReader(src)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeData, "invalid gzip stream")
		}
		return r, nil
	case LZ4:
		return io.NopCloser(lz4.NewReader(src)), nil
	case Zstd:
		d, err := zstd.NewReader(src)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeData, "invalid zstd stream")
		}
		return d.IOReadCloser(), nil
	default:
		return nil, errors.Newf(errors.ErrorTypeConfig, "unsupported compression algorithm: %s", algorithm)
	}
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }

// Helper functions to map compression levels

func mapGzipLevel(level Level) int {
	switch level {
	case Fastest:
		return gzip.BestSpeed
	case Best:
		return gzip.BestCompression
	default:
		return gzip.DefaultCompression
	}
}

func mapLZ4Level(level Level) lz4.CompressionLevel {
	switch level {
	case Fastest:
		return lz4.Fast
	case Best:
		return lz4.Level9
	default:
		return lz4.Level5
	}
}

func mapZstdLevel(level Level) zstd.EncoderLevel {
	switch level {
	case Fastest:
		return zstd.SpeedFastest
	case Best:
		return zstd.SpeedBestCompression
	default:
		return zstd.SpeedDefault
	}
}
