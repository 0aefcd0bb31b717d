package export

import (
	"context"
	"io"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ajitpratap0/iotcore/pkg/compression"
	"github.com/ajitpratap0/iotcore/pkg/config"
	"github.com/ajitpratap0/iotcore/pkg/connector/core"
	"github.com/ajitpratap0/iotcore/pkg/errors"
	"github.com/ajitpratap0/iotcore/pkg/json"
	"github.com/ajitpratap0/iotcore/pkg/logger"
)

// Option customizes a Sink.
type Option func(*Sink)

// WithUploader sets the uploader used for s3:// targets.
func WithUploader(u Uploader) Option {
	return func(s *Sink) { s.uploader = u }
}

// WithStdout replaces os.Stdout for "-" targets.
func WithStdout(w io.Writer) Option {
	return func(s *Sink) { s.stdout = w }
}

// WithLogger sets the sink logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Sink) { s.logger = l }
}

// Sink encodes rows as JSON lines into a possibly compressed destination.
// A Sink is not safe for concurrent use.
type Sink struct {
	target    Target
	algorithm compression.Algorithm
	logger    *zap.Logger
	stdout    io.Writer
	uploader  Uploader

	file       *os.File
	pipe       *io.PipeWriter
	compressor io.WriteCloser
	encoder    *json.LinesEncoder

	uploadDone chan struct{}
	uploadErr  error
	location   string

	started   time.Time
	closeOnce sync.Once
	closeErr  error
}

// Open parses cfg and prepares the destination. S3 targets need an uploader,
// either passed with WithUploader or built by the caller from NewUploader.
func Open(ctx context.Context, cfg config.ExportConfig, opts ...Option) (*Sink, error) {
	target, err := ParseTarget(cfg.Target)
	if err != nil {
		return nil, err
	}
	algorithm, err := compression.ParseAlgorithm(cfg.Compression)
	if err != nil {
		return nil, err
	}

	if target.IsPrefix() {
		target.Key += objectName(algorithm.Extension())
	}

	s := &Sink{
		target:    target,
		algorithm: algorithm,
		logger:    logger.Get(),
		stdout:    os.Stdout,
		started:   time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(zap.String("target", target.String()), zap.String("compression", string(algorithm)))

	var dst io.Writer
	switch target.Kind {
	case TargetStdout:
		dst = s.stdout
	case TargetFile:
		f, err := os.Create(target.Path)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to create export file").
				WithDetail("path", target.Path)
		}
		s.file = f
		dst = f
	case TargetS3:
		if s.uploader == nil {
			return nil, errors.New(errors.ErrorTypeConfig, "no S3 uploader configured")
		}
		pr, pw := io.Pipe()
		s.pipe = pw
		s.uploadDone = make(chan struct{})
		go func() {
			defer close(s.uploadDone)
			s.location, s.uploadErr = upload(ctx, s.uploader, target, algorithm.ContentEncoding(), pr)
			// unblock writers if the upload gave up early
			pr.CloseWithError(s.uploadErr)
		}()
		dst = pw
	}

	s.compressor, err = compression.NewWriter(dst, algorithm, compression.Default)
	if err != nil {
		s.abort(err)
		return nil, err
	}
	s.encoder = json.NewLinesEncoder(s.compressor)
	return s, nil
}

// Target returns the parsed destination
func (s *Sink) Target() Target {
	return s.target
}

// Rows returns the number of rows written so far
func (s *Sink) Rows() int64 {
	return s.encoder.Count()
}

// Location returns the uploaded object URL once an S3 sink is closed
func (s *Sink) Location() string {
	return s.location
}

// Write encodes one row.
func (s *Sink) Write(row core.Row) error {
	if err := s.encoder.Encode(map[string]interface{}(row)); err != nil {
		return errors.Wrap(err, errors.ErrorTypeData, "failed to write row").
			WithDetail("rows_written", s.encoder.Count())
	}
	return nil
}

// Copy drains it into the sink and returns the number of rows copied.
func (s *Sink) Copy(ctx context.Context, it core.RowIterator) (int64, error) {
	before := s.Rows()
	err := core.ForEach(ctx, it, s.Write)
	return s.Rows() - before, err
}

// Close flushes the compressor and finalizes the destination. For S3 targets
// it waits for the upload to finish.
func (s *Sink) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.finish()
		if s.closeErr != nil {
			s.logger.Error("export failed", zap.Error(s.closeErr), zap.Int64("rows", s.Rows()))
			return
		}
		s.logger.Info("export complete",
			zap.Int64("rows", s.Rows()),
			zap.String("location", s.location),
			zap.Duration("duration", time.Since(s.started)))
	})
	return s.closeErr
}

func (s *Sink) finish() error {
	if err := s.compressor.Close(); err != nil {
		wrapped := errors.Wrap(err, errors.ErrorTypeData, "failed to flush export stream")
		s.abort(wrapped)
		return wrapped
	}

	switch s.target.Kind {
	case TargetFile:
		if err := s.file.Close(); err != nil {
			return errors.Wrap(err, errors.ErrorTypeFile, "failed to close export file")
		}
	case TargetS3:
		_ = s.pipe.Close()
		<-s.uploadDone
		return s.uploadErr
	}
	return nil
}

func (s *Sink) abort(err error) {
	if s.file != nil {
		_ = s.file.Close()
	}
	if s.pipe != nil {
		_ = s.pipe.CloseWithError(err)
		<-s.uploadDone
	}
}
