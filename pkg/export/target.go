// Package export writes scanned rows as JSON lines to stdout, a local file or
// an S3 object, optionally compressed.
package export

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ajitpratap0/iotcore/pkg/errors"
)

// TargetKind selects where a sink writes.
type TargetKind string

const (
	TargetStdout TargetKind = "stdout"
	TargetFile   TargetKind = "file"
	TargetS3     TargetKind = "s3"
)

// Target is a parsed export destination.
type Target struct {
	Kind   TargetKind
	Path   string
	Bucket string
	Key    string
}

// ParseTarget accepts "-" (or empty) for stdout, s3://bucket/key, or a local path.
// An S3 key that is empty or ends in "/" is a prefix; see IsPrefix.
func ParseTarget(raw string) (Target, error) {
	raw = strings.TrimSpace(raw)
	switch {
	case raw == "" || raw == "-":
		return Target{Kind: TargetStdout}, nil
	case strings.HasPrefix(raw, "s3://"):
		bucket, key, found := strings.Cut(strings.TrimPrefix(raw, "s3://"), "/")
		if bucket == "" || !found {
			return Target{}, errors.Newf(errors.ErrorTypeConfig, "invalid S3 target %q, expected s3://bucket/key", raw)
		}
		return Target{Kind: TargetS3, Bucket: bucket, Key: key}, nil
	default:
		return Target{Kind: TargetFile, Path: raw}, nil
	}
}

// IsPrefix reports whether an S3 target names a key prefix rather than an object.
func (t Target) IsPrefix() bool {
	return t.Kind == TargetS3 && (t.Key == "" || strings.HasSuffix(t.Key, "/"))
}

// objectName generates a unique object name for prefix targets
func objectName(ext string) string {
	return "iotcore-" + time.Now().UTC().Format("20060102T150405Z") + "-" + uuid.NewString() + ".jsonl" + ext
}

func (t Target) String() string {
	switch t.Kind {
	case TargetS3:
		return "s3://" + t.Bucket + "/" + t.Key
	case TargetFile:
		return t.Path
	default:
		return "-"
	}
}
