// Package json provides JSON serialization for row values backed by goccy/go-json.
package json

import (
	"bytes"
	"fmt"
	"io"
	"reflect"
	"sync"
	"time"

	gojson "github.com/goccy/go-json"
)

// TimeLayout renders timestamps embedded in JSON columns.
const TimeLayout = "2006-01-02 15:04:05.999999-07:00"

var bufferPool = sync.Pool{
	New: func() interface{} {
		return bytes.NewBuffer(make([]byte, 0, 4096))
	},
}

// Marshal is a drop-in replacement for json.Marshal
func Marshal(v interface{}) ([]byte, error) {
	return gojson.Marshal(v)
}

// Unmarshal is a drop-in replacement for json.Unmarshal
func Unmarshal(data []byte, v interface{}) error {
	return gojson.Unmarshal(data, v)
}

// MarshalString marshals v and returns it as a string, the shape jsonb columns take.
func MarshalString(v interface{}) (string, error) {
	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer bufferPool.Put(buf)

	enc := gojson.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	// Encode appends a newline
	return string(bytes.TrimRight(buf.Bytes(), "\n")), nil
}

// MarshalStringCoerced marshals v after replacing values JSON cannot represent
// natively (timestamps, durations, Stringers) with their string form.
func MarshalStringCoerced(v interface{}) (string, error) {
	return MarshalString(Coerce(v))
}

// Coerce walks maps and slices and converts non-primitive leaves to strings.
func Coerce(v interface{}) interface{} {
	switch t := v.(type) {
	case nil:
		return nil
	case string, bool, int, int32, int64, uint, uint32, uint64, float32, float64, gojson.Number:
		return t
	case time.Time:
		return t.Format(TimeLayout)
	case *time.Time:
		if t == nil {
			return nil
		}
		return t.Format(TimeLayout)
	case time.Duration:
		return t.String()
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			out[k] = Coerce(val)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, val := range t {
			out[i] = Coerce(val)
		}
		return out
	case fmt.Stringer:
		return t.String()
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr:
		if rv.IsNil() {
			return nil
		}
		return Coerce(rv.Elem().Interface())
	case reflect.Slice, reflect.Array:
		out := make([]interface{}, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			out[i] = Coerce(rv.Index(i).Interface())
		}
		return out
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return fmt.Sprint(v)
		}
		out := make(map[string]interface{}, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[iter.Key().String()] = Coerce(iter.Value().Interface())
		}
		return out
	case reflect.Bool, reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64, reflect.String:
		return v
	}
	return fmt.Sprint(v)
}

// LinesEncoder writes one JSON document per line.
type LinesEncoder struct {
	encoder *gojson.Encoder
	count   int64
}

// NewLinesEncoder creates a JSON lines encoder on w
func NewLinesEncoder(w io.Writer) *LinesEncoder {
	enc := gojson.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return &LinesEncoder{encoder: enc}
}

// Encode writes v followed by a newline
func (e *LinesEncoder) Encode(v interface{}) error {
	if err := e.encoder.Encode(v); err != nil {
		return err
	}
	e.count++
	return nil
}

// Count returns the number of documents written
func (e *LinesEncoder) Count() int64 {
	return e.count
}

// Valid reports whether data is a valid JSON document
func Valid(data []byte) bool {
	return gojson.Valid(data)
}
