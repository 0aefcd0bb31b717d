package json

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalStringHasNoTrailingNewline(t *testing.T) {
	s, err := MarshalString(map[string]string{"firmware": "1.2<3"})
	require.NoError(t, err)
	assert.Equal(t, `{"firmware":"1.2<3"}`, s)
}

func TestMarshalStringCoercedTimestamps(t *testing.T) {
	created := time.Date(2021, 3, 4, 5, 6, 7, 0, time.UTC)
	meta := map[string]interface{}{
		"creationDate":    &created,
		"deprecated":      false,
		"deprecationDate": (*time.Time)(nil),
	}

	s, err := MarshalStringCoerced(meta)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, Unmarshal([]byte(s), &decoded))
	assert.Equal(t, "2021-03-04 05:06:07+00:00", decoded["creationDate"])
	assert.Equal(t, false, decoded["deprecated"])
	assert.Nil(t, decoded["deprecationDate"])
}

func TestCoerceNested(t *testing.T) {
	ts := time.Date(2020, 1, 1, 0, 0, 0, 500000000, time.UTC)
	got := Coerce(map[string]interface{}{
		"list":    []time.Time{ts},
		"timeout": 3 * time.Second,
		"count":   int64(2),
	})

	m := got.(map[string]interface{})
	assert.Equal(t, []interface{}{"2020-01-01 00:00:00.5+00:00"}, m["list"])
	assert.Equal(t, "3s", m["timeout"])
	assert.Equal(t, int64(2), m["count"])
}

func TestLinesEncoder(t *testing.T) {
	var buf bytes.Buffer
	enc := NewLinesEncoder(&buf)
	require.NoError(t, enc.Encode(map[string]string{"thing_name": "a"}))
	require.NoError(t, enc.Encode(map[string]string{"thing_name": "b"}))

	assert.Equal(t, "{\"thing_name\":\"a\"}\n{\"thing_name\":\"b\"}\n", buf.String())
	assert.Equal(t, int64(2), enc.Count())
}
