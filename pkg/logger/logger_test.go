package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestInitRejectsUnknownLevel(t *testing.T) {
	err := Init(Config{Level: "chatty"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}

func TestWithContextAddsQueryFields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	previous := Get()
	Set(zap.New(core))
	t.Cleanup(func() { Set(previous) })

	ctx := context.WithValue(context.Background(), QueryIDKey, "q-17")
	ctx = context.WithValue(ctx, TableKey, "iot_things")
	WithContext(ctx, nil).Warn("no shadow")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "q-17", fields["query_id"])
	assert.Equal(t, "iot_things", fields["table"])
}

func TestWithContextKeepsGivenLogger(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := zap.New(core).With(zap.String("connector", "iotcore"))

	WithContext(context.Background(), l).Info("page fetched")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "iotcore", fields["connector"])
	assert.NotContains(t, fields, "query_id")
	assert.NotContains(t, fields, "table")
}
