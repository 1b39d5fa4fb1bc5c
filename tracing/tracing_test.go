package tracing

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTracingFile(t *testing.T) {
	fname := filepath.Join(t.TempDir(), "span_test.txt")
	require.NoError(t, Init("workerfarm", "0.0.1", fname))

	_, span := StartSpan(context.Background(), "farm.task add", "PRODUCER")
	span.WithAttributes(map[string]string{"task.method": "add"}).WithInt("task.id", 1)
	span.AddEvent("dispatched")
	EndSpan(span, errors.New("boom"))

	data, err := os.ReadFile(fname)
	require.NoError(t, err)
	assert.Contains(t, string(data), "farm.task add")
}

func TestNilSpan(t *testing.T) {
	var span *Span
	assert.Nil(t, span.WithAttributes(map[string]string{"k": "v"}))
	span.SetStatus(nil)
	span.AddEvent("noop")
	EndSpan(span, nil)
}
