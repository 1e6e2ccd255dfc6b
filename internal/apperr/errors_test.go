package apperr

import (
	"encoding/json"
	"errors"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorAggregation(t *testing.T) {
	agg := New(KindIO, "Scan failed").WithAction(ActionPrepareCacheRetry, "Retry")
	assert.Nil(t, Collect(agg))

	agg.Sub(nil)
	agg.Sub(Wrap(KindIO, "Error reading file", fs.ErrPermission).WithInfo("a.md"))
	agg.Sub(New(KindMalformed, "Parsing error").WithInfo("b.md"))

	got := Collect(agg)
	require.NotNil(t, got)
	assert.Len(t, got.Subs, 2)
	assert.True(t, errors.Is(got, fs.ErrPermission))
	assert.Contains(t, got.Error(), "a.md")
	assert.Contains(t, got.Error(), "Parsing error")
}

func TestErrorSentinels(t *testing.T) {
	var err error = New(KindNotFound, "Schema not found")
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrConflict))

	conflict := New(KindIO, "File changed on disk").WithAction(ActionFileSaveRetryForced, "Overwrite")
	assert.True(t, errors.Is(conflict, ErrConflict))

	e, ok := As(err)
	require.True(t, ok)
	assert.Equal(t, "Schema not found", e.Title)
}

func TestErrorJSON(t *testing.T) {
	e := New(KindMalformed, "Parsing error").
		WithInfo("Metadata was not parsed correctly").
		WithAction(ActionFileReadRetry, "Retry")
	data, err := json.Marshal(e)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"kind": "malformed",
		"title": "Parsing error",
		"info": "Metadata was not parsed correctly",
		"actionCode": "FileReadRetry",
		"actionLabel": "Retry"
	}`, string(data))
}
