package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetRule(t *testing.T) {
	defer SetRule(DefaultRule)

	assert.NoError(t, SetRule("warn+:*"))
	assert.Error(t, SetRule("bogus:*"))
}

func TestNewContextid(t *testing.T) {
	ctx := NewContextid(context.Background())
	v, ok := ctx.Value(kCtxID).(string)
	assert.True(t, ok)
	assert.Len(t, v, 16)

	other := NewContextid(context.Background())
	assert.NotEqual(t, v, other.Value(kCtxID))
}
