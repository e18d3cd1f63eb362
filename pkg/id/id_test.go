package id

import (
	"testing"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTraceIDFrom(t *testing.T) {
	a := TraceIDFrom("liquidate-GOLD-alice-1")
	b := TraceIDFrom("liquidate-GOLD-alice-1")
	c := TraceIDFrom("liquidate-GOLD-alice-2")

	assert.Equal(t, a, b, "same input maps to the same id")
	assert.NotEqual(t, a, c)

	parsed, err := uuid.FromString(a)
	require.Nil(t, err)
	assert.NotEqual(t, uuid.Nil, parsed)
}

func TestGenTraceID(t *testing.T) {
	a := GenTraceID()
	b := GenTraceID()
	assert.NotEqual(t, a, b)

	_, err := uuid.FromString(a)
	require.Nil(t, err)
}
