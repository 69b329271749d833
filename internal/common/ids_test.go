package common

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewULID(t *testing.T) {
	a, err := NewULID()
	require.NoError(t, err)
	b, err := NewULID()
	require.NoError(t, err)

	assert.Len(t, a, 26)
	assert.NotEqual(t, a, b)
	_, err = ulid.Parse(a)
	assert.NoError(t, err)
}

func TestNewToken(t *testing.T) {
	tok := NewToken("task")
	require.True(t, strings.HasPrefix(tok, "task-"))
	_, err := uuid.Parse(strings.TrimPrefix(tok, "task-"))
	assert.NoError(t, err)

	_, err = uuid.Parse(NewToken(""))
	assert.NoError(t, err)
}
