package memo

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoRunsOncePerKey(t *testing.T) {
	c, err := New(4)
	require.NoError(t, err)

	calls := 0
	fn := func() (any, error) {
		calls++
		return calls * 10, nil
	}
	v, cached, err := c.Do("a", fn)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, 10, v)

	v, cached, err = c.Do("a", fn)
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, 10, v)
	assert.Equal(t, 1, calls)

	hits, misses := c.Stats()
	assert.Equal(t, 1, hits)
	assert.Equal(t, 1, misses)
}

func TestDoDoesNotCacheErrors(t *testing.T) {
	c, err := New(4)
	require.NoError(t, err)
	boom := errors.New("boom")
	calls := 0
	_, _, err = c.Do("k", func() (any, error) { calls++; return nil, boom })
	assert.ErrorIs(t, err, boom)
	_, _, err = c.Do("k", func() (any, error) { calls++; return "ok", nil })
	assert.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, 1, c.Len())
}

func TestEviction(t *testing.T) {
	c, err := New(2)
	require.NoError(t, err)
	for _, k := range []string{"a", "b", "c"} {
		_, _, err := c.Do(k, func() (any, error) { return k, nil })
		require.NoError(t, err)
	}
	assert.Equal(t, 2, c.Len())
	_, cached, _ := c.Do("a", func() (any, error) { return "a2", nil })
	assert.False(t, cached)

	c.Purge()
	assert.Equal(t, 0, c.Len())
}

func TestKey(t *testing.T) {
	a := Key("ds", "item", "tx", []string{"x"}, 0.5)
	assert.Equal(t, a, Key("ds", "item", "tx", []string{"x"}, 0.5))
	assert.NotEqual(t, a, Key("ds", "item", "tx", []string{"x"}, 0.6))
	assert.NotEqual(t, a, Key("ds", "item", "tx", nil, 0.5))
	assert.NotEqual(t, Key("ab", "c"), Key("a", "bc"))
}
