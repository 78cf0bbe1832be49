package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Name  string         `json:"name"`
	Count map[int]int    `json:"count"`
	Tags  []string       `json:"tags"`
	Extra map[string]any `json:"extra,omitempty"`
}

func TestMemory(t *testing.T) {
	ctx := context.Background()

	t.Run("round trip", func(t *testing.T) {
		m := NewMemory()
		in := payload{Name: "overview", Count: map[int]int{5: 2}, Tags: []string{"a"}}

		require.NoError(t, m.Set(ctx, "k", in, time.Minute))

		var out payload
		require.NoError(t, m.Get(ctx, "k", &out))
		assert.Equal(t, in, out)
	})

	t.Run("missing key", func(t *testing.T) {
		var out payload
		assert.ErrorIs(t, NewMemory().Get(ctx, "nope", &out), ErrMiss)
	})

	t.Run("expiry", func(t *testing.T) {
		now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
		m := NewMemory()
		m.now = func() time.Time { return now }

		require.NoError(t, m.Set(ctx, "k", "v", time.Minute))

		var out string
		require.NoError(t, m.Get(ctx, "k", &out))

		now = now.Add(time.Minute)
		assert.ErrorIs(t, m.Get(ctx, "k", &out), ErrMiss)
	})

	t.Run("close clears", func(t *testing.T) {
		m := NewMemory()
		require.NoError(t, m.Set(ctx, "k", 1, 0))
		require.NoError(t, m.Close())

		var out int
		assert.ErrorIs(t, m.Get(ctx, "k", &out), ErrMiss)
	})

	t.Run("unmarshalable value", func(t *testing.T) {
		assert.Error(t, NewMemory().Set(ctx, "k", make(chan int), time.Minute))
	})
}
