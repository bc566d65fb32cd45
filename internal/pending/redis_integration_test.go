//go:build integration

package pending

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hookrelay/internal/testutil"
)

func TestRedisStore_AppendDrain(t *testing.T) {
	ctx := context.Background()
	s := NewRedisStore(testutil.Redis(t), "test:pending", 3)

	for i := 0; i < 5; i++ {
		require.NoError(t, s.Append(ctx, item(i)))
	}

	n, err := s.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	items, err := s.Drain(ctx)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "msg 2", items[0].Title)
	assert.Equal(t, []string{"https://hooks.example.com/a"}, items[0].DestinationURLs)

	n, err = s.Len(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRedisStore_RequeueGoesAhead(t *testing.T) {
	ctx := context.Background()
	s := NewRedisStore(testutil.Redis(t), "test:pending:requeue", 10)

	require.NoError(t, s.Append(ctx, item(0)))
	require.NoError(t, s.Append(ctx, item(1)))
	drained, err := s.Drain(ctx)
	require.NoError(t, err)

	require.NoError(t, s.Append(ctx, item(2)))
	require.NoError(t, s.Requeue(ctx, drained))

	items, err := s.Drain(ctx)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, []string{"msg 0", "msg 1", "msg 2"}, []string{items[0].Title, items[1].Title, items[2].Title})
}
