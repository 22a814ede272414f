package sink

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/syntrixbase/intelsync/internal/feed"
)

func TestMemorySink_Idempotent(t *testing.T) {
	ctx := context.Background()
	s := NewMemorySink()

	ind := feed.Indicator{ID: "1", Marker: "a"}
	require.NoError(t, s.Append(ctx, ind))
	assert.ErrorIs(t, s.Append(ctx, ind), ErrDuplicate)
	require.NoError(t, s.Append(ctx, feed.Indicator{ID: "2", Marker: "b"}))

	assert.Equal(t, 2, s.Len())
	assert.Equal(t, []string{"1", "2"}, s.IDs())
	assert.NoError(t, s.Close(ctx))
}
