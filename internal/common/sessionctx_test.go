package common

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFormKeyPrefersOwner(t *testing.T) {
	ctx := context.Background()
	_, ok := FormKey(ctx, "b2b")
	require.False(t, ok)

	ctx = WithSessionKey(ctx, "sess")
	key, ok := FormKey(ctx, "b2b")
	require.True(t, ok)
	require.Equal(t, "sess:b2b", key)

	key, ok = FormKey(WithOwnerKey(context.Background(), "csrf:abc"), "b2b")
	require.True(t, ok)
	require.Equal(t, "csrf:abc:b2b", key)
}
