package broker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFrameBucket_AllowsUpToMax(t *testing.T) {
	b := newFrameBucket(10*time.Second, 60)
	now := time.Now()

	for i := 0; i < 60; i++ {
		require.True(t, b.allow(now), "message %d should be accepted", i+1)
	}
	require.False(t, b.allow(now), "61st message in window must be rejected")
}

func TestFrameBucket_ResetsAfterWindow(t *testing.T) {
	b := newFrameBucket(10*time.Millisecond, 1)
	now := time.Now()

	require.True(t, b.allow(now))
	require.False(t, b.allow(now))

	require.True(t, b.allow(now.Add(11*time.Millisecond)))
}
