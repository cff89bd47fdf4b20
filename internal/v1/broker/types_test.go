package broker

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidRoomID(t *testing.T) {
	require.True(t, ValidRoomID("ROOM1"))
	require.True(t, ValidRoomID("AB12"))
	require.False(t, ValidRoomID("AB"), "too short")
	require.False(t, ValidRoomID("room1"), "lowercase")
	require.False(t, ValidRoomID("ROOM-1"), "hyphen not allowed")
	require.False(t, ValidRoomID("TOOLONGROOMID123"), "too long")
}

func TestAnimalNamePool_MinimumSize(t *testing.T) {
	require.GreaterOrEqual(t, len(animalNames), 16)
}

func TestRandomAnimalName_PicksFromPool(t *testing.T) {
	in := make(map[string]bool, len(animalNames))
	for _, n := range animalNames {
		in[n] = true
	}
	for i := 0; i < 50; i++ {
		require.True(t, in[randomAnimalName()])
	}
}
