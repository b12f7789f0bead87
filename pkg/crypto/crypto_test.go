package crypto

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRandIntn(t *testing.T) {
	for i := 0; i < 1000; i++ {
		v := RandIntn(10)
		require.GreaterOrEqual(t, v, 0)
		require.Less(t, v, 10)
	}
}

func TestSeededIntn(t *testing.T) {
	for i := 0; i < 100; i++ {
		seed := fmt.Sprintf("seed-%d", i)
		v := SeededIntn(seed, 7)
		require.GreaterOrEqual(t, v, 0)
		require.Less(t, v, 7)
		require.Equal(t, v, SeededIntn(seed, 7))
	}

	require.Panics(t, func() { SeededIntn("seed", 0) })
}
