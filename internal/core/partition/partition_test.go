package partition

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestFor_Determinism(t *testing.T) {
	id := uuid.NewString()
	want := For(id)
	for i := 0; i < 100; i++ {
		require.Equal(t, want, For(id))
	}
}

func TestFor_Range(t *testing.T) {
	inputs := []string{"", "a", uuid.Nil.String(), "0b5c6f1e-8a53-4c4f-9d0e-5f8ad2f7c001"}
	for _, s := range inputs {
		p := For(s)
		require.GreaterOrEqual(t, p, 0, s)
		require.Less(t, p, Count, s)
	}
}

func TestFor_Distribution(t *testing.T) {
	// 1000 random source ids over 256 partitions hit ~250 distinct ones.
	seen := make(map[int]struct{})
	for i := 0; i < 1000; i++ {
		seen[For(uuid.NewString())] = struct{}{}
	}
	require.GreaterOrEqual(t, len(seen), 100)
}
