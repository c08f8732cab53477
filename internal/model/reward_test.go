package model

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRewardFor(t *testing.T) {
	for _, n := range []int{1, 2} {
		bonus, extra := RewardFor(n)
		require.EqualValues(t, 3, bonus)
		require.EqualValues(t, 0, extra)
	}

	bonus, extra := RewardFor(3)
	require.EqualValues(t, 3, bonus)
	require.EqualValues(t, 500, extra)
}

func TestValidChestNumber(t *testing.T) {
	require.False(t, ValidChestNumber(0))
	require.True(t, ValidChestNumber(1))
	require.True(t, ValidChestNumber(2))
	require.True(t, ValidChestNumber(3))
	require.False(t, ValidChestNumber(4))
	require.False(t, ValidChestNumber(-1))
}
