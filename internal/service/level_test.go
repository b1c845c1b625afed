package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestXPForLevel(t *testing.T) {
	want := map[int]int{0: 0, 1: 1, 2: 3, 3: 6, 4: 10, 5: 15, 6: 21, 7: 28, 10: 55}
	for level, xp := range want {
		assert.Equal(t, xp, XPForLevel(level), "level %d", level)
	}
}

func TestLevelForXP(t *testing.T) {
	cases := []struct{ xp, level int }{
		{0, 1}, {1, 1}, {2, 1}, {3, 2}, {5, 2}, {6, 3}, {9, 3}, {10, 4}, {14, 4}, {15, 5}, {20, 5}, {21, 6}, {55, 10},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.level, LevelForXP(tc.xp), "xp %d", tc.xp)
	}
}

func TestLevelForXPIsMonotonic(t *testing.T) {
	prev := LevelForXP(0)
	for xp := 1; xp <= 500; xp++ {
		cur := LevelForXP(xp)
		assert.GreaterOrEqual(t, cur, prev)
		prev = cur
	}
}

func TestLevelForXPMatchesThresholds(t *testing.T) {
	for level := 2; level <= 300; level++ {
		threshold := XPForLevel(level)
		assert.Equal(t, level, LevelForXP(threshold), "xp %d", threshold)
		assert.Equal(t, level-1, LevelForXP(threshold-1), "xp %d", threshold-1)
	}

	// large totals resolve without scanning every level from the bottom
	assert.Equal(t, 3000, LevelForXP(XPForLevel(3000)))
	assert.Equal(t, 2999, LevelForXP(XPForLevel(3000)-1))
}

func TestBuildNextLevelInfo(t *testing.T) {
	t.Run("below level 1 threshold", func(t *testing.T) {
		info := BuildNextLevelInfo(0)
		assert.Equal(t, NextLevelInfo{
			TotalXP:            0,
			CurrentLevel:       1,
			NextLevel:          1,
			XPForCurrentLevel:  0,
			XPForNextLevel:     1,
			XPNeeded:           1,
			ProgressPercentage: 0,
		}, info)
	})

	t.Run("mid level", func(t *testing.T) {
		info := BuildNextLevelInfo(4)
		assert.Equal(t, 2, info.CurrentLevel)
		assert.Equal(t, 3, info.NextLevel)
		assert.Equal(t, 2, info.XPNeeded)
		assert.Equal(t, 33, info.ProgressPercentage)
	})

	t.Run("exactly on threshold", func(t *testing.T) {
		info := BuildNextLevelInfo(15)
		assert.Equal(t, 5, info.CurrentLevel)
		assert.Equal(t, 6, info.XPNeeded)
		assert.Equal(t, 0, info.ProgressPercentage)
	})

	t.Run("progress stays within bounds", func(t *testing.T) {
		for xp := 0; xp < 200; xp++ {
			info := BuildNextLevelInfo(xp)
			assert.GreaterOrEqual(t, info.ProgressPercentage, 0)
			assert.LessOrEqual(t, info.ProgressPercentage, 100)
			assert.Positive(t, info.XPNeeded)
		}
	})
}
