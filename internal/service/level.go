package service

import "math"

// Cumulative XP required to reach levels 1..5. Levels above the seed
// extend the triangular progression: level N costs N more XP than N-1.
var seededLevelThresholds = []int{1, 3, 6, 10, 15}

// XPForLevel returns the cumulative XP needed to reach level.
func XPForLevel(level int) int {
	if level <= 0 {
		return 0
	}
	if level <= len(seededLevelThresholds) {
		return seededLevelThresholds[level-1]
	}
	total := seededLevelThresholds[len(seededLevelThresholds)-1]
	for l := len(seededLevelThresholds) + 1; l <= level; l++ {
		total += l
	}
	return total
}

// LevelForXP returns the highest level whose threshold is <= xp, never below 1.
func LevelForXP(xp int) int {
	level := 1
	for level < len(seededLevelThresholds) && seededLevelThresholds[level] <= xp {
		level++
	}
	if level < len(seededLevelThresholds) {
		return level
	}
	next := seededLevelThresholds[level-1] + level + 1
	for next <= xp {
		level++
		next += level + 1
	}
	return level
}

type NextLevelInfo struct {
	TotalXP            int `json:"totalXp"`
	CurrentLevel       int `json:"currentLevel"`
	NextLevel          int `json:"nextLevel"`
	XPForCurrentLevel  int `json:"xpForCurrentLevel"`
	XPForNextLevel     int `json:"xpForNextLevel"`
	XPNeeded           int `json:"xpNeeded"`
	ProgressPercentage int `json:"progressPercentage"`
}

// BuildNextLevelInfo describes the distance from totalXP to the next threshold.
// Below the level 1 threshold the next target is level 1 itself.
func BuildNextLevelInfo(totalXP int) NextLevelInfo {
	info := NextLevelInfo{
		TotalXP:      totalXP,
		CurrentLevel: LevelForXP(totalXP),
	}

	if totalXP < XPForLevel(1) {
		info.NextLevel = 1
		info.XPForCurrentLevel = 0
	} else {
		info.NextLevel = info.CurrentLevel + 1
		info.XPForCurrentLevel = XPForLevel(info.CurrentLevel)
	}
	info.XPForNextLevel = XPForLevel(info.NextLevel)
	info.XPNeeded = info.XPForNextLevel - totalXP

	span := info.XPForNextLevel - info.XPForCurrentLevel
	pct := math.Round(100 * float64(totalXP-info.XPForCurrentLevel) / float64(span))
	info.ProgressPercentage = int(math.Max(0, math.Min(100, pct)))
	return info
}
