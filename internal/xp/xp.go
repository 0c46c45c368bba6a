// Package xp implements the leveling model for Grove.
//
// Levels are derived from a single cumulative XP total via a monotonic
// per-level cost table: advancing to each of levels 2 through 5 costs 100 XP,
// and every level after that costs 20 XP more than a flat 100 base
// (level 6 costs 120, level 7 costs 140, and so on).
//
// Everything in this package is a pure function of its inputs. LevelInfo is
// recomputed on every read and never persisted; only the raw XP total is
// stored (in the user profile).
package xp

import "math"

const (
	// BaseCost is the XP cost to advance one level in the early game.
	BaseCost = 100

	// CostStep is the additional per-level cost after FlatLevels.
	CostStep = 20

	// FlatLevels is the highest level still priced at BaseCost.
	FlatLevels = 5
)

// LevelInfo describes where an XP total falls in the level progression.
//
// IntoLevel and ToNext are float64 so fractional XP awards carry through
// without rounding; for integer totals all values are exact integers.
type LevelInfo struct {
	// Level is the current level, starting at 1.
	Level int

	// LevelStart is the cumulative XP required to reach Level.
	LevelStart int

	// ForLevel is the XP cost to advance from Level to Level+1.
	ForLevel int

	// IntoLevel is how much XP has been earned past LevelStart.
	IntoLevel float64

	// ToNext is the XP still needed to reach Level+1.
	ToNext float64

	// LevelEnd is the cumulative XP at which Level+1 begins.
	LevelEnd int
}

// Cost returns the XP required to advance from level-1 to level.
// Levels at or below 1 cost nothing.
func Cost(level int) int {
	if level <= 1 {
		return 0
	}
	if level <= FlatLevels {
		return BaseCost
	}
	return BaseCost + (level-FlatLevels)*CostStep
}

// Cumulative returns the total XP required to reach the given level
// from scratch. Cumulative(1) is 0.
func Cumulative(level int) int {
	total := 0
	for l := 2; l <= level; l++ {
		total += Cost(l)
	}
	return total
}

// FromTotal converts a cumulative XP total into a LevelInfo.
//
// Negative totals are clamped to zero. Non-finite totals (NaN, Inf) are
// also clamped to zero so the peel-off loop always terminates; the cost
// table itself is strictly positive above level 1, so any finite
// non-negative total terminates naturally.
func FromTotal(xpTotal float64) LevelInfo {
	if xpTotal < 0 || math.IsNaN(xpTotal) || math.IsInf(xpTotal, 0) {
		xpTotal = 0
	}

	level := 1
	remaining := xpTotal
	for {
		cost := Cost(level + 1)
		if cost <= 0 || remaining < float64(cost) {
			break
		}
		remaining -= float64(cost)
		level++
	}

	start := Cumulative(level)
	forLevel := Cost(level + 1)
	toNext := float64(forLevel) - remaining
	if toNext < 0 {
		toNext = 0
	}

	return LevelInfo{
		Level:      level,
		LevelStart: start,
		ForLevel:   forLevel,
		IntoLevel:  remaining,
		ToNext:     toNext,
		LevelEnd:   start + forLevel,
	}
}

// Progress returns the fraction of the current level completed, in [0, 1].
// A level with no further progression defined (ForLevel == 0) reports 1
// rather than dividing by zero.
func Progress(xpTotal float64) float64 {
	info := FromTotal(xpTotal)
	if info.ForLevel == 0 {
		return 1
	}
	p := info.IntoLevel / float64(info.ForLevel)
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}
