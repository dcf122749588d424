package gamification

// levelThresholds[n] is the total XP required to reach level n+1. The
// curve is triangular so each level costs 100 XP more than the last.
func xpForLevel(level int) int {
	if level <= 1 {
		return 0
	}
	n := level - 1
	return 100 * n * (n + 1) / 2
}

// LevelFor maps a total XP amount to a level. Pure, no ceiling.
func LevelFor(totalXP int) int {
	level := 1
	for totalXP >= xpForLevel(level+1) {
		level++
	}
	return level
}

// XPToNextLevel reports how much XP is still missing for the next
// level given the current total.
func XPToNextLevel(totalXP int) int {
	return xpForLevel(LevelFor(totalXP)+1) - totalXP
}
