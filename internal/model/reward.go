package model

// ChestCount is how many reward chests every user gets.
const ChestCount = 3

// RewardFor returns the fixed reward schedule for a chest number: every
// chest pays a base bonus of 3, and chest 3 carries an extra prize of 500.
// The schedule is domain policy, so it lives here as a pure function rather
// than as stored per-row defaults.
func RewardFor(chestNumber int) (bonus, extra float64) {
	bonus = 3
	if chestNumber == ChestCount {
		extra = 500
	}
	return bonus, extra
}

// ValidChestNumber reports whether n names one of the three chests.
func ValidChestNumber(n int) bool {
	return n >= 1 && n <= ChestCount
}
