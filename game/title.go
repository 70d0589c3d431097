package game

// Winter titles, highest first.
const (
	TitleIceEmperor     = "Ice Emperor"
	TitleFrozenWarrior  = "Frozen Warrior"
	TitleWinterGuardian = "Winter Guardian"
	TitleFrostWalker    = "Frost Walker"
	TitleIceApprentice  = "Ice Apprentice"
	TitleFrozenRecruit  = "Frozen Recruit"
)

// TitleFor maps a score and streak to a winter title. The table is evaluated
// top-down and the first row whose thresholds both hold wins; the Ice
// Apprentice row checks score alone.
func TitleFor(score, streak int) string {
	switch {
	case streak >= 30 && score >= 1000:
		return TitleIceEmperor
	case streak >= 21 && score >= 700:
		return TitleFrozenWarrior
	case streak >= 14 && score >= 500:
		return TitleWinterGuardian
	case streak >= 7 && score >= 200:
		return TitleFrostWalker
	case score >= 100:
		return TitleIceApprentice
	default:
		return TitleFrozenRecruit
	}
}
