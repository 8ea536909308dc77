package typing

// MilestoneStep is the progress increment at which announcements are made.
const MilestoneStep = 25

// Milestone reports the rounded progress percentage when it sits on a
// positive multiple of MilestoneStep.
func Milestone(cursor, length int) (int, bool) {
	if length <= 0 || cursor <= 0 {
		return 0, false
	}
	pct := (cursor*200 + length) / (2 * length)
	if pct == 0 || pct%MilestoneStep != 0 {
		return 0, false
	}
	return pct, true
}
