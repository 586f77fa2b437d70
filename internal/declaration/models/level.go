package models

// Level thresholds on the major-unit amount.
const (
	levelTwoFrom   = 20
	levelThreeFrom = 200
	levelThreeUpTo = 1000

	MinLevel = 1
	MaxLevel = 4
)

// BandedLevel maps an amount in dinars to a severity level:
// below 20 is 1, below 200 is 2, up to 1000 included is 3, above is 4.
func BandedLevel(amountDT int64) int {
	switch {
	case amountDT < levelTwoFrom:
		return 1
	case amountDT < levelThreeFrom:
		return 2
	case amountDT <= levelThreeUpTo:
		return 3
	default:
		return 4
	}
}

// ComputeLevel is the server's own assessment. A recurrence is always critical.
func ComputeLevel(amountDT int64, recurrence bool) int {
	if recurrence {
		return MaxLevel
	}
	return BandedLevel(amountDT)
}

// ResolveLevel keeps the higher of the submitted level and the computed one:
// the server may escalate a submission, never downgrade it.
func ResolveLevel(submitted int, amountDT int64, recurrence bool) int {
	return max(submitted, ComputeLevel(amountDT, recurrence))
}
