package taxonomy

// Tier labels a severity band.
type Tier string

// Severity tiers, most severe first.
const (
	TierCritical Tier = "Critical"
	TierHigh     Tier = "High"
	TierMedium   Tier = "Medium"
)

// Severity bounds for the tiers.
const (
	CriticalSeverity = 0.8
	HighSeverity     = 0.6
)

// TierOf maps a severity in [0,1] to its tier.
func TierOf(severity float64) Tier {
	switch {
	case severity >= CriticalSeverity:
		return TierCritical
	case severity >= HighSeverity:
		return TierHigh
	default:
		return TierMedium
	}
}

// IsHigh reports whether severity is at least HighSeverity.
func IsHigh(severity float64) bool {
	return severity >= HighSeverity
}
