package domain

// Feature identifies a metered action for the usage ledger.
type Feature string

const (
	FeatureScan     Feature = "scan"
	FeatureHistory  Feature = "history"
	FeatureFavorite Feature = "favorite"
)

// UsageCounters holds the advisory, client-local counters tracked for a guest.
// Scans are listed for display; the scan count is only ever advanced through
// the authoritative consume operation, never by local increment.
type UsageCounters struct {
	Scans     int
	History   int
	Favorites int
}

// GuestLimits caps what an anonymous guest may do before being asked to
// register or upgrade. The limits are soft: they are enforced locally and
// carry no security weight.
type GuestLimits struct {
	MaxScans     int
	MaxHistory   int
	MaxFavorites int
}

// DefaultGuestLimits returns the product defaults.
func DefaultGuestLimits() GuestLimits {
	return GuestLimits{MaxScans: 5, MaxHistory: 5, MaxFavorites: 5}
}

// Limit returns the cap for the given feature, zero for unknown features.
func (g GuestLimits) Limit(f Feature) int {
	switch f {
	case FeatureScan:
		return g.MaxScans
	case FeatureHistory:
		return g.MaxHistory
	case FeatureFavorite:
		return g.MaxFavorites
	}
	return 0
}

// Used returns the current counter for the given feature.
func (c UsageCounters) Used(f Feature) int {
	switch f {
	case FeatureScan:
		return c.Scans
	case FeatureHistory:
		return c.History
	case FeatureFavorite:
		return c.Favorites
	}
	return 0
}
