// Package reputation maps a user's accumulated karma to a display rank.
package reputation

// Rank is a named reputation tier.
type Rank string

const (
	RankNewcomer    Rank = "newcomer"
	RankContributor Rank = "contributor"
	RankExpert      Rank = "expert"
	RankVeteran     Rank = "veteran"
	RankLegend      Rank = "legend"
)

// RankFor returns the rank for a karma total. Thresholds are inclusive lower
// bounds; negative karma stays at newcomer.
func RankFor(karma int) Rank {
	switch {
	case karma >= 5000:
		return RankLegend
	case karma >= 1000:
		return RankVeteran
	case karma >= 250:
		return RankExpert
	case karma >= 50:
		return RankContributor
	default:
		return RankNewcomer
	}
}
