package scoring

import (
	"cmp"
	"slices"

	"github.com/samber/lo"
)

// TopFeatures returns the ranked features sorted ascending by rank.
// Equal ranks keep their insertion order.
func TopFeatures(features []Feature) []Feature {
	ranked := lo.FilterMap(features, func(f Feature, _ int) (Feature, bool) {
		return f.Clone(), f.Ranked()
	})

	slices.SortStableFunc(ranked, func(a, b Feature) int {
		return cmp.Compare(*a.TopFeatureOrder, *b.TopFeatureOrder)
	})
	return ranked
}
