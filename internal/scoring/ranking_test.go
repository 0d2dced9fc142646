package scoring

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopFeatures(t *testing.T) {
	features := []Feature{
		{ID: "a", TopFeatureOrder: intPtr(3)},
		{ID: "b"},
		{ID: "c", TopFeatureOrder: intPtr(1)},
		{ID: "d", TopFeatureOrder: intPtr(3)},
		{ID: "e", TopFeatureOrder: intPtr(2)},
	}

	top := TopFeatures(features)
	require.Len(t, top, 4)

	ids := make([]string, len(top))
	for i, f := range top {
		ids[i] = f.ID
	}
	// a and d share rank 3 and keep insertion order
	assert.Equal(t, []string{"c", "e", "a", "d"}, ids)
}

func TestTopFeatures_NoneRanked(t *testing.T) {
	assert.Empty(t, TopFeatures([]Feature{{ID: "a"}, {ID: "b"}}))
	assert.Empty(t, TopFeatures(nil))
}

func TestTopFeatures_DoesNotAliasInput(t *testing.T) {
	features := []Feature{{ID: "a", TopFeatureOrder: intPtr(1)}}
	top := TopFeatures(features)
	*top[0].TopFeatureOrder = 9

	assert.Equal(t, 1, *features[0].TopFeatureOrder)
}

func TestTopFeatures_ExtremeRanks(t *testing.T) {
	features := []Feature{
		{ID: "max", TopFeatureOrder: intPtr(math.MaxInt)},
		{ID: "min", TopFeatureOrder: intPtr(math.MinInt)},
		{ID: "one", TopFeatureOrder: intPtr(1)},
	}

	top := TopFeatures(features)
	require.Len(t, top, 3)
	assert.Equal(t, "min", top[0].ID)
	assert.Equal(t, "one", top[1].ID)
	assert.Equal(t, "max", top[2].ID)
}
