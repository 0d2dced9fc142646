package scoring

import (
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// scorePlaces is the number of decimal places every published score carries.
const scorePlaces = 2

// CategoryScores maps every category to its score. Missing keys read as 0.
type CategoryScores map[Category]float64

// Clone returns an independent copy.
func (cs CategoryScores) Clone() CategoryScores {
	out := make(CategoryScores, len(cs))
	for k, v := range cs {
		out[k] = v
	}
	return out
}

// Round2 rounds half away from zero to 2 decimal places, on the decimal value of x.
func Round2(x float64) float64 {
	return decimal.NewFromFloat(x).Round(scorePlaces).InexactFloat64()
}

// ComputeCategoryScore is the mean of score*boost over the features in category,
// rounded to 2 places. A category without features scores exactly 0.
// The result is not capped: boosted features can push it above 10.
func ComputeCategoryScore(features []Feature, category Category) float64 {
	inCategory := lo.Filter(features, func(f Feature, _ int) bool {
		return f.Category == category
	})
	if len(inCategory) == 0 {
		return 0
	}

	sum := decimal.Zero
	for _, f := range inCategory {
		sum = sum.Add(f.Effective())
	}

	mean := sum.Div(decimal.NewFromInt(int64(len(inCategory))))
	return mean.Round(scorePlaces).InexactFloat64()
}

// ComputeCategoryScores scores all nine categories.
func ComputeCategoryScores(features []Feature) CategoryScores {
	scores := make(CategoryScores, len(categoryTable))
	for _, info := range categoryTable {
		scores[info.Key] = ComputeCategoryScore(features, info.Key)
	}
	return scores
}

// ComputeOverallScore is the weighted sum of category scores, rounded to 2 places.
// Keys outside the weight table are ignored.
func ComputeOverallScore(categoryScores CategoryScores) float64 {
	total := decimal.Zero
	for _, info := range categoryTable {
		score := decimal.NewFromFloat(categoryScores[info.Key])
		total = total.Add(score.Mul(decimal.NewFromFloat(info.Weight)))
	}
	return total.Round(scorePlaces).InexactFloat64()
}

// Result bundles the derived values of a feature set.
type Result struct {
	CategoryScores CategoryScores `json:"category_scores" yaml:"category_scores"`
	OverallScore   float64        `json:"overall_score" yaml:"overall_score"`
}

// Score runs the full pipeline over features.
func Score(features []Feature) Result {
	categoryScores := ComputeCategoryScores(features)
	return Result{
		CategoryScores: categoryScores,
		OverallScore:   ComputeOverallScore(categoryScores),
	}
}
