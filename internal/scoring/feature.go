package scoring

import (
	"strconv"

	"github.com/shopspring/decimal"

	apperrors "github.com/BVG-Design/brokercompare-sub001/internal/errors"
)

const (
	MinScore = 1
	MaxScore = 10
)

// Boost multiplies a feature's score by the degree of AI-native automation.
type Boost float64

const (
	BoostNone     Boost = 1.0
	BoostAssisted Boost = 1.2
	BoostNative   Boost = 1.5
)

func (b Boost) Valid() bool {
	switch b {
	case BoostNone, BoostAssisted, BoostNative:
		return true
	}
	return false
}

func (b Boost) String() string {
	switch b {
	case BoostNone:
		return "none"
	case BoostAssisted:
		return "assisted"
	case BoostNative:
		return "native"
	}
	return strconv.FormatFloat(float64(b), 'f', -1, 64)
}

// Feature is one individually rated capability of a vendor's product.
type Feature struct {
	ID              string   `json:"id" yaml:"id"`
	Name            string   `json:"name" yaml:"name"`
	Category        Category `json:"category" yaml:"category"`
	Score           int      `json:"score" yaml:"score"`
	Boost           Boost    `json:"boost" yaml:"boost"`
	TopFeatureOrder *int     `json:"top_feature_order,omitempty" yaml:"top_feature_order,omitempty"`
	PublicNote      string   `json:"public_note,omitempty" yaml:"public_note,omitempty"`
	PrivateNote     string   `json:"private_note,omitempty" yaml:"private_note,omitempty"`
}

// NewFeature returns a feature with the editor defaults: score 1, no boost, no rank.
func NewFeature(id string, category Category) (Feature, error) {
	if !category.Valid() {
		return Feature{}, invalidCategory(string(category))
	}
	return Feature{
		ID:       id,
		Category: category,
		Score:    MinScore,
		Boost:    BoostNone,
	}, nil
}

// Effective is score multiplied by boost, kept exact.
func (f Feature) Effective() decimal.Decimal {
	return decimal.NewFromInt(int64(f.Score)).Mul(decimal.NewFromFloat(float64(f.Boost)))
}

// Ranked reports whether the feature carries a top-feature rank.
func (f Feature) Ranked() bool {
	return f.TopFeatureOrder != nil
}

// Validate checks the stored values against the scoring domain.
func (f Feature) Validate() error {
	if !f.Category.Valid() {
		return invalidCategory(string(f.Category))
	}
	if err := ValidateScore(f.Score); err != nil {
		return err
	}
	if err := ValidateBoost(f.Boost); err != nil {
		return err
	}
	if f.TopFeatureOrder != nil && *f.TopFeatureOrder < 1 {
		return invalidTopFeatureOrder(*f.TopFeatureOrder)
	}
	return nil
}

// Clone returns a copy that shares no pointers with f.
func (f Feature) Clone() Feature {
	if f.TopFeatureOrder != nil {
		order := *f.TopFeatureOrder
		f.TopFeatureOrder = &order
	}
	return f
}

// PublicFeature is the view of a feature shown on public comparison surfaces.
type PublicFeature struct {
	ID              string   `json:"id" yaml:"id"`
	Name            string   `json:"name" yaml:"name"`
	Category        Category `json:"category" yaml:"category"`
	Score           int      `json:"score" yaml:"score"`
	Boost           Boost    `json:"boost" yaml:"boost"`
	TopFeatureOrder *int     `json:"top_feature_order,omitempty" yaml:"top_feature_order,omitempty"`
	PublicNote      string   `json:"public_note,omitempty" yaml:"public_note,omitempty"`
}

// Public drops the editorial-only fields.
func (f Feature) Public() PublicFeature {
	c := f.Clone()
	return PublicFeature{
		ID:              c.ID,
		Name:            c.Name,
		Category:        c.Category,
		Score:           c.Score,
		Boost:           c.Boost,
		TopFeatureOrder: c.TopFeatureOrder,
		PublicNote:      c.PublicNote,
	}
}

// FeatureUpdate carries the fields of a partial update; nil fields are left alone.
// A TopFeatureOrder of 0 clears the rank.
type FeatureUpdate struct {
	Name            *string   `json:"name,omitempty"`
	Category        *Category `json:"category,omitempty"`
	Score           *int      `json:"score,omitempty"`
	Boost           *Boost    `json:"boost,omitempty"`
	TopFeatureOrder *int      `json:"top_feature_order,omitempty"`
	PublicNote      *string   `json:"public_note,omitempty"`
	PrivateNote     *string   `json:"private_note,omitempty"`
}

// Validate rejects out-of-domain values without coercing them.
func (u FeatureUpdate) Validate() error {
	if u.Category != nil && !u.Category.Valid() {
		return invalidCategory(string(*u.Category))
	}
	if u.Score != nil {
		if err := ValidateScore(*u.Score); err != nil {
			return err
		}
	}
	if u.Boost != nil {
		if err := ValidateBoost(*u.Boost); err != nil {
			return err
		}
	}
	if u.TopFeatureOrder != nil && *u.TopFeatureOrder < 0 {
		return invalidTopFeatureOrder(*u.TopFeatureOrder)
	}
	return nil
}

// Apply validates u and returns f with u merged in. f is returned unchanged on error.
func (u FeatureUpdate) Apply(f Feature) (Feature, error) {
	if err := u.Validate(); err != nil {
		return f, err
	}

	out := f.Clone()
	if u.Name != nil {
		out.Name = *u.Name
	}
	if u.Category != nil {
		out.Category = *u.Category
	}
	if u.Score != nil {
		out.Score = *u.Score
	}
	if u.Boost != nil {
		out.Boost = *u.Boost
	}
	if u.TopFeatureOrder != nil {
		if *u.TopFeatureOrder == 0 {
			out.TopFeatureOrder = nil
		} else {
			order := *u.TopFeatureOrder
			out.TopFeatureOrder = &order
		}
	}
	if u.PublicNote != nil {
		out.PublicNote = *u.PublicNote
	}
	if u.PrivateNote != nil {
		out.PrivateNote = *u.PrivateNote
	}
	return out, nil
}

// ValidateScore rejects scores outside 1..10.
func ValidateScore(score int) error {
	if score < MinScore || score > MaxScore {
		return apperrors.NewValidationError(apperrors.CodeInvalidScoreRange,
			"score must be between 1 and 10", map[string]string{"score": strconv.Itoa(score)})
	}
	return nil
}

// ValidateBoost rejects any multiplier other than 1.0, 1.2 or 1.5.
func ValidateBoost(b Boost) error {
	if !b.Valid() {
		return apperrors.NewValidationError(apperrors.CodeInvalidBoostValue,
			"boost must be one of 1.0, 1.2, 1.5", map[string]string{"boost": b.String()})
	}
	return nil
}

func invalidTopFeatureOrder(order int) error {
	return apperrors.NewValidationError(apperrors.CodeInvalidTopFeatureOrder,
		"top feature order must be a positive integer", map[string]string{"top_feature_order": strconv.Itoa(order)})
}
