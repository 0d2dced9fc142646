package assessment

import (
	"context"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/BVG-Design/brokercompare-sub001/internal/scoring"
)

// SnapshotStore persists finalized assessments. Implementations must save a snapshot atomically.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, snapshot Snapshot) error
}

// Snapshot is the immutable record of a finalized assessment.
type Snapshot struct {
	ID             string                 `json:"id" yaml:"id"`
	AssessmentID   string                 `json:"assessment_id" yaml:"assessment_id"`
	VendorID       string                 `json:"vendor_id" yaml:"vendor_id"`
	VendorName     string                 `json:"vendor_name" yaml:"vendor_name"`
	Features       []scoring.Feature      `json:"features" yaml:"features"`
	CategoryScores scoring.CategoryScores `json:"category_scores" yaml:"category_scores"`
	OverallScore   float64                `json:"overall_score" yaml:"overall_score"`
	TopFeatures    []scoring.Feature      `json:"top_features" yaml:"top_features"`
	Badges         []Badge                `json:"badges" yaml:"badges"`
	Regions        []Region               `json:"regions" yaml:"regions"`
	Pricing        Pricing                `json:"pricing" yaml:"pricing"`
	Alternatives   []string               `json:"alternatives" yaml:"alternatives"`
	FAQs           []FAQ                  `json:"faqs" yaml:"faqs"`
	FinalizedAt    time.Time              `json:"finalized_at" yaml:"finalized_at"`
}

// PublicSnapshot is the view of a snapshot served outside the editorial boundary.
// Private notes are dropped.
type PublicSnapshot struct {
	ID             string                  `json:"id" yaml:"id"`
	VendorID       string                  `json:"vendor_id" yaml:"vendor_id"`
	VendorName     string                  `json:"vendor_name" yaml:"vendor_name"`
	Features       []scoring.PublicFeature `json:"features" yaml:"features"`
	CategoryScores scoring.CategoryScores  `json:"category_scores" yaml:"category_scores"`
	OverallScore   float64                 `json:"overall_score" yaml:"overall_score"`
	TopFeatures    []scoring.PublicFeature `json:"top_features" yaml:"top_features"`
	Badges         []Badge                 `json:"badges" yaml:"badges"`
	Regions        []Region                `json:"regions" yaml:"regions"`
	Pricing        Pricing                 `json:"pricing" yaml:"pricing"`
	Alternatives   []string                `json:"alternatives" yaml:"alternatives"`
	FAQs           []FAQ                   `json:"faqs" yaml:"faqs"`
	FinalizedAt    time.Time               `json:"finalized_at" yaml:"finalized_at"`
}

func (a *Assessment) buildSnapshot() Snapshot {
	return Snapshot{
		ID:             uuid.NewString(),
		AssessmentID:   a.id,
		VendorID:       a.vendorID,
		VendorName:     a.vendorName,
		Features:       a.Features(),
		CategoryScores: a.CategoryScores(),
		OverallScore:   a.OverallScore(),
		TopFeatures:    a.TopFeatures(),
		Badges:         nonNil(a.Badges()),
		Regions:        nonNil(a.Regions()),
		Pricing:        a.Pricing(),
		Alternatives:   nonNil(a.Alternatives()),
		FAQs:           nonNil(a.FAQs()),
		FinalizedAt:    now(),
	}
}

// Clone returns a copy sharing no mutable state with s.
func (s Snapshot) Clone() Snapshot {
	out := s
	out.Features = cloneFeatures(s.Features)
	out.TopFeatures = cloneFeatures(s.TopFeatures)
	out.CategoryScores = s.CategoryScores.Clone()
	out.Badges = slices.Clone(s.Badges)
	out.Regions = slices.Clone(s.Regions)
	out.Pricing = s.Pricing.clone()
	out.Alternatives = slices.Clone(s.Alternatives)
	out.FAQs = slices.Clone(s.FAQs)
	return out
}

// Recompute derives the overall score again from the snapshot's own features.
func (s Snapshot) Recompute() float64 {
	return scoring.Score(s.Features).OverallScore
}

// Public returns the snapshot without editorial notes.
func (s Snapshot) Public() PublicSnapshot {
	c := s.Clone()
	return PublicSnapshot{
		ID:             c.ID,
		VendorID:       c.VendorID,
		VendorName:     c.VendorName,
		Features:       c.PublicFeatures(),
		CategoryScores: c.CategoryScores,
		OverallScore:   c.OverallScore,
		TopFeatures:    c.PublicTopFeatures(),
		Badges:         nonNil(c.Badges),
		Regions:        nonNil(c.Regions),
		Pricing:        c.Pricing,
		Alternatives:   nonNil(c.Alternatives),
		FAQs:           nonNil(c.FAQs),
		FinalizedAt:    c.FinalizedAt,
	}
}

// PublicFeatures returns the features without editorial notes.
func (s Snapshot) PublicFeatures() []scoring.PublicFeature {
	return lo.Map(s.Features, func(f scoring.Feature, _ int) scoring.PublicFeature {
		return f.Public()
	})
}

// PublicTopFeatures returns the ranked features without editorial notes.
func (s Snapshot) PublicTopFeatures() []scoring.PublicFeature {
	return lo.Map(s.TopFeatures, func(f scoring.Feature, _ int) scoring.PublicFeature {
		return f.Public()
	})
}

func cloneFeatures(features []scoring.Feature) []scoring.Feature {
	if features == nil {
		return nil
	}
	return lo.Map(features, func(f scoring.Feature, _ int) scoring.Feature {
		return f.Clone()
	})
}
