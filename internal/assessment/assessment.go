package assessment

import (
	"slices"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/BVG-Design/brokercompare-sub001/internal/errors"
	"github.com/BVG-Design/brokercompare-sub001/internal/scoring"
)

// State is the editorial workflow position of an assessment.
type State string

const (
	StateDraft     State = "draft"
	StateValidated State = "validated"
	StateFinalized State = "finalized"
)

// now is replaced in tests.
var now = func() time.Time { return time.Now().UTC() }

// Assessment is the aggregate an editor works on for one vendor.
// Category and overall scores are recomputed after every successful mutation.
type Assessment struct {
	id         string
	vendorID   string
	vendorName string
	state      State

	features []scoring.Feature
	result   scoring.Result

	badges       []Badge
	regions      []Region
	pricing      Pricing
	alternatives []string
	faqs         []FAQ

	snapshot *Snapshot

	createdAt time.Time
	updatedAt time.Time
}

// New creates an empty draft assessment for a vendor.
func New(vendorID, vendorName string) *Assessment {
	ts := now()
	a := &Assessment{
		id:         uuid.NewString(),
		vendorID:   vendorID,
		vendorName: vendorName,
		state:      StateDraft,
		createdAt:  ts,
		updatedAt:  ts,
	}
	a.recompute()
	return a
}

func (a *Assessment) ID() string         { return a.id }
func (a *Assessment) VendorID() string   { return a.vendorID }
func (a *Assessment) VendorName() string { return a.vendorName }
func (a *Assessment) State() State       { return a.state }

// Features returns copies of the features in insertion order.
func (a *Assessment) Features() []scoring.Feature {
	out := make([]scoring.Feature, len(a.features))
	for i, f := range a.features {
		out[i] = f.Clone()
	}
	return out
}

// Feature returns a copy of the feature with id.
func (a *Assessment) Feature(id string) (scoring.Feature, error) {
	i := a.indexOf(id)
	if i < 0 {
		return scoring.Feature{}, featureNotFound(id)
	}
	return a.features[i].Clone(), nil
}

func (a *Assessment) CategoryScores() scoring.CategoryScores { return a.result.CategoryScores.Clone() }
func (a *Assessment) OverallScore() float64                  { return a.result.OverallScore }
func (a *Assessment) TopFeatures() []scoring.Feature         { return scoring.TopFeatures(a.features) }
func (a *Assessment) Badges() []Badge                        { return slices.Clone(a.badges) }
func (a *Assessment) Regions() []Region                      { return slices.Clone(a.regions) }
func (a *Assessment) Pricing() Pricing                       { return a.pricing.clone() }
func (a *Assessment) Alternatives() []string                 { return slices.Clone(a.alternatives) }
func (a *Assessment) FAQs() []FAQ                            { return slices.Clone(a.faqs) }

// Snapshot returns the snapshot produced by Finalize, if any.
func (a *Assessment) Snapshot() (Snapshot, bool) {
	if a.snapshot == nil {
		return Snapshot{}, false
	}
	return a.snapshot.Clone(), true
}

// AddFeature appends a feature with default values to category.
func (a *Assessment) AddFeature(category scoring.Category) (scoring.Feature, error) {
	if err := a.ensureEditable(); err != nil {
		return scoring.Feature{}, err
	}

	f, err := scoring.NewFeature(uuid.NewString(), category)
	if err != nil {
		return scoring.Feature{}, err
	}

	a.features = append(a.features, f)
	a.touch()
	return f.Clone(), nil
}

// UpdateFeature merges update into the feature with id. A rejected update changes nothing.
func (a *Assessment) UpdateFeature(id string, update scoring.FeatureUpdate) (scoring.Feature, error) {
	if err := a.ensureEditable(); err != nil {
		return scoring.Feature{}, err
	}

	i := a.indexOf(id)
	if i < 0 {
		return scoring.Feature{}, featureNotFound(id)
	}

	updated, err := update.Apply(a.features[i])
	if err != nil {
		return scoring.Feature{}, err
	}

	a.features[i] = updated
	a.touch()
	return updated.Clone(), nil
}

// RemoveFeature deletes the feature with id. Removing an absent feature is a no-op.
func (a *Assessment) RemoveFeature(id string) error {
	if err := a.ensureEditable(); err != nil {
		return err
	}

	i := a.indexOf(id)
	if i < 0 {
		return nil
	}

	a.features = slices.Delete(a.features, i, i+1)
	a.touch()
	return nil
}

// SetBadges replaces the badge set.
func (a *Assessment) SetBadges(badges []Badge) error {
	if err := a.ensureEditable(); err != nil {
		return err
	}
	canonical, err := canonicalBadges(badges)
	if err != nil {
		return err
	}
	a.badges = canonical
	a.touch()
	return nil
}

// SetRegions replaces the region set.
func (a *Assessment) SetRegions(regions []Region) error {
	if err := a.ensureEditable(); err != nil {
		return err
	}
	canonical, err := canonicalRegions(regions)
	if err != nil {
		return err
	}
	a.regions = canonical
	a.touch()
	return nil
}

func (a *Assessment) SetPricing(p Pricing) error {
	if err := a.ensureEditable(); err != nil {
		return err
	}
	a.pricing = p.clone()
	a.touch()
	return nil
}

func (a *Assessment) SetAlternatives(names []string) error {
	if err := a.ensureEditable(); err != nil {
		return err
	}
	a.alternatives = cleanAlternatives(names)
	a.touch()
	return nil
}

func (a *Assessment) SetFAQs(faqs []FAQ) error {
	if err := a.ensureEditable(); err != nil {
		return err
	}
	a.faqs = cleanFAQs(faqs)
	a.touch()
	return nil
}

// Listing bundles the listing metadata an editor sets in one request.
type Listing struct {
	Badges       []Badge  `json:"badges" yaml:"badges"`
	Regions      []Region `json:"regions" yaml:"regions"`
	Pricing      Pricing  `json:"pricing" yaml:"pricing"`
	Alternatives []string `json:"alternatives" yaml:"alternatives"`
	FAQs         []FAQ    `json:"faqs" yaml:"faqs"`
}

// SetListing validates every part of l before applying any of it.
func (a *Assessment) SetListing(l Listing) error {
	if err := a.ensureEditable(); err != nil {
		return err
	}
	badges, err := canonicalBadges(l.Badges)
	if err != nil {
		return err
	}
	regions, err := canonicalRegions(l.Regions)
	if err != nil {
		return err
	}

	a.badges = badges
	a.regions = regions
	a.pricing = l.Pricing.clone()
	a.alternatives = cleanAlternatives(l.Alternatives)
	a.faqs = cleanFAQs(l.FAQs)
	a.touch()
	return nil
}

func (a *Assessment) ensureEditable() error {
	if a.state == StateFinalized {
		return apperrors.NewWorkflowError(apperrors.CodeAssessmentFinalized,
			"assessment is finalized and can no longer be edited", map[string]string{"assessment_id": a.id})
	}
	return nil
}

// touch records a successful mutation. A validated assessment goes back to draft.
func (a *Assessment) touch() {
	if a.state == StateValidated {
		a.state = StateDraft
	}
	a.updatedAt = now()
	a.recompute()
}

func (a *Assessment) recompute() {
	a.result = scoring.Score(a.features)
}

func (a *Assessment) indexOf(id string) int {
	return slices.IndexFunc(a.features, func(f scoring.Feature) bool {
		return f.ID == id
	})
}

func featureNotFound(id string) error {
	return apperrors.NewNotFoundError(apperrors.CodeFeatureNotFound, "feature", id)
}

// View is the editor's serializable picture of an assessment, private notes included.
type View struct {
	ID             string                 `json:"id"`
	VendorID       string                 `json:"vendor_id"`
	VendorName     string                 `json:"vendor_name"`
	State          State                  `json:"state"`
	Features       []scoring.Feature      `json:"features"`
	CategoryScores scoring.CategoryScores `json:"category_scores"`
	OverallScore   float64                `json:"overall_score"`
	TopFeatures    []scoring.Feature      `json:"top_features"`
	Badges         []Badge                `json:"badges"`
	Regions        []Region               `json:"regions"`
	Pricing        Pricing                `json:"pricing"`
	Alternatives   []string               `json:"alternatives"`
	FAQs           []FAQ                  `json:"faqs"`
	SnapshotID     string                 `json:"snapshot_id,omitempty"`
	CreatedAt      time.Time              `json:"created_at"`
	UpdatedAt      time.Time              `json:"updated_at"`
}

// View returns a deep copy of the aggregate's current state.
func (a *Assessment) View() View {
	v := View{
		ID:             a.id,
		VendorID:       a.vendorID,
		VendorName:     a.vendorName,
		State:          a.state,
		Features:       a.Features(),
		CategoryScores: a.CategoryScores(),
		OverallScore:   a.OverallScore(),
		TopFeatures:    a.TopFeatures(),
		Badges:         nonNil(a.Badges()),
		Regions:        nonNil(a.Regions()),
		Pricing:        a.Pricing(),
		Alternatives:   nonNil(a.Alternatives()),
		FAQs:           nonNil(a.FAQs()),
		CreatedAt:      a.createdAt,
		UpdatedAt:      a.updatedAt,
	}
	if a.snapshot != nil {
		v.SnapshotID = a.snapshot.ID
	}
	return v
}

// nonNil keeps empty collections rendering as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
