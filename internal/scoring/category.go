package scoring

import (
	"math"
	"strings"

	apperrors "github.com/BVG-Design/brokercompare-sub001/internal/errors"
)

// Category is one of the nine fixed groupings a feature is scored under.
type Category string

const (
	CategorySecurity     Category = "security"
	CategoryAutomation   Category = "automation"
	CategoryIntegrations Category = "integrations"
	CategoryCompliance   Category = "compliance"
	CategorySupport      Category = "support"
	CategoryUsability    Category = "usability"
	CategoryReporting    Category = "reporting"
	CategoryOnboarding   Category = "onboarding"
	CategoryInnovation   Category = "innovation"
)

// CategoryInfo is the display metadata and weight of a category.
type CategoryInfo struct {
	Key         Category `json:"key" yaml:"key"`
	Label       string   `json:"label" yaml:"label"`
	Description string   `json:"description" yaml:"description"`
	Weight      float64  `json:"weight" yaml:"weight"`
}

// weightTolerance bounds the float error allowed on the weight sum.
const weightTolerance = 1e-9

// categoryTable is ordered; scoring and rendering iterate it in this order.
var categoryTable = []CategoryInfo{
	{
		Key:         CategorySecurity,
		Label:       "Security & Data Protection",
		Description: "Access control, encryption, and handling of client and lender data.",
		Weight:      0.25,
	},
	{
		Key:         CategoryAutomation,
		Label:       "Workflow Automation",
		Description: "How much of the broker workflow runs without manual steps.",
		Weight:      0.20,
	},
	{
		Key:         CategoryIntegrations,
		Label:       "Integrations",
		Description: "Connections to CRMs, aggregators, lender portals and document tools.",
		Weight:      0.15,
	},
	{
		Key:         CategoryCompliance,
		Label:       "Compliance & Audit",
		Description: "Best-interests duty support, record keeping and audit trails.",
		Weight:      0.10,
	},
	{
		Key:         CategorySupport,
		Label:       "Support & Service",
		Description: "Responsiveness and quality of vendor support.",
		Weight:      0.10,
	},
	{
		Key:         CategoryUsability,
		Label:       "Usability",
		Description: "Day-to-day ease of use for brokers and support staff.",
		Weight:      0.10,
	},
	{
		Key:         CategoryReporting,
		Label:       "Reporting & Analytics",
		Description: "Pipeline, commission and performance reporting.",
		Weight:      0.05,
	},
	{
		Key:         CategoryOnboarding,
		Label:       "Onboarding & Training",
		Description: "Setup effort, migration help and training material.",
		Weight:      0.025,
	},
	{
		Key:         CategoryInnovation,
		Label:       "Innovation Roadmap",
		Description: "Pace and direction of product development.",
		Weight:      0.025,
	},
}

var categoryIndex = func() map[Category]int {
	idx := make(map[Category]int, len(categoryTable))
	for i, info := range categoryTable {
		idx[info.Key] = i
	}
	return idx
}()

// Categories returns the weight table in its fixed order. The slice is a copy.
func Categories() []CategoryInfo {
	out := make([]CategoryInfo, len(categoryTable))
	copy(out, categoryTable)
	return out
}

// CategoryKeys returns all category keys in the fixed order.
func CategoryKeys() []Category {
	keys := make([]Category, len(categoryTable))
	for i, info := range categoryTable {
		keys[i] = info.Key
	}
	return keys
}

// Lookup returns the metadata for key.
func Lookup(key Category) (CategoryInfo, bool) {
	i, ok := categoryIndex[key]
	if !ok {
		return CategoryInfo{}, false
	}
	return categoryTable[i], true
}

// Weight returns the weight of c, or 0 for an unknown key.
func (c Category) Weight() float64 {
	info, _ := Lookup(c)
	return info.Weight
}

func (c Category) Valid() bool {
	_, ok := categoryIndex[c]
	return ok
}

// ParseCategory converts external input into a Category.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", invalidCategory(s)
	}
	return c, nil
}

func invalidCategory(s string) error {
	return apperrors.NewValidationError(apperrors.CodeInvalidCategory,
		"unknown category", map[string]string{"category": s})
}

// WeightSum returns the sum of all category weights.
func WeightSum() float64 {
	sum := 0.0
	for _, info := range categoryTable {
		sum += info.Weight
	}
	return sum
}

// WeightsBalanced reports whether the weights sum to 1 within tolerance.
func WeightsBalanced() bool {
	return math.Abs(WeightSum()-1.0) <= weightTolerance
}
