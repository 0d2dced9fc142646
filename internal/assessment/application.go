package assessment

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	apperrors "github.com/BVG-Design/brokercompare-sub001/internal/errors"
	"github.com/BVG-Design/brokercompare-sub001/internal/scoring"
)

// Defaults applied to features created from a vendor application.
const (
	applicationFeatureScore  = 5
	integrationsFeatureName  = "Integrations"
	integrationsFeatureScore = 7
	integrationsNotePrefix   = "Integrates with: "
)

var validate = validator.New()

// Application is the record a vendor submits through the intake flow.
// Features holds one feature name per line.
type Application struct {
	VendorID     string `json:"vendor_id" yaml:"vendor_id" validate:"required,max=128"`
	VendorName   string `json:"vendor_name" yaml:"vendor_name" validate:"max=200"`
	Features     string `json:"features" yaml:"features" validate:"max=20000"`
	Integrations string `json:"integrations" yaml:"integrations" validate:"max=5000"`
}

// Validate checks the record's shape.
func (app Application) Validate() error {
	err := validate.Struct(app)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return apperrors.NewInternalError("application validation failed", err)
	}

	fields := make(map[string]string, len(validationErrs))
	for _, fe := range validationErrs {
		fields[fe.Field()] = fe.Tag()
	}
	return apperrors.NewValidationError(apperrors.CodeInvalidApplication, "vendor application is invalid", fields)
}

// ApplicationFeatures derives the starting features of an application.
// Every non-blank line becomes an automation feature scored 5. Non-blank
// integrations text becomes a single boosted integrations feature.
func ApplicationFeatures(app Application) []scoring.Feature {
	var features []scoring.Feature

	for _, line := range strings.Split(app.Features, "\n") {
		name := strings.TrimSpace(line)
		if name == "" {
			continue
		}
		features = append(features, scoring.Feature{
			ID:       uuid.NewString(),
			Name:     name,
			Category: scoring.CategoryAutomation,
			Score:    applicationFeatureScore,
			Boost:    scoring.BoostNone,
		})
	}

	if integrations := strings.TrimSpace(app.Integrations); integrations != "" {
		features = append(features, scoring.Feature{
			ID:         uuid.NewString(),
			Name:       integrationsFeatureName,
			Category:   scoring.CategoryIntegrations,
			Score:      integrationsFeatureScore,
			Boost:      scoring.BoostAssisted,
			PublicNote: integrationsNotePrefix + integrations,
		})
	}

	return features
}

// FromApplication starts a draft pre-populated from a vendor application.
func FromApplication(app Application) (*Assessment, error) {
	if err := app.Validate(); err != nil {
		return nil, err
	}

	a := New(strings.TrimSpace(app.VendorID), strings.TrimSpace(app.VendorName))
	a.features = ApplicationFeatures(app)
	a.recompute()
	return a, nil
}
