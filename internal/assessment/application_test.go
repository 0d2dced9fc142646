package assessment

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/BVG-Design/brokercompare-sub001/internal/errors"
	"github.com/BVG-Design/brokercompare-sub001/internal/scoring"
)

func TestApplicationFeatures(t *testing.T) {
	app := Application{
		VendorID:     "vendor-9",
		Features:     "Auto lodgement\r\n\n  Lender matching  \n",
		Integrations: "  Salesforce, Mercury  ",
	}

	features := ApplicationFeatures(app)
	require.Len(t, features, 3)

	assert.Equal(t, "Auto lodgement", features[0].Name)
	assert.Equal(t, "Lender matching", features[1].Name)
	for _, f := range features[:2] {
		assert.Equal(t, scoring.CategoryAutomation, f.Category)
		assert.Equal(t, 5, f.Score)
		assert.Equal(t, scoring.BoostNone, f.Boost)
		assert.NoError(t, f.Validate())
	}

	integrations := features[2]
	assert.Equal(t, "Integrations", integrations.Name)
	assert.Equal(t, scoring.CategoryIntegrations, integrations.Category)
	assert.Equal(t, 7, integrations.Score)
	assert.Equal(t, scoring.BoostAssisted, integrations.Boost)
	assert.Equal(t, "Integrates with: Salesforce, Mercury", integrations.PublicNote)
	assert.NotEqual(t, features[0].ID, features[1].ID)
}

func TestApplicationFeatures_Blank(t *testing.T) {
	assert.Empty(t, ApplicationFeatures(Application{VendorID: "v", Features: " \n\n", Integrations: "   "}))
}

func TestFromApplication(t *testing.T) {
	a, err := FromApplication(Application{
		VendorID:     " vendor-9 ",
		VendorName:   "Loan Desk",
		Features:     "Auto lodgement",
		Integrations: "Salesforce",
	})
	require.NoError(t, err)

	assert.Equal(t, "vendor-9", a.VendorID())
	assert.Equal(t, StateDraft, a.State())
	assert.Equal(t, 5.0, a.CategoryScores()[scoring.CategoryAutomation])
	assert.Equal(t, 8.4, a.CategoryScores()[scoring.CategoryIntegrations])
	// 5*0.20 + 8.4*0.15
	assert.Equal(t, 2.26, a.OverallScore())
}

func TestFromApplication_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		app   Application
		field string
	}{
		{"missing vendor id", Application{VendorName: "Loan Desk"}, "VendorID"},
		{"vendor name too long", Application{VendorID: "v", VendorName: strings.Repeat("x", 201)}, "VendorName"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromApplication(tt.app)
			require.Error(t, err)
			assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidApplication))
			assert.Contains(t, apperrors.ToAppError(err).Fields, tt.field)
		})
	}
}
