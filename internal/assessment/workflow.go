package assessment

import (
	"context"
	"strconv"
	"strings"

	"github.com/samber/lo"

	apperrors "github.com/BVG-Design/brokercompare-sub001/internal/errors"
	"github.com/BVG-Design/brokercompare-sub001/internal/scoring"
)

// Issue codes reported by Validate.
const (
	IssueNoScoredFeatures = "no_scored_features"
	IssueUnnamedFeatures  = "unnamed_features"
	IssueNoTopFeatures    = "no_top_features"
	IssueNoPricing        = "no_pricing"
)

// Issue is one finding of a validation run.
type Issue struct {
	Code    string `json:"code" yaml:"code"`
	Message string `json:"message" yaml:"message"`
}

// ValidationReport lists what blocks finalization and what merely deserves attention.
type ValidationReport struct {
	Valid    bool    `json:"valid" yaml:"valid"`
	Blocking []Issue `json:"blocking" yaml:"blocking"`
	Warnings []Issue `json:"warnings" yaml:"warnings"`
}

// Check inspects a feature set and pricing without touching any aggregate.
func Check(features []scoring.Feature, pricing Pricing) ValidationReport {
	report := ValidationReport{Blocking: []Issue{}, Warnings: []Issue{}}

	scored := lo.SomeBy(features, func(f scoring.Feature) bool { return f.Score > 0 })
	if !scored {
		report.Blocking = append(report.Blocking, Issue{
			Code:    IssueNoScoredFeatures,
			Message: "at least one feature must be scored before the assessment can be validated",
		})
	}

	unnamed := lo.CountBy(features, func(f scoring.Feature) bool { return strings.TrimSpace(f.Name) == "" })
	if unnamed > 0 {
		report.Blocking = append(report.Blocking, Issue{
			Code:    IssueUnnamedFeatures,
			Message: strconv.Itoa(unnamed) + " feature(s) need a name before the assessment can be finalized",
		})
	}

	if len(scoring.TopFeatures(features)) == 0 {
		report.Warnings = append(report.Warnings, Issue{
			Code:    IssueNoTopFeatures,
			Message: "no feature is ranked as a top feature",
		})
	}

	if pricing.IsZero() {
		report.Warnings = append(report.Warnings, Issue{
			Code:    IssueNoPricing,
			Message: "no pricing information is set",
		})
	}

	report.Valid = len(report.Blocking) == 0
	return report
}

// Validate moves a draft to validated when nothing blocks it.
// A blocked draft stays a draft and the returned error carries the code of the
// first blocking issue.
func (a *Assessment) Validate() (ValidationReport, error) {
	if err := a.ensureEditable(); err != nil {
		return ValidationReport{}, err
	}

	report := Check(a.features, a.pricing)
	if !report.Valid {
		return report, blockedError(a.id, report.Blocking[0])
	}

	a.state = StateValidated
	return report, nil
}

// Finalize hands an immutable snapshot to store and locks the assessment.
// A draft is validated first. If the store fails the assessment stays validated
// so the operation can be retried. Finalizing twice returns the first snapshot
// without saving it again.
func (a *Assessment) Finalize(ctx context.Context, store SnapshotStore) (Snapshot, error) {
	if a.state == StateFinalized && a.snapshot != nil {
		return a.snapshot.Clone(), nil
	}

	if a.state == StateDraft {
		if _, err := a.Validate(); err != nil {
			return Snapshot{}, err
		}
	}

	snapshot := a.buildSnapshot()
	if err := store.SaveSnapshot(ctx, snapshot.Clone()); err != nil {
		return Snapshot{}, apperrors.NewStorageError("failed to persist assessment snapshot", err)
	}

	a.snapshot = &snapshot
	a.state = StateFinalized
	a.updatedAt = snapshot.FinalizedAt
	return snapshot.Clone(), nil
}

func blockedError(assessmentID string, issue Issue) error {
	code := apperrors.CodeNoScoredFeatures
	if issue.Code == IssueUnnamedFeatures {
		code = apperrors.CodeUnnamedFeatures
	}
	return apperrors.NewWorkflowError(code, issue.Message, map[string]string{"assessment_id": assessmentID})
}
