package database

import (
	"time"

	"github.com/BVG-Design/brokercompare-sub001/internal/assessment"
)

// snapshotRow is a row of the snapshots table
type snapshotRow struct {
	ID           string  `db:"id"`
	AssessmentID string  `db:"assessment_id"`
	VendorID     string  `db:"vendor_id"`
	VendorName   string  `db:"vendor_name"`
	OverallScore float64 `db:"overall_score"`
	Payload      string  `db:"payload"`
	FinalizedAt  int64   `db:"finalized_at"`
}

// listingRow is a row of the listings table
type listingRow struct {
	VendorID     string  `db:"vendor_id"`
	SnapshotID   string  `db:"snapshot_id"`
	OverallScore float64 `db:"overall_score"`
	FinalizedAt  int64   `db:"finalized_at"`
	UpdatedAt    int64   `db:"updated_at"`
}

// ListingFilter narrows the public listing query. Zero values match everything.
type ListingFilter struct {
	Region assessment.Region
	Badge  assessment.Badge
	Limit  int
}

func toUnix(t time.Time) int64 {
	return t.UTC().UnixNano()
}

func fromUnix(n int64) time.Time {
	return time.Unix(0, n).UTC()
}
