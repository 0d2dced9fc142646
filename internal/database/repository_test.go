package database

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BVG-Design/brokercompare-sub001/internal/assessment"
	"github.com/BVG-Design/brokercompare-sub001/internal/encoding"
	apperrors "github.com/BVG-Design/brokercompare-sub001/internal/errors"
	"github.com/BVG-Design/brokercompare-sub001/internal/scoring"
)

var baseTime = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()

	db, err := NewDB(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return NewRepository(db, encoding.NewJSONCodec())
}

func makeSnapshot(vendorID string, score int, finalizedAt time.Time, regions []assessment.Region, badges []assessment.Badge) assessment.Snapshot {
	order := 1
	features := []scoring.Feature{{
		ID:              uuid.NewString(),
		Name:            "Lodgement",
		Category:        scoring.CategorySecurity,
		Score:           score,
		Boost:           scoring.BoostNone,
		TopFeatureOrder: &order,
		PublicNote:      "public",
		PrivateNote:     "private",
	}}
	result := scoring.Score(features)

	return assessment.Snapshot{
		ID:             uuid.NewString(),
		AssessmentID:   uuid.NewString(),
		VendorID:       vendorID,
		VendorName:     "Vendor " + vendorID,
		Features:       features,
		CategoryScores: result.CategoryScores,
		OverallScore:   result.OverallScore,
		TopFeatures:    scoring.TopFeatures(features),
		Badges:         badges,
		Regions:        regions,
		Alternatives:   []string{},
		FAQs:           []assessment.FAQ{},
		FinalizedAt:    finalizedAt,
	}
}

func TestNewDB_Migrates(t *testing.T) {
	db, err := NewDB(t.TempDir())
	require.NoError(t, err)
	defer db.Close()

	for _, table := range []string{"snapshots", "snapshot_regions", "snapshot_badges", "listings"} {
		var name string
		err := db.Get(&name, `SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table)
		assert.NoError(t, err, "table %s", table)
	}

	assert.NoError(t, db.Health(context.Background()))
	assert.Contains(t, db.GetPoolStats(), "open_connections")
}

func TestRepository_SaveAndGetSnapshot(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	snapshot := makeSnapshot("v1", 8, baseTime, []assessment.Region{assessment.RegionNSW}, []assessment.Badge{assessment.BadgeLeader})
	require.NoError(t, repo.SaveSnapshot(ctx, snapshot))

	got, err := repo.GetSnapshot(ctx, snapshot.ID)
	require.NoError(t, err)

	assert.Equal(t, snapshot.ID, got.ID)
	assert.Equal(t, snapshot.VendorID, got.VendorID)
	assert.Equal(t, snapshot.OverallScore, got.OverallScore)
	assert.Equal(t, snapshot.CategoryScores, got.CategoryScores)
	assert.Equal(t, snapshot.Features, got.Features)
	assert.True(t, snapshot.FinalizedAt.Equal(got.FinalizedAt))
	assert.Equal(t, got.OverallScore, got.Recompute())
}

func TestRepository_GetSnapshotNotFound(t *testing.T) {
	repo := newTestRepository(t)

	_, err := repo.GetSnapshot(context.Background(), "missing")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeSnapshotNotFound))
}

func TestRepository_DuplicateSnapshotRollsBack(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	snapshot := makeSnapshot("v1", 8, baseTime, nil, nil)
	require.NoError(t, repo.SaveSnapshot(ctx, snapshot))
	require.Error(t, repo.SaveSnapshot(ctx, snapshot))

	count, err := repo.CountListings(ctx, ListingFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRepository_ListingPointsAtNewestSnapshot(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	first := makeSnapshot("v1", 4, baseTime, nil, nil)
	second := makeSnapshot("v1", 9, baseTime.Add(time.Hour), nil, nil)
	stale := makeSnapshot("v1", 2, baseTime.Add(-time.Hour), nil, nil)

	require.NoError(t, repo.SaveSnapshot(ctx, first))
	require.NoError(t, repo.SaveSnapshot(ctx, second))
	require.NoError(t, repo.SaveSnapshot(ctx, stale))

	listings, err := repo.ListListings(ctx, ListingFilter{})
	require.NoError(t, err)
	require.Len(t, listings, 1)
	assert.Equal(t, second.ID, listings[0].ID)
}

func TestRepository_ListListingsOrderAndFilters(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	nswLeader := makeSnapshot("a", 9, baseTime.Add(2*time.Minute), []assessment.Region{assessment.RegionNSW}, []assessment.Badge{assessment.BadgeLeader})
	vicEarly := makeSnapshot("b", 7, baseTime, []assessment.Region{assessment.RegionVIC, assessment.RegionNSW}, nil)
	vicLate := makeSnapshot("c", 7, baseTime.Add(time.Minute), []assessment.Region{assessment.RegionVIC}, []assessment.Badge{assessment.BadgeLeader})

	for _, s := range []assessment.Snapshot{vicLate, nswLeader, vicEarly} {
		require.NoError(t, repo.SaveSnapshot(ctx, s))
	}

	tests := []struct {
		name     string
		filter   ListingFilter
		expected []string
	}{
		{"all ordered by score then finalization", ListingFilter{}, []string{"a", "b", "c"}},
		{"limit", ListingFilter{Limit: 2}, []string{"a", "b"}},
		{"region", ListingFilter{Region: assessment.RegionVIC}, []string{"b", "c"}},
		{"badge", ListingFilter{Badge: assessment.BadgeLeader}, []string{"a", "c"}},
		{"region and badge", ListingFilter{Region: assessment.RegionNSW, Badge: assessment.BadgeLeader}, []string{"a"}},
		{"no match", ListingFilter{Region: assessment.RegionNT}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			listings, err := repo.ListListings(ctx, tt.filter)
			require.NoError(t, err)

			vendors := make([]string, 0, len(listings))
			for _, l := range listings {
				vendors = append(vendors, l.VendorID)
			}
			assert.Equal(t, tt.expected, vendors)
		})
	}

	count, err := repo.CountListings(ctx, ListingFilter{Region: assessment.RegionVIC, Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"busy", sqlite3.Error{Code: sqlite3.ErrBusy}, true},
		{"locked", fmt.Errorf("failed to insert snapshot: %w", sqlite3.Error{Code: sqlite3.ErrLocked}), true},
		{"constraint", sqlite3.Error{Code: sqlite3.ErrConstraint}, false},
		{"other", errors.New("boom"), false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsTransient(tt.err))
		})
	}
}
