package leaderboard

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BVG-Design/brokercompare-sub001/internal/assessment"
	"github.com/BVG-Design/brokercompare-sub001/internal/cache"
	"github.com/BVG-Design/brokercompare-sub001/internal/database"
	"github.com/BVG-Design/brokercompare-sub001/internal/encoding"
	apperrors "github.com/BVG-Design/brokercompare-sub001/internal/errors"
	"github.com/BVG-Design/brokercompare-sub001/internal/monitoring"
	"github.com/BVG-Design/brokercompare-sub001/internal/scoring"
)

// countingStore counts listing queries reaching the database
type countingStore struct {
	*database.Repository
	listCalls int
}

func (s *countingStore) ListListings(ctx context.Context, filter database.ListingFilter) ([]assessment.Snapshot, error) {
	s.listCalls++
	return s.Repository.ListListings(ctx, filter)
}

func newTestService(t *testing.T) (*Service, *countingStore) {
	t.Helper()

	db, err := database.NewDB(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	store := &countingStore{Repository: database.NewRepository(db, encoding.NewJSONCodec())}
	lc := NewLeaderboardCache(cache.NewCache(time.Minute, time.Minute), time.Minute, monitoring.NewMetrics())
	return NewService(store, lc, 10), store
}

func finalize(t *testing.T, svc *Service, vendorID string, score int, regions []assessment.Region, badges []assessment.Badge) assessment.Snapshot {
	t.Helper()

	a := assessment.New(vendorID, "Vendor "+vendorID)
	f, err := a.AddFeature(scoring.CategorySecurity)
	require.NoError(t, err)
	_, err = a.UpdateFeature(f.ID, scoring.FeatureUpdate{
		Name:        ptr("Data residency"),
		Score:       &score,
		PublicNote:  ptr("shown"),
		PrivateNote: ptr("hidden"),
	})
	require.NoError(t, err)
	require.NoError(t, a.SetRegions(regions))
	require.NoError(t, a.SetBadges(badges))

	snapshot, err := a.Finalize(context.Background(), svc)
	require.NoError(t, err)
	return snapshot
}

func ptr(s string) *string { return &s }

func TestService_RanksByScore(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	finalize(t, svc, "low", 3, nil, nil)
	finalize(t, svc, "high", 9, nil, nil)
	finalize(t, svc, "mid", 6, nil, nil)

	resp, err := svc.GetLeaderboard(ctx, Query{})
	require.NoError(t, err)

	require.Len(t, resp.Entries, 3)
	assert.Equal(t, 3, resp.Total)
	assert.Equal(t, 10, resp.Limit)
	for i, vendor := range []string{"high", "mid", "low"} {
		assert.Equal(t, vendor, resp.Entries[i].VendorID)
		assert.Equal(t, i+1, resp.Entries[i].Rank)
	}
	assert.Equal(t, 2.25, resp.Entries[0].OverallScore)
}

func TestService_EntriesArePublic(t *testing.T) {
	svc, _ := newTestService(t)

	finalize(t, svc, "v1", 8, nil, nil)

	resp, err := svc.GetLeaderboard(context.Background(), Query{})
	require.NoError(t, err)
	require.Len(t, resp.Entries, 1)
	require.Len(t, resp.Entries[0].Features, 1)
	assert.Equal(t, "shown", resp.Entries[0].Features[0].PublicNote)

	data, err := encoding.Default().Marshal(resp)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "hidden")
	assert.NotContains(t, string(data), "private_note")
}

func TestService_Filters(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	finalize(t, svc, "nsw", 7, []assessment.Region{assessment.RegionNSW}, []assessment.Badge{assessment.BadgeLeader})
	finalize(t, svc, "vic", 8, []assessment.Region{assessment.RegionVIC}, nil)

	resp, err := svc.GetLeaderboard(ctx, Query{Region: assessment.RegionNSW})
	require.NoError(t, err)
	require.Len(t, resp.Entries, 1)
	assert.Equal(t, "nsw", resp.Entries[0].VendorID)
	assert.Equal(t, "nsw", resp.Region)

	resp, err = svc.GetLeaderboard(ctx, Query{Badge: assessment.BadgeLeader})
	require.NoError(t, err)
	require.Len(t, resp.Entries, 1)

	_, err = svc.GetLeaderboard(ctx, Query{Region: "mars"})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidRegion))

	_, err = svc.GetLeaderboard(ctx, Query{Badge: "gold"})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidBadge))
}

func TestService_LimitClamped(t *testing.T) {
	svc, _ := newTestService(t)

	resp, err := svc.GetLeaderboard(context.Background(), Query{Limit: 5000})
	require.NoError(t, err)
	assert.Equal(t, MaxLimit, resp.Limit)
	assert.NotNil(t, resp.Entries)
}

func TestService_CachesUntilSnapshotSaved(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	finalize(t, svc, "v1", 5, nil, nil)

	_, err := svc.GetLeaderboard(ctx, Query{})
	require.NoError(t, err)
	resp, err := svc.GetLeaderboard(ctx, Query{})
	require.NoError(t, err)
	assert.Equal(t, 1, store.listCalls)
	assert.Len(t, resp.Entries, 1)

	finalize(t, svc, "v2", 9, nil, nil)

	resp, err = svc.GetLeaderboard(ctx, Query{})
	require.NoError(t, err)
	assert.Equal(t, 2, store.listCalls)
	require.Len(t, resp.Entries, 2)
	assert.Equal(t, "v2", resp.Entries[0].VendorID)
}

func TestService_GetSnapshot(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	saved := finalize(t, svc, "v1", 8, nil, nil)

	got, err := svc.GetSnapshot(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, saved.OverallScore, got.Recompute())

	_, err = svc.GetSnapshot(ctx, "nope")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeSnapshotNotFound))
}
