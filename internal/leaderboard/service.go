package leaderboard

import (
	"context"
	"log/slog"
	"time"

	"github.com/BVG-Design/brokercompare-sub001/internal/assessment"
	"github.com/BVG-Design/brokercompare-sub001/internal/database"
	apperrors "github.com/BVG-Design/brokercompare-sub001/internal/errors"
	"github.com/BVG-Design/brokercompare-sub001/internal/resilience"
	"github.com/BVG-Design/brokercompare-sub001/internal/scoring"
)

const (
	DefaultLimit = 25
	MaxLimit     = 100
)

// Store is the persistence the leaderboard reads and writes through
type Store interface {
	assessment.SnapshotStore
	GetSnapshot(ctx context.Context, id string) (assessment.Snapshot, error)
	ListListings(ctx context.Context, filter database.ListingFilter) ([]assessment.Snapshot, error)
	CountListings(ctx context.Context, filter database.ListingFilter) (int, error)
}

// Entry is one ranked public listing. Editorial notes never appear here.
// SnapshotID resolves through GET /api/snapshots/:id to the same public view.
type Entry struct {
	Rank           int                     `json:"rank"`
	VendorID       string                  `json:"vendor_id"`
	VendorName     string                  `json:"vendor_name"`
	SnapshotID     string                  `json:"snapshot_id"`
	OverallScore   float64                 `json:"overall_score"`
	CategoryScores scoring.CategoryScores  `json:"category_scores"`
	TopFeatures    []scoring.PublicFeature `json:"top_features"`
	Features       []scoring.PublicFeature `json:"features"`
	Badges         []assessment.Badge      `json:"badges"`
	Regions        []assessment.Region     `json:"regions"`
	Pricing        assessment.Pricing      `json:"pricing"`
	Alternatives   []string                `json:"alternatives"`
	FAQs           []assessment.FAQ        `json:"faqs"`
	FinalizedAt    time.Time               `json:"finalized_at"`
}

// Query selects a leaderboard view
type Query struct {
	Region assessment.Region
	Badge  assessment.Badge
	Limit  int
}

// LeaderboardResponse represents the response for leaderboard queries
type LeaderboardResponse struct {
	Entries []Entry `json:"entries"`
	Total   int     `json:"total"`
	Region  string  `json:"region,omitempty"`
	Badge   string  `json:"badge,omitempty"`
	Limit   int     `json:"limit"`
}

// Service handles leaderboard operations
type Service struct {
	store        Store
	cache        *LeaderboardCache
	defaultLimit int
	retry        resilience.RetryConfig
}

// NewService creates a new leaderboard service. A nil cache disables caching.
func NewService(store Store, cache *LeaderboardCache, defaultLimit int) *Service {
	if defaultLimit <= 0 || defaultLimit > MaxLimit {
		defaultLimit = DefaultLimit
	}
	return &Service{
		store:        store,
		cache:        cache,
		defaultLimit: defaultLimit,
		retry:        resilience.StorageRetryConfig(database.IsTransient),
	}
}

// SaveSnapshot persists a finalized snapshot and drops every cached leaderboard.
// Lock conflicts with concurrent writers are retried.
func (s *Service) SaveSnapshot(ctx context.Context, snapshot assessment.Snapshot) error {
	err := resilience.RetryWithConfig(ctx, s.retry, func() error {
		return s.store.SaveSnapshot(ctx, snapshot)
	})
	if err != nil {
		return err
	}

	slog.Info("Snapshot saved to leaderboard",
		"snapshot_id", snapshot.ID,
		"vendor_id", snapshot.VendorID,
		"overall_score", snapshot.OverallScore,
	)

	if s.cache != nil {
		s.cache.InvalidateAll(ctx)
	}
	return nil
}

// GetSnapshot loads a stored snapshot
func (s *Service) GetSnapshot(ctx context.Context, id string) (assessment.Snapshot, error) {
	return s.store.GetSnapshot(ctx, id)
}

// GetLeaderboard returns ranked listings matching q
func (s *Service) GetLeaderboard(ctx context.Context, q Query) (*LeaderboardResponse, error) {
	if q.Region != "" && !q.Region.Valid() {
		return nil, apperrors.NewValidationError(apperrors.CodeInvalidRegion,
			"unknown region", map[string]string{"region": string(q.Region)})
	}
	if q.Badge != "" && !q.Badge.Valid() {
		return nil, apperrors.NewValidationError(apperrors.CodeInvalidBadge,
			"unknown badge", map[string]string{"badge": string(q.Badge)})
	}

	switch {
	case q.Limit <= 0:
		q.Limit = s.defaultLimit
	case q.Limit > MaxLimit:
		q.Limit = MaxLimit
	}

	if s.cache != nil {
		if cached, found := s.cache.GetLeaderboard(ctx, q); found {
			return cached, nil
		}
	}

	filter := database.ListingFilter{Region: q.Region, Badge: q.Badge, Limit: q.Limit}

	snapshots, err := s.store.ListListings(ctx, filter)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to load leaderboard", err)
	}
	total, err := s.store.CountListings(ctx, filter)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to count leaderboard", err)
	}

	response := &LeaderboardResponse{
		Entries: make([]Entry, 0, len(snapshots)),
		Total:   total,
		Region:  string(q.Region),
		Badge:   string(q.Badge),
		Limit:   q.Limit,
	}
	for i, snapshot := range snapshots {
		response.Entries = append(response.Entries, newEntry(i+1, snapshot))
	}

	if s.cache != nil {
		s.cache.SetLeaderboard(ctx, q, response)
	}
	return response, nil
}

func newEntry(rank int, s assessment.Snapshot) Entry {
	p := s.Public()
	return Entry{
		Rank:           rank,
		VendorID:       p.VendorID,
		VendorName:     p.VendorName,
		SnapshotID:     p.ID,
		OverallScore:   p.OverallScore,
		CategoryScores: p.CategoryScores,
		TopFeatures:    p.TopFeatures,
		Features:       p.Features,
		Badges:         p.Badges,
		Regions:        p.Regions,
		Pricing:        p.Pricing,
		Alternatives:   p.Alternatives,
		FAQs:           p.FAQs,
		FinalizedAt:    p.FinalizedAt,
	}
}
