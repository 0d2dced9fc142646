package assessment

import (
	"slices"
	"strings"

	"github.com/samber/lo"

	apperrors "github.com/BVG-Design/brokercompare-sub001/internal/errors"
)

// Badge is an editorial award shown on a listing. It is never derived from the score.
type Badge string

const (
	BadgeLeader         Badge = "leader"
	BadgeHighPerformer  Badge = "high_performer"
	BadgeMomentumLeader Badge = "momentum_leader"
)

var badgeOrder = []Badge{BadgeLeader, BadgeHighPerformer, BadgeMomentumLeader}

func (b Badge) Valid() bool {
	return slices.Contains(badgeOrder, b)
}

// Badges returns every badge in display order.
func Badges() []Badge {
	return slices.Clone(badgeOrder)
}

// Region is a market a vendor serves.
type Region string

const (
	RegionNational Region = "national"
	RegionNSW      Region = "nsw"
	RegionVIC      Region = "vic"
	RegionQLD      Region = "qld"
	RegionWA       Region = "wa"
	RegionSA       Region = "sa"
	RegionTAS      Region = "tas"
	RegionACT      Region = "act"
	RegionNT       Region = "nt"
)

var regionOrder = []Region{
	RegionNational, RegionNSW, RegionVIC, RegionQLD, RegionWA,
	RegionSA, RegionTAS, RegionACT, RegionNT,
}

func (r Region) Valid() bool {
	return slices.Contains(regionOrder, r)
}

// Regions returns every region in display order.
func Regions() []Region {
	return slices.Clone(regionOrder)
}

// ParseBadge converts external input into a Badge.
func ParseBadge(s string) (Badge, error) {
	b := Badge(strings.ToLower(strings.TrimSpace(s)))
	if !b.Valid() {
		return "", apperrors.NewValidationError(apperrors.CodeInvalidBadge,
			"unknown badge", map[string]string{"badge": s})
	}
	return b, nil
}

// ParseRegion converts external input into a Region.
func ParseRegion(s string) (Region, error) {
	r := Region(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", apperrors.NewValidationError(apperrors.CodeInvalidRegion,
			"unknown region", map[string]string{"region": s})
	}
	return r, nil
}

// canonicalBadges validates, dedupes and orders badges.
func canonicalBadges(badges []Badge) ([]Badge, error) {
	for _, b := range badges {
		if !b.Valid() {
			return nil, apperrors.NewValidationError(apperrors.CodeInvalidBadge,
				"unknown badge", map[string]string{"badge": string(b)})
		}
	}
	return lo.Filter(badgeOrder, func(b Badge, _ int) bool {
		return slices.Contains(badges, b)
	}), nil
}

func canonicalRegions(regions []Region) ([]Region, error) {
	for _, r := range regions {
		if !r.Valid() {
			return nil, apperrors.NewValidationError(apperrors.CodeInvalidRegion,
				"unknown region", map[string]string{"region": string(r)})
		}
	}
	return lo.Filter(regionOrder, func(r Region, _ int) bool {
		return slices.Contains(regions, r)
	}), nil
}

// Pricing describes how a vendor charges.
type Pricing struct {
	Model         string   `json:"model,omitempty" yaml:"model,omitempty"`
	StartingPrice *float64 `json:"starting_price,omitempty" yaml:"starting_price,omitempty"`
	Currency      string   `json:"currency,omitempty" yaml:"currency,omitempty"`
	Notes         string   `json:"notes,omitempty" yaml:"notes,omitempty"`
}

// IsZero reports whether no pricing information was supplied.
func (p Pricing) IsZero() bool {
	return strings.TrimSpace(p.Model) == "" && p.StartingPrice == nil && strings.TrimSpace(p.Notes) == ""
}

func (p Pricing) clone() Pricing {
	if p.StartingPrice != nil {
		price := *p.StartingPrice
		p.StartingPrice = &price
	}
	return p
}

// FAQ is a question and answer pair shown on the listing.
type FAQ struct {
	Question string `json:"question" yaml:"question"`
	Answer   string `json:"answer" yaml:"answer"`
}

func cleanAlternatives(names []string) []string {
	trimmed := lo.FilterMap(names, func(name string, _ int) (string, bool) {
		name = strings.TrimSpace(name)
		return name, name != ""
	})
	return lo.Uniq(trimmed)
}

func cleanFAQs(faqs []FAQ) []FAQ {
	return lo.FilterMap(faqs, func(f FAQ, _ int) (FAQ, bool) {
		f.Question = strings.TrimSpace(f.Question)
		f.Answer = strings.TrimSpace(f.Answer)
		return f, f.Question != ""
	})
}
