package scenario

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Simplici0/ncrsim/internal/reimbursement"
)

// ErrRegionNotFound is returned when no payer-mix data exists for a zip code.
var ErrRegionNotFound = errors.New("region not found")

// DefaultZip is the zip code offered by the auto-load button.
const DefaultZip = "19103"

// Region is the regional payer mix for a zip code.
type Region struct {
	Zip   string
	Label string
	Mix   reimbursement.PayerMix
}

// RegionResolver looks up regional payer-mix data by zip code.
type RegionResolver interface {
	ResolveByZip(ctx context.Context, zip string) (Region, error)
}

// StaticRegions serves regional data from an in-memory table.
type StaticRegions struct {
	regions map[string]Region
}

// NewStaticRegions builds a resolver over the given regions.
func NewStaticRegions(regions []Region) *StaticRegions {
	m := make(map[string]Region, len(regions))
	for _, r := range regions {
		m[strings.TrimSpace(r.Zip)] = r
	}
	return &StaticRegions{regions: m}
}

// DefaultRegions returns the built-in regional table.
func DefaultRegions() []Region {
	return []Region{
		{Zip: DefaultZip, Label: "Philadelphia, PA", Mix: mix(65, 25, 10)},
	}
}

// ResolveByZip implements RegionResolver.
func (s *StaticRegions) ResolveByZip(_ context.Context, zip string) (Region, error) {
	zip = strings.TrimSpace(zip)
	r, ok := s.regions[zip]
	if !ok {
		return Region{}, fmt.Errorf("resolve zip %q: %w", zip, ErrRegionNotFound)
	}
	return r, nil
}
