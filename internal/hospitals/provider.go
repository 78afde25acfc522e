package hospitals

import (
	"context"

	"github.com/swasthya/sahayak/pkg/logger"
)

// Locator finds care facilities near a location. The location is free text,
// either a place name or a "lat,lon" pair. Ordering of results carries no
// meaning.
type Locator interface {
	FindNearby(ctx context.Context, location string) ([]Facility, error)
}

// StaticProvider is a fixed-output Locator. Production deployments should
// replace it with a real geo-search backend behind the same interface.
type StaticProvider struct {
	facilities []Facility
	logger     *logger.Logger
}

// NewStaticProvider creates a static hospital lookup provider
func NewStaticProvider(log *logger.Logger) *StaticProvider {
	return &StaticProvider{
		facilities: []Facility{
			{
				Name:     "Community Health Center",
				Address:  "123 Village Main St, Ruralville",
				Phone:    "555-0101",
				Distance: "2.5 km",
			},
			{
				Name:     "District General Hospital",
				Address:  "456 County Road, Townburg",
				Phone:    "555-0102",
				Distance: "15 km",
			},
			{
				Name:     "Urgent Care Clinic",
				Address:  "789 Farm Lane, Greenfield",
				Phone:    "555-0103",
				Distance: "8 km",
			},
		},
		logger: log.Named("hospitals"),
	}
}

// FindNearby returns the configured facility list regardless of location
func (p *StaticProvider) FindNearby(ctx context.Context, location string) ([]Facility, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.logger.Debug("Looking up facilities",
		logger.String("location", location),
		logger.Int("count", len(p.facilities)))

	// Copy so callers cannot mutate the shared fixture
	out := make([]Facility, len(p.facilities))
	copy(out, p.facilities)
	return out, nil
}
