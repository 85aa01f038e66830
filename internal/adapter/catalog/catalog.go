// Package catalog implements the extractor port with a fixed catalog of
// listings. No page is fetched; the listing is picked by URL substring.
package catalog

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
	"time"

	"github.com/Strob0t/PropExtract/internal/domain"
	"github.com/Strob0t/PropExtract/internal/domain/property"
	"github.com/Strob0t/PropExtract/internal/port/extractor"
)

var _ extractor.Extractor = (*Catalog)(nil)

// Catalog returns synthetic but stable facts.
type Catalog struct {
	now   func() time.Time
	delay time.Duration
}

// New creates a Catalog. delay simulates fetch latency and may be zero.
func New(delay time.Duration) *Catalog {
	return &Catalog{now: time.Now, delay: delay}
}

// FetchPropertyFacts returns the catalog entry matching url: "craigslist"
// and "redfin" select their listings, anything else the default one.
func (c *Catalog) FetchPropertyFacts(ctx context.Context, url string) (*property.Facts, error) {
	if strings.TrimSpace(url) == "" {
		return nil, fmt.Errorf("fetch facts: url: %w", domain.ErrValidation)
	}
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	f := c.base(url)
	switch {
	case strings.Contains(url, "craigslist"):
		f.Price = "$2,500,000"
		f.Address = "123 Oak Street, San Francisco, CA 94102"
		f.Bedrooms, f.Bathrooms, f.SquareFootage = 4, 3.5, 2800
		f.Agent.Name = "Michael Chen"
		f.Agent.Phone = "(415) 555-0123"
		f.Agent.Brokerage = "SF Premier Realty"
		f.Schools.District = "San Francisco Unified School District"
		f.Financials.PropertyTax = "$31,250/year"
		f.Financials.HOAFees = "$450/month"
		f.MarketStats.PricePerSqft = "$893"
		f.MarketStats.DaysOnMarket = 12
	case strings.Contains(url, "redfin"):
		f.Price = "$1,800,000"
		f.Address = "456 Pine Avenue, Berkeley, CA 94705"
		f.Bedrooms, f.Bathrooms, f.SquareFootage = 3, 2.5, 2200
		f.Agent.Name = "Jennifer Martinez"
		f.Agent.Phone = "(510) 555-0189"
		f.Agent.Brokerage = "Berkeley Hills Realty"
		f.Schools.District = "Berkeley Unified School District"
		f.Financials.PropertyTax = "$22,500/year"
		f.Financials.HOAFees = "None"
		f.MarketStats.PricePerSqft = "$818"
		f.MarketStats.DaysOnMarket = 8
	default:
		f.Price = "$3,200,000"
		f.Address = "789 Market Street, Palo Alto, CA 94301"
		f.Bedrooms, f.Bathrooms, f.SquareFootage = 5, 4, 3500
	}
	return f, nil
}

// ExtractFile returns the facts read from an uploaded listing document.
func (c *Catalog) ExtractFile(ctx context.Context, fileName string) (*property.Facts, error) {
	if strings.TrimSpace(fileName) == "" {
		return nil, fmt.Errorf("extract file: file name: %w", domain.ErrValidation)
	}
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	return &property.Facts{
		Price:         "$2,750,000",
		Address:       "321 Elm Drive, Mountain View, CA",
		Bedrooms:      4,
		Bathrooms:     3,
		SquareFootage: 2650,
	}, nil
}

func (c *Catalog) wait(ctx context.Context) error {
	if c.delay <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(c.delay):
		return nil
	}
}

func (c *Catalog) base(url string) *property.Facts {
	h := fnv.New32a()
	_, _ = h.Write([]byte(url))

	return &property.Facts{
		SourceURL:    url,
		ListingDate:  c.now().Format("1/2/2006"),
		MLSNumber:    fmt.Sprintf("MLS%06d", h.Sum32()%1_000_000),
		PropertyType: "Single Family Residence",
		YearBuilt:    1998,
		LotSize:      "0.25 acres",
		Parking:      "2 car garage",
		Description: "Stunning contemporary home featuring an open-concept design with high ceilings and abundant natural light. " +
			"The gourmet kitchen boasts premium appliances and custom cabinetry. " +
			"Master suite includes a spa-like bathroom and private balcony overlooking the landscaped grounds.",
		Agent: property.Agent{
			Name:      "Sarah Johnson",
			Phone:     "(555) 123-4567",
			Email:     "sarah.johnson@realty.com",
			License:   "CA DRE #01234567",
			Brokerage: "Premium Real Estate Group",
		},
		Schools: property.Schools{
			District:   "Palo Alto Unified School District",
			Elementary: "Addison Elementary (9/10)",
			Middle:     "JLS Middle School (8/10)",
			High:       "Palo Alto High (10/10)",
		},
		Neighborhood: property.Neighborhood{
			WalkScore:    85,
			TransitScore: 72,
			BikeScore:    78,
			NearbyAmenities: []string{
				"Whole Foods Market (0.3 mi)",
				"Stanford Shopping Center (1.2 mi)",
				"Mitchell Park (0.5 mi)",
				"Stanford University (1.8 mi)",
				"Caltrain Station (0.8 mi)",
			},
		},
		Financials: property.Financials{
			PropertyTax: "$18,500/year",
			HOAFees:     "$125/month",
			Insurance:   "$2,400/year",
		},
		MarketStats: property.MarketStats{
			DaysOnMarket:  21,
			PricePerSqft:  "$850",
			LastSoldDate:  "2018-03-15",
			LastSoldPrice: "$2,850,000",
		},
		Images: []string{
			"https://images.unsplash.com/photo-1570129477492-45c003edd2be?w=800&h=600&fit=crop",
			"https://images.unsplash.com/photo-1568605114967-8130f3a36994?w=800&h=600&fit=crop",
			"https://images.unsplash.com/photo-1560448204-e02f11c3d0e2?w=800&h=600&fit=crop",
			"https://images.unsplash.com/photo-1564013799919-ab600027ffc6?w=800&h=600&fit=crop",
			"https://images.unsplash.com/photo-1502672260266-1c1ef2d93688?w=800&h=600&fit=crop",
		},
		Features: []string{
			"Updated Kitchen with Granite Countertops",
			"Hardwood Floors Throughout",
			"Central Air & Heating",
			"Landscaped Garden with Sprinklers",
			"Stone Fireplace",
			"Walk-in Closets",
			"Stainless Steel Appliances",
			"Security System",
		},
		VirtualTour: "https://my.matterport.com/show/?m=sample123",
		MapLocation: "https://maps.google.com/maps?q=789+Market+Street+Palo+Alto+CA",
	}
}
