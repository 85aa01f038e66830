// Package property defines the structured facts extracted for one listing
// and the arithmetic used to combine facts from several listings.
package property

import "github.com/Strob0t/PropExtract/internal/domain/task"

// Agent describes the listing agent.
type Agent struct {
	Name      string `json:"name,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Email     string `json:"email,omitempty"`
	License   string `json:"license,omitempty"`
	Brokerage string `json:"brokerage,omitempty"`
}

// Schools names the district and the assigned schools.
type Schools struct {
	District   string `json:"district,omitempty"`
	Elementary string `json:"elementary,omitempty"`
	Middle     string `json:"middle,omitempty"`
	High       string `json:"high,omitempty"`
}

// Neighborhood holds 0-100 scores and nearby amenities.
type Neighborhood struct {
	WalkScore       int      `json:"walkScore,omitempty"`
	TransitScore    int      `json:"transitScore,omitempty"`
	BikeScore       int      `json:"bikeScore,omitempty"`
	NearbyAmenities []string `json:"nearbyAmenities,omitempty"`
}

// Financials are free-text cost figures, not guaranteed numeric.
type Financials struct {
	PropertyTax string `json:"propertyTax,omitempty"`
	HOAFees     string `json:"hoaFees,omitempty"`
	Insurance   string `json:"insurance,omitempty"`
}

// MarketStats describes the listing's market position.
type MarketStats struct {
	DaysOnMarket  int    `json:"daysOnMarket,omitempty"`
	PricePerSqft  string `json:"pricePerSqFt,omitempty"`
	LastSoldDate  string `json:"lastSoldDate,omitempty"`
	LastSoldPrice string `json:"lastSoldPrice,omitempty"`
}

// Facts is everything known about a single listing.
type Facts struct {
	SourceURL     string  `json:"sourceUrl,omitempty"`
	Price         string  `json:"price,omitempty"`
	Address       string  `json:"address,omitempty"`
	Bedrooms      int     `json:"bedrooms,omitempty"`
	Bathrooms     float64 `json:"bathrooms,omitempty"`
	SquareFootage int     `json:"squareFootage,omitempty"`
	YearBuilt     int     `json:"yearBuilt,omitempty"`
	LotSize       string  `json:"lotSize,omitempty"`
	Parking       string  `json:"parking,omitempty"`
	PropertyType  string  `json:"propertyType,omitempty"`
	MLSNumber     string  `json:"mlsNumber,omitempty"`
	ListingDate   string  `json:"listingDate,omitempty"`
	Description   string  `json:"propertyDescription,omitempty"`

	Agent        Agent        `json:"agentInfo"`
	Schools      Schools      `json:"schools"`
	Neighborhood Neighborhood `json:"neighborhood"`
	Financials   Financials   `json:"financials"`
	MarketStats  MarketStats  `json:"marketStats"`

	Images      []string `json:"images,omitempty"`
	Features    []string `json:"features,omitempty"`
	VirtualTour string   `json:"virtualTour,omitempty"`
	MapLocation string   `json:"mapLocation,omitempty"`
}

// ToResult flattens the facts into a result record for taskID.
// Zero values are left unset.
func (f *Facts) ToResult(taskID string) *task.Result {
	return &task.Result{
		TaskID:              taskID,
		Price:               str(f.Price),
		Address:             str(f.Address),
		Bedrooms:            num(f.Bedrooms),
		Bathrooms:           frac(f.Bathrooms),
		SquareFootage:       num(f.SquareFootage),
		YearBuilt:           num(f.YearBuilt),
		LotSize:             str(f.LotSize),
		ParkingInfo:         str(f.Parking),
		PropertyType:        str(f.PropertyType),
		MLSNumber:           str(f.MLSNumber),
		ListingDate:         str(f.ListingDate),
		PropertyDescription: str(f.Description),

		AgentName:      str(f.Agent.Name),
		AgentPhone:     str(f.Agent.Phone),
		AgentEmail:     str(f.Agent.Email),
		AgentLicense:   str(f.Agent.License),
		AgentBrokerage: str(f.Agent.Brokerage),

		SchoolDistrict:   str(f.Schools.District),
		ElementarySchool: str(f.Schools.Elementary),
		MiddleSchool:     str(f.Schools.Middle),
		HighSchool:       str(f.Schools.High),

		WalkScore:    num(f.Neighborhood.WalkScore),
		TransitScore: num(f.Neighborhood.TransitScore),
		BikeScore:    num(f.Neighborhood.BikeScore),

		PropertyTax:   str(f.Financials.PropertyTax),
		HOAFees:       str(f.Financials.HOAFees),
		InsuranceCost: str(f.Financials.Insurance),

		DaysOnMarket:  num(f.MarketStats.DaysOnMarket),
		PricePerSqft:  str(f.MarketStats.PricePerSqft),
		LastSoldDate:  str(f.MarketStats.LastSoldDate),
		LastSoldPrice: str(f.MarketStats.LastSoldPrice),

		PropertyImages:  f.Images,
		VirtualTourURL:  str(f.VirtualTour),
		MapLocationURL:  str(f.MapLocation),
		Features:        f.Features,
		NearbyAmenities: f.Neighborhood.NearbyAmenities,
	}
}

func str(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func num(n int) *int {
	if n == 0 {
		return nil
	}
	return &n
}

func frac(f float64) *float64 {
	if f == 0 {
		return nil
	}
	return &f
}
