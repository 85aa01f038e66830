package task

import "time"

// Result is the structured property record attached 1:1 to a completed task.
// Every field is optional; nil means "not extracted".
type Result struct {
	ID     string `json:"id"`
	TaskID string `json:"task_id"`

	Price               *string  `json:"price,omitempty"`
	Address             *string  `json:"address,omitempty"`
	Bedrooms            *int     `json:"bedrooms,omitempty"`
	Bathrooms           *float64 `json:"bathrooms,omitempty"`
	SquareFootage       *int     `json:"square_footage,omitempty"`
	YearBuilt           *int     `json:"year_built,omitempty"`
	LotSize             *string  `json:"lot_size,omitempty"`
	ParkingInfo         *string  `json:"parking_info,omitempty"`
	PropertyType        *string  `json:"property_type,omitempty"`
	MLSNumber           *string  `json:"mls_number,omitempty"`
	ListingDate         *string  `json:"listing_date,omitempty"`
	PropertyDescription *string  `json:"property_description,omitempty"`

	AgentName      *string `json:"agent_name,omitempty"`
	AgentPhone     *string `json:"agent_phone,omitempty"`
	AgentEmail     *string `json:"agent_email,omitempty"`
	AgentLicense   *string `json:"agent_license,omitempty"`
	AgentBrokerage *string `json:"agent_brokerage,omitempty"`

	SchoolDistrict   *string `json:"school_district,omitempty"`
	ElementarySchool *string `json:"elementary_school,omitempty"`
	MiddleSchool     *string `json:"middle_school,omitempty"`
	HighSchool       *string `json:"high_school,omitempty"`

	WalkScore    *int `json:"walk_score,omitempty"`
	TransitScore *int `json:"transit_score,omitempty"`
	BikeScore    *int `json:"bike_score,omitempty"`

	PropertyTax   *string `json:"property_tax,omitempty"`
	HOAFees       *string `json:"hoa_fees,omitempty"`
	InsuranceCost *string `json:"insurance_cost,omitempty"`

	DaysOnMarket  *int    `json:"days_on_market,omitempty"`
	PricePerSqft  *string `json:"price_per_sqft,omitempty"`
	LastSoldDate  *string `json:"last_sold_date,omitempty"`
	LastSoldPrice *string `json:"last_sold_price,omitempty"`

	PropertyImages  []string `json:"property_images,omitempty"`
	VirtualTourURL  *string  `json:"virtual_tour_url,omitempty"`
	MapLocationURL  *string  `json:"map_location_url,omitempty"`
	Features        []string `json:"features,omitempty"`
	NearbyAmenities []string `json:"nearby_amenities,omitempty"`

	PDFURL   *string `json:"pdf_url,omitempty"`
	JSONURL  *string `json:"json_url,omitempty"`
	ExcelURL *string `json:"excel_url,omitempty"`

	// Multi-url aggregate.
	PropertiesCount *int    `json:"properties_count,omitempty"`
	AveragePrice    *int64  `json:"average_price,omitempty"`
	AverageSqft     *int    `json:"average_sqft,omitempty"`
	PriceRange      *string `json:"price_range,omitempty"`
	SqftRange       *string `json:"sqft_range,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Downloads are the artifact URLs produced for a result.
type Downloads struct {
	PDF   string `json:"pdf_url,omitempty"`
	JSON  string `json:"json_url,omitempty"`
	Excel string `json:"excel_url,omitempty"`
}

// SetDownloads copies non-empty artifact URLs onto the result.
func (r *Result) SetDownloads(d Downloads) {
	r.PDFURL = optional(d.PDF)
	r.JSONURL = optional(d.JSON)
	r.ExcelURL = optional(d.Excel)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
