package pdfgen

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"

	"github.com/Strob0t/PropExtract/internal/domain/property"
)

var csvHeader = []string{
	"source_url", "price", "address", "bedrooms", "bathrooms", "square_footage",
	"year_built", "lot_size", "property_type", "mls_number",
	"agent_name", "agent_phone", "agent_email", "agent_brokerage",
	"school_district", "walk_score", "transit_score", "bike_score",
	"property_tax", "hoa_fees", "insurance_cost",
	"days_on_market", "price_per_sqft", "last_sold_date", "last_sold_price",
	"features",
}

// FactsCSV exports facts as a spreadsheet, one row per listing.
func FactsCSV(facts []*property.Facts) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	for _, f := range facts {
		if f == nil {
			continue
		}
		row := []string{
			f.SourceURL, f.Price, f.Address, itoa(f.Bedrooms), ftoa(f.Bathrooms), itoa(f.SquareFootage),
			itoa(f.YearBuilt), f.LotSize, f.PropertyType, f.MLSNumber,
			f.Agent.Name, f.Agent.Phone, f.Agent.Email, f.Agent.Brokerage,
			f.Schools.District, itoa(f.Neighborhood.WalkScore), itoa(f.Neighborhood.TransitScore), itoa(f.Neighborhood.BikeScore),
			f.Financials.PropertyTax, f.Financials.HOAFees, f.Financials.Insurance,
			itoa(f.MarketStats.DaysOnMarket), f.MarketStats.PricePerSqft, f.MarketStats.LastSoldDate, f.MarketStats.LastSoldPrice,
			strings.Join(f.Features, "; "),
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

func itoa(n int) string {
	if n == 0 {
		return ""
	}
	return strconv.Itoa(n)
}

func ftoa(f float64) string {
	if f == 0 {
		return ""
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
