package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Strob0t/PropExtract/internal/domain/task"
)

const resultColumns = `id, task_id,
	price, address, bedrooms, bathrooms, square_footage, year_built, lot_size, parking_info,
	property_type, mls_number, listing_date, property_description,
	agent_name, agent_phone, agent_email, agent_license, agent_brokerage,
	school_district, elementary_school, middle_school, high_school,
	walk_score, transit_score, bike_score,
	property_tax, hoa_fees, insurance_cost,
	days_on_market, price_per_sqft, last_sold_date, last_sold_price,
	property_images, virtual_tour_url, map_location_url, features, nearby_amenities,
	pdf_url, json_url, excel_url,
	properties_count, average_price, average_sqft, price_range, sqft_range,
	created_at`

// insertResultColumns is resultColumns without id and created_at.
const insertResultColumns = `task_id,
	price, address, bedrooms, bathrooms, square_footage, year_built, lot_size, parking_info,
	property_type, mls_number, listing_date, property_description,
	agent_name, agent_phone, agent_email, agent_license, agent_brokerage,
	school_district, elementary_school, middle_school, high_school,
	walk_score, transit_score, bike_score,
	property_tax, hoa_fees, insurance_cost,
	days_on_market, price_per_sqft, last_sold_date, last_sold_price,
	property_images, virtual_tour_url, map_location_url, features, nearby_amenities,
	pdf_url, json_url, excel_url,
	properties_count, average_price, average_sqft, price_range, sqft_range`

func insertResult(ctx context.Context, tx pgx.Tx, taskID string, r *task.Result) error {
	if r == nil {
		r = &task.Result{}
	}
	_, err := tx.Exec(ctx,
		`INSERT INTO extracted_data (`+insertResultColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20,
		         $21, $22, $23, $24, $25, $26, $27, $28, $29, $30, $31, $32, $33, $34, $35, $36, $37, $38, $39, $40,
		         $41, $42, $43, $44, $45)`,
		taskID,
		r.Price, r.Address, r.Bedrooms, r.Bathrooms, r.SquareFootage, r.YearBuilt, r.LotSize, r.ParkingInfo,
		r.PropertyType, r.MLSNumber, r.ListingDate, r.PropertyDescription,
		r.AgentName, r.AgentPhone, r.AgentEmail, r.AgentLicense, r.AgentBrokerage,
		r.SchoolDistrict, r.ElementarySchool, r.MiddleSchool, r.HighSchool,
		r.WalkScore, r.TransitScore, r.BikeScore,
		r.PropertyTax, r.HOAFees, r.InsuranceCost,
		r.DaysOnMarket, r.PricePerSqft, r.LastSoldDate, r.LastSoldPrice,
		r.PropertyImages, r.VirtualTourURL, r.MapLocationURL, r.Features, r.NearbyAmenities,
		r.PDFURL, r.JSONURL, r.ExcelURL,
		r.PropertiesCount, r.AveragePrice, r.AverageSqft, r.PriceRange, r.SqftRange,
	)
	if err != nil {
		return fmt.Errorf("insert result for %s: %w", taskID, err)
	}
	return nil
}

// --- Results ---

func (s *Store) ListResults(ctx context.Context) ([]task.Result, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+resultColumns+` FROM extracted_data`)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	defer rows.Close()

	var results []task.Result
	for rows.Next() {
		r, err := scanResult(rows)
		if err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		results = append(results, r)
	}
	return orEmpty(results), rows.Err()
}

func (s *Store) GetResult(ctx context.Context, taskID string) (*task.Result, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+resultColumns+` FROM extracted_data WHERE task_id = $1`, taskID)
	r, err := scanResult(row)
	if err != nil {
		return nil, wrapErr(err, "get result for %s", taskID)
	}
	return &r, nil
}

func scanResult(row scannable) (task.Result, error) {
	var r task.Result
	err := row.Scan(&r.ID, &r.TaskID,
		&r.Price, &r.Address, &r.Bedrooms, &r.Bathrooms, &r.SquareFootage, &r.YearBuilt, &r.LotSize, &r.ParkingInfo,
		&r.PropertyType, &r.MLSNumber, &r.ListingDate, &r.PropertyDescription,
		&r.AgentName, &r.AgentPhone, &r.AgentEmail, &r.AgentLicense, &r.AgentBrokerage,
		&r.SchoolDistrict, &r.ElementarySchool, &r.MiddleSchool, &r.HighSchool,
		&r.WalkScore, &r.TransitScore, &r.BikeScore,
		&r.PropertyTax, &r.HOAFees, &r.InsuranceCost,
		&r.DaysOnMarket, &r.PricePerSqft, &r.LastSoldDate, &r.LastSoldPrice,
		&r.PropertyImages, &r.VirtualTourURL, &r.MapLocationURL, &r.Features, &r.NearbyAmenities,
		&r.PDFURL, &r.JSONURL, &r.ExcelURL,
		&r.PropertiesCount, &r.AveragePrice, &r.AverageSqft, &r.PriceRange, &r.SqftRange,
		&r.CreatedAt,
	)
	return r, err
}
