package models

import (
	"database/sql"
	"time"
)

// Column names of the rental dataset, exactly as they appear in the CSV header.
const (
	ColCity          = "city"
	ColArea          = "area"
	ColRooms         = "rooms"
	ColBathroom      = "bathroom"
	ColParkingSpaces = "parking spaces"
	ColFloor         = "floor"
	ColAnimal        = "animal"
	ColFurniture     = "furniture"
	ColHOA           = "hoa (R$)"
	ColRentAmount    = "rent amount (R$)"
	ColPropertyTax   = "property tax (R$)"
	ColFireInsurance = "fire insurance (R$)"
	ColTotal         = "total (R$)"
)

// NumericColumns are parsed as floats when the dataset is loaded.
var NumericColumns = []string{
	ColArea, ColRooms, ColBathroom, ColParkingSpaces,
	ColHOA, ColRentAmount, ColPropertyTax, ColFireInsurance, ColTotal,
}

// FeeColumns are the three fee columns averaged together on the fees chart.
var FeeColumns = []string{ColHOA, ColPropertyTax, ColFireInsurance}

// AnimalPolicy is the value of the animal column.
type AnimalPolicy string

const (
	AnimalAccepts AnimalPolicy = "acept"
	AnimalRejects AnimalPolicy = "not acept"
)

// Label returns the display label for the policy.
func (a AnimalPolicy) Label() string {
	switch a {
	case AnimalAccepts:
		return "Accepts pets"
	case AnimalRejects:
		return "No pets"
	default:
		return string(a)
	}
}

// FurnitureStatus is the value of the furniture column.
type FurnitureStatus string

const (
	Furnished   FurnitureStatus = "furnished"
	Unfurnished FurnitureStatus = "not furnished"
)

// Label returns the display label for the status.
func (f FurnitureStatus) Label() string {
	switch f {
	case Furnished:
		return "Furnished"
	case Unfurnished:
		return "Not furnished"
	default:
		return string(f)
	}
}

// Number wraps a known numeric value. A zero NullFloat64 is a missing cell.
func Number(v float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: v, Valid: true}
}

// Listing is one validated row of the rental dataset, as stored in PostgreSQL.
// Numeric fields are NULL when the source cell was blank or unparsable, so
// aggregations skip them instead of counting a zero.
type Listing struct {
	ID            int64
	City          string
	Area          sql.NullFloat64
	Rooms         sql.NullFloat64
	Bathrooms     sql.NullFloat64
	ParkingSpaces sql.NullFloat64
	Floor         string
	Animal        AnimalPolicy
	Furniture     FurnitureStatus
	HOA           sql.NullFloat64
	RentAmount    sql.NullFloat64
	PropertyTax   sql.NullFloat64
	FireInsurance sql.NullFloat64
	Total         sql.NullFloat64
	CreatedAt     time.Time
}
