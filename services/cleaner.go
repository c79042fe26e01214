package services

import (
	"database/sql"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/go-gota/gota/dataframe"

	"rental-dashboard/models"
	"rental-dashboard/storage"
	"rental-dashboard/utils"
)

// numberRegexp captures the first numeric value, allowing thousand separators.
var numberRegexp = regexp.MustCompile(`-?[\d,]+(?:\.\d+)?`)

// Cleaner transforms raw dataset rows into validated Listings for storage.
type Cleaner struct {
	logger *utils.Logger
}

// NewCleaner creates a Cleaner with the given logger.
func NewCleaner(logger *utils.Logger) *Cleaner {
	return &Cleaner{logger: logger}
}

// Clean converts every row of df into a Listing. Rows without a city are dropped.
// The city column is required; a missing column or unparsable cell leaves its
// field NULL.
func (c *Cleaner) Clean(df dataframe.DataFrame) ([]*models.Listing, error) {
	if missing := storage.MissingColumns(df, models.ColCity); len(missing) > 0 {
		return nil, models.MissingColumnError(missing...)
	}

	records := df.Records()
	if len(records) == 0 {
		return []*models.Listing{}, nil
	}
	index := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		index[name] = i
	}
	get := func(row []string, col string) string {
		if i, ok := index[col]; ok && i < len(row) {
			return row[i]
		}
		return ""
	}

	rows := records[1:]
	result := make([]*models.Listing, 0, len(rows))
	now := time.Now()

	for n, row := range rows {
		city := normaliseText(get(row, models.ColCity))
		if city == "" {
			c.logger.Warn("[cleaner] Dropping row %d with empty city", n+1)
			continue
		}

		result = append(result, &models.Listing{
			City:          city,
			Area:          c.nullable(get(row, models.ColArea)),
			Rooms:         c.nullable(get(row, models.ColRooms)),
			Bathrooms:     c.nullable(get(row, models.ColBathroom)),
			ParkingSpaces: c.nullable(get(row, models.ColParkingSpaces)),
			Floor:         normaliseText(get(row, models.ColFloor)),
			Animal:        normaliseAnimal(get(row, models.ColAnimal)),
			Furniture:     normaliseFurniture(get(row, models.ColFurniture)),
			HOA:           c.nullable(get(row, models.ColHOA)),
			RentAmount:    c.nullable(get(row, models.ColRentAmount)),
			PropertyTax:   c.nullable(get(row, models.ColPropertyTax)),
			FireInsurance: c.nullable(get(row, models.ColFireInsurance)),
			Total:         c.nullable(get(row, models.ColTotal)),
			CreatedAt:     now,
		})
	}

	c.logger.Info("[cleaner] Cleaned %d → %d listings (dropped %d)",
		len(rows), len(result), len(rows)-len(result))
	return result, nil
}

// parseNumber extracts the first number of a raw cell. ok is false when the
// cell holds no number.
// Examples:
//
//	"1200"        → 1200, true
//	"R$ 1,200.50" → 1200.5, true
//	"Sem info"    → 0, false
func (c *Cleaner) parseNumber(raw string) (float64, bool) {
	match := numberRegexp.FindString(strings.TrimSpace(raw))
	if match == "" {
		return 0, false
	}

	val, err := strconv.ParseFloat(strings.ReplaceAll(match, ",", ""), 64)
	if err != nil {
		c.logger.Debug("[cleaner] Unparsable number %q", raw)
		return 0, false
	}
	return val, true
}

// nullable parses a numeric cell into a nullable column value.
func (c *Cleaner) nullable(raw string) sql.NullFloat64 {
	v, ok := c.parseNumber(raw)
	return sql.NullFloat64{Float64: v, Valid: ok}
}

// normaliseText strips leading/trailing whitespace and collapses internal whitespace.
func normaliseText(s string) string {
	s = strings.TrimSpace(s)
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return unicode.IsSpace(r)
	})
	return strings.Join(fields, " ")
}

func normaliseAnimal(s string) models.AnimalPolicy {
	switch strings.ToLower(normaliseText(s)) {
	case "acept", "accept", "accepts", "yes":
		return models.AnimalAccepts
	case "not acept", "not accept", "rejects", "no":
		return models.AnimalRejects
	default:
		return models.AnimalPolicy(strings.ToLower(normaliseText(s)))
	}
}

func normaliseFurniture(s string) models.FurnitureStatus {
	switch strings.ToLower(normaliseText(s)) {
	case "furnished", "yes":
		return models.Furnished
	case "not furnished", "unfurnished", "no":
		return models.Unfurnished
	default:
		return models.FurnitureStatus(strings.ToLower(normaliseText(s)))
	}
}
