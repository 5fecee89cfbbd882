package models

import (
	"strconv"
	"strings"
)

// Column names of the listing sheet exported from the back office.
const (
	ColListingID     = "listing_id"
	ColProvince      = "province"
	ColCity          = "city"
	ColDistrict      = "district"
	ColAddressDetail = "address_detail"
	ColFloor         = "floor"
	ColTotalFloors   = "total_floors"
	ColSalePrice     = "sale_price"
	ColDepositPrice  = "deposit_price"
	ColMonthlyRent   = "monthly_rent"
	ColPremiumPrice  = "premium_price"
	ColTotalDeposit  = "total_deposit"
	ColTotalRent     = "total_rent"
	ColRoomCount     = "room_count"
	ColBathroomCount = "bathroom_count"
	ColParking       = "parking"
	ColLat           = "lat"
	ColLng           = "lng"
	ColGeohash       = "geohash"
)

// IntColumns are normalised to whole numbers by the cleaner.
var IntColumns = []string{
	ColListingID, ColFloor, ColTotalFloors, ColSalePrice, ColDepositPrice, ColMonthlyRent,
	ColPremiumPrice, ColTotalDeposit, ColTotalRent, ColRoomCount, ColBathroomCount, ColParking,
}

// AddressColumns make up the geocoding query, in order.
var AddressColumns = []string{ColProvince, ColCity, ColDistrict, ColAddressDetail}

// Table is a flat delimited sheet: one header row plus data rows.
// Column order is preserved on write.
type Table struct {
	Header []string
	Rows   [][]string
}

// Index returns the position of col in the header, or -1.
func (t *Table) Index(col string) int {
	for i, h := range t.Header {
		if h == col {
			return i
		}
	}
	return -1
}

// Get returns the cell at (row, col), or "" when either is out of range.
func (t *Table) Get(row int, col string) string {
	idx := t.Index(col)
	if idx < 0 || row < 0 || row >= len(t.Rows) || idx >= len(t.Rows[row]) {
		return ""
	}
	return t.Rows[row][idx]
}

// Set writes v into (row, col), padding short rows. Unknown columns are ignored.
func (t *Table) Set(row int, col, v string) {
	idx := t.Index(col)
	if idx < 0 || row < 0 || row >= len(t.Rows) {
		return
	}
	for len(t.Rows[row]) <= idx {
		t.Rows[row] = append(t.Rows[row], "")
	}
	t.Rows[row][idx] = v
}

// AddColumn appends col to the header if missing and returns its index.
func (t *Table) AddColumn(col string) int {
	if idx := t.Index(col); idx >= 0 {
		return idx
	}
	t.Header = append(t.Header, col)
	idx := len(t.Header) - 1
	for i := range t.Rows {
		for len(t.Rows[i]) <= idx {
			t.Rows[i] = append(t.Rows[i], "")
		}
	}
	return idx
}

// Coordinate is a WGS84 point.
type Coordinate struct {
	Lat float64
	Lng float64
}

// IsZero reports the (0, 0) "not found" coordinate.
func (c Coordinate) IsZero() bool {
	return c.Lat == 0 && c.Lng == 0
}

// Listing is the typed view of one cleaned sheet row.
type Listing struct {
	ListingID     int64   `yaml:"listing_id"`
	Province      string  `yaml:"province"`
	City          string  `yaml:"city"`
	District      string  `yaml:"district"`
	AddressDetail string  `yaml:"address_detail"`
	Floor         int64   `yaml:"floor"`
	TotalFloors   int64   `yaml:"total_floors"`
	SalePrice     int64   `yaml:"sale_price"`
	DepositPrice  int64   `yaml:"deposit_price"`
	MonthlyRent   int64   `yaml:"monthly_rent"`
	PremiumPrice  int64   `yaml:"premium_price"`
	TotalDeposit  int64   `yaml:"total_deposit"`
	TotalRent     int64   `yaml:"total_rent"`
	RoomCount     int64   `yaml:"room_count"`
	BathroomCount int64   `yaml:"bathroom_count"`
	Parking       int64   `yaml:"parking"`
	Lat           float64 `yaml:"lat"`
	Lng           float64 `yaml:"lng"`
	Geohash       string  `yaml:"geohash"`
}

// Address joins the address parts with single spaces, skipping blanks.
func (l *Listing) Address() string {
	return JoinAddress(l.Province, l.City, l.District, l.AddressDetail)
}

// JoinAddress joins non-blank parts with single spaces.
func JoinAddress(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}

// ListingFromRow builds a Listing from row i of t. Non-numeric cells read as 0.
func ListingFromRow(t *Table, i int) *Listing {
	num := func(col string) int64 {
		n, _ := strconv.ParseInt(strings.TrimSpace(t.Get(i, col)), 10, 64)
		return n
	}
	flt := func(col string) float64 {
		f, _ := strconv.ParseFloat(strings.TrimSpace(t.Get(i, col)), 64)
		return f
	}
	return &Listing{
		ListingID:     num(ColListingID),
		Province:      t.Get(i, ColProvince),
		City:          t.Get(i, ColCity),
		District:      t.Get(i, ColDistrict),
		AddressDetail: t.Get(i, ColAddressDetail),
		Floor:         num(ColFloor),
		TotalFloors:   num(ColTotalFloors),
		SalePrice:     num(ColSalePrice),
		DepositPrice:  num(ColDepositPrice),
		MonthlyRent:   num(ColMonthlyRent),
		PremiumPrice:  num(ColPremiumPrice),
		TotalDeposit:  num(ColTotalDeposit),
		TotalRent:     num(ColTotalRent),
		RoomCount:     num(ColRoomCount),
		BathroomCount: num(ColBathroomCount),
		Parking:       num(ColParking),
		Lat:           flt(ColLat),
		Lng:           flt(ColLng),
		Geohash:       t.Get(i, ColGeohash),
	}
}

// ListingsFromTable converts every row of t.
func ListingsFromTable(t *Table) []*Listing {
	out := make([]*Listing, 0, len(t.Rows))
	for i := range t.Rows {
		out = append(out, ListingFromRow(t, i))
	}
	return out
}

// ListingReport holds the computed analytics over the cleaned sheet.
type ListingReport struct {
	TotalListings    int            `yaml:"total_listings"`
	Geocoded         int            `yaml:"geocoded"`
	GeocodeFailures  int            `yaml:"geocode_failures"`
	AverageSalePrice float64        `yaml:"average_sale_price"`
	MinSalePrice     int64          `yaml:"min_sale_price"`
	MaxSalePrice     int64          `yaml:"max_sale_price"`
	AverageDeposit   float64        `yaml:"average_deposit"`
	AverageRent      float64        `yaml:"average_rent"`
	TopBySalePrice   []*Listing     `yaml:"top_by_sale_price"`
	ByDistrict       map[string]int `yaml:"by_district"`
}
