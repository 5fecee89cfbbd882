package services

import (
	"bytes"
	"strings"
	"testing"

	"baikuk-automation/models"
	"baikuk-automation/utils"
)

func sampleListings() []*models.Listing {
	return []*models.Listing{
		{ListingID: 1, City: "수원시 팔달구", District: "인계동", SalePrice: 50000, DepositPrice: 3000, MonthlyRent: 150, Lat: 37.26, Lng: 127.03},
		{ListingID: 2, City: "수원시 팔달구", District: "인계동", SalePrice: 12000, DepositPrice: 1000, MonthlyRent: 70, Lat: 37.27, Lng: 127.02},
		{ListingID: 3, City: "성남시 분당구", District: "정자동", SalePrice: 98000, Lat: 37.36, Lng: 127.11},
		{ListingID: 4, City: "성남시 분당구", District: "정자동", SalePrice: 0, DepositPrice: 2000, MonthlyRent: 110},
		{ListingID: 5, City: "용인시 수지구", District: "풍덕천동", SalePrice: 31000},
	}
}

func TestInsightCounts(t *testing.T) {
	svc := NewInsightService(utils.NewLogger())
	r := svc.Generate(sampleListings())
	if r.TotalListings != 5 {
		t.Errorf("TotalListings: got %d, want 5", r.TotalListings)
	}
	if r.Geocoded != 3 {
		t.Errorf("Geocoded: got %d, want 3", r.Geocoded)
	}
	if r.GeocodeFailures != 2 {
		t.Errorf("GeocodeFailures: got %d, want 2", r.GeocodeFailures)
	}
}

func TestInsightPrices(t *testing.T) {
	svc := NewInsightService(utils.NewLogger())
	r := svc.Generate(sampleListings())
	if r.AverageSalePrice != 47750 {
		t.Errorf("AverageSalePrice: got %.2f, want 47750", r.AverageSalePrice)
	}
	if r.MinSalePrice != 12000 {
		t.Errorf("MinSalePrice: got %d, want 12000", r.MinSalePrice)
	}
	if r.MaxSalePrice != 98000 {
		t.Errorf("MaxSalePrice: got %d, want 98000", r.MaxSalePrice)
	}
	if r.AverageDeposit != 2000 {
		t.Errorf("AverageDeposit: got %.2f, want 2000", r.AverageDeposit)
	}
	if r.AverageRent != 110 {
		t.Errorf("AverageRent: got %.2f, want 110", r.AverageRent)
	}
}

func TestInsightTopBySalePrice(t *testing.T) {
	svc := NewInsightService(utils.NewLogger())
	r := svc.Generate(sampleListings())
	if len(r.TopBySalePrice) != 4 {
		t.Fatalf("TopBySalePrice len: got %d, want 4", len(r.TopBySalePrice))
	}
	if r.TopBySalePrice[0].ListingID != 3 {
		t.Errorf("TopBySalePrice[0]: got #%d, want #3", r.TopBySalePrice[0].ListingID)
	}
	if r.TopBySalePrice[3].ListingID != 2 {
		t.Errorf("TopBySalePrice[3]: got #%d, want #2", r.TopBySalePrice[3].ListingID)
	}
}

func TestInsightDistrictGrouping(t *testing.T) {
	svc := NewInsightService(utils.NewLogger())
	r := svc.Generate(sampleListings())
	if r.ByDistrict["수원시 팔달구 인계동"] != 2 {
		t.Errorf("인계동 count: got %d, want 2", r.ByDistrict["수원시 팔달구 인계동"])
	}
	if r.ByDistrict["용인시 수지구 풍덕천동"] != 1 {
		t.Errorf("풍덕천동 count: got %d, want 1", r.ByDistrict["용인시 수지구 풍덕천동"])
	}
}

func TestInsightEmptyInput(t *testing.T) {
	svc := NewInsightService(utils.NewLogger())
	r := svc.Generate(nil)
	if r.TotalListings != 0 {
		t.Errorf("expected 0 total listings for empty input")
	}
}

func TestInsightPrint(t *testing.T) {
	var buf bytes.Buffer
	svc := NewInsightService(utils.NewLogger())
	svc.out = &buf

	svc.Print(svc.Generate(sampleListings()))

	out := buf.String()
	for _, want := range []string{"LISTING SHEET INSIGHTS", "98,000", "47,750", "수원시 팔달구 인계동"} {
		if !strings.Contains(out, want) {
			t.Errorf("Print output missing %q", want)
		}
	}
}

func TestFormatAmount(t *testing.T) {
	tests := map[float64]string{
		0:          "0",
		999:        "999",
		1000:       "1,000",
		1234567:    "1,234,567",
		-45000:     "-45,000",
		47750.4:    "47,750",
		47750.6:    "47,751",
		9876543210: "9,876,543,210",
	}
	for in, want := range tests {
		if got := formatAmount(in); got != want {
			t.Errorf("formatAmount(%v) = %q; want %q", in, got, want)
		}
	}
}
