package services

import (
	"strings"
	"testing"

	"baikuk-automation/models"
	"baikuk-automation/utils"
)

func newTestLogger() *utils.Logger { return utils.NewLogger() }

func TestParseIntCell(t *testing.T) {
	tests := []struct {
		raw       string
		want      int64
		wantBlank bool
		wantErr   bool
	}{
		{"", 0, true, false},
		{"  ", 0, true, false},
		{"-", 0, true, false},
		{" - ", 0, true, false},
		{"NaN", 0, true, false},
		{"nan", 0, true, false},
		{"12", 12, false, false},
		{"1,234,000", 1234000, false, false},
		{"3.9", 3, false, false},
		{"-2.5", -2, false, false},
		{"1,500.0", 1500, false, false},
		{"1 000", 1000, false, false},
		{"abc", 0, false, true},
		{"1e400", 0, false, true},
		{"9223372036854775807", 9223372036854775807, false, false},
		{"-9223372036854775808", -9223372036854775808, false, false},
		{"9223372036854775808", 0, false, true},
		{"-9223372036854775809", 0, false, true},
		{"9,223,372,036,854,775,808", 0, false, true},
		{"9.3e18", 0, false, true},
	}

	for _, tt := range tests {
		got, blank, err := parseIntCell(tt.raw)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseIntCell(%q) error = %v; wantErr %t", tt.raw, err, tt.wantErr)
			continue
		}
		if got != tt.want || blank != tt.wantBlank {
			t.Errorf("parseIntCell(%q) = %d, %t; want %d, %t", tt.raw, got, blank, tt.want, tt.wantBlank)
		}
	}
}

func TestCleanerCleanIntColumns(t *testing.T) {
	c := NewCleaner(newTestLogger())
	table := &models.Table{
		Header: []string{"listing_id", "title", "sale_price", "floor"},
		Rows: [][]string{
			{"101", "역세권 상가", "1,200,000", "3"},
			{"102.0", "코너 상가", "-", ""},
			{"103", "1층", "45000.7"},
		},
	}

	if err := c.CleanIntColumns(table, []string{"listing_id", "sale_price", "floor"}); err != nil {
		t.Fatalf("CleanIntColumns: %v", err)
	}

	want := [][]string{
		{"101", "역세권 상가", "1200000", "3"},
		{"102", "코너 상가", "0", "0"},
		{"103", "1층", "45000", "0"},
	}
	for i, row := range want {
		for j, cell := range row {
			if table.Rows[i][j] != cell {
				t.Errorf("row %d col %d = %q; want %q", i, j, table.Rows[i][j], cell)
			}
		}
	}
}

func TestCleanerMissingColumn(t *testing.T) {
	c := NewCleaner(newTestLogger())
	table := &models.Table{Header: []string{"listing_id"}, Rows: [][]string{{"1"}}}

	err := c.CleanIntColumns(table, []string{"listing_id", "parking"})
	if err == nil || !strings.Contains(err.Error(), "parking") {
		t.Fatalf("expected missing parking column error, got %v", err)
	}
}

func TestCleanerBadValueNamesRow(t *testing.T) {
	c := NewCleaner(newTestLogger())
	table := &models.Table{
		Header: []string{"room_count"},
		Rows:   [][]string{{"2"}, {"두개"}},
	}

	err := c.CleanIntColumns(table, []string{"room_count"})
	if err == nil {
		t.Fatal("expected an error for a non-numeric cell")
	}
	if !strings.Contains(err.Error(), "row 2") || !strings.Contains(err.Error(), "room_count") {
		t.Errorf("error %q should name row and column", err)
	}
}

func TestCleanerCleanNormalisesAddress(t *testing.T) {
	c := NewCleaner(newTestLogger())
	header := append([]string{"province", "city", "district", "address_detail"}, models.IntColumns...)
	row := []string{" 경기도 ", "수원시  팔달구", "인계동", "\t1034-5 "}
	for range models.IntColumns {
		row = append(row, "1")
	}
	table := &models.Table{Header: header, Rows: [][]string{row}}

	if err := c.Clean(table); err != nil {
		t.Fatalf("Clean: %v", err)
	}

	got := models.ListingFromRow(table, 0).Address()
	if got != "경기도 수원시 팔달구 인계동 1034-5" {
		t.Errorf("Address() = %q", got)
	}
}
