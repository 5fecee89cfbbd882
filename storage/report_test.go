package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"baikuk-automation/models"
)

func TestWriteReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "report.yaml")
	report := &models.ListingReport{
		TotalListings:  2,
		Geocoded:       1,
		MaxSalePrice:   90000,
		TopBySalePrice: []*models.Listing{{ListingID: 7, City: "수원시", SalePrice: 90000}},
		ByDistrict:     map[string]int{"수원시 팔달구": 2},
	}

	require.NoError(t, WriteReport(path, report))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "total_listings: 2")
	assert.Contains(t, string(raw), "listing_id: 7")

	var back models.ListingReport
	require.NoError(t, yaml.Unmarshal(raw, &back))
	assert.Equal(t, 2, back.ByDistrict["수원시 팔달구"])
	require.Len(t, back.TopBySalePrice, 1)
	assert.Equal(t, "수원시", back.TopBySalePrice[0].City)
}
