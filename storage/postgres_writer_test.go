package storage

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"baikuk-automation/models"
)

func TestUpsertListingsQuery(t *testing.T) {
	batch := []*models.Listing{
		{ListingID: 1, Province: "경기도", SalePrice: 50000, Geohash: "wydm6"},
		{ListingID: 2, Province: "경기도", Lat: 37.2, Lng: 127.1},
	}

	query, args := upsertListingsQuery(batch)

	assert.Len(t, args, 2*listingColumnCount)
	assert.Contains(t, query, "($1,$2,$3,")
	assert.Contains(t, query, ",$38)")
	assert.NotContains(t, query, "$39")
	assert.Contains(t, query, "ON CONFLICT (listing_id) DO UPDATE")
	assert.Equal(t, int64(1), args[0])
	assert.Equal(t, int64(2), args[listingColumnCount])
	assert.Equal(t, "wydm6", args[listingColumnCount-1])
}

func TestJobDetail(t *testing.T) {
	detail, err := jobDetail(models.Job{ID: "x"})
	require.NoError(t, err)
	assert.Nil(t, detail)

	detail, err = jobDetail(models.Job{
		LandUse: &models.LandUse{ImageURL: "https://gris/img.png"},
		Steps:   []models.StepResult{{Name: "login", OK: true}},
	})
	require.NoError(t, err)
	s, ok := detail.(string)
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(s, `{"land_use":{"image_url":"https://gris/img.png"}`))
	assert.Contains(t, s, `"steps":[{"name":"login","ok":true}]`)
}

func TestUpsertListingsQueryRepeatedIDs(t *testing.T) {
	batch := []*models.Listing{
		{ListingID: 1, SalePrice: 100},
		{ListingID: 2, SalePrice: 200},
		{ListingID: 1, SalePrice: 150},
		{ListingID: 0, SalePrice: 999},
		{ListingID: 0, SalePrice: 998},
	}

	query, args := upsertListingsQuery(batch)

	require.Len(t, args, 2*listingColumnCount)
	assert.Contains(t, query, ",$38)")
	assert.NotContains(t, query, "$39")
	assert.Equal(t, int64(2), args[0])
	assert.Equal(t, int64(1), args[listingColumnCount])
	assert.Equal(t, int64(150), args[listingColumnCount+7], "last row for a repeated id wins")
}

func TestStorableListings(t *testing.T) {
	listings := []*models.Listing{
		{ListingID: 0},
		{ListingID: 7, City: "수원시"},
		{ListingID: -3},
		{ListingID: 8},
		{ListingID: 7, City: "성남시"},
	}

	kept, skipped := storableListings(listings)

	assert.Equal(t, 2, skipped)
	require.Len(t, kept, 2)
	assert.Equal(t, int64(8), kept[0].ListingID)
	assert.Equal(t, "성남시", kept[1].City)
}
