package services

import (
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"baikuk-automation/models"
	"baikuk-automation/utils"
)

const topListings = 5

type InsightService struct {
	logger *utils.Logger
	out    io.Writer
}

func NewInsightService(logger *utils.Logger) *InsightService {
	return &InsightService{logger: logger, out: os.Stdout}
}

func (s *InsightService) Generate(listings []*models.Listing) *models.ListingReport {
	report := &models.ListingReport{
		ByDistrict: make(map[string]int),
	}

	if len(listings) == 0 {
		return report
	}

	report.TotalListings = len(listings)

	var priced []*models.Listing
	var depositTotal, rentTotal int64
	var depositCount, rentCount int

	for _, l := range listings {
		if l.Lat != 0 || l.Lng != 0 {
			report.Geocoded++
		} else {
			report.GeocodeFailures++
		}
		if l.SalePrice > 0 {
			priced = append(priced, l)
		}
		if l.DepositPrice > 0 {
			depositTotal += l.DepositPrice
			depositCount++
		}
		if l.MonthlyRent > 0 {
			rentTotal += l.MonthlyRent
			rentCount++
		}
		if key := models.JoinAddress(l.City, l.District); key != "" {
			report.ByDistrict[key]++
		}
	}

	// Sale price stats (only listings with a price)
	if len(priced) > 0 {
		report.MinSalePrice = priced[0].SalePrice
		report.MaxSalePrice = priced[0].SalePrice
		var total int64
		for _, l := range priced {
			total += l.SalePrice
			if l.SalePrice < report.MinSalePrice {
				report.MinSalePrice = l.SalePrice
			}
			if l.SalePrice > report.MaxSalePrice {
				report.MaxSalePrice = l.SalePrice
			}
		}
		report.AverageSalePrice = round2(float64(total) / float64(len(priced)))
	}
	if depositCount > 0 {
		report.AverageDeposit = round2(float64(depositTotal) / float64(depositCount))
	}
	if rentCount > 0 {
		report.AverageRent = round2(float64(rentTotal) / float64(rentCount))
	}

	sort.SliceStable(priced, func(i, j int) bool {
		return priced[i].SalePrice > priced[j].SalePrice
	})
	if len(priced) > topListings {
		report.TopBySalePrice = priced[:topListings]
	} else {
		report.TopBySalePrice = priced
	}

	return report
}

func (s *InsightService) Print(r *models.ListingReport) {
	w := s.out
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n", sep)
	fmt.Fprintf(w, "\033[1;35m  📊 LISTING SHEET INSIGHTS\033[0m\n")
	fmt.Fprintf(w, "\033[1;35m%s\033[0m\n\n", sep)

	// Overview
	fmt.Fprintf(w, "\033[1;33m  Overview\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	fmt.Fprintf(w, "  Total listings   : \033[1m%d\033[0m\n", r.TotalListings)
	fmt.Fprintf(w, "  Geocoded         : \033[1m%d\033[0m\n", r.Geocoded)
	fmt.Fprintf(w, "  Without location : \033[1m%d\033[0m\n", r.GeocodeFailures)
	fmt.Fprintln(w)

	// Price Stats
	fmt.Fprintf(w, "\033[1;33m  Price Statistics (만원)\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if r.AverageSalePrice > 0 {
		fmt.Fprintf(w, "  Average sale price : \033[1;32m%s\033[0m\n", formatAmount(r.AverageSalePrice))
		fmt.Fprintf(w, "  Minimum sale price : \033[1;32m%s\033[0m\n", formatAmount(float64(r.MinSalePrice)))
		fmt.Fprintf(w, "  Maximum sale price : \033[1;32m%s\033[0m\n", formatAmount(float64(r.MaxSalePrice)))
	} else {
		fmt.Fprintf(w, "  No sale price data available\n")
	}
	if r.AverageDeposit > 0 {
		fmt.Fprintf(w, "  Average deposit    : \033[1;32m%s\033[0m\n", formatAmount(r.AverageDeposit))
	}
	if r.AverageRent > 0 {
		fmt.Fprintf(w, "  Average rent       : \033[1;32m%s\033[0m\n", formatAmount(r.AverageRent))
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "\033[1;33m  Top %d by Sale Price\033[0m\n", topListings)
	fmt.Fprintf(w, "  %s\n", thin)
	if len(r.TopBySalePrice) == 0 {
		fmt.Fprintf(w, "  No priced listings found\n")
	} else {
		for i, l := range r.TopBySalePrice {
			label := truncate(fmt.Sprintf("#%d %s", l.ListingID, l.Address()), 38)
			fmt.Fprintf(w, "  \033[1m%d.\033[0m %-40s \033[1;32m%s\033[0m\n",
				i+1, label, formatAmount(float64(l.SalePrice)))
		}
	}
	fmt.Fprintln(w)

	// Listings by District
	fmt.Fprintf(w, "\033[1;33m  Listings by District\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if len(r.ByDistrict) == 0 {
		fmt.Fprintf(w, "  No district data\n")
	} else {
		type districtCount struct {
			name  string
			count int
		}
		var districts []districtCount
		for name, cnt := range r.ByDistrict {
			districts = append(districts, districtCount{name, cnt})
		}
		sort.Slice(districts, func(i, j int) bool {
			if districts[i].count != districts[j].count {
				return districts[i].count > districts[j].count
			}
			return districts[i].name < districts[j].name
		})
		for _, dc := range districts {
			bar := strings.Repeat("█", dc.count)
			fmt.Fprintf(w, "  %-30s %s (%d)\n", truncate(dc.name, 28), bar, dc.count)
		}
	}

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n\n", sep)
}

func round2(f float64) float64 {
	return float64(int64(f*100+0.5)) / 100
}

var amountPrinter = message.NewPrinter(language.Korean)

// formatAmount renders a whole amount with thousands separators.
func formatAmount(f float64) string {
	return amountPrinter.Sprintf("%d", int64(math.Round(f)))
}

// truncate shortens s to max runes.
func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
