package services

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"

	"baikuk-automation/models"
	"baikuk-automation/utils"
)

// Cleaner normalises the listing sheet in place.
type Cleaner struct {
	logger *utils.Logger
}

// NewCleaner creates a Cleaner with the given logger.
func NewCleaner(logger *utils.Logger) *Cleaner {
	return &Cleaner{logger: logger}
}

// Clean tidies the address columns that exist and turns every integer
// column into a whole number.
func (c *Cleaner) Clean(t *models.Table) error {
	for _, col := range models.AddressColumns {
		if t.Index(col) < 0 {
			continue
		}
		for i := range t.Rows {
			t.Set(i, col, normaliseText(t.Get(i, col)))
		}
	}
	return c.CleanIntColumns(t, models.IntColumns)
}

// CleanIntColumns rewrites each cell of cols as an integer. Blank, NaN and
// "-" become 0; other values lose their thousands separators and are
// truncated toward zero. A missing column or a non-numeric cell is an error.
func (c *Cleaner) CleanIntColumns(t *models.Table, cols []string) error {
	for _, col := range cols {
		if t.Index(col) < 0 {
			return fmt.Errorf("cleaner: column %q not found", col)
		}
	}

	zeroed := 0
	for i := range t.Rows {
		for _, col := range cols {
			raw := t.Get(i, col)
			n, blank, err := parseIntCell(raw)
			if err != nil {
				return fmt.Errorf("cleaner: row %d column %q: %w", i+1, col, err)
			}
			if blank {
				zeroed++
			}
			t.Set(i, col, strconv.FormatInt(n, 10))
		}
	}

	c.logger.Info("[cleaner] Cleaned %d rows × %d columns (%d blank cells set to 0)",
		len(t.Rows), len(cols), zeroed)
	return nil
}

// parseIntCell converts one sheet cell. blank reports a cell that carried no value.
func parseIntCell(raw string) (n int64, blank bool, err error) {
	s := strings.TrimSpace(raw)
	if s == "" || s == "-" || strings.EqualFold(s, "nan") {
		return 0, true, nil
	}

	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, " ", "")
	n, err := strconv.ParseInt(s, 10, 64)
	if err == nil {
		return n, false, nil
	}
	if errors.Is(err, strconv.ErrRange) {
		return 0, false, fmt.Errorf("%q is out of range", raw)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false, fmt.Errorf("%q is not a number", raw)
	}
	if math.IsNaN(f) {
		return 0, true, nil
	}
	// float64(math.MaxInt64) rounds up to 2^63, which int64 cannot hold.
	if math.IsInf(f, 0) || f >= math.MaxInt64 || f < math.MinInt64 {
		return 0, false, fmt.Errorf("%q is out of range", raw)
	}
	return int64(math.Trunc(f)), false, nil
}

// normaliseText strips leading/trailing whitespace and collapses internal whitespace.
func normaliseText(s string) string {
	s = strings.TrimSpace(s)
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return unicode.IsSpace(r)
	})
	return strings.Join(fields, " ")
}
