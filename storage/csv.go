package storage

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"baikuk-automation/models"
)

// Input encodings understood by ReadTable.
const (
	EncodingUTF8  = "utf-8"
	EncodingEUCKR = "euc-kr"
)

func decoder(encoding string) (transform.Transformer, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "", "utf-8", "utf8", "utf-8-sig":
		return unicode.UTF8BOM.NewDecoder(), nil
	case "euc-kr", "euckr", "cp949":
		return korean.EUCKR.NewDecoder(), nil
	default:
		return nil, fmt.Errorf("csv: unsupported encoding %q", encoding)
	}
}

// ReadTable loads a delimited sheet. The first record is the header.
func ReadTable(path, encoding string) (*models.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("csv: open %q: %w", path, err)
	}
	defer f.Close()

	return DecodeTable(f, encoding)
}

// DecodeTable reads a sheet from r.
func DecodeTable(r io.Reader, encoding string) (*models.Table, error) {
	dec, err := decoder(encoding)
	if err != nil {
		return nil, err
	}

	cr := csv.NewReader(transform.NewReader(r, dec))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("csv: read: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("csv: empty sheet")
	}

	header := make([]string, len(records[0]))
	for i, h := range records[0] {
		header[i] = strings.TrimSpace(h)
	}
	return &models.Table{Header: header, Rows: records[1:]}, nil
}

// WriteTable writes t as UTF-8 with a byte order mark so spreadsheet tools
// detect the encoding. Intermediate directories are created automatically.
func WriteTable(path string, t *models.Table) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("csv: create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("csv: create file %q: %w", path, err)
	}

	if err := EncodeTable(f, t); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// EncodeTable writes t to w as BOM-prefixed UTF-8.
func EncodeTable(w io.Writer, t *models.Table) error {
	tw := transform.NewWriter(w, unicode.UTF8BOM.NewEncoder())
	cw := csv.NewWriter(tw)

	if err := cw.Write(t.Header); err != nil {
		return fmt.Errorf("csv: write header: %w", err)
	}
	for _, row := range t.Rows {
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("csv: flush: %w", err)
	}
	return tw.Close()
}
