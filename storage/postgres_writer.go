package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"baikuk-automation/models"
	"baikuk-automation/utils"
)

const listingColumnCount = 19

// PostgresWriter persists cleaned listings and finished automation jobs.
type PostgresWriter struct {
	db     *sql.DB
	logger *utils.Logger
}

// NewPostgresWriter opens a connection to PostgreSQL, runs schema migrations,
// and returns a ready-to-use PostgresWriter.
func NewPostgresWriter(ctx context.Context, dsn string, logger *utils.Logger) (*PostgresWriter, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	retry := &utils.RetryConfig{MaxAttempts: 10, BaseDelay: 500 * time.Millisecond, Logger: logger}
	if err := retry.Do(ctx, "postgres ping", func() error { return db.PingContext(ctx) }); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: %w", err)
	}

	pw := &PostgresWriter{db: db, logger: logger}
	if err := pw.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}

	return pw, nil
}

func (pw *PostgresWriter) migrate(ctx context.Context) error {
	_, err := pw.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS listings (
			listing_id     BIGINT PRIMARY KEY,
			province       TEXT   NOT NULL DEFAULT '',
			city           TEXT   NOT NULL DEFAULT '',
			district       TEXT   NOT NULL DEFAULT '',
			address_detail TEXT   NOT NULL DEFAULT '',
			floor          BIGINT NOT NULL DEFAULT 0,
			total_floors   BIGINT NOT NULL DEFAULT 0,
			sale_price     BIGINT NOT NULL DEFAULT 0,
			deposit_price  BIGINT NOT NULL DEFAULT 0,
			monthly_rent   BIGINT NOT NULL DEFAULT 0,
			premium_price  BIGINT NOT NULL DEFAULT 0,
			total_deposit  BIGINT NOT NULL DEFAULT 0,
			total_rent     BIGINT NOT NULL DEFAULT 0,
			room_count     BIGINT NOT NULL DEFAULT 0,
			bathroom_count BIGINT NOT NULL DEFAULT 0,
			parking        BIGINT NOT NULL DEFAULT 0,
			lat            DOUBLE PRECISION NOT NULL DEFAULT 0,
			lng            DOUBLE PRECISION NOT NULL DEFAULT 0,
			geohash        VARCHAR(12) NOT NULL DEFAULT '',
			updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_listings_sale_price ON listings(sale_price);
		CREATE INDEX IF NOT EXISTS idx_listings_district   ON listings(city, district);
		CREATE INDEX IF NOT EXISTS idx_listings_geohash    ON listings(geohash);

		CREATE TABLE IF NOT EXISTS automation_jobs (
			id          UUID PRIMARY KEY,
			kind        VARCHAR(20) NOT NULL,
			address     TEXT        NOT NULL DEFAULT '',
			phone       VARCHAR(20) NOT NULL DEFAULT '',
			status      VARCHAR(10) NOT NULL,
			ok          BOOLEAN     NOT NULL DEFAULT FALSE,
			error       TEXT        NOT NULL DEFAULT '',
			detail      JSONB,
			created_at  TIMESTAMPTZ NOT NULL,
			finished_at TIMESTAMPTZ NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_automation_jobs_created ON automation_jobs(created_at);
	`)
	return err
}

// Write upserts listings keyed by listing_id in one transaction. Rows
// without a positive id cannot be keyed and are skipped.
func (pw *PostgresWriter) Write(listings []*models.Listing) error {
	listings, skipped := storableListings(listings)
	if skipped > 0 {
		pw.logger.Warn("[postgres] Skipping %d rows without a listing_id", skipped)
	}
	if len(listings) == 0 {
		return nil
	}

	ctx := context.Background()
	tx, err := pw.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("postgres: begin: %w", err)
	}
	defer tx.Rollback()

	const batchSize = 50
	for i := 0; i < len(listings); i += batchSize {
		end := i + batchSize
		if end > len(listings) {
			end = len(listings)
		}
		query, args := upsertListingsQuery(listings[i:end])
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("postgres: upsert listings: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("postgres: commit: %w", err)
	}
	return nil
}

// storableListings drops rows with a zero or negative id and keeps only the
// last row for each repeated id, in the order those last rows appear.
func storableListings(listings []*models.Listing) ([]*models.Listing, int) {
	last := make(map[int64]int, len(listings))
	skipped := 0
	for i, l := range listings {
		if l.ListingID <= 0 {
			skipped++
			continue
		}
		last[l.ListingID] = i
	}

	out := make([]*models.Listing, 0, len(last))
	for i, l := range listings {
		if l.ListingID > 0 && last[l.ListingID] == i {
			out = append(out, l)
		}
	}
	return out, skipped
}

// upsertListingsQuery builds one multi-row upsert. A statement may touch
// each listing_id only once, so repeated ids keep their last row.
func upsertListingsQuery(batch []*models.Listing) (string, []interface{}) {
	batch, _ = storableListings(batch)
	valueStrings := make([]string, 0, len(batch))
	valueArgs := make([]interface{}, 0, len(batch)*listingColumnCount)

	for idx, l := range batch {
		base := idx * listingColumnCount
		ph := make([]string, listingColumnCount)
		for k := range ph {
			ph[k] = fmt.Sprintf("$%d", base+k+1)
		}
		valueStrings = append(valueStrings, "("+strings.Join(ph, ",")+")")
		valueArgs = append(valueArgs,
			l.ListingID, l.Province, l.City, l.District, l.AddressDetail,
			l.Floor, l.TotalFloors, l.SalePrice, l.DepositPrice, l.MonthlyRent,
			l.PremiumPrice, l.TotalDeposit, l.TotalRent, l.RoomCount, l.BathroomCount,
			l.Parking, l.Lat, l.Lng, l.Geohash)
	}

	query := fmt.Sprintf(`
		INSERT INTO listings (listing_id, province, city, district, address_detail,
			floor, total_floors, sale_price, deposit_price, monthly_rent,
			premium_price, total_deposit, total_rent, room_count, bathroom_count,
			parking, lat, lng, geohash)
		VALUES %s
		ON CONFLICT (listing_id) DO UPDATE SET
			province = EXCLUDED.province, city = EXCLUDED.city, district = EXCLUDED.district,
			address_detail = EXCLUDED.address_detail, floor = EXCLUDED.floor,
			total_floors = EXCLUDED.total_floors, sale_price = EXCLUDED.sale_price,
			deposit_price = EXCLUDED.deposit_price, monthly_rent = EXCLUDED.monthly_rent,
			premium_price = EXCLUDED.premium_price, total_deposit = EXCLUDED.total_deposit,
			total_rent = EXCLUDED.total_rent, room_count = EXCLUDED.room_count,
			bathroom_count = EXCLUDED.bathroom_count, parking = EXCLUDED.parking,
			lat = EXCLUDED.lat, lng = EXCLUDED.lng, geohash = EXCLUDED.geohash,
			updated_at = NOW()
	`, strings.Join(valueStrings, ","))

	return query, valueArgs
}

// RecordJob stores a finished job. Re-recording the same id overwrites it.
func (pw *PostgresWriter) RecordJob(ctx context.Context, job models.Job) error {
	detail, err := jobDetail(job)
	if err != nil {
		return err
	}
	ok := job.OK != nil && *job.OK

	_, err = pw.db.ExecContext(ctx, `
		INSERT INTO automation_jobs (id, kind, address, phone, status, ok, error, detail, created_at, finished_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status, ok = EXCLUDED.ok, error = EXCLUDED.error,
			detail = EXCLUDED.detail, finished_at = EXCLUDED.finished_at
	`, job.ID, string(job.Kind), job.Address, job.Phone, string(job.Status), ok, job.Error,
		detail, job.CreatedAt, job.UpdatedAt)
	if err != nil {
		return fmt.Errorf("postgres: record job %s: %w", job.ID, err)
	}
	return nil
}

// jobDetail returns the JSON stored in the detail column, or nil.
func jobDetail(job models.Job) (interface{}, error) {
	if job.LandUse == nil && len(job.Steps) == 0 && len(job.Extra) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(struct {
		LandUse *models.LandUse      `json:"land_use,omitempty"`
		Steps   []models.StepResult `json:"steps,omitempty"`
		Extra   map[string]string   `json:"extra,omitempty"`
	}{job.LandUse, job.Steps, job.Extra})
	if err != nil {
		return nil, fmt.Errorf("postgres: encode job detail: %w", err)
	}
	return string(b), nil
}

func (pw *PostgresWriter) Close() error {
	return pw.db.Close()
}

// FetchAll retrieves all stored listings for the insight service.
func (pw *PostgresWriter) FetchAll() ([]*models.Listing, error) {
	rows, err := pw.db.Query(`
		SELECT listing_id, province, city, district, address_detail,
			floor, total_floors, sale_price, deposit_price, monthly_rent,
			premium_price, total_deposit, total_rent, room_count, bathroom_count,
			parking, lat, lng, geohash
		FROM listings
		ORDER BY listing_id
	`)
	if err != nil {
		return nil, fmt.Errorf("postgres: fetch all: %w", err)
	}
	defer rows.Close()

	var listings []*models.Listing
	for rows.Next() {
		l := &models.Listing{}
		if err := rows.Scan(
			&l.ListingID, &l.Province, &l.City, &l.District, &l.AddressDetail,
			&l.Floor, &l.TotalFloors, &l.SalePrice, &l.DepositPrice, &l.MonthlyRent,
			&l.PremiumPrice, &l.TotalDeposit, &l.TotalRent, &l.RoomCount, &l.BathroomCount,
			&l.Parking, &l.Lat, &l.Lng, &l.Geohash,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan row: %w", err)
		}
		listings = append(listings, l)
	}
	return listings, rows.Err()
}
