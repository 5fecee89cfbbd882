package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mmcloughlin/geohash"

	"baikuk-automation/config"
	"baikuk-automation/models"
	"baikuk-automation/utils"
)

// GeohashPrecision is the length of the geohash written next to lat/lng.
const GeohashPrecision = 9

var (
	// ErrNoResult means the address search matched nothing.
	ErrNoResult = errors.New("geocoder: no result")
	// ErrUnauthorized means the API key was rejected.
	ErrUnauthorized = errors.New("geocoder: API key rejected")
)

type kakaoResponse struct {
	Documents []struct {
		X string `json:"x"`
		Y string `json:"y"`
	} `json:"documents"`
}

// Geocoder resolves addresses through the Kakao local address search API.
type Geocoder struct {
	baseURL     string
	apiKey      string
	client      *http.Client
	retry       *utils.RetryConfig
	concurrency int
	rateLimitMs int
	logger      *utils.Logger

	mu    sync.Mutex
	cache map[string]models.Coordinate
}

// NewGeocoder creates a Geocoder. A nil client gets a 10s timeout client.
func NewGeocoder(cfg *config.Config, client *http.Client, logger *utils.Logger) *Geocoder {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Geocoder{
		baseURL: cfg.GeocoderBaseURL,
		apiKey:  cfg.KakaoAPIKey,
		client:  client,
		retry: &utils.RetryConfig{
			MaxAttempts: cfg.GeocodeRetries,
			BaseDelay:   time.Duration(cfg.GeocodeRetryDelayMs) * time.Millisecond,
			Logger:      logger,
		},
		concurrency: cfg.GeocodeConcurrency,
		rateLimitMs: cfg.GeocodeRateLimitMs,
		logger:      logger,
		cache:       make(map[string]models.Coordinate),
	}
}

// Geocode returns the coordinate of the first match. Rate limiting (429)
// and transport errors are retried; every other failure is final.
func (g *Geocoder) Geocode(ctx context.Context, address string) (models.Coordinate, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return models.Coordinate{}, ErrNoResult
	}

	g.mu.Lock()
	if c, ok := g.cache[address]; ok {
		g.mu.Unlock()
		if c.IsZero() {
			return c, ErrNoResult
		}
		return c, nil
	}
	g.mu.Unlock()

	var coord models.Coordinate
	err := g.retry.Do(ctx, "geocode "+address, func() error {
		c, err := g.lookup(ctx, address)
		coord = c
		return err
	})
	if err != nil && !errors.Is(err, ErrNoResult) {
		return models.Coordinate{}, err
	}

	g.mu.Lock()
	g.cache[address] = coord
	g.mu.Unlock()
	return coord, err
}

func (g *Geocoder) lookup(ctx context.Context, address string) (models.Coordinate, error) {
	u, err := url.Parse(g.baseURL)
	if err != nil {
		return models.Coordinate{}, utils.Permanent(fmt.Errorf("geocoder: base url: %w", err))
	}
	q := u.Query()
	q.Set("query", address)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return models.Coordinate{}, utils.Permanent(err)
	}
	req.Header.Set("Authorization", "KakaoAK "+g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return models.Coordinate{}, utils.Permanent(ctx.Err())
		}
		return models.Coordinate{}, fmt.Errorf("geocoder: request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized:
		return models.Coordinate{}, utils.Permanent(ErrUnauthorized)
	case http.StatusTooManyRequests:
		return models.Coordinate{}, errors.New("geocoder: rate limited (429)")
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return models.Coordinate{}, utils.Permanent(
			fmt.Errorf("geocoder: HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
	}

	var out kakaoResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return models.Coordinate{}, utils.Permanent(fmt.Errorf("geocoder: decode: %w", err))
	}
	if len(out.Documents) == 0 {
		return models.Coordinate{}, utils.Permanent(ErrNoResult)
	}

	lat, errLat := strconv.ParseFloat(out.Documents[0].Y, 64)
	lng, errLng := strconv.ParseFloat(out.Documents[0].X, 64)
	if errLat != nil || errLng != nil {
		return models.Coordinate{}, utils.Permanent(fmt.Errorf("geocoder: bad coordinate %q,%q",
			out.Documents[0].Y, out.Documents[0].X))
	}
	return models.Coordinate{Lat: lat, Lng: lng}, nil
}

// GeocodeStats summarises a GeocodeTable run.
type GeocodeStats struct {
	Rows     int
	Geocoded int
	Failed   int
}

// GeocodeTable appends lat, lng and geohash columns to t. Rows that cannot
// be resolved get 0, 0 and an empty geohash. Row order is preserved.
func (g *Geocoder) GeocodeTable(ctx context.Context, t *models.Table) (GeocodeStats, error) {
	for _, col := range models.AddressColumns {
		if t.Index(col) < 0 {
			return GeocodeStats{}, fmt.Errorf("geocoder: column %q not found", col)
		}
	}
	t.AddColumn(models.ColLat)
	t.AddColumn(models.ColLng)
	t.AddColumn(models.ColGeohash)

	total := len(t.Rows)
	coords := make([]models.Coordinate, total)
	var done, failed int64

	pool := utils.NewWorkerPool(g.concurrency, g.rateLimitMs)
	for i := range t.Rows {
		address := models.JoinAddress(
			t.Get(i, models.ColProvince), t.Get(i, models.ColCity),
			t.Get(i, models.ColDistrict), t.Get(i, models.ColAddressDetail),
		)
		pool.Submit(func() {
			if ctx.Err() != nil {
				atomic.AddInt64(&failed, 1)
				return
			}
			c, err := g.Geocode(ctx, address)
			n := atomic.AddInt64(&done, 1)
			if err != nil {
				atomic.AddInt64(&failed, 1)
				g.logger.Warn("[geocoder] [%d/%d] %s → %v", n, total, address, err)
				return
			}
			coords[i] = c
			g.logger.Info("[geocoder] [%d/%d] %s → %.7f, %.7f", n, total, address, c.Lat, c.Lng)
		})
	}
	pool.Wait()

	for i, c := range coords {
		t.Set(i, models.ColLat, strconv.FormatFloat(c.Lat, 'f', -1, 64))
		t.Set(i, models.ColLng, strconv.FormatFloat(c.Lng, 'f', -1, 64))
		hash := ""
		if !c.IsZero() {
			hash = geohash.EncodeWithPrecision(c.Lat, c.Lng, GeohashPrecision)
		}
		t.Set(i, models.ColGeohash, hash)
	}

	stats := GeocodeStats{Rows: total, Failed: int(failed)}
	stats.Geocoded = total - stats.Failed
	if err := ctx.Err(); err != nil {
		return stats, err
	}
	return stats, nil
}
