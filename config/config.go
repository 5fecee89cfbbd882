package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"baikuk-automation/utils"
)

const (
	defaultGrisURL     = "https://gris.gg.go.kr/ost/oneStopView.do"
	defaultCarrierURL  = "https://www.tworld.co.kr/web/home"
	defaultGeocoderURL = "https://dapi.kakao.com/v2/local/search/address.json"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	AppName  string
	LogLevel string
	LogColor bool

	FluentEnabled bool
	FluentHost    string
	FluentPort    int

	HTTPHost           string
	HTTPPort           string
	CORSAllowedOrigins []string

	BrowserEngine     string
	Visible           bool
	Detach            bool
	ChromeBin         string
	PlaywrightInstall bool

	GrisURL           string
	GrisSearchTrigger string

	MaxBrowsers        int
	BrowserRateLimitMs int
	JobTTLMinutes      int
	MaxJobs            int
	JobTimeoutSeconds  int

	CrawlerCommand            string
	CarrierURL                string
	CarrierLoginID            string
	CarrierLoginPassword      string
	CarrierStepTimeoutSeconds int
	CarrierHoldSeconds        int

	KakaoAPIKey         string
	GeocoderBaseURL     string
	GeocodeRetries      int
	GeocodeRetryDelayMs int
	GeocodeConcurrency  int
	GeocodeRateLimitMs  int

	CSVInputEncoding string

	PostgresEnabled  bool
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	return &Config{
		AppName:  getEnv("APP_NAME", "baikuk-automation"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogColor: getEnvBool("LOG_COLOR", true),

		FluentEnabled: getEnvBool("FLUENTBIT_ENABLED", false),
		FluentHost:    getEnv("FLUENTBIT_HOST", "127.0.0.1"),
		FluentPort:    getEnvInt("FLUENTBIT_PORT", 24224),

		HTTPHost:           getEnv("HTTP_HOST", "0.0.0.0"),
		HTTPPort:           getEnv("HTTP_PORT", "5000"),
		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"*"}),

		BrowserEngine:     strings.ToLower(getEnv("BROWSER_ENGINE", "chromedp")),
		Visible:           getEnvBool("VISIBLE", true),
		Detach:            getEnvBool("DETACH", false),
		ChromeBin:         getEnv("CHROME_BIN", ""),
		PlaywrightInstall: getEnvBool("PLAYWRIGHT_INSTALL", false),

		GrisURL:           getEnv("GRIS_URL", defaultGrisURL),
		GrisSearchTrigger: strings.ToUpper(getEnv("GRIS_SEARCH_TRIGGER", "BUTTON")),

		MaxBrowsers:        getEnvInt("MAX_BROWSERS", 2),
		BrowserRateLimitMs: getEnvInt("BROWSER_RATE_LIMIT_MS", 0),
		JobTTLMinutes:      getEnvInt("JOB_TTL_MINUTES", 60),
		MaxJobs:            getEnvInt("MAX_JOBS", 500),
		JobTimeoutSeconds:  getEnvInt("JOB_TIMEOUT_SECONDS", 180),

		CrawlerCommand:            getEnv("CRAWLER_COMMAND", "carrier-crawler"),
		CarrierURL:                getEnv("CARRIER_URL", defaultCarrierURL),
		CarrierLoginID:            getEnv("CARRIER_LOGIN_ID", ""),
		CarrierLoginPassword:      getEnv("CARRIER_LOGIN_PASSWORD", ""),
		CarrierStepTimeoutSeconds: getEnvInt("CARRIER_STEP_TIMEOUT_SECONDS", 10),
		CarrierHoldSeconds:        getEnvInt("CARRIER_HOLD_SECONDS", 5),

		KakaoAPIKey:         getEnv("KAKAO_REST_API_KEY", ""),
		GeocoderBaseURL:     getEnv("GEOCODER_BASE_URL", defaultGeocoderURL),
		GeocodeRetries:      getEnvInt("GEOCODE_RETRIES", 3),
		GeocodeRetryDelayMs: getEnvInt("GEOCODE_RETRY_DELAY_MS", 2000),
		GeocodeConcurrency:  getEnvInt("GEOCODE_CONCURRENCY", 1),
		GeocodeRateLimitMs:  getEnvInt("GEOCODE_RATE_LIMIT_MS", 0),

		CSVInputEncoding: strings.ToLower(getEnv("CSV_INPUT_ENCODING", "utf-8")),

		PostgresEnabled:  getEnvBool("POSTGRES_ENABLED", false),
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "baikuk"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "baikuk"),
		PostgresDB:       getEnv("POSTGRES_DB", "baikuk"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
	}
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

// LoggerOptions maps the logging keys onto utils.LoggerOptions.
func (c *Config) LoggerOptions() utils.LoggerOptions {
	return utils.LoggerOptions{
		Level:         c.LogLevel,
		Color:         c.LogColor,
		FluentEnabled: c.FluentEnabled,
		FluentHost:    c.FluentHost,
		FluentPort:    c.FluentPort,
		TagPrefix:     c.AppName,
	}
}

// Addr is the listen address of the HTTP server.
func (c *Config) Addr() string {
	return c.HTTPHost + ":" + c.HTTPPort
}

// CrawlerArgv splits CrawlerCommand into program and leading arguments.
func (c *Config) CrawlerArgv() []string {
	return strings.Fields(c.CrawlerCommand)
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
		log.Printf("[config] %s=%q is not an int, using %d", key, val, fallback)
	}
	return fallback
}

// getEnvBool accepts strconv.ParseBool values; "1"/"0" keep working for VISIBLE/DETACH.
func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		b, err := strconv.ParseBool(val)
		if err == nil {
			return b
		}
		log.Printf("[config] %s=%q is not a bool, using %t", key, val, fallback)
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
