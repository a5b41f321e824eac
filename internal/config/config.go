package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds every runtime setting of the api and worker binaries.
type Config struct {
	Env      string
	Port     string
	RunLocal bool

	// storage
	StorageBackend string // file | sqlite | redis | dynamodb | memory
	SlotName       string
	FilePath       string
	SQLitePath     string
	RedisAddr      string
	SlotTable      string

	// remote sync
	SyncTransport   string // http | sqs | none
	APIBaseURL      string
	QueueURL        string
	RequestTimeout  time.Duration
	PollingInterval time.Duration
	LedgerTable     string
	LedgerTTL       time.Duration

	// pricing
	ShippingFee   decimal.Decimal
	CustomerEmail string

	MetricsEnabled   bool
	MetricsNamespace string

	JWTSecret string
}

// Load reads an optional .env file and then the process environment.
func Load() (Config, error) {
	// a missing .env is normal outside local development
	_ = godotenv.Load()

	cfg := Config{
		Env:              getenvDefault("APP_ENV", "development"),
		Port:             getenvDefault("PORT", "8080"),
		RunLocal:         getenvBool("RUN_LOCAL", false),
		StorageBackend:   strings.ToLower(getenvDefault("STORAGE_BACKEND", "file")),
		SlotName:         getenvDefault("STORAGE_SLOT", "pendingOrders"),
		FilePath:         getenvDefault("STORAGE_FILE", "./data/pendingOrders.json"),
		SQLitePath:       getenvDefault("SQLITE_PATH", "./data/orders.db"),
		RedisAddr:        getenvDefault("REDIS_ADDR", "localhost:6379"),
		SlotTable:        getenvDefault("SLOT_TABLE", "storefront-slots"),
		SyncTransport:    strings.ToLower(getenvDefault("SYNC_TRANSPORT", "http")),
		APIBaseURL:       strings.TrimRight(os.Getenv("API_BASE_URL"), "/"),
		QueueURL:         os.Getenv("ORDERS_QUEUE_URL"),
		LedgerTable:      os.Getenv("LEDGER_TABLE"),
		CustomerEmail:    getenvDefault("CUSTOMER_EMAIL", "mobile@user.com"),
		MetricsEnabled:   getenvBool("METRICS_ENABLED", false),
		MetricsNamespace: getenvDefault("METRICS_NAMESPACE", "Storefront/Orders"),
		JWTSecret:        os.Getenv("JWT_SECRET"),
	}

	var err error
	if cfg.RequestTimeout, err = getenvDuration("REQUEST_TIMEOUT", 30*time.Second); err != nil {
		return cfg, err
	}
	if cfg.PollingInterval, err = getenvDuration("POLLING_INTERVAL", 10*time.Second); err != nil {
		return cfg, err
	}
	if cfg.LedgerTTL, err = getenvDuration("LEDGER_TTL", 48*time.Hour); err != nil {
		return cfg, err
	}

	fee := getenvDefault("SHIPPING_FEE", "5.00")
	cfg.ShippingFee, err = decimal.NewFromString(fee)
	if err != nil {
		return cfg, fmt.Errorf("invalid SHIPPING_FEE %q: %w", fee, err)
	}
	if cfg.ShippingFee.IsNegative() {
		return cfg, fmt.Errorf("invalid SHIPPING_FEE %q: must not be negative", fee)
	}

	if cfg.SyncTransport == "http" && cfg.APIBaseURL == "" {
		return cfg, fmt.Errorf("API_BASE_URL is required when SYNC_TRANSPORT=http")
	}
	if cfg.SyncTransport == "sqs" && cfg.QueueURL == "" {
		return cfg, fmt.Errorf("ORDERS_QUEUE_URL is required when SYNC_TRANSPORT=sqs")
	}
	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch v {
	case "":
		return def
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

func getenvDuration(key string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	var d time.Duration
	// bare integers are milliseconds, matching the mobile client's settings
	if ms, err := strconv.Atoi(v); err == nil {
		d = time.Duration(ms) * time.Millisecond
	} else if d, err = time.ParseDuration(v); err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be positive", key, v)
	}
	return d, nil
}
