package config

import (
	"os"
	"strconv"
)

// Config holds every tunable the pipeline needs, loaded once at startup and
// passed by reference into the services. Nothing reads os.Getenv after boot,
// so tests can build a Config literal and substitute fakes freely.
type Config struct {
	Port        string
	FrontendURL string

	// Scraping job provider (Apify-style: submit task run, wait, fetch dataset)
	ApifyToken      string
	ApifyBaseURL    string
	ApifyFBTaskID   string
	ApifyEbayTaskID string
	ApifyWaitSecs   int
	SourceItemCap   int

	// Optional shopping-search provider for the generic retail path
	RetailAPIKey  string
	RetailBaseURL string

	// LLM completion provider
	OpenAIAPIKey    string
	OpenAIModel     string
	OpenAIMaxTokens int

	// Economics assumptions
	FeeRate          float64
	ShippingEstimate float64

	// Enrichment cost control
	MaxAIListings     int
	AIBatchSize       int
	ParallelAIBatches bool

	// Decision thresholds
	MinROIPct          float64
	MinConfidence      float64
	LowValueCutoff     float64
	MinProfitLowValue  float64
	MinProfitHighValue float64
	HighConfidence     float64
	MaxBuySlack        float64
	FallbackTopN       int
}

// Load reads the environment into a Config, applying the defaults the
// pipeline was tuned with.
func Load() *Config {
	return &Config{
		Port:        getEnv("PORT", "8080"),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:3000"),

		ApifyToken:      getEnv("APIFY_API_TOKEN", ""),
		ApifyBaseURL:    getEnv("APIFY_BASE_URL", "https://api.apify.com"),
		ApifyFBTaskID:   getEnv("APIFY_FB_TASK_ID", ""),
		ApifyEbayTaskID: getEnv("APIFY_EBAY_TASK_ID", ""),
		ApifyWaitSecs:   getEnvInt("APIFY_WAIT_SECS", 180),
		SourceItemCap:   getEnvInt("SOURCE_ITEM_CAP", 1000),

		RetailAPIKey:  getEnv("RETAIL_SEARCH_API_KEY", ""),
		RetailBaseURL: getEnv("RETAIL_SEARCH_BASE_URL", "https://serpapi.com"),

		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:     getEnv("OPENAI_MODEL", "gpt-4.1-mini"),
		OpenAIMaxTokens: getEnvInt("OPENAI_MAX_TOKENS", 2400),

		FeeRate:          getEnvFloat("PLATFORM_FEE_RATE", 0.13),
		ShippingEstimate: getEnvFloat("SHIPPING_ESTIMATE", 12),

		MaxAIListings:     getEnvInt("MAX_AI_LISTINGS", 500),
		AIBatchSize:       getEnvInt("AI_BATCH_SIZE", 25),
		ParallelAIBatches: getEnvBool("PARALLEL_AI_BATCHES", false),

		MinROIPct:          getEnvFloat("MIN_ROI_PCT", 12),
		MinConfidence:      getEnvFloat("MIN_CONFIDENCE", 0.45),
		LowValueCutoff:     getEnvFloat("LOW_VALUE_CUTOFF", 80),
		MinProfitLowValue:  getEnvFloat("MIN_PROFIT_LOW_VALUE", 10),
		MinProfitHighValue: getEnvFloat("MIN_PROFIT_HIGH_VALUE", 25),
		HighConfidence:     getEnvFloat("HIGH_CONFIDENCE", 0.70),
		MaxBuySlack:        getEnvFloat("MAX_BUY_SLACK", 10),
		FallbackTopN:       getEnvInt("FALLBACK_TOP_N", 50),
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return fallback
}
