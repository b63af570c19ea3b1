package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	// Scanning
	Symbols      []string      // Symbols analyzed on every scan tick
	ScanInterval time.Duration // How often the decision source is consulted

	// Simulation
	MinConfidence  float64       // Minimum confidence required to open a position
	CloseDelayMin  time.Duration // Lower bound of the randomized close delay
	CloseDelayMax  time.Duration // Upper bound of the randomized close delay
	ExitDrift      float64       // Max relative perturbation applied to the exit price (e.g., 0.02 for ±2%)
	InitialBalance float64       // Virtual starting balance for status reporting

	// Promotion
	PromoteMinClosed       int           // Minimum closed trades before live trading is considered
	PromoteMinWinRate      float64       // Minimum win rate before live trading is considered
	PromoteMinPnL          float64       // Cumulative PnL that must be exceeded
	PromotionCheckInterval time.Duration // How often the promotion gate is re-evaluated in the background

	// Confidence stub
	ConfidenceStep  float64 // Increment applied to the confidence level on every close
	ConfidenceCap   float64 // Upper bound for the confidence level
	InitConfidence  float64 // Starting confidence level
	ScamFlagChance  float64 // Probability of the scam stub flagging an arbitrary symbol
	ScamFilterOn    bool    // Whether proposals are run through the scam filter

	// Binance API (live mode only; optional)
	APIKey    string
	SecretKey string
	IsTestnet bool

	// HTTP
	HTTPPort string

	// Database
	DBPath string

	// Logging
	LogLevel string
}

// LoadConfig loads configuration from environment variables (.env file).
func LoadConfig() (*Config, error) {
	// Load .env file, but don't fail if it doesn't exist (allow pure env vars)
	_ = godotenv.Load()

	cfg := &Config{}
	var err error
	var errs []string // Collect validation errors

	// Scanning
	symbolsStr := getEnv("SYMBOLS", "BTC/USDT,ETH/USDT,SOL/USDT")
	for _, s := range strings.Split(symbolsStr, ",") {
		if s = strings.TrimSpace(s); s != "" {
			cfg.Symbols = append(cfg.Symbols, s)
		}
	}
	if len(cfg.Symbols) == 0 {
		errs = append(errs, "SYMBOLS must list at least one symbol")
	}

	scanIntervalMs := getEnvAsInt("SCAN_INTERVAL_MS", 5000)
	if scanIntervalMs <= 0 {
		errs = append(errs, "SCAN_INTERVAL_MS must be positive")
	}
	cfg.ScanInterval = time.Duration(scanIntervalMs) * time.Millisecond

	// Simulation
	cfg.MinConfidence, err = getEnvAsFloatRequired("MIN_CONFIDENCE", 0.7)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid MIN_CONFIDENCE: %v", err))
	} else if cfg.MinConfidence < 0 || cfg.MinConfidence > 1 {
		errs = append(errs, "MIN_CONFIDENCE must be between 0.0 and 1.0")
	}

	closeDelayMinMs := getEnvAsInt("CLOSE_DELAY_MIN_MS", 30000)
	closeDelayMaxMs := getEnvAsInt("CLOSE_DELAY_MAX_MS", 300000)
	if closeDelayMinMs <= 0 || closeDelayMaxMs < closeDelayMinMs {
		errs = append(errs, "close delay window invalid: CLOSE_DELAY_MIN_MS must be positive and <= CLOSE_DELAY_MAX_MS")
	}
	cfg.CloseDelayMin = time.Duration(closeDelayMinMs) * time.Millisecond
	cfg.CloseDelayMax = time.Duration(closeDelayMaxMs) * time.Millisecond

	cfg.ExitDrift, err = getEnvAsFloatRequired("EXIT_DRIFT", 0.02)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid EXIT_DRIFT: %v", err))
	} else if cfg.ExitDrift < 0 || cfg.ExitDrift >= 1 {
		errs = append(errs, "EXIT_DRIFT must be in [0.0, 1.0)")
	}

	cfg.InitialBalance, err = getEnvAsFloatRequired("INITIAL_BALANCE", 10000.0)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid INITIAL_BALANCE: %v", err))
	} else if cfg.InitialBalance <= 0 {
		errs = append(errs, "INITIAL_BALANCE must be positive")
	}

	// Promotion
	cfg.PromoteMinClosed = getEnvAsInt("PROMOTE_MIN_CLOSED", 50)
	if cfg.PromoteMinClosed <= 0 {
		errs = append(errs, "PROMOTE_MIN_CLOSED must be positive")
	}

	cfg.PromoteMinWinRate, err = getEnvAsFloatRequired("PROMOTE_MIN_WIN_RATE", 0.75)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid PROMOTE_MIN_WIN_RATE: %v", err))
	} else if cfg.PromoteMinWinRate <= 0 || cfg.PromoteMinWinRate > 1 {
		errs = append(errs, "PROMOTE_MIN_WIN_RATE must be in (0.0, 1.0]")
	}

	cfg.PromoteMinPnL, err = getEnvAsFloatRequired("PROMOTE_MIN_PNL", 500.0)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid PROMOTE_MIN_PNL: %v", err))
	}

	promotionCheckSec := getEnvAsInt("PROMOTION_CHECK_SECONDS", 300)
	if promotionCheckSec <= 0 {
		errs = append(errs, "PROMOTION_CHECK_SECONDS must be positive")
	}
	cfg.PromotionCheckInterval = time.Duration(promotionCheckSec) * time.Second

	// Confidence stub
	cfg.ConfidenceStep = getEnvAsFloat("CONFIDENCE_STEP", 0.01)
	cfg.ConfidenceCap = getEnvAsFloat("CONFIDENCE_CAP", 0.95)
	cfg.InitConfidence = getEnvAsFloat("INIT_CONFIDENCE", 0.5)
	if cfg.ConfidenceStep < 0 || cfg.ConfidenceCap <= 0 || cfg.ConfidenceCap > 1 {
		errs = append(errs, "CONFIDENCE_STEP must be >= 0 and CONFIDENCE_CAP in (0.0, 1.0]")
	}
	if cfg.InitConfidence < 0 || cfg.InitConfidence > cfg.ConfidenceCap {
		errs = append(errs, "INIT_CONFIDENCE must be between 0.0 and CONFIDENCE_CAP")
	}

	cfg.ScamFlagChance = getEnvAsFloat("SCAM_FLAG_CHANCE", 0.05)
	if cfg.ScamFlagChance < 0 || cfg.ScamFlagChance > 1 {
		errs = append(errs, "SCAM_FLAG_CHANCE must be between 0.0 and 1.0")
	}
	cfg.ScamFilterOn = getEnvAsBool("SCAM_FILTER_ON", true)

	// Binance API (optional; live mode is refused at runtime until promoted anyway)
	cfg.APIKey = getEnv("BINANCE_API_KEY", "")
	cfg.SecretKey = getEnv("BINANCE_API_SECRET", "")
	cfg.IsTestnet = getEnvAsBool("IS_TESTNET", true) // Default to testnet for safety

	// HTTP
	cfg.HTTPPort = getEnv("HTTP_PORT", "8080")

	// Database
	cfg.DBPath = getEnv("DB_PATH", "./data/simbot.db")
	if cfg.DBPath == "" {
		errs = append(errs, "DB_PATH must be set")
	}

	// Logging
	cfg.LogLevel = getEnv("LOG_LEVEL", "info")

	// Combine validation errors
	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}

	return cfg, nil
}

// --- Env Var Helpers ---

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloatRequired(key string, defaultValue float64) (float64, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid float value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
