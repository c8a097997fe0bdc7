package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DBPath     string
	RawMailDir string
	WorkDir    string
	OutputDir  string

	MailProvider string

	ExtractAPIBaseURL    string
	ExtractAPIKey        string
	ExtractModel         string
	ExtractTemperature   float64
	ExtractTimeoutMs     int
	ExtractRateLimitRPS  float64
	ExtractMaxAttempts   int
	ExtractMaxInputChars int

	PriceListPath   string
	BookingListPath string
	ReferencePath   string

	XeroDueDays int
	SRTSDueDays int

	GmailClientID     string
	GmailClientSecret string
	GmailRedirectURI  string
	GmailRefreshToken string

	IMAPHost     string
	IMAPPort     int
	IMAPSecure   bool
	IMAPUser     string
	IMAPPassword string
	IMAPMarkSeen bool

	MailListenerProvider     string
	MailListenerLabel        string
	MailListenerInterval     time.Duration
	MailListenerSchedule     string
	MailListenerTimezone     string
	MailListenerFetchMax     int
	MailListenerProcessBatch int
	MailListenerAutoRun      bool

	LogLevel  string
	LogFormat string
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		DBPath:     getEnv("DB_PATH", filepath.Join(cwd, "data", "freightdesk.db")),
		RawMailDir: getEnv("MAIL_RAW_DIR", filepath.Join(cwd, "data", "raw")),
		WorkDir:    getEnv("WORK_DIR", cwd),
		OutputDir:  getEnv("OUTPUT_DIR", filepath.Join(cwd, "out")),

		MailProvider: getEnv("MAIL_PROVIDER", "imap"),

		ExtractAPIBaseURL:    getEnv("EXTRACT_API_BASE_URL", "https://api.deepseek.com"),
		ExtractAPIKey:        getEnv("EXTRACT_API_KEY", ""),
		ExtractModel:         getEnv("EXTRACT_MODEL", "deepseek-chat"),
		ExtractTemperature:   getEnvFloat("EXTRACT_TEMPERATURE", 0.1),
		ExtractTimeoutMs:     getEnvInt("EXTRACT_TIMEOUT_MS", 60000),
		ExtractRateLimitRPS:  getEnvFloat("EXTRACT_RATE_LIMIT_RPS", 2),
		ExtractMaxAttempts:   getEnvInt("EXTRACT_MAX_ATTEMPTS", 4),
		ExtractMaxInputChars: getEnvInt("EXTRACT_MAX_INPUT_CHARS", 60000),

		PriceListPath:   getEnv("PRICE_LIST_PATH", ""),
		BookingListPath: getEnv("BOOKING_LIST_PATH", ""),
		ReferencePath:   getEnv("REFERENCE_PATH", ""),

		XeroDueDays: getEnvInt("XERO_DUE_DAYS", 30),
		SRTSDueDays: getEnvInt("SRTS_DUE_DAYS", 7),

		GmailClientID:     getEnv("GMAIL_CLIENT_ID", ""),
		GmailClientSecret: getEnv("GMAIL_CLIENT_SECRET", ""),
		GmailRedirectURI:  getEnv("GMAIL_REDIRECT_URI", "https://developers.google.com/oauthplayground"),
		GmailRefreshToken: getEnv("GMAIL_REFRESH_TOKEN", ""),

		IMAPHost:     getEnv("IMAP_HOST", "imap.qq.com"),
		IMAPPort:     getEnvInt("IMAP_PORT", 993),
		IMAPSecure:   getEnvBool("IMAP_SECURE", true),
		IMAPUser:     getEnv("IMAP_USER", ""),
		IMAPPassword: getEnv("IMAP_PASSWORD", ""),
		IMAPMarkSeen: getEnvBool("IMAP_MARK_SEEN", true),

		MailListenerProvider:     getEnv("MAIL_LISTENER_PROVIDER", "imap"),
		MailListenerLabel:        getEnv("MAIL_LISTENER_LABEL", "INBOX"),
		MailListenerInterval:     getEnvDuration("MAIL_LISTENER_INTERVAL", 5*time.Minute),
		MailListenerSchedule:     getEnv("MAIL_LISTENER_SCHEDULE", ""),
		MailListenerTimezone:     getEnv("MAIL_LISTENER_TZ", "Local"),
		MailListenerFetchMax:     getEnvInt("MAIL_LISTENER_FETCH_MAX", 50),
		MailListenerProcessBatch: getEnvInt("MAIL_LISTENER_PROCESS_BATCH", 50),
		MailListenerAutoRun:      getEnvBool("MAIL_LISTENER_AUTO_RUN", true),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}

	return cfg, nil
}

func (c Config) Require(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("missing required env var: %s", name)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.ToLower(strings.TrimSpace(getEnv(key, "")))
	if value == "" {
		return fallback
	}
	if value == "1" || value == "true" || value == "yes" || value == "on" {
		return true
	}
	if value == "0" || value == "false" || value == "no" || value == "off" {
		return false
	}
	return fallback
}

// getEnvDuration accepts Go durations ("90s", "5m") or a bare number of
// seconds.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := strings.TrimSpace(getEnv(key, ""))
	if value == "" {
		return fallback
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}
