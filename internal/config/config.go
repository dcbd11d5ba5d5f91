package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port        string
	HTTPTimeout time.Duration

	// WhatsApp Cloud API
	WhatsAppVerifyToken   string
	WhatsAppToken         string
	WhatsAppPhoneNumberID string
	WhatsAppAPIURL        string
	WhatsAppAppSecret     string

	// Groq (speech-to-text and classification)
	GroqAPIKey          string
	GroqAPIURL          string
	GroqTranscribeModel string
	GroqChatModel       string

	TranscribeMaxAttempts int
	TranscribeRetryDelay  time.Duration

	// Backend selection
	DataBackend string

	// Google Sheets / Drive
	GoogleSpreadsheetID string
	GoogleSheetName     string
	GoogleDriveFolderID string
	LedgerDirectory     string

	// Ledger defaults
	DefaultCurrency string
	LedgerTimezone  string

	// Worker
	WorkerConcurrency int
	WorkerQueueDepth  int

	// Dedup eviction, zero keeps every media id for the process lifetime
	DedupTTL time.Duration

	LogLevel string
}

func Load() *Config {
	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		HTTPTimeout: getEnvDuration("HTTP_TIMEOUT", 30*time.Second),

		WhatsAppVerifyToken:   getEnv("WHATSAPP_VERIFY_TOKEN", ""),
		WhatsAppToken:         getEnv("WHATSAPP_TOKEN", ""),
		WhatsAppPhoneNumberID: getEnv("WHATSAPP_PHONE_NUMBER_ID", ""),
		WhatsAppAPIURL:        getEnv("WHATSAPP_API_URL", "https://graph.facebook.com/v21.0"),
		WhatsAppAppSecret:     getEnv("WHATSAPP_APP_SECRET", ""),

		GroqAPIKey:          getEnv("GROQ_API_KEY", ""),
		GroqAPIURL:          getEnv("GROQ_API_URL", "https://api.groq.com/openai/v1"),
		GroqTranscribeModel: getEnv("GROQ_TRANSCRIBE_MODEL", "whisper-large-v3"),
		GroqChatModel:       getEnv("GROQ_CHAT_MODEL", "llama-3.3-70b-versatile"),

		TranscribeMaxAttempts: getEnvInt("TRANSCRIBE_MAX_ATTEMPTS", 3),
		TranscribeRetryDelay:  getEnvDuration("TRANSCRIBE_RETRY_DELAY", time.Second),

		DataBackend: getEnv("DATA_BACKEND", "memory"),

		GoogleSpreadsheetID: getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:     getEnv("GOOGLE_SHEET_NAME", "Sheet1"),
		GoogleDriveFolderID: getEnv("GOOGLE_DRIVE_FOLDER_ID", ""),
		LedgerDirectory:     getEnv("LEDGER_DIRECTORY", ""),

		DefaultCurrency: getEnv("DEFAULT_CURRENCY", "PKR"),
		LedgerTimezone:  getEnv("LEDGER_TIMEZONE", "UTC"),

		WorkerConcurrency: getEnvInt("WORKER_CONCURRENCY", 4),
		WorkerQueueDepth:  getEnvInt("WORKER_QUEUE_DEPTH", 64),

		DedupTTL: getEnvDuration("DEDUP_TTL", 0),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	// Validate data backend
	validBackends := []string{"memory", "sheets"}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.WhatsAppVerifyToken == "" {
		errors = append(errors, "WHATSAPP_VERIFY_TOKEN is required")
	}
	if c.WhatsAppToken == "" {
		errors = append(errors, "WHATSAPP_TOKEN is required")
	}
	if c.WhatsAppPhoneNumberID == "" {
		errors = append(errors, "WHATSAPP_PHONE_NUMBER_ID is required")
	}
	if c.GroqAPIKey == "" {
		errors = append(errors, "GROQ_API_KEY is required")
	}

	for _, u := range []struct{ name, raw string }{
		{"WHATSAPP_API_URL", c.WhatsAppAPIURL},
		{"GROQ_API_URL", c.GroqAPIURL},
	} {
		if parsed, err := url.Parse(u.raw); err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
			errors = append(errors, fmt.Sprintf("invalid %s '%s': must be an http(s) URL", u.name, u.raw))
		}
	}

	// Validate Google Sheets configuration if backend is sheets
	if c.DataBackend == "sheets" {
		if c.GoogleSpreadsheetID == "" && c.LedgerDirectory == "" {
			errors = append(errors, "GOOGLE_SPREADSHEET_ID or LEDGER_DIRECTORY is required when using sheets backend")
		}
		if c.GoogleSheetName == "" {
			errors = append(errors, "Google Sheet name is required when using sheets backend")
		}
	}

	if _, err := ParseDirectory(c.LedgerDirectory); err != nil {
		errors = append(errors, err.Error())
	}

	if len(strings.TrimSpace(c.DefaultCurrency)) != 3 {
		errors = append(errors, fmt.Sprintf("invalid default currency '%s': must be a 3-letter code", c.DefaultCurrency))
	}
	if _, err := time.LoadLocation(c.LedgerTimezone); err != nil {
		errors = append(errors, fmt.Sprintf("invalid ledger timezone '%s': %v", c.LedgerTimezone, err))
	}

	if c.HTTPTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("invalid http timeout %v: must be positive", c.HTTPTimeout))
	}

	// Validate worker configuration
	if c.WorkerConcurrency < 1 {
		errors = append(errors, fmt.Sprintf("invalid worker concurrency %d: must be at least 1", c.WorkerConcurrency))
	}
	if c.WorkerQueueDepth < c.WorkerConcurrency {
		errors = append(errors, fmt.Sprintf("invalid worker queue depth %d: must be at least the worker concurrency", c.WorkerQueueDepth))
	}

	if c.TranscribeMaxAttempts < 1 {
		errors = append(errors, fmt.Sprintf("invalid transcribe max attempts %d: must be at least 1", c.TranscribeMaxAttempts))
	}
	if c.TranscribeRetryDelay < 0 {
		errors = append(errors, fmt.Sprintf("invalid transcribe retry delay %v: must not be negative", c.TranscribeRetryDelay))
	}
	if c.DedupTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid dedup ttl %v: must not be negative", c.DedupTTL))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// Location returns the ledger timezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.LedgerTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ParseDirectory parses LEDGER_DIRECTORY entries of the form
// "+15550001=sheetA,+15550002=sheetB".
func ParseDirectory(raw string) (map[string]string, error) {
	out := map[string]string{}
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		sender, ledgerID, ok := strings.Cut(entry, "=")
		sender, ledgerID = strings.TrimSpace(sender), strings.TrimSpace(ledgerID)
		if !ok || sender == "" || ledgerID == "" {
			return nil, fmt.Errorf("invalid ledger directory entry '%s': want sender=ledger_id", entry)
		}
		out[sender] = ledgerID
	}
	return out, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
