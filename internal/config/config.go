package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds service configuration.
type Config struct {
	ServerAddr  string
	DatabaseURL string

	ACSBaseURL         string
	OutboundWebhookURL string

	SessionTTL        time.Duration
	OTPTTL            time.Duration
	CompletionCodeTTL time.Duration

	EvidenceDebounce time.Duration
	EvidenceCapacity int
	MinEvidence      int

	// DirectExecute skips the WiFi-change confirmation step.
	DirectExecute bool

	TechnicianTicketCap int
	ChangeLogRetention  int

	// ActorsFile seeds the in-memory actor directory at startup.
	ActorsFile string
}

// Load reads configuration from the environment, with an optional .env
// file for local development. DATABASE_URL empty means in-memory
// persistence.
func Load() (*Config, error) {
	_ = godotenv.Load()

	return &Config{
		ServerAddr:  getenv("SERVER_ADDR", "0.0.0.0:8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),

		ACSBaseURL:         getenv("ACS_BASE_URL", "http://localhost:7557"),
		OutboundWebhookURL: os.Getenv("OUTBOUND_WEBHOOK_URL"),

		SessionTTL:        parseDuration(getenv("SESSION_TTL", "15m"), 15*time.Minute),
		OTPTTL:            parseDuration(getenv("OTP_TTL", "4h"), 4*time.Hour),
		CompletionCodeTTL: parseDuration(getenv("COMPLETION_CODE_TTL", "2h"), 2*time.Hour),

		EvidenceDebounce: parseDuration(getenv("EVIDENCE_DEBOUNCE", "3s"), 3*time.Second),
		EvidenceCapacity: parseInt(getenv("EVIDENCE_CAPACITY", "10"), 10),
		MinEvidence:      parseInt(getenv("MIN_EVIDENCE", "2"), 2),

		DirectExecute: parseBool(getenv("DIRECT_EXECUTE", "false"), false),

		TechnicianTicketCap: parseInt(getenv("TECHNICIAN_TICKET_CAP", "3"), 3),
		ChangeLogRetention:  parseInt(getenv("CHANGELOG_RETENTION", "1000"), 1000),

		ActorsFile: getenv("ACTORS_FILE", "actors.json"),
	}, nil
}

func getenv(key, def string) string {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return def
	}
	return val
}

func parseDuration(val string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(val)
	if err != nil {
		return def
	}
	return d
}

func parseInt(val string, def int) int {
	n, err := strconv.Atoi(val)
	if err != nil {
		return def
	}
	return n
}

func parseBool(val string, def bool) bool {
	b, err := strconv.ParseBool(val)
	if err != nil {
		return def
	}
	return b
}
