package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config carries every externally supplied knob of the assistant. The
// core never hardcodes TTLs or thresholds; main.go loads this once and
// passes it down.
type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Session  SessionConfig
	Feedback FeedbackConfig
	Search   SearchConfig
	Twilio   TwilioConfig
	NLU      NLUConfig
}

type AppConfig struct {
	Port           string
	Environment    string
	UseMemoryStore bool
	// webhook signature validation secret; empty disables validation
	WebhookSecret string
	MenuDebounce  time.Duration
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	// Cloud SQL instance for unix-socket connections; empty means TCP
	InstanceConnectionName string
}

type SessionConfig struct {
	// how long a CUIT verification stays valid
	VerificationTTL time.Duration
}

type FeedbackConfig struct {
	ScanInterval time.Duration
	// inactivity before a session becomes a feedback candidate
	InactivityThreshold time.Duration
	// minimum gap between two prompts to the same customer
	Cooldown time.Duration
	// sessions idle longer than this are unreachable for the cycle
	ResponseWindow time.Duration
}

type SearchConfig struct {
	MaxDisambigRounds int
}

type TwilioConfig struct {
	AccountSID   string
	AuthToken    string
	WhatsAppFrom string
	// content template SIDs for interactive sends
	ButtonsTemplateSID string
	ListTemplateSID    string
}

type NLUConfig struct {
	OllamaBaseURL string
	OllamaModel   string
}

// Load reads .env (when present) and the process environment.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, using system environment")
	}

	return &Config{
		App: AppConfig{
			Port:           getEnv("PORT", "8080"),
			Environment:    getEnv("ENVIRONMENT", "development"),
			UseMemoryStore: getEnv("USE_MEMORY_STORE", "") == "true",
			WebhookSecret:  getEnv("WEBHOOK_APP_SECRET", ""),
			MenuDebounce:   getEnvAsDuration("MENU_DEBOUNCE", 30*time.Second),
		},
		Database: DatabaseConfig{
			Host:                   getEnv("DB_HOST", "localhost"),
			Port:                   getEnv("DB_PORT", "5432"),
			User:                   getEnv("DB_USER", "postgres"),
			Password:               getEnv("DB_PASS", ""),
			Name:                   getEnv("DB_NAME", "asistente"),
			InstanceConnectionName: getEnv("INSTANCE_CONNECTION_NAME", ""),
		},
		Session: SessionConfig{
			VerificationTTL: time.Duration(getEnvAsInt("VERIFICATION_TTL_DAYS", 60)) * 24 * time.Hour,
		},
		Feedback: FeedbackConfig{
			ScanInterval:        getEnvAsDuration("FEEDBACK_SCAN_INTERVAL", time.Minute),
			InactivityThreshold: getEnvAsDuration("INACTIVITY_THRESHOLD", 15*time.Minute),
			Cooldown:            getEnvAsDuration("FEEDBACK_COOLDOWN", 24*time.Hour),
			ResponseWindow:      getEnvAsDuration("FEEDBACK_RESPONSE_WINDOW", 24*time.Hour),
		},
		Search: SearchConfig{
			MaxDisambigRounds: getEnvAsInt("MAX_DISAMBIG_ROUNDS", 2),
		},
		Twilio: TwilioConfig{
			AccountSID:         getEnv("TWILIO_ACCOUNT_SID", ""),
			AuthToken:          getEnv("TWILIO_AUTH_TOKEN", ""),
			WhatsAppFrom:       getEnv("TWILIO_WHATSAPP_FROM", ""),
			ButtonsTemplateSID: getEnv("TWILIO_BUTTONS_TEMPLATE_SID", ""),
			ListTemplateSID:    getEnv("TWILIO_LIST_TEMPLATE_SID", ""),
		},
		NLU: NLUConfig{
			OllamaBaseURL: getEnv("OLLAMA_BASE_URL", ""),
			OllamaModel:   getEnv("OLLAMA_MODEL", "llama3"),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("Invalid integer for %s: %q, using default %d", key, raw, fallback)
		return fallback
	}
	return value
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		log.Printf("Invalid duration for %s: %q, using default %s", key, raw, fallback)
		return fallback
	}
	return value
}
