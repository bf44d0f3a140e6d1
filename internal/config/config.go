// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config carries all service configuration. It is loaded once at startup
// and passed explicitly into constructors; nothing reads the environment
// mid-operation.
type Config struct {
	HTTPAddr    string
	DatabaseURL string
	AMQPURL     string

	Zoho    ZohoConfig
	Sending SendingConfig
}

// ZohoConfig holds the Zoho Mail API credentials. When ClientID is empty
// the service falls back to the mock transport.
type ZohoConfig struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
	FromEmail    string
	AccountsURL  string
	MailBaseURL  string
}

// Configured reports whether real Zoho credentials are present.
func (z ZohoConfig) Configured() bool {
	return z.ClientID != "" && z.ClientSecret != "" && z.RefreshToken != ""
}

// SendingConfig tunes the dispatcher.
type SendingConfig struct {
	// RatePerSecond throttles outbound transport calls. The provider is
	// rate limited; 10/s matches the original batch cadence.
	RatePerSecond float64
	// RetryBatchSize caps how many failed rows one retry pass targets.
	// Zero means no cap.
	RetryBatchSize int
	// UnsubscribeBaseURL is the public base used to build per-recipient
	// unsubscribe links.
	UnsubscribeBaseURL string
}

// Load reads configuration from the environment. Callers are expected to
// have loaded .env beforehand (godotenv in the mains).
func Load() (*Config, error) {
	cfg := &Config{
		HTTPAddr:    getenv("HTTP_ADDR", ":8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		AMQPURL:     os.Getenv("AMQP_URL"),
		Zoho: ZohoConfig{
			ClientID:     os.Getenv("ZOHO_CLIENT_ID"),
			ClientSecret: os.Getenv("ZOHO_CLIENT_SECRET"),
			RefreshToken: os.Getenv("ZOHO_REFRESH_TOKEN"),
			FromEmail:    getenv("ZOHO_FROM_EMAIL", os.Getenv("ZOHO_EMAIL")),
			AccountsURL:  getenv("ZOHO_ACCOUNTS_URL", "https://accounts.zoho.com"),
			MailBaseURL:  getenv("ZOHO_MAIL_URL", "https://mail.zoho.com"),
		},
		Sending: SendingConfig{
			RatePerSecond:      getenvFloat("SEND_RATE_PER_SECOND", 10),
			RetryBatchSize:     getenvInt("RETRY_BATCH_SIZE", 0),
			UnsubscribeBaseURL: getenv("UNSUBSCRIBE_BASE_URL", "https://www.thelostandunfounds.com"),
		},
	}

	if cfg.DatabaseURL == "" {
		// Fall back to the discrete DB_* variables.
		user := os.Getenv("DB_USER")
		pass := os.Getenv("DB_PASSWORD")
		host := getenv("DB_HOST", "localhost")
		port := getenv("DB_PORT", "5432")
		name := os.Getenv("DB_NAME")
		if user == "" || name == "" {
			return nil, fmt.Errorf("config: DATABASE_URL or DB_USER/DB_NAME must be set")
		}
		cfg.DatabaseURL = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", user, pass, host, port, name)
	}

	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getenvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			return f
		}
	}
	return fallback
}
