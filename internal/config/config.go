// Package config loads the recognized configuration options from the
// environment (§6). Local development reads an optional .env file via
// joho/godotenv, the same pattern basegraphhq-basegraph and
// codeready-toolchain-tarsy use for their own config loaders.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every recognized option from spec.md §6, exhaustively.
type Config struct {
	// Outbound wiring.
	GatewayURL   string
	GatewayKey   string
	InstanceName string

	// CRM/calendar/media REST backends.
	CRMBaseURL      string
	CRMAPIKey       string
	CalendarBaseURL string
	CalendarAPIKey  string
	MediaBaseURL    string
	MediaAPIKey     string

	// HTTP server.
	HTTPAddr string

	// Inbound auth.
	WebhookAllowlistIPs []string
	WebhookSecret       string

	// §4.C session lifecycle.
	SessionTimeout      time.Duration
	IdleWarning         time.Duration
	MaxSessionDuration  time.Duration
	MaxMessagesPerSession int

	// §4.B coalescer.
	BufferWindow    time.Duration
	BufferCap       int

	// §4.A humanizer.
	TypingWPMMin  float64
	TypingWPMMax  float64
	ChunkWordMin  int
	ChunkWordMax  int
	LocaleBundle  string

	// §4.E follow-up scheduler.
	FollowUpFirstDelay  time.Duration
	FollowUpSecondDelay time.Duration
	BusinessHoursStart  string
	BusinessHoursEnd    string
	BusinessTZ          string

	// §4.D agent orchestrator.
	ReasoningAuto bool
	MaxToolHops   int

	// §4.C qualification thresholds.
	QualificationMinBillCommercial float64
	QualificationMinBillResidential float64

	// Ambient: store/cache/model wiring (not in spec.md's table verbatim,
	// but required to actually construct the adapters it names).
	PostgresDSN  string
	RedisAddr    string
	AnthropicAPIKey string
	AnthropicModel  string
	ReasoningModel  string
	OpenAIAPIKey    string
	OpenAIModel     string
	TemporalHostPort string
	TemporalNamespace string
	TemporalTaskQueue string
	Production bool
}

// Load reads configuration from the environment, applying the defaults from
// spec.md §6's table. envFile may be empty, in which case only real
// environment variables are consulted.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		// A missing .env is not an error: the table's defaults plus real
		// environment variables are sufficient in production.
		_ = godotenv.Load(envFile)
	}

	c := &Config{
		GatewayURL:          getenv("GATEWAY_URL", ""),
		GatewayKey:          getenv("GATEWAY_KEY", ""),
		InstanceName:        getenv("INSTANCE_NAME", ""),
		WebhookAllowlistIPs: splitCSV(getenv("WEBHOOK_ALLOWLIST_IPS", "")),
		WebhookSecret:       getenv("WEBHOOK_SECRET", ""),

		CRMBaseURL:      getenv("CRM_BASE_URL", ""),
		CRMAPIKey:       getenv("CRM_API_KEY", ""),
		CalendarBaseURL: getenv("CALENDAR_BASE_URL", ""),
		CalendarAPIKey:  getenv("CALENDAR_API_KEY", ""),
		MediaBaseURL:    getenv("MEDIA_BASE_URL", ""),
		MediaAPIKey:     getenv("MEDIA_API_KEY", ""),

		HTTPAddr: getenv("HTTP_ADDR", ":8080"),

		MaxMessagesPerSession: 100,
		BufferCap:             20,

		TypingWPMMin: 45,
		TypingWPMMax: 55,
		ChunkWordMin: 3,
		ChunkWordMax: 15,
		LocaleBundle: getenv("HUMANIZER_LOCALE", "pt_BR"),

		BusinessHoursStart: getenv("BUSINESS_HOURS_START", "08:00"),
		BusinessHoursEnd:   getenv("BUSINESS_HOURS_END", "18:00"),
		BusinessTZ:         getenv("BUSINESS_TZ", "America/Sao_Paulo"),

		ReasoningAuto: true,
		MaxToolHops:   8,

		QualificationMinBillCommercial:  4000,
		QualificationMinBillResidential: 400,

		PostgresDSN:       getenv("POSTGRES_DSN", ""),
		RedisAddr:         getenv("REDIS_ADDR", "localhost:6379"),
		AnthropicAPIKey:   getenv("ANTHROPIC_API_KEY", ""),
		AnthropicModel:    getenv("ANTHROPIC_MODEL", "claude-sonnet-4-5-20250929"),
		ReasoningModel:    getenv("ANTHROPIC_REASONING_MODEL", "claude-sonnet-4-5-20250929"),
		OpenAIAPIKey:      getenv("OPENAI_API_KEY", ""),
		OpenAIModel:       getenv("OPENAI_MODEL", "gpt-4o-mini"),
		TemporalHostPort:  getenv("TEMPORAL_HOST_PORT", "localhost:7233"),
		TemporalNamespace: getenv("TEMPORAL_NAMESPACE", "default"),
		TemporalTaskQueue: getenv("TEMPORAL_TASK_QUEUE", "sdr-conversation-engine"),
		Production:        getenv("ENV", "development") == "production",
	}

	var err error
	if c.SessionTimeout, err = getDuration("SESSION_TIMEOUT_MIN", 30, time.Minute); err != nil {
		return nil, err
	}
	if c.IdleWarning, err = getDuration("IDLE_WARNING_MIN", 20, time.Minute); err != nil {
		return nil, err
	}
	if c.MaxSessionDuration, err = getDuration("MAX_SESSION_DURATION_H", 2, time.Hour); err != nil {
		return nil, err
	}
	if c.BufferWindow, err = getDuration("BUFFER_WINDOW_MS", 3000, time.Millisecond); err != nil {
		return nil, err
	}
	if c.FollowUpFirstDelay, err = getDuration("FOLLOWUP_FIRST_DELAY_MIN", 30, time.Minute); err != nil {
		return nil, err
	}
	if c.FollowUpSecondDelay, err = getDuration("FOLLOWUP_SECOND_DELAY_H", 24, time.Hour); err != nil {
		return nil, err
	}
	if c.MaxMessagesPerSession, err = getInt("MAX_MESSAGES_PER_SESSION", 100); err != nil {
		return nil, err
	}
	if c.MaxToolHops, err = getInt("MAX_TOOL_HOPS", 8); err != nil {
		return nil, err
	}
	return c, nil
}

func getenv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) (int, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return n, nil
}

func getDuration(key string, def float64, unit time.Duration) (time.Duration, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return time.Duration(def * float64(unit)), nil
	}
	n, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return time.Duration(n * float64(unit)), nil
}

func splitCSV(v string) []string {
	if v == "" {
		return nil
	}
	var out []string
	start := 0
	for i := 0; i <= len(v); i++ {
		if i == len(v) || v[i] == ',' {
			if i > start {
				out = append(out, v[start:i])
			}
			start = i + 1
		}
	}
	return out
}
