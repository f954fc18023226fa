// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes server settings,
// logging, the SQLite store path, rate limiting, observability, and the
// WhatsApp / OpenAI provider credentials used by the message pipeline.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "go-coach-backend")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// WhatsAppConfig holds WhatsApp Cloud (Graph) API credentials and endpoints.
type WhatsAppConfig struct {
	Token         string // WHATSAPP_TOKEN (required)
	PhoneNumberID string // WHATSAPP_PHONE_NUMBER_ID (required)
	VerifyToken   string // WEBHOOK_VERIFY_TOKEN (required)
	GraphBaseURL  string // GRAPH_BASE_URL
	APIVersion    string // GRAPH_API_VERSION (e.g. "v22.0")
	WelcomeTmpl   string // WHATSAPP_WELCOME_TEMPLATE
	TemplateLang  string // WHATSAPP_TEMPLATE_LANG
}

// OpenAIConfig holds OpenAI credentials and model selection. An empty APIKey
// is valid: transcription degrades to a placeholder and voice replies are
// skipped.
type OpenAIConfig struct {
	APIKey     string // OPENAI_API_KEY (optional)
	BaseURL    string // OPENAI_BASE_URL
	ChatModel  string // OPENAI_CHAT_MODEL
	AudioModel string // OPENAI_TRANSCRIBE_MODEL
	TTSModel   string // OPENAI_TTS_MODEL
	TTSVoice   string // OPENAI_TTS_VOICE
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 60s (pipeline awaits provider calls)
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test

	// Logging
	LogLevel  string // debug|info|warn|error|fatal|panic
	LogPretty bool   // pretty console logs in dev

	// Store / pipeline
	DBPath          string        // SQLite path
	ScratchDir      string        // directory for transient audio files
	HistoryWindow   int           // per-sender entries fed to the model
	DedupTTL        time.Duration // how long a processed message ID stays hot
	APIBasePath     string        // base path for the read API
	ProviderTimeout time.Duration // per-call timeout for WhatsApp/OpenAI

	// Providers
	WhatsApp WhatsAppConfig
	OpenAI   OpenAIConfig

	// Rate limiting
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Observability
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		// Server
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 60*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging
		LogLevel:  strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty: getbool("LOG_PRETTY", false),

		// Store / pipeline
		DBPath:          getenv("DB_PATH", "coach.db"),
		ScratchDir:      getenv("SCRATCH_DIR", os.TempDir()),
		HistoryWindow:   getint("HISTORY_WINDOW", 20),
		DedupTTL:        getdur("DEDUP_TTL", 24*time.Hour),
		APIBasePath:     normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),
		ProviderTimeout: getdur("PROVIDER_TIMEOUT", 30*time.Second),

		// Providers
		WhatsApp: WhatsAppConfig{
			Token:         getenv("WHATSAPP_TOKEN", ""),
			PhoneNumberID: getenv("WHATSAPP_PHONE_NUMBER_ID", ""),
			VerifyToken:   getenv("WEBHOOK_VERIFY_TOKEN", ""),
			GraphBaseURL:  getenv("GRAPH_BASE_URL", "https://graph.facebook.com"),
			APIVersion:    getenv("GRAPH_API_VERSION", "v22.0"),
			WelcomeTmpl:   getenv("WHATSAPP_WELCOME_TEMPLATE", "aura_welcome"),
			TemplateLang:  getenv("WHATSAPP_TEMPLATE_LANG", "en"),
		},
		OpenAI: OpenAIConfig{
			APIKey:     getenv("OPENAI_API_KEY", ""),
			BaseURL:    getenv("OPENAI_BASE_URL", "https://api.openai.com"),
			ChatModel:  getenv("OPENAI_CHAT_MODEL", "gpt-4o"),
			AudioModel: getenv("OPENAI_TRANSCRIBE_MODEL", "whisper-1"),
			TTSModel:   getenv("OPENAI_TTS_MODEL", "tts-1"),
			TTSVoice:   getenv("OPENAI_TTS_VOICE", "alloy"),
		},

		// Rate limiting
		RateRPS:   getfloat("RATE_RPS", 5.0),
		RateBurst: getint("RATE_BURST", 10),

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "go-coach-backend"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		return cfg, errors.New("DB_PATH must not be empty")
	}
	if strings.TrimSpace(cfg.ScratchDir) == "" {
		return cfg, errors.New("SCRATCH_DIR must not be empty")
	}
	if cfg.HistoryWindow < 1 {
		return cfg, errors.New("HISTORY_WINDOW must be >= 1")
	}
	if cfg.DedupTTL <= 0 {
		return cfg, errors.New("DEDUP_TTL must be > 0")
	}
	if cfg.ProviderTimeout <= 0 {
		return cfg, errors.New("PROVIDER_TIMEOUT must be > 0")
	}
	if strings.TrimSpace(cfg.WhatsApp.Token) == "" {
		return cfg, errors.New("WHATSAPP_TOKEN must not be empty")
	}
	if strings.TrimSpace(cfg.WhatsApp.PhoneNumberID) == "" {
		return cfg, errors.New("WHATSAPP_PHONE_NUMBER_ID must not be empty")
	}
	if strings.TrimSpace(cfg.WhatsApp.VerifyToken) == "" {
		return cfg, errors.New("WEBHOOK_VERIFY_TOKEN must not be empty")
	}
	// OPENAI_API_KEY is deliberately not validated: without it transcription
	// degrades and voice replies are skipped.
	if cfg.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return cfg, errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

// ---- helpers (no external deps) ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
