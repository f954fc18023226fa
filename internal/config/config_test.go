package config

import (
	"strings"
	"testing"
	"time"
)

// setRequired provides the provider credentials without which Load fails.
func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("WHATSAPP_TOKEN", "wa-token")
	t.Setenv("WHATSAPP_PHONE_NUMBER_ID", "12345")
	t.Setenv("WEBHOOK_VERIFY_TOKEN", "verify-secret")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Port != "8080" || cfg.GinMode != "release" || cfg.LogLevel != "info" {
		t.Fatalf("server defaults = %q %q %q", cfg.Port, cfg.GinMode, cfg.LogLevel)
	}
	if cfg.HistoryWindow != 20 || cfg.DedupTTL != 24*time.Hour {
		t.Fatalf("pipeline defaults = %d %v", cfg.HistoryWindow, cfg.DedupTTL)
	}
	if cfg.APIBasePath != "/api/v1" {
		t.Fatalf("base path = %q", cfg.APIBasePath)
	}
	if cfg.WhatsApp.GraphBaseURL != "https://graph.facebook.com" || cfg.WhatsApp.APIVersion != "v22.0" {
		t.Fatalf("graph defaults = %q %q", cfg.WhatsApp.GraphBaseURL, cfg.WhatsApp.APIVersion)
	}
	if cfg.WhatsApp.WelcomeTmpl != "aura_welcome" || cfg.WhatsApp.TemplateLang != "en" {
		t.Fatalf("template defaults = %q %q", cfg.WhatsApp.WelcomeTmpl, cfg.WhatsApp.TemplateLang)
	}
	if cfg.OpenAI.ChatModel != "gpt-4o" || cfg.OpenAI.AudioModel != "whisper-1" ||
		cfg.OpenAI.TTSModel != "tts-1" || cfg.OpenAI.TTSVoice != "alloy" {
		t.Fatalf("model defaults = %+v", cfg.OpenAI)
	}
	// Missing key is valid configuration.
	if cfg.OpenAI.APIKey != "" {
		t.Fatalf("api key = %q", cfg.OpenAI.APIKey)
	}
	if cfg.RateRPS != 5.0 || cfg.RateBurst != 10 {
		t.Fatalf("rate defaults = %v %d", cfg.RateRPS, cfg.RateBurst)
	}
	if cfg.OTEL.Enabled || cfg.OTEL.SampleRatio != 1.0 {
		t.Fatalf("otel defaults = %+v", cfg.OTEL)
	}
}

func TestLoad_MissingProviderCredentials(t *testing.T) {
	cases := []struct {
		name string
		omit string
	}{
		{"token", "WHATSAPP_TOKEN"},
		{"phone id", "WHATSAPP_PHONE_NUMBER_ID"},
		{"verify token", "WEBHOOK_VERIFY_TOKEN"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			setRequired(t)
			t.Setenv(tc.omit, "")
			if _, err := Load(); err == nil {
				t.Fatalf("expected error when %s missing", tc.omit)
			}
		})
	}
}

func TestLoad_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("PORT", "9090")
	t.Setenv("GIN_MODE", "TEST")
	t.Setenv("LOG_LEVEL", "warning")
	t.Setenv("HISTORY_WINDOW", "5")
	t.Setenv("DEDUP_TTL", "1h")
	t.Setenv("API_BASE_PATH", "v2/")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("RATE_RPS", "2.5")
	t.Setenv("OPENAI_API_KEY", "sk-live")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "9090" || cfg.GinMode != "test" {
		t.Fatalf("server = %q %q", cfg.Port, cfg.GinMode)
	}
	// "warning" is normalized to "warn".
	if cfg.LogLevel != "warn" {
		t.Fatalf("log level = %q", cfg.LogLevel)
	}
	if cfg.HistoryWindow != 5 || cfg.DedupTTL != time.Hour {
		t.Fatalf("pipeline = %d %v", cfg.HistoryWindow, cfg.DedupTTL)
	}
	// Base path gains its leading slash and loses the trailing one.
	if cfg.APIBasePath != "/v2" {
		t.Fatalf("base path = %q", cfg.APIBasePath)
	}
	if len(cfg.CORS.AllowedOrigins) != 2 || cfg.CORS.AllowedOrigins[1] != "https://b.example" {
		t.Fatalf("origins = %v", cfg.CORS.AllowedOrigins)
	}
	if cfg.RateRPS != 2.5 || cfg.OpenAI.APIKey != "sk-live" {
		t.Fatalf("overrides = %v %q", cfg.RateRPS, cfg.OpenAI.APIKey)
	}
}

func TestLoad_ValidationFailures(t *testing.T) {
	cases := []struct {
		name  string
		key   string
		value string
		want  string
	}{
		{"bad log level", "LOG_LEVEL", "verbose", "LOG_LEVEL"},
		{"zero window", "HISTORY_WINDOW", "0", "HISTORY_WINDOW"},
		{"negative ttl", "DEDUP_TTL", "-1h", "DEDUP_TTL"},
		{"negative rps", "RATE_RPS", "-1", "RATE_RPS"},
		{"zero burst", "RATE_BURST", "0", "RATE_BURST"},
		{"bad sampler", "OTEL_TRACES_SAMPLER_ARG", "2", "OTEL_TRACES_SAMPLER_ARG"},
		{"zero timeout", "READ_TIMEOUT", "-1s", "timeouts"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			setRequired(t)
			t.Setenv(tc.key, tc.value)
			_, err := Load()
			if err == nil {
				t.Fatalf("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestMustLoad_PanicsOnInvalid(t *testing.T) {
	setRequired(t)
	t.Setenv("LOG_LEVEL", "verbose")

	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic")
		}
	}()
	_ = MustLoad()
}

func TestNormalizeBasePath(t *testing.T) {
	cases := []struct{ in, want string }{
		{"", "/"},
		{"/", "/"},
		{"api/v1", "/api/v1"},
		{"/api/v1/", "/api/v1"},
		{"  /x  ", "/x"},
	}
	for _, tc := range cases {
		if got := normalizeBasePath(tc.in); got != tc.want {
			t.Fatalf("normalizeBasePath(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
