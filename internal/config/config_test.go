package config

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestMaskSecret(t *testing.T) {
	tests := []struct {
		name   string
		secret string
		want   string
	}{
		{name: "empty", secret: "", want: ""},
		{name: "short fully masked", secret: "abc123", want: maskedValue},
		{name: "exactly 8 fully masked", secret: "12345678", want: maskedValue},
		{name: "long keeps edges", secret: "super-secret-password", want: "su<" + maskedValue + ">rd"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := maskSecret(tt.secret)
			if got != tt.want {
				t.Errorf("maskSecret(%q) = %q, want %q", tt.secret, got, tt.want)
			}
		})
	}
}

func TestMarshalJSONMasksPassword(t *testing.T) {
	cfg := Config{
		Provider:         ProviderGemini,
		ModelName:        "gemini-2.5-flash",
		PostgresPassword: "this-is-a-real-password",
	}

	data, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}

	if strings.Contains(string(data), "this-is-a-real-password") {
		t.Errorf("marshaled config leaks the password: %s", data)
	}
	if !strings.Contains(string(data), maskedValue) {
		t.Errorf("marshaled config should contain the mask placeholder: %s", data)
	}
}

func TestStringDoesNotLeakPassword(t *testing.T) {
	cfg := Config{PostgresPassword: "another-secret-value"}

	if s := cfg.String(); strings.Contains(s, "another-secret-value") {
		t.Errorf("String() leaks the password: %s", s)
	}
}

func TestFullModelName(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		model    string
		want     string
	}{
		{name: "gemini qualifies as googleai", provider: ProviderGemini, model: "gemini-2.5-flash", want: "googleai/gemini-2.5-flash"},
		{name: "ollama", provider: ProviderOllama, model: "llama3.3", want: "ollama/llama3.3"},
		{name: "openai", provider: ProviderOpenAI, model: "gpt-4o", want: "openai/gpt-4o"},
		{name: "already qualified passes through", provider: ProviderGemini, model: "googleai/gemini-2.5-pro", want: "googleai/gemini-2.5-pro"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Provider: tt.provider, ModelName: tt.model}
			if got := cfg.FullModelName(); got != tt.want {
				t.Errorf("FullModelName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNormalizeMaxHistoryMessages(t *testing.T) {
	tests := []struct {
		name  string
		limit int32
		want  int32
	}{
		{name: "zero uses default", limit: 0, want: DefaultMaxHistoryMessages},
		{name: "negative uses default", limit: -5, want: DefaultMaxHistoryMessages},
		{name: "below minimum clamps up", limit: 3, want: MinHistoryMessages},
		{name: "in range passes through", limit: 200, want: 200},
		{name: "above maximum clamps down", limit: 99999, want: MaxAllowedHistoryMessages},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeMaxHistoryMessages(tt.limit); got != tt.want {
				t.Errorf("NormalizeMaxHistoryMessages(%d) = %d, want %d", tt.limit, got, tt.want)
			}
		})
	}
}

func TestTrimmedCORSOrigins(t *testing.T) {
	cfg := &Config{CORSOrigins: []string{
		"http://localhost:5173, https://app.example.com",
		"  https://other.example.com  ",
		"",
	}}

	got := cfg.TrimmedCORSOrigins()
	want := []string{"http://localhost:5173", "https://app.example.com", "https://other.example.com"}

	if len(got) != len(want) {
		t.Fatalf("TrimmedCORSOrigins() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("TrimmedCORSOrigins()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
