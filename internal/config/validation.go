package config

import (
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"os"
	"slices"
	"strings"
)

// Validate validates configuration values.
// Returns sentinel errors that can be checked with errors.Is().
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	// 1. Provider and API key validation
	switch c.Provider {
	case ProviderGemini:
		if os.Getenv("GEMINI_API_KEY") == "" {
			return fmt.Errorf("%w: GEMINI_API_KEY environment variable is required for the gemini provider\n"+
				"Get your API key at: https://ai.google.dev/gemini-api/docs/api-key",
				ErrMissingAPIKey)
		}
	case ProviderOpenAI:
		if os.Getenv("OPENAI_API_KEY") == "" {
			return fmt.Errorf("%w: OPENAI_API_KEY environment variable is required for the openai provider",
				ErrMissingAPIKey)
		}
	case ProviderOllama:
		if err := validateOllamaHost(c.OllamaHost); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: %q is not supported, must be one of: gemini, ollama, openai",
			ErrInvalidProvider, c.Provider)
	}

	// 2. Model configuration validation
	if c.ModelName == "" {
		return fmt.Errorf("%w: model_name cannot be empty", ErrInvalidModelName)
	}

	// Temperature range: 0.0 (deterministic) to 2.0 (maximum creativity)
	if c.Temperature < 0.0 || c.Temperature > 2.0 {
		return fmt.Errorf("%w: must be between 0.0 and 2.0, got %.2f", ErrInvalidTemperature, c.Temperature)
	}

	// MaxTokens range: 1 to 2097152 (Gemini 2.5 max context window)
	if c.MaxTokens < 1 || c.MaxTokens > 2097152 {
		return fmt.Errorf("%w: must be between 1 and 2,097,152, got %d", ErrInvalidMaxTokens, c.MaxTokens)
	}

	// 3. RAG configuration validation
	if c.EmbedderModel == "" {
		return fmt.Errorf("%w: embedder_model cannot be empty", ErrInvalidEmbedderModel)
	}

	if c.RetrievalK < 1 || c.RetrievalK > MaxRetrievalK {
		return fmt.Errorf("%w: must be between 1 and %d, got %d", ErrInvalidRetrievalK, MaxRetrievalK, c.RetrievalK)
	}

	if c.ChunkSize < 1 {
		return fmt.Errorf("%w: chunk_size must be positive, got %d", ErrInvalidChunking, c.ChunkSize)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("%w: chunk_overlap must be in [0, chunk_size), got overlap=%d size=%d",
			ErrInvalidChunking, c.ChunkOverlap, c.ChunkSize)
	}

	// 4. PostgreSQL configuration validation
	if c.PostgresHost == "" {
		return fmt.Errorf("%w: host cannot be empty", ErrInvalidPostgresHost)
	}

	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: must be between 1 and 65535, got %d", ErrInvalidPostgresPort, c.PostgresPort)
	}

	if c.PostgresDBName == "" {
		return fmt.Errorf("%w: database name cannot be empty", ErrInvalidPostgresDBName)
	}

	if c.PostgresPassword == "owlia_dev_password" {
		slog.Warn("Using default development password for PostgreSQL",
			"warning", "Change postgres_password in config.yaml for production deployments")
	}

	// Modern SSL modes only - exclude deprecated allow/prefer (MITM vulnerable)
	validSSLModes := []string{"disable", "require", "verify-ca", "verify-full"}
	if !slices.Contains(validSSLModes, c.PostgresSSLMode) {
		return fmt.Errorf("%w: %q is not valid, must be one of: %v",
			ErrInvalidPostgresSSLMode, c.PostgresSSLMode, validSSLModes)
	}

	// 5. HTTP server configuration validation
	if _, _, err := net.SplitHostPort(c.ServerAddr); err != nil {
		return fmt.Errorf("%w: %q is not a valid host:port address: %v",
			ErrInvalidServerAddr, c.ServerAddr, err)
	}

	if c.RateLimit <= 0 {
		return fmt.Errorf("%w: rate_limit must be positive, got %g", ErrInvalidRateLimit, c.RateLimit)
	}
	if c.RateBurst < 1 {
		return fmt.Errorf("%w: rate_burst must be at least 1, got %d", ErrInvalidRateLimit, c.RateBurst)
	}

	// 6. Speech configuration validation
	if err := c.validateSpeech(); err != nil {
		return err
	}

	return nil
}

// validateSpeech validates the speech services configuration.
//
// API key presence is not checked here: speech endpoints return a service
// error at request time when the key is missing, so a text-only deployment
// can run without OPENAI_API_KEY.
func (c *Config) validateSpeech() error {
	s := c.Speech

	if s.STTModel == "" {
		return fmt.Errorf("%w: stt_model cannot be empty", ErrInvalidSpeech)
	}
	if s.TTSModel == "" {
		return fmt.Errorf("%w: tts_model cannot be empty", ErrInvalidSpeech)
	}
	if s.Speed < 0.25 || s.Speed > 4.0 {
		return fmt.Errorf("%w: speed must be between 0.25 and 4.0, got %g", ErrInvalidSpeech, s.Speed)
	}
	if s.BaseURL != "" {
		u, err := url.Parse(s.BaseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("%w: base_url %q is not a valid http(s) URL", ErrInvalidSpeech, s.BaseURL)
		}
	}

	return nil
}

// validateOllamaHost checks that the Ollama host is a usable http(s) URL.
func validateOllamaHost(host string) error {
	if host == "" {
		return fmt.Errorf("%w: ollama_host cannot be empty when provider is ollama", ErrInvalidOllamaHost)
	}
	u, err := url.Parse(host)
	if err != nil {
		return fmt.Errorf("%w: %q: %v", ErrInvalidOllamaHost, host, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: %q must use http:// or https://", ErrInvalidOllamaHost, host)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: %q has no host", ErrInvalidOllamaHost, host)
	}
	return nil
}

// NormalizeMaxHistoryMessages clamps the history window to safe bounds.
func NormalizeMaxHistoryMessages(limit int32) int32 {
	if limit <= 0 {
		return DefaultMaxHistoryMessages
	}
	if limit < MinHistoryMessages {
		return MinHistoryMessages
	}
	if limit > MaxAllowedHistoryMessages {
		return MaxAllowedHistoryMessages
	}
	return limit
}

// TrimmedCORSOrigins returns CORS origins with whitespace removed and
// empty entries dropped. Origins may arrive comma-separated from the
// OWLIA_CORS_ORIGINS environment variable.
func (c *Config) TrimmedCORSOrigins() []string {
	var out []string
	for _, origin := range c.CORSOrigins {
		for _, part := range strings.Split(origin, ",") {
			part = strings.TrimSpace(part)
			if part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
