// Package speech wraps an OpenAI-compatible audio API for speech-to-text
// and text-to-speech. The base URL is configurable so a self-hosted server
// (LocalAI, a whisper bridge) can stand in for api.openai.com.
package speech

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/owlia-ai/owlia/internal/config"
)

// Sentinel errors for speech operations.
var (
	// ErrNotConfigured indicates no API key is available.
	ErrNotConfigured = errors.New("speech service not configured: OPENAI_API_KEY is not set")

	// ErrEmptyAudio indicates an empty audio upload.
	ErrEmptyAudio = errors.New("audio data is empty")

	// ErrEmptyTranscript indicates the audio contained no recognizable speech.
	ErrEmptyTranscript = errors.New("no speech recognized in audio")

	// ErrEmptyText indicates empty text for synthesis.
	ErrEmptyText = errors.New("text is empty")

	// ErrTextTooLong indicates the synthesis input exceeds the API limit.
	ErrTextTooLong = errors.New("text too long for synthesis")
)

// maxSpeechInputChars is the OpenAI speech API input limit.
const maxSpeechInputChars = 4096

// Client provides transcription and synthesis.
// Safe for concurrent use.
type Client struct {
	api    *openai.Client
	cfg    config.SpeechConfig
	logger *slog.Logger
}

// New creates a speech client from configuration.
// Returns ErrNotConfigured when the API key is absent, so callers can
// expose text-only endpoints and report speech as unavailable.
func New(cfg config.SpeechConfig, logger *slog.Logger) (*Client, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" && cfg.BaseURL == "" {
		return nil, ErrNotConfigured
	}
	if logger == nil {
		logger = slog.Default()
	}

	clientCfg := openai.DefaultConfig(apiKey)
	if cfg.BaseURL != "" {
		// The client joins /audio/... paths onto a base that must end in /v1.
		// Accept the configured URL with or without that suffix so neither
		// form ends up with /v1/v1.
		base := strings.TrimSuffix(cfg.BaseURL, "/")
		base = strings.TrimSuffix(base, "/v1")
		clientCfg.BaseURL = base + "/v1"
	}

	return &Client{
		api:    openai.NewClientWithConfig(clientCfg),
		cfg:    cfg,
		logger: logger,
	}, nil
}

// Transcribe converts spoken audio to text.
// filename carries the original extension; the API uses it to pick a
// decoder, so "recording.webm" matters more than the bytes' origin.
func (c *Client) Transcribe(ctx context.Context, audio io.Reader, filename string) (string, error) {
	if audio == nil {
		return "", ErrEmptyAudio
	}

	resp, err := c.api.CreateTranscription(ctx, openai.AudioRequest{
		Model:    c.cfg.STTModel,
		Reader:   audio,
		FilePath: filename,
		Language: c.cfg.Language,
	})
	if err != nil {
		return "", fmt.Errorf("transcription request: %w", err)
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", ErrEmptyTranscript
	}

	c.logger.Debug("transcribed audio", "chars", len(text))
	return text, nil
}

// Synthesize converts text to spoken audio and returns WAV bytes.
// voice overrides the configured default when non-empty.
func (c *Client) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyText
	}
	if len(text) > maxSpeechInputChars {
		return nil, fmt.Errorf("%w: %d chars exceeds limit of %d", ErrTextTooLong, len(text), maxSpeechInputChars)
	}
	if voice == "" {
		voice = c.cfg.Voice
	}

	resp, err := c.api.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(c.cfg.TTSModel),
		Input:          text,
		Voice:          openai.SpeechVoice(voice),
		ResponseFormat: openai.SpeechResponseFormatWav,
		Speed:          c.cfg.Speed,
	})
	if err != nil {
		return nil, fmt.Errorf("synthesis request: %w", err)
	}
	defer func() {
		if err := resp.Close(); err != nil {
			c.logger.Debug("closing synthesis response", "error", err)
		}
	}()

	audio, err := io.ReadAll(resp)
	if err != nil {
		return nil, fmt.Errorf("reading synthesized audio: %w", err)
	}

	c.logger.Debug("synthesized speech", "chars", len(text), "bytes", len(audio))
	return audio, nil
}
