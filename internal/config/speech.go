package config

// SpeechConfig holds the speech-to-text and text-to-speech settings.
//
// Both directions use an OpenAI-compatible audio API. BaseURL makes it
// possible to point the client at a self-hosted server (LocalAI, a
// faster-whisper HTTP bridge, LM Studio) instead of api.openai.com.
type SpeechConfig struct {
	// BaseURL overrides the API endpoint. Empty means the official OpenAI API.
	BaseURL string `mapstructure:"base_url" json:"base_url"`

	// STTModel is the transcription model, e.g. "whisper-1".
	STTModel string `mapstructure:"stt_model" json:"stt_model"`

	// TTSModel is the synthesis model, e.g. "tts-1" or "tts-1-hd".
	TTSModel string `mapstructure:"tts_model" json:"tts_model"`

	// Language is the ISO-639-1 hint passed to transcription, e.g. "en".
	Language string `mapstructure:"language" json:"language"`

	// Voice is the default synthesis voice, e.g. "alloy".
	Voice string `mapstructure:"voice" json:"voice"`

	// Speed is the synthesis speed multiplier, 0.25 to 4.0.
	Speed float64 `mapstructure:"speed" json:"speed"`
}
