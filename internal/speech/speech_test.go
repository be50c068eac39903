package speech_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/owlia-ai/owlia/internal/config"
	"github.com/owlia-ai/owlia/internal/speech"
	"github.com/owlia-ai/owlia/internal/testutil"
)

// fakeAudioServer emulates the OpenAI audio endpoints.
type fakeAudioServer struct {
	transcript string
	wav        []byte

	lastTranscribeModel string
	lastSpeechReq       map[string]any
}

func (f *fakeAudioServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/audio/transcriptions", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(10 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.lastTranscribeModel = r.FormValue("model")
		_ = json.NewEncoder(w).Encode(map[string]string{"text": f.transcript})
	})
	mux.HandleFunc("POST /v1/audio/speech", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.lastSpeechReq = req
		w.Header().Set("Content-Type", "audio/wav")
		_, _ = w.Write(f.wav)
	})
	return mux
}

func newTestClient(t *testing.T, fake *fakeAudioServer) *speech.Client {
	t.Helper()

	srv := httptest.NewServer(fake.handler())
	t.Cleanup(srv.Close)

	c, err := speech.New(config.SpeechConfig{
		BaseURL:  srv.URL,
		STTModel: "whisper-1",
		TTSModel: "tts-1",
		Language: "en",
		Voice:    "alloy",
		Speed:    1.0,
	}, testutil.DiscardLogger())
	if err != nil {
		t.Fatalf("speech.New(): %v", err)
	}
	return c
}

func TestTranscribe(t *testing.T) {
	fake := &fakeAudioServer{transcript: "  what is recursion  "}
	c := newTestClient(t, fake)

	got, err := c.Transcribe(context.Background(), bytes.NewReader([]byte("fake-webm-bytes")), "recording.webm")
	if err != nil {
		t.Fatalf("Transcribe(): %v", err)
	}
	if got != "what is recursion" {
		t.Errorf("transcript = %q, want trimmed text", got)
	}
	if fake.lastTranscribeModel != "whisper-1" {
		t.Errorf("model = %q, want whisper-1", fake.lastTranscribeModel)
	}
}

func TestNewBaseURLForms(t *testing.T) {
	fake := &fakeAudioServer{transcript: "hello"}
	srv := httptest.NewServer(fake.handler())
	t.Cleanup(srv.Close)

	// Operators configure the base URL with or without a trailing /v1; every
	// form must reach the same /v1/audio/transcriptions endpoint.
	for _, base := range []string{srv.URL, srv.URL + "/", srv.URL + "/v1", srv.URL + "/v1/"} {
		c, err := speech.New(config.SpeechConfig{
			BaseURL:  base,
			STTModel: "whisper-1",
		}, testutil.DiscardLogger())
		if err != nil {
			t.Fatalf("speech.New(%q): %v", base, err)
		}

		got, err := c.Transcribe(context.Background(), bytes.NewReader([]byte("fake-webm-bytes")), "recording.webm")
		if err != nil {
			t.Errorf("Transcribe() with base %q: %v", base, err)
			continue
		}
		if got != "hello" {
			t.Errorf("transcript with base %q = %q, want hello", base, got)
		}
	}
}

func TestTranscribeEmptyResult(t *testing.T) {
	fake := &fakeAudioServer{transcript: "   "}
	c := newTestClient(t, fake)

	_, err := c.Transcribe(context.Background(), bytes.NewReader([]byte("silence")), "recording.webm")
	if !errors.Is(err, speech.ErrEmptyTranscript) {
		t.Errorf("Transcribe(silence) error = %v, want ErrEmptyTranscript", err)
	}
}

func TestTranscribeNilReader(t *testing.T) {
	c := newTestClient(t, &fakeAudioServer{})

	_, err := c.Transcribe(context.Background(), nil, "recording.webm")
	if !errors.Is(err, speech.ErrEmptyAudio) {
		t.Errorf("Transcribe(nil) error = %v, want ErrEmptyAudio", err)
	}
}

func TestSynthesize(t *testing.T) {
	wav := []byte("RIFF....WAVEfmt ")
	fake := &fakeAudioServer{wav: wav}
	c := newTestClient(t, fake)

	got, err := c.Synthesize(context.Background(), "Hello there!", "")
	if err != nil {
		t.Fatalf("Synthesize(): %v", err)
	}
	if !bytes.Equal(got, wav) {
		t.Errorf("audio = %q, want server bytes", got)
	}
	if fake.lastSpeechReq["voice"] != "alloy" {
		t.Errorf("voice = %v, want configured default alloy", fake.lastSpeechReq["voice"])
	}
	if fake.lastSpeechReq["response_format"] != "wav" {
		t.Errorf("response_format = %v, want wav", fake.lastSpeechReq["response_format"])
	}
}

func TestSynthesizeVoiceOverride(t *testing.T) {
	fake := &fakeAudioServer{wav: []byte("x")}
	c := newTestClient(t, fake)

	if _, err := c.Synthesize(context.Background(), "hi", "nova"); err != nil {
		t.Fatalf("Synthesize(): %v", err)
	}
	if fake.lastSpeechReq["voice"] != "nova" {
		t.Errorf("voice = %v, want override nova", fake.lastSpeechReq["voice"])
	}
}

func TestSynthesizeValidation(t *testing.T) {
	c := newTestClient(t, &fakeAudioServer{})

	if _, err := c.Synthesize(context.Background(), "   ", ""); !errors.Is(err, speech.ErrEmptyText) {
		t.Errorf("Synthesize(blank) error = %v, want ErrEmptyText", err)
	}
	if _, err := c.Synthesize(context.Background(), strings.Repeat("a", 5000), ""); !errors.Is(err, speech.ErrTextTooLong) {
		t.Errorf("Synthesize(huge) error = %v, want ErrTextTooLong", err)
	}
}

func TestNewWithoutCredentials(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	_, err := speech.New(config.SpeechConfig{}, testutil.DiscardLogger())
	if !errors.Is(err, speech.ErrNotConfigured) {
		t.Errorf("New() without key or base URL error = %v, want ErrNotConfigured", err)
	}
}
