package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/owlia-ai/owlia/internal/log"
	"github.com/owlia-ai/owlia/internal/speech"
)

// maxAudioUploadBytes bounds /transcribe uploads. Matches the upstream
// whisper API limit of 25 MB.
const maxAudioUploadBytes = 25 << 20

// speechHandler serves the STT and TTS endpoints.
// client may be nil when speech credentials are absent; both endpoints
// then answer 503 so the frontend can fall back to text-only mode.
type speechHandler struct {
	client *speech.Client
	logger log.Logger
}

func newSpeechHandler(client *speech.Client, logger log.Logger) *speechHandler {
	return &speechHandler{client: client, logger: logger}
}

func (h *speechHandler) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /transcribe", h.transcribe)
	mux.HandleFunc("POST /speak", h.speak)
}

// TranscribeResponse is the response body for POST /transcribe.
type TranscribeResponse struct {
	Text string `json:"text"`
}

func (h *speechHandler) transcribe(w http.ResponseWriter, r *http.Request) {
	if h.client == nil {
		writeError(w, http.StatusServiceUnavailable, "speech not configured", "set OPENAI_API_KEY or a speech base URL")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxAudioUploadBytes)
	file, header, err := r.FormFile("audio")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing audio file", "multipart field 'audio' is required")
		return
	}
	defer func() { _ = file.Close() }()

	text, err := h.client.Transcribe(r.Context(), file, header.Filename)
	if err != nil {
		if errors.Is(err, speech.ErrEmptyTranscript) {
			writeError(w, http.StatusBadRequest, "no speech recognized", "the recording contained no recognizable speech")
			return
		}
		h.logger.Error("transcribing audio", "error", err, "file", header.Filename)
		writeError(w, http.StatusInternalServerError, "transcription failed", "")
		return
	}

	writeJSON(w, http.StatusOK, TranscribeResponse{Text: text})
}

// SpeakRequest is the request body for POST /speak.
type SpeakRequest struct {
	Text  string `json:"text"`
	Voice string `json:"voice,omitempty"`
}

func (h *speechHandler) speak(w http.ResponseWriter, r *http.Request) {
	if h.client == nil {
		writeError(w, http.StatusServiceUnavailable, "speech not configured", "set OPENAI_API_KEY or a speech base URL")
		return
	}

	var req SpeakRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	audio, err := h.client.Synthesize(r.Context(), req.Text, req.Voice)
	if err != nil {
		if errors.Is(err, speech.ErrEmptyText) || errors.Is(err, speech.ErrTextTooLong) {
			writeError(w, http.StatusBadRequest, "invalid text", err.Error())
			return
		}
		h.logger.Error("synthesizing speech", "error", err)
		writeError(w, http.StatusInternalServerError, "synthesis failed", "")
		return
	}

	w.Header().Set("Content-Type", "audio/wav")
	w.Header().Set("Content-Length", strconv.Itoa(len(audio)))
	if _, err := w.Write(audio); err != nil {
		h.logger.Debug("writing audio response", "error", err)
	}
}
