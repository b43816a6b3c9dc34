package httpapi

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mkarlsen/parley/internal/audio"
	"github.com/mkarlsen/parley/internal/provider"
	"github.com/mkarlsen/parley/internal/relay"
)

// maxUploadBytes caps transcription uploads. AssemblyAI accepts far larger
// files but browser recordings for a conversational turn stay well under
// this.
const maxUploadBytes = 25 << 20

type translateRequest struct {
	Text     string                       `json:"text"`
	FromLang string                       `json:"fromLang"`
	ToLang   string                       `json:"toLang"`
	Options  *provider.TranslationOptions `json:"options,omitempty"`
}

type explainRequest struct {
	OriginalText   string `json:"originalText"`
	TranslatedText string `json:"translatedText"`
	FromLang       string `json:"fromLang"`
	ToLang         string `json:"toLang"`
}

type ttsRequest struct {
	Text     string `json:"text"`
	Language string `json:"language"`
	VoiceID  string `json:"voiceId"`
	// Container selects the byte framing: "raw" (default) streams bare
	// PCM, "wav" prefixes a playable WAV header.
	Container string               `json:"container,omitempty"`
	Options   *provider.TTSOptions `json:"options,omitempty"`
}

func (s *Server) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	const route = "transcribe"
	if !s.validate(w, r, route) {
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.countRequest(route, http.StatusBadRequest)
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "expected multipart form with an audio file")
		return
	}
	file, _, err := r.FormFile("audio")
	if err != nil {
		s.countRequest(route, http.StatusBadRequest)
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "audio file is required")
		return
	}
	defer file.Close()

	audio, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		s.countRequest(route, http.StatusBadRequest)
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "reading audio upload failed")
		return
	}
	if len(audio) == 0 {
		s.countRequest(route, http.StatusBadRequest)
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "audio file is empty")
		return
	}

	transcriber, err := s.providers.Transcriber()
	if err != nil {
		s.respondProviderError(w, route, err)
		return
	}

	result, err := transcriber.Transcribe(r.Context(), audio, provider.TranscriptionOptions{
		LanguageCode: strings.TrimSpace(r.FormValue("language_code")),
	})
	if err != nil {
		s.respondProviderError(w, route, err)
		return
	}

	s.telemetry.Record(route, r.Host, "", result.Text)
	s.countRequest(route, http.StatusOK)
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleTranslate(w http.ResponseWriter, r *http.Request) {
	const route = "translate"
	if !s.validate(w, r, route) {
		return
	}

	var req translateRequest
	if err := decodeJSON(r, &req); err != nil {
		s.countRequest(route, http.StatusBadRequest)
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Text) == "" || req.FromLang == "" || req.ToLang == "" {
		s.countRequest(route, http.StatusBadRequest)
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "text, fromLang and toLang are required")
		return
	}

	translator, err := s.providers.Translator()
	if err != nil {
		s.respondProviderError(w, route, err)
		return
	}

	result, err := translator.Translate(r.Context(), req.Text, req.FromLang, req.ToLang, req.Options)
	if err != nil {
		s.respondProviderError(w, route, err)
		return
	}

	s.telemetry.Record(route, r.Host, req.Text, result.Text)
	s.countRequest(route, http.StatusOK)
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleExplain(w http.ResponseWriter, r *http.Request) {
	const route = "explain"
	if !s.validate(w, r, route) {
		return
	}

	var req explainRequest
	if err := decodeJSON(r, &req); err != nil {
		s.countRequest(route, http.StatusBadRequest)
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.OriginalText) == "" || strings.TrimSpace(req.TranslatedText) == "" {
		s.countRequest(route, http.StatusBadRequest)
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "originalText and translatedText are required")
		return
	}

	explainer, err := s.providers.Explainer()
	if err != nil {
		s.respondProviderError(w, route, err)
		return
	}

	explanation, err := explainer.Explain(r.Context(), req.OriginalText, req.TranslatedText, req.FromLang, req.ToLang)
	if err != nil {
		s.respondProviderError(w, route, err)
		return
	}

	s.telemetry.Record(route, r.Host, req.OriginalText, explanation.Tone)
	s.countRequest(route, http.StatusOK)
	respondJSON(w, http.StatusOK, explanation)
}

func (s *Server) handleTTS(w http.ResponseWriter, r *http.Request) {
	const route = "tts"
	if !s.validate(w, r, route) {
		return
	}

	var req ttsRequest
	if err := decodeJSON(r, &req); err != nil {
		s.countRequest(route, http.StatusBadRequest)
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Text) == "" || req.VoiceID == "" {
		s.countRequest(route, http.StatusBadRequest)
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "text and voiceId are required")
		return
	}
	container := strings.ToLower(strings.TrimSpace(req.Container))
	switch container {
	case "", "raw":
		container = "raw"
	case "wav":
	default:
		s.countRequest(route, http.StatusBadRequest)
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "container must be raw or wav")
		return
	}

	synth, err := s.providers.Synthesizer()
	if err != nil {
		s.respondProviderError(w, route, err)
		return
	}

	var opts provider.TTSOptions
	if req.Options != nil {
		opts = *req.Options
	}

	stream, err := synth.Synthesize(r.Context(), req.Text, req.Language, req.VoiceID, opts)
	if err != nil {
		s.respondProviderError(w, route, err)
		return
	}

	meta := synth.Metadata(opts)
	contentType := "application/octet-stream"
	if container == "wav" {
		contentType = "audio/wav"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("X-Audio-Format", meta.Format)
	w.Header().Set("X-Sample-Rate", strconv.Itoa(meta.SampleRate))
	w.WriteHeader(http.StatusOK)

	if container == "wav" {
		if err := audio.WriteWAVHeaderFloat32LE(w, meta.SampleRate); err != nil {
			_ = stream.Close()
			log.Printf("httpapi: writing wav header: %v", err)
			panic(http.ErrAbortHandler)
		}
	}

	start := time.Now()
	n, err := relay.Run(r.Context(), w, stream, s.cfg.StreamInactivityTimeout)
	if s.metrics != nil {
		s.metrics.ObserveStream(n, time.Since(start))
	}
	s.telemetry.Record(route, r.Host, req.Text, "")
	if err != nil {
		if errors.Is(err, context.Canceled) {
			s.countRequest(route, http.StatusOK)
			return
		}
		log.Printf("httpapi: tts stream aborted after %d bytes: %v", n, err)
		s.countRequest(route, http.StatusInternalServerError)
		// Headers are already on the wire. Kill the connection so the
		// client sees a truncated stream instead of silence.
		panic(http.ErrAbortHandler)
	}
	s.countRequest(route, http.StatusOK)
}
