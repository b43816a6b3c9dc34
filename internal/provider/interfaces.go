package provider

import (
	"bytes"
	"context"
	"encoding/json"
)

// TranscriptionOptions tunes a single transcription call.
type TranscriptionOptions struct {
	LanguageCode string
}

// Word is a single recognized word with timing in milliseconds.
type Word struct {
	Text       string  `json:"text"`
	Start      int     `json:"start"`
	End        int     `json:"end"`
	Confidence float64 `json:"confidence"`
}

// TranscriptionResult is what a speech-to-text provider returns.
type TranscriptionResult struct {
	Text       string  `json:"text"`
	Language   string  `json:"language,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
	Words      []Word  `json:"words,omitempty"`
}

type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, opts TranscriptionOptions) (TranscriptionResult, error)
}

// TranslationOptions shape the register of a translation. The numeric knobs
// run -1..1: tone casual to formal, detail concise to detailed, emotion
// positive to negative.
type TranslationOptions struct {
	Tone       float64 `json:"tone,omitempty"`
	Detail     float64 `json:"detail,omitempty"`
	Emotion    float64 `json:"emotion,omitempty"`
	FromGender string  `json:"fromGender,omitempty"`
	ToGender   string  `json:"toGender,omitempty"`
}

type TranslationResult struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

type Translator interface {
	Translate(ctx context.Context, text, fromLang, toLang string, opts *TranslationOptions) (TranslationResult, error)
}

// Segment points at a substring of a translation worth commenting on.
type Segment struct {
	OriginalTextString   string `json:"originalTextString"`
	TranslatedTextString string `json:"translatedTextString"`
	AdditionalDetails    string `json:"additionalDetails"`
}

// SegmentList marshals as `false` when empty, matching the critique schema
// the model is prompted to produce.
type SegmentList []Segment

func (l SegmentList) MarshalJSON() ([]byte, error) {
	if len(l) == 0 {
		return []byte("false"), nil
	}
	return json.Marshal([]Segment(l))
}

func (l *SegmentList) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("false")) || bytes.Equal(trimmed, []byte("null")) {
		*l = nil
		return nil
	}
	var segments []Segment
	if err := json.Unmarshal(trimmed, &segments); err != nil {
		return err
	}
	*l = segments
	return nil
}

// Explanation is a structured critique of a translation.
type Explanation struct {
	Accurate                bool        `json:"accurate"`
	PossibleMistranslations SegmentList `json:"possibleMistranslations"`
	Idioms                  SegmentList `json:"idioms"`
	Tone                    string      `json:"tone"`
}

type Explainer interface {
	Explain(ctx context.Context, originalText, translatedText, fromLang, toLang string) (Explanation, error)
}

// TTSOptions tune a synthesis stream. Speed and emotion run -1..1.
type TTSOptions struct {
	Speed      float64 `json:"speed,omitempty"`
	Emotion    float64 `json:"emotion,omitempty"`
	SampleRate int     `json:"sampleRate,omitempty"`
}

// StreamMetadata describes the audio a stream will carry; it is sent in
// response headers before the first chunk.
type StreamMetadata struct {
	Format     string
	SampleRate int
}

type EventType string

const (
	EventAudio EventType = "audio"
	EventDone  EventType = "done"
	EventError EventType = "error"
)

// Event is one message from a live synthesis connection. Audio events carry
// decoded bytes in provider emission order.
type Event struct {
	Type   EventType
	Audio  []byte
	Code   string
	Detail string
}

// Stream is a live synthesis connection. Events terminates after a done or
// error event; Close is safe to call more than once.
type Stream interface {
	Events() <-chan Event
	Close() error
}

type Synthesizer interface {
	Metadata(opts TTSOptions) StreamMetadata
	Synthesize(ctx context.Context, text, language, voiceID string, opts TTSOptions) (Stream, error)
}
