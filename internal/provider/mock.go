package provider

import (
	"context"
	"sync"
)

// MockStream replays a scripted event sequence and records how often it was
// closed. Handler and relay tests drive it in place of a live connection.
type MockStream struct {
	mu     sync.Mutex
	events chan Event
	closed int
}

// NewMockStream queues the given events for consumption. The channel is
// closed after the last event, mirroring a real stream's read loop.
func NewMockStream(events ...Event) *MockStream {
	ch := make(chan Event, len(events)+1)
	for _, ev := range events {
		ch <- ev
	}
	close(ch)
	return &MockStream{events: ch}
}

// NewPendingMockStream returns a stream whose events are pushed later via
// Emit, for tests that need to control timing.
func NewPendingMockStream(buffer int) *MockStream {
	return &MockStream{events: make(chan Event, buffer)}
}

func (s *MockStream) Emit(ev Event) { s.events <- ev }

// Finish closes the event channel; only valid for pending streams.
func (s *MockStream) Finish() { close(s.events) }

func (s *MockStream) Events() <-chan Event { return s.events }

func (s *MockStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed++
	return nil
}

// CloseCount reports how many times Close was invoked.
func (s *MockStream) CloseCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// MockProviders serves canned results for every provider interface.
type MockProviders struct {
	TranscriptionResult TranscriptionResult
	TranscriptionErr    error

	TranslationResult TranslationResult
	TranslationErr    error

	ExplanationResult Explanation
	ExplanationErr    error

	Stream        Stream
	SynthesizeErr error
	SampleRate    int
}

func (m *MockProviders) Transcribe(_ context.Context, _ []byte, _ TranscriptionOptions) (TranscriptionResult, error) {
	return m.TranscriptionResult, m.TranscriptionErr
}

func (m *MockProviders) Translate(_ context.Context, _, _, _ string, _ *TranslationOptions) (TranslationResult, error) {
	return m.TranslationResult, m.TranslationErr
}

func (m *MockProviders) Explain(_ context.Context, _, _, _, _ string) (Explanation, error) {
	return m.ExplanationResult, m.ExplanationErr
}

func (m *MockProviders) Metadata(opts TTSOptions) StreamMetadata {
	sampleRate := m.SampleRate
	if opts.SampleRate > 0 {
		sampleRate = opts.SampleRate
	}
	if sampleRate <= 0 {
		sampleRate = 44100
	}
	return StreamMetadata{Format: "pcm_f32le", SampleRate: sampleRate}
}

func (m *MockProviders) Synthesize(_ context.Context, _, _, _ string, _ TTSOptions) (Stream, error) {
	if m.SynthesizeErr != nil {
		return nil, m.SynthesizeErr
	}
	return m.Stream, nil
}
