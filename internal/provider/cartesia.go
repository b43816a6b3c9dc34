package provider

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const cartesiaName = "Cartesia"

const (
	cartesiaVersion    = "2024-06-10"
	cartesiaFormat     = "pcm_f32le"
	cartesiaSampleRate = 44100
)

// CartesiaClient synthesizes speech over the provider's live websocket
// protocol: one connection per request, chunk messages carrying base64
// audio, an explicit done message at the end.
type CartesiaClient struct {
	apiKey    string
	wsBaseURL string
	model     string
}

func NewCartesiaClient(apiKey, wsBaseURL, model string) (*CartesiaClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, newError(cartesiaName, CodeConfiguration, "Cartesia API key not configured", nil)
	}
	if strings.TrimSpace(wsBaseURL) == "" {
		wsBaseURL = "wss://api.cartesia.ai"
	}
	if strings.TrimSpace(model) == "" {
		model = "sonic-multilingual"
	}
	return &CartesiaClient{apiKey: apiKey, wsBaseURL: wsBaseURL, model: model}, nil
}

// Metadata describes the stream before it starts; the route sends it as
// response headers ahead of the first chunk.
func (c *CartesiaClient) Metadata(opts TTSOptions) StreamMetadata {
	sampleRate := opts.SampleRate
	if sampleRate <= 0 {
		sampleRate = cartesiaSampleRate
	}
	return StreamMetadata{Format: cartesiaFormat, SampleRate: sampleRate}
}

type cartesiaVoice struct {
	Mode     string            `json:"mode"`
	ID       string            `json:"id"`
	Controls *cartesiaControls `json:"__experimental_controls,omitempty"`
}

type cartesiaControls struct {
	Speed   string   `json:"speed"`
	Emotion []string `json:"emotion"`
}

type cartesiaOutputFormat struct {
	Container  string `json:"container"`
	Encoding   string `json:"encoding"`
	SampleRate int    `json:"sample_rate"`
}

type cartesiaRequest struct {
	ModelID      string               `json:"model_id"`
	Voice        cartesiaVoice        `json:"voice"`
	OutputFormat cartesiaOutputFormat `json:"output_format"`
	Language     string               `json:"language"`
	Transcript   string               `json:"transcript"`
	ContextID    string               `json:"context_id"`
}

func (c *CartesiaClient) Synthesize(ctx context.Context, text, language, voiceID string, opts TTSOptions) (Stream, error) {
	if strings.TrimSpace(voiceID) == "" {
		return nil, newError(cartesiaName, CodeProvider, "voice id is required", nil)
	}

	u, err := url.Parse(strings.TrimRight(c.wsBaseURL, "/") + "/tts/websocket")
	if err != nil {
		return nil, newError(cartesiaName, CodeProvider, "invalid websocket base url", err)
	}
	q := u.Query()
	q.Set("api_key", c.apiKey)
	q.Set("cartesia_version", cartesiaVersion)
	u.RawQuery = q.Encode()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, newError(cartesiaName, CodeProvider, "dial tts websocket", err)
	}

	metadata := c.Metadata(opts)
	req := cartesiaRequest{
		ModelID: c.model,
		Voice: cartesiaVoice{
			Mode: "id",
			ID:   voiceID,
			Controls: &cartesiaControls{
				Speed:   speedSetting(opts.Speed),
				Emotion: emotionSettings(opts.Emotion),
			},
		},
		OutputFormat: cartesiaOutputFormat{
			Container:  "raw",
			Encoding:   cartesiaFormat,
			SampleRate: metadata.SampleRate,
		},
		Language:   language,
		Transcript: text,
		ContextID:  uuid.NewString(),
	}
	if err := conn.WriteJSON(req); err != nil {
		_ = conn.Close()
		return nil, newError(cartesiaName, CodeProvider, "send synthesis request", err)
	}

	s := &cartesiaStream{conn: conn, events: make(chan Event, 64), done: make(chan struct{})}
	go s.readLoop()
	return s, nil
}

// speedSetting folds the -1..1 slider into the provider's named buckets.
func speedSetting(speed float64) string {
	switch {
	case speed < -0.3:
		return "slowest"
	case speed > 0.3:
		return "fastest"
	default:
		return "normal"
	}
}

func emotionSettings(emotion float64) []string {
	switch {
	case emotion < 0:
		return []string{"positivity:high", "sadness:low"}
	case emotion > 0:
		return []string{"sadness:high", "positivity:low"}
	default:
		return []string{}
	}
}

type cartesiaStream struct {
	conn      *websocket.Conn
	closeOnce sync.Once
	events    chan Event
	done      chan struct{}
}

func (s *cartesiaStream) Events() <-chan Event { return s.events }

func (s *cartesiaStream) Close() error {
	var retErr error
	s.closeOnce.Do(func() {
		close(s.done)
		retErr = s.conn.Close()
	})
	return retErr
}

// emit delivers an event unless the stream has been closed; a closed stream
// has no consumer left to block on.
func (s *cartesiaStream) emit(ev Event) bool {
	select {
	case s.events <- ev:
		return true
	case <-s.done:
		return false
	}
}

type cartesiaMessage struct {
	Type  string `json:"type"`
	Data  string `json:"data"`
	Error string `json:"error"`
}

// readLoop decodes provider messages into the event channel. Chunks are
// forwarded in arrival order; a malformed message aborts the stream rather
// than dropping the chunk and continuing.
func (s *cartesiaStream) readLoop() {
	defer close(s.events)
	defer s.Close()
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			s.emit(Event{Type: EventError, Code: CodeProvider, Detail: fmt.Sprintf("read synthesis message: %v", err)})
			return
		}

		var msg cartesiaMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.emit(Event{Type: EventError, Code: CodeProcessing, Detail: "Error processing audio chunk"})
			return
		}

		switch msg.Type {
		case "chunk":
			audio, err := base64.StdEncoding.DecodeString(msg.Data)
			if err != nil {
				s.emit(Event{Type: EventError, Code: CodeProcessing, Detail: "Error processing audio chunk"})
				return
			}
			if !s.emit(Event{Type: EventAudio, Audio: audio}) {
				return
			}
		case "done":
			s.emit(Event{Type: EventDone})
			return
		case "error":
			detail := msg.Error
			if detail == "" {
				detail = "synthesis failed"
			}
			s.emit(Event{Type: EventError, Code: CodeProvider, Detail: detail})
			return
		default:
			// Timestamp and flush-confirmation messages are irrelevant
			// to audio relay.
		}
	}
}
