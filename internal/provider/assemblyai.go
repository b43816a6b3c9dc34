package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mkarlsen/parley/internal/reliability"
)

const assemblyAIName = "AssemblyAI"

// AssemblyAIClient transcribes recorded audio: upload the blob, create a
// transcript job, poll until it settles.
type AssemblyAIClient struct {
	apiKey       string
	baseURL      string
	http         *http.Client
	pollInterval time.Duration
}

func NewAssemblyAIClient(apiKey, baseURL string) (*AssemblyAIClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, newError(assemblyAIName, CodeConfiguration, "AssemblyAI API key not configured", nil)
	}
	if strings.TrimSpace(baseURL) == "" {
		baseURL = "https://api.assemblyai.com"
	}
	return &AssemblyAIClient{
		apiKey:       apiKey,
		baseURL:      strings.TrimRight(baseURL, "/"),
		http:         &http.Client{Timeout: 60 * time.Second},
		pollInterval: time.Second,
	}, nil
}

type assemblyTranscript struct {
	ID           string  `json:"id"`
	Status       string  `json:"status"`
	Text         string  `json:"text"`
	LanguageCode string  `json:"language_code"`
	Confidence   float64 `json:"confidence"`
	Error        string  `json:"error"`
	Words        []struct {
		Text       string  `json:"text"`
		Start      int     `json:"start"`
		End        int     `json:"end"`
		Confidence float64 `json:"confidence"`
	} `json:"words"`
}

func (c *AssemblyAIClient) Transcribe(ctx context.Context, audio []byte, opts TranscriptionOptions) (TranscriptionResult, error) {
	uploadURL, err := c.upload(ctx, audio)
	if err != nil {
		return TranscriptionResult{}, err
	}

	jobID, err := c.createTranscript(ctx, uploadURL, opts)
	if err != nil {
		return TranscriptionResult{}, err
	}

	transcript, err := c.awaitTranscript(ctx, jobID)
	if err != nil {
		return TranscriptionResult{}, err
	}

	result := TranscriptionResult{
		Text:       transcript.Text,
		Language:   transcript.LanguageCode,
		Confidence: transcript.Confidence,
	}
	for _, w := range transcript.Words {
		result.Words = append(result.Words, Word{
			Text:       w.Text,
			Start:      w.Start,
			End:        w.End,
			Confidence: w.Confidence,
		})
	}
	return result, nil
}

func (c *AssemblyAIClient) upload(ctx context.Context, audio []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v2/upload", bytes.NewReader(audio))
	if err != nil {
		return "", newError(assemblyAIName, CodeProvider, "build upload request", err)
	}
	req.Header.Set("Authorization", c.apiKey)
	req.Header.Set("Content-Type", "application/octet-stream")

	var out struct {
		UploadURL string `json:"upload_url"`
	}
	if err := c.do(req, &out); err != nil {
		return "", err
	}
	if out.UploadURL == "" {
		return "", newError(assemblyAIName, CodeParsing, "upload response missing upload_url", nil)
	}
	return out.UploadURL, nil
}

func (c *AssemblyAIClient) createTranscript(ctx context.Context, audioURL string, opts TranscriptionOptions) (string, error) {
	payload := map[string]any{
		"audio_url": audioURL,
	}
	if opts.LanguageCode != "" {
		payload["language_code"] = opts.LanguageCode
	} else {
		payload["language_detection"] = true
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", newError(assemblyAIName, CodeProvider, "encode transcript request", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v2/transcript", bytes.NewReader(body))
	if err != nil {
		return "", newError(assemblyAIName, CodeProvider, "build transcript request", err)
	}
	req.Header.Set("Authorization", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	var out assemblyTranscript
	if err := c.do(req, &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", newError(assemblyAIName, CodeParsing, "transcript response missing id", nil)
	}
	return out.ID, nil
}

// awaitTranscript polls the job until it completes or errors. Transient
// upstream failures back off and retry rather than abandoning the job.
func (c *AssemblyAIClient) awaitTranscript(ctx context.Context, id string) (assemblyTranscript, error) {
	attempt := 0
	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v2/transcript/"+id, nil)
		if err != nil {
			return assemblyTranscript{}, newError(assemblyAIName, CodeProvider, "build poll request", err)
		}
		req.Header.Set("Authorization", c.apiKey)

		var transcript assemblyTranscript
		err = c.do(req, &transcript)
		switch {
		case err == nil:
			switch transcript.Status {
			case "completed":
				return transcript, nil
			case "error":
				msg := transcript.Error
				if msg == "" {
					msg = "Unknown transcription error"
				}
				return assemblyTranscript{}, newError(assemblyAIName, CodeTranscription, msg, nil)
			}
			attempt = 0
		case reliability.IsRetryable(err):
			attempt++
			if attempt > 5 {
				return assemblyTranscript{}, err
			}
		default:
			return assemblyTranscript{}, err
		}

		delay := c.pollInterval
		if attempt > 0 {
			delay = reliability.ExponentialBackoff(attempt, c.pollInterval, 10*time.Second)
		}
		select {
		case <-ctx.Done():
			return assemblyTranscript{}, newError(assemblyAIName, CodeProvider, "transcription cancelled", ctx.Err())
		case <-time.After(delay):
		}
	}
}

func (c *AssemblyAIClient) do(req *http.Request, out any) error {
	res, err := c.http.Do(req)
	if err != nil {
		return newError(assemblyAIName, CodeProvider, "request failed", err)
	}
	defer res.Body.Close()

	data, err := io.ReadAll(io.LimitReader(res.Body, 4<<20))
	if err != nil {
		return newError(assemblyAIName, CodeProvider, "read response", err)
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		e := newError(assemblyAIName, CodeProvider, fmt.Sprintf("unexpected status %d", res.StatusCode), nil)
		if reliability.IsRetryableHTTPStatus(res.StatusCode) {
			e.Err = reliability.ErrRetryable
		}
		return e
	}
	if err := json.Unmarshal(data, out); err != nil {
		return newError(assemblyAIName, CodeParsing, "malformed response payload", err)
	}
	return nil
}
