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
)

const anthropicName = "Anthropic"

// AnthropicClient implements translation and explanation over the Anthropic
// Messages API.
type AnthropicClient struct {
	apiKey  string
	baseURL string
	model   string
	http    *http.Client
}

func NewAnthropicClient(apiKey, baseURL, model string) (*AnthropicClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, newError(anthropicName, CodeConfiguration, "Anthropic API key not configured", nil)
	}
	if strings.TrimSpace(baseURL) == "" {
		baseURL = "https://api.anthropic.com"
	}
	if strings.TrimSpace(model) == "" {
		model = "claude-3-5-sonnet-20240620"
	}
	return &AnthropicClient{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		http:    &http.Client{Timeout: 60 * time.Second},
	}, nil
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float64            `json:"temperature"`
	System      string             `json:"system"`
	Messages    []anthropicMessage `json:"messages"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Translate renders text from one language into another, steering register
// through the option knobs.
func (c *AnthropicClient) Translate(ctx context.Context, text, fromLang, toLang string, opts *TranslationOptions) (TranslationResult, error) {
	system := translationSystemPrompt(fromLang, toLang, opts)

	out, err := c.complete(ctx, anthropicRequest{
		Model:       c.model,
		MaxTokens:   5463,
		Temperature: 0,
		System:      system,
		Messages:    []anthropicMessage{{Role: "user", Content: text}},
	})
	if err != nil {
		return TranslationResult{}, err
	}

	// The API does not report confidence; 1.0 keeps the response shape
	// stable for clients that display it.
	return TranslationResult{Text: out, Confidence: 1.0}, nil
}

func translationSystemPrompt(fromLang, toLang string, opts *TranslationOptions) string {
	var tone, detail, emotion, gender string
	if opts != nil {
		if opts.Tone < 0 {
			tone = "Be casual - this is a friendly conversation"
		} else if opts.Tone > 0 {
			tone = "Be very respectful. The speaker is talking to somebody they look up to, like a professor or a mother-in-law. Ensure that your translation conveys their sincere politeness and avoids misunderstandings."
		}
		if opts.Detail < 0 {
			detail = "Be concise."
		} else if opts.Detail > 0 {
			detail = "Convey the meaning fully, using as many words as needed to get the general feeling across."
		}
		if opts.Emotion < 0 {
			emotion = "The speaker is feeling warm and positive."
		} else if opts.Emotion > 0 {
			emotion = "The speaker is feeling negative and upset."
		}
		if opts.FromGender != "" && opts.ToGender != "" {
			gender = fmt.Sprintf("The speaker is %s, and the listener is %s.", opts.FromGender, opts.ToGender)
		}
	}

	return fmt.Sprintf(`You are utterly fluent in both %[1]s and %[2]s. You are assisting in translating from %[1]s into %[2]s. %[3]s

There may be errors in the transcription, so if something sounds nonsensical, go with the common-sense version. Use punctuation freely to make the translation more readable and split it into bite sized chunks.
%[4]s %[5]s %[6]s
When the user gives a message in %[1]s, you immediately respond with the %[2]s translation.

Provide only the translation.`, fromLang, toLang, gender, tone, detail, emotion)
}

// Explain critiques a finished translation: accuracy, idioms, likely
// mistranscriptions and tone. The assistant turn is primed with "{" so the
// model completes a bare JSON object.
func (c *AnthropicClient) Explain(ctx context.Context, originalText, translatedText, fromLang, toLang string) (Explanation, error) {
	system := fmt.Sprintf(`You're fluent in %[1]s and %[2]s. You help check translations, and explain the vagaries of language.

People come to you with original text and their translation. You tell them whether the translation is accurate, whether there's any idioms in the original text which can be hard to translate, and if there's anything missing in the tone. There may have been mistranscriptions in the original text, so note that under possibleMistranslations if something seems nonsensical.

You respond with an object of type TranslationInfo given in TypeScript below:

type SegmentExplainer = {
  originalTextString: string; // verbatim the substring of the original text this references
  translatedTextString: string;
  additionalDetails: string; // the additional information you want to add. Provided in %[2]s.
}

type TranslationInfo = {
  accurate: boolean; // whether the translation is accurate
  possibleMistranslations: false | SegmentExplainer[]; // whether any translations could be improved
  idioms: false | SegmentExplainer[]; // whether there's any idioms, and if so, what
  tone: string; // Quick description of the tone of the original string. Provided in %[2]s.
}

Make sure you give correct json, using double quotes, and closing brackets properly. Don't be afraid to say there's no mistranslations or idioms!`, fromLang, toLang)

	out, err := c.complete(ctx, anthropicRequest{
		Model:       c.model,
		MaxTokens:   5463,
		Temperature: 0.1,
		System:      system,
		Messages: []anthropicMessage{
			{Role: "user", Content: fmt.Sprintf("Original text: %s\n\nTranslated text: %s", originalText, translatedText)},
			{Role: "assistant", Content: "{"},
		},
	})
	if err != nil {
		return Explanation{}, err
	}

	var explanation Explanation
	if err := json.Unmarshal([]byte("{"+out), &explanation); err != nil {
		return Explanation{}, newError(anthropicName, CodeParsing, "Failed to parse explanation result", err)
	}
	return explanation, nil
}

// complete performs one Messages API round trip and returns the first text
// block.
func (c *AnthropicClient) complete(ctx context.Context, payload anthropicRequest) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", newError(anthropicName, CodeProvider, "encode request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return "", newError(anthropicName, CodeProvider, "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	res, err := c.http.Do(req)
	if err != nil {
		return "", newError(anthropicName, CodeProvider, "request failed", err)
	}
	defer res.Body.Close()

	data, err := io.ReadAll(io.LimitReader(res.Body, 4<<20))
	if err != nil {
		return "", newError(anthropicName, CodeProvider, "read response", err)
	}

	var parsed anthropicResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", newError(anthropicName, CodeParsing, "malformed response payload", err)
	}
	if res.StatusCode != http.StatusOK {
		msg := fmt.Sprintf("unexpected status %d", res.StatusCode)
		if parsed.Error != nil && parsed.Error.Message != "" {
			msg = parsed.Error.Message
		}
		return "", newError(anthropicName, CodeProvider, msg, nil)
	}
	if len(parsed.Content) == 0 {
		return "", newError(anthropicName, CodeParsing, "response carried no content blocks", nil)
	}
	return parsed.Content[0].Text, nil
}
