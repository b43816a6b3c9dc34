package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mkarlsen/parley/internal/auth"
	"github.com/mkarlsen/parley/internal/config"
	"github.com/mkarlsen/parley/internal/provider"
	"github.com/mkarlsen/parley/internal/ratelimit"
)

type stubProviders struct {
	mock *provider.MockProviders
	err  error
}

func (p stubProviders) Transcriber() (provider.Transcriber, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.mock, nil
}

func (p stubProviders) Translator() (provider.Translator, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.mock, nil
}

func (p stubProviders) Explainer() (provider.Explainer, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.mock, nil
}

func (p stubProviders) Synthesizer() (provider.Synthesizer, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.mock, nil
}

type stubChecker struct{ decision ratelimit.Decision }

func (c stubChecker) Check(context.Context, string) ratelimit.Decision { return c.decision }

func allowAll() stubChecker {
	return stubChecker{decision: ratelimit.Decision{Allowed: true, Limit: 10, Remaining: 9, Reset: time.Now().Add(10 * time.Second)}}
}

func newTestServer(t *testing.T, production bool, providers Providers, limiter ratelimit.Checker) (*Server, *auth.Codec) {
	t.Helper()
	codec, err := auth.NewCodec("test-secret", 24*time.Hour, time.Hour)
	if err != nil {
		t.Fatalf("NewCodec() error = %v", err)
	}
	cfg := config.Config{
		Environment:             "development",
		StreamInactivityTimeout: time.Second,
	}
	if production {
		cfg.Environment = "production"
	}
	pipeline := auth.NewPipeline(codec, limiter, production)
	return New(cfg, codec, pipeline, providers, nil, nil), codec
}

func authorize(t *testing.T, r *http.Request, codec *auth.Codec) {
	t.Helper()
	token, err := codec.Issue()
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	r.Header.Set("Authorization", "Bearer "+token)
	r.Header.Set("Origin", "http://localhost:3000")
}

func TestSecurityHeadersOnEveryResponse(t *testing.T) {
	s, _ := newTestServer(t, false, stubProviders{mock: &provider.MockProviders{}}, allowAll())

	r := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, r)

	want := map[string]string{
		"X-Frame-Options":                   "DENY",
		"X-Content-Type-Options":            "nosniff",
		"Referrer-Policy":                   "origin-when-cross-origin",
		"Strict-Transport-Security":         "max-age=31536000; includeSubDomains",
		"X-Permitted-Cross-Domain-Policies": "none",
		"X-DNS-Prefetch-Control":            "off",
	}
	for name, value := range want {
		if got := rec.Header().Get(name); got != value {
			t.Errorf("header %s = %q, want %q", name, got, value)
		}
	}
}

func TestFirstTouchMintsSessionToken(t *testing.T) {
	s, codec := newTestServer(t, false, stubProviders{mock: &provider.MockProviders{}}, allowAll())

	r := httptest.NewRequest(http.MethodGet, "/api/voices", nil)
	r.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, r)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, http.StatusOK, rec.Body.String())
	}

	res := rec.Result()
	var sessionCookie *http.Cookie
	for _, c := range res.Cookies() {
		if c.Name == auth.SessionCookie {
			sessionCookie = c
		}
	}
	if sessionCookie == nil {
		t.Fatal("no session-token cookie on first touch")
	}
	if !sessionCookie.HttpOnly {
		t.Error("session cookie is not HttpOnly")
	}
	if sessionCookie.SameSite != http.SameSiteLaxMode {
		t.Errorf("SameSite = %v, want Lax", sessionCookie.SameSite)
	}
	if sessionCookie.Secure {
		t.Error("session cookie is Secure in development")
	}
	if sessionCookie.MaxAge != int((24 * time.Hour).Seconds()) {
		t.Errorf("MaxAge = %d, want %d", sessionCookie.MaxAge, int((24 * time.Hour).Seconds()))
	}
	if _, ok := codec.Verify(sessionCookie.Value); !ok {
		t.Error("minted cookie token does not verify")
	}

	authz := rec.Header().Get("Authorization")
	if authz != "Bearer "+sessionCookie.Value {
		t.Errorf("Authorization = %q, want Bearer mirror of cookie", authz)
	}
}

func TestTranslateEndToEnd(t *testing.T) {
	mock := &provider.MockProviders{
		TranslationResult: provider.TranslationResult{Text: "Hello", Confidence: 1},
	}
	s, codec := newTestServer(t, false, stubProviders{mock: mock}, stubChecker{
		decision: ratelimit.Decision{Allowed: true, Limit: 10, Remaining: 9, Reset: time.Now().Add(10 * time.Second)},
	})

	body := strings.NewReader(`{"text":"Hola","fromLang":"es","toLang":"en"}`)
	r := httptest.NewRequest(http.MethodPost, "/api/translate", body)
	r.Header.Set("Content-Type", "application/json")
	authorize(t, r, codec)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, r)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, http.StatusOK, rec.Body.String())
	}
	var result provider.TranslationResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if result.Text != "Hello" || result.Confidence != 1 {
		t.Fatalf("result = %+v, want Hello/1", result)
	}
	if got := rec.Header().Get("X-RateLimit-Remaining"); got != "9" {
		t.Errorf("X-RateLimit-Remaining = %q, want %q", got, "9")
	}
}

func TestTranslateRejectsMissingFields(t *testing.T) {
	s, codec := newTestServer(t, false, stubProviders{mock: &provider.MockProviders{}}, allowAll())

	r := httptest.NewRequest(http.MethodPost, "/api/translate", strings.NewReader(`{"text":"hola"}`))
	authorize(t, r, codec)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, r)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestForeignOriginRejectedInProduction(t *testing.T) {
	s, codec := newTestServer(t, true, stubProviders{mock: &provider.MockProviders{}}, allowAll())

	token, err := codec.Issue()
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	r := httptest.NewRequest(http.MethodPost, "/api/translate", strings.NewReader(`{"text":"a","fromLang":"es","toLang":"en"}`))
	r.Header.Set("Authorization", "Bearer "+token)
	r.Header.Set("Origin", "https://evil.example.net")
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, r)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
	var body errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if body.Code != "UNAUTHORIZED" {
		t.Errorf("code = %q, want UNAUTHORIZED", body.Code)
	}
}

func TestRateLimitedRequestGets429WithHeaders(t *testing.T) {
	reset := time.Now().Add(7 * time.Second)
	s, codec := newTestServer(t, false, stubProviders{mock: &provider.MockProviders{}}, stubChecker{
		decision: ratelimit.Decision{Allowed: false, Limit: 10, Remaining: 0, Reset: reset},
	})

	r := httptest.NewRequest(http.MethodPost, "/api/translate", strings.NewReader(`{"text":"a","fromLang":"es","toLang":"en"}`))
	authorize(t, r, codec)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, r)

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusTooManyRequests)
	}
	if got := rec.Header().Get("X-RateLimit-Limit"); got != "10" {
		t.Errorf("X-RateLimit-Limit = %q, want 10", got)
	}
	if got := rec.Header().Get("X-RateLimit-Remaining"); got != "0" {
		t.Errorf("X-RateLimit-Remaining = %q, want 0", got)
	}
	if rec.Header().Get("X-RateLimit-Reset") == "" {
		t.Error("X-RateLimit-Reset header missing")
	}
}

func TestNearExpiryTokenIsRenewed(t *testing.T) {
	s, codec := newTestServer(t, false, stubProviders{mock: &provider.MockProviders{}}, allowAll())

	start := time.Now()
	now := start
	codec.SetClock(func() time.Time { return now })

	token, err := codec.Issue()
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	now = start.Add(23*time.Hour + 30*time.Minute)

	r := httptest.NewRequest(http.MethodGet, "/api/voices", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	r.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, r)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, http.StatusOK, rec.Body.String())
	}
	authz := rec.Header().Get("Authorization")
	if !strings.HasPrefix(authz, "Bearer ") {
		t.Fatalf("Authorization = %q, want renewed bearer token", authz)
	}
	renewed := strings.TrimPrefix(authz, "Bearer ")
	if renewed == token {
		t.Fatal("token was not renewed")
	}
	if _, ok := codec.Verify(renewed); !ok {
		t.Fatal("renewed token does not verify")
	}
}

func TestExplainReturnsStructuredCritique(t *testing.T) {
	mock := &provider.MockProviders{
		ExplanationResult: provider.Explanation{
			Accurate: true,
			Idioms: provider.SegmentList{{
				OriginalTextString:   "estar en las nubes",
				TranslatedTextString: "daydreaming",
				AdditionalDetails:    "literally: to be in the clouds",
			}},
			Tone: "informal",
		},
	}
	s, codec := newTestServer(t, false, stubProviders{mock: mock}, allowAll())

	body := strings.NewReader(`{"originalText":"estar en las nubes","translatedText":"daydreaming","fromLang":"es","toLang":"en"}`)
	r := httptest.NewRequest(http.MethodPost, "/api/explain", body)
	authorize(t, r, codec)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, r)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, http.StatusOK, rec.Body.String())
	}
	got := rec.Body.String()
	if !strings.Contains(got, `"accurate":true`) {
		t.Errorf("body = %s, want accurate:true", got)
	}
	if !strings.Contains(got, `"possibleMistranslations":false`) {
		t.Errorf("body = %s, want possibleMistranslations:false when empty", got)
	}
}

func TestTTSStreamsAudioWithMetadataHeaders(t *testing.T) {
	mock := &provider.MockProviders{
		Stream: provider.NewMockStream(
			provider.Event{Type: provider.EventAudio, Audio: []byte{1, 2, 3, 4}},
			provider.Event{Type: provider.EventAudio, Audio: []byte{5, 6}},
			provider.Event{Type: provider.EventDone},
		),
	}
	s, codec := newTestServer(t, false, stubProviders{mock: mock}, allowAll())

	body := strings.NewReader(`{"text":"hello","language":"en","voiceId":"41534e16-2966-4c6b-9670-111411def906"}`)
	r := httptest.NewRequest(http.MethodPost, "/api/tts", body)
	authorize(t, r, codec)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, r)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if got := rec.Header().Get("X-Audio-Format"); got != "pcm_f32le" {
		t.Errorf("X-Audio-Format = %q, want pcm_f32le", got)
	}
	if got := rec.Header().Get("X-Sample-Rate"); got != "44100" {
		t.Errorf("X-Sample-Rate = %q, want 44100", got)
	}
	if got := rec.Body.Bytes(); len(got) != 6 {
		t.Errorf("body length = %d, want 6", len(got))
	}
}

func TestTTSWavContainerPrefixesHeader(t *testing.T) {
	mock := &provider.MockProviders{
		Stream: provider.NewMockStream(
			provider.Event{Type: provider.EventAudio, Audio: []byte{0, 0, 128, 63}},
			provider.Event{Type: provider.EventDone},
		),
	}
	s, codec := newTestServer(t, false, stubProviders{mock: mock}, allowAll())

	body := strings.NewReader(`{"text":"hello","language":"en","voiceId":"v1","container":"wav"}`)
	r := httptest.NewRequest(http.MethodPost, "/api/tts", body)
	authorize(t, r, codec)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, r)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if got := rec.Header().Get("Content-Type"); got != "audio/wav" {
		t.Errorf("Content-Type = %q, want audio/wav", got)
	}
	got := rec.Body.Bytes()
	if len(got) != 44+4 {
		t.Fatalf("body length = %d, want 48", len(got))
	}
	if string(got[0:4]) != "RIFF" || string(got[8:12]) != "WAVE" {
		t.Fatalf("body does not start with a WAV header: %q", got[:12])
	}
}

func TestTTSRejectsUnknownContainer(t *testing.T) {
	s, codec := newTestServer(t, false, stubProviders{mock: &provider.MockProviders{}}, allowAll())

	body := strings.NewReader(`{"text":"hello","language":"en","voiceId":"v1","container":"ogg"}`)
	r := httptest.NewRequest(http.MethodPost, "/api/tts", body)
	authorize(t, r, codec)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, r)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestTTSConnectFailureReturnsProviderError(t *testing.T) {
	mock := &provider.MockProviders{
		SynthesizeErr: &provider.Error{
			Provider: "Cartesia",
			Code:     provider.CodeProvider,
			Message:  "could not connect to synthesis service",
		},
	}
	s, codec := newTestServer(t, false, stubProviders{mock: mock}, allowAll())

	body := strings.NewReader(`{"text":"hello","language":"en","voiceId":"v1"}`)
	r := httptest.NewRequest(http.MethodPost, "/api/tts", body)
	authorize(t, r, codec)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, r)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, http.StatusBadRequest, rec.Body.String())
	}
	var resp providerErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.Provider != "Cartesia" || resp.Code != provider.CodeProvider {
		t.Fatalf("response = %+v, want Cartesia/%s", resp, provider.CodeProvider)
	}
}

func TestTranscribeAcceptsMultipartUpload(t *testing.T) {
	mock := &provider.MockProviders{
		TranscriptionResult: provider.TranscriptionResult{Text: "hola mundo", Language: "es", Confidence: 0.97},
	}
	s, codec := newTestServer(t, false, stubProviders{mock: mock}, allowAll())

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("audio", "turn.webm")
	if err != nil {
		t.Fatalf("CreateFormFile() error = %v", err)
	}
	if _, err := part.Write([]byte("fake audio bytes")); err != nil {
		t.Fatalf("writing form file: %v", err)
	}
	if err := mw.WriteField("language_code", "es"); err != nil {
		t.Fatalf("WriteField() error = %v", err)
	}
	mw.Close()

	r := httptest.NewRequest(http.MethodPost, "/api/transcribe", &buf)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	authorize(t, r, codec)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, r)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, http.StatusOK, rec.Body.String())
	}
	var result provider.TranscriptionResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if result.Text != "hola mundo" || result.Language != "es" {
		t.Fatalf("result = %+v, want hola mundo/es", result)
	}
}

func TestTranscribeRejectsMissingFile(t *testing.T) {
	s, codec := newTestServer(t, false, stubProviders{mock: &provider.MockProviders{}}, allowAll())

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.Close()

	r := httptest.NewRequest(http.MethodPost, "/api/transcribe", &buf)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	authorize(t, r, codec)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, r)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestVoicesCatalogCoversLanguages(t *testing.T) {
	s, codec := newTestServer(t, false, stubProviders{mock: &provider.MockProviders{}}, allowAll())

	r := httptest.NewRequest(http.MethodGet, "/api/voices", nil)
	authorize(t, r, codec)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, r)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var catalog map[string]languageVoices
	if err := json.Unmarshal(rec.Body.Bytes(), &catalog); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	for _, code := range []string{"en", "es", "ja", "tr"} {
		lang, ok := catalog[code]
		if !ok {
			t.Errorf("catalog missing language %q", code)
			continue
		}
		if len(lang.VoiceOptions) != 2 {
			t.Errorf("language %q has %d voices, want 2", code, len(lang.VoiceOptions))
		}
	}
}
