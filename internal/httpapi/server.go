package httpapi

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mkarlsen/parley/internal/auth"
	"github.com/mkarlsen/parley/internal/config"
	"github.com/mkarlsen/parley/internal/observability"
	"github.com/mkarlsen/parley/internal/provider"
	"github.com/mkarlsen/parley/internal/ratelimit"
	"github.com/mkarlsen/parley/internal/telemetry"
)

// Providers hands out the upstream clients a route needs. Construction is
// deferred to first use so a missing credential fails the route, not the
// process.
type Providers interface {
	Transcriber() (provider.Transcriber, error)
	Translator() (provider.Translator, error)
	Explainer() (provider.Explainer, error)
	Synthesizer() (provider.Synthesizer, error)
}

type Server struct {
	cfg       config.Config
	codec     *auth.Codec
	pipeline  *auth.Pipeline
	providers Providers
	telemetry *telemetry.Logger
	metrics   *observability.Metrics
}

func New(cfg config.Config, codec *auth.Codec, pipeline *auth.Pipeline, providers Providers, logger *telemetry.Logger, metrics *observability.Metrics) *Server {
	return &Server{
		cfg:       cfg,
		codec:     codec,
		pipeline:  pipeline,
		providers: providers,
		telemetry: logger,
		metrics:   metrics,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.securityHeaders)

	r.Get("/healthz", s.handleHealth)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	r.Post("/api/transcribe", s.handleTranscribe)
	r.Post("/api/translate", s.handleTranslate)
	r.Post("/api/explain", s.handleExplain)
	r.Post("/api/tts", s.handleTTS)
	r.Get("/api/voices", s.handleListVoices)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
	})
}

// validate runs the session pipeline for an API route. It writes the error
// response itself and returns false when the request must not proceed. On
// success any renewed token is already attached to the response.
func (s *Server) validate(w http.ResponseWriter, r *http.Request, route string) bool {
	outcome, err := s.pipeline.Validate(r)

	setRateLimitHeaders(w, outcome.RateLimit)
	if outcome.RenewedToken != "" {
		s.setSessionToken(w, r, outcome.RenewedToken)
		if s.metrics != nil {
			s.metrics.TokensIssued.WithLabelValues("renewal").Inc()
		}
	}

	switch {
	case err == nil:
		return true
	case errors.Is(err, ratelimit.ErrLimited):
		if s.metrics != nil {
			s.metrics.RateLimited.Inc()
		}
		s.countRequest(route, http.StatusTooManyRequests)
		respondError(w, http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests")
	default:
		s.countRequest(route, http.StatusUnauthorized)
		respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid session")
	}
	return false
}

func setRateLimitHeaders(w http.ResponseWriter, d ratelimit.Decision) {
	if d.Limit == 0 {
		return
	}
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(d.Reset.Unix(), 10))
}

// setSessionToken attaches a token to the response as both a cookie and an
// Authorization header, so browser and fetch-based clients stay in sync.
func (s *Server) setSessionToken(w http.ResponseWriter, r *http.Request, token string) {
	cookie := &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    token,
		Path:     "/",
		Domain:   bareHost(r.Host),
		MaxAge:   int(s.codec.TTL().Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   s.cfg.Production(),
	}
	http.SetCookie(w, cookie)
	w.Header().Set("Authorization", "Bearer "+token)
}

func bareHost(host string) string {
	if h, _, err := net.SplitHostPort(host); err == nil {
		return h
	}
	return host
}

func (s *Server) countRequest(route string, status int) {
	if s.metrics == nil {
		return
	}
	s.metrics.Requests.WithLabelValues(route, strconv.Itoa(status)).Inc()
}

// respondProviderError maps an upstream failure to the client. Provider
// errors are client-visible 400s carrying the provider name and code so the
// UI can explain what went wrong; anything else is an opaque 500.
func (s *Server) respondProviderError(w http.ResponseWriter, route string, err error) {
	var pe *provider.Error
	if errors.As(err, &pe) {
		if s.metrics != nil {
			s.metrics.ProviderErrors.WithLabelValues(pe.Provider, pe.Code).Inc()
		}
		s.countRequest(route, http.StatusBadRequest)
		respondJSON(w, http.StatusBadRequest, providerErrorResponse{
			Error:    pe.Message,
			Code:     pe.Code,
			Provider: pe.Provider,
		})
		return
	}
	s.countRequest(route, http.StatusInternalServerError)
	respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

type providerErrorResponse struct {
	Error    string `json:"error"`
	Code     string `json:"code"`
	Provider string `json:"provider"`
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(out); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "eof") {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}
