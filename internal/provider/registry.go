package provider

import (
	"sync"
)

// Settings carries the credentials and endpoints the registry builds
// clients from.
type Settings struct {
	AnthropicAPIKey  string
	AnthropicBaseURL string
	TranslationModel string

	AssemblyAIAPIKey  string
	AssemblyAIBaseURL string

	CartesiaAPIKey    string
	CartesiaWSBaseURL string
	TTSModel          string
}

// Registry hands out provider clients, constructing each on first use and
// memoizing the result. A missing credential surfaces as CONFIGURATION_ERROR
// at the first route that needs the provider, not as a nil client later.
type Registry struct {
	settings Settings

	anthropicOnce sync.Once
	anthropic     *AnthropicClient
	anthropicErr  error

	assemblyOnce sync.Once
	assembly     *AssemblyAIClient
	assemblyErr  error

	cartesiaOnce sync.Once
	cartesia     *CartesiaClient
	cartesiaErr  error
}

func NewRegistry(settings Settings) *Registry {
	return &Registry{settings: settings}
}

func (r *Registry) anthropicClient() (*AnthropicClient, error) {
	r.anthropicOnce.Do(func() {
		r.anthropic, r.anthropicErr = NewAnthropicClient(
			r.settings.AnthropicAPIKey,
			r.settings.AnthropicBaseURL,
			r.settings.TranslationModel,
		)
	})
	return r.anthropic, r.anthropicErr
}

func (r *Registry) Translator() (Translator, error) {
	return r.anthropicClient()
}

func (r *Registry) Explainer() (Explainer, error) {
	return r.anthropicClient()
}

func (r *Registry) Transcriber() (Transcriber, error) {
	r.assemblyOnce.Do(func() {
		r.assembly, r.assemblyErr = NewAssemblyAIClient(
			r.settings.AssemblyAIAPIKey,
			r.settings.AssemblyAIBaseURL,
		)
	})
	return r.assembly, r.assemblyErr
}

func (r *Registry) Synthesizer() (Synthesizer, error) {
	r.cartesiaOnce.Do(func() {
		r.cartesia, r.cartesiaErr = NewCartesiaClient(
			r.settings.CartesiaAPIKey,
			r.settings.CartesiaWSBaseURL,
			r.settings.TTSModel,
		)
	})
	return r.cartesia, r.cartesiaErr
}
