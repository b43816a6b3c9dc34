package provider

import "fmt"

// Machine-readable error codes surfaced to clients alongside the provider
// name.
const (
	CodeConfiguration = "CONFIGURATION_ERROR"
	CodeProvider      = "PROVIDER_ERROR"
	CodeProcessing    = "PROCESSING_ERROR"
	CodeParsing       = "PARSING_ERROR"
	CodeTranscription = "TRANSCRIPTION_FAILED"
)

// Error wraps any failure from an external AI call as an explicit,
// inspectable value: routes map it to a 400 with {error, code, provider}
// instead of letting upstream details leak through a generic 500.
type Error struct {
	Provider string
	Code     string
	Message  string
	Err      error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s: %s: %v", e.Provider, e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s %s: %s", e.Provider, e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(providerName, code, message string, cause error) *Error {
	return &Error{Provider: providerName, Code: code, Message: message, Err: cause}
}
