package provider

import "fmt"

// CLIError represents a failure from a provider's CLI invocation.
type CLIError struct {
	Provider string
	Message  string
	Err      error
}

func (e *CLIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

func (e *CLIError) Unwrap() error {
	return e.Err
}

// MalformedOutputError is returned when an LLM response cannot be parsed
// into the expected structure. The offending text is preserved so the
// failure can be diagnosed from logs.
type MalformedOutputError struct {
	Reason string
	Raw    string
}

func (e *MalformedOutputError) Error() string {
	return fmt.Sprintf("malformed LLM output: %s\n\nRaw response:\n%s", e.Reason, e.Raw)
}
