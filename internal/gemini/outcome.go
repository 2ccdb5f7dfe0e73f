package gemini

import (
	"fmt"
	"time"
)

// Kind tags the result of a single invocation.
type Kind int

// Outcome kinds.
const (
	KindSuccess Kind = iota
	KindEmptyPrompt
	KindTimeout
	KindNonZeroExit
	KindNotFound
	KindUnexpected
	KindPayloadTooLarge
)

var kindNames = map[Kind]string{
	KindSuccess:         "success",
	KindEmptyPrompt:     "empty_prompt",
	KindTimeout:         "timeout",
	KindNonZeroExit:     "non_zero_exit",
	KindNotFound:        "not_found",
	KindUnexpected:      "unexpected",
	KindPayloadTooLarge: "payload_too_large",
}

// String returns the kind name used in logs and audit events.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Outcome is the tagged result of Controller.Invoke.
// Only the fields relevant to Kind are set.
type Outcome struct {
	// Kind selects the variant.
	Kind Kind
	// Output is the captured stdout on success.
	Output string
	// Stderr is the captured stderr on non-zero exit.
	Stderr string
	// ExitCode is the process exit code when the process ran to completion.
	ExitCode int
	// Message describes an unexpected failure.
	Message string
	// After is the deadline that elapsed on timeout.
	After time.Duration
	// Limit is the payload cap that was exceeded.
	Limit int
}

// Fixed messages returned to MCP callers.
const (
	MessageEmptyPrompt = "Error: prompt cannot be empty"
	MessageNotFound    = "Error: 'gemini' CLI tool not found. Please ensure it is installed and in PATH"
)

// Success wraps process output.
func Success(output string) Outcome {
	return Outcome{Kind: KindSuccess, Output: output}
}

// EmptyPrompt reports a blank prompt.
func EmptyPrompt() Outcome {
	return Outcome{Kind: KindEmptyPrompt}
}

// Timeout reports an elapsed deadline.
func Timeout(after time.Duration) Outcome {
	return Outcome{Kind: KindTimeout, After: after}
}

// NonZeroExit reports a failed process run.
func NonZeroExit(exitCode int, stderr string) Outcome {
	return Outcome{Kind: KindNonZeroExit, ExitCode: exitCode, Stderr: stderr}
}

// NotFound reports a missing executable.
func NotFound() Outcome {
	return Outcome{Kind: KindNotFound}
}

// Unexpected reports any other failure.
func Unexpected(err error) Outcome {
	return Outcome{Kind: KindUnexpected, Message: err.Error()}
}

// PayloadTooLarge reports a composed payload over the configured cap.
func PayloadTooLarge(limit int) Outcome {
	return Outcome{Kind: KindPayloadTooLarge, Limit: limit}
}

// IsError reports whether the outcome is anything but a successful run.
func (o Outcome) IsError() bool {
	return o.Kind != KindSuccess
}

// String renders the outcome as the text returned to the caller.
func (o Outcome) String() string {
	switch o.Kind {
	case KindSuccess:
		return o.Output
	case KindEmptyPrompt:
		return MessageEmptyPrompt
	case KindTimeout:
		return fmt.Sprintf("Error: Gemini request timed out after %d seconds", int(o.After/time.Second))
	case KindNonZeroExit:
		return "Error calling gemini tool: " + o.Stderr
	case KindNotFound:
		return MessageNotFound
	case KindPayloadTooLarge:
		return fmt.Sprintf("Error: payload exceeds %d byte limit", o.Limit)
	default:
		return "Unexpected error: " + o.Message
	}
}
