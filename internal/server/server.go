package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/codex-k8s/gemini-check-mcp-server/internal/audit"
	"github.com/codex-k8s/gemini-check-mcp-server/internal/gemini"
)

// ToolName is the name of the single exposed tool.
const ToolName = "check_with_gemini"

const toolDescription = `A flexible tool to solicit feedback from Gemini on any topic or content. Supports code reviews, validation, alternative approaches, best practices, and general feedback.

Examples:
- Code Review: prompt="Review this Python function for best practices and potential issues", content="def calculate_sum(nums): return sum(nums)"
- Security Check: prompt="Analyze this code for security vulnerabilities", content="[code snippet]"
- Alternative Implementation: prompt="Suggest a more efficient algorithm for this sorting function", content="[current implementation]"
- Architecture Validation: prompt="Evaluate this system design for scalability", content="[architecture description]"
- General Feedback: prompt="What are your thoughts on this approach?", content="[approach description]"`

// Input is the tool argument schema.
type Input struct {
	// Prompt is the task or question.
	Prompt string `json:"prompt" jsonschema:"The task or question for Gemini to perform"`
	// Content is the text to analyze.
	Content string `json:"content" jsonschema:"The text content for Gemini to analyze"`
}

// Checker runs a single gemini check.
type Checker interface {
	// Invoke runs the check and returns its outcome.
	Invoke(ctx context.Context, prompt, content string) gemini.Outcome
}

// Builder constructs the MCP server.
type Builder struct {
	// Name is the MCP implementation name.
	Name string
	// Version is the MCP implementation version.
	Version string
	// Checker handles tool calls.
	Checker Checker
	// Logger is used for structured logging.
	Logger *slog.Logger
	// Audit records tool events.
	Audit audit.Logger
}

// Build creates an MCP server exposing the check tool.
func (b Builder) Build() (*mcp.Server, error) {
	if b.Checker == nil {
		return nil, fmt.Errorf("checker is nil")
	}
	name := b.Name
	if name == "" {
		name = ToolName
	}
	version := b.Version
	if version == "" {
		version = "dev"
	}

	server := mcp.NewServer(&mcp.Implementation{
		Name:    name,
		Version: version,
	}, nil)

	openWorld := true
	destructive := false
	mcp.AddTool(server, &mcp.Tool{
		Name:        ToolName,
		Title:       "Check with Gemini",
		Description: toolDescription,
		Annotations: &mcp.ToolAnnotations{
			Title:           "Check with Gemini",
			ReadOnlyHint:    true,
			IdempotentHint:  true,
			DestructiveHint: &destructive,
			OpenWorldHint:   &openWorld,
		},
	}, b.handle)

	return server, nil
}

func (b Builder) handle(ctx context.Context, _ *mcp.CallToolRequest, input Input) (*mcp.CallToolResult, any, error) {
	correlationID := newCorrelationID()
	payloadBytes := gemini.PayloadSize(input.Prompt, input.Content)

	if b.Logger != nil {
		b.Logger.InfoContext(ctx, "tool call",
			"tool", ToolName,
			"correlation_id", correlationID,
			"prompt_bytes", len(input.Prompt),
			"content_bytes", len(input.Content),
		)
	}

	start := time.Now()
	outcome := b.Checker.Invoke(ctx, input.Prompt, input.Content)
	elapsed := time.Since(start)
	text := outcome.String()

	if b.Logger != nil {
		attrs := []any{
			"tool", ToolName,
			"correlation_id", correlationID,
			"outcome", outcome.Kind.String(),
			"duration", elapsed,
		}
		switch outcome.Kind {
		case gemini.KindSuccess:
			b.Logger.InfoContext(ctx, "tool ok", attrs...)
		case gemini.KindNonZeroExit:
			b.Logger.WarnContext(ctx, "tool failed", append(attrs, "exit_code", outcome.ExitCode)...)
		case gemini.KindUnexpected:
			b.Logger.ErrorContext(ctx, "tool failed", append(attrs, "error", outcome.Message)...)
		default:
			b.Logger.WarnContext(ctx, "tool failed", attrs...)
		}
	}
	if b.Audit != nil {
		b.Audit.Record(ctx, audit.Event{
			Type:          "tool_call",
			Tool:          ToolName,
			CorrelationID: correlationID,
			Outcome:       outcome.Kind.String(),
			ExitCode:      outcome.ExitCode,
			PayloadBytes:  payloadBytes,
			OutputBytes:   len(text),
			Duration:      elapsed,
		})
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}, nil, nil
}

func newCorrelationID() string {
	now := time.Now().UTC().UnixNano()
	return fmt.Sprintf("corr-%d", now)
}
