package api

import (
	"context"

	"github.com/infoblox-mcp/infoblox-mcp-server/pkg/wapi"
)

// ServerPrompt represents a prompt that can be registered with the MCP server.
// Prompts provide pre-defined workflow templates and guidance to AI assistants.
type ServerPrompt struct {
	Prompt  Prompt
	Handler PromptHandlerFunc
}

// Prompt represents the metadata and content of an MCP prompt.
// See MCP specification: https://spec.modelcontextprotocol.io/specification/server/prompts/
type Prompt struct {
	Name        string           `yaml:"name" json:"name"`
	Title       string           `yaml:"title,omitempty" json:"title,omitempty"`
	Description string           `yaml:"description,omitempty" json:"description,omitempty"`
	Arguments   []PromptArgument `yaml:"arguments,omitempty" json:"arguments,omitempty"`
	Templates   []PromptTemplate `yaml:"templates,omitempty" json:"templates,omitempty"`
}

// PromptTemplate is a message template with {{argument}} placeholders that are
// substituted with the caller-provided argument values.
type PromptTemplate struct {
	Role    string `yaml:"role" json:"role"`
	Content string `yaml:"content" json:"content"`
}

// PromptArgument defines a parameter that can be passed to a prompt.
// See MCP specification: https://spec.modelcontextprotocol.io/specification/server/prompts/
type PromptArgument struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	Required    bool   `yaml:"required" json:"required"`
}

// PromptMessage represents a single message in a prompt response.
// See MCP specification: https://spec.modelcontextprotocol.io/specification/server/prompts/
type PromptMessage struct {
	Role    string        `yaml:"role" json:"role"`
	Content PromptContent `yaml:"content" json:"content"`
}

// PromptContent represents the content of a prompt message.
// See MCP specification: https://spec.modelcontextprotocol.io/specification/server/prompts/
type PromptContent struct {
	Type string `yaml:"type" json:"type"`
	Text string `yaml:"text,omitempty" json:"text,omitempty"`
}

// PromptCallRequest interface for accessing prompt call arguments
type PromptCallRequest interface {
	GetArguments() map[string]string
}

// PromptCallResult represents the result of executing a prompt
type PromptCallResult struct {
	Description string
	Messages    []PromptMessage
	Error       error
}

// NewPromptCallResult creates a new PromptCallResult
func NewPromptCallResult(description string, messages []PromptMessage, err error) *PromptCallResult {
	return &PromptCallResult{
		Description: description,
		Messages:    messages,
		Error:       err,
	}
}

// PromptHandlerParams contains the parameters passed to a prompt handler
type PromptHandlerParams struct {
	context.Context
	*wapi.Client
	PromptCallRequest
}

// PromptHandlerFunc is a function that handles prompt execution
type PromptHandlerFunc func(params PromptHandlerParams) (*PromptCallResult, error)
