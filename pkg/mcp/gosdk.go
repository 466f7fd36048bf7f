package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"k8s.io/utils/ptr"

	"github.com/infoblox-mcp/infoblox-mcp-server/pkg/api"
)

// ToolCallRequest adapts the go-sdk raw tool call params to api.ToolCallRequest.
type ToolCallRequest struct {
	Name      string
	arguments map[string]any
}

var _ api.ToolCallRequest = (*ToolCallRequest)(nil)

func (r *ToolCallRequest) GetArguments() map[string]any {
	if r.arguments == nil {
		return make(map[string]any)
	}
	return r.arguments
}

// GoSdkToolCallParamsToToolCallRequest decodes the raw JSON arguments of a
// tools/call request. A decode failure still returns the partially populated
// request so callers can report the tool name.
func GoSdkToolCallParamsToToolCallRequest(params *mcp.CallToolParamsRaw) (*ToolCallRequest, error) {
	toolCallRequest := &ToolCallRequest{Name: params.Name}
	if len(params.Arguments) > 0 {
		if err := json.Unmarshal(params.Arguments, &toolCallRequest.arguments); err != nil {
			return toolCallRequest, fmt.Errorf("failed to parse tool call arguments: %w", err)
		}
	}
	return toolCallRequest, nil
}

// ServerToolToGoSdkTool converts an api.ServerTool to the go-sdk tool and
// handler pair expected by mcp.Server.AddTool.
func ServerToolToGoSdkTool(s *Server, tool api.ServerTool) (*mcp.Tool, mcp.ToolHandler, error) {
	goSdkTool := &mcp.Tool{
		Name:        tool.Tool.Name,
		Description: tool.Tool.Description,
		InputSchema: tool.Tool.InputSchema,
		Annotations: &mcp.ToolAnnotations{
			Title:           tool.Tool.Annotations.Title,
			ReadOnlyHint:    ptr.Deref(tool.Tool.Annotations.ReadOnlyHint, false),
			DestructiveHint: tool.Tool.Annotations.DestructiveHint,
			IdempotentHint:  ptr.Deref(tool.Tool.Annotations.IdempotentHint, false),
			OpenWorldHint:   tool.Tool.Annotations.OpenWorldHint,
		},
	}

	handler := func(ctx context.Context, request *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		toolCallRequest, err := GoSdkToolCallParamsToToolCallRequest(request.Params)
		if err != nil {
			return NewTextResult("", err), nil
		}
		result, err := tool.Handler(api.ToolHandlerParams{
			Context:         ctx,
			Client:          s.wapiClient,
			ToolCallRequest: toolCallRequest,
			ListOutput:      s.configuration.ListOutput(),
		})
		if err != nil {
			return NewTextResult("", err), nil
		}
		return NewTextResult(result.Content, result.Error), nil
	}

	return goSdkTool, handler, nil
}
