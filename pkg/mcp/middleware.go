package mcp

import (
	"bytes"
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"k8s.io/klog/v2"
)

// ContextKey is the type for context keys shared with the HTTP layer.
type ContextKey string

// TokenScopesContextKey carries the validated OAuth token scopes from the
// HTTP authorization middleware into tool handlers.
const TokenScopesContextKey = ContextKey("tokenScopes")

func toolCallLoggingMiddleware(next mcp.MethodHandler) mcp.MethodHandler {
	return func(ctx context.Context, method string, req mcp.Request) (mcp.Result, error) {
		switch params := req.GetParams().(type) {
		case *mcp.CallToolParamsRaw:
			toolCallRequest, _ := GoSdkToolCallParamsToToolCallRequest(params)
			klog.V(5).Infof("mcp tool call: %s(%v)", toolCallRequest.Name, toolCallRequest.GetArguments())
			if req.GetExtra() != nil && req.GetExtra().Header != nil {
				buffer := bytes.NewBuffer(make([]byte, 0))
				if err := req.GetExtra().Header.WriteSubset(buffer, map[string]bool{"Authorization": true, "authorization": true}); err == nil {
					klog.V(7).Infof("mcp tool call headers: %s", buffer)
				}
			}
		}
		return next(ctx, method, req)
	}
}

// tracingMiddleware wraps every MCP method in a server span. Tool calls are
// named after the tool so traces are searchable by tool name.
func tracingMiddleware(tracerName string) func(mcp.MethodHandler) mcp.MethodHandler {
	tracer := otel.Tracer(tracerName)
	return func(next mcp.MethodHandler) mcp.MethodHandler {
		return func(ctx context.Context, method string, req mcp.Request) (mcp.Result, error) {
			spanName := "mcp." + method
			attrs := []attribute.KeyValue{attribute.String("mcp.method", method)}
			if params, ok := req.GetParams().(*mcp.CallToolParamsRaw); ok {
				spanName = "mcp.tools/call " + params.Name
				attrs = append(attrs, attribute.String("mcp.tool.name", params.Name))
			}

			ctx, span := tracer.Start(ctx, spanName,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(attrs...),
			)
			defer span.End()

			result, err := next(ctx, method, req)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			}
			return result, err
		}
	}
}
