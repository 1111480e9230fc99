package common

import (
	"context"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"go.opentelemetry.io/otel/attribute"

	"github.com/teemow/gwsa/internal/instrumentation"
	"github.com/teemow/gwsa/internal/logging"
	"github.com/teemow/gwsa/internal/server"
)

// InstrumentedToolHandler wraps a tool handler with a tool span, the tool
// invocation metrics and a debug log line.
//
// Usage:
//
//	s.AddTool(myTool, common.InstrumentedToolHandler("my_tool", sc, handler))
func InstrumentedToolHandler(toolName string, sc *server.ServerContext, handler mcpserver.ToolHandlerFunc) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		profile := GetProfileFromArgs(request.GetArguments())

		attrs := instrumentation.NewSpanAttributeBuilder().WithProfile(profile).Build()
		ctx, span := instrumentation.StartToolSpan(ctx, toolName, attrs...)
		defer span.End()

		start := time.Now()
		result, err := handler(ctx, request)
		duration := time.Since(start)

		status := instrumentation.StatusSuccess
		switch {
		case err != nil:
			status = instrumentation.StatusError
			instrumentation.SetSpanError(span, err)
		case result != nil && result.IsError:
			status = instrumentation.StatusError
			span.SetAttributes(attribute.String(instrumentation.SpanAttrStatus, status))
		default:
			instrumentation.SetSpanSuccess(span)
		}

		sc.Metrics().RecordToolInvocationWithProfile(ctx, toolName, status, profile, duration)
		sc.Logger().DebugContext(ctx, "tool invoked",
			logging.Tool(toolName),
			logging.Status(status),
			logging.Duration(duration),
			logging.TraceID(instrumentation.TraceID(ctx)),
			logging.Err(err))

		return result, err
	}
}
