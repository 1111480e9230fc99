// Package instrumentation wires OpenTelemetry metrics and tracing into gwsa.
//
// Metrics:
//   - http_requests_total, http_request_duration_seconds: streamable HTTP transport
//   - google_api_operations_total, google_api_operation_duration_seconds: Chat and People calls
//   - mcp_tool_invocations_total, mcp_tool_duration_seconds: MCP tool calls
//   - triage_scans_total, triage_scan_duration_seconds, triage_spaces_scanned,
//     triage_mentions_total: mention triage scans by exit reason
//   - cache_lookups_total: profile and member cache reads by result
//
// Spans are created for tool invocations (tool.<name>), Google API calls
// (google.<service>.<operation>) and triage scans (triage.scan).
//
// Configuration comes from the environment:
//   - INSTRUMENTATION_ENABLED (default: true)
//   - METRICS_EXPORTER: prometheus, otlp or stdout (default: prometheus)
//   - TRACING_EXPORTER: otlp, stdout or none (default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT, OTEL_EXPORTER_OTLP_INSECURE
//   - OTEL_TRACES_SAMPLER_ARG (default: 0.1)
//   - OTEL_SERVICE_NAME (default: gwsa)
//   - METRICS_DETAILED_LABELS: add the profile label to tool metrics
//
// Stdout exporters write to stderr so they never corrupt the MCP stdio stream.
package instrumentation
