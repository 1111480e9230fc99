// Package server holds the state shared by gwsa's MCP tool handlers and the
// HTTP plumbing around the MCP server.
//
// ServerContext lazily creates and caches the Chat and People adapters of
// each credential profile through a ClientFactory. GoogleClientFactory is
// the production factory; tests install fakes with SetClientsForProfile.
//
// HTTPServer mounts the streamable HTTP transport at /mcp next to the
// /healthz and /readyz probes. MetricsServer serves Prometheus metrics on a
// separate address.
package server
