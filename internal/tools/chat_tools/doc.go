// Package chat_tools provides the Google Chat MCP tools: mention triage
// (chat_get_mentions) and read-only listing of spaces and messages.
package chat_tools
