// Package profile_tools provides MCP tools to inspect and switch the active
// credential profile.
package profile_tools
