// Package cmd implements the gwsa command-line interface.
//
// This package provides the following commands:
//   - chat mentions: List Google Chat messages that need the user's attention
//   - chat spaces list / chat messages list: Browse spaces and their messages
//   - profiles: Manage credential profiles for multiple Google identities
//   - auth: Authorize a profile in two steps
//   - serve: Start the MCP server to provide tools for AI assistants
//   - version: Display version information
package cmd
