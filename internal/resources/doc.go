// Package resources provides MCP resources for the active profile.
// Resources are read-only data sources that MCP clients can fetch: the
// identity behind the active profile and the scan defaults the server uses
// when a chat_get_mentions call leaves an option unset.
package resources
