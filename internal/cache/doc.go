// Package cache provides a small TTL cache persisted as a JSON file.
//
// It backs the People name lookups and the Chat member lists. Entries are
// stored as {"data": ..., "cached_at": ...} keyed by resource name and expire
// after DefaultTTL. Concurrent lookups for the same key are collapsed with
// GetOrLoad so the MCP server does not issue duplicate API calls.
package cache
