// Package chat adapts the Google Chat REST API (chat/v1) to the triage
// engine's ChatClient interface.
//
// Every call waits on a client-side rate limiter, runs inside a tracing span
// and records the Google API operation metrics. Space memberships are read
// through an optional TTL cache.
package chat
