package common

import (
	"github.com/teemow/gwsa/internal/server"
)

// ProfileArg is the optional argument every Google-backed tool accepts.
const ProfileArg = "profile"

// GetProfileFromArgs returns the explicit profile argument, or "" when the
// active profile should be used.
func GetProfileFromArgs(args map[string]any) string {
	if v, ok := args[ProfileArg].(string); ok {
		return v
	}
	return ""
}

// ResolveProfile returns the profile a tool call runs under.
func ResolveProfile(sc *server.ServerContext, args map[string]any) (string, error) {
	return sc.ResolveProfile(GetProfileFromArgs(args))
}
