package triage

import (
	"context"
	"log/slog"
	"strings"

	"github.com/teemow/gwsa/internal/logging"
)

// Self is the caller as the scanner sees it.
type Self struct {
	// ID is the Chat user resource name (users/<id>). Empty when unknown.
	ID string
	// FirstName is used for the "@FirstName" text heuristic.
	FirstName string
}

// Known reports whether the caller's user id was resolved.
func (s Self) Known() bool {
	return s.ID != ""
}

// ChatUserID converts a People resource name (people/<id>) to the Chat
// sender id (users/<id>). Chat ids are returned unchanged; anything else
// yields an empty string.
func ChatUserID(resourceName string) string {
	switch {
	case strings.HasPrefix(resourceName, "people/"):
		id := strings.TrimPrefix(resourceName, "people/")
		if id == "" {
			return ""
		}
		return "users/" + id
	case strings.HasPrefix(resourceName, "users/"):
		return resourceName
	default:
		return ""
	}
}

// FirstName returns the first whitespace separated token of a display name.
func FirstName(displayName string) string {
	fields := strings.Fields(displayName)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// resolveSelf looks the caller up once. Failures leave Self unknown.
func resolveSelf(ctx context.Context, r IdentityResolver, logger *slog.Logger) Self {
	if r == nil {
		return Self{}
	}
	me, err := r.GetMe(ctx)
	if err != nil {
		logger.Warn("failed to resolve own identity, implicit spaces will be skipped", logging.Err(err))
		return Self{}
	}
	if me == nil {
		return Self{}
	}
	self := Self{ID: ChatUserID(me.ResourceName), FirstName: FirstName(me.DisplayName)}
	if !self.Known() {
		logger.Warn("unexpected identity resource name, implicit spaces will be skipped",
			slog.String("resource_name", me.ResourceName))
	}
	return self
}
