package triage

import "context"

// Default request shapes used by the scanner.
const (
	// SpacesPageSize is the page size used while discovering spaces.
	SpacesPageSize = 100
	// SpaceFields is the partial response mask requested during discovery.
	SpaceFields = "nextPageToken,spaces(name,displayName,spaceType,lastActiveTime,membershipCount)"
	// OrderNewestFirst orders messages by creation time, newest first.
	OrderNewestFirst = "createTime desc"
)

// ListSpacesRequest pages through the caller's spaces.
type ListSpacesRequest struct {
	Filter    string
	PageSize  int
	PageToken string
	Fields    string
}

// SpacePage is one page of spaces.
type SpacePage struct {
	Spaces        []Space
	NextPageToken string
}

// ListMessagesRequest pages through the messages of one space.
type ListMessagesRequest struct {
	Space     string
	PageSize  int
	PageToken string
	OrderBy   string
	Filter    string
}

// MessagePage is one page of messages.
type MessagePage struct {
	Messages      []Message
	NextPageToken string
}

// ChatClient is the Chat capability the scanner depends on.
type ChatClient interface {
	ListSpaces(ctx context.Context, req ListSpacesRequest) (*SpacePage, error)
	ListMembers(ctx context.Context, space string, pageSize int) ([]Member, error)
	ListMessages(ctx context.Context, req ListMessagesRequest) (*MessagePage, error)
	ListReactions(ctx context.Context, message string) ([]Reaction, error)
}

// IdentityResolver returns the caller's own identity.
type IdentityResolver interface {
	GetMe(ctx context.Context) (*Identity, error)
}

// NameResolver resolves a user resource name (users/<id>) to a display name.
// Implementations return "Unknown" instead of failing.
type NameResolver interface {
	ResolvePersonName(ctx context.Context, userID string) string
}
