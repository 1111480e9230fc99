// Package triagetest provides in-memory fakes of the triage collaborators.
package triagetest

import (
	"context"
	"strconv"
	"sync"

	"github.com/teemow/gwsa/internal/triage"
)

// Chat is an in-memory triage.ChatClient.
//
// Messages are stored per space newest first, the order the Chat API returns
// them with orderBy "createTime desc".
type Chat struct {
	mu sync.Mutex

	Spaces    []triage.Space
	Members   map[string][]triage.Member
	Messages  map[string][]triage.Message
	Reactions map[string][]triage.Reaction

	// SpacesErr fails ListSpaces once FailSpacesAfter pages were served.
	SpacesErr       error
	FailSpacesAfter int
	MessagesErr     map[string]error
	ReactionsErr    map[string]error

	// RespectContext makes every call fail with ctx.Err() once ctx is done,
	// the way the real client does.
	RespectContext bool
	// BeforeListMessages runs at the start of every ListMessages call.
	BeforeListMessages func(space string)

	SpaceRequests    []triage.ListSpacesRequest
	MessageRequests  []triage.ListMessagesRequest
	ReactionRequests []string
}

// NewChat returns an empty fake.
func NewChat() *Chat {
	return &Chat{
		Members:      make(map[string][]triage.Member),
		Messages:     make(map[string][]triage.Message),
		Reactions:    make(map[string][]triage.Reaction),
		MessagesErr:  make(map[string]error),
		ReactionsErr: make(map[string]error),
	}
}

// AddSpace registers a space together with its messages (newest first).
func (c *Chat) AddSpace(s triage.Space, messages ...triage.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Spaces = append(c.Spaces, s)
	c.Messages[s.Name] = append(c.Messages[s.Name], messages...)
}

func (c *Chat) ListSpaces(ctx context.Context, req triage.ListSpacesRequest) (*triage.SpacePage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.SpaceRequests = append(c.SpaceRequests, req)
	if err := c.ctxErr(ctx); err != nil {
		return nil, err
	}
	if c.SpacesErr != nil && len(c.SpaceRequests) > c.FailSpacesAfter {
		return nil, c.SpacesErr
	}

	offset := 0
	if req.PageToken != "" {
		n, err := strconv.Atoi(req.PageToken)
		if err != nil {
			return nil, err
		}
		offset = n
	}
	size := req.PageSize
	if size <= 0 {
		size = len(c.Spaces)
	}
	end := min(offset+size, len(c.Spaces))
	page := &triage.SpacePage{Spaces: append([]triage.Space(nil), c.Spaces[offset:end]...)}
	if end < len(c.Spaces) {
		page.NextPageToken = strconv.Itoa(end)
	}
	return page, nil
}

func (c *Chat) ListMembers(ctx context.Context, space string, pageSize int) ([]triage.Member, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ctxErr(ctx); err != nil {
		return nil, err
	}
	members := c.Members[space]
	if pageSize > 0 && len(members) > pageSize {
		members = members[:pageSize]
	}
	return append([]triage.Member(nil), members...), nil
}

func (c *Chat) ListMessages(ctx context.Context, req triage.ListMessagesRequest) (*triage.MessagePage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.MessageRequests = append(c.MessageRequests, req)
	if c.BeforeListMessages != nil {
		c.BeforeListMessages(req.Space)
	}
	if err := c.ctxErr(ctx); err != nil {
		return nil, err
	}
	if err := c.MessagesErr[req.Space]; err != nil {
		return nil, err
	}
	messages := c.Messages[req.Space]
	if req.PageSize > 0 && len(messages) > req.PageSize {
		messages = messages[:req.PageSize]
	}
	return &triage.MessagePage{Messages: append([]triage.Message(nil), messages...)}, nil
}

func (c *Chat) ListReactions(ctx context.Context, message string) ([]triage.Reaction, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ReactionRequests = append(c.ReactionRequests, message)
	if err := c.ctxErr(ctx); err != nil {
		return nil, err
	}
	if err := c.ReactionsErr[message]; err != nil {
		return nil, err
	}
	return append([]triage.Reaction(nil), c.Reactions[message]...), nil
}

func (c *Chat) ctxErr(ctx context.Context) error {
	if !c.RespectContext {
		return nil
	}
	return ctx.Err()
}

// FetchedSizes returns the page size of every ListMessages call per space.
func (c *Chat) FetchedSizes() map[string][]int {
	c.mu.Lock()
	defer c.mu.Unlock()
	sizes := make(map[string][]int)
	for _, r := range c.MessageRequests {
		sizes[r.Space] = append(sizes[r.Space], r.PageSize)
	}
	return sizes
}

// Identity is a fixed triage.IdentityResolver.
type Identity struct {
	Me  *triage.Identity
	Err error
}

func (i *Identity) GetMe(context.Context) (*triage.Identity, error) {
	if i.Err != nil {
		return nil, i.Err
	}
	return i.Me, nil
}

// Names is a map backed triage.NameResolver. Missing ids resolve to "Unknown".
type Names struct {
	mu    sync.Mutex
	Names map[string]string
	Calls []string
}

func (n *Names) ResolvePersonName(_ context.Context, userID string) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Calls = append(n.Calls, userID)
	if name, ok := n.Names[userID]; ok {
		return name
	}
	return "Unknown"
}
