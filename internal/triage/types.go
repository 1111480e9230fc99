package triage

import "time"

// SpaceType is the Chat API space type.
type SpaceType string

// Space types returned by the Chat API.
const (
	SpaceTypeDirectMessage SpaceType = "DIRECT_MESSAGE"
	SpaceTypeGroupChat     SpaceType = "GROUP_CHAT"
	SpaceTypeSpace         SpaceType = "SPACE"
)

// AnnotationUserMention is the annotation type attached to @-mentions of a user.
const AnnotationUserMention = "USER_MENTION"

// Space is a snapshot of a Chat space taken during discovery.
type Space struct {
	// Name is the resource name, e.g. spaces/AAAAxyz.
	Name        string    `json:"name"`
	DisplayName string    `json:"display_name,omitempty"`
	Type        SpaceType `json:"type"`
	// MemberCount is nil when the API did not return a membership count.
	MemberCount    *int      `json:"member_count,omitempty"`
	LastActiveTime time.Time `json:"last_active_time"`
}

// Member is a single membership of a space.
type Member struct {
	Name        string `json:"name"`
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name,omitempty"`
	Type        string `json:"type,omitempty"`
}

// Annotation is the subset of message annotation metadata used for mention detection.
type Annotation struct {
	Type   string `json:"type"`
	UserID string `json:"user_id,omitempty"`
}

// Message is a Chat message as seen by the scanner.
type Message struct {
	Name              string       `json:"name"`
	SenderID          string       `json:"sender_id"`
	SenderDisplayName string       `json:"sender_display_name,omitempty"`
	SenderEmail       string       `json:"sender_email,omitempty"`
	CreateTime        time.Time    `json:"create_time"`
	Text              string       `json:"text"`
	Annotations       []Annotation `json:"annotations,omitempty"`
	ThreadName        string       `json:"thread_name,omitempty"`
}

// Reaction is an emoji reaction on a message.
type Reaction struct {
	UserID string `json:"user_id"`
	Emoji  string `json:"emoji,omitempty"`
}

// Identity is the caller as reported by the People API.
type Identity struct {
	// ResourceName is people/<id>.
	ResourceName string `json:"resource_name"`
	DisplayName  string `json:"display_name"`
	Email        string `json:"email,omitempty"`
}

// MentionType classifies an actionable item.
type MentionType string

// Mention types.
const (
	MentionImplicit MentionType = "Implicit"
	MentionExplicit MentionType = "Explicit"
)

// Reasons reported on actionable items.
const (
	ReasonUnreplied       = "Unreplied message"
	ReasonExplicitMention = "Explicit mention"
)

// ActionableItem is a message that still needs the caller's attention.
type ActionableItem struct {
	Type       MentionType `json:"type"`
	Space      string      `json:"space"`
	SpaceID    string      `json:"space_id"`
	Members    int         `json:"members"`
	ThreadName string      `json:"thread_name,omitempty"`
	Time       time.Time   `json:"time"`
	Sender     string      `json:"sender"`
	Text       string      `json:"text"`
	Reason     string      `json:"reason"`
}

// SkipIdentityUnknown is recorded on implicit spaces that were not fetched
// because the caller's identity could not be resolved.
const SkipIdentityUnknown = "identity unknown"

// SpaceStats records what happened while scanning one candidate space.
type SpaceStats struct {
	ID                 string    `json:"id"`
	Name               string    `json:"name"`
	Type               SpaceType `json:"type"`
	Members            int       `json:"members"`
	LastActive         time.Time `json:"last_active"`
	LookbackDays       int       `json:"lookback_days"`
	MessagesScanned    int       `json:"messages_scanned"`
	MessagesInRange    int       `json:"messages_in_range"`
	MentionsFound      int       `json:"mentions_found"`
	UnansweredMentions int       `json:"unanswered_mentions"`
	Skipped            string    `json:"skipped,omitempty"`
	Error              string    `json:"error,omitempty"`
}

// ExitReason explains why the scan loop ended.
type ExitReason string

// Exit reasons.
const (
	ExitCompleted           ExitReason = "completed"
	ExitSpaceLimitReached   ExitReason = "space_limit_reached"
	ExitMessageLimitReached ExitReason = "message_limit_reached"
	ExitCancelled           ExitReason = "cancelled"
)

// Source holds per-space diagnostics of a scan.
type Source struct {
	Spaces               []SpaceStats `json:"spaces"`
	TotalSpacesScanned   int          `json:"total_spaces_scanned"`
	TotalMessagesScanned int          `json:"total_messages_scanned"`
	ExitReason           ExitReason   `json:"exit_reason"`
}

// Result is the outcome of a scan.
type Result struct {
	Mentions []ActionableItem `json:"mentions"`
	Source   Source           `json:"source"`
	// ScannedCount is the number of candidates that survived tier and recency filtering.
	ScannedCount int `json:"scanned_count"`
	// TotalCount is the number of spaces returned by discovery.
	TotalCount int            `json:"total_count"`
	APIStats   map[string]int `json:"api_stats"`
}
