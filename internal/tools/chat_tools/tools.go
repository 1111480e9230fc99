package chat_tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/gwsa/internal/chat"
	"github.com/teemow/gwsa/internal/google"
	"github.com/teemow/gwsa/internal/server"
	"github.com/teemow/gwsa/internal/tools/common"
	"github.com/teemow/gwsa/internal/triage"
)

const (
	defaultSpacesPageSize   = 100
	defaultMessagesPageSize = 25
	maxPageSize             = 1000

	// scanTimeout bounds a scan when the caller set no deadline.
	scanTimeout = 5 * time.Minute
)

// RegisterChatTools registers all Chat tools with the MCP server.
func RegisterChatTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	profileOpt := mcp.WithString(common.ProfileArg,
		mcp.Description("Credential profile to use (default: the active profile)"),
	)

	getMentionsTool := mcp.NewTool("chat_get_mentions",
		mcp.WithDescription(`Find Google Chat messages that need your attention.

Scans recently active spaces, smallest conversations first. In small spaces (up to the
implicit mention threshold) the latest message counts when it is not yours; in larger
spaces only messages that @-mention you count. Messages you reacted to or answered are
dropped. Returns at most one item per space plus per-space scan statistics.`),
		profileOpt,
		mcp.WithNumber("space_limit",
			mcp.Description("Maximum number of spaces to examine (default: 20)"),
		),
		mcp.WithNumber("implicit_mention_threshold",
			mcp.Description("Spaces with at most this many members treat any unreplied message as a mention (default: 3)"),
		),
		mcp.WithString("tiers",
			mcp.Description(`Comma-separated lookback tiers as MAX_MEMBERS:DAYS; an empty MAX_MEMBERS or "*" matches any size (default: "2:14,10:5,50:2,:1")`),
		),
		mcp.WithNumber("discovery_limit",
			mcp.Description("Maximum number of spaces to discover (default: 200)"),
		),
		mcp.WithNumber("message_scan_limit",
			mcp.Description("Maximum number of messages to fetch across all spaces (default: 100)"),
		),
		mcp.WithBoolean("include_answered",
			mcp.Description("Keep scanning past your own replies and report mentions you already answered"),
		),
	)
	s.AddTool(getMentionsTool, common.InstrumentedToolHandler("chat_get_mentions", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleGetMentions(ctx, request, sc)
		}))

	listSpacesTool := mcp.NewTool("chat_list_spaces",
		mcp.WithDescription("List the Google Chat spaces you are a member of"),
		profileOpt,
		mcp.WithString("space_type",
			mcp.Description("Only list spaces of this type: DIRECT_MESSAGE, GROUP_CHAT or SPACE"),
		),
		mcp.WithNumber("page_size",
			mcp.Description("Maximum number of spaces to return (default: 100)"),
		),
		mcp.WithString("page_token",
			mcp.Description("Token from a previous call to fetch the next page"),
		),
		mcp.WithBoolean("include_participants",
			mcp.Description("Resolve participant names for every space (one extra call per space, cached)"),
		),
	)
	s.AddTool(listSpacesTool, common.InstrumentedToolHandler("chat_list_spaces", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleListSpaces(ctx, request, sc)
		}))

	listMessagesTool := mcp.NewTool("chat_list_messages",
		mcp.WithDescription("List recent messages of a Google Chat space, newest first"),
		profileOpt,
		mcp.WithString("space",
			mcp.Required(),
			mcp.Description("Space resource name, e.g. spaces/AAAAxyz"),
		),
		mcp.WithNumber("page_size",
			mcp.Description("Maximum number of messages to return (default: 25)"),
		),
		mcp.WithString("page_token",
			mcp.Description("Token from a previous call to fetch the next page"),
		),
		mcp.WithString("filter",
			mcp.Description(`Chat API message filter, e.g. createTime > "2026-01-01T00:00:00Z"`),
		),
	)
	s.AddTool(listMessagesTool, common.InstrumentedToolHandler("chat_list_messages", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleListMessages(ctx, request, sc)
		}))

	return nil
}

// clientsFor resolves the profile of a call and returns its adapters, or a
// tool error result explaining what is missing.
func clientsFor(sc *server.ServerContext, args map[string]any) (string, *server.ProfileClients, *mcp.CallToolResult) {
	profile, err := common.ResolveProfile(sc, args)
	if err != nil {
		if errors.Is(err, google.ErrNoActiveProfile) {
			return "", nil, mcp.NewToolResultError("No active profile. Pass the profile argument or call profiles_switch first.")
		}
		return "", nil, mcp.NewToolResultError(err.Error())
	}
	clients, err := sc.ClientsForProfile(profile)
	if err != nil {
		return profile, nil, mcp.NewToolResultError(fmt.Sprintf("Failed to create Google clients for profile %s: %v", profile, err))
	}
	return profile, clients, nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// scanOptions applies call arguments on top of defaults.
func scanOptions(defaults triage.Options, args map[string]any) (triage.Options, error) {
	opts := defaults

	ints := []struct {
		name string
		dst  *int
	}{
		{"space_limit", &opts.SpaceLimit},
		{"implicit_mention_threshold", &opts.ImplicitMentionThreshold},
		{"discovery_limit", &opts.DiscoveryLimit},
		{"message_scan_limit", &opts.MessageScanLimit},
	}
	for _, arg := range ints {
		v, ok, err := common.IntArg(args, arg.name)
		if err != nil {
			return opts, err
		}
		if ok {
			*arg.dst = v
		}
	}

	rawTiers, err := common.StringSliceArg(args, "tiers")
	if err != nil {
		return opts, err
	}
	if len(rawTiers) > 0 {
		tiers, err := triage.ParseTiers(rawTiers)
		if err != nil {
			return opts, err
		}
		opts.Tiers = tiers
	}

	if includeAnswered, ok := common.BoolArg(args, "include_answered"); ok {
		opts.UnansweredOnly = !includeAnswered
	}
	return opts, opts.Validate()
}

func handleGetMentions(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	opts, err := scanOptions(sc.TriageOptions(), args)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Invalid arguments: %v", err)), nil
	}

	profile, _, errResult := clientsFor(sc, args)
	if errResult != nil {
		return errResult, nil
	}
	engine, err := sc.NewEngine(profile)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to prepare scan for profile %s: %v", profile, err)), nil
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, scanTimeout)
		defer cancel()
	}

	result, err := engine.Scan(ctx, opts)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Mention scan failed: %v", err)), nil
	}
	return jsonResult(result)
}

func pageSizeArg(args map[string]any, def int) (int, error) {
	size, ok, err := common.IntArg(args, "page_size")
	if err != nil {
		return 0, err
	}
	if !ok || size == 0 {
		return def, nil
	}
	return min(size, maxPageSize), nil
}

type spacesResponse struct {
	Spaces        []chat.SpaceSummary `json:"spaces"`
	NextPageToken string              `json:"next_page_token,omitempty"`
}

func handleListSpaces(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	pageSize, err := pageSizeArg(args, defaultSpacesPageSize)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	spaceType, _ := args["space_type"].(string)
	switch triage.SpaceType(spaceType) {
	case "", triage.SpaceTypeDirectMessage, triage.SpaceTypeGroupChat, triage.SpaceTypeSpace:
	default:
		return mcp.NewToolResultError(fmt.Sprintf("Unknown space_type %q", spaceType)), nil
	}
	pageToken, _ := args["page_token"].(string)
	withNames, _ := common.BoolArg(args, "include_participants")

	_, clients, errResult := clientsFor(sc, args)
	if errResult != nil {
		return errResult, nil
	}

	page, err := clients.Chat.ListSpaces(ctx, triage.ListSpacesRequest{
		Filter:    chat.SpaceTypeFilter(triage.SpaceType(spaceType)),
		PageSize:  pageSize,
		PageToken: pageToken,
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list spaces: %v", err)), nil
	}

	return jsonResult(spacesResponse{
		Spaces:        chat.SummarizeSpaces(ctx, clients.Chat, page.Spaces, withNames),
		NextPageToken: page.NextPageToken,
	})
}

type messagesResponse struct {
	Space         string                `json:"space"`
	Messages      []chat.MessageSummary `json:"messages"`
	NextPageToken string                `json:"next_page_token,omitempty"`
}

func handleListMessages(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	space, ok := args["space"].(string)
	if !ok || space == "" {
		return mcp.NewToolResultError("space is required"), nil
	}
	pageSize, err := pageSizeArg(args, defaultMessagesPageSize)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	pageToken, _ := args["page_token"].(string)
	filter, _ := args["filter"].(string)

	_, clients, errResult := clientsFor(sc, args)
	if errResult != nil {
		return errResult, nil
	}

	page, err := clients.Chat.ListMessages(ctx, triage.ListMessagesRequest{
		Space:     space,
		PageSize:  pageSize,
		PageToken: pageToken,
		OrderBy:   triage.OrderNewestFirst,
		Filter:    filter,
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list messages: %v", err)), nil
	}

	return jsonResult(messagesResponse{
		Space:         space,
		Messages:      chat.SummarizeMessages(ctx, clients.Names, page.Messages),
		NextPageToken: page.NextPageToken,
	})
}
