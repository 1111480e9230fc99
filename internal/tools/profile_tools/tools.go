package profile_tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/gwsa/internal/google"
	"github.com/teemow/gwsa/internal/server"
	"github.com/teemow/gwsa/internal/tools/common"
)

// RegisterProfileTools registers the profile tools with the MCP server.
func RegisterProfileTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	listTool := mcp.NewTool("profiles_list",
		mcp.WithDescription("List the configured credential profiles, including the built-in 'adc' profile, and mark the active one"),
	)
	s.AddTool(listTool, common.InstrumentedToolHandler("profiles_list", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleListProfiles(ctx, request, sc)
		}))

	switchTool := mcp.NewTool("profiles_switch",
		mcp.WithDescription("Make a profile the active one for subsequent calls"),
		mcp.WithString(common.ProfileArg,
			mcp.Required(),
			mcp.Description("Name of the profile to activate"),
		),
	)
	s.AddTool(switchTool, common.InstrumentedToolHandler("profiles_switch", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleSwitchProfile(ctx, request, sc)
		}))

	return nil
}

type profilesResponse struct {
	Active   string           `json:"active,omitempty"`
	Profiles []google.Profile `json:"profiles"`
}

func handleListProfiles(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	store := sc.Profiles()
	if store == nil {
		return mcp.NewToolResultError("No profile store configured"), nil
	}

	profiles, err := store.List()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list profiles: %v", err)), nil
	}

	resp := profilesResponse{Profiles: profiles}
	for _, p := range profiles {
		if p.Active {
			resp.Active = p.Name
		}
	}

	data, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to encode profiles: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func handleSwitchProfile(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	store := sc.Profiles()
	if store == nil {
		return mcp.NewToolResultError("No profile store configured"), nil
	}

	profile := common.GetProfileFromArgs(request.GetArguments())
	if profile == "" {
		return mcp.NewToolResultError("profile is required"), nil
	}

	if err := store.SetActive(profile); err != nil {
		if errors.Is(err, google.ErrProfileNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("Profile %s does not exist. Authorize it with google_get_auth_url first.", profile)), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("Failed to switch profile: %v", err)), nil
	}
	sc.InvalidateProfile(profile)

	return mcp.NewToolResultText(fmt.Sprintf("Active profile is now '%s'.", profile)), nil
}
