package google_tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/gwsa/internal/google"
	"github.com/teemow/gwsa/internal/server"
	"github.com/teemow/gwsa/internal/tools/common"
)

// RegisterGoogleTools registers the OAuth tools with the MCP server.
func RegisterGoogleTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	getAuthURLTool := mcp.NewTool("google_get_auth_url",
		mcp.WithDescription("Get the OAuth URL to authorize Google Chat and People access for a credential profile"),
		mcp.WithString(common.ProfileArg,
			mcp.Required(),
			mcp.Description("Profile name to create or re-authorize, e.g. 'work'"),
		),
	)
	s.AddTool(getAuthURLTool, common.InstrumentedToolHandler("google_get_auth_url", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleGetAuthURL(ctx, request, sc)
		}))

	saveAuthCodeTool := mcp.NewTool("google_save_auth_code",
		mcp.WithDescription("Save the OAuth authorization code to complete authentication of a credential profile"),
		mcp.WithString(common.ProfileArg,
			mcp.Required(),
			mcp.Description("Profile name the code was requested for"),
		),
		mcp.WithString("auth_code",
			mcp.Required(),
			mcp.Description("The authorization code from Google OAuth"),
		),
	)
	s.AddTool(saveAuthCodeTool, common.InstrumentedToolHandler("google_save_auth_code", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleSaveAuthCode(ctx, request, sc)
		}))

	return nil
}

func profileArg(args map[string]any) (string, error) {
	profile := common.GetProfileFromArgs(args)
	if profile == "" {
		return "", errors.New("profile is required")
	}
	if profile == google.ADCProfile {
		return "", fmt.Errorf("%w: the %s profile uses application default credentials and cannot be authorized here", google.ErrReservedProfile, profile)
	}
	return profile, google.ValidateProfileName(profile)
}

func handleGetAuthURL(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	profile, err := profileArg(request.GetArguments())
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	authURL, err := sc.AuthURL(profile)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to build authorization URL: %v", err)), nil
	}

	result := fmt.Sprintf(`To authorize Google Chat access for profile "%s":

1. Visit this URL in your browser:
   %s

2. Sign in with your Google account
3. Grant the requested permissions
4. Copy the authorization code

5. Call the google_save_auth_code tool with the code and profile name to complete authentication`, profile, authURL)

	return mcp.NewToolResultText(result), nil
}

func handleSaveAuthCode(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	profile, err := profileArg(args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	authCode, ok := args["auth_code"].(string)
	if !ok || authCode == "" {
		return mcp.NewToolResultError("auth_code is required"), nil
	}

	email, err := sc.SaveAuthCode(ctx, profile, authCode)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to save authorization code for profile %s: %v", profile, err)), nil
	}

	who := email
	if who == "" {
		who = "your account"
	}
	return mcp.NewToolResultText(fmt.Sprintf("Authorization successful for profile '%s' (%s). Call profiles_switch to make it the active profile.", profile, who)), nil
}
