package resources

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/gwsa/internal/server"
	"github.com/teemow/gwsa/internal/triage"
)

// Resource URIs.
const (
	ProfileURI        = "gwsa://profile"
	TriageDefaultsURI = "gwsa://triage/defaults"
)

// RegisterProfileResources registers the profile and scan defaults resources.
func RegisterProfileResources(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	profileResource := mcp.NewResource(
		ProfileURI,
		"Active Profile",
		mcp.WithResourceDescription("The active credential profile and the Google identity behind it"),
		mcp.WithMIMEType("application/json"),
	)
	s.AddResource(profileResource, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return handleProfile(ctx, request, sc)
	})

	defaultsResource := mcp.NewResource(
		TriageDefaultsURI,
		"Mention Scan Defaults",
		mcp.WithResourceDescription("Default options used by chat_get_mentions, including the lookback tiers"),
		mcp.WithMIMEType("application/json"),
	)
	s.AddResource(defaultsResource, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return jsonContents(request.Params.URI, sc.TriageOptions())
	})

	return nil
}

type profileData struct {
	Profile     string `json:"profile"`
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email,omitempty"`
}

func handleProfile(ctx context.Context, request mcp.ReadResourceRequest, sc *server.ServerContext) ([]mcp.ResourceContents, error) {
	profile, err := sc.ResolveProfile("")
	if err != nil {
		return nil, err
	}
	clients, err := sc.ClientsForProfile(profile)
	if err != nil {
		return nil, fmt.Errorf("failed to create Google clients for profile %s: %w", profile, err)
	}
	me, err := clients.Identity.GetMe(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get identity for profile %s: %w", profile, err)
	}

	return jsonContents(request.Params.URI, profileData{
		Profile:     profile,
		UserID:      triage.ChatUserID(me.ResourceName),
		DisplayName: me.DisplayName,
		Email:       me.Email,
	})
}

func jsonContents(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal resource %s: %w", uri, err)
	}
	return []mcp.ResourceContents{
		&mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
