package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kalambet/foxstyle/internal/customizer"
	"github.com/kalambet/foxstyle/internal/templates"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Service *customizer.Service
	Catalog *templates.Catalog
}

// NewMCPServer creates an MCP server with the foxstyle tools and resources
// registered.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"foxstyle",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("foxstyle manages Firefox userChrome.css/userContent.css customization for local profiles."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("list_profiles",
			mcp.WithDescription("List the Firefox profiles found on this machine."),
		),
		mcpListProfiles(deps),
	)

	s.AddTool(
		mcp.NewTool("enable_userchrome",
			mcp.WithDescription("Enable userChrome.css/userContent.css loading for a Firefox profile."),
			mcp.WithString("profile", mcp.Description("Profile directory name"), mcp.Required()),
		),
		mcpEnableUserChrome(deps),
	)

	s.AddTool(
		mcp.NewTool("check_userchrome",
			mcp.WithDescription("Report whether custom stylesheets are enabled for a Firefox profile."),
			mcp.WithString("profile", mcp.Description("Profile directory name"), mcp.Required()),
		),
		mcpCheckUserChrome(deps),
	)

	s.AddTool(
		mcp.NewTool("get_templates",
			mcp.WithDescription("Return built-in CSS snippets, optionally for one category (chrome, content, general)."),
			mcp.WithString("category", mcp.Description("Template category")),
		),
		mcpGetTemplates(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"foxstyle://profiles",
			"Firefox Profiles",
			mcp.WithResourceDescription("Discovered Firefox profiles as JSON"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceProfiles(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"foxstyle://templates",
			"CSS Template Index",
			mcp.WithResourceDescription("Template categories with their sorted template names as JSON"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceTemplates(deps),
	)

	return s
}

func mcpListProfiles(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		profiles, err := deps.Service.Profiles()
		if err != nil {
			return mcpError(fmt.Sprintf("listing profiles failed: %v", err)), nil
		}
		return mcpJSON(profiles)
	}
}

func mcpEnableUserChrome(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name, err := req.RequireString("profile")
		if err != nil || name == "" {
			return mcpError("profile is required"), nil
		}
		res, err := deps.Service.EnableUserChrome(ctx, name)
		if err != nil {
			return mcpError(fmt.Sprintf("enable failed: %v", err)), nil
		}
		return mcpJSON(res)
	}
}

func mcpCheckUserChrome(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name, err := req.RequireString("profile")
		if err != nil || name == "" {
			return mcpError("profile is required"), nil
		}
		state, err := deps.Service.CheckUserChrome(name)
		if err != nil {
			return mcpError(fmt.Sprintf("check failed: %v", err)), nil
		}
		return mcpJSON(state)
	}
}

func mcpGetTemplates(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		category := req.GetString("category", "")
		if category == "" {
			return mcpJSON(deps.Catalog.All())
		}
		return mcpJSON(deps.Catalog.ByCategory(category))
	}
}

func mcpResourceProfiles(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		profiles, err := deps.Service.Profiles()
		if err != nil {
			return nil, fmt.Errorf("failed to list profiles: %w", err)
		}
		b, err := json.Marshal(profiles)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal profiles: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

// templateIndexEntry lists the template names of one category.
type templateIndexEntry struct {
	Category string   `json:"category"`
	Names    []string `json:"names"`
}

func mcpResourceTemplates(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		categories := deps.Catalog.Categories()
		index := make([]templateIndexEntry, 0, len(categories))
		for _, c := range categories {
			index = append(index, templateIndexEntry{Category: c, Names: deps.Catalog.Names(c)})
		}
		b, err := json.Marshal(index)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal template index: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpJSON(v any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return mcpError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcpText(string(b)), nil
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
