package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/mj1618/guide-cli/internal/locator"
	"github.com/mj1618/guide-cli/internal/store"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// mcpServer wraps the MCP server with the flow store and snapshot cache.
type mcpServer struct {
	store *store.Store
	cache *mcpDocCache
	mcp   *mcpserver.MCPServer
}

// MCPConfig holds MCP server configuration.
type MCPConfig struct {
	FlowsDir  string
	Transport string
	Port      int
	CacheTTL  time.Duration
}

// newMCPServer creates and configures an MCP server with all guide-cli tools.
func newMCPServer(cfg MCPConfig) (*mcpServer, error) {
	st, err := store.New(cfg.FlowsDir, logrus.StandardLogger())
	if err != nil {
		return nil, err
	}

	s := &mcpServer{
		store: st,
		cache: newMCPDocCache(cfg.CacheTTL),
	}

	s.mcp = mcpserver.NewMCPServer(
		"guide-cli",
		"1.0.0",
	)

	s.registerTools()
	return s, nil
}

// serve starts the MCP server with the configured transport.
func (s *mcpServer) serve(cfg MCPConfig) error {
	switch cfg.Transport {
	case "stdio":
		return mcpserver.ServeStdio(s.mcp)
	case "streamable-http":
		httpServer := mcpserver.NewStreamableHTTPServer(s.mcp)
		return httpServer.Start(fmt.Sprintf(":%d", cfg.Port))
	default:
		return fmt.Errorf("unsupported transport: %s (use stdio or streamable-http)", cfg.Transport)
	}
}

func (s *mcpServer) registerTools() {
	// list_flows
	s.mcp.AddTool(
		mcp.NewTool("list_flows",
			mcp.WithDescription("List recorded walkthrough flows with their step counts"),
		),
		s.handleListFlows,
	)

	// show_flow
	s.mcp.AddTool(
		mcp.NewTool("show_flow",
			mcp.WithDescription("Return one flow definition including every step's locator strategies"),
			mcp.WithString("id", mcp.Description("Flow id"), mcp.Required()),
		),
		s.handleShowFlow,
	)

	// inspect_selectors
	s.mcp.AddTool(
		mcp.NewTool("inspect_selectors",
			mcp.WithDescription("Report how many elements each click step's structural selector matches in a DOM snapshot (0, 1, or N). Validates recordings without running playback."),
			mcp.WithString("id", mcp.Description("Flow id"), mcp.Required()),
			mcp.WithString("html", mcp.Description("DOM snapshot to probe"), mcp.Required()),
		),
		s.handleInspectSelectors,
	)

	// resolve_locator
	s.mcp.AddTool(
		mcp.NewTool("resolve_locator",
			mcp.WithDescription("Run one locator resolution against a DOM snapshot and report which strategy matched"),
			mcp.WithString("locator", mcp.Description("Locator as JSON"), mcp.Required()),
			mcp.WithString("html", mcp.Description("DOM snapshot to resolve against"), mcp.Required()),
		),
		s.handleResolveLocator,
	)
}

// toText serializes a result to YAML for MCP responses.
func toText(v interface{}) string {
	b, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Sprintf("marshal error: %v", err)
	}
	return string(b)
}

func (s *mcpServer) handleListFlows(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	defs, err := s.store.List()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	infos := make([]listFlowInfo, 0, len(defs))
	for _, d := range defs {
		infos = append(infos, listFlowInfo{
			ID:        d.ID,
			Name:      d.Name,
			Steps:     len(d.Steps),
			UpdatedAt: d.UpdatedAt.Format(time.RFC3339),
		})
	}
	return mcp.NewToolResultText(toText(ListResult{OK: true, Total: len(infos), Flows: infos})), nil
}

func (s *mcpServer) handleShowFlow(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params := request.GetArguments()
	id := StringParam(params, "id", "")
	if id == "" {
		return mcp.NewToolResultError("id is required"), nil
	}
	def, err := s.store.Load(id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	plain, err := asPlain(def)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(toText(plain)), nil
}

func (s *mcpServer) handleInspectSelectors(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params := request.GetArguments()
	id := StringParam(params, "id", "")
	src := StringParam(params, "html", "")
	if id == "" || src == "" {
		return mcp.NewToolResultError("id and html are required"), nil
	}
	def, err := s.store.Load(id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	doc, err := s.cache.parse(src)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("parse html: %v", err)), nil
	}
	return mcp.NewToolResultText(toText(inspectFlow(def, doc))), nil
}

// resolveOutcome is the resolve_locator tool's report.
type resolveOutcome struct {
	OK       bool   `yaml:"ok"                 json:"ok"`
	Strategy string `yaml:"strategy"           json:"strategy"`
	Element  string `yaml:"element,omitempty"  json:"element,omitempty"`
	Error    string `yaml:"error,omitempty"    json:"error,omitempty"`
}

func (s *mcpServer) handleResolveLocator(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params := request.GetArguments()
	locJSON := StringParam(params, "locator", "")
	src := StringParam(params, "html", "")
	if locJSON == "" || src == "" {
		return mcp.NewToolResultError("locator and html are required"), nil
	}

	var loc locator.Locator
	if err := json.Unmarshal([]byte(locJSON), &loc); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("parse locator: %v", err)), nil
	}
	doc, err := s.cache.parse(src)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("parse html: %v", err)), nil
	}

	res := locator.NewResolver(logrus.StandardLogger()).Resolve(doc, loc)
	out := resolveOutcome{OK: res.OK, Strategy: res.Strategy, Error: res.Err}
	if res.Element != nil {
		out.Element = locator.NewSynthesizer().PathFor(res.Element)
	}
	return mcp.NewToolResultText(toText(out)), nil
}
