package mcp

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	m3labs "github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/suite"
	"k8s.io/utils/ptr"

	"github.com/infoblox-mcp/infoblox-mcp-server/internal/test"
	"github.com/infoblox-mcp/infoblox-mcp-server/pkg/config"
	"github.com/infoblox-mcp/infoblox-mcp-server/pkg/wapi"

	_ "github.com/infoblox-mcp/infoblox-mcp-server/pkg/toolsets/awsimport"
	_ "github.com/infoblox-mcp/infoblox-mcp-server/pkg/toolsets/dhcp"
	_ "github.com/infoblox-mcp/infoblox-mcp-server/pkg/toolsets/dns"
	_ "github.com/infoblox-mcp/infoblox-mcp-server/pkg/toolsets/grid"
	_ "github.com/infoblox-mcp/infoblox-mcp-server/pkg/toolsets/ipam"
)

type McpServerSuite struct {
	suite.Suite
	gridServer *httptest.Server
	grid       *test.GridHandler
	cfg        *config.StaticConfig
	mcpServer  *Server
	client     *test.McpClient
}

func (s *McpServerSuite) SetupTest() {
	s.gridServer, s.grid = test.NewGridServer()
	s.cfg = config.Default()
	s.cfg.Wapi.GridHost = strings.TrimPrefix(s.gridServer.URL, "https://")
	s.cfg.Wapi.Username = "admin"
	s.cfg.Wapi.Password = "infoblox"
	s.cfg.Wapi.VerifySSL = ptr.To(false)
	s.cfg.Wapi.MaxRetries = 1
}

func (s *McpServerSuite) TearDownTest() {
	if s.client != nil {
		s.client.Close()
		s.client = nil
	}
	if s.mcpServer != nil {
		_ = s.mcpServer.Shutdown(s.T().Context())
		s.mcpServer = nil
	}
	s.gridServer.Close()
}

// startServer builds the MCP server from the current config and connects a
// streamable HTTP client to it.
func (s *McpServerSuite) startServer() {
	wapiClient, err := wapi.NewClient(&s.cfg.Wapi)
	s.Require().NoError(err)
	s.mcpServer, err = NewServer(Configuration{StaticConfig: s.cfg}, wapiClient)
	s.Require().NoError(err)
	mux := http.NewServeMux()
	mux.Handle("/mcp", s.mcpServer.ServeHTTP())
	s.client = test.NewMcpClient(s.T(), mux)
}

func (s *McpServerSuite) listToolNames() []string {
	tools, err := s.client.ListTools(s.T().Context(), m3labs.ListToolsRequest{})
	s.Require().NoError(err)
	names := make([]string, 0, len(tools.Tools))
	for _, tool := range tools.Tools {
		names = append(names, tool.Name)
	}
	return names
}

func (s *McpServerSuite) TestDefaultToolsets() {
	s.startServer()
	names := s.listToolNames()
	s.Run("exposes tools from all default toolsets", func() {
		s.Contains(names, "dns_list_zones")
		s.Contains(names, "dhcp_list_networks")
		s.Contains(names, "ipam_network_utilization")
		s.Contains(names, "grid_status")
		s.Contains(names, "aws_import_analysis")
	})
	s.Run("enabled tools are tracked on the server", func() {
		s.ElementsMatch(names, s.mcpServer.GetEnabledTools())
	})
}

func (s *McpServerSuite) TestToolAnnotations() {
	s.startServer()
	tools, err := s.client.ListTools(s.T().Context(), m3labs.ListToolsRequest{})
	s.Require().NoError(err)
	byName := make(map[string]m3labs.Tool)
	for _, tool := range tools.Tools {
		byName[tool.Name] = tool
	}
	s.Run("list tools are read-only", func() {
		s.True(ptr.Deref(byName["dns_list_zones"].Annotations.ReadOnlyHint, false))
	})
	s.Run("delete tools are destructive", func() {
		s.Require().NotNil(byName["dns_delete_zone"].Annotations.DestructiveHint)
		s.True(*byName["dns_delete_zone"].Annotations.DestructiveHint)
	})
}

func (s *McpServerSuite) TestReadOnlyConfiguration() {
	s.cfg.ReadOnly = true
	s.startServer()
	names := s.listToolNames()
	s.Contains(names, "dns_list_zones")
	s.NotContains(names, "dns_create_zone")
	s.NotContains(names, "dns_delete_zone")
	s.NotContains(names, "aws_import_execute")
}

func (s *McpServerSuite) TestDisableDestructiveConfiguration() {
	s.cfg.DisableDestructive = true
	s.startServer()
	names := s.listToolNames()
	s.Contains(names, "dns_create_zone", "additive tools stay enabled")
	s.NotContains(names, "dns_delete_zone")
	s.NotContains(names, "dhcp_delete_network")
}

func (s *McpServerSuite) TestEnabledTools() {
	s.cfg.EnabledTools = []string{"grid_status", "dns_list_zones"}
	s.startServer()
	s.ElementsMatch([]string{"grid_status", "dns_list_zones"}, s.listToolNames())
}

func (s *McpServerSuite) TestDisabledTools() {
	s.cfg.DisabledTools = []string{"grid_restart_services"}
	s.startServer()
	names := s.listToolNames()
	s.Contains(names, "grid_status")
	s.NotContains(names, "grid_restart_services")
}

func (s *McpServerSuite) TestToolCall() {
	s.grid.AddObject("zone_auth", map[string]any{"fqdn": "example.com", "view": "default"})
	s.startServer()
	s.Run("returns grid data as text content", func() {
		result, err := s.client.CallTool("dns_list_zones", map[string]any{})
		s.Require().NoError(err)
		s.False(result.IsError)
		s.Require().Len(result.Content, 1)
		s.Contains(result.Content[0].(m3labs.TextContent).Text, "example.com")
	})
	s.Run("tool failures are returned as tool errors, not protocol errors", func() {
		result, err := s.client.CallTool("dns_get_zone", map[string]any{})
		s.Require().NoError(err)
		s.True(result.IsError)
		s.Require().Len(result.Content, 1)
		s.Contains(result.Content[0].(m3labs.TextContent).Text, "fqdn parameter required")
	})
}

func (s *McpServerSuite) TestMetricsRecording() {
	s.grid.AddObject("zone_auth", map[string]any{"fqdn": "example.com", "view": "default"})
	s.startServer()
	_, err := s.client.CallTool("dns_list_zones", map[string]any{})
	s.Require().NoError(err)

	stats := s.mcpServer.GetMetrics().GetStats()
	s.Run("tool calls are counted by name", func() {
		s.Equal(int64(1), stats.ToolCallsByName["dns_list_zones"])
	})
	s.Run("grid round trips are counted", func() {
		// Session handshake plus the zone search
		s.GreaterOrEqual(stats.TotalWapiRequests, int64(2))
		s.GreaterOrEqual(stats.WapiRequestsByStatus["2xx"], int64(2))
	})
}

func (s *McpServerSuite) TestPrompts() {
	s.startServer()
	s.Run("toolset prompts are listed", func() {
		prompts, err := s.client.ListPrompts(s.T().Context(), m3labs.ListPromptsRequest{})
		s.Require().NoError(err)
		names := make([]string, 0, len(prompts.Prompts))
		for _, prompt := range prompts.Prompts {
			names = append(names, prompt.Name)
		}
		s.Contains(names, "aws-vpc-import")
		s.ElementsMatch(names, s.mcpServer.GetEnabledPrompts())
	})
	s.Run("prompt arguments are substituted", func() {
		request := m3labs.GetPromptRequest{}
		request.Params.Name = "aws-vpc-import"
		request.Params.Arguments = map[string]string{"file_path": "/tmp/vpcs.csv", "network_view": "default"}
		result, err := s.client.GetPrompt(s.T().Context(), request)
		s.Require().NoError(err)
		s.Require().Len(result.Messages, 1)
		text := result.Messages[0].Content.(m3labs.TextContent).Text
		s.Contains(text, "/tmp/vpcs.csv")
		s.Contains(text, "aws_import_analysis")
	})
	s.Run("missing required prompt argument is an error", func() {
		request := m3labs.GetPromptRequest{}
		request.Params.Name = "aws-vpc-import"
		_, err := s.client.GetPrompt(s.T().Context(), request)
		s.Require().Error(err)
	})
}

func (s *McpServerSuite) TestReloadConfiguration() {
	s.startServer()
	s.Contains(s.mcpServer.GetEnabledTools(), "dns_delete_zone")

	newConfig := config.Default()
	newConfig.Wapi = s.cfg.Wapi
	newConfig.ReadOnly = true
	s.Require().NoError(s.mcpServer.ReloadConfiguration(newConfig))

	s.Contains(s.mcpServer.GetEnabledTools(), "dns_list_zones")
	s.NotContains(s.mcpServer.GetEnabledTools(), "dns_delete_zone")
}

func TestMcpServer(t *testing.T) {
	suite.Run(t, new(McpServerSuite))
}
