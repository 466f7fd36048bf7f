package grid

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"
	"k8s.io/utils/ptr"

	"github.com/infoblox-mcp/infoblox-mcp-server/internal/test"
	"github.com/infoblox-mcp/infoblox-mcp-server/pkg/api"
	"github.com/infoblox-mcp/infoblox-mcp-server/pkg/config"
	"github.com/infoblox-mcp/infoblox-mcp-server/pkg/output"
	"github.com/infoblox-mcp/infoblox-mcp-server/pkg/wapi"
)

type toolCallRequest map[string]any

func (r toolCallRequest) GetArguments() map[string]any {
	return r
}

type GridToolsetSuite struct {
	suite.Suite
	server *httptest.Server
	grid   *test.GridHandler
	client *wapi.Client
}

func (s *GridToolsetSuite) SetupTest() {
	s.server, s.grid = test.NewGridServer()
	client, err := wapi.NewClient(&config.WapiConfig{
		GridHost:   strings.TrimPrefix(s.server.URL, "https://"),
		Username:   "admin",
		Password:   "infoblox",
		VerifySSL:  ptr.To(false),
		MaxRetries: 1,
	})
	s.Require().NoError(err)
	s.client = client
}

func (s *GridToolsetSuite) TearDownTest() {
	s.server.Close()
}

func (s *GridToolsetSuite) params(args map[string]any) api.ToolHandlerParams {
	return api.ToolHandlerParams{
		Context:         s.T().Context(),
		Client:          s.client,
		ToolCallRequest: toolCallRequest(args),
		ListOutput:      output.Json,
	}
}

func (s *GridToolsetSuite) TestMembers() {
	s.grid.AddObject("member", map[string]any{"host_name": "gm.example.com", "platform": "IB-VM"})
	s.grid.AddObject("member", map[string]any{"host_name": "member2.example.com", "platform": "IB-VM"})
	s.Run("list returns all members", func() {
		result, err := membersList(s.params(map[string]any{}))
		s.Require().NoError(err)
		s.Require().NoError(result.Error)
		s.Contains(result.Content, "gm.example.com")
		s.Contains(result.Content, "member2.example.com")
	})
	s.Run("get by host name", func() {
		result, err := memberGet(s.params(map[string]any{"host_name": "gm.example.com"}))
		s.Require().NoError(err)
		s.Require().NoError(result.Error)
		s.Contains(result.Content, "gm.example.com")
		s.NotContains(result.Content, "member2")
	})
	s.Run("unknown member is a tool error", func() {
		result, err := memberGet(s.params(map[string]any{"host_name": "nope.example.com"}))
		s.Require().NoError(err)
		s.Require().Error(result.Error)
	})
}

func (s *GridToolsetSuite) TestRestartServices() {
	s.grid.FunctionResults["restartservices"] = `{}`
	result, err := restartServices(s.params(map[string]any{"service": "DNS"}))
	s.Require().NoError(err)
	s.Require().NoError(result.Error)
	s.Contains(result.Content, "Restart of DNS services requested")
}

func (s *GridToolsetSuite) TestAuditLogSearch() {
	s.grid.AddObject("auditlog", map[string]any{"admin": "admin", "object_type": "zone_auth", "action": "Called"})
	result, err := auditLogSearch(s.params(map[string]any{"admin": "admin"}))
	s.Require().NoError(err)
	s.Require().NoError(result.Error)
	s.Contains(result.Content, "zone_auth")
}

func TestGridToolset(t *testing.T) {
	suite.Run(t, new(GridToolsetSuite))
}
