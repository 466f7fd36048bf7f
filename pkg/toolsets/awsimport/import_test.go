package awsimport

import (
	"net/http/httptest"
	"os"
	"path/filepath"
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

type AwsImportToolsetSuite struct {
	suite.Suite
	server *httptest.Server
	grid   *test.GridHandler
	client *wapi.Client
}

func (s *AwsImportToolsetSuite) SetupTest() {
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
	s.grid.AddObject("extensibleattributedef", map[string]any{"name": "AccountId"})
	s.grid.AddObject("extensibleattributedef", map[string]any{"name": "Region"})
}

func (s *AwsImportToolsetSuite) TearDownTest() {
	s.server.Close()
}

func (s *AwsImportToolsetSuite) params(args map[string]any) api.ToolHandlerParams {
	return api.ToolHandlerParams{
		Context:         s.T().Context(),
		Client:          s.client,
		ToolCallRequest: toolCallRequest(args),
		ListOutput:      output.Json,
	}
}

func (s *AwsImportToolsetSuite) writeCSV(content string) string {
	path := filepath.Join(s.T().TempDir(), "vpcs.csv")
	s.Require().NoError(os.WriteFile(path, []byte(content), 0644))
	return path
}

func (s *AwsImportToolsetSuite) TestAnalysisDoesNotCreate() {
	path := s.writeCSV("AccountId,Region,CidrBlock,Tags\n123,us-east-1,10.0.0.0/16,\n")
	result, err := importAnalysis(s.params(map[string]any{"file_path": path}))
	s.Require().NoError(err)
	s.Require().NoError(result.Error)
	s.Contains(result.Content, `"valid_records": 1`)
	s.Contains(result.Content, `"dry_run": true`)
	s.Contains(result.Content, `"created_networks": []`)
	s.Empty(s.grid.Objects("network"), "analysis must not create networks")
}

func (s *AwsImportToolsetSuite) TestExecuteDefaultsToDryRun() {
	path := s.writeCSV("AccountId,Region,CidrBlock,Tags\n123,us-east-1,10.0.0.0/16,\n")
	result, err := importExecute(s.params(map[string]any{"file_path": path}))
	s.Require().NoError(err)
	s.Require().NoError(result.Error)
	s.Empty(s.grid.Objects("network"))
}

func (s *AwsImportToolsetSuite) TestExecuteCreatesNetworks() {
	path := s.writeCSV("AccountId,Region,CidrBlock,Tags\n123,us-east-1,10.0.0.0/16,\n")
	result, err := importExecute(s.params(map[string]any{"file_path": path, "dry_run": false}))
	s.Require().NoError(err)
	s.Require().NoError(result.Error)
	networks := s.grid.Objects("network")
	s.Require().Len(networks, 1)
	s.Equal("10.0.0.0/16", networks[0]["network"])
}

func (s *AwsImportToolsetSuite) TestMissingColumnIsToolError() {
	path := s.writeCSV("AccountId,Region\n123,us-east-1\n")
	result, err := importAnalysis(s.params(map[string]any{"file_path": path}))
	s.Require().NoError(err, "validation failures are tool errors, not protocol errors")
	s.Require().Error(result.Error)
	s.Contains(result.Error.Error(), "import aborted")
}

func TestAwsImportToolset(t *testing.T) {
	suite.Run(t, new(AwsImportToolsetSuite))
}
