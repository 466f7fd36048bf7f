package http

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/coreos/go-oidc/v3/oidc/oidctest"
	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	m3labs "github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/suite"
	"golang.org/x/sync/errgroup"
	"k8s.io/klog/v2"
	"k8s.io/klog/v2/textlogger"
	"k8s.io/utils/ptr"

	"github.com/infoblox-mcp/infoblox-mcp-server/internal/test"
	"github.com/infoblox-mcp/infoblox-mcp-server/pkg/config"
	"github.com/infoblox-mcp/infoblox-mcp-server/pkg/mcp"
	"github.com/infoblox-mcp/infoblox-mcp-server/pkg/wapi"

	_ "github.com/infoblox-mcp/infoblox-mcp-server/pkg/toolsets/awsimport"
	_ "github.com/infoblox-mcp/infoblox-mcp-server/pkg/toolsets/dhcp"
	_ "github.com/infoblox-mcp/infoblox-mcp-server/pkg/toolsets/dns"
	_ "github.com/infoblox-mcp/infoblox-mcp-server/pkg/toolsets/grid"
	_ "github.com/infoblox-mcp/infoblox-mcp-server/pkg/toolsets/ipam"
)

type BaseHttpSuite struct {
	suite.Suite
	GridServer      *httptest.Server
	Grid            *test.GridHandler
	StaticConfig    *config.StaticConfig
	McpServer       *mcp.Server
	OidcProvider    *oidc.Provider
	LogBuffer       test.SyncBuffer
	klogState       klog.State
	timeoutCancel   context.CancelFunc
	StopServer      context.CancelFunc
	WaitForShutdown func() error
}

func (s *BaseHttpSuite) SetupTest() {
	http.DefaultClient.Timeout = 10 * time.Second
	s.GridServer, s.Grid = test.NewGridServer()
	s.StaticConfig = config.Default()
	s.StaticConfig.Wapi.GridHost = strings.TrimPrefix(s.GridServer.URL, "https://")
	s.StaticConfig.Wapi.Username = "admin"
	s.StaticConfig.Wapi.Password = "infoblox"
	s.StaticConfig.Wapi.VerifySSL = ptr.To(false)
	s.StaticConfig.Wapi.MaxRetries = 1

	// Capture logging
	s.LogBuffer.Reset()
	s.klogState = klog.CaptureState()
	flags := flag.NewFlagSet("test", flag.ContinueOnError)
	klog.InitFlags(flags)
	_ = flags.Set("v", "5")
	klog.SetLogger(textlogger.NewLogger(textlogger.NewConfig(textlogger.Verbosity(5), textlogger.Output(&s.LogBuffer))))
}

func (s *BaseHttpSuite) StartServer() {
	tcpAddr, err := test.RandomPortAddress()
	s.Require().NoError(err, "Expected no error getting random port address")
	s.StaticConfig.Port = strconv.Itoa(tcpAddr.Port)

	wapiClient, err := wapi.NewClient(&s.StaticConfig.Wapi)
	s.Require().NoError(err, "Expected no error creating WAPI client")
	s.McpServer, err = mcp.NewServer(mcp.Configuration{StaticConfig: s.StaticConfig}, wapiClient)
	s.Require().NoError(err, "Expected no error creating MCP server")
	s.Require().NotNil(s.McpServer, "MCP server should not be nil")

	var timeoutCtx, cancelCtx context.Context
	timeoutCtx, s.timeoutCancel = context.WithTimeout(s.T().Context(), 10*time.Second)
	group, gc := errgroup.WithContext(timeoutCtx)
	cancelCtx, s.StopServer = context.WithCancel(gc)
	group.Go(func() error { return Serve(cancelCtx, s.McpServer, s.StaticConfig, s.OidcProvider, nil) })
	s.WaitForShutdown = group.Wait
	s.Require().NoError(test.WaitForServer(tcpAddr), "HTTP server did not start in time")
	s.Require().NoError(test.WaitForHealthz(tcpAddr), "HTTP server /healthz endpoint did not respond in time")
}

func (s *BaseHttpSuite) TearDownTest() {
	if s.StopServer != nil {
		s.StopServer()
		s.Require().NoError(s.WaitForShutdown(), "HTTP server did not shut down gracefully")
		s.StopServer = nil
	}
	if s.timeoutCancel != nil {
		s.timeoutCancel()
	}
	s.GridServer.Close()
	s.klogState.Restore()
	s.OidcProvider = nil
}

// BaseURL returns the root URL of the running HTTP server.
func (s *BaseHttpSuite) BaseURL() string {
	return fmt.Sprintf("http://127.0.0.1:%s", s.StaticConfig.Port)
}

// StreamableClient connects a streamable HTTP MCP client to the running
// server and performs the initialize handshake, returning any error.
func (s *BaseHttpSuite) StreamableClient(headers map[string]string) (*client.Client, error) {
	var options []transport.StreamableHTTPCOption
	if len(headers) > 0 {
		options = append(options, transport.WithHTTPHeaders(headers))
	}
	mcpClient, err := client.NewStreamableHttpClient(s.BaseURL()+"/mcp", options...)
	s.Require().NoError(err, "Expected no error creating MCP client")
	s.T().Cleanup(func() { _ = mcpClient.Close() })
	if err = mcpClient.Start(s.T().Context()); err != nil {
		return nil, err
	}
	initRequest := m3labs.InitializeRequest{}
	initRequest.Params.ProtocolVersion = m3labs.LATEST_PROTOCOL_VERSION
	initRequest.Params.ClientInfo = m3labs.Implementation{Name: "test", Version: "1.33.7"}
	if _, err = mcpClient.Initialize(s.T().Context(), initRequest); err != nil {
		return nil, err
	}
	return mcpClient, nil
}

type OidcTestServer struct {
	*rsa.PrivateKey
	*oidc.Provider
	*httptest.Server
	TokenEndpointHandler http.HandlerFunc
}

func NewOidcTestServer(t *testing.T) (oidcTestServer *OidcTestServer) {
	t.Helper()
	var err error
	oidcTestServer = &OidcTestServer{}
	oidcTestServer.PrivateKey, err = rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate private key for oidc: %v", err)
	}
	oidcServer := &oidctest.Server{
		Algorithms: []string{oidc.RS256, oidc.ES256},
		PublicKeys: []oidctest.PublicKey{
			{
				PublicKey: oidcTestServer.Public(),
				KeyID:     "test-oidc-key-id",
				Algorithm: oidc.RS256,
			},
		},
	}
	oidcTestServer.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/token" && oidcTestServer.TokenEndpointHandler != nil {
			oidcTestServer.TokenEndpointHandler.ServeHTTP(w, r)
			return
		}
		oidcServer.ServeHTTP(w, r)
	}))
	oidcServer.SetIssuer(oidcTestServer.URL)
	oidcTestServer.Provider, err = oidc.NewProvider(t.Context(), oidcTestServer.URL)
	if err != nil {
		t.Fatalf("failed to create OIDC provider: %v", err)
	}
	return
}

type HttpSuite struct {
	BaseHttpSuite
}

func (s *HttpSuite) TestGracefulShutdown() {
	s.StartServer()
	s.StopServer()
	err := s.WaitForShutdown()
	s.StopServer = nil
	s.Run("Stops gracefully", func() {
		s.NoError(err, "Expected graceful shutdown")
	})
	s.Run("Stops on context cancel", func() {
		s.Contains(s.LogBuffer.String(), "Context cancelled, initiating graceful shutdown")
	})
	s.Run("Starts server shutdown", func() {
		s.Contains(s.LogBuffer.String(), "Shutting down HTTP server gracefully")
	})
	s.Run("Server shutdown completes", func() {
		s.Contains(s.LogBuffer.String(), "HTTP server shutdown complete")
	})
}

func (s *HttpSuite) TestHealthCheck() {
	s.StartServer()
	resp, err := http.Get(s.BaseURL() + "/healthz")
	s.Require().NoError(err, "Failed to get health check endpoint")
	s.T().Cleanup(func() { _ = resp.Body.Close() })
	s.Equal(http.StatusOK, resp.StatusCode, "Expected HTTP 200 OK")
}

func (s *HttpSuite) TestHealthCheckWithOAuth() {
	// Health exposed even when authorization is required
	s.StaticConfig.RequireOAuth = true
	s.StartServer()
	resp, err := http.Get(s.BaseURL() + "/healthz")
	s.Require().NoError(err, "Failed to get health check endpoint with OAuth")
	s.T().Cleanup(func() { _ = resp.Body.Close() })
	s.Equal(http.StatusOK, resp.StatusCode, "Expected HTTP 200 OK")
}

func (s *HttpSuite) TestStatsEndpoint() {
	s.StartServer()
	resp, err := http.Get(s.BaseURL() + "/stats")
	s.Require().NoError(err, "Failed to get stats endpoint")
	s.T().Cleanup(func() { _ = resp.Body.Close() })
	s.Run("returns HTTP 200 OK", func() {
		s.Equal(http.StatusOK, resp.StatusCode)
	})
	s.Run("returns JSON statistics", func() {
		s.Equal("application/json", resp.Header.Get("Content-Type"))
		body, err := io.ReadAll(resp.Body)
		s.Require().NoError(err)
		s.Contains(string(body), "total_tool_calls")
		s.Contains(string(body), "total_wapi_requests")
	})
}

func (s *HttpSuite) TestStatsEndpointMethodNotAllowed() {
	s.StartServer()
	resp, err := http.Post(s.BaseURL()+"/stats", "application/json", nil)
	s.Require().NoError(err)
	s.T().Cleanup(func() { _ = resp.Body.Close() })
	s.Equal(http.StatusMethodNotAllowed, resp.StatusCode)
}

func (s *HttpSuite) TestMetricsEndpoint() {
	s.StartServer()
	// A prior request so the http.requests counter has a data point.
	statsResp, err := http.Get(s.BaseURL() + "/stats")
	s.Require().NoError(err)
	_ = statsResp.Body.Close()

	resp, err := http.Get(s.BaseURL() + "/metrics")
	s.Require().NoError(err, "Failed to get metrics endpoint")
	s.T().Cleanup(func() { _ = resp.Body.Close() })
	s.Run("returns HTTP 200 OK", func() {
		s.Equal(http.StatusOK, resp.StatusCode)
	})
	s.Run("exposes Prometheus metrics", func() {
		body, err := io.ReadAll(resp.Body)
		s.Require().NoError(err)
		s.Contains(string(body), "infoblox_mcp_http_requests")
	})
}

func (s *HttpSuite) TestMcpEndpoint() {
	s.StartServer()
	mcpClient, err := s.StreamableClient(nil)
	s.Require().NoError(err, "Expected no error initializing MCP client")
	tools, err := mcpClient.ListTools(s.T().Context(), m3labs.ListToolsRequest{})
	s.Require().NoError(err, "Expected no error listing tools")
	names := make([]string, 0, len(tools.Tools))
	for _, tool := range tools.Tools {
		names = append(names, tool.Name)
	}
	s.Contains(names, "dns_list_zones")
	s.Contains(names, "grid_status")
}

func (s *HttpSuite) TestMiddlewareLogging() {
	s.StartServer()
	resp, err := http.Get(s.BaseURL() + "/.well-known/oauth-protected-resource")
	s.Require().NoError(err)
	_ = resp.Body.Close()
	s.Run("Logs HTTP requests and responses", func() {
		s.Contains(s.LogBuffer.String(), "GET /.well-known/oauth-protected-resource 200")
	})
	s.Run("Logs HTTP request duration", func() {
		expected := `"GET /.well-known/oauth-protected-resource 200 (.+)"`
		m := regexp.MustCompile(expected).FindStringSubmatch(s.LogBuffer.String())
		s.Require().Len(m, 2, "Expected log entry to contain duration")
		duration, err := time.ParseDuration(m[1])
		s.Require().NoError(err, "Failed to parse duration from log entry")
		s.GreaterOrEqual(duration, time.Duration(0))
	})
}

func TestHttp(t *testing.T) {
	suite.Run(t, new(HttpSuite))
}
