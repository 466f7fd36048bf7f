package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	mcpclient "github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/infoblox-mcp/infoblox-mcp-server/cmd/infoblox-mcp-client/output"
)

func main() {
	var (
		serverURL   string
		token       string
		authHdr     string
		toolName    string
		jsonOut     bool
		listTools   bool
		network     string
		networkView string
		timeout     time.Duration
	)

	flag.StringVar(&serverURL, "server", getenvDefault("MCP_SERVER", "http://localhost:8080/mcp"), "MCP server URL (e.g. http://host:port/mcp)")
	flag.StringVar(&token, "token", os.Getenv("MCP_TOKEN"), "Bearer token (without 'Bearer ' prefix). If empty, tries AUTHORIZATION env var")
	flag.StringVar(&authHdr, "authorization", os.Getenv("AUTHORIZATION"), "Authorization header value (overrides --token). Example: 'Bearer eyJ...' ")
	flag.StringVar(&toolName, "tool", "", "Tool to call (e.g. ipam_network_utilization). If empty, defaults to ipam_network_utilization")
	flag.BoolVar(&jsonOut, "json", false, "If true, print JSON output instead of pretty formatting")
	flag.BoolVar(&listTools, "list-tools", false, "List all available tools and exit")
	flag.StringVar(&network, "network", "", "Network in CIDR notation to pass to ipam tools (e.g. 10.0.0.0/24)")
	flag.StringVar(&networkView, "network-view", "", "Optional network view to pass to ipam tools")
	flag.DurationVar(&timeout, "timeout", 30*time.Second, "Overall request timeout")
	flag.Parse()

	if authHdr == "" && token != "" {
		authHdr = "Bearer " + strings.TrimSpace(token)
	}

	// Configure transport with optional Authorization header
	opts := []transport.StreamableHTTPCOption{
		transport.WithHTTPTimeout(timeout),
	}
	if authHdr != "" {
		opts = append(opts, transport.WithHTTPHeaders(map[string]string{"Authorization": authHdr}))
	}

	client, err := mcpclient.NewStreamableHttpClient(serverURL, opts...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create client: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := client.Start(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "failed to start client: %v\n", err)
		os.Exit(1)
	}
	defer client.Close()

	// Initialize session
	_, err = client.Initialize(ctx, mcp.InitializeRequest{
		Request: mcp.Request{Method: string(mcp.MethodInitialize)},
		Params: mcp.InitializeParams{
			ProtocolVersion: mcp.LATEST_PROTOCOL_VERSION,
			ClientInfo: mcp.Implementation{
				Name:    "infoblox-mcp-client",
				Version: "dev",
			},
			Capabilities: mcp.ClientCapabilities{},
		},
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize client: %v\n", err)
		os.Exit(1)
	}

	if listTools {
		toolsRes, err := client.ListTools(ctx, mcp.ListToolsRequest{})
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to list tools: %v\n", err)
			os.Exit(1)
		}
		infos := make([]output.ToolInfo, 0, len(toolsRes.Tools))
		for _, t := range toolsRes.Tools {
			infos = append(infos, output.ToolInfo{Name: t.Name, Description: t.Description})
		}
		output.PrintToolList(infos, jsonOut)
		return
	}

	// Determine tool
	if strings.TrimSpace(toolName) == "" {
		toolName = "ipam_network_utilization"
	}

	// Build arguments based on known tools
	args := map[string]any{}
	switch toolName {
	case "ipam_network_utilization":
		if strings.TrimSpace(network) != "" {
			args["network"] = network
		}
		if strings.TrimSpace(networkView) != "" {
			args["network_view"] = networkView
		}
	default:
		// No specific args known; allow empty or future generic args
	}
	argsBytes, _ := json.Marshal(args)

	// Call tool
	result, err := client.CallTool(ctx, mcp.CallToolRequest{
		Request: mcp.Request{Method: "tools/call"},
		Params: mcp.CallToolParams{
			Name:      toolName,
			Arguments: json.RawMessage(argsBytes),
		},
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "tool call failed: %v\n", err)
		os.Exit(2)
	}

	if result.IsError {
		fmt.Fprintf(os.Stderr, "error: %s\n", firstText(result))
		os.Exit(3)
	}

	output.Print(toolName, firstText(result), jsonOut)
}

func firstText(r *mcp.CallToolResult) string {
	if r == nil {
		return ""
	}
	for _, c := range r.Content {
		if t, ok := c.(mcp.TextContent); ok {
			return t.Text
		}
	}
	return ""
}

func getenvDefault(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
