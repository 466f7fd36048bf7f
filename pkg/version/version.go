package version

// Build-time variables, overridable with -ldflags.
var (
	// BinaryName is the name of the compiled binary.
	BinaryName = "infoblox-mcp-server"
	// Version is the semantic version of the build.
	Version = "0.0.0"
	// WebsiteURL is the project homepage reported to MCP clients.
	WebsiteURL = "https://github.com/infoblox-mcp/infoblox-mcp-server"
)
