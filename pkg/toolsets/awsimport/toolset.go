package awsimport

import (
	"github.com/infoblox-mcp/infoblox-mcp-server/pkg/api"
	"github.com/infoblox-mcp/infoblox-mcp-server/pkg/toolsets"
)

type Toolset struct{}

var _ api.Toolset = (*Toolset)(nil)

func (t *Toolset) GetName() string {
	return "awsimport"
}

func (t *Toolset) GetDescription() string {
	return "Bulk reconciliation of AWS VPC inventory exports into grid IPAM"
}

func (t *Toolset) GetTools() []api.ServerTool {
	return initImport()
}

func (t *Toolset) GetPrompts() []api.ServerPrompt {
	return initPrompts()
}

func init() {
	toolsets.Register(&Toolset{})
}
