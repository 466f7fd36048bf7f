package ipam

import (
	"github.com/infoblox-mcp/infoblox-mcp-server/pkg/api"
	"github.com/infoblox-mcp/infoblox-mcp-server/pkg/toolsets"
)

type Toolset struct{}

var _ api.Toolset = (*Toolset)(nil)

func (t *Toolset) GetName() string {
	return "ipam"
}

func (t *Toolset) GetDescription() string {
	return "IP address management: utilization, address search, and extensible attributes"
}

func (t *Toolset) GetTools() []api.ServerTool {
	return initIpam()
}

func (t *Toolset) GetPrompts() []api.ServerPrompt {
	return nil
}

func init() {
	toolsets.Register(&Toolset{})
}
