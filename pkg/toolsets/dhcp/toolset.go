package dhcp

import (
	"slices"

	"github.com/infoblox-mcp/infoblox-mcp-server/pkg/api"
	"github.com/infoblox-mcp/infoblox-mcp-server/pkg/toolsets"
)

type Toolset struct{}

var _ api.Toolset = (*Toolset)(nil)

func (t *Toolset) GetName() string {
	return "dhcp"
}

func (t *Toolset) GetDescription() string {
	return "DHCP network, range, lease, and fixed address management"
}

func (t *Toolset) GetTools() []api.ServerTool {
	return slices.Concat(
		initNetworks(),
		initRanges(),
	)
}

func (t *Toolset) GetPrompts() []api.ServerPrompt {
	return nil
}

func init() {
	toolsets.Register(&Toolset{})
}
