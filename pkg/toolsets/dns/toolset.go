package dns

import (
	"slices"

	"github.com/infoblox-mcp/infoblox-mcp-server/pkg/api"
	"github.com/infoblox-mcp/infoblox-mcp-server/pkg/toolsets"
)

type Toolset struct{}

var _ api.Toolset = (*Toolset)(nil)

func (t *Toolset) GetName() string {
	return "dns"
}

func (t *Toolset) GetDescription() string {
	return "DNS zone and resource record management"
}

func (t *Toolset) GetTools() []api.ServerTool {
	return slices.Concat(
		initZones(),
		initRecords(),
		initCheckZone(),
	)
}

func (t *Toolset) GetPrompts() []api.ServerPrompt {
	return nil
}

func init() {
	toolsets.Register(&Toolset{})
}
