package grid

import (
	"github.com/infoblox-mcp/infoblox-mcp-server/pkg/api"
	"github.com/infoblox-mcp/infoblox-mcp-server/pkg/toolsets"
)

type Toolset struct{}

var _ api.Toolset = (*Toolset)(nil)

func (t *Toolset) GetName() string {
	return "grid"
}

func (t *Toolset) GetDescription() string {
	return "Grid status, member management, service restarts, and audit log search"
}

func (t *Toolset) GetTools() []api.ServerTool {
	return initGrid()
}

func (t *Toolset) GetPrompts() []api.ServerPrompt {
	return nil
}

func init() {
	toolsets.Register(&Toolset{})
}
