package toolsets_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/infoblox-mcp/infoblox-mcp-server/pkg/toolsets"
	_ "github.com/infoblox-mcp/infoblox-mcp-server/pkg/toolsets/awsimport"
	_ "github.com/infoblox-mcp/infoblox-mcp-server/pkg/toolsets/dhcp"
	_ "github.com/infoblox-mcp/infoblox-mcp-server/pkg/toolsets/dns"
	_ "github.com/infoblox-mcp/infoblox-mcp-server/pkg/toolsets/grid"
	_ "github.com/infoblox-mcp/infoblox-mcp-server/pkg/toolsets/ipam"
)

func TestToolsetNames(t *testing.T) {
	assert.Equal(t, []string{"awsimport", "dhcp", "dns", "grid", "ipam"}, toolsets.ToolsetNames())
}

func TestToolsetFromString(t *testing.T) {
	t.Run("registered name resolves", func(t *testing.T) {
		toolset := toolsets.ToolsetFromString("dns")
		require.NotNil(t, toolset)
		assert.Equal(t, "dns", toolset.GetName())
	})
	t.Run("name is trimmed", func(t *testing.T) {
		assert.NotNil(t, toolsets.ToolsetFromString(" ipam "))
	})
	t.Run("unknown name resolves to nil", func(t *testing.T) {
		assert.Nil(t, toolsets.ToolsetFromString("reporting"))
	})
}

func TestValidate(t *testing.T) {
	t.Run("valid names pass", func(t *testing.T) {
		assert.NoError(t, toolsets.Validate([]string{"dns", "dhcp", "ipam", "grid", "awsimport"}))
	})
	t.Run("invalid name fails with the valid names listed", func(t *testing.T) {
		err := toolsets.Validate([]string{"dns", "helm"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "helm")
		assert.Contains(t, err.Error(), "dns, grid, ipam")
	})
}

func TestToolsetContracts(t *testing.T) {
	for _, toolset := range toolsets.Toolsets() {
		t.Run(toolset.GetName(), func(t *testing.T) {
			assert.NotEmpty(t, toolset.GetDescription())
			tools := toolset.GetTools()
			require.NotEmpty(t, tools)
			seen := map[string]bool{}
			for _, tool := range tools {
				assert.NotEmpty(t, tool.Tool.Name)
				assert.NotEmpty(t, tool.Tool.Description)
				assert.NotNil(t, tool.Tool.InputSchema, "tool %s has no input schema", tool.Tool.Name)
				assert.NotNil(t, tool.Handler, "tool %s has no handler", tool.Tool.Name)
				assert.NotNil(t, tool.Tool.Annotations.ReadOnlyHint, "tool %s has no read-only hint", tool.Tool.Name)
				assert.Falsef(t, seen[tool.Tool.Name], "duplicate tool name %s", tool.Tool.Name)
				seen[tool.Tool.Name] = true
			}
		})
	}
}
