package dhcp

import (
	"fmt"
	"net/url"

	"github.com/google/jsonschema-go/jsonschema"
	"k8s.io/utils/ptr"

	"github.com/infoblox-mcp/infoblox-mcp-server/pkg/api"
)

func initNetworks() []api.ServerTool {
	return []api.ServerTool{
		{Tool: api.Tool{
			Name:        "dhcp_list_networks",
			Description: "List the IPv4 networks on the Infoblox grid, optionally filtered by network view or CIDR pattern",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"network_view": {
						Type:        "string",
						Description: "Network view to search in (defaults to all views)",
					},
					"network": {
						Type:        "string",
						Description: "CIDR to match, supports substring matching (e.g. 10.0.)",
					},
				},
			},
			Annotations: api.ToolAnnotations{
				Title:           "DHCP: List Networks",
				ReadOnlyHint:    ptr.To(true),
				DestructiveHint: ptr.To(false),
				OpenWorldHint:   ptr.To(true),
			},
		}, Handler: networksList},
		{Tool: api.Tool{
			Name:        "dhcp_get_network",
			Description: "Get the details of a single network by CIDR",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"network": {
						Type:        "string",
						Description: "Network CIDR (e.g. 10.0.0.0/24)",
					},
					"network_view": {
						Type:        "string",
						Description: "Network view the network lives in",
					},
					"return_fields": {
						Type:        "string",
						Description: "Comma-separated list of additional WAPI fields to return",
					},
				},
				Required: []string{"network"},
			},
			Annotations: api.ToolAnnotations{
				Title:           "DHCP: Get Network",
				ReadOnlyHint:    ptr.To(true),
				DestructiveHint: ptr.To(false),
				OpenWorldHint:   ptr.To(true),
			},
		}, Handler: networkGet},
		{Tool: api.Tool{
			Name:        "dhcp_create_network",
			Description: "Create an IPv4 network on the Infoblox grid",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"network": {
						Type:        "string",
						Description: "Network CIDR to create (e.g. 10.0.0.0/24)",
					},
					"network_view": {
						Type:        "string",
						Description: "Network view to create the network in (defaults to the default view)",
					},
					"comment": {
						Type:        "string",
						Description: "Comment stored on the network object",
					},
					"extattrs": {
						Type:        "object",
						Description: "Extensible attributes as a name to value object (e.g. {\"Region\": \"us-east-1\"})",
					},
				},
				Required: []string{"network"},
			},
			Annotations: api.ToolAnnotations{
				Title:           "DHCP: Create Network",
				ReadOnlyHint:    ptr.To(false),
				DestructiveHint: ptr.To(false),
				IdempotentHint:  ptr.To(false),
				OpenWorldHint:   ptr.To(true),
			},
		}, Handler: networkCreate},
		{Tool: api.Tool{
			Name:        "dhcp_delete_network",
			Description: "Delete a network and everything it contains from the Infoblox grid",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"ref": {
						Type:        "string",
						Description: "WAPI object reference (_ref) of the network to delete",
					},
				},
				Required: []string{"ref"},
			},
			Annotations: api.ToolAnnotations{
				Title:           "DHCP: Delete Network",
				ReadOnlyHint:    ptr.To(false),
				DestructiveHint: ptr.To(true),
				IdempotentHint:  ptr.To(true),
				OpenWorldHint:   ptr.To(true),
			},
		}, Handler: networkDelete},
	}
}

func networksList(params api.ToolHandlerParams) (*api.ToolCallResult, error) {
	query := url.Values{}
	query.Set("_return_fields", "network,network_view,comment,extattrs")
	if view := api.OptionalString(params, "network_view", ""); view != "" {
		query.Set("network_view", view)
	}
	if network := api.OptionalString(params, "network", ""); network != "" {
		query.Set("network~", network)
	}
	networks, err := params.SearchObjects(params, "network", query)
	if err != nil {
		return api.NewToolCallResult("", fmt.Errorf("failed to list networks: %w", err)), nil
	}
	return api.NewToolCallResult(params.ListOutput.Print(networks)), nil
}

func networkGet(params api.ToolHandlerParams) (*api.ToolCallResult, error) {
	network, err := api.RequiredString(params, "network")
	if err != nil {
		return api.NewToolCallResult("", err), nil
	}
	query := url.Values{}
	query.Set("network", network)
	if view := api.OptionalString(params, "network_view", ""); view != "" {
		query.Set("network_view", view)
	}
	if fields := api.OptionalString(params, "return_fields", ""); fields != "" {
		query.Set("_return_fields", fields)
	}
	networks, err := params.SearchObjects(params, "network", query)
	if err != nil {
		return api.NewToolCallResult("", fmt.Errorf("failed to get network %s: %w", network, err)), nil
	}
	if len(networks) == 0 {
		return api.NewToolCallResult("", fmt.Errorf("network %s not found", network)), nil
	}
	return api.NewToolCallResult(params.ListOutput.Print(networks[0])), nil
}

func networkCreate(params api.ToolHandlerParams) (*api.ToolCallResult, error) {
	network, err := api.RequiredString(params, "network")
	if err != nil {
		return api.NewToolCallResult("", err), nil
	}
	fields := map[string]any{"network": network}
	if view := api.OptionalString(params, "network_view", ""); view != "" {
		fields["network_view"] = view
	}
	if comment := api.OptionalString(params, "comment", ""); comment != "" {
		fields["comment"] = comment
	}
	if extattrs := api.OptionalStringMap(params, "extattrs"); len(extattrs) > 0 {
		wrapped := make(map[string]any, len(extattrs))
		for name, value := range extattrs {
			wrapped[name] = map[string]any{"value": value}
		}
		fields["extattrs"] = wrapped
	}
	ref, err := params.CreateObject(params, "network", fields)
	if err != nil {
		return api.NewToolCallResult("", fmt.Errorf("failed to create network %s: %w", network, err)), nil
	}
	return api.NewToolCallResult(fmt.Sprintf("Network %s created: %s", network, ref), nil), nil
}

func networkDelete(params api.ToolHandlerParams) (*api.ToolCallResult, error) {
	ref, err := api.RequiredString(params, "ref")
	if err != nil {
		return api.NewToolCallResult("", err), nil
	}
	deletedRef, err := params.DeleteObject(params, ref)
	if err != nil {
		return api.NewToolCallResult("", fmt.Errorf("failed to delete network: %w", err)), nil
	}
	return api.NewToolCallResult(fmt.Sprintf("Network deleted: %s", deletedRef), nil), nil
}
