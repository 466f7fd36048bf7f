package ipam

import (
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/google/jsonschema-go/jsonschema"
	"k8s.io/utils/ptr"

	"github.com/infoblox-mcp/infoblox-mcp-server/pkg/api"
)

func initIpam() []api.ServerTool {
	return []api.ServerTool{
		{Tool: api.Tool{
			Name:        "ipam_network_utilization",
			Description: "Report how full a network is: usable hosts, used hosts, and utilization percentage",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"network": {
						Type:        "string",
						Description: "Network CIDR to report on (e.g. 10.0.0.0/24)",
					},
					"network_view": {
						Type:        "string",
						Description: "Network view the network lives in",
					},
				},
				Required: []string{"network"},
			},
			Annotations: api.ToolAnnotations{
				Title:           "IPAM: Network Utilization",
				ReadOnlyHint:    ptr.To(true),
				DestructiveHint: ptr.To(false),
				OpenWorldHint:   ptr.To(true),
			},
		}, Handler: networkUtilization},
		{Tool: api.Tool{
			Name:        "ipam_next_available_network",
			Description: "Allocate the next available subnet of a given size from a network container",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"container": {
						Type:        "string",
						Description: "Network container CIDR to allocate from (e.g. 10.0.0.0/16)",
					},
					"cidr": {
						Type:        "integer",
						Description: "Prefix length of the subnets to propose (e.g. 24)",
					},
					"count": {
						Type:        "integer",
						Description: "Number of subnets to propose (default 1)",
					},
					"network_view": {
						Type:        "string",
						Description: "Network view the container lives in",
					},
				},
				Required: []string{"container", "cidr"},
			},
			Annotations: api.ToolAnnotations{
				Title:           "IPAM: Next Available Network",
				ReadOnlyHint:    ptr.To(true),
				DestructiveHint: ptr.To(false),
				OpenWorldHint:   ptr.To(true),
			},
		}, Handler: nextAvailableNetwork},
		{Tool: api.Tool{
			Name:        "ipam_list_ea_definitions",
			Description: "List the extensible attribute definitions configured on the Infoblox grid",
			InputSchema: &jsonschema.Schema{
				Type: "object",
			},
			Annotations: api.ToolAnnotations{
				Title:           "IPAM: List EA Definitions",
				ReadOnlyHint:    ptr.To(true),
				DestructiveHint: ptr.To(false),
				OpenWorldHint:   ptr.To(true),
			},
		}, Handler: eaDefinitionsList},
		{Tool: api.Tool{
			Name:        "ipam_search_ip",
			Description: "Look up the IPAM status of an IP address: which network it belongs to, its usage, and the names and objects bound to it",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"address": {
						Type:        "string",
						Description: "IPv4 address to look up",
					},
					"network_view": {
						Type:        "string",
						Description: "Network view to search in",
					},
				},
				Required: []string{"address"},
			},
			Annotations: api.ToolAnnotations{
				Title:           "IPAM: Search IP",
				ReadOnlyHint:    ptr.To(true),
				DestructiveHint: ptr.To(false),
				OpenWorldHint:   ptr.To(true),
			},
		}, Handler: searchIP},
	}
}

func networkUtilization(params api.ToolHandlerParams) (*api.ToolCallResult, error) {
	network, err := api.RequiredString(params, "network")
	if err != nil {
		return api.NewToolCallResult("", err), nil
	}
	query := url.Values{}
	query.Set("network", network)
	if view := api.OptionalString(params, "network_view", ""); view != "" {
		query.Set("network_view", view)
	}
	networks, err := params.SearchObjects(params, "network", query)
	if err != nil {
		return api.NewToolCallResult("", fmt.Errorf("failed to find network %s: %w", network, err)), nil
	}
	if len(networks) == 0 {
		return api.NewToolCallResult("", fmt.Errorf("network %s not found", network)), nil
	}
	ref, _ := networks[0]["_ref"].(string)
	report, err := params.NetworkUtilization(params, ref)
	if err != nil {
		return api.NewToolCallResult("", fmt.Errorf("failed to compute utilization for %s: %w", network, err)), nil
	}
	return api.NewToolCallResult(params.ListOutput.Print(report)), nil
}

func nextAvailableNetwork(params api.ToolHandlerParams) (*api.ToolCallResult, error) {
	container, err := api.RequiredString(params, "container")
	if err != nil {
		return api.NewToolCallResult("", err), nil
	}
	args := params.GetArguments()
	cidr, err := api.ParseInt64(args["cidr"])
	if err != nil {
		return api.NewToolCallResult("", fmt.Errorf("cidr parameter: %w", err)), nil
	}
	query := url.Values{}
	query.Set("network", container)
	if view := api.OptionalString(params, "network_view", ""); view != "" {
		query.Set("network_view", view)
	}
	containers, err := params.SearchObjects(params, "networkcontainer", query)
	if err != nil {
		return api.NewToolCallResult("", fmt.Errorf("failed to find network container %s: %w", container, err)), nil
	}
	if len(containers) == 0 {
		return api.NewToolCallResult("", fmt.Errorf("network container %s not found", container)), nil
	}
	ref, _ := containers[0]["_ref"].(string)
	raw, err := params.CallFunction(params, ref, "next_available_network", map[string]any{
		"cidr": cidr,
		"num":  api.OptionalInt(params, "count", 1),
	})
	if err != nil {
		return api.NewToolCallResult("", fmt.Errorf("failed to get next available network in %s: %w", container, err)), nil
	}
	var result struct {
		Networks []string `json:"networks"`
	}
	if err = json.Unmarshal(raw, &result); err != nil || len(result.Networks) == 0 {
		return api.NewToolCallResult(fmt.Sprintf("No available /%d networks in %s", cidr, container), nil), nil
	}
	return api.NewToolCallResult(params.ListOutput.Print(result.Networks)), nil
}

func eaDefinitionsList(params api.ToolHandlerParams) (*api.ToolCallResult, error) {
	query := url.Values{}
	query.Set("_return_fields", "name,type,comment,flags")
	defs, err := params.SearchObjects(params, "extensibleattributedef", query)
	if err != nil {
		return api.NewToolCallResult("", fmt.Errorf("failed to list extensible attribute definitions: %w", err)), nil
	}
	return api.NewToolCallResult(params.ListOutput.Print(defs)), nil
}

func searchIP(params api.ToolHandlerParams) (*api.ToolCallResult, error) {
	address, err := api.RequiredString(params, "address")
	if err != nil {
		return api.NewToolCallResult("", err), nil
	}
	query := url.Values{}
	query.Set("ip_address", address)
	if view := api.OptionalString(params, "network_view", ""); view != "" {
		query.Set("network_view", view)
	}
	query.Set("_return_fields", "ip_address,network,status,usage,names,types,objects,mac_address")
	addresses, err := params.SearchObjects(params, "ipv4address", query)
	if err != nil {
		return api.NewToolCallResult("", fmt.Errorf("failed to look up %s: %w", address, err)), nil
	}
	if len(addresses) == 0 {
		return api.NewToolCallResult(fmt.Sprintf("No IPAM data for %s", address), nil), nil
	}
	return api.NewToolCallResult(params.ListOutput.Print(addresses)), nil
}
