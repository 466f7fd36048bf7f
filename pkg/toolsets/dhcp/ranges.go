package dhcp

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"k8s.io/utils/ptr"

	"github.com/infoblox-mcp/infoblox-mcp-server/pkg/api"
)

func initRanges() []api.ServerTool {
	return []api.ServerTool{
		{Tool: api.Tool{
			Name:        "dhcp_list_ranges",
			Description: "List the DHCP address ranges on the Infoblox grid, optionally filtered by network",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"network": {
						Type:        "string",
						Description: "Restrict to ranges in this network (CIDR)",
					},
					"network_view": {
						Type:        "string",
						Description: "Network view to search in",
					},
				},
			},
			Annotations: api.ToolAnnotations{
				Title:           "DHCP: List Ranges",
				ReadOnlyHint:    ptr.To(true),
				DestructiveHint: ptr.To(false),
				OpenWorldHint:   ptr.To(true),
			},
		}, Handler: rangesList},
		{Tool: api.Tool{
			Name:        "dhcp_create_range",
			Description: "Create a DHCP address range inside an existing network",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"start_addr": {
						Type:        "string",
						Description: "First address of the range (e.g. 10.0.0.100)",
					},
					"end_addr": {
						Type:        "string",
						Description: "Last address of the range (e.g. 10.0.0.200)",
					},
					"network": {
						Type:        "string",
						Description: "Network CIDR the range belongs to",
					},
					"comment": {
						Type:        "string",
						Description: "Comment stored on the range object",
					},
				},
				Required: []string{"start_addr", "end_addr"},
			},
			Annotations: api.ToolAnnotations{
				Title:           "DHCP: Create Range",
				ReadOnlyHint:    ptr.To(false),
				DestructiveHint: ptr.To(false),
				IdempotentHint:  ptr.To(false),
				OpenWorldHint:   ptr.To(true),
			},
		}, Handler: rangeCreate},
		{Tool: api.Tool{
			Name:        "dhcp_list_leases",
			Description: "List DHCP leases, optionally filtered by network or IP address",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"network": {
						Type:        "string",
						Description: "Restrict to leases in this network (CIDR)",
					},
					"address": {
						Type:        "string",
						Description: "Exact lease IP address",
					},
					"active_only": {
						Type:        "boolean",
						Description: "Only return leases in the ACTIVE binding state (default false)",
					},
				},
			},
			Annotations: api.ToolAnnotations{
				Title:           "DHCP: List Leases",
				ReadOnlyHint:    ptr.To(true),
				DestructiveHint: ptr.To(false),
				OpenWorldHint:   ptr.To(true),
			},
		}, Handler: leasesList},
		{Tool: api.Tool{
			Name:        "dhcp_create_fixed_address",
			Description: "Create a fixed address reservation binding an IP to a MAC address",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"ipv4addr": {
						Type:        "string",
						Description: "IP address to reserve",
					},
					"mac": {
						Type:        "string",
						Description: "MAC address of the host (aa:bb:cc:dd:ee:ff)",
					},
					"name": {
						Type:        "string",
						Description: "Name stored on the reservation",
					},
					"comment": {
						Type:        "string",
						Description: "Comment stored on the reservation",
					},
				},
				Required: []string{"ipv4addr", "mac"},
			},
			Annotations: api.ToolAnnotations{
				Title:           "DHCP: Create Fixed Address",
				ReadOnlyHint:    ptr.To(false),
				DestructiveHint: ptr.To(false),
				IdempotentHint:  ptr.To(false),
				OpenWorldHint:   ptr.To(true),
			},
		}, Handler: fixedAddressCreate},
		{Tool: api.Tool{
			Name:        "dhcp_next_available_ip",
			Description: "Ask the grid for the next available IP addresses in a network",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"network": {
						Type:        "string",
						Description: "Network CIDR to allocate from (e.g. 10.0.0.0/24)",
					},
					"network_view": {
						Type:        "string",
						Description: "Network view the network lives in",
					},
					"count": {
						Type:        "integer",
						Description: "Number of addresses to request (default 1)",
					},
				},
				Required: []string{"network"},
			},
			Annotations: api.ToolAnnotations{
				Title:           "DHCP: Next Available IP",
				ReadOnlyHint:    ptr.To(true),
				DestructiveHint: ptr.To(false),
				OpenWorldHint:   ptr.To(true),
			},
		}, Handler: nextAvailableIP},
	}
}

func rangesList(params api.ToolHandlerParams) (*api.ToolCallResult, error) {
	query := url.Values{}
	query.Set("_return_fields", "start_addr,end_addr,network,network_view,comment")
	if network := api.OptionalString(params, "network", ""); network != "" {
		query.Set("network", network)
	}
	if view := api.OptionalString(params, "network_view", ""); view != "" {
		query.Set("network_view", view)
	}
	ranges, err := params.SearchObjects(params, "range", query)
	if err != nil {
		return api.NewToolCallResult("", fmt.Errorf("failed to list ranges: %w", err)), nil
	}
	return api.NewToolCallResult(params.ListOutput.Print(ranges)), nil
}

func rangeCreate(params api.ToolHandlerParams) (*api.ToolCallResult, error) {
	startAddr, err := api.RequiredString(params, "start_addr")
	if err != nil {
		return api.NewToolCallResult("", err), nil
	}
	endAddr, err := api.RequiredString(params, "end_addr")
	if err != nil {
		return api.NewToolCallResult("", err), nil
	}
	fields := map[string]any{
		"start_addr": startAddr,
		"end_addr":   endAddr,
	}
	if network := api.OptionalString(params, "network", ""); network != "" {
		fields["network"] = network
	}
	if comment := api.OptionalString(params, "comment", ""); comment != "" {
		fields["comment"] = comment
	}
	ref, err := params.CreateObject(params, "range", fields)
	if err != nil {
		return api.NewToolCallResult("", fmt.Errorf("failed to create range %s-%s: %w", startAddr, endAddr, err)), nil
	}
	return api.NewToolCallResult(fmt.Sprintf("Range %s-%s created: %s", startAddr, endAddr, ref), nil), nil
}

func leasesList(params api.ToolHandlerParams) (*api.ToolCallResult, error) {
	query := url.Values{}
	query.Set("_return_fields", "address,binding_state,client_hostname,hardware,network")
	if network := api.OptionalString(params, "network", ""); network != "" {
		query.Set("network", network)
	}
	if address := api.OptionalString(params, "address", ""); address != "" {
		query.Set("address", address)
	}
	leases, err := params.SearchObjects(params, "lease", query)
	if err != nil {
		return api.NewToolCallResult("", fmt.Errorf("failed to list leases: %w", err)), nil
	}
	if api.OptionalBool(params, "active_only", false) {
		active := make([]map[string]any, 0, len(leases))
		for _, lease := range leases {
			if state, _ := lease["binding_state"].(string); strings.EqualFold(state, "ACTIVE") {
				active = append(active, lease)
			}
		}
		leases = active
	}
	return api.NewToolCallResult(params.ListOutput.Print(leases)), nil
}

func fixedAddressCreate(params api.ToolHandlerParams) (*api.ToolCallResult, error) {
	ipv4addr, err := api.RequiredString(params, "ipv4addr")
	if err != nil {
		return api.NewToolCallResult("", err), nil
	}
	mac, err := api.RequiredString(params, "mac")
	if err != nil {
		return api.NewToolCallResult("", err), nil
	}
	fields := map[string]any{
		"ipv4addr": ipv4addr,
		"mac":      mac,
	}
	if name := api.OptionalString(params, "name", ""); name != "" {
		fields["name"] = name
	}
	if comment := api.OptionalString(params, "comment", ""); comment != "" {
		fields["comment"] = comment
	}
	ref, err := params.CreateObject(params, "fixedaddress", fields)
	if err != nil {
		return api.NewToolCallResult("", fmt.Errorf("failed to create fixed address %s: %w", ipv4addr, err)), nil
	}
	return api.NewToolCallResult(fmt.Sprintf("Fixed address %s created: %s", ipv4addr, ref), nil), nil
}

func nextAvailableIP(params api.ToolHandlerParams) (*api.ToolCallResult, error) {
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
	count := api.OptionalInt(params, "count", 1)
	ips, err := params.NextAvailableIPs(params, ref, count)
	if err != nil {
		return api.NewToolCallResult("", fmt.Errorf("failed to get next available IPs in %s: %w", network, err)), nil
	}
	if len(ips) == 0 {
		return api.NewToolCallResult(fmt.Sprintf("No available IP addresses in %s", network), nil), nil
	}
	return api.NewToolCallResult(params.ListOutput.Print(ips)), nil
}
