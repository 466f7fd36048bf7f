package grid

import (
	"fmt"
	"net/url"

	"github.com/google/jsonschema-go/jsonschema"
	"k8s.io/utils/ptr"

	"github.com/infoblox-mcp/infoblox-mcp-server/pkg/api"
)

func initGrid() []api.ServerTool {
	return []api.ServerTool{
		{Tool: api.Tool{
			Name:        "grid_status",
			Description: "Get the Infoblox grid object with its name and service status",
			InputSchema: &jsonschema.Schema{
				Type: "object",
			},
			Annotations: api.ToolAnnotations{
				Title:           "Grid: Status",
				ReadOnlyHint:    ptr.To(true),
				DestructiveHint: ptr.To(false),
				OpenWorldHint:   ptr.To(true),
			},
		}, Handler: gridStatus},
		{Tool: api.Tool{
			Name:        "grid_list_members",
			Description: "List the members of the Infoblox grid with their host names and service states",
			InputSchema: &jsonschema.Schema{
				Type: "object",
			},
			Annotations: api.ToolAnnotations{
				Title:           "Grid: List Members",
				ReadOnlyHint:    ptr.To(true),
				DestructiveHint: ptr.To(false),
				OpenWorldHint:   ptr.To(true),
			},
		}, Handler: membersList},
		{Tool: api.Tool{
			Name:        "grid_get_member",
			Description: "Get the details of a single grid member by host name",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"host_name": {
						Type:        "string",
						Description: "FQDN of the grid member (e.g. gm.example.com)",
					},
					"return_fields": {
						Type:        "string",
						Description: "Comma-separated list of additional WAPI fields to return",
					},
				},
				Required: []string{"host_name"},
			},
			Annotations: api.ToolAnnotations{
				Title:           "Grid: Get Member",
				ReadOnlyHint:    ptr.To(true),
				DestructiveHint: ptr.To(false),
				OpenWorldHint:   ptr.To(true),
			},
		}, Handler: memberGet},
		{Tool: api.Tool{
			Name:        "grid_restart_services",
			Description: "Restart grid services (DNS/DHCP) to apply pending configuration changes",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"service": {
						Type:        "string",
						Description: "Service to restart",
						Enum:        []any{"ALL", "DNS", "DHCP"},
					},
					"mode": {
						Type:        "string",
						Description: "Restart mode",
						Enum:        []any{"GROUPED", "SEQUENTIAL", "SIMULTANEOUS"},
					},
				},
			},
			Annotations: api.ToolAnnotations{
				Title:           "Grid: Restart Services",
				ReadOnlyHint:    ptr.To(false),
				DestructiveHint: ptr.To(false),
				IdempotentHint:  ptr.To(true),
				OpenWorldHint:   ptr.To(true),
			},
		}, Handler: restartServices},
		{Tool: api.Tool{
			Name:        "grid_search_audit_log",
			Description: "Search the grid audit log for administrative actions, optionally filtered by admin or object type",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"admin": {
						Type:        "string",
						Description: "Administrator account that performed the action",
					},
					"object_type": {
						Type:        "string",
						Description: "WAPI object type the action touched (e.g. zone_auth, network)",
					},
				},
			},
			Annotations: api.ToolAnnotations{
				Title:           "Grid: Search Audit Log",
				ReadOnlyHint:    ptr.To(true),
				DestructiveHint: ptr.To(false),
				OpenWorldHint:   ptr.To(true),
			},
		}, Handler: auditLogSearch},
	}
}

func gridStatus(params api.ToolHandlerParams) (*api.ToolCallResult, error) {
	query := url.Values{}
	query.Set("_return_fields", "name,ntp_setting,service_status")
	grids, err := params.SearchObjects(params, "grid", query)
	if err != nil {
		return api.NewToolCallResult("", fmt.Errorf("failed to get grid status: %w", err)), nil
	}
	if len(grids) == 0 {
		return api.NewToolCallResult("", fmt.Errorf("grid object not found")), nil
	}
	return api.NewToolCallResult(params.ListOutput.Print(grids[0])), nil
}

func membersList(params api.ToolHandlerParams) (*api.ToolCallResult, error) {
	query := url.Values{}
	query.Set("_return_fields", "host_name,platform,service_status_list,node_info")
	members, err := params.SearchObjects(params, "member", query)
	if err != nil {
		return api.NewToolCallResult("", fmt.Errorf("failed to list grid members: %w", err)), nil
	}
	return api.NewToolCallResult(params.ListOutput.Print(members)), nil
}

func memberGet(params api.ToolHandlerParams) (*api.ToolCallResult, error) {
	hostName, err := api.RequiredString(params, "host_name")
	if err != nil {
		return api.NewToolCallResult("", err), nil
	}
	query := url.Values{}
	query.Set("host_name", hostName)
	if fields := api.OptionalString(params, "return_fields", ""); fields != "" {
		query.Set("_return_fields", fields)
	}
	members, err := params.SearchObjects(params, "member", query)
	if err != nil {
		return api.NewToolCallResult("", fmt.Errorf("failed to get member %s: %w", hostName, err)), nil
	}
	if len(members) == 0 {
		return api.NewToolCallResult("", fmt.Errorf("grid member %s not found", hostName)), nil
	}
	return api.NewToolCallResult(params.ListOutput.Print(members[0])), nil
}

func restartServices(params api.ToolHandlerParams) (*api.ToolCallResult, error) {
	grids, err := params.SearchObjects(params, "grid", nil)
	if err != nil {
		return api.NewToolCallResult("", fmt.Errorf("failed to find grid object: %w", err)), nil
	}
	if len(grids) == 0 {
		return api.NewToolCallResult("", fmt.Errorf("grid object not found")), nil
	}
	ref, _ := grids[0]["_ref"].(string)
	args := map[string]any{
		"restart_option": "RESTART_IF_NEEDED",
		"service_option": api.OptionalString(params, "service", "ALL"),
		"mode":           api.OptionalString(params, "mode", "GROUPED"),
	}
	if _, err = params.CallFunction(params, ref, "restartservices", args); err != nil {
		return api.NewToolCallResult("", fmt.Errorf("failed to restart services: %w", err)), nil
	}
	return api.NewToolCallResult(fmt.Sprintf("Restart of %s services requested", args["service_option"]), nil), nil
}

func auditLogSearch(params api.ToolHandlerParams) (*api.ToolCallResult, error) {
	query := url.Values{}
	if admin := api.OptionalString(params, "admin", ""); admin != "" {
		query.Set("admin", admin)
	}
	if objectType := api.OptionalString(params, "object_type", ""); objectType != "" {
		query.Set("object_type", objectType)
	}
	entries, err := params.SearchObjects(params, "auditlog", query)
	if err != nil {
		return api.NewToolCallResult("", fmt.Errorf("failed to search audit log: %w", err)), nil
	}
	return api.NewToolCallResult(params.ListOutput.Print(entries)), nil
}
