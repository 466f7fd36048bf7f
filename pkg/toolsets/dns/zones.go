package dns

import (
	"fmt"
	"net/url"

	"github.com/google/jsonschema-go/jsonschema"
	"k8s.io/utils/ptr"

	"github.com/infoblox-mcp/infoblox-mcp-server/pkg/api"
)

func initZones() []api.ServerTool {
	return []api.ServerTool{
		{Tool: api.Tool{
			Name:        "dns_list_zones",
			Description: "List the authoritative DNS zones on the Infoblox grid, optionally filtered by DNS view or FQDN pattern",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"view": {
						Type:        "string",
						Description: "DNS view to search in (defaults to all views)",
					},
					"fqdn": {
						Type:        "string",
						Description: "Zone FQDN to match, supports substring matching (e.g. example.com)",
					},
				},
			},
			Annotations: api.ToolAnnotations{
				Title:           "DNS: List Zones",
				ReadOnlyHint:    ptr.To(true),
				DestructiveHint: ptr.To(false),
				OpenWorldHint:   ptr.To(true),
			},
		}, Handler: zonesList},
		{Tool: api.Tool{
			Name:        "dns_get_zone",
			Description: "Get the details of a single authoritative DNS zone by FQDN",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"fqdn": {
						Type:        "string",
						Description: "Zone FQDN (e.g. example.com)",
					},
					"view": {
						Type:        "string",
						Description: "DNS view the zone lives in",
					},
					"return_fields": {
						Type:        "string",
						Description: "Comma-separated list of additional WAPI fields to return",
					},
				},
				Required: []string{"fqdn"},
			},
			Annotations: api.ToolAnnotations{
				Title:           "DNS: Get Zone",
				ReadOnlyHint:    ptr.To(true),
				DestructiveHint: ptr.To(false),
				OpenWorldHint:   ptr.To(true),
			},
		}, Handler: zoneGet},
		{Tool: api.Tool{
			Name:        "dns_create_zone",
			Description: "Create an authoritative DNS zone on the Infoblox grid",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"fqdn": {
						Type:        "string",
						Description: "FQDN of the zone to create (e.g. example.com)",
					},
					"view": {
						Type:        "string",
						Description: "DNS view to create the zone in (defaults to the default view)",
					},
					"comment": {
						Type:        "string",
						Description: "Comment stored on the zone object",
					},
				},
				Required: []string{"fqdn"},
			},
			Annotations: api.ToolAnnotations{
				Title:           "DNS: Create Zone",
				ReadOnlyHint:    ptr.To(false),
				DestructiveHint: ptr.To(false),
				IdempotentHint:  ptr.To(false),
				OpenWorldHint:   ptr.To(true),
			},
		}, Handler: zoneCreate},
		{Tool: api.Tool{
			Name:        "dns_delete_zone",
			Description: "Delete an authoritative DNS zone and all its records from the Infoblox grid",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"ref": {
						Type:        "string",
						Description: "WAPI object reference (_ref) of the zone to delete",
					},
				},
				Required: []string{"ref"},
			},
			Annotations: api.ToolAnnotations{
				Title:           "DNS: Delete Zone",
				ReadOnlyHint:    ptr.To(false),
				DestructiveHint: ptr.To(true),
				IdempotentHint:  ptr.To(true),
				OpenWorldHint:   ptr.To(true),
			},
		}, Handler: zoneDelete},
	}
}

func zonesList(params api.ToolHandlerParams) (*api.ToolCallResult, error) {
	query := url.Values{}
	query.Set("_return_fields", "fqdn,view,zone_format,comment")
	if view := api.OptionalString(params, "view", ""); view != "" {
		query.Set("view", view)
	}
	if fqdn := api.OptionalString(params, "fqdn", ""); fqdn != "" {
		query.Set("fqdn~", fqdn)
	}
	zones, err := params.SearchObjects(params, "zone_auth", query)
	if err != nil {
		return api.NewToolCallResult("", fmt.Errorf("failed to list zones: %w", err)), nil
	}
	return api.NewToolCallResult(params.ListOutput.Print(zones)), nil
}

func zoneGet(params api.ToolHandlerParams) (*api.ToolCallResult, error) {
	fqdn, err := api.RequiredString(params, "fqdn")
	if err != nil {
		return api.NewToolCallResult("", err), nil
	}
	query := url.Values{}
	query.Set("fqdn", fqdn)
	if view := api.OptionalString(params, "view", ""); view != "" {
		query.Set("view", view)
	}
	if fields := api.OptionalString(params, "return_fields", ""); fields != "" {
		query.Set("_return_fields", fields)
	}
	zones, err := params.SearchObjects(params, "zone_auth", query)
	if err != nil {
		return api.NewToolCallResult("", fmt.Errorf("failed to get zone %s: %w", fqdn, err)), nil
	}
	if len(zones) == 0 {
		return api.NewToolCallResult("", fmt.Errorf("zone %s not found", fqdn)), nil
	}
	return api.NewToolCallResult(params.ListOutput.Print(zones[0])), nil
}

func zoneCreate(params api.ToolHandlerParams) (*api.ToolCallResult, error) {
	fqdn, err := api.RequiredString(params, "fqdn")
	if err != nil {
		return api.NewToolCallResult("", err), nil
	}
	fields := map[string]any{"fqdn": fqdn}
	if view := api.OptionalString(params, "view", ""); view != "" {
		fields["view"] = view
	}
	if comment := api.OptionalString(params, "comment", ""); comment != "" {
		fields["comment"] = comment
	}
	ref, err := params.CreateObject(params, "zone_auth", fields)
	if err != nil {
		return api.NewToolCallResult("", fmt.Errorf("failed to create zone %s: %w", fqdn, err)), nil
	}
	return api.NewToolCallResult(fmt.Sprintf("Zone %s created: %s", fqdn, ref), nil), nil
}

func zoneDelete(params api.ToolHandlerParams) (*api.ToolCallResult, error) {
	ref, err := api.RequiredString(params, "ref")
	if err != nil {
		return api.NewToolCallResult("", err), nil
	}
	deletedRef, err := params.DeleteObject(params, ref)
	if err != nil {
		return api.NewToolCallResult("", fmt.Errorf("failed to delete zone: %w", err)), nil
	}
	return api.NewToolCallResult(fmt.Sprintf("Zone deleted: %s", deletedRef), nil), nil
}
