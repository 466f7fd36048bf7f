package dns

import (
	"fmt"
	"net/url"

	"github.com/google/jsonschema-go/jsonschema"
	"k8s.io/utils/ptr"

	"github.com/infoblox-mcp/infoblox-mcp-server/pkg/api"
)

// recordTypes maps the tool-facing record type to the WAPI object type and
// the field carrying the record's value.
var recordTypes = map[string]struct {
	objType    string
	valueField string
}{
	"a":     {"record:a", "ipv4addr"},
	"aaaa":  {"record:aaaa", "ipv6addr"},
	"cname": {"record:cname", "canonical"},
	"ptr":   {"record:ptr", "ptrdname"},
	"txt":   {"record:txt", "text"},
	"host":  {"record:host", "ipv4addrs"},
}

func recordTypeNames() []string {
	return []string{"a", "aaaa", "cname", "ptr", "txt", "host"}
}

func initRecords() []api.ServerTool {
	return []api.ServerTool{
		{Tool: api.Tool{
			Name:        "dns_list_records",
			Description: "List DNS resource records of a given type, optionally filtered by zone or name",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"record_type": {
						Type:        "string",
						Description: "Record type to list",
						Enum:        enumValues(recordTypeNames()),
					},
					"zone": {
						Type:        "string",
						Description: "Restrict the search to records in this zone (FQDN)",
					},
					"name": {
						Type:        "string",
						Description: "Record name to match, supports substring matching",
					},
					"view": {
						Type:        "string",
						Description: "DNS view to search in",
					},
				},
				Required: []string{"record_type"},
			},
			Annotations: api.ToolAnnotations{
				Title:           "DNS: List Records",
				ReadOnlyHint:    ptr.To(true),
				DestructiveHint: ptr.To(false),
				OpenWorldHint:   ptr.To(true),
			},
		}, Handler: recordsList},
		{Tool: api.Tool{
			Name:        "dns_create_record",
			Description: "Create a DNS resource record (a, aaaa, cname, ptr, or txt)",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"record_type": {
						Type:        "string",
						Description: "Record type to create",
						Enum:        enumValues([]string{"a", "aaaa", "cname", "ptr", "txt"}),
					},
					"name": {
						Type:        "string",
						Description: "Record name (FQDN, e.g. www.example.com)",
					},
					"value": {
						Type:        "string",
						Description: "Record value: the IP address for a/aaaa, the canonical name for cname, the target FQDN for ptr, the text for txt",
					},
					"view": {
						Type:        "string",
						Description: "DNS view to create the record in",
					},
					"ttl": {
						Type:        "integer",
						Description: "Record TTL in seconds (omit to inherit from the zone)",
					},
					"comment": {
						Type:        "string",
						Description: "Comment stored on the record",
					},
				},
				Required: []string{"record_type", "name", "value"},
			},
			Annotations: api.ToolAnnotations{
				Title:           "DNS: Create Record",
				ReadOnlyHint:    ptr.To(false),
				DestructiveHint: ptr.To(false),
				IdempotentHint:  ptr.To(false),
				OpenWorldHint:   ptr.To(true),
			},
		}, Handler: recordCreate},
		{Tool: api.Tool{
			Name:        "dns_update_record",
			Description: "Update fields of an existing DNS resource record identified by its WAPI reference",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"ref": {
						Type:        "string",
						Description: "WAPI object reference (_ref) of the record to update",
					},
					"fields": {
						Type:        "object",
						Description: "Object with the WAPI fields to update (e.g. {\"ipv4addr\": \"10.0.0.9\", \"ttl\": 300})",
					},
				},
				Required: []string{"ref", "fields"},
			},
			Annotations: api.ToolAnnotations{
				Title:           "DNS: Update Record",
				ReadOnlyHint:    ptr.To(false),
				DestructiveHint: ptr.To(false),
				IdempotentHint:  ptr.To(true),
				OpenWorldHint:   ptr.To(true),
			},
		}, Handler: recordUpdate},
		{Tool: api.Tool{
			Name:        "dns_delete_record",
			Description: "Delete a DNS resource record identified by its WAPI reference",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"ref": {
						Type:        "string",
						Description: "WAPI object reference (_ref) of the record to delete",
					},
				},
				Required: []string{"ref"},
			},
			Annotations: api.ToolAnnotations{
				Title:           "DNS: Delete Record",
				ReadOnlyHint:    ptr.To(false),
				DestructiveHint: ptr.To(true),
				IdempotentHint:  ptr.To(true),
				OpenWorldHint:   ptr.To(true),
			},
		}, Handler: recordDelete},
	}
}

func enumValues(names []string) []any {
	values := make([]any, 0, len(names))
	for _, name := range names {
		values = append(values, name)
	}
	return values
}

func recordsList(params api.ToolHandlerParams) (*api.ToolCallResult, error) {
	recordType, err := api.RequiredString(params, "record_type")
	if err != nil {
		return api.NewToolCallResult("", err), nil
	}
	mapping, ok := recordTypes[recordType]
	if !ok {
		return api.NewToolCallResult("", fmt.Errorf("unsupported record type %q, supported types are: %v", recordType, recordTypeNames())), nil
	}
	query := url.Values{}
	if zone := api.OptionalString(params, "zone", ""); zone != "" {
		query.Set("zone", zone)
	}
	if name := api.OptionalString(params, "name", ""); name != "" {
		query.Set("name~", name)
	}
	if view := api.OptionalString(params, "view", ""); view != "" {
		query.Set("view", view)
	}
	records, err := params.SearchObjects(params, mapping.objType, query)
	if err != nil {
		return api.NewToolCallResult("", fmt.Errorf("failed to list %s records: %w", recordType, err)), nil
	}
	return api.NewToolCallResult(params.ListOutput.Print(records)), nil
}

func recordCreate(params api.ToolHandlerParams) (*api.ToolCallResult, error) {
	recordType, err := api.RequiredString(params, "record_type")
	if err != nil {
		return api.NewToolCallResult("", err), nil
	}
	mapping, ok := recordTypes[recordType]
	if !ok || recordType == "host" {
		return api.NewToolCallResult("", fmt.Errorf("unsupported record type %q for creation", recordType)), nil
	}
	name, err := api.RequiredString(params, "name")
	if err != nil {
		return api.NewToolCallResult("", err), nil
	}
	value, err := api.RequiredString(params, "value")
	if err != nil {
		return api.NewToolCallResult("", err), nil
	}
	fields := map[string]any{
		"name":             name,
		mapping.valueField: value,
	}
	if view := api.OptionalString(params, "view", ""); view != "" {
		fields["view"] = view
	}
	if ttl := api.OptionalInt(params, "ttl", 0); ttl > 0 {
		fields["ttl"] = ttl
		fields["use_ttl"] = true
	}
	if comment := api.OptionalString(params, "comment", ""); comment != "" {
		fields["comment"] = comment
	}
	ref, err := params.CreateObject(params, mapping.objType, fields)
	if err != nil {
		return api.NewToolCallResult("", fmt.Errorf("failed to create %s record %s: %w", recordType, name, err)), nil
	}
	return api.NewToolCallResult(fmt.Sprintf("Record %s created: %s", name, ref), nil), nil
}

func recordUpdate(params api.ToolHandlerParams) (*api.ToolCallResult, error) {
	ref, err := api.RequiredString(params, "ref")
	if err != nil {
		return api.NewToolCallResult("", err), nil
	}
	fields := api.OptionalStringMap(params, "fields")
	if len(fields) == 0 {
		return api.NewToolCallResult("", fmt.Errorf("fields parameter required")), nil
	}
	updatedRef, err := params.UpdateObject(params, ref, fields)
	if err != nil {
		return api.NewToolCallResult("", fmt.Errorf("failed to update record: %w", err)), nil
	}
	return api.NewToolCallResult(fmt.Sprintf("Record updated: %s", updatedRef), nil), nil
}

func recordDelete(params api.ToolHandlerParams) (*api.ToolCallResult, error) {
	ref, err := api.RequiredString(params, "ref")
	if err != nil {
		return api.NewToolCallResult("", err), nil
	}
	deletedRef, err := params.DeleteObject(params, ref)
	if err != nil {
		return api.NewToolCallResult("", fmt.Errorf("failed to delete record: %w", err)), nil
	}
	return api.NewToolCallResult(fmt.Sprintf("Record deleted: %s", deletedRef), nil), nil
}
