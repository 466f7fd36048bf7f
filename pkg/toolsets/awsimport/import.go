package awsimport

import (
	"errors"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/spf13/afero"
	"k8s.io/utils/ptr"

	"github.com/infoblox-mcp/infoblox-mcp-server/pkg/api"
	"github.com/infoblox-mcp/infoblox-mcp-server/pkg/awsimport"
)

func initImport() []api.ServerTool {
	return []api.ServerTool{
		{Tool: api.Tool{
			Name:        "aws_import_analysis",
			Description: "Analyze an AWS VPC inventory CSV against grid IPAM without changing anything: reports conflicts, extensible attribute mappings, and the count of importable rows",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"file_path": {
						Type:        "string",
						Description: "Path to the inventory CSV, must contain CidrBlock and Tags columns",
					},
					"network_view": {
						Type:        "string",
						Description: "Network view to reconcile against (defaults to the default view)",
					},
				},
				Required: []string{"file_path"},
			},
			Annotations: api.ToolAnnotations{
				Title:           "AWS Import: Analyze",
				ReadOnlyHint:    ptr.To(true),
				DestructiveHint: ptr.To(false),
				OpenWorldHint:   ptr.To(true),
			},
		}, Handler: importAnalysis},
		{Tool: api.Tool{
			Name:        "aws_import_execute",
			Description: "Import an AWS VPC inventory CSV into grid IPAM: creates a network per CidrBlock with extensible attributes from the AWS columns and tags, skipping CIDRs that already exist. Runs as a dry run unless dry_run is explicitly false",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"file_path": {
						Type:        "string",
						Description: "Path to the inventory CSV, must contain CidrBlock and Tags columns",
					},
					"network_view": {
						Type:        "string",
						Description: "Network view to import into (defaults to the default view)",
					},
					"dry_run": {
						Type:        "boolean",
						Description: "When true (the default), report what would happen without creating networks",
					},
				},
				Required: []string{"file_path"},
			},
			Annotations: api.ToolAnnotations{
				Title:           "AWS Import: Execute",
				ReadOnlyHint:    ptr.To(false),
				DestructiveHint: ptr.To(false),
				IdempotentHint:  ptr.To(true),
				OpenWorldHint:   ptr.To(true),
			},
		}, Handler: importExecute},
	}
}

func importAnalysis(params api.ToolHandlerParams) (*api.ToolCallResult, error) {
	filePath, err := api.RequiredString(params, "file_path")
	if err != nil {
		return api.NewToolCallResult("", err), nil
	}
	networkView := api.OptionalString(params, "network_view", "default")
	importer := awsimport.NewImporter(params.Client, afero.NewOsFs())
	result, err := importer.Analyze(params, filePath, networkView)
	if err != nil {
		return importError(err), nil
	}
	return api.NewToolCallResult(params.ListOutput.Print(result)), nil
}

func importExecute(params api.ToolHandlerParams) (*api.ToolCallResult, error) {
	filePath, err := api.RequiredString(params, "file_path")
	if err != nil {
		return api.NewToolCallResult("", err), nil
	}
	networkView := api.OptionalString(params, "network_view", "default")
	dryRun := api.OptionalBool(params, "dry_run", true)
	importer := awsimport.NewImporter(params.Client, afero.NewOsFs())
	result, err := importer.Execute(params, filePath, networkView, dryRun)
	if err != nil {
		return importError(err), nil
	}
	return api.NewToolCallResult(params.ListOutput.Print(result)), nil
}

func importError(err error) *api.ToolCallResult {
	var validationErr *awsimport.ValidationError
	if errors.As(err, &validationErr) {
		return api.NewToolCallResult("", fmt.Errorf("import aborted: %s", validationErr.Message))
	}
	return api.NewToolCallResult("", fmt.Errorf("import failed: %w", err))
}
