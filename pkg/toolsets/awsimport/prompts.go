package awsimport

import (
	"github.com/infoblox-mcp/infoblox-mcp-server/pkg/api"
	"github.com/infoblox-mcp/infoblox-mcp-server/pkg/prompts"
)

func initPrompts() []api.ServerPrompt {
	return prompts.ToServerPrompts([]api.Prompt{
		{
			Name:        "aws-vpc-import",
			Description: "Guided reconciliation of an AWS VPC inventory export into grid IPAM",
			Arguments: []api.PromptArgument{
				{Name: "file_path", Description: "Path to the AWS VPC inventory CSV export", Required: true},
				{Name: "network_view", Description: "Target network view (defaults to 'default')", Required: false},
			},
			Templates: []api.PromptTemplate{
				{
					Role: "user",
					Content: "Reconcile the AWS VPC inventory export at {{file_path}} into the grid. " +
						"First run aws_import_analysis on the file and summarize the proposed networks, " +
						"conflicts with existing networks, and any tag keys that have no matching " +
						"extensible attribute definition. Wait for my confirmation, then run " +
						"aws_import_execute with dry_run=false against the {{network_view}} network view " +
						"and report what was created and what was skipped.",
				},
			},
		},
	})
}
