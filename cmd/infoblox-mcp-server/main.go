package main

import (
	"os"

	"github.com/infoblox-mcp/infoblox-mcp-server/pkg/infoblox-mcp-server/cmd"
)

func main() {
	streams := cmd.IOStreams{
		In:     os.Stdin,
		Out:    os.Stdout,
		ErrOut: os.Stderr,
	}
	if err := cmd.NewMCPServer(streams).Execute(); err != nil {
		os.Exit(1)
	}
}
