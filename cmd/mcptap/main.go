// mcptap — telemetry tap for MCP servers.
package main

import "github.com/mcptap/mcptap/internal/cli"

func main() {
	cli.Execute()
}
