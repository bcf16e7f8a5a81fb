// Command gateway is the MCP gateway's entrypoint, delegating to the
// gatewayctl cobra command tree (start|stop|status|config).
package main

import (
	"github.com/mcp-gateway/gateway/cmd"
)

func main() {
	cmd.Execute()
}
