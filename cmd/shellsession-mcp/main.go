// Command shellsession-mcp is an MCP server exposing a stateless bash tool,
// a filesystem string-replace editor, and persistent interactive shell
// sessions with a sessioned editor variant.
package main

import (
	"fmt"
	"os"

	"github.com/acolita/shellsession-mcp/internal/app"
)

func main() {
	app.Version = version
	if err := Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
