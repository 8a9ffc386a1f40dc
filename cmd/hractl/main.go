// Command hractl is the operator CLI: offline scoring and summaries,
// database migrations, report export and import, and MCP client setup.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
