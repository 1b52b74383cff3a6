// Command examctl runs scheduling operations against the configured storage without the HTTP server.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd(defaultDeps()).Execute(); err != nil {
		os.Exit(1)
	}
}
