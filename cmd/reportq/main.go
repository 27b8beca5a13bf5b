// Command reportq compiles report requests into MongoDB aggregation
// pipelines and runs them.
package main

import (
	"os"

	"github.com/everde3/ai-agent-framework-prototype-sub000/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(cli.GetExitCode(err))
	}
}
