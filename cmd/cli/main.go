// Command dump-analysis analyzes JVM thread dumps and class histograms.
package main

import (
	"os"

	"github.com/dump-analysis/cmd/cli/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
