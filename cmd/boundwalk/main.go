// Command boundwalk drives the bounded interprocedural exploration
// engine from the command line.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/boundwalk/boundwalk/cmd/boundwalk/cmd"
	"github.com/boundwalk/boundwalk/reporter"
)

func main() {
	if err := cmd.Execute(); err != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if ferr := reporter.Flush(ctx); ferr != nil {
			fmt.Fprintf(os.Stderr, "boundwalk: flushing traces: %v\n", ferr)
		}
		fmt.Fprintf(os.Stderr, "boundwalk: %v\n", err)
		os.Exit(1)
	}
}
