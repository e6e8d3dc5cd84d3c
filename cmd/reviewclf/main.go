// Command reviewclf trains the lecture-review rating classifier and runs it
// over text from the command line, a file or stdin.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "reviewclf: %v\n", err)
		os.Exit(1)
	}
}
