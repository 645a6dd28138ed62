// Command harstyle lints the styles of captured web pages: from HAR files,
// from a host message stream, over HTTP, or from pages it loads itself.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/raysh454/harstyle/internal/cli"
)

func main() {
	// allow graceful shutdown on interrupt, serve and record depend on it
	ctx, stop := signal.NotifyContext(cli.ContextWithEnv(context.Background()), os.Interrupt, syscall.SIGTERM)

	var err error
	// NOTE: os.Exit is called at the end of main to set exit code, make sure
	// there are no other deferred functions after that
	defer func() {
		stop()
		if err != nil {
			// log may be unavailable (argument parsing) or already closed
			if !cli.ErrWasHandled() {
				fmt.Fprintf(os.Stderr, "Program ended with error: %v\n", err)
			}
			os.Exit(1)
		}
	}()
	err = cli.NewCommand().Run(ctx, os.Args)
}
