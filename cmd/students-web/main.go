// Command students-web serves the student records web application.
//
//	students-web --config config/local.yaml serve
//	students-web --config config/local.yaml user create alice
//
// or, with the environment variable:
//
//	CONFIG_PATH=config/local.yaml students-web serve
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/aanand-mishra/student-records/internal/command"
)

func main() { os.Exit(run()) }

func run() int {
	// SIGINT is Ctrl+C; SIGTERM is what `kill` and container runtimes send.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := command.RootCommand().ExecuteContext(ctx); err != nil {
		return 1
	}
	return 0
}
