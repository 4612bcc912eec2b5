// Command ml-bundle is the hyphenated spelling of mlbundle.
// Both binaries share the same flags and behavior.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path"

	"github.com/youta-t/flarc"

	"github.com/mlbundle/mlbundle/internal/commands/generate"
	"github.com/mlbundle/mlbundle/internal/commands/logger"
	"github.com/mlbundle/mlbundle/internal/utils/try"
)

func main() {
	name := path.Base(os.Args[0])
	logger := logger.Default()
	logger.SetPrefix(fmt.Sprintf("[%s] ", name))

	ctx, cancel := signal.NotifyContext(
		context.Background(), os.Interrupt, os.Kill,
	)
	defer cancel()

	cmd := try.To(generate.New()).OrFatal(logger)

	os.Exit(flarc.Run(ctx, cmd, flarc.WithHelp(true)))
}
