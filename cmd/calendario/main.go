package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/barbearia/calendario/internal/app/bootstrap"
	"github.com/dalemusser/waffle/app"
	"github.com/spf13/cobra"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "1.0.0"

// releaseTimeout bounds closing the backends after the server has stopped.
const releaseTimeout = 15 * time.Second

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the CLI and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	root := newRootCmd()
	root.SetArgs(withDefaultCommand(args))
	root.SetOut(stdout)
	root.SetErr(stderr)
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(stderr, "FATAL: %v\n", err)
		return 1
	}
	return 0
}

// withDefaultCommand turns a bare "calendario [flags]" into "calendario
// serve [flags]". Named commands pass through.
func withDefaultCommand(args []string) []string {
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		return args
	}
	if len(args) == 1 && (args[0] == "-h" || args[0] == "--help") {
		return args
	}
	return append([]string{"serve"}, args...)
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "calendario",
		Short:         "Calendário / Barbearia scheduling API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCmd(), newVersionCmd())
	return root
}

// newServeCmd runs the server. Its flags (--port, --node_env, --mongo_uri
// and the WAFFLE core flags) are parsed by waffle's config loader, so cobra
// leaves them alone.
func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:                "serve [flags]",
		Short:              "Start the HTTP API",
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			err := app.Run(cmd.Context(), bootstrap.Hooks)
			return errors.Join(err, bootstrap.Release(releaseTimeout))
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the API version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "calendario %s\n", version)
		},
	}
}
