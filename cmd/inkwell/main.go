package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/inkwell-editor/inkwell/cli"
)

func main() {
	rootCmd := cli.NewStandardCommand(
		"inkwell",
		"GitHub-backed HTML document editing",
	)

	rootCmd.AddCommand(cli.NewLoginCmd())
	rootCmd.AddCommand(cli.NewLogoutCmd())
	rootCmd.AddCommand(cli.NewWhoamiCmd())
	rootCmd.AddCommand(cli.NewReposCmd())
	rootCmd.AddCommand(cli.NewLsCmd())
	rootCmd.AddCommand(cli.NewCatCmd())
	rootCmd.AddCommand(cli.NewEditCmd())
	rootCmd.AddCommand(cli.NewServeCmd())
	rootCmd.AddCommand(cli.NewVersionCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
