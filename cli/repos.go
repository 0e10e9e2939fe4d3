package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/inkwell-editor/inkwell/tree"
)

var (
	repoNameStyle = lipgloss.NewStyle().Bold(true)
	privateStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
)

// NewReposCmd groups repository operations.
func NewReposCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "repos",
		Short: "List and create repositories",
	}
	cmd.AddCommand(newReposListCmd())
	cmd.AddCommand(newReposCreateCmd())
	return cmd
}

func newReposListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List repositories visible to the session, most recently updated first",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := NewApp(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			if _, err := app.RequireSession(ctx); err != nil {
				return app.Errors.Handle(err)
			}

			cache := tree.NewCache(app.API(), app.Sessions.HasScope)
			repos, err := cache.ListRepositories(ctx)
			if err != nil {
				return app.Errors.Handle(err)
			}

			if GetOptions(cmd).JSONOutput {
				return json.NewEncoder(os.Stdout).Encode(repos)
			}

			if len(repos) == 0 {
				fmt.Println("No repositories.")
				return nil
			}
			for _, r := range repos {
				line := repoNameStyle.Render(r.FullName)
				if r.Private {
					line += " " + privateStyle.Render("(private)")
				}
				fmt.Printf("%s  %s\n", line, r.UpdatedAt.Format("2006-01-02"))
			}
			return nil
		},
	}
}

func newReposCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create <name>",
		Short: "Create a new private repository with an initial commit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := NewApp(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			if _, err := app.RequireSession(ctx); err != nil {
				return app.Errors.Handle(err)
			}

			cache := tree.NewCache(app.API(), app.Sessions.HasScope)
			repo, err := cache.CreateRepository(ctx, args[0])
			if err != nil {
				return app.Errors.Handle(err)
			}

			fmt.Printf("Created %s (default branch %s)\n", repo.FullName, repo.DefaultBranch)
			return nil
		},
	}
}
