package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/inkwell-editor/inkwell/errors"
	"github.com/inkwell-editor/inkwell/state"
	"github.com/inkwell-editor/inkwell/tree"
)

var dirStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("4"))

// splitRepo parses "owner/name" into its parts.
func splitRepo(full string) (owner, name string, err error) {
	parts := strings.SplitN(full, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", errors.New(errors.ErrCodeInvalidInput, "repository must be given as owner/name")
	}
	return parts[0], parts[1], nil
}

// resolveRepo picks the repository from the argument or the last one used.
func resolveRepo(app *App, arg string) (owner, name string, err error) {
	if arg == "" {
		arg, _ = app.Store.Get(state.KeyLastRepo)
	}
	if arg == "" {
		return "", "", errors.New(errors.ErrCodeInvalidInput, "no repository given and none remembered; pass owner/name")
	}
	owner, name, err = splitRepo(arg)
	if err == nil {
		if serr := app.Store.Set(state.KeyLastRepo, arg); serr != nil {
			app.Log.WithError(serr).Debug("Failed to remember repository")
		}
	}
	return owner, name, err
}

// NewLsCmd lists a directory of a repository.
func NewLsCmd() *cobra.Command {
	var repoFlag string

	cmd := &cobra.Command{
		Use:   "ls [path]",
		Short: "List a repository directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := NewApp(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			if _, err := app.RequireSession(ctx); err != nil {
				return app.Errors.Handle(err)
			}

			owner, name, err := resolveRepo(app, repoFlag)
			if err != nil {
				return app.Errors.Handle(err)
			}

			path := ""
			if len(args) == 1 {
				path = strings.Trim(args[0], "/")
			}

			cache := tree.NewCache(app.API(), app.Sessions.HasScope)
			cache.Select(owner, name, app.Config.Provider.CommitBranch)

			// Expand each ancestor in order so the target directory node
			// exists in the arena before it is expanded itself.
			ancestors := []string{""}
			if path != "" {
				prefix := ""
				for _, seg := range strings.Split(path, "/") {
					if prefix == "" {
						prefix = seg
					} else {
						prefix = prefix + "/" + seg
					}
					ancestors = append(ancestors, prefix)
				}
			}

			var children []*tree.Node
			for _, p := range ancestors {
				children, err = cache.Expand(ctx, p)
				if err != nil {
					return app.Errors.Handle(err)
				}
			}

			for _, n := range children {
				if n.Kind == tree.KindDir {
					fmt.Printf("%s/\n", dirStyle.Render(n.Name))
				} else {
					fmt.Printf("%s\n", n.Name)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&repoFlag, "repo", "r", "", "Repository as owner/name (defaults to the last one used)")
	return cmd
}

// NewCatCmd prints a file's content.
func NewCatCmd() *cobra.Command {
	var repoFlag string

	cmd := &cobra.Command{
		Use:   "cat <path>",
		Short: "Print a document's HTML",
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

			owner, name, err := resolveRepo(app, repoFlag)
			if err != nil {
				return app.Errors.Handle(err)
			}

			file, err := app.API().GetFile(ctx, owner, name, strings.Trim(args[0], "/"), app.Config.Provider.CommitBranch)
			if err != nil {
				return app.Errors.Handle(err)
			}
			data, err := file.Decode()
			if err != nil {
				return app.Errors.Handle(errors.LoadFailed(args[0], err))
			}

			fmt.Print(string(data))
			return nil
		},
	}

	cmd.Flags().StringVarP(&repoFlag, "repo", "r", "", "Repository as owner/name (defaults to the last one used)")
	return cmd
}
