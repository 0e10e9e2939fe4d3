package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/inkwell-editor/inkwell/docsync"
	"github.com/inkwell-editor/inkwell/editor"
	"github.com/inkwell-editor/inkwell/errors"
	"github.com/inkwell-editor/inkwell/tree"
)

// NewEditCmd edits one document in an external editor and commits the result.
func NewEditCmd() *cobra.Command {
	var repoFlag string
	var newFile bool
	var force bool

	cmd := &cobra.Command{
		Use:   "edit [path]",
		Short: "Edit a document and commit it back",
		Long: `Edit fetches a document, opens it in your editor, and commits the
result when the editor exits. With --new the document starts empty and you
are prompted for a destination path on save.`,
		Args: cobra.MaximumNArgs(1),
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
			if path == "" && !newFile {
				return app.Errors.Handle(errors.New(errors.ErrCodeInvalidInput,
					"a document path is required unless --new is given"))
			}

			cache := tree.NewCache(app.API(), app.Sessions.HasScope)
			cache.Select(owner, name, app.Config.Provider.CommitBranch)

			remote := &docsync.GitHubRemote{
				API:     app.API(),
				Owner:   owner,
				Repo:    name,
				Branch:  app.Config.Provider.CommitBranch,
				Message: app.Config.Provider.CommitMessage,
			}

			stdin := bufio.NewReader(cmd.InOrStdin())
			engine := docsync.NewEngine(docsync.Options{
				Remote:     remote,
				HasSession: func() bool { return app.Sessions.Current() != nil },
				Resolvers: docsync.Resolvers{
					ConfirmDiscard: func(ctx context.Context, p string) (bool, error) {
						fmt.Fprintf(cmd.ErrOrStderr(), "%s has unsaved changes. Discard them? [y/N] ", p)
						line, err := stdin.ReadString('\n')
						if err != nil {
							return false, nil
						}
						answer := strings.ToLower(strings.TrimSpace(line))
						return answer == "y" || answer == "yes", nil
					},
					PromptSavePath: func(ctx context.Context) (string, error) {
						fmt.Fprint(cmd.ErrOrStderr(), "Save as (path within repository): ")
						line, err := stdin.ReadString('\n')
						if err != nil {
							return "", nil
						}
						return strings.Trim(strings.TrimSpace(line), "/"), nil
					},
				},
				OnTreeRefresh: func() {
					app.Log.Debug("Document created; tree is stale")
				},
			})

			if newFile {
				engine.UpdateContent("")
			} else {
				node, err := lookupFile(ctx, cache, path)
				if err != nil {
					return app.Errors.Handle(err)
				}
				if err := engine.OpenFile(ctx, node); err != nil {
					return app.Errors.Handle(err)
				}
			}

			scratchName := filepath.Base(path)
			if scratchName == "" || scratchName == "." {
				scratchName = "untitled.html"
			}
			scratchDir, err := os.MkdirTemp("", "inkwell-edit-")
			if err != nil {
				return errors.Wrap(err, errors.ErrCodeInternal, "failed to create scratch directory")
			}
			defer os.RemoveAll(scratchDir)

			surface, err := editor.NewFileSurface(filepath.Join(scratchDir, scratchName))
			if err != nil {
				return app.Errors.Handle(err)
			}
			defer surface.Close()

			if err := surface.SetContent(ctx, engine.Content(), true); err != nil {
				return app.Errors.Handle(err)
			}

			bindCtx, stopBind := context.WithCancel(ctx)
			defer stopBind()
			go editor.Bind(bindCtx, surface, engine)

			if err := runEditor(ctx, app.Config.Editor.Command, surface.Path()); err != nil {
				return app.Errors.Handle(err)
			}
			stopBind()

			final, err := surface.GetContent(ctx)
			if err != nil {
				return app.Errors.Handle(err)
			}
			engine.UpdateContent(final)

			if engine.State() != docsync.StateDirty {
				fmt.Fprintln(cmd.OutOrStdout(), "No changes to save.")
				return nil
			}

			err = engine.Save(ctx, final)
			if force && errors.Is(err, errors.ErrCodeConflictDetected) {
				app.Log.Warn("Remote changed underneath; overwriting as requested")
				if aerr := engine.AdoptRemoteSHA(ctx); aerr != nil {
					return app.Errors.Handle(aerr)
				}
				err = engine.Save(ctx, final)
			}
			if err != nil {
				return app.Errors.Handle(err)
			}

			active := engine.Active()
			if active != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "Saved %s\n", active.Path)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&repoFlag, "repo", "r", "", "repository as owner/name (defaults to the last one used)")
	cmd.Flags().BoolVar(&newFile, "new", false, "start a new document instead of opening an existing one")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite the remote document if it changed underneath")
	return cmd
}

// lookupFile expands the tree down to path and returns its file node.
func lookupFile(ctx context.Context, cache *tree.Cache, path string) (*tree.Node, error) {
	ancestors := []string{""}
	segs := strings.Split(path, "/")
	prefix := ""
	for _, seg := range segs[:len(segs)-1] {
		if prefix == "" {
			prefix = seg
		} else {
			prefix = prefix + "/" + seg
		}
		ancestors = append(ancestors, prefix)
	}
	for _, dir := range ancestors {
		if _, err := cache.Expand(ctx, dir); err != nil {
			return nil, err
		}
	}

	node := cache.Node(path)
	if node == nil || node.Kind != tree.KindFile {
		return nil, errors.NotFound(path)
	}
	return node, nil
}

// runEditor launches the configured editor on path and waits for it to exit.
func runEditor(ctx context.Context, command, path string) error {
	if command == "" {
		command = os.Getenv("EDITOR")
	}
	if command == "" {
		command = "vi"
	}

	parts := strings.Fields(command)
	args := append(parts[1:], path)
	cmd := exec.CommandContext(ctx, parts[0], args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, fmt.Sprintf("editor %q failed", parts[0]))
	}
	return nil
}
