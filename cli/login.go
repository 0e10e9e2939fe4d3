package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/inkwell-editor/inkwell/auth"
	"github.com/inkwell-editor/inkwell/gh"
)

var (
	codeStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("3"))
	dimStyle  = lipgloss.NewStyle().Faint(true)
)

// NewLoginCmd signs the user in. The device flow is the default; --token
// accepts a pre-issued token, --code completes a web authorization-code
// exchange through the configured proxy.
func NewLoginCmd() *cobra.Command {
	var tokenFlag bool
	var code string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to the configured Git hosting provider",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := NewApp(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			var session *auth.Session
			switch {
			case tokenFlag:
				token, err := readToken()
				if err != nil {
					return err
				}
				session, err = app.Sessions.CompleteWithToken(ctx, token)
				if err != nil {
					return app.Errors.Handle(err)
				}
			case code != "":
				session, err = app.Sessions.CompleteAuthorizationCode(ctx, code)
				if err != nil {
					return app.Errors.Handle(err)
				}
			default:
				da, err := app.Sessions.BeginDeviceFlow(ctx)
				if err != nil {
					return app.Errors.Handle(err)
				}

				fmt.Printf("First, copy your one-time code: %s\n", codeStyle.Render(da.UserCode))
				fmt.Printf("Then visit %s and enter it.\n", da.VerificationURI)
				fmt.Println(dimStyle.Render("Waiting for authorization... (Ctrl-C to cancel)"))

				session, err = app.Sessions.PollDeviceFlow(ctx, da)
				if err != nil {
					return app.Errors.Handle(err)
				}
			}

			fmt.Printf("Signed in as %s (scopes: %s)\n",
				session.User.Login, strings.Join(session.Scopes, ", "))
			return nil
		},
	}

	cmd.Flags().BoolVar(&tokenFlag, "token", false, "Paste a pre-issued access token instead of running a flow")
	cmd.Flags().StringVar(&code, "code", "", "Complete a web authorization with the given one-time code")
	return cmd
}

// readToken reads a token from the terminal without echo, or from stdin when
// piped.
func readToken() (string, error) {
	if isatty.IsTerminal(os.Stdin.Fd()) {
		fmt.Print("Token: ")
		data, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Println()
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(data)), nil
	}

	var token string
	if _, err := fmt.Fscanln(os.Stdin, &token); err != nil {
		return "", err
	}
	return strings.TrimSpace(token), nil
}

// NewLogoutCmd clears the persisted session.
func NewLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and clear the persisted token",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := NewApp(cmd)
			if err != nil {
				return err
			}
			app.Sessions.Logout()
			fmt.Println("Signed out.")
			return nil
		},
	}
}

// NewWhoamiCmd prints the authenticated identity.
func NewWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := NewApp(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			session, err := app.RequireSession(ctx)
			if err != nil {
				return app.Errors.Handle(err)
			}

			email := session.User.Email
			if email == "" {
				// Private profile email; the emails endpoint has the real one.
				if emails, err := app.API().ListEmails(ctx); err == nil {
					email = gh.PrimaryEmail(emails)
				}
			}

			fmt.Printf("%s", session.User.Login)
			if email != "" {
				fmt.Printf(" <%s>", email)
			}
			fmt.Printf("\nScopes: %s\n", strings.Join(session.Scopes, ", "))
			return nil
		},
	}
}
