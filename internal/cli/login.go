package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/jrsteele09/carebook-portal/auth"
	perrors "github.com/jrsteele09/carebook-portal/internal/errors"
	"github.com/jrsteele09/carebook-portal/portal"
	"github.com/jrsteele09/carebook-portal/users"
	"github.com/spf13/cobra"
)

func newLoginCmd(a *app) *cobra.Command {
	var email, password, accessToken, refreshToken string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to the portal",
		Long: "Sign in with an email and password (prompted if omitted), or adopt " +
			"an access token and refresh token issued elsewhere.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := contextOf(cmd)
			var (
				result *auth.LoginResult
				err    error
			)
			if accessToken != "" {
				result, err = a.manager.Login(ctx, accessToken, refreshToken, nil)
			} else {
				reader := bufio.NewReader(cmd.InOrStdin())
				if email == "" {
					if email, err = prompt(cmd.OutOrStdout(), reader, "Email: "); err != nil {
						return err
					}
				}
				if password == "" {
					if password, err = prompt(cmd.OutOrStdout(), reader, "Password: "); err != nil {
						return err
					}
				}
				result, err = a.manager.LoginWithPassword(ctx, email, password)
			}
			if perrors.Is(err, perrors.ErrEmailUnconfirmed) {
				fmt.Fprintln(cmd.OutOrStdout(), "Confirm your email address using the link we sent, then sign in again.")
			}
			if err != nil {
				return err
			}
			printSignedIn(a, cmd.OutOrStdout(), result.Role)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Account email (prompted if omitted)")
	cmd.Flags().StringVar(&password, "password", "", "Account password (prompted if omitted)")
	cmd.Flags().StringVar(&accessToken, "access-token", "", "Adopt this access token instead of signing in with a password")
	cmd.Flags().StringVar(&refreshToken, "refresh-token", "", "Refresh token to go with --access-token")
	return cmd
}

func newRegisterCmd(a *app) *cobra.Command {
	var registration auth.Registration
	var role, name string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		RunE: func(cmd *cobra.Command, args []string) error {
			registration.Role = users.RoleType(role)
			if name != "" {
				registration.Profile = map[string]any{"name": name}
			}
			result, err := a.manager.Register(contextOf(cmd), registration)
			var apiErr *portal.APIError
			if perrors.As(err, &apiErr) && apiErr.Message != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Registration refused: %s\n", apiErr.Message)
			}
			if err != nil {
				return err
			}
			printSignedIn(a, cmd.OutOrStdout(), result.Role)
			return nil
		},
	}

	cmd.Flags().StringVar(&registration.Email, "email", "", "Account email")
	cmd.Flags().StringVar(&registration.Password, "password", "", "Account password")
	cmd.Flags().StringVar(&role, "role", string(users.RolePatient), "Portal role")
	cmd.Flags().StringVar(&name, "name", "", "Display name")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and clear the persisted session",
		RunE: func(cmd *cobra.Command, args []string) error {
			a.manager.Logout(contextOf(cmd))
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
			return nil
		},
	}
}

func printSignedIn(a *app, w io.Writer, role users.RoleType) {
	p := a.painter(w)
	if current := a.manager.Current(); current != nil {
		p.printf("Signed in as %s (%s)\n", current.Email, p.role(role))
		return
	}
	p.printf("Signed in as %s, but the session has already ended\n", p.role(role))
}

func prompt(w io.Writer, reader *bufio.Reader, label string) (string, error) {
	fmt.Fprint(w, label)
	line, err := reader.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", fmt.Errorf("read %s: %w", strings.TrimSuffix(strings.ToLower(label), ": "), err)
	}
	return strings.TrimSpace(line), nil
}
