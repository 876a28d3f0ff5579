package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	apiclient "github.com/trezcool/shule/client/api"
)

var (
	errNotLoggedIn   = errors.New("not logged in, run `shulectl login`")
	errUnusableToken = errors.New("the server returned an unusable token")
)

func newLoginCmd(a *app) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				var err error
				if password, err = promptPassword(cmd); err != nil {
					return err
				}
			}
			resp, err := a.client.Login(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			if err := a.session.SetAuthFromLogin(resp); err != nil {
				return err
			}
			// a malformed token leaves the previous session in place
			if a.session.Token() != resp.Token || !a.session.IsAuthenticated() {
				return errUnusableToken
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s (%s)\n", resp.User.Name, resp.User.Role)
			fmt.Fprintln(cmd.OutOrStdout(), "Redirect:", resp.Redirect)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password (prompted when empty)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Revoke the token and clear the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if token := a.session.Token(); token != "" && a.session.IsTokenValid() {
				var apiErr *apiclient.APIError
				if err := a.client.Logout(cmd.Context(), token); err != nil {
					if !(errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized) {
						a.logger.WithError(err).Warn("revoking token")
					}
				}
			}
			if err := a.session.ClearAuth(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

func newWhoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !a.session.IsAuthenticated() {
				return errNotLoggedIn
			}
			usr, err := a.client.Me(cmd.Context(), a.session.Token())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s <%s>\n", usr.Name, usr.Email)
			fmt.Fprintln(cmd.OutOrStdout(), "Role:", usr.Role)
			if usr.School != nil {
				fmt.Fprintln(cmd.OutOrStdout(), "School:", usr.School.Name)
			}
			return nil
		},
	}
}

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the state of the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st := a.session.Snapshot()
			switch {
			case st.Token == "":
				fmt.Fprintln(cmd.OutOrStdout(), "Not logged in")
			case a.session.IsTokenValid():
				fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s (%s), token expires %s\n", st.Email, st.Role, st.ExpiresAt.Local().Format(time.RFC1123))
				fmt.Fprintln(cmd.OutOrStdout(), "Redirect:", a.session.RedirectPath())
			default:
				fmt.Fprintf(cmd.OutOrStdout(), "Session of %s expired %s\n", st.Email, st.ExpiresAt.Local().Format(time.RFC1123))
			}
			return nil
		},
	}
}
