package commands

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"finboard/internal/api"
	"finboard/internal/core"
)

func (a *app) loginCmd() *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and remember the token",
		Long:  "Log in with email and password. Without --password the password is read from the first line of stdin.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if password == "" {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("read password: %w", err)
				}
				password = strings.TrimRight(line, "\r\n")
			}

			creds := core.Credentials{Email: strings.ToLower(strings.TrimSpace(email)), Password: password}
			if err := core.Validate(creds); err != nil {
				return err
			}

			res, err := a.client(cmd).Login(cmd.Context(), creds)
			if err != nil {
				// a 401 here means bad credentials, not an expired session
				return errors.New(api.UserMessage(err))
			}
			if err := a.tokens.Save(res.Token); err != nil {
				return err
			}
			a.printf(cmd, "Logged in as %s <%s>\n", res.User.Name, res.User.Email)
			return nil
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "account email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "account password")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func (a *app) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if client, err := a.authed(cmd); err == nil {
				// the local token goes either way
				_ = client.Logout(cmd.Context())
			}
			if err := a.tokens.Clear(); err != nil {
				return err
			}
			a.printf(cmd, "Logged out\n")
			return nil
		},
	}
}

func (a *app) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := a.authed(cmd)
			if err != nil {
				return err
			}
			u, err := client.Me(cmd.Context())
			if err != nil {
				return a.fail(err)
			}
			a.printf(cmd, "%s <%s>\n", u.Name, u.Email)
			a.printf(cmd, "Currency: %s  Timezone: %s\n", u.DisplayCurrency(), u.Timezone)
			return nil
		},
	}
}
