// Package commands implements the finctl command tree.
package commands

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"finboard/internal/api"
	applog "finboard/internal/log"
)

const defaultAPIURL = "http://localhost:5000/api"

// app carries the root flags every command reads.
type app struct {
	apiURL   string
	timeout  time.Duration
	currency string
	verbose  bool
	tokens   tokenStore
}

// NewRootCmd builds finctl with all subcommands registered.
func NewRootCmd() *cobra.Command {
	a := &app{tokens: tokenStore{path: defaultTokenPath(), now: time.Now}}

	root := &cobra.Command{
		Use:   "finctl",
		Short: "Personal finance from the terminal",
		Long: `finctl talks to the same REST API as the finboard dashboard.

Log in once with "finctl login"; the token is kept in ~/.finctl/token.
The backend is read from --api, then API_URL, then ` + defaultAPIURL + `.`,
		SilenceUsage: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.apiURL, "api", envOr("API_URL", defaultAPIURL), "finance API base URL")
	flags.DurationVar(&a.timeout, "timeout", api.DefaultTimeout, "per-request timeout")
	flags.StringVar(&a.currency, "currency", envOr("FINCTL_CURRENCY", "USD"), "currency used to print amounts")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "log every API call to stderr")
	flags.StringVar(&a.tokens.path, "token-file", a.tokens.path, "where the login token is stored")

	root.AddCommand(
		a.loginCmd(),
		a.logoutCmd(),
		a.whoamiCmd(),
		a.txCmd(),
		a.categoriesCmd(),
		a.summaryCmd(),
		a.dashboardCmd(),
	)
	return root
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func (a *app) client(cmd *cobra.Command) *api.Client {
	opts := []api.Option{api.WithTimeout(a.timeout)}
	if a.verbose {
		opts = append(opts, api.WithLogger(applog.New(applog.Config{
			Level:     slog.LevelDebug,
			Component: applog.ComponentCLI,
			Handler:   applog.NewHandler(cmd.ErrOrStderr(), "text", slog.LevelDebug),
		})))
	}
	return api.New(a.apiURL, opts...)
}

// authed returns a client bound to the stored token.
func (a *app) authed(cmd *cobra.Command) (*api.Client, error) {
	token, err := a.tokens.Load()
	if err != nil {
		return nil, err
	}
	return a.client(cmd).WithToken(token), nil
}

// fail turns a backend error into what the user sees. A rejected token is
// forgotten so the next command asks for a login.
func (a *app) fail(err error) error {
	if errors.Is(err, api.ErrUnauthorized) {
		_ = a.tokens.Clear()
		return ErrSessionExpired
	}
	return errors.New(api.UserMessage(err))
}

func (a *app) printf(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintf(cmd.OutOrStdout(), format, args...)
}
