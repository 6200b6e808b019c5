package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jrsteele09/mcc-client/apiclient"
	"github.com/jrsteele09/mcc-client/internal/config"
	"github.com/jrsteele09/mcc-client/router"
	"github.com/jrsteele09/mcc-client/token"
	"github.com/jrsteele09/mcc-client/users"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

type rootFlags struct {
	output  string
	verbose bool
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:   "mcc",
		Short: "AI Marketing Command Center client",
		Long: `Sign in to the Marketing Command Center and work with its data from the terminal.

The session, the refresh cookie and the last opened page are kept between runs
in the configured state backend (MCC_STATE_BACKEND: file, redis or sqlite).`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.New()
			if err != nil {
				return err
			}
			displayAppname(cmd.OutOrStdout(), cfg.GetAppName())
			return cmd.Help()
		},
	}
	root.PersistentFlags().StringVarP(&flags.output, "output", "o", outputJSON, "output format: json or yaml")
	root.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "log every API request")

	root.AddCommand(
		newLoginCmd(flags),
		newSignupCmd(flags),
		newLogoutCmd(flags),
		newWhoamiCmd(flags),
		newRefreshCmd(flags),
		newOpenCmd(flags),
		newPagesCmd(flags),
		newRequestCmd(flags),
	)
	return root
}

// runWithApp loads configuration, wires an app for one command and closes it
// afterwards.
func runWithApp(cmd *cobra.Command, flags *rootFlags, fn func(ctx context.Context, a *app) error, options ...appOption) error {
	cfg, err := config.New()
	if err != nil {
		return err
	}
	setupLogging(cfg, flags.verbose)

	out, err := newConsole(cmd.OutOrStdout(), cmd.ErrOrStderr(), flags.output)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	a, err := newApp(ctx, cfg, out, options...)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "close state: %s\n", closeErr)
		}
	}()
	return fn(ctx, a)
}

func newLoginCmd(flags *rootFlags) *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with email and password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p := newPrompter(cmd)
			credentials := users.Credentials{Email: email}
			var err error
			if credentials.Email == "" {
				if credentials.Email, err = p.line("Email: "); err != nil {
					return err
				}
			}
			if credentials.Password, err = p.secret("Password: "); err != nil {
				return err
			}

			return runWithApp(cmd, flags, func(ctx context.Context, a *app) error {
				if _, err := a.manager.Login(ctx, credentials); err != nil {
					return fmt.Errorf("login failed: %w", err)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "account email")
	return cmd
}

func newSignupCmd(flags *rootFlags) *cobra.Command {
	var registration users.Registration
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account and sign in to it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p := newPrompter(cmd)
			var err error
			if registration.Name == "" {
				if registration.Name, err = p.line("Name: "); err != nil {
					return err
				}
			}
			if registration.Email == "" {
				if registration.Email, err = p.line("Email: "); err != nil {
					return err
				}
			}
			if registration.Password, err = p.secret("Password: "); err != nil {
				return err
			}

			return runWithApp(cmd, flags, func(ctx context.Context, a *app) error {
				if _, err := a.manager.Signup(ctx, registration); err != nil {
					return fmt.Errorf("signup failed: %w", err)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&registration.Name, "name", "n", "", "display name")
	cmd.Flags().StringVarP(&registration.Email, "email", "e", "", "account email")
	return cmd
}

func newLogoutCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the saved session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(cmd, flags, func(ctx context.Context, a *app) error {
				a.manager.Logout(ctx, false)
				return nil
			})
		},
	}
}

type tokenInfo struct {
	Type      string    `json:"type,omitempty"`
	IssuedAt  time.Time `json:"issued_at,omitzero"`
	ExpiresAt time.Time `json:"expires_at,omitzero"`
	Expired   bool      `json:"expired"`
}

type identity struct {
	User  users.User `json:"user"`
	Token *tokenInfo `json:"token,omitempty"`
}

func describeToken(raw string) *tokenInfo {
	claims, err := token.Inspect(raw)
	if err != nil {
		return nil
	}
	return &tokenInfo{
		Type:      claims.Type,
		IssuedAt:  claims.IssuedAt,
		ExpiresAt: claims.ExpiresAt,
		Expired:   claims.Expired(time.Now()),
	}
}

func newWhoamiCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Verify the saved session and show who is signed in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(cmd, flags, func(ctx context.Context, a *app) error {
				if !a.manager.Restore(ctx) {
					return errNotSignedIn
				}
				user, _ := a.store.User()
				return a.console.render(identity{User: user, Token: describeToken(a.store.Token())})
			})
		},
	}
}

func newRefreshCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Exchange the refresh cookie for a new access token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(cmd, flags, func(ctx context.Context, a *app) error {
				restored, err := a.store.Load(ctx)
				if err != nil {
					return err
				}
				if !restored {
					return errNotSignedIn
				}
				if err := a.client.Refresh(ctx); err != nil {
					return err
				}
				info := describeToken(a.store.Token())
				if info == nil {
					info = &tokenInfo{}
				}
				return a.console.render(info)
			})
		},
	}
}

func newOpenCmd(flags *rootFlags) *cobra.Command {
	names := make([]string, 0, len(router.Pages()))
	for _, info := range router.Pages() {
		names = append(names, string(info.Page))
	}
	return &cobra.Command{
		Use:       "open [page]",
		Short:     "Open a page and print its data",
		Long:      "Open a page and print its data. Without a page the last opened page is used.\n\nPages: " + strings.Join(names, ", "),
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: names,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(cmd, flags, func(ctx context.Context, a *app) error {
				if len(args) == 1 {
					if _, err := a.router.Remember(ctx, args[0]); err != nil {
						return fmt.Errorf("%w (pages: %s)", err, strings.Join(names, ", "))
					}
				}
				if !a.manager.Restore(ctx) {
					return errNotSignedIn
				}
				return a.console.lastPageErr()
			}, withPageLoading())
		},
	}
}

func newPagesCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "pages",
		Short: "List the application pages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := newConsole(cmd.OutOrStdout(), cmd.ErrOrStderr(), flags.output)
			if err != nil {
				return err
			}
			return out.render(router.Pages())
		},
	}
}

func newRequestCmd(flags *rootFlags) *cobra.Command {
	var data string
	cmd := &cobra.Command{
		Use:   "request <method> <path>",
		Short: "Send an authenticated request to the API",
		Example: `  mcc request GET /campaigns/
  mcc request POST /chat/message --data '{"message":"Plan my launch week"}'`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			method := strings.ToUpper(args[0])
			switch method {
			case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete:
			default:
				return fmt.Errorf("unsupported method %q", args[0])
			}
			path := args[1]
			if !strings.HasPrefix(path, "/") {
				path = "/" + path
			}
			var body any
			if data != "" {
				if !json.Valid([]byte(data)) {
					return errors.New("--data must be valid JSON")
				}
				body = json.RawMessage(data)
			}

			return runWithApp(cmd, flags, func(ctx context.Context, a *app) error {
				if !a.manager.Restore(ctx) {
					return errNotSignedIn
				}
				payload, err := a.client.Request(ctx, method, path, body, apiclient.Initial)
				if err != nil {
					return err
				}
				return a.console.render(payload)
			})
		},
	}
	cmd.Flags().StringVarP(&data, "data", "d", "", "JSON request body")
	return cmd
}

// prompter reads answers from the command's input. Secrets are read without
// echo when the input is a terminal.
type prompter struct {
	in    io.Reader
	lines *bufio.Reader
	out   io.Writer
}

func newPrompter(cmd *cobra.Command) *prompter {
	in := cmd.InOrStdin()
	return &prompter{in: in, lines: bufio.NewReader(in), out: cmd.ErrOrStderr()}
}

func (p *prompter) line(label string) (string, error) {
	fmt.Fprint(p.out, label)
	text, err := p.lines.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && text != "") {
		return "", fmt.Errorf("read %s: %w", strings.TrimSuffix(strings.ToLower(label), ": "), err)
	}
	return strings.TrimRight(text, "\r\n"), nil
}

func (p *prompter) secret(label string) (string, error) {
	if f, ok := p.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(p.out, label)
		secret, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(p.out)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(secret), nil
	}
	return p.line(label)
}
