package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/JoCoor/flatfinder-client/internal/core/route"
	"github.com/JoCoor/flatfinder-client/internal/core/session"
	"github.com/JoCoor/flatfinder-client/internal/flatfinder"
	"github.com/JoCoor/flatfinder-client/internal/marketplace"
)

// isInteractive reports whether prompts can be shown. Tests replace it.
var isInteractive = func() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

type AuthCmd struct {
	flags *Flags
	app   *flatfinder.App

	email     string
	password  string
	firstName string
	lastName  string
	birthDate string
	jsonOut   bool
}

// NewAuthCmd creates the login, register, logout and whoami commands.
func NewAuthCmd(flags *Flags, app *flatfinder.App) *AuthCmd {
	return &AuthCmd{flags: flags, app: app}
}

// Register adds the authentication commands to the application.
func (cmd *AuthCmd) Register(app *cli.Command) *cli.Command {
	credentialFlags := func() []cli.Flag {
		return []cli.Flag{
			&cli.StringFlag{
				Name:        "email",
				Aliases:     []string{"e"},
				Usage:       "account email",
				Sources:     cli.EnvVars("FLATFINDER_EMAIL"),
				Destination: &cmd.email,
			},
			&cli.StringFlag{
				Name:        "password",
				Aliases:     []string{"p"},
				Usage:       "account password (prompted when omitted on a terminal)",
				Sources:     cli.EnvVars("FLATFINDER_PASSWORD"),
				Destination: &cmd.password,
			},
		}
	}

	app.Commands = append(app.Commands,
		&cli.Command{
			Name:      "login",
			Usage:     "Log in to the marketplace",
			UsageText: "flatfinder login [--email <email>] [--password <password>]",
			Description: `Authenticates against the marketplace API and stores the session in the
data directory. Missing credentials are prompted for when running in a terminal.

Logging in opens the push channel that keeps the unread counter current.`,
			Flags:  credentialFlags(),
			Action: cmd.runLogin,
		},
		&cli.Command{
			Name:      "register",
			Usage:     "Create a marketplace account",
			UsageText: "flatfinder register --email <email> --password <password> --first-name <name> --last-name <name>",
			Flags: append(credentialFlags(),
				&cli.StringFlag{Name: "first-name", Usage: "first name", Destination: &cmd.firstName},
				&cli.StringFlag{Name: "last-name", Usage: "last name", Destination: &cmd.lastName},
				&cli.StringFlag{Name: "birth-date", Usage: "birth date (YYYY-MM-DD)", Destination: &cmd.birthDate},
			),
			Action: cmd.runRegister,
		},
		&cli.Command{
			Name:   "logout",
			Usage:  "End the current session",
			Action: cmd.runLogout,
		},
		&cli.Command{
			Name:  "whoami",
			Usage: "Show the logged-in user",
			Flags: []cli.Flag{
				jsonFlag(&cmd.jsonOut),
			},
			Action: cmd.runWhoami,
		},
	)

	return app
}

func (cmd *AuthCmd) runLogin(ctx context.Context, _ *cli.Command) error {
	if err := enter(cmd.app, route.LoginPath); err != nil {
		return err
	}

	if cmd.email == "" || cmd.password == "" {
		if !isInteractive() {
			return errors.New("--email and --password are required when not running in a terminal")
		}
		form := huh.NewForm(huh.NewGroup(
			huh.NewInput().
				Title("Email").
				Value(&cmd.email).
				Validate(required("email")),
			huh.NewInput().
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(&cmd.password).
				Validate(required("password")),
		))
		if err := form.Run(); err != nil {
			if errors.Is(err, huh.ErrUserAborted) {
				return nil
			}
			return fmt.Errorf("form: %w", err)
		}
	}

	identity, err := cmd.app.Login(ctx, marketplace.Credentials{
		Email:    strings.TrimSpace(cmd.email),
		Password: cmd.password,
	})
	if err != nil {
		return explain(err)
	}

	success("Logged in as "+identity.DisplayName(), identity.Email)
	return nil
}

func (cmd *AuthCmd) runRegister(ctx context.Context, _ *cli.Command) error {
	if err := enter(cmd.app, "/register"); err != nil {
		return err
	}

	missing := cmd.email == "" || cmd.password == "" || cmd.firstName == "" || cmd.lastName == ""
	if missing {
		if !isInteractive() {
			return errors.New("--email, --password, --first-name and --last-name are required")
		}
		form := huh.NewForm(huh.NewGroup(
			huh.NewInput().Title("Email").Value(&cmd.email).Validate(required("email")),
			huh.NewInput().Title("Password").EchoMode(huh.EchoModePassword).Value(&cmd.password).Validate(required("password")),
			huh.NewInput().Title("First name").Value(&cmd.firstName).Validate(required("first name")),
			huh.NewInput().Title("Last name").Value(&cmd.lastName).Validate(required("last name")),
			huh.NewInput().Title("Birth date").Placeholder("YYYY-MM-DD").Value(&cmd.birthDate).Validate(optionalDate),
		))
		if err := form.Run(); err != nil {
			if errors.Is(err, huh.ErrUserAborted) {
				return nil
			}
			return fmt.Errorf("form: %w", err)
		}
	}
	if err := optionalDate(cmd.birthDate); err != nil {
		return fmt.Errorf("--birth-date: %w", err)
	}

	err := cmd.app.Register(ctx, marketplace.Registration{
		Email:     strings.TrimSpace(cmd.email),
		Password:  cmd.password,
		FirstName: cmd.firstName,
		LastName:  cmd.lastName,
		BirthDate: cmd.birthDate,
	})
	if err != nil {
		return explain(err)
	}

	success("Account created", "run 'flatfinder login' to continue")
	return nil
}

func (cmd *AuthCmd) runLogout(ctx context.Context, _ *cli.Command) error {
	identity, _, ok := cmd.app.Session.Current()
	if !ok {
		info("Not logged in")
		return nil
	}
	cmd.app.Logout(ctx)
	success("Logged out", identity.Email)
	return nil
}

type whoamiJSON struct {
	session.Identity
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

func (cmd *AuthCmd) runWhoami(_ context.Context, c *cli.Command) error {
	if err := enter(cmd.app, "/profile"); err != nil {
		return err
	}
	identity, token, _ := cmd.app.Session.Current()

	var expires *time.Time
	if exp, ok, err := session.TokenExpiry(token); err == nil && ok {
		expires = &exp
	}

	if cmd.jsonOut {
		return writeJSON(c, whoamiJSON{Identity: identity, ExpiresAt: expires})
	}

	w := out(c)
	_, _ = fmt.Fprintf(w, "%s <%s>\n", identity.DisplayName(), identity.Email)
	_, _ = fmt.Fprintf(w, "id:     %s\n", identity.ID)
	if identity.IsAdmin {
		_, _ = fmt.Fprintln(w, "role:   administrator")
	}
	if expires != nil {
		_, _ = fmt.Fprintf(w, "token:  expires %s\n", expires.Local().Format(time.RFC1123))
	}
	return nil
}

func required(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", field)
		}
		return nil
	}
}

func optionalDate(s string) error {
	if s == "" {
		return nil
	}
	if _, err := time.Parse(time.DateOnly, s); err != nil {
		return fmt.Errorf("expected YYYY-MM-DD")
	}
	return nil
}
